package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

const collectionTemplates = "templates"

// TemplateRepository resolves provisioning templates. The core only reads;
// template authoring happens out of band.
type TemplateRepository struct {
	col *mongo.Collection
}

func NewTemplateRepository(db *mongo.Database) *TemplateRepository {
	return &TemplateRepository{col: db.Collection(collectionTemplates)}
}

// Resolve returns the highest version of the named template.
func (r *TemplateRepository) Resolve(ctx context.Context, name string) (*domain.Template, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})

	var t domain.Template
	err := r.col.FindOne(ctx, bson.M{"name": name}, opts).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

// EnsureIndexes creates the (name, version) index used by Resolve.
func (r *TemplateRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}, {Key: "version", Value: -1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
