package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

const collectionGroups = "groups"

type GroupRepository struct {
	col *mongo.Collection
}

func NewGroupRepository(db *mongo.Database) *GroupRepository {
	return &GroupRepository{col: db.Collection(collectionGroups)}
}

func (r *GroupRepository) Insert(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	_, err := r.col.InsertOne(ctx, g)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrGroupExists
		}
		return nil, err
	}
	return g, nil
}

func (r *GroupRepository) FindByName(ctx context.Context, tenant, name string) (*domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var g domain.Group
	err := r.col.FindOne(ctx, bson.M{"tenant": tenant, "name": name}).Decode(&g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepository) Save(ctx context.Context, g *domain.Group) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"tenant": g.TenantName, "name": g.Name}, g)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func (r *GroupRepository) Delete(ctx context.Context, tenant, name string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"tenant": tenant, "name": name})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func (r *GroupRepository) ListByTenant(ctx context.Context, tenant string) ([]*domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"tenant": tenant}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var groups []*domain.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// DeleteByTenant cascades removal of every group owned by the tenant.
func (r *GroupRepository) DeleteByTenant(ctx context.Context, tenant string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.DeleteMany(ctx, bson.M{"tenant": tenant})
	return err
}

// EnsureIndexes creates the per-tenant unique name index.
func (r *GroupRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
