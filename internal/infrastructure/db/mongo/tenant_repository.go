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

const collectionTenants = "tenants"

type TenantRepository struct {
	col *mongo.Collection
}

func NewTenantRepository(db *mongo.Database) *TenantRepository {
	return &TenantRepository{col: db.Collection(collectionTenants)}
}

// Insert stores a new tenant document. The unique index on name maps
// duplicate-key failures to domain.ErrTenantExists.
func (r *TenantRepository) Insert(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.col.InsertOne(ctx, t)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrTenantExists
		}
		return nil, err
	}
	return t, nil
}

func (r *TenantRepository) FindByName(ctx context.Context, name string) (*domain.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var t domain.Tenant
	err := r.col.FindOne(ctx, bson.M{"name": name}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Save replaces the full tenant document. The name is immutable, so it is
// the replacement filter.
func (r *TenantRepository) Save(ctx context.Context, t *domain.Tenant) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"name": t.Name}, t)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (r *TenantRepository) Delete(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

// List returns tenants where accountID is the owner or a collaborator,
// newest first. An empty accountID lists everything.
func (r *TenantRepository) List(ctx context.Context, accountID string) ([]*domain.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if accountID != "" {
		filter = bson.M{"$or": bson.A{
			bson.M{"owner_id": accountID},
			bson.M{"collaborators": accountID},
		}}
	}

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var tenants []*domain.Tenant
	if err := cur.All(ctx, &tenants); err != nil {
		return nil, err
	}
	return tenants, nil
}

// EnsureIndexes creates the unique name index on the tenants collection.
func (r *TenantRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
