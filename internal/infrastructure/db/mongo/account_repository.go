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

const collectionAccounts = "scoped_accounts"

// AccountRepository persists tenant-scoped accounts. It is deliberately a
// different collection from anything platform-account related; the two
// identity domains share no storage.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

func (r *AccountRepository) Insert(ctx context.Context, a *domain.ScopedAccount) (*domain.ScopedAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.col.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAccountExists
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, tenant, id string) (*domain.ScopedAccount, error) {
	return r.findOne(ctx, bson.M{"tenant": tenant, "_id": id})
}

func (r *AccountRepository) FindByUsername(ctx context.Context, tenant, username string) (*domain.ScopedAccount, error) {
	return r.findOne(ctx, bson.M{"tenant": tenant, "username": username})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, tenant, email string) (*domain.ScopedAccount, error) {
	return r.findOne(ctx, bson.M{"tenant": tenant, "email": email})
}

func (r *AccountRepository) FindByExternalID(ctx context.Context, tenant, externalID string) (*domain.ScopedAccount, error) {
	return r.findOne(ctx, bson.M{"tenant": tenant, "external_id": externalID})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.ScopedAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a domain.ScopedAccount
	err := r.col.FindOne(ctx, filter).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) ListByTenant(ctx context.Context, tenant string) ([]*domain.ScopedAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"tenant": tenant})
	if err != nil {
		return nil, err
	}
	var accounts []*domain.ScopedAccount
	if err := cur.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *AccountRepository) Delete(ctx context.Context, tenant, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"tenant": tenant, "_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// DeleteByTenant cascades removal of every account in the tenant's namespace.
func (r *AccountRepository) DeleteByTenant(ctx context.Context, tenant string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.DeleteMany(ctx, bson.M{"tenant": tenant})
	return err
}

// EnsureIndexes creates the per-tenant uniqueness indexes. Username and
// email are each unique within a tenant; the partial filter keeps absent
// fields from colliding.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tenant", Value: 1}, {Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"username": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "tenant", Value: 1}, {Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "tenant", Value: 1}, {Key: "external_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"external_id": bson.M{"$type": "string"}}),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
