package ports

import (
	"context"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// StorageGateway is the narrow contract over the object-storage provider.
// Implementations map provider-specific failures onto the domain taxonomy:
// bucket name collisions become domain.ErrStorageConflict, everything else
// becomes a *domain.ProviderError with Retryable set for transient faults.
type StorageGateway interface {
	// Provider returns the backend name recorded in the storage descriptor.
	Provider() string
	// CreateBucket allocates a hosting-enabled bucket and returns its public site URL.
	CreateBucket(ctx context.Context, name string) (string, error)
	// DeleteBucket removes an empty bucket. Deleting a missing bucket is not an error.
	DeleteBucket(ctx context.Context, name string) error
	Put(ctx context.Context, bucket, key string, content []byte, contentType string) error
	// Delete removes a single object. Deleting a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error
	// List returns the objects under prefix ordered by key. Each call yields
	// a fresh listing.
	List(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error)
}
