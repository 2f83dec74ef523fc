package ports

import (
	"context"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// ApplyTemplateInput carries the parameters for materializing a template
// into a tenant's bucket.
type ApplyTemplateInput struct {
	TemplateName string
	// ReplaceAll clears the bucket before copying. The default is a
	// non-destructive merge: colliding keys are overwritten, everything
	// else is left untouched.
	ReplaceAll bool
}

// ApplyTemplateResult reports what a template application wrote.
type ApplyTemplateResult struct {
	TemplateName string `json:"template"`
	FilesWritten int    `json:"files_written"`
	SiteURL      string `json:"site_url"`
}

// PublishFileInput carries a single object to publish into a tenant's bucket.
type PublishFileInput struct {
	Key         string
	Content     []byte
	ContentType string
}

// TeardownJob identifies tenant storage whose teardown ended incomplete and
// must be re-driven in the background.
type TeardownJob struct {
	TenantName string
	BucketName string
}

// ProvisionService orchestrates the object-storage side effects of a
// tenant's lifecycle. All mutating operations are restart-safe rather than
// transactional: re-invoking converges on the desired state.
type ProvisionService interface {
	// CreateStorage allocates the tenant's hosting bucket and returns its
	// populated storage descriptor. domain.ErrStorageConflict when the
	// bucket already exists.
	CreateStorage(ctx context.Context, t *domain.Tenant) (*domain.StorageDescriptor, error)
	// RemoveStorage deletes all objects then the bucket. Idempotent: a
	// second call on a removed tenant succeeds silently. Partial failure is
	// reported as domain.ErrTeardownIncomplete and is safe to retry.
	RemoveStorage(ctx context.Context, t *domain.Tenant) error
	// ApplyTemplate copies the named template's files into the bucket.
	// Not transactional; a mid-copy failure leaves written objects in place
	// and a retry overwrites them.
	ApplyTemplate(ctx context.Context, t *domain.Tenant, in ApplyTemplateInput) (*ApplyTemplateResult, error)
	PublishFile(ctx context.Context, t *domain.Tenant, in PublishFileInput) (*domain.ObjectInfo, error)
	// GetStructure returns a fresh listing of the tenant's bucket ordered by key.
	GetStructure(ctx context.Context, t *domain.Tenant) ([]domain.ObjectInfo, error)
}
