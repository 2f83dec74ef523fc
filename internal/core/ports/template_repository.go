package ports

import (
	"context"

	"github.com/stackfold/hosting-system/internal/core/domain"
)

// TemplateRepository resolves named provisioning seeds. Read-only from the
// core's perspective.
type TemplateRepository interface {
	// Resolve returns the template with the given name, or domain.ErrTemplateNotFound.
	Resolve(ctx context.Context, name string) (*domain.Template, error)
}
