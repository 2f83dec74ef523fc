package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrStorageConflict = errors.New("storage bucket already exists")
var ErrTeardownIncomplete = errors.New("storage teardown incomplete")
var ErrTemplateNotFound = errors.New("template not found")
var ErrInvalidKey = errors.New("invalid object key")
var ErrInvalidInput = errors.New("invalid input")

// ErrProvider is the root of all storage and identity provider failures.
// Wrap it through ProviderError so callers can match the class with
// errors.Is and inspect retryability with IsRetryable.
var ErrProvider = errors.New("provider error")

// ProviderError reports a failure from an external backend (object storage
// or federated identity). Retryable marks transient failures that a bounded
// retry may resolve.
type ProviderError struct {
	Op        string
	Provider  string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return ErrProvider }

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// ObjectInfo describes a single object in a tenant's bucket listing.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// TemplateFile is one path → content entry of a template manifest.
type TemplateFile struct {
	Path        string `json:"path" bson:"path"`
	Content     []byte `json:"content" bson:"content"`
	ContentType string `json:"content_type" bson:"content_type"`
}

// Template is a named, versioned set of files usable as a provisioning seed.
type Template struct {
	ID        string         `json:"id" bson:"_id,omitempty"`
	Name      string         `json:"name" bson:"name"`
	Version   int            `json:"version" bson:"version"`
	Files     []TemplateFile `json:"files" bson:"files"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
}
