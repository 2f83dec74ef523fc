package service

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 200 * time.Millisecond
	defaultCallTimeout = 10 * time.Second
)

// ProvisionOptions tunes the engine's retry and timeout behaviour.
// Zero values fall back to the defaults above.
type ProvisionOptions struct {
	BucketPrefix string
	MaxAttempts  int
	BackoffBase  time.Duration
	CallTimeout  time.Duration
}

type provisionService struct {
	gateway      ports.StorageGateway
	templates    ports.TemplateRepository
	bucketPrefix string
	maxAttempts  int
	backoffBase  time.Duration
	callTimeout  time.Duration
	log          zerolog.Logger
}

// NewProvisionService returns a ProvisionService backed by the given storage
// gateway and template repository.
func NewProvisionService(gateway ports.StorageGateway, templates ports.TemplateRepository, opts ProvisionOptions, log zerolog.Logger) ports.ProvisionService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.BucketPrefix == "" {
		opts.BucketPrefix = "stackfold-"
	}
	return &provisionService{
		gateway:      gateway,
		templates:    templates,
		bucketPrefix: opts.BucketPrefix,
		maxAttempts:  opts.MaxAttempts,
		backoffBase:  opts.BackoffBase,
		callTimeout:  opts.CallTimeout,
		log:          log,
	}
}

// BucketName derives the deterministic bucket name for a tenant.
func (s *provisionService) bucketName(t *domain.Tenant) string {
	if t.Storage != nil && t.Storage.BucketName != "" {
		return t.Storage.BucketName
	}
	return s.bucketPrefix + strings.ToLower(t.Name)
}

func (s *provisionService) CreateStorage(ctx context.Context, t *domain.Tenant) (*domain.StorageDescriptor, error) {
	bucket := s.bucketName(t)

	var siteURL string
	err := s.withRetry(ctx, "create_bucket", func(ctx context.Context) error {
		url, err := s.gateway.CreateBucket(ctx, bucket)
		if err != nil {
			return err
		}
		siteURL = url
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create storage %q: %w", t.Name, err)
	}

	s.log.Info().Str("tenant", t.Name).Str("bucket", bucket).Str("site_url", siteURL).Msg("storage created")

	return &domain.StorageDescriptor{
		Provider:   s.gateway.Provider(),
		BucketName: bucket,
		SiteURL:    siteURL,
	}, nil
}

// RemoveStorage deletes every object under the tenant's bucket, then the
// bucket itself. Objects that fail to delete are skipped and reported via
// domain.ErrTeardownIncomplete so the caller can retry; objects already
// deleted are not re-deleted on retry.
func (s *provisionService) RemoveStorage(ctx context.Context, t *domain.Tenant) error {
	bucket := s.bucketName(t)

	objects, err := s.list(ctx, bucket, "")
	if err != nil {
		return fmt.Errorf("remove storage %q: %w", t.Name, err)
	}

	failed := 0
	for _, obj := range objects {
		delErr := s.withRetry(ctx, "delete_object", func(ctx context.Context) error {
			return s.gateway.Delete(ctx, bucket, obj.Key)
		})
		if delErr != nil {
			failed++
			s.log.Warn().Err(delErr).Str("tenant", t.Name).Str("key", obj.Key).Msg("object deletion failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("remove storage %q: %d of %d objects not deleted: %w",
			t.Name, failed, len(objects), domain.ErrTeardownIncomplete)
	}

	err = s.withRetry(ctx, "delete_bucket", func(ctx context.Context) error {
		return s.gateway.DeleteBucket(ctx, bucket)
	})
	if err != nil {
		return fmt.Errorf("remove storage %q: bucket deletion: %w (%v)", t.Name, domain.ErrTeardownIncomplete, err)
	}

	s.log.Info().Str("tenant", t.Name).Str("bucket", bucket).Int("objects_deleted", len(objects)).Msg("storage removed")
	return nil
}

func (s *provisionService) ApplyTemplate(ctx context.Context, t *domain.Tenant, in ports.ApplyTemplateInput) (*ports.ApplyTemplateResult, error) {
	if t.Storage == nil {
		return nil, fmt.Errorf("apply template to %q: %w", t.Name, domain.ErrNotProvisioned)
	}

	tpl, err := s.templates.Resolve(ctx, in.TemplateName)
	if err != nil {
		return nil, fmt.Errorf("apply template %q to %q: %w", in.TemplateName, t.Name, err)
	}

	bucket := t.Storage.BucketName

	if in.ReplaceAll {
		existing, err := s.list(ctx, bucket, "")
		if err != nil {
			return nil, fmt.Errorf("apply template %q to %q: clear bucket: %w", in.TemplateName, t.Name, err)
		}
		for _, obj := range existing {
			err := s.withRetry(ctx, "delete_object", func(ctx context.Context) error {
				return s.gateway.Delete(ctx, bucket, obj.Key)
			})
			if err != nil {
				return nil, fmt.Errorf("apply template %q to %q: clear %q: %w", in.TemplateName, t.Name, obj.Key, err)
			}
		}
	}

	// Copy file by file. A mid-copy failure leaves already-written objects
	// in place; re-invoking overwrites them and retries the rest.
	written := 0
	for _, f := range tpl.Files {
		key, err := normalizeKey(f.Path)
		if err != nil {
			return nil, fmt.Errorf("apply template %q to %q: %w", in.TemplateName, t.Name, err)
		}
		err = s.withRetry(ctx, "put_object", func(ctx context.Context) error {
			return s.gateway.Put(ctx, bucket, key, f.Content, f.ContentType)
		})
		if err != nil {
			return nil, fmt.Errorf("apply template %q to %q: copy %q (%d/%d written): %w",
				in.TemplateName, t.Name, key, written, len(tpl.Files), err)
		}
		written++
	}

	s.log.Info().
		Str("tenant", t.Name).
		Str("template", tpl.Name).
		Int("files_written", written).
		Bool("replace_all", in.ReplaceAll).
		Msg("template applied")

	return &ports.ApplyTemplateResult{
		TemplateName: tpl.Name,
		FilesWritten: written,
		SiteURL:      t.Storage.SiteURL,
	}, nil
}

func (s *provisionService) PublishFile(ctx context.Context, t *domain.Tenant, in ports.PublishFileInput) (*domain.ObjectInfo, error) {
	if t.Storage == nil {
		return nil, fmt.Errorf("publish to %q: %w", t.Name, domain.ErrNotProvisioned)
	}

	key, err := normalizeKey(in.Key)
	if err != nil {
		return nil, fmt.Errorf("publish to %q: %w", t.Name, err)
	}

	err = s.withRetry(ctx, "put_object", func(ctx context.Context) error {
		return s.gateway.Put(ctx, t.Storage.BucketName, key, in.Content, in.ContentType)
	})
	if err != nil {
		return nil, fmt.Errorf("publish %q to %q: %w", key, t.Name, err)
	}

	s.log.Info().Str("tenant", t.Name).Str("key", key).Int("size", len(in.Content)).Msg("file published")

	return &domain.ObjectInfo{
		Key:          key,
		Size:         int64(len(in.Content)),
		ContentType:  in.ContentType,
		LastModified: time.Now().UTC(),
	}, nil
}

func (s *provisionService) GetStructure(ctx context.Context, t *domain.Tenant) ([]domain.ObjectInfo, error) {
	if t.Storage == nil {
		return nil, fmt.Errorf("list %q: %w", t.Name, domain.ErrNotProvisioned)
	}
	objects, err := s.list(ctx, t.Storage.BucketName, "")
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", t.Name, err)
	}
	return objects, nil
}

// list retrieves a fresh bucket listing, ordered by key regardless of what
// the gateway returns.
func (s *provisionService) list(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error) {
	var objects []domain.ObjectInfo
	err := s.withRetry(ctx, "list_objects", func(ctx context.Context) error {
		objs, err := s.gateway.List(ctx, bucket, prefix)
		if err != nil {
			return err
		}
		objects = objs
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// withRetry runs fn with a per-call timeout, retrying transient provider
// failures with exponential backoff up to maxAttempts. Terminal errors and
// context cancellation abort immediately.
func (s *provisionService) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	backoff := s.backoffBase

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if !domain.IsRetryable(err) {
			return err
		}
		if attempt == s.maxAttempts {
			break
		}

		s.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("backoff", backoff).Msg("transient storage failure, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

// normalizeKey validates an object key and returns its canonical form.
// Keys that attempt to traverse outside the tenant's namespace are rejected.
func normalizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", domain.ErrInvalidKey)
	}
	if strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: backslash in key %q", domain.ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: path traversal in key %q", domain.ErrInvalidKey, key)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: key %q resolves to nothing", domain.ErrInvalidKey, key)
	}
	return cleaned, nil
}
