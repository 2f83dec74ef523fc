// Package storage provides object-storage gateway implementations.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

type object struct {
	content      []byte
	contentType  string
	lastModified time.Time
}

// MemoryGateway is a process-local object store. It backs development and
// test environments where no real provider is configured, and serves sites
// at a synthetic URL scheme.
type MemoryGateway struct {
	mu      sync.RWMutex
	buckets map[string]map[string]object
	baseURL string
}

var _ ports.StorageGateway = (*MemoryGateway)(nil)

// NewMemoryGateway creates an empty MemoryGateway. baseURL is the prefix
// used to derive site URLs; it defaults to "http://localhost:8080/sites".
func NewMemoryGateway(baseURL string) *MemoryGateway {
	if baseURL == "" {
		baseURL = "http://localhost:8080/sites"
	}
	return &MemoryGateway{
		buckets: make(map[string]map[string]object),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (g *MemoryGateway) Provider() string { return "memory" }

func (g *MemoryGateway) CreateBucket(_ context.Context, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.buckets[name]; ok {
		return "", fmt.Errorf("create bucket %q: %w", name, domain.ErrStorageConflict)
	}
	g.buckets[name] = make(map[string]object)
	return g.baseURL + "/" + name, nil
}

func (g *MemoryGateway) DeleteBucket(_ context.Context, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.buckets, name)
	return nil
}

func (g *MemoryGateway) Put(_ context.Context, bucket, key string, content []byte, contentType string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	objs, ok := g.buckets[bucket]
	if !ok {
		return &domain.ProviderError{
			Op:       "put",
			Provider: "memory",
			Err:      fmt.Errorf("bucket %q not found", bucket),
		}
	}
	buf := make([]byte, len(content))
	copy(buf, content)
	objs[key] = object{content: buf, contentType: contentType, lastModified: time.Now().UTC()}
	return nil
}

func (g *MemoryGateway) Delete(_ context.Context, bucket, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if objs, ok := g.buckets[bucket]; ok {
		delete(objs, key)
	}
	return nil
}

func (g *MemoryGateway) List(_ context.Context, bucket, prefix string) ([]domain.ObjectInfo, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	objs, ok := g.buckets[bucket]
	if !ok {
		return nil, nil
	}

	out := make([]domain.ObjectInfo, 0, len(objs))
	for key, obj := range objs {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, domain.ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.content)),
			ContentType:  obj.contentType,
			LastModified: obj.lastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
