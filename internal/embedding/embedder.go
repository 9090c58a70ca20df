package embedding

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"nutrirag/internal/domain"
)

// Embedder converts free text into a numeric vector representation.
// Ingestion and retrieval must use the same model so the spaces match.
type Embedder = domain.Embedder

// Cached wraps an Embedder with an LRU cache for query embeddings.
// Document embeddings always go to the provider.
type Cached struct {
	inner Embedder
	mu    sync.Mutex
	cache *lru.Cache[string, []float32]
}

// NewCached returns a caching wrapper holding up to size query vectors.
func NewCached(inner Embedder, size int) (*Cached, error) {
	if size <= 0 {
		return nil, fmt.Errorf("embedder %q: cache size must be greater than zero", inner.Name())
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedder %q: init cache: %w", inner.Name(), err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Name() string  { return c.inner.Name() }
func (c *Cached) Model() string { return c.inner.Model() }

func (c *Cached) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedDocuments(ctx, texts)
}

func (c *Cached) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	v, ok := c.cache.Get(text)
	c.mu.Unlock()
	if ok {
		return clone(v), nil
	}
	v, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache.Add(text, clone(v))
	c.mu.Unlock()
	return v, nil
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
