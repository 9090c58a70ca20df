// Package gemini provides Google Gemini text embeddings through langchaingo.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"

	"nutrirag/internal/config"
	"nutrirag/internal/domain"
)

const DefaultModel = "text-embedding-004"

// Config configures the Gemini embedder.
type Config struct {
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// Embedder embeds text with a Gemini embedding model.
type Embedder struct {
	model   string
	timeout time.Duration
	impl    embeddings.Embedder
}

// New builds a Gemini embedder. A missing API key is reported before any
// client is created.
func New(ctx context.Context, cfg Config) (*Embedder, error) {
	key, err := config.APIKey(cfg.APIKeyEnv)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(key),
		googleai.WithDefaultEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: init client: %w", err)
	}
	return Wrap(cfg.Model, cfg.Timeout, client)
}

// Wrap builds an Embedder around any langchaingo embedding client.
func Wrap(model string, timeout time.Duration, client embeddings.EmbedderClient) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("gemini embedder: client is required")
	}
	impl, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w", err)
	}
	return &Embedder{model: model, timeout: timeout, impl: impl}, nil
}

func (e *Embedder) Name() string  { return "gemini" }
func (e *Embedder) Model() string { return e.model }

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	vecs, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed documents: %w", domain.ErrUpstreamUnavailable, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: gemini returned %d vectors for %d inputs",
			domain.ErrUpstreamUnavailable, len(vecs), len(texts))
	}
	return vecs, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	v, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed query: %w", domain.ErrUpstreamUnavailable, err)
	}
	return v, nil
}

func (e *Embedder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}
