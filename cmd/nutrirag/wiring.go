package main

import (
	"context"
	"fmt"
	"time"

	"nutrirag/internal/chunker"
	"nutrirag/internal/config"
	"nutrirag/internal/domain"
	"nutrirag/internal/embedding"
	"nutrirag/internal/embedding/gemini"
	"nutrirag/internal/embedding/hashing"
	"nutrirag/internal/embedding/openai"
	llmgemini "nutrirag/internal/llm/gemini"
	llmopenai "nutrirag/internal/llm/openai"
	"nutrirag/internal/meallog"
	"nutrirag/internal/vectorstore"
	"nutrirag/internal/vectorstore/qdrant"
	"nutrirag/internal/vectorstore/sqlite"
)

const queryCacheSize = 256

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func newEmbedder(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "gemini", "":
		return gemini.New(ctx, gemini.Config{APIKeyEnv: cfg.APIKeyEnv, Model: cfg.Model, Timeout: seconds(cfg.TimeoutSecs)})
	case "openai":
		return openai.NewClient(openai.Config{
			BaseURL:   cfg.BaseURL,
			APIKeyEnv: cfg.APIKeyEnv,
			Model:     cfg.Model,
			Timeout:   seconds(cfg.TimeoutSecs),
		})
	case "hashing":
		return hashing.NewEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// newQueryEmbedder adds an LRU over query embeddings for interactive use.
func newQueryEmbedder(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return embedding.NewCached(emb, queryCacheSize)
}

func newGenerator(ctx context.Context, cfg config.GeneratorConfig) (domain.Generator, error) {
	switch cfg.Type {
	case "gemini", "":
		return llmgemini.New(ctx, llmgemini.Config{APIKeyEnv: cfg.APIKeyEnv, Model: cfg.Model, Timeout: seconds(cfg.TimeoutSecs)})
	case "openai":
		return llmopenai.New(llmopenai.Config{
			BaseURL:   cfg.BaseURL,
			APIKeyEnv: cfg.APIKeyEnv,
			Model:     cfg.Model,
			Timeout:   seconds(cfg.TimeoutSecs),
		})
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}

func newVectorStore(ctx context.Context, cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "sqlite", "":
		return sqlite.Open(ctx, sqlite.Config{Dir: cfg.Path, Collection: cfg.Collection})
	case "memory":
		// Each command is its own process, so an in-memory index would be
		// gone before the next command could read it.
		return nil, fmt.Errorf("vector store %q does not persist between commands; use sqlite or qdrant", cfg.Type)
	case "qdrant":
		q := config.QdrantConfig{URL: "http://localhost:6333", TimeoutSecs: 15}
		if cfg.Qdrant != nil {
			q = *cfg.Qdrant
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: cfg.Collection,
			Timeout:    seconds(q.TimeoutSecs),
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func newChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	return chunker.NewCharacterChunker(cfg.Size, cfg.Overlap)
}

func openMealLog(ctx context.Context, cfg config.MealLogConfig) (*meallog.Store, error) {
	return meallog.Open(ctx, cfg.Path)
}
