package memory

import (
	"context"
	"fmt"
	"sync"

	"nutrirag/internal/domain"
	"nutrirag/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force squared L2 distance.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	order     []string
	chunks    map[string]domain.Chunk
}

func NewStorage() *Storage { return &Storage{chunks: make(map[string]domain.Chunk)} }

// Upsert stores chunks, replacing any with the same id. The batch is
// validated before anything is written.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dim, err := vectorstore.ValidateBatch(chunks, s.dimension)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	s.dimension = dim
	for _, ch := range chunks {
		if _, ok := s.chunks[ch.ID]; !ok {
			s.order = append(s.order, ch.ID)
		}
		ch.Embedding = append([]float32(nil), ch.Embedding...)
		s.chunks[ch.ID] = ch
	}
	return nil
}

func (s *Storage) Query(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.chunks) == 0 || k <= 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("memory: query has %d dimensions, want %d: %w", len(vector), s.dimension, domain.ErrDimensionMismatch)
	}
	results := make([]domain.SearchResult, 0, len(s.order))
	for _, id := range s.order {
		ch := s.chunks[id]
		results = append(results, domain.SearchResult{Chunk: ch, Distance: vectorstore.SquaredL2(ch.Embedding, vector)})
	}
	return vectorstore.Rank(results, k), nil
}

func (s *Storage) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *Storage) CountSource(_ context.Context, source string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ch := range s.chunks {
		if ch.Source == source {
			n++
		}
	}
	return n, nil
}
