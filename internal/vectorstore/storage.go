package vectorstore

import (
	"fmt"
	"sort"

	"nutrirag/internal/domain"
)

// Storage persists chunk vectors and supports nearest-neighbor search.
type Storage = domain.VectorStore

// SquaredL2 is the squared Euclidean distance between a and b, which must
// have equal length.
func SquaredL2(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// ValidateBatch checks that every chunk has an embedding and that all of them
// share one dimension. dim is the collection's fixed dimension, or 0 when the
// collection is still empty. It returns the batch dimension.
func ValidateBatch(chunks []domain.Chunk, dim int) (int, error) {
	for _, ch := range chunks {
		if ch.ID == "" {
			return 0, fmt.Errorf("vectorstore: chunk without id")
		}
		if len(ch.Embedding) == 0 {
			return 0, fmt.Errorf("vectorstore: chunk %s: %w", ch.ID, domain.ErrEmptyEmbedding)
		}
		if dim == 0 {
			dim = len(ch.Embedding)
		}
		if len(ch.Embedding) != dim {
			return 0, fmt.Errorf("vectorstore: chunk %s has %d dimensions, want %d: %w",
				ch.ID, len(ch.Embedding), dim, domain.ErrDimensionMismatch)
		}
	}
	return dim, nil
}

// Rank orders results by ascending distance, breaking ties by id, and keeps
// at most k of them.
func Rank(results []domain.SearchResult, k int) []domain.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}
