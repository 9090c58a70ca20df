package vectorstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrirag/internal/domain"
)

func TestSquaredL2(t *testing.T) {
	assert.Equal(t, 0.0, SquaredL2([]float32{1, 2}, []float32{1, 2}))
	assert.Equal(t, 25.0, SquaredL2([]float32{0, 0}, []float32{3, 4}))
}

func TestValidateBatch(t *testing.T) {
	dim, err := ValidateBatch([]domain.Chunk{{ID: "a", Embedding: []float32{1, 2}}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, dim)

	_, err = ValidateBatch([]domain.Chunk{{ID: "a", Embedding: []float32{1, 2}}}, 3)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	_, err = ValidateBatch([]domain.Chunk{{ID: "a"}}, 0)
	assert.True(t, errors.Is(err, domain.ErrEmptyEmbedding))
}

func TestRank(t *testing.T) {
	in := []domain.SearchResult{
		{Chunk: domain.Chunk{ID: "c"}, Distance: 3},
		{Chunk: domain.Chunk{ID: "b"}, Distance: 1},
		{Chunk: domain.Chunk{ID: "a"}, Distance: 1},
	}
	out := Rank(in, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Chunk.ID)
	assert.Equal(t, "b", out[1].Chunk.ID)
}
