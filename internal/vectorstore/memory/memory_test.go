package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrirag/internal/domain"
)

func chunk(id string, vec ...float32) domain.Chunk {
	return domain.Chunk{ID: id, Text: "text " + id, Source: "a.pdf", Embedding: vec}
}

func TestQueryEmptyStore(t *testing.T) {
	res, err := NewStorage().Query(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestQueryOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{
		chunk("far", 10, 10),
		chunk("near", 1, 0),
		chunk("mid", 2, 2),
	}))

	res, err := s.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "near", res[0].Chunk.ID)
	assert.Equal(t, "mid", res[1].Chunk.ID)
	assert.Equal(t, 0.0, res[0].Distance)
	assert.Equal(t, 5.0, res[1].Distance)

	res, err = s.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, res, 3)
}

func TestUpsertOverwritesByID(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk("doc_0", 1, 1), chunk("doc_1", 0, 1)}))
	updated := chunk("doc_0", 0, 0)
	updated.Text = "new"
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{updated}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := s.Query(ctx, []float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "new", res[0].Chunk.Text)
}

func TestUpsertRejectsInvalidBatch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk("a", 1, 2, 3)}))

	err := s.Upsert(ctx, []domain.Chunk{chunk("b", 1, 2, 3), chunk("c", 1, 2)})
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	err = s.Upsert(ctx, []domain.Chunk{chunk("d")})
	assert.True(t, errors.Is(err, domain.ErrEmptyEmbedding))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failed batches must not write anything")
}

func TestCountSource(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	other := chunk("b_0", 1)
	other.Source = "b.pdf"
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk("a_0", 1), chunk("a_1", 2), other}))

	n, err := s.CountSource(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
