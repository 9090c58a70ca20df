package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	s := 0.0
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	s := 0.0
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestEmbedFixedDimensionAndNormalized(t *testing.T) {
	e := NewEmbedder(64)
	vecs, err := e.EmbedDocuments(context.Background(), []string{
		"Protein synthesis peaks after resistance training.",
		"Dietary fiber slows glucose absorption.",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	for _, v := range vecs {
		assert.Len(t, v, 64)
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	}
	assert.Equal(t, "hashing-64", e.Model())
}

func TestEmbedQueryMatchesDocumentSpace(t *testing.T) {
	e := NewEmbedder(256)
	ctx := context.Background()
	docs, err := e.EmbedDocuments(ctx, []string{"whey protein leucine muscle", "olive oil monounsaturated fat"})
	require.NoError(t, err)

	q, err := e.EmbedQuery(ctx, "how much leucine is in whey protein")
	require.NoError(t, err)
	assert.Greater(t, dot(q, docs[0]), dot(q, docs[1]))

	same, err := e.EmbedQuery(ctx, "whey protein leucine muscle")
	require.NoError(t, err)
	assert.Equal(t, docs[0], same)
}

func TestEmbedRejectsTokenlessText(t *testing.T) {
	e := NewEmbedder(0)
	assert.Equal(t, DefaultDimension, e.Dimension())
	_, err := e.EmbedQuery(context.Background(), "the and of !!!")
	assert.Error(t, err)
}

func TestEmbedHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbedder(8).EmbedDocuments(ctx, []string{"oats"})
	assert.ErrorIs(t, err, context.Canceled)
}
