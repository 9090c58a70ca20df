package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrirag/internal/domain"
)

type fakeClient struct {
	calls [][]string
	err   error
}

func (f *fakeClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 0.5}
	}
	return out, nil
}

func TestNewMissingKey(t *testing.T) {
	t.Setenv("NUTRIRAG_GEMINI_TEST", "")
	_, err := New(context.Background(), Config{APIKeyEnv: "NUTRIRAG_GEMINI_TEST"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
}

func TestWrapEmbeds(t *testing.T) {
	client := &fakeClient{}
	e, err := Wrap(DefaultModel, time.Second, client)
	require.NoError(t, err)

	vecs, err := e.EmbedDocuments(context.Background(), []string{"oats", "rice"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{4, 0.5}, {4, 0.5}}, vecs)

	q, err := e.EmbedQuery(context.Background(), "lentils")
	require.NoError(t, err)
	assert.Equal(t, []float32{7, 0.5}, q)
	assert.Equal(t, "gemini", e.Name())
	assert.Equal(t, DefaultModel, e.Model())
}

func TestWrapUpstreamError(t *testing.T) {
	e, err := Wrap(DefaultModel, 0, &fakeClient{err: errors.New("quota exceeded")})
	require.NoError(t, err)

	_, err = e.EmbedQuery(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))

	_, err = e.EmbedDocuments(context.Background(), []string{"a"})
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
}

func TestWrapRequiresClient(t *testing.T) {
	_, err := Wrap(DefaultModel, 0, nil)
	assert.Error(t, err)
}
