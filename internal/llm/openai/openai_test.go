package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrirag/internal/domain"
)

func TestGenerateSendsMultiContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type     string `json:"type"`
					Text     string `json:"text"`
					ImageURL *struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		assert.Equal(t, "image_url", req.Messages[0].Content[0].Type)
		assert.True(t, strings.HasPrefix(req.Messages[0].Content[0].ImageURL.URL, "data:image/jpeg;base64,"))
		assert.Equal(t, "describe", req.Messages[0].Content[1].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"NAME: Toast"},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("NUTRIRAG_OPENAI_GEN_TEST", "k")

	g, err := New(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "NUTRIRAG_OPENAI_GEN_TEST", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	out, err := g.Generate(context.Background(),
		domain.ImagePart("image/jpeg", []byte{0xff, 0xd8, 0xff}),
		domain.TextPart("describe"),
	)
	require.NoError(t, err)
	assert.Equal(t, "NAME: Toast", out)
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"down"}}`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("NUTRIRAG_OPENAI_GEN_TEST", "k")

	g, err := New(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "NUTRIRAG_OPENAI_GEN_TEST"})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), domain.TextPart("q"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
}

func TestNewMissingKey(t *testing.T) {
	t.Setenv("NUTRIRAG_OPENAI_GEN_TEST", "")
	_, err := New(Config{APIKeyEnv: "NUTRIRAG_OPENAI_GEN_TEST"})
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
}
