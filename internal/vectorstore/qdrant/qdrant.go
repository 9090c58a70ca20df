package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"nutrirag/internal/domain"
	"nutrirag/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// The collection uses Euclid distance and is created on first upsert.
type Storage struct {
	collection string
	client     *resty.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.Collection == "" {
		cfg.Collection = domain.CollectionName
	}
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("api-key", cfg.APIKey)
	}
	return &Storage{collection: cfg.Collection, client: client}
}

// PointID maps a chunk id onto the UUID Qdrant requires. The mapping is
// stable so re-ingesting a chunk overwrites its point.
func (s *Storage) PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(s.collection+"/"+chunkID)).String()
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// dimension returns the collection's vector size, or 0 when it does not exist.
func (s *Storage) dimension(ctx context.Context) (int, error) {
	var info collectionInfo
	resp, err := s.client.R().SetContext(ctx).SetResult(&info).
		Get("/collections/" + s.collection)
	if err != nil {
		return 0, fmt.Errorf("qdrant: get collection: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return 0, nil
	}
	if resp.IsError() {
		return 0, fmt.Errorf("qdrant: get collection failed: %s", resp.Status())
	}
	return info.Result.Config.Params.Vectors.Size, nil
}

func (s *Storage) createCollection(ctx context.Context, dim int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Euclid",
		},
	}
	resp, err := s.client.R().SetContext(ctx).SetBody(body).
		Put("/collections/" + s.collection)
	if err != nil {
		return fmt.Errorf("qdrant: create collection: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("qdrant: create collection failed: %s", resp.Status())
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	dim, err := s.dimension(ctx)
	if err != nil {
		return err
	}
	batchDim, err := vectorstore.ValidateBatch(chunks, dim)
	if err != nil {
		return err
	}
	if dim == 0 {
		if err := s.createCollection(ctx, batchDim); err != nil {
			return err
		}
	}
	points := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		points[i] = map[string]any{
			"id":     s.PointID(ch.ID),
			"vector": ch.Embedding,
			"payload": map[string]any{
				"chunk_id": ch.ID,
				"text":     ch.Text,
				"source":   ch.Source,
				"page":     ch.Page,
				"model":    ch.Model,
			},
		}
	}
	resp, err := s.client.R().SetContext(ctx).
		SetBody(map[string]any{"points": points}).
		SetQueryParam("wait", "true").
		Put("/collections/" + s.collection + "/points")
	if err != nil {
		return fmt.Errorf("qdrant: upsert: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("qdrant: upsert failed: %s", resp.Status())
	}
	return nil
}

type searchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload struct {
			ChunkID string `json:"chunk_id"`
			Text    string `json:"text"`
			Source  string `json:"source"`
			Page    int    `json:"page"`
			Model   string `json:"model"`
		} `json:"payload"`
	} `json:"result"`
}

// Query searches the collection. Qdrant reports Euclid scores as plain
// distances; they are squared here.
func (s *Storage) Query(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return []domain.SearchResult{}, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var out searchResponse
	resp, err := s.client.R().SetContext(ctx).SetBody(req).SetResult(&out).
		Post("/collections/" + s.collection + "/points/search")
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return []domain.SearchResult{}, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("qdrant: search failed: %s", resp.Status())
	}
	results := make([]domain.SearchResult, 0, len(out.Result))
	for _, r := range out.Result {
		p := r.Payload
		results = append(results, domain.SearchResult{
			Chunk:    domain.Chunk{ID: p.ChunkID, Text: p.Text, Source: p.Source, Page: p.Page, Model: p.Model},
			Distance: r.Score * r.Score,
		})
	}
	return vectorstore.Rank(results, k), nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	return s.count(ctx, nil)
}

func (s *Storage) CountSource(ctx context.Context, source string) (int, error) {
	return s.count(ctx, map[string]any{
		"must": []map[string]any{{"key": "source", "match": map[string]any{"value": source}}},
	})
}

func (s *Storage) count(ctx context.Context, filter map[string]any) (int, error) {
	body := map[string]any{"exact": true}
	if filter != nil {
		body["filter"] = filter
	}
	var out struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	resp, err := s.client.R().SetContext(ctx).SetBody(body).SetResult(&out).
		Post("/collections/" + s.collection + "/points/count")
	if err != nil {
		return 0, fmt.Errorf("qdrant: count: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return 0, nil
	}
	if resp.IsError() {
		return 0, fmt.Errorf("qdrant: count failed: %s", resp.Status())
	}
	return out.Result.Count, nil
}
