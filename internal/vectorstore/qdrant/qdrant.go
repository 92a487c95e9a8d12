package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nebusoku/ghostnet-daemon/internal/domain"
)

// Store is a minimal REST client to Qdrant using cosine distance.
// The collection is created lazily on first upsert; every stored point gets
// a fresh UUID so callers never supply identities.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.Collection == "" {
		cfg.Collection = "ghostnet_docs"
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection with the given dimensionality if it
// is missing. An existing collection is checked against dim: reusing a
// collection of a different size would silently corrupt search results.
func (s *Store) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: invalid vector dimension %d", domain.ErrConfig, dim)
	}
	var info struct {
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
	err := s.getJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), &info)
	if err == nil {
		if got := info.Result.Config.Params.Vectors.Size; got != 0 && got != dim {
			return fmt.Errorf("collection %q holds %d-dimensional vectors, embedder produces %d", s.collection, got, dim)
		}
		return nil
	}
	if !isNotFound(err) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

// Upsert writes the documents as new points. Each point gets a fresh UUID;
// duplicate text is stored again, never deduplicated. A partial write is not
// rolled back.
func (s *Store) Upsert(ctx context.Context, docs []domain.Document) error {
	points := make([]map[string]any, len(docs))
	for i, d := range docs {
		payload := make(map[string]any, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			payload[k] = v
		}
		payload["text"] = d.Text
		points[i] = map[string]any{
			"id":      uuid.NewString(),
			"vector":  d.Vector,
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

// Search returns up to topK hits ordered by descending cosine similarity.
func (s *Store) Search(ctx context.Context, vector []float64, topK int) ([]domain.ScoredHit, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.ScoredHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		text, _ := r.Payload["text"].(string)
		hits = append(hits, domain.ScoredHit{Text: text, Score: r.Score})
	}
	return hits, nil
}

func isNotFound(err error) bool {
	var ue *domain.UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusNotFound
}

func (s *Store) getJSON(ctx context.Context, url string, out any) error {
	return s.doJSON(ctx, http.MethodGet, url, nil, out)
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	return s.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *Store) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("creating qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.UnavailableError{Service: "qdrant", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return &domain.UpstreamError{Service: "qdrant", Status: resp.StatusCode, Body: string(payload)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decoding qdrant reply: %v", domain.ErrUnexpectedResponse, err)
		}
	}
	return nil
}
