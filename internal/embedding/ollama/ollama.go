package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nebusoku/ghostnet-daemon/internal/domain"
)

// Client is an embeddings client for an Ollama-compatible backend.
// Depending on deployment the backend answers a batch request with either
// {"embeddings": [[...], ...]} or, for a single input, {"embedding": [...]}.
// Both shapes are accepted; neither is treated as canonical.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Embed returns one vector per input text, order-preserving. One call, no
// retries; the caller batches where possible.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	body := struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}{Model: c.model, Input: texts}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.UnavailableError{Service: "embeddings", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UnavailableError{Service: "embeddings", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{Service: "embeddings", Status: resp.StatusCode, Body: string(payload)}
	}

	var out struct {
		Embeddings [][]float64 `json:"embeddings"`
		Embedding  []float64   `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding embeddings: %v", domain.ErrUnexpectedResponse, err)
	}
	if out.Embeddings != nil {
		if len(out.Embeddings) != len(texts) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", domain.ErrUnexpectedResponse, len(out.Embeddings), len(texts))
		}
		return out.Embeddings, nil
	}
	// Singular shape is only valid for a single-text request.
	if out.Embedding != nil && len(texts) == 1 {
		return [][]float64{out.Embedding}, nil
	}
	return nil, fmt.Errorf("%w: embeddings body carries neither field: %s", domain.ErrUnexpectedResponse, payload)
}
