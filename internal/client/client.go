package client

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

// Client is a typed client for the daemon's HTTP API, used by the chat
// front ends. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:8001"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 150 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Chat sends the conversation and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage, system string, rag bool) (string, error) {
	req := map[string]any{"messages": messages, "rag": rag}
	if system != "" {
		req["system"] = system
	}
	var resp struct {
		Content string `json:"content"`
	}
	if err := c.postJSON(ctx, "/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Ingest stores the texts and returns the number of chunks added.
func (c *Client) Ingest(ctx context.Context, texts []string, metadatas []map[string]any) (int, error) {
	req := map[string]any{"texts": texts}
	if len(metadatas) > 0 {
		req["metadatas"] = metadatas
	}
	var resp struct {
		Added int `json:"added"`
	}
	if err := c.postJSON(ctx, "/ingest", req, &resp); err != nil {
		return 0, err
	}
	return resp.Added, nil
}

// Search returns ranked hits for the query.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]domain.ScoredHit, error) {
	req := map[string]any{"query": query}
	if topK > 0 {
		req["top_k"] = topK
	}
	var resp struct {
		Results []domain.ScoredHit `json:"results"`
	}
	if err := c.postJSON(ctx, "/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Health reports whether the daemon is reachable and authenticated.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.UnavailableError{Service: "ghostnet daemon", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &domain.UpstreamError{Service: "ghostnet daemon", Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.UnavailableError{Service: "ghostnet daemon", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.UnavailableError{Service: "ghostnet daemon", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.UpstreamError{Service: "ghostnet daemon", Status: resp.StatusCode, Body: string(payload)}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decoding reply: %v", domain.ErrUnexpectedResponse, err)
	}
	return nil
}
