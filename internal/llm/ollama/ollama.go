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

// Options are the generation options sent with every completion request.
// Defaults are tuned for small local models.
type Options struct {
	NumCtx        int     `json:"num_ctx" yaml:"num_ctx"`
	NumPredict    int     `json:"num_predict" yaml:"num_predict"`
	Temperature   float64 `json:"temperature" yaml:"temperature"`
	RepeatPenalty float64 `json:"repeat_penalty" yaml:"repeat_penalty"`
	NumThread     int     `json:"num_thread" yaml:"num_thread"`
}

// DefaultOptions returns the small-box generation defaults.
func DefaultOptions() Options {
	return Options{NumCtx: 512, NumPredict: 64, Temperature: 0.6, RepeatPenalty: 1.1, NumThread: 6}
}

// Client talks to an Ollama-compatible chat completion backend. The reply
// arrives either as {"message": {"content": ...}} or as {"response": ...};
// both shapes are accepted.
type Client struct {
	baseURL string
	model   string
	opts    Options
	client  *http.Client
}

type Config struct {
	BaseURL string
	Model   string
	Options Options
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2:1b"
	}
	if cfg.Options == (Options{}) {
		cfg.Options = DefaultOptions()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		// generation is the slowest call in the pipeline
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		opts:    cfg.Options,
		client:  &http.Client{Timeout: timeout},
	}
}

// Complete sends the assembled conversation and returns the reply text.
// A single attempt; no retries.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	body := struct {
		Model    string               `json:"model"`
		Messages []domain.ChatMessage `json:"messages"`
		Stream   bool                 `json:"stream"`
		Options  Options              `json:"options"`
	}{Model: c.model, Messages: messages, Stream: false, Options: c.opts}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &domain.UnavailableError{Service: "chat model", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.UnavailableError{Service: "chat model", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.UpstreamError{Service: "chat model", Status: resp.StatusCode, Body: string(payload)}
	}

	var out struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("%w: decoding chat reply: %v", domain.ErrUnexpectedResponse, err)
	}
	if out.Message != nil {
		return out.Message.Content, nil
	}
	if out.Response != nil {
		return *out.Response, nil
	}
	return "", fmt.Errorf("%w: chat reply carries neither field: %s", domain.ErrUnexpectedResponse, payload)
}
