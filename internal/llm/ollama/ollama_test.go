package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nebusoku/ghostnet-daemon/internal/domain"
)

func TestComplete_MessageShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model    string               `json:"model"`
			Messages []domain.ChatMessage `json:"messages"`
			Stream   bool                 `json:"stream"`
			Options  Options              `json:"options"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("stream must be false")
		}
		if req.Options.NumCtx != 512 {
			t.Errorf("num_ctx = %d, want default 512", req.Options.NumCtx)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "hi there"},
		})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Model: "test"})
	reply, err := c.Complete(context.Background(), []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if reply != "hi there" {
		t.Errorf("reply = %q", reply)
	}
}

func TestComplete_ResponseShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response": "flat reply"})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	reply, err := c.Complete(context.Background(), nil)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if reply != "flat reply" {
		t.Errorf("reply = %q", reply)
	}
}

func TestComplete_NeitherShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	_, err := c.Complete(context.Background(), nil)
	if !errors.Is(err, domain.ErrUnexpectedResponse) {
		t.Errorf("expected ErrUnexpectedResponse, got %v", err)
	}
}

func TestComplete_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Complete(context.Background(), nil)
	var ua *domain.UnavailableError
	if !errors.As(err, &ua) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if !ua.Timeout() {
		t.Error("error should report as a timeout")
	}
}

func TestComplete_UpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	_, err := c.Complete(context.Background(), nil)
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", ue.Status)
	}
}
