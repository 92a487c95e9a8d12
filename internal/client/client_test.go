package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nebusoku/ghostnet-daemon/internal/domain"
)

func TestClient_ChatRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing auth header: %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Messages []domain.ChatMessage `json:"messages"`
			RAG      bool                 `json:"rag"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 1 || !req.RAG {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]string{"content": "pong"})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "k"})
	reply, err := c.Chat(context.Background(), []domain.ChatMessage{{Role: domain.RoleUser, Content: "ping"}}, "", true)
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if reply != "pong" {
		t.Errorf("reply = %q", reply)
	}
}

func TestClient_IngestAndSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ingest":
			json.NewEncoder(w).Encode(map[string]int{"added": 2})
		case "/search":
			json.NewEncoder(w).Encode(map[string]any{
				"results": []domain.ScoredHit{{Text: "hit", Score: 0.8}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "k"})
	added, err := c.Ingest(context.Background(), []string{"a", "b"}, nil)
	if err != nil || added != 2 {
		t.Errorf("ingest: added=%d err=%v", added, err)
	}
	hits, err := c.Search(context.Background(), "q", 5)
	if err != nil || len(hits) != 1 || hits[0].Text != "hit" {
		t.Errorf("search: hits=%+v err=%v", hits, err)
	}
}

func TestClient_AuthFailureSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid API key"}`, http.StatusForbidden)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "wrong"})
	_, err := c.Chat(context.Background(), nil, "", true)
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusForbidden {
		t.Errorf("expected 403 UpstreamError, got %v", err)
	}
}

func TestClient_ConnectFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "k"})
	err := c.Health(context.Background())
	var ua *domain.UnavailableError
	if !errors.As(err, &ua) {
		t.Errorf("expected UnavailableError, got %v", err)
	}
}
