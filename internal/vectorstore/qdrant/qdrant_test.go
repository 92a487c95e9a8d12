package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nebusoku/ghostnet-daemon/internal/domain"
)

// fakeQdrant is a minimal in-memory stand-in for the Qdrant REST surface the
// store uses: collection get/create, point upsert, vector search.
type fakeQdrant struct {
	dim     int
	created bool
	points  []fakePoint
}

type fakePoint struct {
	ID      string         `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (f *fakeQdrant) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/docs", func(w http.ResponseWriter, r *http.Request) {
		if !f.created {
			http.Error(w, `{"status":{"error":"not found"}}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"config": map[string]any{
					"params": map[string]any{
						"vectors": map[string]any{"size": f.dim, "distance": "Cosine"},
					},
				},
			},
		})
	})
	mux.HandleFunc("PUT /collections/docs", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Vectors.Distance != "Cosine" {
			t.Errorf("distance = %q, want Cosine", body.Vectors.Distance)
		}
		f.dim = body.Vectors.Size
		f.created = true
		json.NewEncoder(w).Encode(map[string]any{"result": true})
	})
	mux.HandleFunc("PUT /collections/docs/points", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Points []fakePoint `json:"points"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.points = append(f.points, body.Points...)
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"status": "completed"}})
	})
	mux.HandleFunc("POST /collections/docs/points/search", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Vector []float64 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		results := make([]map[string]any, 0, len(f.points))
		for i, p := range f.points {
			if len(results) >= body.Limit {
				break
			}
			results = append(results, map[string]any{
				"score":   1.0 - float64(i)*0.1,
				"payload": p.Payload,
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"result": results})
	})
	return mux
}

func newTestStore(t *testing.T, f *fakeQdrant) *Store {
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)
	return NewStore(Config{URL: server.URL, Collection: "docs"})
}

func TestEnsureCollection_CreatesWhenMissing(t *testing.T) {
	f := &fakeQdrant{}
	s := newTestStore(t, f)

	if err := s.EnsureCollection(context.Background(), 3); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if !f.created || f.dim != 3 {
		t.Errorf("collection not created with dim 3: %+v", f)
	}
}

func TestEnsureCollection_IdempotentOnMatch(t *testing.T) {
	f := &fakeQdrant{created: true, dim: 3}
	s := newTestStore(t, f)

	if err := s.EnsureCollection(context.Background(), 3); err != nil {
		t.Fatalf("ensure on existing collection failed: %v", err)
	}
}

func TestEnsureCollection_DimensionMismatch(t *testing.T) {
	f := &fakeQdrant{created: true, dim: 768}
	s := newTestStore(t, f)

	if err := s.EnsureCollection(context.Background(), 384); err == nil {
		t.Error("expected error on dimension mismatch")
	}
}

func TestUpsert_MintsFreshIDs(t *testing.T) {
	f := &fakeQdrant{created: true, dim: 2}
	s := newTestStore(t, f)

	docs := []domain.Document{
		{Vector: []float64{1, 0}, Text: "alpha", Metadata: map[string]any{"source": "a"}},
		{Vector: []float64{0, 1}, Text: "alpha"}, // duplicate text is stored again
	}
	if err := s.Upsert(context.Background(), docs); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if len(f.points) != 2 {
		t.Fatalf("stored %d points, want 2", len(f.points))
	}
	if f.points[0].ID == "" || f.points[0].ID == f.points[1].ID {
		t.Error("points must get fresh distinct ids")
	}
	if f.points[0].Payload["text"] != "alpha" || f.points[0].Payload["source"] != "a" {
		t.Errorf("payload missing text or metadata: %v", f.points[0].Payload)
	}
}

func TestSearch_ReturnsRankedHits(t *testing.T) {
	f := &fakeQdrant{created: true, dim: 2, points: []fakePoint{
		{ID: "1", Payload: map[string]any{"text": "first"}},
		{ID: "2", Payload: map[string]any{"text": "second"}},
		{ID: "3", Payload: map[string]any{"text": "third"}},
	}}
	s := newTestStore(t, f)

	hits, err := s.Search(context.Background(), []float64{1, 0}, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Text != "first" || hits[0].Score <= hits[1].Score {
		t.Errorf("hits not ranked: %+v", hits)
	}
}

func TestSearch_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad collection", http.StatusBadRequest)
	}))
	defer server.Close()
	s := NewStore(Config{URL: server.URL, Collection: "docs"})

	_, err := s.Search(context.Background(), []float64{1}, 5)
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestStore_ConnectFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	s := NewStore(Config{URL: server.URL, Collection: "docs"})

	err := s.EnsureCollection(context.Background(), 3)
	var ua *domain.UnavailableError
	if !errors.As(err, &ua) {
		t.Errorf("expected UnavailableError, got %v", err)
	}
}
