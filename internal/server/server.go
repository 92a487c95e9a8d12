package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nebusoku/ghostnet-daemon/internal/domain"
)

// RAGService is the server-facing subset of the RAG service.
type RAGService interface {
	Ingest(ctx context.Context, texts []string, metas []map[string]any) (int, error)
	Search(ctx context.Context, query string, topK int) ([]domain.ScoredHit, error)
	Chat(ctx context.Context, history []domain.ChatMessage, system string, retrieval bool) (string, error)
}

// Server exposes the inbound HTTP surface: health, chat, ingest, search.
// All routes require a bearer token.
type Server struct {
	svc    RAGService
	apiKey string
	addr   string
	log    zerolog.Logger
}

func New(svc RAGService, addr, apiKey string, log zerolog.Logger) *Server {
	return &Server{svc: svc, addr: addr, apiKey: apiKey, log: log}
}

// Handler builds the routed, authenticated handler. Exposed separately from
// Start so tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("POST /search", s.handleSearch)
	return corsMiddleware(s.loggingMiddleware(s.authMiddleware(mux)))
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second, // chat turns wait on generation
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.addr).Msg("ghostnet daemon listening")
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type chatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
	System   string               `json:"system"`
	RAG      *bool                `json:"rag"` // defaults to true when omitted
}

type chatResponse struct {
	Content string `json:"content"`
}

type ingestRequest struct {
	Texts     []string         `json:"texts"`
	Metadatas []map[string]any `json:"metadatas"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	retrieval := req.RAG == nil || *req.RAG

	content, err := s.svc.Chat(r.Context(), req.Messages, req.System, retrieval)
	if err != nil {
		// retrieval failures and model timeouts were already absorbed;
		// whatever reaches here is a real request failure
		s.log.Error().Err(err).Msg("chat request failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Content: content})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "texts must not be empty")
		return
	}

	added, err := s.svc.Ingest(r.Context(), req.Texts, req.Metadatas)
	if err != nil {
		s.log.Error().Err(err).Msg("ingest failed")
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	hits, err := s.svc.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.log.Error().Err(err).Msg("search failed")
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	if hits == nil {
		hits = []domain.ScoredHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

// upstreamStatus maps pipeline errors onto response codes: caller mistakes
// are 400, everything upstream is a gateway failure.
func upstreamStatus(err error) int {
	if errors.Is(err, domain.ErrConfig) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if strings.TrimPrefix(auth, "Bearer ") != s.apiKey {
			writeError(w, http.StatusForbidden, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
