package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nebusoku/ghostnet-daemon/internal/domain"
	"github.com/nebusoku/ghostnet-daemon/internal/prompt"
)

// maxContextHits caps how many ranked hits enter the model context no matter
// what top_k the caller asked for, to keep prompts from bloating.
const maxContextHits = 3

// truncationMarker is appended when the concatenated context is cut at the
// character budget.
const truncationMarker = "…"

// RAGService wires the retrieval pipeline: chunk, embed, upsert, search,
// assemble, complete. It holds no cross-request state; every method is safe
// for concurrent use as long as its dependencies are.
type RAGService struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	store    domain.VectorStore
	llm      domain.Completer
	log      zerolog.Logger

	topK            int
	minScore        float64
	maxContextChars int
}

type Config struct {
	TopK            int
	MinScore        float64
	MaxContextChars int
}

func NewRAGService(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, llm domain.Completer, cfg Config, log zerolog.Logger) *RAGService {
	if cfg.TopK <= 0 {
		cfg.TopK = 2
	}
	if cfg.MinScore == 0 {
		cfg.MinScore = 0.75
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 800
	}
	return &RAGService{
		chunker:         chunker,
		embedder:        embedder,
		store:           store,
		llm:             llm,
		log:             log,
		topK:            cfg.TopK,
		minScore:        cfg.MinScore,
		maxContextChars: cfg.MaxContextChars,
	}
}

// Ingest chunks each text, embeds all chunks in one batch call and writes
// them to the store, creating the collection on first use with the
// dimensionality of the first vector. Returns the number of stored chunks.
// Upstream failures surface to the caller unmodified.
func (s *RAGService) Ingest(ctx context.Context, texts []string, metas []map[string]any) (int, error) {
	var chunkTexts []string
	var chunkMetas []map[string]any
	for i, text := range texts {
		chunks, err := s.chunker.Chunk(text)
		if err != nil {
			return 0, err
		}
		for j, ch := range chunks {
			meta := map[string]any{"source": i, "chunk": j}
			if i < len(metas) {
				for k, v := range metas[i] {
					meta[k] = v
				}
			}
			chunkTexts = append(chunkTexts, ch.Text)
			chunkMetas = append(chunkMetas, meta)
		}
	}
	if len(chunkTexts) == 0 {
		return 0, nil
	}

	vecs, err := s.embedder.Embed(ctx, chunkTexts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(chunkTexts), err)
	}
	if err := s.store.EnsureCollection(ctx, len(vecs[0])); err != nil {
		return 0, err
	}

	docs := make([]domain.Document, len(vecs))
	for i := range vecs {
		docs[i] = domain.Document{Vector: vecs[i], Text: chunkTexts[i], Metadata: chunkMetas[i]}
	}
	if err := s.store.Upsert(ctx, docs); err != nil {
		return 0, err
	}
	s.log.Info().Int("texts", len(texts)).Int("chunks", len(docs)).Msg("ingested documents")
	return len(docs), nil
}

// Search embeds the query and returns the store's ranked hits. Errors
// surface to the caller: an explicit search must not silently degrade.
func (s *RAGService) Search(ctx context.Context, query string, topK int) ([]domain.ScoredHit, error) {
	if topK <= 0 {
		topK = s.topK
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return s.store.Search(ctx, vecs[0], topK)
}

// Chat assembles the guardrailed prompt and asks the model for a reply.
// The retrieval step degrades to an empty context on any failure; a
// completion timeout or connection failure becomes a visible placeholder
// reply. Everything else propagates.
func (s *RAGService) Chat(ctx context.Context, history []domain.ChatMessage, system string, retrieval bool) (string, error) {
	var ragContext string
	if retrieval {
		ragContext = s.retrieve(ctx, prompt.LastUserMessage(history))
	}
	msgs := prompt.Assemble(history, system, retrieval, ragContext)

	reply, err := s.llm.Complete(ctx, msgs)
	if err != nil {
		var ua *domain.UnavailableError
		if errors.As(err, &ua) {
			s.log.Warn().Err(err).Msg("chat model unreachable, degrading to placeholder reply")
			return fmt.Sprintf("(timeout talking to local model: %v)", err), nil
		}
		return "", err
	}
	return reply, nil
}

// retrieve builds the context block for one chat turn: ranked hits filtered
// by the score threshold, capped, concatenated and cut at the character
// budget. Retrieval is an enhancement, not a correctness requirement, so any
// failure yields an empty context instead of an error.
func (s *RAGService) retrieve(ctx context.Context, query string) string {
	hits, err := s.Search(ctx, query, s.topK)
	if err != nil {
		s.log.Warn().Err(err).Msg("retrieval failed, continuing without context")
		return ""
	}
	var strong []string
	for _, h := range hits {
		if h.Score >= s.minScore {
			strong = append(strong, h.Text)
		}
		if len(strong) == maxContextHits {
			break
		}
	}
	if len(strong) == 0 {
		return ""
	}
	return trim(strings.Join(strong, "\n\n"), s.maxContextChars)
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + truncationMarker
}
