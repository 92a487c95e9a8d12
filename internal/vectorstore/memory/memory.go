package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/nebusoku/ghostnet-daemon/internal/domain"
)

// Store is an in-memory vector store using brute-force cosine similarity.
// It exists for development and tests; it honors the same contract as the
// Qdrant adapter, including the dimension check on an existing collection.
type Store struct {
	mu   sync.RWMutex
	dim  int
	docs []domain.Document
}

func NewStore() *Store { return &Store{} }

func (s *Store) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: invalid vector dimension %d", domain.ErrConfig, dim)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim != 0 && s.dim != dim {
		return fmt.Errorf("store holds %d-dimensional vectors, embedder produces %d", s.dim, dim)
	}
	s.dim = dim
	return nil
}

func (s *Store) Upsert(ctx context.Context, docs []domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		if len(d.Vector) != s.dim {
			return fmt.Errorf("vector dimension %d does not match collection %d", len(d.Vector), s.dim)
		}
	}
	s.docs = append(s.docs, docs...)
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float64, topK int) ([]domain.ScoredHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	hits := make([]domain.ScoredHit, 0, len(s.docs))
	for _, d := range s.docs {
		hits = append(hits, domain.ScoredHit{Text: d.Text, Score: cosine(vector, d.Vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
