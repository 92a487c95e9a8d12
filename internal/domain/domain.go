package domain

import "context"

// Roles used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chunk is a contiguous window of a source text plus its start offset.
type Chunk struct {
	Text  string
	Start int
}

// Document is the stored unit: an embedding plus the text it was computed
// from and any caller-supplied metadata. Identity is minted by the store.
type Document struct {
	Vector   []float64
	Text     string
	Metadata map[string]any
}

// ScoredHit is a search result: stored text with its cosine similarity.
type ScoredHit struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Chunker splits free text into overlapping windows.
type Chunker interface {
	Chunk(text string) ([]Chunk, error)
}

// Embedder converts texts into dense vectors, one per input, order-preserving.
// One invocation is one network call; callers batch where possible.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorStore persists embedded documents and supports cosine similarity
// search. Implementations must be safe for concurrent use.
type VectorStore interface {
	// EnsureCollection creates the backing collection with the given
	// dimensionality if it does not exist yet.
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, docs []Document) error
	Search(ctx context.Context, vector []float64, topK int) ([]ScoredHit, error)
}

// Completer sends an assembled conversation to the language model backend
// and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}
