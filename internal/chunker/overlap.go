package chunker

import (
	"fmt"

	"github.com/nebusoku/ghostnet-daemon/internal/domain"
)

// OverlapChunker splits text into fixed-size windows where consecutive
// windows share the configured number of trailing/leading bytes.
type OverlapChunker struct {
	size    int
	overlap int
}

func NewOverlapChunker(size, overlap int) *OverlapChunker {
	return &OverlapChunker{size: size, overlap: overlap}
}

// Chunk emits windows of at most c.size bytes starting at offset 0 and
// advancing by size-overlap each step. The final window may be shorter.
// It is a pure function of its inputs: rerunning yields identical chunks.
func (c *OverlapChunker) Chunk(text string) ([]domain.Chunk, error) {
	if c.size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfig, c.size)
	}
	if c.overlap < 0 || c.overlap >= c.size {
		// overlap >= size would make the step non-positive and loop forever
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", domain.ErrConfig, c.overlap, c.size)
	}
	var chunks []domain.Chunk
	start := 0
	for start < len(text) {
		end := start + c.size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, domain.Chunk{Text: text[start:end], Start: start})
		if end == len(text) {
			break
		}
		start = end - c.overlap
	}
	return chunks, nil
}
