package session

import (
	"sync"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
)

// ChunkBuffer is the in-memory record of a session's annotated chunks,
// serving live progress and chunk reads without a store round trip.
// Finalization aggregates from the store, never from here.
type ChunkBuffer struct {
	mu     sync.Mutex
	chunks []annotate.AnnotatedChunk
}

func NewChunkBuffer() *ChunkBuffer {
	return &ChunkBuffer{}
}

// Append records one processed chunk.
func (b *ChunkBuffer) Append(chunk annotate.AnnotatedChunk) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, chunk)
}

// Snapshot returns a copy of all recorded chunks.
func (b *ChunkBuffer) Snapshot() []annotate.AnnotatedChunk {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]annotate.AnnotatedChunk, len(b.chunks))
	copy(out, b.chunks)
	return out
}

// Len returns the number of recorded chunks.
func (b *ChunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// Last returns the most recently recorded chunk.
func (b *ChunkBuffer) Last() (annotate.AnnotatedChunk, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.chunks) == 0 {
		return annotate.AnnotatedChunk{}, false
	}
	return b.chunks[len(b.chunks)-1], true
}
