// Package speakerid rewrites the transient, chunk-local speaker labels the
// diarization stage emits into session-scoped canonical identities.
package speakerid

import (
	"fmt"
	"sync"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
)

// Resolver owns one transient-label -> canonical-id map per session.
// Canonical ids are Speaker_<n>, n assigned in first-seen order from 1,
// never reassigned or reused. The mapping assumes diarization reproduces the
// same transient label for the same physical speaker across chunks; when it
// does not, the same person gets a second canonical id. That is a documented
// approximation of the diarization contract, not a resolver bug.
type Resolver struct {
	mu      sync.Mutex
	mapping map[string]string
	nextID  int
}

func NewResolver() *Resolver {
	return &Resolver{
		mapping: make(map[string]string),
		nextID:  1,
	}
}

// canonical returns the session-scoped id for a transient label, assigning
// the next id on first sight. Callers hold r.mu.
func (r *Resolver) canonical(label string) string {
	id, ok := r.mapping[label]
	if !ok {
		id = fmt.Sprintf("Speaker_%d", r.nextID)
		r.mapping[label] = id
		r.nextID++
	}
	return id
}

// Apply rewrites every speaker-label reference in the chunk (the speaker
// list, per-segment labels, the label->segments grouping, and the emotions
// map) so downstream consumers see only canonical ids. The rewrite happens
// before the chunk is persisted.
func (r *Resolver) Apply(chunk *annotate.AnnotatedChunk) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, label := range chunk.Speakers.Speakers {
		chunk.Speakers.Speakers[i] = r.canonical(label)
	}

	for i := range chunk.Speakers.SpeakerSegments {
		if label := chunk.Speakers.SpeakerSegments[i].Speaker; label != "" {
			chunk.Speakers.SpeakerSegments[i].Speaker = r.canonical(label)
		}
	}

	if len(chunk.Speakers.SpeakerMapping) > 0 {
		rewritten := make(map[string][]annotate.Segment, len(chunk.Speakers.SpeakerMapping))
		for label, segments := range chunk.Speakers.SpeakerMapping {
			id := r.canonical(label)
			for i := range segments {
				segments[i].Speaker = id
			}
			rewritten[id] = segments
		}
		chunk.Speakers.SpeakerMapping = rewritten
	}

	if len(chunk.Emotions) > 0 {
		rewritten := make(map[string]annotate.EmotionScore, len(chunk.Emotions))
		for label, score := range chunk.Emotions {
			rewritten[r.canonical(label)] = score
		}
		chunk.Emotions = rewritten
	}
}

// Known reports how many distinct transient labels the session has seen.
func (r *Resolver) Known() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mapping)
}
