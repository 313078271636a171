package storage

import (
	"log"
	"time"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
)

// NoopStore stands in when the database cannot be opened. Writes are logged
// and dropped so capture and broadcasting keep working; reads report not
// found.
type NoopStore struct{}

func NewNoopStore() *NoopStore {
	log.Printf("warning: persistence disabled, annotations will not be stored")
	return &NoopStore{}
}

func (n *NoopStore) Close() error { return nil }

func (n *NoopStore) CreateSession(id, name string, startedAt time.Time) error {
	log.Printf("warning: persistence disabled, dropping session %s", id)
	return nil
}

func (n *NoopStore) UpdateSessionStatus(id, status string) error { return nil }

func (n *NoopStore) EndSession(id, status string, endedAt time.Time, totalChunks int, totalDuration float64) error {
	return nil
}

func (n *NoopStore) GetSession(id string) (SessionRecord, error) {
	return SessionRecord{}, ErrNotFound
}

func (n *NoopStore) ListSessions() ([]SessionRecord, error) {
	return nil, nil
}

func (n *NoopStore) UpsertChunk(sessionID string, chunk annotate.AnnotatedChunk) error {
	log.Printf("warning: persistence disabled, dropping chunk %d for session %s", chunk.ChunkID, sessionID)
	return nil
}

func (n *NoopStore) ListChunks(sessionID string) ([]annotate.AnnotatedChunk, error) {
	return nil, nil
}

func (n *NoopStore) UpsertSummary(sessionID string, summary annotate.MeetingSummary) error {
	log.Printf("warning: persistence disabled, dropping summary for session %s", sessionID)
	return nil
}

func (n *NoopStore) GetSummary(sessionID string) (annotate.MeetingSummary, error) {
	return annotate.MeetingSummary{}, ErrNotFound
}
