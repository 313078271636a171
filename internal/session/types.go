package session

import (
	"context"
	"time"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/storage"
)

type Store interface {
	CreateSession(id, name string, startedAt time.Time) error
	UpdateSessionStatus(id, status string) error
	EndSession(id, status string, endedAt time.Time, totalChunks int, totalDuration float64) error
	GetSession(id string) (storage.SessionRecord, error)
	ListSessions() ([]storage.SessionRecord, error)
	UpsertChunk(sessionID string, chunk annotate.AnnotatedChunk) error
	ListChunks(sessionID string) ([]annotate.AnnotatedChunk, error)
	UpsertSummary(sessionID string, summary annotate.MeetingSummary) error
	GetSummary(sessionID string) (annotate.MeetingSummary, error)
}

type Annotator interface {
	Annotate(ctx context.Context, chunk annotate.AudioChunk) annotate.AnnotatedChunk
}

type Stitcher interface {
	Stitch(ctx context.Context, sessionID string, chunks []annotate.AnnotatedChunk) annotate.MeetingSummary
}

type EventBroadcaster interface {
	BroadcastSessionStarted(sessionID string)
	BroadcastChunkUpdate(sessionID string, chunk annotate.AnnotatedChunk)
	BroadcastSummaryUpdate(sessionID string, summary annotate.MeetingSummary)
	BroadcastStatusUpdate(sessionID, status string)
	BroadcastSessionEnded(sessionID string, totalChunks int, totalDuration float64)
}

type Recorder interface {
	StartSession(sessionID string) error
	WriteSamples(samples []int16) error
	EndSession() (string, error)
}

type Archiver interface {
	Archive(ctx context.Context, summary annotate.MeetingSummary) error
}

// Info is a point-in-time view of one session's progress.
type Info struct {
	ID              string     `json:"id"`
	Name            string     `json:"name,omitempty"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	ChunksProcessed int        `json:"chunks_processed"`
	ChunksFailed    int        `json:"chunks_failed"`
	TotalDuration   float64    `json:"total_duration"`

	// LatestChunkID is -1 until the first chunk lands.
	LatestChunkID int        `json:"latest_chunk_id"`
	LastUpdate    *time.Time `json:"last_update,omitempty"`
}
