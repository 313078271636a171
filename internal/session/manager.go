// Package session manages the lifecycle of live meeting sessions: capture,
// per-chunk annotation, and finalization into a meeting summary.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/audio"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/metrics"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/speakerid"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/storage"
)

// Config holds the capture and scheduling knobs for new sessions.
type Config struct {
	SampleRate     int
	ChunkDuration  time.Duration
	QueueDepth     int
	SilenceTimeout time.Duration
}

type session struct {
	id        string
	name      string
	startedAt time.Time

	source   *audio.Source
	resolver *speakerid.Resolver
	buffer   *ChunkBuffer

	mu       sync.Mutex
	status   string
	failed   int
	duration float64
	endedAt  *time.Time
	summary  *annotate.MeetingSummary

	done chan struct{}
}

func (s *session) info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		ID:              s.id,
		Name:            s.name,
		Status:          s.status,
		StartedAt:       s.startedAt,
		EndedAt:         s.endedAt,
		ChunksProcessed: s.buffer.Len(),
		ChunksFailed:    s.failed,
		TotalDuration:   s.duration,
		LatestChunkID:   -1,
	}
	if last, ok := s.buffer.Last(); ok {
		info.LatestChunkID = last.ChunkID
		ts := last.Timestamp
		info.LastUpdate = &ts
	}
	return info
}

// Manager owns every live session. At most one session captures audio at a
// time; finished sessions stay queryable in memory and in the store.
type Manager struct {
	store    Store
	pipeline Annotator
	stitcher Stitcher
	hub      EventBroadcaster
	recorder Recorder
	archiver Archiver
	metrics  *metrics.Metrics
	detector *Detector
	cfg      Config

	mu       sync.Mutex
	active   *session
	sessions map[string]*session
}

func NewManager(store Store, pipeline Annotator, stitcher Stitcher, hub EventBroadcaster, recorder Recorder, archiver Archiver, m *metrics.Metrics, cfg Config) *Manager {
	mgr := &Manager{
		store:    store,
		pipeline: pipeline,
		stitcher: stitcher,
		hub:      hub,
		recorder: recorder,
		archiver: archiver,
		metrics:  m,
		cfg:      cfg,
		sessions: make(map[string]*session),
	}

	if cfg.SilenceTimeout > 0 {
		mgr.detector = NewDetector(cfg.SilenceTimeout)
		mgr.detector.OnSessionEnd(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := mgr.Stop(ctx); err != nil && !errors.Is(err, ErrNoActiveSession) {
				log.Printf("warning: silence auto-stop failed: %v", err)
			}
		})
	}

	return mgr
}

// Start creates a session and begins cutting pushed audio into chunks.
func (m *Manager) Start(ctx context.Context, name string) (Info, error) {
	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return Info{}, ErrSessionActive
	}

	sess := &session{
		id:        uuid.NewString(),
		name:      name,
		startedAt: time.Now().UTC(),
		source:    audio.NewSource(m.cfg.SampleRate, m.cfg.ChunkDuration, m.cfg.QueueDepth),
		resolver:  speakerid.NewResolver(),
		buffer:    NewChunkBuffer(),
		status:    storage.SessionCreated,
		done:      make(chan struct{}),
	}
	if m.metrics != nil {
		sess.source.OnDrop(m.metrics.RecordChunkDropped)
	}
	m.active = sess
	m.sessions[sess.id] = sess
	m.mu.Unlock()

	if err := m.store.CreateSession(sess.id, name, sess.startedAt); err != nil {
		m.mu.Lock()
		m.active = nil
		delete(m.sessions, sess.id)
		m.mu.Unlock()
		return Info{}, fmt.Errorf("create session: %w", err)
	}

	if m.recorder != nil {
		if err := m.recorder.StartSession(sess.id); err != nil {
			log.Printf("warning: audio recorder unavailable for session %s: %v", sess.id, err)
		}
	}

	if err := sess.source.Start(); err != nil {
		log.Printf("warning: start chunk source for session %s: %v", sess.id, err)
	}
	sess.mu.Lock()
	sess.status = storage.SessionActive
	sess.mu.Unlock()
	if err := m.store.UpdateSessionStatus(sess.id, storage.SessionActive); err != nil {
		log.Printf("warning: update session %s status: %v", sess.id, err)
	}

	go m.run(sess)

	if m.hub != nil {
		m.hub.BroadcastSessionStarted(sess.id)
	}
	if m.metrics != nil {
		m.metrics.SetActiveSessions(1)
	}
	if m.detector != nil {
		m.detector.OnAudio()
	}

	log.Printf("session %s started", sess.id)
	return sess.info(), nil
}

// PushSamples feeds captured audio into the active session. Samples pushed
// with no active session are dropped.
func (m *Manager) PushSamples(samples []int16) {
	m.mu.Lock()
	sess := m.active
	m.mu.Unlock()
	if sess == nil {
		return
	}

	if m.recorder != nil {
		if err := m.recorder.WriteSamples(samples); err != nil {
			log.Printf("warning: record samples for session %s: %v", sess.id, err)
		}
	}
	sess.source.Push(samples)

	if m.detector != nil {
		m.detector.OnAudio()
	}
}

// run is the session's annotation loop: chunks come off the source FIFO, go
// through the pipeline, get canonical speaker labels, then fan out to the
// store and subscribers. Exits when the source channel closes.
func (m *Manager) run(sess *session) {
	defer close(sess.done)

	for chunk := range sess.source.Chunks() {
		start := time.Now()
		annotated := m.pipeline.Annotate(context.Background(), chunk)
		sess.resolver.Apply(&annotated)

		sess.buffer.Append(annotated)
		sess.mu.Lock()
		if annotated.ProcessingStatus == annotate.StatusFailed {
			sess.failed++
			log.Printf("session %s chunk %d failed: %s", sess.id, annotated.ChunkID, annotated.Error)
		} else {
			sess.duration += annotated.Duration
		}
		sess.mu.Unlock()

		if err := m.store.UpsertChunk(sess.id, annotated); err != nil {
			log.Printf("warning: persist chunk %d for session %s: %v", annotated.ChunkID, sess.id, err)
		}

		if m.hub != nil {
			m.hub.BroadcastChunkUpdate(sess.id, annotated)
		}
		if m.metrics != nil {
			m.metrics.RecordChunkProcessed(annotated.ProcessingStatus, time.Since(start).Seconds())
		}
	}
}

// Stop halts capture on the active session, waits for in-flight chunks to
// finish, and finalizes the session into its meeting summary. Stopping an
// already-completed session returns the existing summary.
func (m *Manager) Stop(ctx context.Context) (annotate.MeetingSummary, error) {
	m.mu.Lock()
	sess := m.active
	m.mu.Unlock()
	if sess == nil {
		return annotate.MeetingSummary{}, ErrNoActiveSession
	}

	return m.finalize(ctx, sess)
}

func (m *Manager) finalize(ctx context.Context, sess *session) (annotate.MeetingSummary, error) {
	sess.mu.Lock()
	switch sess.status {
	case storage.SessionFinalizing:
		sess.mu.Unlock()
		return annotate.MeetingSummary{}, ErrFinalizeInFlight
	case storage.SessionCompleted, storage.SessionFailed:
		summary := sess.summary
		sess.mu.Unlock()
		if summary != nil {
			return *summary, nil
		}
		return annotate.MeetingSummary{}, fmt.Errorf("session %s already finalized", sess.id)
	}
	sess.status = storage.SessionFinalizing
	sess.mu.Unlock()

	start := time.Now()
	if m.detector != nil {
		m.detector.Stop()
	}

	if err := m.store.UpdateSessionStatus(sess.id, storage.SessionFinalizing); err != nil {
		log.Printf("warning: update session %s status: %v", sess.id, err)
	}
	if m.hub != nil {
		m.hub.BroadcastStatusUpdate(sess.id, storage.SessionFinalizing)
	}

	// Stop cutting new chunks, then wait for queued ones to drain.
	sess.source.Stop()
	select {
	case <-sess.done:
	case <-ctx.Done():
		m.failSession(sess)
		return annotate.MeetingSummary{}, fmt.Errorf("wait for chunk drain: %w", ctx.Err())
	}

	if m.recorder != nil {
		if path, err := m.recorder.EndSession(); err != nil {
			log.Printf("warning: end audio recording for session %s: %v", sess.id, err)
		} else if path != "" {
			log.Printf("session %s audio archived to %s", sess.id, path)
		}
	}

	chunks, err := m.store.ListChunks(sess.id)
	if err != nil {
		log.Printf("warning: load persisted chunks for session %s: %v", sess.id, err)
	}
	summary := m.stitcher.Stitch(ctx, sess.id, chunks)

	if err := m.store.UpsertSummary(sess.id, summary); err != nil {
		log.Printf("warning: persist summary for session %s: %v", sess.id, err)
	}

	endedAt := time.Now().UTC()
	if err := m.store.EndSession(sess.id, storage.SessionCompleted, endedAt, summary.TotalChunks, summary.TotalDuration); err != nil {
		log.Printf("warning: end session %s: %v", sess.id, err)
	}

	sess.mu.Lock()
	sess.status = storage.SessionCompleted
	sess.endedAt = &endedAt
	sess.summary = &summary
	sess.mu.Unlock()

	m.mu.Lock()
	if m.active == sess {
		m.active = nil
	}
	m.mu.Unlock()

	if m.hub != nil {
		m.hub.BroadcastSummaryUpdate(sess.id, summary)
		m.hub.BroadcastSessionEnded(sess.id, summary.TotalChunks, summary.TotalDuration)
	}
	if m.metrics != nil {
		m.metrics.SetActiveSessions(0)
		m.metrics.RecordFinalize(time.Since(start).Seconds())
	}

	if m.archiver != nil {
		go func() {
			actx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := m.archiver.Archive(actx, summary); err != nil {
				log.Printf("warning: archive summary for session %s: %v", sess.id, err)
			}
		}()
	}

	log.Printf("session %s completed: %d chunks, %.1fs", sess.id, summary.TotalChunks, summary.TotalDuration)
	return summary, nil
}

// FailActive marks the active session failed after an unrecoverable capture
// error. Chunks already queued still drain, but no summary is produced.
func (m *Manager) FailActive(captureErr error) {
	m.mu.Lock()
	sess := m.active
	m.mu.Unlock()
	if sess == nil {
		return
	}

	sess.mu.Lock()
	switch sess.status {
	case storage.SessionFinalizing, storage.SessionCompleted, storage.SessionFailed:
		sess.mu.Unlock()
		return
	}
	sess.mu.Unlock()

	log.Printf("session %s capture failed: %v", sess.id, captureErr)
	if m.detector != nil {
		m.detector.Stop()
	}
	sess.source.Stop()
	<-sess.done
	m.failSession(sess)
}

func (m *Manager) failSession(sess *session) {
	endedAt := time.Now().UTC()
	sess.mu.Lock()
	sess.status = storage.SessionFailed
	sess.endedAt = &endedAt
	sess.mu.Unlock()

	if err := m.store.EndSession(sess.id, storage.SessionFailed, endedAt, sess.buffer.Len(), 0); err != nil {
		log.Printf("warning: mark session %s failed: %v", sess.id, err)
	}

	m.mu.Lock()
	if m.active == sess {
		m.active = nil
	}
	m.mu.Unlock()

	if m.hub != nil {
		m.hub.BroadcastStatusUpdate(sess.id, storage.SessionFailed)
	}
	if m.metrics != nil {
		m.metrics.SetActiveSessions(0)
	}
}

// Active returns the currently capturing session, if any.
func (m *Manager) Active() (Info, bool) {
	m.mu.Lock()
	sess := m.active
	m.mu.Unlock()
	if sess == nil {
		return Info{}, false
	}
	return sess.info(), true
}

// Get returns progress for a live session, falling back to the store for
// sessions from earlier runs.
func (m *Manager) Get(id string) (Info, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return sess.info(), nil
	}

	rec, err := m.store.GetSession(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Info{}, ErrSessionNotFound
		}
		return Info{}, err
	}

	return Info{
		ID:              rec.ID,
		Name:            rec.Name,
		Status:          rec.Status,
		StartedAt:       rec.StartedAt,
		EndedAt:         rec.EndedAt,
		ChunksProcessed: rec.TotalChunks,
		TotalDuration:   rec.TotalDuration,
		LatestChunkID:   rec.TotalChunks - 1,
	}, nil
}

// Chunks returns a session's annotated chunks, preferring the in-memory
// record for live sessions.
func (m *Manager) Chunks(id string) ([]annotate.AnnotatedChunk, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return sess.buffer.Snapshot(), nil
	}

	if _, err := m.Get(id); err != nil {
		return nil, err
	}
	return m.store.ListChunks(id)
}

// Summary returns a session's finalized meeting summary.
func (m *Manager) Summary(id string) (annotate.MeetingSummary, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		sess.mu.Lock()
		summary := sess.summary
		sess.mu.Unlock()
		if summary != nil {
			return *summary, nil
		}
	}

	summary, err := m.store.GetSummary(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return annotate.MeetingSummary{}, ErrSessionNotFound
		}
		return annotate.MeetingSummary{}, err
	}
	return summary, nil
}

// List returns every known session, live ones first.
func (m *Manager) List() []Info {
	m.mu.Lock()
	live := make([]Info, 0, len(m.sessions))
	seen := make(map[string]struct{}, len(m.sessions))
	for _, sess := range m.sessions {
		live = append(live, sess.info())
		seen[sess.id] = struct{}{}
	}
	m.mu.Unlock()

	records, err := m.store.ListSessions()
	if err != nil {
		log.Printf("warning: list stored sessions: %v", err)
		return live
	}

	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		live = append(live, Info{
			ID:              rec.ID,
			Name:            rec.Name,
			Status:          rec.Status,
			StartedAt:       rec.StartedAt,
			EndedAt:         rec.EndedAt,
			ChunksProcessed: rec.TotalChunks,
			TotalDuration:   rec.TotalDuration,
			LatestChunkID:   rec.TotalChunks - 1,
		})
	}
	return live
}

// Shutdown finalizes the active session, if any.
func (m *Manager) Shutdown(ctx context.Context) error {
	_, err := m.Stop(ctx)
	if errors.Is(err, ErrNoActiveSession) {
		return nil
	}
	return err
}
