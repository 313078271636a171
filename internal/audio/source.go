package audio

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
)

// ErrDeviceUnavailable is returned when the capture device cannot be opened
// at session start. It is fatal to the session; there is no retry.
var ErrDeviceUnavailable = errors.New("audio capture device unavailable")

// SourceState tracks the chunking state machine.
type SourceState int

const (
	StateIdle SourceState = iota
	StateCapturing
	StateStopped
)

func (s SourceState) String() string {
	switch s {
	case StateCapturing:
		return "capturing"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Source turns a continuous sample stream into discrete fixed-duration
// chunks. Push is the only entry point for the capture side; completed
// chunks are handed to the consumer through a bounded channel so capture
// never blocks on a slow pipeline.
type Source struct {
	sampleRate      int
	samplesPerChunk int
	chunkDuration   float64
	out             chan annotate.AudioChunk

	mu        sync.Mutex
	state     SourceState
	acc       []int16
	chunkID   int
	startedAt time.Time
	dropped   int
	onDrop    func()
}

// NewSource creates a source cutting chunks of chunkDuration at sampleRate.
func NewSource(sampleRate int, chunkDuration time.Duration, queueDepth int) *Source {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if chunkDuration <= 0 {
		chunkDuration = 15 * time.Second
	}
	if queueDepth <= 0 {
		queueDepth = 8
	}

	return &Source{
		sampleRate:      sampleRate,
		samplesPerChunk: int(float64(sampleRate) * chunkDuration.Seconds()),
		chunkDuration:   chunkDuration.Seconds(),
		out:             make(chan annotate.AudioChunk, queueDepth),
	}
}

// Chunks is the consumer side of the source. The channel is closed when the
// source stops.
func (s *Source) Chunks() <-chan annotate.AudioChunk {
	return s.out
}

// Start transitions Idle -> Capturing.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return errors.New("source already started")
	}
	s.state = StateCapturing
	s.startedAt = time.Now().UTC()
	return nil
}

// Push appends samples to the accumulator, cutting a chunk of exactly one
// chunk duration whenever enough samples have arrived. Surplus samples are
// carried into the next accumulation window.
func (s *Source) Push(samples []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCapturing {
		return
	}

	s.acc = append(s.acc, samples...)

	for len(s.acc) >= s.samplesPerChunk {
		data := make([]int16, s.samplesPerChunk)
		copy(data, s.acc[:s.samplesPerChunk])
		s.acc = s.acc[s.samplesPerChunk:]

		start := float64(s.chunkID) * s.chunkDuration
		chunk := annotate.AudioChunk{
			ChunkID:     s.chunkID,
			Samples:     data,
			SampleRate:  s.sampleRate,
			Timestamp:   time.Now().UTC(),
			Duration:    s.chunkDuration,
			StartOffset: start,
			EndOffset:   start + s.chunkDuration,
		}
		s.chunkID++

		select {
		case s.out <- chunk:
		default:
			s.dropped++
			if s.onDrop != nil {
				s.onDrop()
			}
			log.Printf("warning: chunk %d dropped, annotation queue full", chunk.ChunkID)
		}
	}
}

// Stop transitions to Stopped and closes the chunk channel. Samples still in
// the accumulator below one full chunk duration are discarded, not emitted
// as a short final chunk.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return
	}
	if len(s.acc) > 0 {
		log.Printf("discarding %0.1fs of trailing audio below one chunk duration", float64(len(s.acc))/float64(s.sampleRate))
	}
	s.state = StateStopped
	s.acc = nil
	close(s.out)
}

// OnDrop registers a callback invoked once per discarded chunk.
func (s *Source) OnDrop(fn func()) {
	s.mu.Lock()
	s.onDrop = fn
	s.mu.Unlock()
}

// State reports the current state of the chunking state machine.
func (s *Source) State() SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ChunksCut reports how many chunks have been produced so far.
func (s *Source) ChunksCut() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunkID
}

// Dropped reports how many chunks were discarded because the queue was full.
func (s *Source) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
