package annotate

import "time"

// Processing status values recorded on every annotated chunk.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// AudioChunk is a fixed-duration slice of a session's audio. Chunk ids are
// session-unique and increase monotonically from 0. Chunks are immutable once
// produced by the source.
type AudioChunk struct {
	ChunkID     int       `json:"chunk_id"`
	Samples     []int16   `json:"-"`
	SampleRate  int       `json:"sample_rate"`
	Timestamp   time.Time `json:"timestamp"`
	Duration    float64   `json:"duration"`
	StartOffset float64   `json:"start_time"`
	EndOffset   float64   `json:"end_time"`
}

// Segment is one transcribed span of audio.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
}

// Transcript is the output of the transcription stage.
type Transcript struct {
	FullText            string    `json:"full_text"`
	Segments            []Segment `json:"segments"`
	Language            string    `json:"language"`
	LanguageProbability float64   `json:"language_probability"`
}

// Turn is one diarization turn with a transient, chunk-local speaker label.
type Turn struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"speaker"`
}

// SpeakerInfo groups a chunk's segments by speaker label. Labels are
// transient until the consistency resolver rewrites them.
type SpeakerInfo struct {
	Speakers        []string             `json:"speakers"`
	SpeakerSegments []Segment            `json:"speaker_segments"`
	SpeakerMapping  map[string][]Segment `json:"speaker_mapping"`
}

// EmotionScore holds one speaker's emotion classification for a chunk.
type EmotionScore struct {
	DominantEmotion string             `json:"dominant_emotion"`
	Confidence      float64            `json:"confidence"`
	AllEmotions     map[string]float64 `json:"all_emotions"`
}

// JargonTerm is a detected key term with a best-effort definition.
type JargonTerm struct {
	Term       string  `json:"term"`
	Score      float64 `json:"score"`
	Definition string  `json:"definition"`
	Source     string  `json:"source"`
	EntityType string  `json:"entity_type,omitempty"`
}

// AnnotatedChunk is the result of running one audio chunk through the full
// annotation pipeline. Persisted once; after persistence only the speaker
// consistency rewrite (applied before the write) touches it.
type AnnotatedChunk struct {
	ChunkID          int                     `json:"chunk_id"`
	Timestamp        time.Time               `json:"timestamp"`
	StartTime        float64                 `json:"start_time"`
	EndTime          float64                 `json:"end_time"`
	Duration         float64                 `json:"duration"`
	Transcript       Transcript              `json:"transcript"`
	Speakers         SpeakerInfo             `json:"speakers"`
	Emotions         map[string]EmotionScore `json:"emotions"`
	Jargon           []JargonTerm            `json:"jargon"`
	MicroSummary     string                  `json:"micro_summary"`
	ProcessingStatus string                  `json:"processing_status"`
	Error            string                  `json:"error,omitempty"`
}

// SpeakerSummary aggregates one canonical speaker across a whole session.
type SpeakerSummary struct {
	SpeakerID           string             `json:"speaker_id"`
	TotalSegments       int                `json:"total_segments"`
	TotalDuration       float64            `json:"total_duration"`
	WordCount           int                `json:"word_count"`
	DominantEmotion     string             `json:"dominant_emotion"`
	EmotionDistribution map[string]float64 `json:"emotion_distribution"`
}

// MeetingSummary is the stitched result of all completed chunks in a session.
type MeetingSummary struct {
	SessionID          string                    `json:"session_id"`
	Timestamp          time.Time                 `json:"timestamp"`
	CombinedTranscript string                    `json:"combined_transcript"`
	FinalSummary       string                    `json:"final_summary"`
	SpeakersSummary    map[string]SpeakerSummary `json:"speakers_summary"`
	EmotionsSummary    map[string]float64        `json:"emotions_summary"`
	JargonSummary      []JargonTerm              `json:"jargon_summary"`
	TotalChunks        int                       `json:"total_chunks"`
	TotalDuration      float64                   `json:"total_duration"`
	MeetingMetadata    map[string]any            `json:"meeting_metadata"`
}
