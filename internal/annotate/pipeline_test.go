package annotate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

type transcriberMock struct {
	transcript Transcript
	err        error
}

func (m *transcriberMock) Transcribe(_ context.Context, _ []int16, _ int) (Transcript, error) {
	return m.transcript, m.err
}

type diarizerMock struct {
	turns []Turn
	err   error
}

func (m *diarizerMock) Diarize(_ context.Context, _ []int16, _ int) ([]Turn, error) {
	return m.turns, m.err
}

type emotionMock struct {
	scores map[string]float64
	err    error
	calls  int
}

func (m *emotionMock) ClassifyEmotion(_ context.Context, _ string) (map[string]float64, error) {
	m.calls++
	return m.scores, m.err
}

type keyTermMock struct {
	terms []KeyTerm
}

func (m *keyTermMock) ExtractKeyTerms(_ context.Context, _ string) ([]KeyTerm, error) {
	return m.terms, nil
}

type entityMock struct {
	entities []Entity
}

func (m *entityMock) ExtractEntities(_ context.Context, _ string) ([]Entity, error) {
	return m.entities, nil
}

type definitionMock struct {
	definitions map[string]string
}

func (m *definitionMock) LookupDefinition(_ context.Context, term string) (string, error) {
	def, ok := m.definitions[term]
	if !ok {
		return "", errors.New("not found")
	}
	return def, nil
}

type summarizerMock struct {
	summary   string
	err       error
	lastInput string
}

func (m *summarizerMock) Summarize(_ context.Context, text string, _, _ int) (string, error) {
	m.lastInput = text
	return m.summary, m.err
}

func testChunk() AudioChunk {
	return AudioChunk{
		ChunkID:     3,
		Samples:     make([]int16, 16000),
		SampleRate:  16000,
		Timestamp:   time.Now().UTC(),
		Duration:    15.0,
		StartOffset: 45.0,
		EndOffset:   60.0,
	}
}

func twoSegmentTranscript() Transcript {
	return Transcript{
		FullText: "Hello there. The quarterly budget looks solid.",
		Segments: []Segment{
			{Start: 0.0, End: 2.0, Text: "Hello there.", Confidence: -0.1},
			{Start: 2.5, End: 6.0, Text: "The quarterly budget looks solid.", Confidence: -0.2},
		},
		Language:            "en",
		LanguageProbability: 0.98,
	}
}

func TestAnnotateCompletedChunk(t *testing.T) {
	pipeline := NewPipeline(
		&transcriberMock{transcript: twoSegmentTranscript()},
		&diarizerMock{turns: []Turn{
			{Start: 0.0, End: 2.2, Label: "0"},
			{Start: 2.2, End: 6.5, Label: "1"},
		}},
		&emotionMock{scores: map[string]float64{"joy": 0.8, "neutral": 0.2}},
		&keyTermMock{terms: []KeyTerm{{Term: "quarterly budget", Score: 0.9}}},
		&entityMock{},
		&definitionMock{},
		&summarizerMock{summary: "Budget discussion."},
		Options{},
	)

	out := pipeline.Annotate(context.Background(), testChunk())

	if out.ProcessingStatus != StatusCompleted {
		t.Fatalf("expected completed chunk, got %s (%s)", out.ProcessingStatus, out.Error)
	}
	if out.ChunkID != 3 || out.StartTime != 45.0 || out.EndTime != 60.0 {
		t.Fatalf("chunk timing not carried: %+v", out)
	}
	if got := out.Speakers.SpeakerSegments[0].Speaker; got != "0" {
		t.Fatalf("expected first segment mapped to turn 0, got %q", got)
	}
	if got := out.Speakers.SpeakerSegments[1].Speaker; got != "1" {
		t.Fatalf("expected second segment mapped to turn 1, got %q", got)
	}
	if out.Emotions["0"].DominantEmotion != "joy" {
		t.Fatalf("expected dominant joy, got %+v", out.Emotions["0"])
	}
	if out.MicroSummary != "Budget discussion." {
		t.Fatalf("unexpected micro summary %q", out.MicroSummary)
	}
}

func TestAnnotateStageFailureIsAtomic(t *testing.T) {
	pipeline := NewPipeline(
		&transcriberMock{transcript: twoSegmentTranscript()},
		&diarizerMock{turns: []Turn{{Start: 0, End: 10, Label: "0"}}},
		&emotionMock{err: errors.New("classifier crashed")},
		&keyTermMock{},
		&entityMock{},
		&definitionMock{},
		&summarizerMock{},
		Options{},
	)

	out := pipeline.Annotate(context.Background(), testChunk())

	if out.ProcessingStatus != StatusFailed {
		t.Fatalf("expected failed chunk, got %s", out.ProcessingStatus)
	}
	if !strings.Contains(out.Error, "classifier crashed") {
		t.Fatalf("expected stage error retained, got %q", out.Error)
	}
	if out.Transcript.FullText != "" || len(out.Speakers.SpeakerSegments) != 0 {
		t.Fatalf("expected no partial outputs on failure: %+v", out)
	}
}

func TestAnnotateWithoutDiarizerUsesFallbackSpeaker(t *testing.T) {
	pipeline := NewPipeline(
		&transcriberMock{transcript: twoSegmentTranscript()},
		nil,
		nil,
		nil,
		nil,
		nil,
		nil,
		Options{},
	)

	out := pipeline.Annotate(context.Background(), testChunk())

	if out.ProcessingStatus != StatusCompleted {
		t.Fatalf("expected completed chunk, got %s (%s)", out.ProcessingStatus, out.Error)
	}
	if len(out.Speakers.Speakers) != 1 || out.Speakers.Speakers[0] != FallbackSpeakerLabel {
		t.Fatalf("expected single fallback speaker, got %v", out.Speakers.Speakers)
	}
	for _, seg := range out.Speakers.SpeakerSegments {
		if seg.Speaker != FallbackSpeakerLabel {
			t.Fatalf("expected fallback label on every segment, got %q", seg.Speaker)
		}
	}
	if out.Emotions[FallbackSpeakerLabel].DominantEmotion != "neutral" {
		t.Fatalf("expected neutral fallback emotion, got %+v", out.Emotions[FallbackSpeakerLabel])
	}
}

func TestSegmentWithNoOverlapGetsFallbackLabel(t *testing.T) {
	pipeline := NewPipeline(
		&transcriberMock{transcript: Transcript{
			FullText: "one two",
			Segments: []Segment{
				{Start: 0.0, End: 1.0, Text: "one"},
				{Start: 8.0, End: 9.0, Text: "two"},
			},
		}},
		&diarizerMock{turns: []Turn{{Start: 0.0, End: 1.5, Label: "2"}}},
		nil,
		nil,
		nil,
		nil,
		nil,
		Options{},
	)

	out := pipeline.Annotate(context.Background(), testChunk())

	if out.Speakers.SpeakerSegments[0].Speaker != "2" {
		t.Fatalf("expected overlap label 2, got %q", out.Speakers.SpeakerSegments[0].Speaker)
	}
	if out.Speakers.SpeakerSegments[1].Speaker != FallbackSpeakerLabel {
		t.Fatalf("expected fallback label, got %q", out.Speakers.SpeakerSegments[1].Speaker)
	}
}

func TestJargonThresholdEntityMergeAndTruncation(t *testing.T) {
	keyTerms := []KeyTerm{
		{Term: "kubernetes", Score: 0.9},
		{Term: "filler", Score: 0.2},
		{Term: "Raft", Score: 0.8},
	}
	entities := []Entity{
		{Text: "raft", Label: "PRODUCT"},
		{Text: "Acme Corp", Label: "ORG"},
	}

	pipeline := NewPipeline(
		&transcriberMock{transcript: twoSegmentTranscript()},
		nil,
		nil,
		&keyTermMock{terms: keyTerms},
		&entityMock{entities: entities},
		&definitionMock{definitions: map[string]string{"kubernetes": "Container orchestrator."}},
		nil,
		Options{MaxJargonTerms: 2},
	)

	out := pipeline.Annotate(context.Background(), testChunk())

	if len(out.Jargon) != 2 {
		t.Fatalf("expected truncation to 2 terms, got %d", len(out.Jargon))
	}
	if out.Jargon[0].Term != "kubernetes" || out.Jargon[0].Definition != "Container orchestrator." {
		t.Fatalf("unexpected top term %+v", out.Jargon[0])
	}
	if out.Jargon[1].Term != "Raft" {
		t.Fatalf("expected Raft second, got %+v", out.Jargon[1])
	}
	for _, term := range out.Jargon {
		if strings.EqualFold(term.Term, "filler") {
			t.Fatal("below-threshold term survived the filter")
		}
	}
}

func TestMicroSummaryFallbacks(t *testing.T) {
	short := &transcriberMock{transcript: Transcript{FullText: "Short hello text here okay.", Segments: []Segment{{Text: "Short hello text here okay."}}}}
	pipeline := NewPipeline(short, nil, nil, nil, nil, nil, nil, Options{})

	out := pipeline.Annotate(context.Background(), testChunk())
	if out.MicroSummary != "Short hello text here okay." {
		t.Fatalf("expected first-sentence fallback, got %q", out.MicroSummary)
	}

	failing := NewPipeline(
		&transcriberMock{transcript: twoSegmentTranscript()},
		nil, nil, nil, nil, nil,
		&summarizerMock{err: errors.New("model offline")},
		Options{},
	)
	out = failing.Annotate(context.Background(), testChunk())
	if out.ProcessingStatus != StatusFailed {
		t.Fatalf("expected summarizer error to fail the chunk, got %s", out.ProcessingStatus)
	}
}

func TestMicroSummaryTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("planificación estratégica ", 20)
	sum := &summarizerMock{summary: "Short chunk summary."}
	pipeline := NewPipeline(
		&transcriberMock{transcript: Transcript{FullText: long}},
		nil, nil, nil, nil, nil,
		sum,
		Options{MaxSummaryInput: 100},
	)

	out := pipeline.Annotate(context.Background(), testChunk())
	if out.ProcessingStatus != StatusCompleted {
		t.Fatalf("chunk failed: %s", out.Error)
	}
	if !utf8.ValidString(sum.lastInput) {
		t.Fatalf("summarizer input split a multibyte character: %q", sum.lastInput)
	}
	if got := len([]rune(sum.lastInput)); got != 100 {
		t.Fatalf("summarizer input runes = %d, want 100", got)
	}
}
