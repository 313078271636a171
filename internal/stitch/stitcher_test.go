package stitch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
)

type summarizerStub struct {
	result string
	err    error
	calls  int
	inputs []string
}

func (s *summarizerStub) Summarize(_ context.Context, text string, _, _ int) (string, error) {
	s.calls++
	s.inputs = append(s.inputs, text)
	return s.result, s.err
}

func completedChunk(id int, start float64, speaker, text string) annotate.AnnotatedChunk {
	seg := annotate.Segment{Start: start, End: start + 5, Text: text, Speaker: speaker}
	return annotate.AnnotatedChunk{
		ChunkID:   id,
		StartTime: start,
		EndTime:   start + 15,
		Duration:  15,
		Transcript: annotate.Transcript{
			FullText: text,
			Segments: []annotate.Segment{seg},
		},
		Speakers: annotate.SpeakerInfo{
			Speakers:        []string{speaker},
			SpeakerSegments: []annotate.Segment{seg},
			SpeakerMapping:  map[string][]annotate.Segment{speaker: {seg}},
		},
		Emotions: map[string]annotate.EmotionScore{
			speaker: {DominantEmotion: "neutral", Confidence: 0.9, AllEmotions: map[string]float64{"neutral": 0.9}},
		},
		MicroSummary:     text,
		ProcessingStatus: annotate.StatusCompleted,
	}
}

func TestStitchOrdersChunksAndSumsDuration(t *testing.T) {
	st := New(nil, 0)
	chunks := []annotate.AnnotatedChunk{
		completedChunk(1, 15, "Speaker_1", "Second part of the discussion."),
		completedChunk(0, 0, "Speaker_1", "First part of the discussion."),
	}

	summary := st.Stitch(context.Background(), "sess-1", chunks)

	if summary.TotalChunks != 2 {
		t.Fatalf("TotalChunks = %d, want 2", summary.TotalChunks)
	}
	if summary.TotalDuration != 30.0 {
		t.Fatalf("TotalDuration = %v, want 30.0", summary.TotalDuration)
	}

	lines := strings.Split(summary.CombinedTranscript, "\n")
	if len(lines) != 2 {
		t.Fatalf("transcript lines = %d, want 2: %q", len(lines), summary.CombinedTranscript)
	}
	if !strings.HasPrefix(lines[0], "[00:00] Speaker_1: First") {
		t.Errorf("first line = %q, want chunk 0 first", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[00:15] Speaker_1: Second") {
		t.Errorf("second line = %q, want chunk 1 second", lines[1])
	}
}

func TestStitchExcludesFailedChunks(t *testing.T) {
	st := New(nil, 0)
	failed := annotate.AnnotatedChunk{
		ChunkID:          1,
		Duration:         15,
		ProcessingStatus: annotate.StatusFailed,
		Error:            "transcription: timeout",
	}
	chunks := []annotate.AnnotatedChunk{
		completedChunk(0, 0, "Speaker_1", "Only good chunk."),
		failed,
		completedChunk(2, 30, "Speaker_1", "Another good chunk."),
	}

	summary := st.Stitch(context.Background(), "sess-1", chunks)

	if summary.TotalChunks != 2 {
		t.Fatalf("TotalChunks = %d, want 2 (failed excluded)", summary.TotalChunks)
	}
	if summary.TotalDuration != 30.0 {
		t.Fatalf("TotalDuration = %v, want 30.0", summary.TotalDuration)
	}
	md, ok := summary.MeetingMetadata["chunk_range"].(map[string]int)
	if !ok {
		t.Fatalf("chunk_range metadata missing")
	}
	if md["start"] != 0 || md["end"] != 2 {
		t.Errorf("chunk_range = %v, want 0..2", md)
	}
}

func TestStitchEmptySessionPlaceholder(t *testing.T) {
	st := New(nil, 0)

	summary := st.Stitch(context.Background(), "sess-empty", nil)

	if summary.CombinedTranscript != "No content recorded." {
		t.Errorf("CombinedTranscript = %q", summary.CombinedTranscript)
	}
	if summary.FinalSummary != "No meeting content was captured." {
		t.Errorf("FinalSummary = %q", summary.FinalSummary)
	}
	if summary.TotalChunks != 0 || summary.TotalDuration != 0 {
		t.Errorf("totals = %d/%v, want zero", summary.TotalChunks, summary.TotalDuration)
	}
	if v, ok := summary.MeetingMetadata["empty_session"].(bool); !ok || !v {
		t.Errorf("empty_session metadata missing: %v", summary.MeetingMetadata)
	}
}

func TestStitchIsIdempotent(t *testing.T) {
	st := New(nil, 0)
	chunks := []annotate.AnnotatedChunk{
		completedChunk(0, 0, "Speaker_1", "Alpha beta gamma."),
		completedChunk(1, 15, "Speaker_2", "Delta epsilon."),
	}

	first := st.Stitch(context.Background(), "sess-1", chunks)
	second := st.Stitch(context.Background(), "sess-1", chunks)

	if first.CombinedTranscript != second.CombinedTranscript {
		t.Errorf("transcript differs between runs")
	}
	if first.FinalSummary != second.FinalSummary {
		t.Errorf("final summary differs between runs")
	}
	if first.TotalChunks != second.TotalChunks || first.TotalDuration != second.TotalDuration {
		t.Errorf("totals differ between runs")
	}
}

func TestSpeakerSummaryCounts(t *testing.T) {
	st := New(nil, 0)
	c0 := completedChunk(0, 0, "Speaker_1", "one two three")
	c1 := completedChunk(1, 15, "Speaker_1", "four five")
	c1.Emotions["Speaker_1"] = annotate.EmotionScore{
		DominantEmotion: "joy", Confidence: 0.8, AllEmotions: map[string]float64{"joy": 0.8},
	}
	c2 := completedChunk(2, 30, "Speaker_1", "six seven")
	c2.Emotions["Speaker_1"] = annotate.EmotionScore{
		DominantEmotion: "joy", Confidence: 0.7, AllEmotions: map[string]float64{"joy": 0.7},
	}

	summary := st.Stitch(context.Background(), "sess-1", []annotate.AnnotatedChunk{c0, c1, c2})

	sp, ok := summary.SpeakersSummary["Speaker_1"]
	if !ok {
		t.Fatalf("Speaker_1 missing from speakers summary")
	}
	if sp.TotalSegments != 3 {
		t.Errorf("TotalSegments = %d, want 3", sp.TotalSegments)
	}
	if sp.WordCount != 7 {
		t.Errorf("WordCount = %d, want 7", sp.WordCount)
	}
	if sp.TotalDuration != 15.0 {
		t.Errorf("TotalDuration = %v, want 15.0 (3 segments of 5s)", sp.TotalDuration)
	}
	if sp.DominantEmotion != "joy" {
		t.Errorf("DominantEmotion = %q, want joy (2 of 3 chunks)", sp.DominantEmotion)
	}
	want := 2.0 / 3.0
	if got := sp.EmotionDistribution["joy"]; got != want {
		t.Errorf("joy distribution = %v, want %v", got, want)
	}
}

func TestEmotionsSummaryUnweightedMean(t *testing.T) {
	st := New(nil, 0)
	c0 := completedChunk(0, 0, "Speaker_1", "hello")
	c0.Emotions["Speaker_1"] = annotate.EmotionScore{
		DominantEmotion: "neutral", AllEmotions: map[string]float64{"neutral": 0.6, "joy": 0.4},
	}
	c1 := completedChunk(1, 15, "Speaker_2", "world")
	c1.Emotions["Speaker_2"] = annotate.EmotionScore{
		DominantEmotion: "neutral", AllEmotions: map[string]float64{"neutral": 0.8},
	}

	summary := st.Stitch(context.Background(), "sess-1", []annotate.AnnotatedChunk{c0, c1})

	if got := summary.EmotionsSummary["neutral"]; got != 0.7 {
		t.Errorf("neutral mean = %v, want 0.7", got)
	}
	if got := summary.EmotionsSummary["joy"]; got != 0.4 {
		t.Errorf("joy mean = %v, want 0.4 (single observation)", got)
	}
}

func TestJargonDedupAndCap(t *testing.T) {
	st := New(nil, 0)
	c0 := completedChunk(0, 0, "Speaker_1", "terms ahoy")
	c0.Jargon = []annotate.JargonTerm{
		{Term: "Kubernetes", Score: 0.6},
		{Term: "raft", Score: 0.55},
	}
	c1 := completedChunk(1, 15, "Speaker_1", "more terms")
	c1.Jargon = []annotate.JargonTerm{
		{Term: "kubernetes", Score: 0.9, Definition: "container orchestration"},
	}
	for i := 0; i < 25; i++ {
		c1.Jargon = append(c1.Jargon, annotate.JargonTerm{
			Term:  strings.Repeat("x", i+1),
			Score: 0.5,
		})
	}

	summary := st.Stitch(context.Background(), "sess-1", []annotate.AnnotatedChunk{c0, c1})

	if len(summary.JargonSummary) != 20 {
		t.Fatalf("jargon terms = %d, want capped at 20", len(summary.JargonSummary))
	}
	top := summary.JargonSummary[0]
	if !strings.EqualFold(top.Term, "kubernetes") || top.Score != 0.9 {
		t.Errorf("top term = %+v, want kubernetes at 0.9", top)
	}
	for _, term := range summary.JargonSummary[1:] {
		if strings.EqualFold(term.Term, "kubernetes") {
			t.Errorf("kubernetes appears twice after case-insensitive dedup")
		}
	}
}

func TestFinalSummaryUsesSummarizer(t *testing.T) {
	stub := &summarizerStub{result: "A concise meeting summary."}
	st := New(stub, 0)
	chunks := []annotate.AnnotatedChunk{
		completedChunk(0, 0, "Speaker_1", strings.Repeat("The team discussed the rollout plan. ", 3)),
	}

	summary := st.Stitch(context.Background(), "sess-1", chunks)

	if summary.FinalSummary != "A concise meeting summary." {
		t.Errorf("FinalSummary = %q", summary.FinalSummary)
	}
	if stub.calls == 0 {
		t.Errorf("summarizer never called")
	}
}

func TestFinalSummaryWindowsOnRuneBoundaries(t *testing.T) {
	stub := &summarizerStub{result: "Resumen breve."}
	st := New(stub, 64)

	var chunks []annotate.AnnotatedChunk
	for i := 0; i < 4; i++ {
		chunks = append(chunks, completedChunk(i, float64(i*15), "Speaker_1",
			strings.Repeat("El equipo discutió la planificación. ", 2)))
	}

	st.Stitch(context.Background(), "sess-1", chunks)

	if stub.calls < 2 {
		t.Fatalf("summarizer called %d times, want multiple windows", stub.calls)
	}
	for i, input := range stub.inputs {
		if !utf8.ValidString(input) {
			t.Fatalf("window %d split a multibyte character: %q", i, input)
		}
	}
}

func TestFinalSummaryFallsBackOnSummarizerError(t *testing.T) {
	stub := &summarizerStub{err: errors.New("model overloaded")}
	st := New(stub, 0)
	chunks := []annotate.AnnotatedChunk{
		completedChunk(0, 0, "Speaker_1", strings.Repeat("Planning discussion about the release. ", 3)),
	}

	summary := st.Stitch(context.Background(), "sess-1", chunks)

	if summary.FinalSummary == "" {
		t.Fatalf("expected extractive fallback, got empty summary")
	}
	if !strings.Contains(summary.FinalSummary, "Planning discussion") {
		t.Errorf("fallback summary = %q, want extractive content", summary.FinalSummary)
	}
}
