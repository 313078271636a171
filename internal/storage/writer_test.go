package storage

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
)

func TestWriterExportsMarkdown(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	summary := annotate.MeetingSummary{
		SessionID:          "sess-1",
		Timestamp:          time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC),
		CombinedTranscript: "[00:00] Speaker_1: Hello world.",
		FinalSummary:       "A short meeting.",
		JargonSummary: []annotate.JargonTerm{
			{Term: "Kubernetes", Definition: "Container orchestration platform."},
		},
		TotalChunks:   1,
		TotalDuration: 15,
	}

	if err := w.Export(summary); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(w.Path("sess-1"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "A short meeting.") {
		t.Errorf("expected summary in content, got: %s", content)
	}
	if !strings.Contains(content, "Speaker_1: Hello world.") {
		t.Errorf("expected transcript in content, got: %s", content)
	}
	if !strings.Contains(content, "**Kubernetes**") {
		t.Errorf("expected key terms in content, got: %s", content)
	}
}

func TestWriterExportOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	first := annotate.MeetingSummary{SessionID: "sess-1", FinalSummary: "First pass."}
	second := annotate.MeetingSummary{SessionID: "sess-1", FinalSummary: "Second pass."}

	if err := w.Export(first); err != nil {
		t.Fatalf("first Export failed: %v", err)
	}
	if err := w.Export(second); err != nil {
		t.Fatalf("second Export failed: %v", err)
	}

	data, err := os.ReadFile(w.Path("sess-1"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(data), "First pass.") {
		t.Errorf("expected overwrite, found stale content")
	}
	if !strings.Contains(string(data), "Second pass.") {
		t.Errorf("expected new content, got: %s", string(data))
	}
}
