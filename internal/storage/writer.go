package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
)

// Writer exports finalized meeting summaries as markdown files, one file per
// session. Re-finalizing a session overwrites its file.
type Writer struct {
	dir string
	mu  sync.Mutex
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Export(summary annotate.MeetingSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", w.dir, err)
	}

	path := w.Path(summary.SessionID)
	if err := os.WriteFile(path, []byte(formatMarkdown(summary)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func (w *Writer) Path(sessionID string) string {
	return filepath.Join(w.dir, "meeting-"+sessionID+".md")
}

func formatMarkdown(summary annotate.MeetingSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Meeting %s\n\n", summary.SessionID)
	fmt.Fprintf(&b, "%s (%d chunks, %.0f seconds)\n\n", summary.Timestamp.Format("2006-01-02 15:04 MST"), summary.TotalChunks, summary.TotalDuration)

	fmt.Fprintf(&b, "## Summary\n\n%s\n\n", summary.FinalSummary)

	if len(summary.JargonSummary) > 0 {
		b.WriteString("## Key Terms\n\n")
		for _, term := range summary.JargonSummary {
			fmt.Fprintf(&b, "- **%s**: %s\n", term.Term, term.Definition)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Transcript\n\n%s\n", summary.CombinedTranscript)

	return b.String()
}
