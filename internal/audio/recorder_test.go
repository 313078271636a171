package audio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRecorderProducesOutputFile(t *testing.T) {
	dir := t.TempDir()
	recorder := NewRecorder(dir, 16000)

	recorder.encode = func(rawPath, sessionID string) (string, error) {
		data, err := os.ReadFile(rawPath)
		if err != nil {
			return "", err
		}
		out := filepath.Join(dir, sessionID+".mp3")
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return "", err
		}
		return out, nil
	}

	if err := recorder.StartSession("abc123"); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if err := recorder.WriteSamples([]int16{1, 2, 3}); err != nil {
		t.Fatalf("WriteSamples failed: %v", err)
	}

	path, err := recorder.EndSession()
	if err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if path == "" {
		t.Fatal("expected output path")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output file failed: %v", err)
	}
	if info.Size() != 6 {
		t.Fatalf("expected 6 bytes of pcm, got %d", info.Size())
	}
}

func TestRecorderCleansUpRawFile(t *testing.T) {
	dir := t.TempDir()
	recorder := NewRecorder(dir, 16000)
	recorder.encode = func(rawPath, sessionID string) (string, error) {
		out := filepath.Join(dir, sessionID+".wav")
		return out, os.WriteFile(out, []byte("ok"), 0o644)
	}

	if err := recorder.StartSession("cleanup"); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := recorder.WriteSamples([]int16{7, 8, 9}); err != nil {
		t.Fatalf("WriteSamples failed: %v", err)
	}

	if _, err := recorder.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "cleanup.pcm")); !os.IsNotExist(err) {
		t.Fatalf("expected raw pcm temp file cleanup, stat err = %v", err)
	}
}

func TestRecorderWithoutSessionDropsSamples(t *testing.T) {
	recorder := NewRecorder(t.TempDir(), 16000)

	if err := recorder.WriteSamples([]int16{1, 2}); err != nil {
		t.Fatalf("WriteSamples failed: %v", err)
	}

	path, err := recorder.EndSession()
	if err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if path != "" {
		t.Fatalf("expected empty path without session, got %q", path)
	}
}
