package ai

import (
	"context"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

func TestSummarizeReturnsContent(t *testing.T) {
	server := chatServer(t, "The team agreed on the release date.")
	defer server.Close()

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"

	s := NewSummarizerWithConfig(config, "gpt-4o-mini")
	s.sleep = func(time.Duration) {}

	got, err := s.Summarize(context.Background(), "long meeting discussion about releases", 150, 30)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "The team agreed on the release date." {
		t.Fatalf("unexpected summary: %q", got)
	}
}
