package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Summarizer produces chunk micro-summaries and the final meeting summary
// through chat completions. The backing provider is pluggable; OpenAI is the
// default.
type Summarizer struct {
	client CompletionClient
	sleep  func(time.Duration)
}

func NewSummarizer(apiKey, model string) *Summarizer {
	return NewSummarizerWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewSummarizerWithConfig(config openai.ClientConfig, model string) *Summarizer {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}

	return &Summarizer{
		client: &openaiCompletion{client: openai.NewClientWithConfig(config), model: model},
		sleep:  time.Sleep,
	}
}

// NewSummarizerForModel builds a summarizer from a "provider/model_name" spec
// such as "anthropic/claude-sonnet-4-5" or "gemini/gemini-2.5-flash". A bare
// model name selects OpenAI.
func NewSummarizerForModel(spec, apiKey string) (*Summarizer, error) {
	provider, model, err := ParseModel(spec)
	if err != nil {
		return nil, err
	}

	client, err := NewCompletionClient(provider, apiKey, model)
	if err != nil {
		return nil, err
	}

	return &Summarizer{client: client, sleep: time.Sleep}, nil
}

func (s *Summarizer) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	messages := []Message{
		{
			Role: "system",
			Content: fmt.Sprintf(
				"Summarize the following meeting speech in %d to %d characters. Respond with only the summary.",
				minLen, maxLen,
			),
		},
		{Role: "user", Content: text},
	}

	var lastErr error
	for attempt := 0; attempt < len(retryBackoff); attempt++ {
		result, err := s.client.Complete(ctx, messages)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if attempt < len(retryBackoff)-1 {
			s.sleep(retryBackoff[attempt])
		}
	}

	return "", fmt.Errorf("summary failed after retries: %w", lastErr)
}
