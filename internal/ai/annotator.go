package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
)

const (
	emotionPrompt = "Classify the emotional tone of the following meeting speech. " +
		"Respond with only a JSON object mapping emotion labels (neutral, joy, sadness, anger, fear, surprise) " +
		"to scores between 0 and 1 that sum to 1."

	keyTermPrompt = "Extract domain-specific technical terms and jargon from the following meeting transcript. " +
		"Respond with only a JSON array of objects with fields \"term\" (string) and \"score\" (relevance between 0 and 1)."

	entityPrompt = "Extract named entities (products, organizations, technologies, people) from the following meeting transcript. " +
		"Respond with only a JSON array of objects with fields \"text\" (string) and \"label\" (entity type)."
)

// LanguageAnnotator implements emotion classification, key-term extraction
// and named-entity extraction over one chat-completion client.
type LanguageAnnotator struct {
	client *openai.Client
	model  string
	sleep  func(time.Duration)
}

func NewLanguageAnnotator(apiKey, model string) *LanguageAnnotator {
	return NewLanguageAnnotatorWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewLanguageAnnotatorWithConfig(config openai.ClientConfig, model string) *LanguageAnnotator {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}

	return &LanguageAnnotator{
		client: openai.NewClientWithConfig(config),
		model:  model,
		sleep:  time.Sleep,
	}
}

func (a *LanguageAnnotator) ClassifyEmotion(ctx context.Context, text string) (map[string]float64, error) {
	raw, err := a.complete(ctx, emotionPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("emotion classification: %w", err)
	}

	var scores map[string]float64
	if err := json.Unmarshal([]byte(stripFences(raw)), &scores); err != nil {
		return nil, fmt.Errorf("parse emotion scores: %w", err)
	}
	return scores, nil
}

func (a *LanguageAnnotator) ExtractKeyTerms(ctx context.Context, text string) ([]annotate.KeyTerm, error) {
	raw, err := a.complete(ctx, keyTermPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("key term extraction: %w", err)
	}

	var terms []annotate.KeyTerm
	if err := json.Unmarshal([]byte(stripFences(raw)), &terms); err != nil {
		return nil, fmt.Errorf("parse key terms: %w", err)
	}
	return terms, nil
}

func (a *LanguageAnnotator) ExtractEntities(ctx context.Context, text string) ([]annotate.Entity, error) {
	raw, err := a.complete(ctx, entityPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("entity extraction: %w", err)
	}

	var entities []annotate.Entity
	if err := json.Unmarshal([]byte(stripFences(raw)), &entities); err != nil {
		return nil, fmt.Errorf("parse entities: %w", err)
	}
	return entities, nil
}

func (a *LanguageAnnotator) complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	var lastErr error
	for attempt := 0; attempt < len(retryBackoff); attempt++ {
		resp, err := a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("no choices in response")
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}

		lastErr = err
		if attempt < len(retryBackoff)-1 {
			a.sleep(retryBackoff[attempt])
		}
	}

	return "", fmt.Errorf("completion failed after retries: %w", lastErr)
}

// stripFences unwraps a markdown code fence the model sometimes adds around
// JSON output.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
