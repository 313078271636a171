// Package ai implements the annotation pipeline's collaborators on top of
// hosted speech and language APIs.
package ai

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/audio"
)

var retryBackoff = []time.Duration{1 * time.Second, 4 * time.Second, 16 * time.Second}

// Whisper transcribes chunk audio through the OpenAI audio API.
type Whisper struct {
	client *openai.Client
	model  string
	sleep  func(time.Duration)
}

func NewWhisper(apiKey, model string) *Whisper {
	return NewWhisperWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewWhisperWithConfig(config openai.ClientConfig, model string) *Whisper {
	if strings.TrimSpace(model) == "" {
		model = openai.Whisper1
	}

	return &Whisper{
		client: openai.NewClientWithConfig(config),
		model:  model,
		sleep:  time.Sleep,
	}
}

func (w *Whisper) Transcribe(ctx context.Context, samples []int16, sampleRate int) (annotate.Transcript, error) {
	req := openai.AudioRequest{
		Model:    w.model,
		FilePath: "chunk.wav",
		Reader:   bytes.NewReader(audio.EncodeWAV(samples, sampleRate)),
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	var resp openai.AudioResponse
	var lastErr error
	for attempt := 0; attempt < len(retryBackoff); attempt++ {
		var err error
		resp, err = w.client.CreateTranscription(ctx, req)
		if err == nil {
			return transcriptFromResponse(resp), nil
		}

		lastErr = err
		req.Reader = bytes.NewReader(audio.EncodeWAV(samples, sampleRate))
		if attempt < len(retryBackoff)-1 {
			w.sleep(retryBackoff[attempt])
		}
	}

	return annotate.Transcript{}, fmt.Errorf("whisper transcription failed after retries: %w", lastErr)
}

func transcriptFromResponse(resp openai.AudioResponse) annotate.Transcript {
	segments := make([]annotate.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, annotate.Segment{
			Start:      seg.Start,
			End:        seg.End,
			Text:       text,
			Confidence: logprobConfidence(seg.AvgLogprob),
		})
	}

	out := annotate.Transcript{
		FullText: strings.TrimSpace(resp.Text),
		Segments: segments,
		Language: resp.Language,
	}
	if out.Language != "" {
		out.LanguageProbability = 1.0
	}
	return out
}

func logprobConfidence(avgLogprob float64) float64 {
	c := math.Exp(avgLogprob)
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}
