package ai

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	listenv1rest "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
	"github.com/ronypadmani/AI-meeting-Assistant/internal/audio"
)

// Deepgram diarizes chunk audio through the Deepgram prerecorded API. Each
// utterance becomes one speaker turn; the speaker labels are chunk-local.
type Deepgram struct {
	dg    *listenv1rest.Client
	model string
}

func NewDeepgram(apiKey, model string) *Deepgram {
	if strings.TrimSpace(model) == "" {
		model = "nova-2"
	}

	c := client.NewREST(apiKey, &interfaces.ClientOptions{})
	return &Deepgram{dg: listenv1rest.New(c), model: model}
}

func (d *Deepgram) Diarize(ctx context.Context, samples []int16, sampleRate int) ([]annotate.Turn, error) {
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:      d.model,
		Diarize:    true,
		Utterances: true,
		Punctuate:  true,
	}

	res, err := d.dg.FromStream(ctx, bytes.NewReader(audio.EncodeWAV(samples, sampleRate)), options)
	if err != nil {
		return nil, fmt.Errorf("deepgram prerecorded: %w", err)
	}
	if res == nil || res.Results == nil {
		return nil, nil
	}

	turns := make([]annotate.Turn, 0, len(res.Results.Utterances))
	for _, u := range res.Results.Utterances {
		if strings.TrimSpace(u.Transcript) == "" {
			continue
		}
		turns = append(turns, annotate.Turn{
			Start: u.Start,
			End:   u.End,
			Label: fmt.Sprintf("speaker_%d", u.Speaker),
		})
	}
	return turns, nil
}
