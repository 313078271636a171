package annotate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Label assigned to transcript segments when diarization is unavailable or
// finds no overlapping turn.
const FallbackSpeakerLabel = "speaker_0"

// Stage collaborators. Each is a black box; a nil collaborator degrades the
// stage rather than failing the chunk (see the fallbacks below).

type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16, sampleRate int) (Transcript, error)
}

type Diarizer interface {
	Diarize(ctx context.Context, samples []int16, sampleRate int) ([]Turn, error)
}

type EmotionClassifier interface {
	ClassifyEmotion(ctx context.Context, text string) (map[string]float64, error)
}

type KeyTermExtractor interface {
	ExtractKeyTerms(ctx context.Context, text string) ([]KeyTerm, error)
}

type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) ([]Entity, error)
}

type DefinitionLookup interface {
	LookupDefinition(ctx context.Context, term string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
}

type KeyTerm struct {
	Term  string
	Score float64
}

type Entity struct {
	Text  string
	Label string
}

// entityScore is the fixed score assigned to named-entity jargon candidates.
const entityScore = 0.7

// Pipeline runs the five annotation stages over one chunk. Failure of any
// stage fails the whole chunk; no partial stage outputs are kept.
type Pipeline struct {
	transcriber Transcriber
	diarizer    Diarizer
	emotions    EmotionClassifier
	keyTerms    KeyTermExtractor
	entities    EntityExtractor
	definitions DefinitionLookup
	summarizer  Summarizer

	stageTimeout  time.Duration
	minScore      float64
	maxTerms      int
	maxSummaryIn  int
	microMaxWords int
}

// Options configures pipeline thresholds. Zero values pick the defaults the
// system has always used.
type Options struct {
	StageTimeout    time.Duration
	MinJargonScore  float64
	MaxJargonTerms  int
	MaxSummaryInput int
}

func NewPipeline(
	transcriber Transcriber,
	diarizer Diarizer,
	emotions EmotionClassifier,
	keyTerms KeyTermExtractor,
	entities EntityExtractor,
	definitions DefinitionLookup,
	summarizer Summarizer,
	opts Options,
) *Pipeline {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 60 * time.Second
	}
	if opts.MinJargonScore <= 0 {
		opts.MinJargonScore = 0.5
	}
	if opts.MaxJargonTerms <= 0 {
		opts.MaxJargonTerms = 10
	}
	if opts.MaxSummaryInput <= 0 {
		opts.MaxSummaryInput = 1024
	}

	return &Pipeline{
		transcriber:  transcriber,
		diarizer:     diarizer,
		emotions:     emotions,
		keyTerms:     keyTerms,
		entities:     entities,
		definitions:  definitions,
		summarizer:   summarizer,
		stageTimeout: opts.StageTimeout,
		minScore:     opts.MinJargonScore,
		maxTerms:     opts.MaxJargonTerms,
		maxSummaryIn: opts.MaxSummaryInput,
	}
}

// Annotate runs every stage over the chunk. The returned AnnotatedChunk has
// ProcessingStatus completed, or failed with the stage error retained and all
// stage outputs discarded.
func (p *Pipeline) Annotate(ctx context.Context, chunk AudioChunk) AnnotatedChunk {
	out := AnnotatedChunk{
		ChunkID:   chunk.ChunkID,
		Timestamp: chunk.Timestamp,
		StartTime: chunk.StartOffset,
		EndTime:   chunk.EndOffset,
		Duration:  chunk.Duration,
	}

	transcript, err := p.runTranscription(ctx, chunk)
	if err != nil {
		return failed(out, fmt.Errorf("transcription: %w", err))
	}

	speakers, err := p.runSpeakerID(ctx, chunk, transcript.Segments)
	if err != nil {
		return failed(out, fmt.Errorf("speaker identification: %w", err))
	}

	emotions, err := p.runEmotions(ctx, speakers.SpeakerMapping)
	if err != nil {
		return failed(out, fmt.Errorf("emotion detection: %w", err))
	}

	jargon, err := p.runJargon(ctx, transcript.FullText)
	if err != nil {
		return failed(out, fmt.Errorf("jargon detection: %w", err))
	}

	micro, err := p.runMicroSummary(ctx, transcript.FullText)
	if err != nil {
		return failed(out, fmt.Errorf("micro summary: %w", err))
	}

	out.Transcript = transcript
	out.Speakers = speakers
	out.Emotions = emotions
	out.Jargon = jargon
	out.MicroSummary = micro
	out.ProcessingStatus = StatusCompleted
	return out
}

func failed(out AnnotatedChunk, err error) AnnotatedChunk {
	return AnnotatedChunk{
		ChunkID:          out.ChunkID,
		Timestamp:        out.Timestamp,
		StartTime:        out.StartTime,
		EndTime:          out.EndTime,
		Duration:         out.Duration,
		ProcessingStatus: StatusFailed,
		Error:            err.Error(),
	}
}

func (p *Pipeline) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.stageTimeout)
}

func (p *Pipeline) runTranscription(ctx context.Context, chunk AudioChunk) (Transcript, error) {
	if p.transcriber == nil {
		return Transcript{}, fmt.Errorf("no transcriber configured")
	}

	sctx, cancel := p.stageCtx(ctx)
	defer cancel()

	transcript, err := p.transcriber.Transcribe(sctx, chunk.Samples, chunk.SampleRate)
	if err != nil {
		return Transcript{}, err
	}

	if transcript.FullText == "" && len(transcript.Segments) > 0 {
		parts := make([]string, 0, len(transcript.Segments))
		for _, seg := range transcript.Segments {
			if t := strings.TrimSpace(seg.Text); t != "" {
				parts = append(parts, t)
			}
		}
		transcript.FullText = strings.Join(parts, " ")
	}

	return transcript, nil
}

// runSpeakerID maps diarization turns onto transcript segments by temporal
// overlap (segment.start < turn.end && segment.end > turn.start, first match
// wins). Without a diarizer the chunk is treated as one speaker.
func (p *Pipeline) runSpeakerID(ctx context.Context, chunk AudioChunk, segments []Segment) (SpeakerInfo, error) {
	if p.diarizer == nil {
		return singleSpeaker(segments), nil
	}

	sctx, cancel := p.stageCtx(ctx)
	defer cancel()

	turns, err := p.diarizer.Diarize(sctx, chunk.Samples, chunk.SampleRate)
	if err != nil {
		return SpeakerInfo{}, err
	}
	if len(turns) == 0 {
		return singleSpeaker(segments), nil
	}

	info := SpeakerInfo{SpeakerMapping: make(map[string][]Segment)}
	seen := make(map[string]struct{})

	for _, seg := range segments {
		label := FallbackSpeakerLabel
		for _, turn := range turns {
			if seg.Start < turn.End && seg.End > turn.Start {
				label = turn.Label
				break
			}
		}

		seg.Speaker = label
		info.SpeakerSegments = append(info.SpeakerSegments, seg)
		info.SpeakerMapping[label] = append(info.SpeakerMapping[label], seg)
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			info.Speakers = append(info.Speakers, label)
		}
	}

	return info, nil
}

func singleSpeaker(segments []Segment) SpeakerInfo {
	info := SpeakerInfo{
		Speakers:       []string{FallbackSpeakerLabel},
		SpeakerMapping: map[string][]Segment{FallbackSpeakerLabel: nil},
	}
	for _, seg := range segments {
		seg.Speaker = FallbackSpeakerLabel
		info.SpeakerSegments = append(info.SpeakerSegments, seg)
		info.SpeakerMapping[FallbackSpeakerLabel] = append(info.SpeakerMapping[FallbackSpeakerLabel], seg)
	}
	return info
}

// runEmotions classifies the concatenated text of each speaker. Empty text or
// a missing classifier yields a neutral zero-confidence score.
func (p *Pipeline) runEmotions(ctx context.Context, mapping map[string][]Segment) (map[string]EmotionScore, error) {
	emotions := make(map[string]EmotionScore, len(mapping))

	for speaker, segments := range mapping {
		parts := make([]string, 0, len(segments))
		for _, seg := range segments {
			parts = append(parts, seg.Text)
		}
		combined := strings.TrimSpace(strings.Join(parts, " "))

		if combined == "" {
			emotions[speaker] = EmotionScore{DominantEmotion: "neutral", AllEmotions: map[string]float64{}}
			continue
		}
		if p.emotions == nil {
			emotions[speaker] = EmotionScore{DominantEmotion: "neutral", AllEmotions: map[string]float64{"neutral": 1.0}}
			continue
		}

		sctx, cancel := p.stageCtx(ctx)
		scores, err := p.emotions.ClassifyEmotion(sctx, combined)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", speaker, err)
		}

		dominant, confidence := "neutral", 0.0
		for label, score := range scores {
			if score > confidence {
				dominant, confidence = label, score
			}
		}
		emotions[speaker] = EmotionScore{
			DominantEmotion: dominant,
			Confidence:      confidence,
			AllEmotions:     scores,
		}
	}

	return emotions, nil
}

// runJargon merges threshold-filtered key terms with named entities not
// already present (case-insensitively), enriches each with a best-effort
// definition, and truncates to the configured maximum.
func (p *Pipeline) runJargon(ctx context.Context, fullText string) ([]JargonTerm, error) {
	if strings.TrimSpace(fullText) == "" {
		return nil, nil
	}

	var terms []JargonTerm
	have := make(map[string]struct{})

	if p.keyTerms != nil {
		sctx, cancel := p.stageCtx(ctx)
		candidates, err := p.keyTerms.ExtractKeyTerms(sctx, fullText)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("key terms: %w", err)
		}

		for _, kt := range candidates {
			if kt.Score < p.minScore {
				continue
			}
			terms = append(terms, JargonTerm{
				Term:       kt.Term,
				Score:      kt.Score,
				Definition: p.lookupDefinition(ctx, kt.Term),
				Source:     "keyterms",
			})
			have[strings.ToLower(kt.Term)] = struct{}{}
		}
	}

	if p.entities != nil {
		sctx, cancel := p.stageCtx(ctx)
		entities, err := p.entities.ExtractEntities(sctx, fullText)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("entities: %w", err)
		}

		for _, ent := range entities {
			if _, ok := have[strings.ToLower(ent.Text)]; ok {
				continue
			}
			have[strings.ToLower(ent.Text)] = struct{}{}
			terms = append(terms, JargonTerm{
				Term:       ent.Text,
				Score:      entityScore,
				Definition: p.lookupDefinition(ctx, ent.Text),
				Source:     "entities",
				EntityType: ent.Label,
			})
		}
	}

	sort.SliceStable(terms, func(i, j int) bool { return terms[i].Score > terms[j].Score })
	if len(terms) > p.maxTerms {
		terms = terms[:p.maxTerms]
	}
	return terms, nil
}

// lookupDefinition never fails the stage; a missing or erroring lookup
// produces the generic definition.
func (p *Pipeline) lookupDefinition(ctx context.Context, term string) string {
	generic := "Technical term: " + term
	if p.definitions == nil {
		return generic
	}

	sctx, cancel := p.stageCtx(ctx)
	defer cancel()

	def, err := p.definitions.LookupDefinition(sctx, term)
	if err != nil || strings.TrimSpace(def) == "" {
		return generic
	}
	return def
}

// runMicroSummary produces a 1-2 sentence summary of the chunk, falling back
// to the first sentence or a truncation when the text is short or no
// summarizer is configured.
func (p *Pipeline) runMicroSummary(ctx context.Context, fullText string) (string, error) {
	text := strings.TrimSpace(fullText)
	if text == "" {
		return "No content to summarize.", nil
	}

	if p.summarizer != nil && len(text) > 50 {
		input := text
		if runes := []rune(input); len(runes) > p.maxSummaryIn {
			input = string(runes[:p.maxSummaryIn])
		}

		sctx, cancel := p.stageCtx(ctx)
		summary, err := p.summarizer.Summarize(sctx, input, 50, 10)
		cancel()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary), nil
		}
	}

	return ExtractiveFallback(text), nil
}

// ExtractiveFallback returns the first sentence of text, or a truncation when
// no usable sentence exists. Shared with the aggregator's degraded path.
func ExtractiveFallback(text string) string {
	sentences := strings.Split(text, ".")
	if len(sentences) > 0 && len(strings.TrimSpace(sentences[0])) > 10 {
		return strings.TrimSpace(sentences[0]) + "."
	}
	if runes := []rune(text); len(runes) > 100 {
		return string(runes[:100]) + "..."
	}
	return text
}
