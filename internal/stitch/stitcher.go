// Package stitch combines a session's annotated chunks into one ordered
// transcript and meeting summary.
package stitch

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ronypadmani/AI-meeting-Assistant/internal/annotate"
)

const (
	maxJargonSummaryTerms = 20

	chunkSummaryMaxLen = 150
	chunkSummaryMinLen = 30
	finalSummaryMaxLen = 200
	finalSummaryMinLen = 50
)

// Stitcher aggregates chunks. It never calls annotation collaborators other
// than the summarizer, and a missing or failing summarizer degrades to an
// extractive reduction instead of failing the summary.
type Stitcher struct {
	summarizer      annotate.Summarizer
	maxSummaryInput int
}

func New(summarizer annotate.Summarizer, maxSummaryInput int) *Stitcher {
	if maxSummaryInput <= 0 {
		maxSummaryInput = 1024
	}
	return &Stitcher{summarizer: summarizer, maxSummaryInput: maxSummaryInput}
}

// Stitch builds the meeting summary from a session's persisted chunks.
// Chunks marked failed are excluded; the remainder is sorted by chunk id so
// dropped chunks never break ordering. Recomputation over an unchanged chunk
// set is deterministic aside from the timestamp.
func (s *Stitcher) Stitch(ctx context.Context, sessionID string, chunks []annotate.AnnotatedChunk) annotate.MeetingSummary {
	completed := make([]annotate.AnnotatedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.ProcessingStatus == annotate.StatusCompleted {
			completed = append(completed, chunk)
		}
	}

	if len(completed) == 0 {
		return emptySummary(sessionID)
	}

	sort.Slice(completed, func(i, j int) bool { return completed[i].ChunkID < completed[j].ChunkID })

	var totalDuration float64
	micro := make([]string, 0, len(completed))
	for _, chunk := range completed {
		totalDuration += chunk.Duration
		if strings.TrimSpace(chunk.MicroSummary) != "" {
			micro = append(micro, strings.TrimSpace(chunk.MicroSummary))
		}
	}

	return annotate.MeetingSummary{
		SessionID:          sessionID,
		Timestamp:          time.Now().UTC(),
		CombinedTranscript: combineTranscripts(completed),
		FinalSummary:       s.finalSummary(ctx, strings.Join(micro, " ")),
		SpeakersSummary:    speakersSummary(completed),
		EmotionsSummary:    combineEmotions(completed),
		JargonSummary:      combineJargon(completed),
		TotalChunks:        len(completed),
		TotalDuration:      totalDuration,
		MeetingMetadata: map[string]any{
			"chunk_range": map[string]int{
				"start": completed[0].ChunkID,
				"end":   completed[len(completed)-1].ChunkID,
			},
			"speaker_consistency_applied": true,
		},
	}
}

func emptySummary(sessionID string) annotate.MeetingSummary {
	return annotate.MeetingSummary{
		SessionID:          sessionID,
		Timestamp:          time.Now().UTC(),
		CombinedTranscript: "No content recorded.",
		FinalSummary:       "No meeting content was captured.",
		SpeakersSummary:    map[string]annotate.SpeakerSummary{},
		EmotionsSummary:    map[string]float64{},
		JargonSummary:      nil,
		TotalChunks:        0,
		TotalDuration:      0.0,
		MeetingMetadata:    map[string]any{"empty_session": true},
	}
}

// combineTranscripts renders each chunk behind a [mm:ss] prefix from its
// session-relative start offset, one line per speaker when grouping exists,
// joined in chunk order.
func combineTranscripts(chunks []annotate.AnnotatedChunk) string {
	var lines []string

	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Transcript.FullText) == "" {
			continue
		}

		start := int(chunk.StartTime)
		prefix := fmt.Sprintf("[%02d:%02d]", start/60, start%60)

		if len(chunk.Speakers.SpeakerMapping) > 0 {
			speakers := make([]string, 0, len(chunk.Speakers.SpeakerMapping))
			for speaker := range chunk.Speakers.SpeakerMapping {
				speakers = append(speakers, speaker)
			}
			sort.Strings(speakers)

			for _, speaker := range speakers {
				parts := make([]string, 0, len(chunk.Speakers.SpeakerMapping[speaker]))
				for _, seg := range chunk.Speakers.SpeakerMapping[speaker] {
					if t := strings.TrimSpace(seg.Text); t != "" {
						parts = append(parts, t)
					}
				}
				if len(parts) > 0 {
					lines = append(lines, fmt.Sprintf("%s %s: %s", prefix, speaker, strings.Join(parts, " ")))
				}
			}
		} else {
			lines = append(lines, fmt.Sprintf("%s %s", prefix, chunk.Transcript.FullText))
		}
	}

	return strings.Join(lines, "\n")
}

func speakersSummary(chunks []annotate.AnnotatedChunk) map[string]annotate.SpeakerSummary {
	type accum struct {
		segments  int
		duration  float64
		words     int
		emotions  []string
		firstSeen int
	}

	data := make(map[string]*accum)
	order := 0

	for _, chunk := range chunks {
		for speaker, segments := range chunk.Speakers.SpeakerMapping {
			a, ok := data[speaker]
			if !ok {
				a = &accum{firstSeen: order}
				order++
				data[speaker] = a
			}

			for _, seg := range segments {
				a.segments++
				a.duration += seg.End - seg.Start
				a.words += len(strings.Fields(seg.Text))
			}

			if score, ok := chunk.Emotions[speaker]; ok {
				a.emotions = append(a.emotions, score.DominantEmotion)
			}
		}
	}

	out := make(map[string]annotate.SpeakerSummary, len(data))
	for speaker, a := range data {
		dominant, distribution := dominantEmotion(a.emotions)
		out[speaker] = annotate.SpeakerSummary{
			SpeakerID:           speaker,
			TotalSegments:       a.segments,
			TotalDuration:       a.duration,
			WordCount:           a.words,
			DominantEmotion:     dominant,
			EmotionDistribution: distribution,
		}
	}
	return out
}

// dominantEmotion takes the mode over per-chunk dominant emotions, ties
// broken by first occurrence. No observations default to neutral/1.0.
func dominantEmotion(observed []string) (string, map[string]float64) {
	if len(observed) == 0 {
		return "neutral", map[string]float64{"neutral": 1.0}
	}

	counts := make(map[string]int, len(observed))
	var firstOrder []string
	for _, emotion := range observed {
		if _, ok := counts[emotion]; !ok {
			firstOrder = append(firstOrder, emotion)
		}
		counts[emotion]++
	}

	dominant := firstOrder[0]
	for _, emotion := range firstOrder {
		if counts[emotion] > counts[dominant] {
			dominant = emotion
		}
	}

	distribution := make(map[string]float64, len(counts))
	for emotion, count := range counts {
		distribution[emotion] = float64(count) / float64(len(observed))
	}
	return dominant, distribution
}

// combineEmotions is the unweighted mean of each emotion label's score over
// every (chunk, speaker) entry. Not weighted by duration or segment count.
func combineEmotions(chunks []annotate.AnnotatedChunk) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, chunk := range chunks {
		for _, score := range chunk.Emotions {
			for emotion, value := range score.AllEmotions {
				sums[emotion] += value
				counts[emotion]++
			}
		}
	}

	out := make(map[string]float64, len(sums))
	for emotion, sum := range sums {
		out[emotion] = sum / float64(counts[emotion])
	}
	return out
}

// combineJargon dedups by case-insensitive term keeping the highest-score
// occurrence, sorts descending by score, and keeps the top 20.
func combineJargon(chunks []annotate.AnnotatedChunk) []annotate.JargonTerm {
	best := make(map[string]annotate.JargonTerm)
	var order []string

	for _, chunk := range chunks {
		for _, term := range chunk.Jargon {
			key := strings.ToLower(term.Term)
			existing, ok := best[key]
			if !ok {
				order = append(order, key)
				best[key] = term
				continue
			}
			if term.Score > existing.Score {
				best[key] = term
			}
		}
	}

	merged := make([]annotate.JargonTerm, 0, len(order))
	for _, key := range order {
		merged = append(merged, best[key])
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > maxJargonSummaryTerms {
		merged = merged[:maxJargonSummaryTerms]
	}
	return merged
}

// finalSummary reduces the concatenated micro-summaries through the
// summarizer, windowing over-long input and combining per-window summaries
// with a second pass. Missing or failing summarizer degrades to an
// extractive reduction.
func (s *Stitcher) finalSummary(ctx context.Context, combined string) string {
	combined = strings.TrimSpace(combined)
	if combined == "" {
		return "No content to summarize."
	}
	if s.summarizer == nil {
		return extractiveReduce(combined)
	}

	runes := []rune(combined)
	var summaries []string
	for start := 0; start < len(runes); start += s.maxSummaryInput {
		end := start + s.maxSummaryInput
		if end > len(runes) {
			end = len(runes)
		}
		window := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(window) <= 50 {
			continue
		}

		summary, err := s.summarizer.Summarize(ctx, window, chunkSummaryMaxLen, chunkSummaryMinLen)
		if err != nil {
			log.Printf("warning: final summary window failed, using extractive fallback: %v", err)
			return extractiveReduce(combined)
		}
		summaries = append(summaries, strings.TrimSpace(summary))
	}

	switch len(summaries) {
	case 0:
		return extractiveReduce(combined)
	case 1:
		return summaries[0]
	}

	joined := strings.Join(summaries, " ")
	if utf8.RuneCountInString(joined) <= finalSummaryMaxLen {
		return joined
	}

	final, err := s.summarizer.Summarize(ctx, joined, finalSummaryMaxLen, finalSummaryMinLen)
	if err != nil {
		log.Printf("warning: final summary second pass failed, returning joined windows: %v", err)
		return joined
	}
	return strings.TrimSpace(final)
}

// extractiveReduce keeps the first few sentences of the combined text.
func extractiveReduce(text string) string {
	sentences := strings.Split(text, ".")
	keep := sentences
	if len(keep) > 3 {
		keep = keep[:3]
	}
	for i := range keep {
		keep[i] = strings.TrimSpace(keep[i])
	}
	out := strings.Join(keep, ". ")
	out = strings.TrimSuffix(out, ".")
	return strings.TrimSpace(out) + "."
}
