// Package captions turns scene text into timed, positioned caption slides and
// the subtitle document that burns them into the video.
package captions

import (
	"math"
	"sort"
	"strings"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/rs/zerolog"
)

const (
	// WordGap is the minimum gap between consecutive words.
	WordGap = 0.005
	// MinWordDuration is the shortest a word may be shown.
	MinWordDuration = 0.1
)

// Engine is the caption layout engine. It carries only a logger; every
// result is a pure function of its inputs.
type Engine struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "captions").Logger()}
}

// DeriveWords builds the canonical word list for a job. Scenes with word
// timestamps use them; the rest split their window evenly over their words.
// The list is sorted, repaired so words never overlap, and capped to total.
func (e *Engine) DeriveWords(scenes []models.SceneDescriptor, total float64) []models.Word {
	var words []models.Word

	for i, sc := range scenes {
		if len(sc.Words) > 0 {
			for _, wt := range sc.Words {
				text := strings.TrimSpace(wt.Word)
				if text == "" {
					continue
				}
				start, end := wt.Start, wt.End
				if !finite(start) || start < 0 {
					e.log.Warn().Int("scene", i).Str("word", text).Msg("word has invalid start, clamping to 0")
					start = 0
				}
				if !finite(end) {
					end = start + MinWordDuration
				}
				words = append(words, models.Word{Text: text, Start: start, End: end})
			}
			continue
		}

		tokens := strings.Fields(sc.Text)
		if len(tokens) == 0 {
			continue
		}

		start, end := sc.SegmentStart, sc.SegmentEnd
		if !finite(start) || start < 0 {
			start = 0
		}
		if !finite(end) || end <= start {
			e.log.Warn().
				Int("scene", i).
				Float64("start", sc.SegmentStart).
				Float64("end", sc.SegmentEnd).
				Msg("scene window is empty, spacing words at minimum duration")
			end = start + MinWordDuration*float64(len(tokens))
		}

		step := (end - start) / float64(len(tokens))
		for j, tok := range tokens {
			words = append(words, models.Word{
				Text:  tok,
				Start: start + step*float64(j),
				End:   start + step*float64(j+1),
			})
		}
	}

	return RepairWords(words, total)
}

// RepairWords sorts words by start and runs a single forward pass enforcing
// the minimum gap and duration, then caps every end at total and drops words
// left empty by the cap.
func RepairWords(words []models.Word, total float64) []models.Word {
	out := make([]models.Word, len(words))
	copy(out, words)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })

	for i := range out {
		if i > 0 {
			out[i].Start = math.Max(out[i].Start, out[i-1].End+WordGap)
		}
		out[i].End = math.Max(out[i].Start+MinWordDuration, out[i].End)
	}

	kept := out[:0]
	for _, w := range out {
		if w.End > total {
			w.End = total
		}
		if w.Start >= w.End {
			continue
		}
		kept = append(kept, w)
	}
	return kept
}

// MaxEnd returns the latest end among words, 0 for none.
func MaxEnd(words []models.Word) float64 {
	var m float64
	for _, w := range words {
		if w.End > m {
			m = w.End
		}
	}
	return m
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
