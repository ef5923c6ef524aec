// Package timeline reconciles the voiceover, scenes and captions into the one
// authoritative TotalDuration and the visual track that fills it exactly.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/rs/zerolog"
)

// MinSegmentDuration is the floor applied to invalid or clipped segments.
const MinSegmentDuration = 0.1

// DefaultTrailingBuffer is added after the last caption or scene end.
const DefaultTrailingBuffer = 0.5

// Prober measures media durations in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Clip is a materialized visual asset paired with its scene's declared length.
type Clip struct {
	Path       string
	Type       models.AssetType
	Declared   float64
	SceneIndex int
}

// Builder computes durations and visual segments for a job.
type Builder struct {
	log            zerolog.Logger
	trailingBuffer float64
}

func NewBuilder(log zerolog.Logger, trailingBuffer float64) *Builder {
	if trailingBuffer < 0 || math.IsNaN(trailingBuffer) || math.IsInf(trailingBuffer, 0) {
		trailingBuffer = DefaultTrailingBuffer
	}
	return &Builder{
		log:            log.With().Str("component", "timeline").Logger(),
		trailingBuffer: trailingBuffer,
	}
}

// VoiceoverDuration probes the voiceover. A missing or empty file is fatal.
// When the probe itself fails, the API-declared duration is used if positive.
func (b *Builder) VoiceoverDuration(ctx context.Context, prober Prober, path string, declared float64) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, models.NewError(models.KindAudioProbe, "stat voiceover", err)
	}
	if info.Size() == 0 {
		return 0, models.NewError(models.KindAudioProbe, "stat voiceover", errors.New("voiceover file is empty"))
	}

	d, err := prober.Duration(ctx, path)
	if err == nil && finite(d) && d > 0 {
		return d, nil
	}
	if err == nil {
		err = fmt.Errorf("probe returned invalid duration %v", d)
	}

	if finite(declared) && declared > 0 {
		b.log.Warn().Err(err).Float64("declared", declared).Msg("voiceover probe failed, using declared duration")
		return declared, nil
	}
	return 0, models.NewError(models.KindAudioProbe, "probe voiceover", err)
}

// TotalDuration is max(voiceover, latest scene/word end + trailing buffer).
// words should be the uncapped derived list.
func (b *Builder) TotalDuration(voiceover float64, scenes []models.SceneDescriptor, words []models.Word) float64 {
	var span float64
	for _, sc := range scenes {
		if finite(sc.SegmentEnd) && sc.SegmentEnd > span {
			span = sc.SegmentEnd
		}
	}
	for _, w := range words {
		if finite(w.End) && w.End > span {
			span = w.End
		}
	}

	total := voiceover
	if span > 0 && span+b.trailingBuffer > total {
		total = span + b.trailingBuffer
	}

	b.log.Debug().
		Float64("voiceover", voiceover).
		Float64("caption_span", span).
		Float64("total", total).
		Msg("total duration computed")

	return total
}

// BuildSegments lays clips end to end so their durations sum to total.
// Clips keep their declared duration; the last one absorbs the remainder.
// A clip that would overshoot, or leave less than MinSegmentDuration for
// what follows, is clipped to the remainder and ends the track.
func (b *Builder) BuildSegments(total float64, clips []Clip) ([]models.VisualSegment, error) {
	if len(clips) == 0 {
		return nil, models.NewError(models.KindEmptyTimeline, "build segments", errors.New("no scenes with usable assets"))
	}
	if !finite(total) || total <= 0 {
		return nil, models.NewError(models.KindEmptyTimeline, "build segments", fmt.Errorf("invalid total duration %v", total))
	}

	segments := make([]models.VisualSegment, 0, len(clips))
	var elapsed float64

	for i, c := range clips {
		d := c.Declared
		if !finite(d) || d <= 0 {
			b.log.Warn().Int("scene", c.SceneIndex).Float64("declared", d).Msg("invalid segment duration, clamping")
			d = MinSegmentDuration
		}

		remaining := total - elapsed
		last := i == len(clips)-1

		switch {
		case last:
			if remaining < d {
				b.log.Warn().Int("scene", c.SceneIndex).Float64("declared", d).Float64("remaining", remaining).Msg("last segment clipped to total")
			}
			d = remaining
		case remaining-d < MinSegmentDuration:
			b.log.Warn().
				Int("scene", c.SceneIndex).
				Int("dropped", len(clips)-i-1).
				Msg("segment overshoots total duration, truncating timeline")
			d = remaining
			last = true
		}

		segments = append(segments, models.VisualSegment{
			AssetPath:  c.Path,
			AssetType:  c.Type,
			Duration:   d,
			Position:   i,
			SceneIndex: c.SceneIndex,
		})
		elapsed += d

		if last {
			break
		}
	}

	return segments, nil
}

// Sum returns the total duration of segments.
func Sum(segments []models.VisualSegment) float64 {
	var s float64
	for _, seg := range segments {
		s += seg.Duration
	}
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
