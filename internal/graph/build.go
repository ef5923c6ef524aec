package graph

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/bobarin/reelsmith/internal/captions"
	"github.com/bobarin/reelsmith/internal/models"
)

// Output / rendering constants
const (
	FPS = 30

	// DefaultTransition is the crossfade length before capping.
	DefaultTransition = 0.6

	// MinTransition is the shortest crossfade worth rendering; shorter
	// junctions become hard cuts.
	MinTransition = 0.1

	// OffsetEpsilon floors xfade offsets.
	OffsetEpsilon = 0.001

	musicVolume      = 0.5
	watermarkOpacity = 0.2
	watermarkMargin  = 10
	audioSampleRate  = 48000
)

// Final pad names.
const (
	VideoOut = "vout"
	AudioOut = "aout"
)

// Params is everything the graph needs for one render.
type Params struct {
	Segments      []models.VisualSegment
	Total         float64
	Width, Height int
	Profile       models.StyleProfile
	Transition    float64 // 0 uses DefaultTransition
	SubtitlePath  string
	FontsDir      string
	Voiceover     string
	Music         string
	Logo          string
	Progress      *captions.ProgressBar
	Rand          *rand.Rand
}

// Junction records how segment Index is joined to the one before it.
type Junction struct {
	Index      int
	Transition float64 // 0 for a hard cut
	Offset     float64
}

// Plan is a built graph plus the decisions made while building it.
type Plan struct {
	Graph         *Graph
	Motions       []Motion
	RenderLengths []float64
	Junctions     []Junction
}

// Transitions returns the crossfade length into each segment (index 0 is
// always 0). Each is capped to 0.7× the previous and 0.5× the current
// segment, and dropped to a hard cut below MinTransition.
func Transitions(durations []float64, fixed float64) []float64 {
	tds := make([]float64, len(durations))
	for i := 1; i < len(durations); i++ {
		td := math.Min(fixed, math.Min(0.7*durations[i-1], 0.5*durations[i]))
		if td < MinTransition {
			td = 0
		}
		tds[i] = td
	}
	return tds
}

// Build constructs the filter graph for a render.
func Build(p Params) (*Plan, error) {
	if len(p.Segments) == 0 {
		return nil, models.NewError(models.KindEmptyTimeline, "build graph", errors.New("no segments"))
	}
	if p.Voiceover == "" {
		return nil, models.NewError(models.KindValidation, "build graph", errors.New("no voiceover"))
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, models.NewError(models.KindValidation, "build graph", fmt.Errorf("invalid frame %dx%d", p.Width, p.Height))
	}
	r := p.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	fixed := p.Transition
	if fixed <= 0 {
		fixed = DefaultTransition
	}

	g := &Graph{VideoOut: VideoOut, AudioOut: AudioOut}
	plan := &Plan{Graph: g}

	n := len(p.Segments)
	durations := make([]float64, n)
	for i, s := range p.Segments {
		durations[i] = s.Duration
	}

	tds := make([]float64, n)
	if p.Profile.Stitch == models.StitchCrossfade {
		tds = Transitions(durations, fixed)
	}

	// Each segment except the last runs into its outgoing transition.
	plan.RenderLengths = make([]float64, n)
	for i := range durations {
		plan.RenderLengths[i] = durations[i]
		if i+1 < n {
			plan.RenderLengths[i] += tds[i+1]
		}
	}

	for i, seg := range p.Segments {
		length := plan.RenderLengths[i]
		idx := g.AddInput(seg.AssetPath, inputOptions(seg.AssetType, length)...)

		motion := ChooseMotion(p.Profile.Motion, r)
		plan.Motions = append(plan.Motions, motion)

		frames := int(math.Ceil(length * FPS))
		g.Add([]string{Stream(idx, "v")}, segLabel(i),
			F("scale", "w", 2*p.Width, "h", 2*p.Height, "force_original_aspect_ratio", "increase"),
			F("crop", "w", 2*p.Width, "h", 2*p.Height),
			F("setsar", "", 1),
			F("fps", "fps", FPS),
			motion.zoompan(frames, p.Width, p.Height),
			F("trim", "duration", length),
			F("setpts", "", Expr("PTS-STARTPTS")),
			F("format", "pix_fmts", "yuv420p"),
			F("settb", "", Expr("AVTB")),
		)
	}

	cur := stitch(g, plan, p.Profile.Stitch, tds)
	cur = overlays(g, p, cur)
	g.Add([]string{cur}, VideoOut, F("format", "pix_fmts", "yuv420p"))

	audio(g, p)

	return plan, nil
}

func inputOptions(t models.AssetType, length float64) []string {
	if t == models.AssetTypeImage {
		return []string{"-loop", "1", "-framerate", fmt.Sprint(FPS), "-t", formatFloat(length)}
	}
	return []string{"-stream_loop", "-1", "-t", formatFloat(length)}
}

func segLabel(i int) string {
	return fmt.Sprintf("v%d", i)
}

// stitch joins the per-segment chains and returns the resulting label.
func stitch(g *Graph, plan *Plan, mode models.StitchMode, tds []float64) string {
	n := len(plan.RenderLengths)
	if n == 1 {
		return segLabel(0)
	}

	if mode != models.StitchCrossfade {
		in := make([]string, n)
		for i := range in {
			in[i] = segLabel(i)
		}
		g.Add(in, "vstitch", F("concat", "n", n, "v", 1, "a", 0))
		for i := 1; i < n; i++ {
			plan.Junctions = append(plan.Junctions, Junction{Index: i})
		}
		return "vstitch"
	}

	cur := segLabel(0)
	stitched := plan.RenderLengths[0]
	for i := 1; i < n; i++ {
		out := fmt.Sprintf("x%d", i)
		td := tds[i]
		if td > 0 {
			offset := math.Max(stitched-td, OffsetEpsilon)
			g.Add([]string{cur, segLabel(i)}, out,
				F("xfade", "transition", "fade", "duration", td, "offset", offset))
			plan.Junctions = append(plan.Junctions, Junction{Index: i, Transition: td, Offset: offset})
			stitched += plan.RenderLengths[i] - td
		} else {
			g.Add([]string{cur, segLabel(i)}, out, F("concat", "n", 2, "v", 1, "a", 0))
			plan.Junctions = append(plan.Junctions, Junction{Index: i, Offset: stitched})
			stitched += plan.RenderLengths[i]
		}
		cur = out
	}
	return cur
}

// overlays burns in captions, then the watermark, then the progress bar.
func overlays(g *Graph, p Params, cur string) string {
	if p.SubtitlePath != "" {
		ass := F("ass", "filename", Path(p.SubtitlePath))
		if p.FontsDir != "" {
			ass.Args = append(ass.Args, Arg{Key: "fontsdir", Value: Path(p.FontsDir)})
		}
		g.Add([]string{cur}, "vcap", ass)
		cur = "vcap"
	}

	if p.Logo != "" {
		idx := g.AddInput(p.Logo, "-loop", "1", "-t", formatFloat(p.Total))
		g.Add([]string{Stream(idx, "v")}, "wm",
			F("scale", "w", p.Width/6, "h", -1),
			F("format", "pix_fmts", "rgba"),
			F("colorchannelmixer", "aa", watermarkOpacity),
		)
		g.Add([]string{cur, "wm"}, "vwm",
			F("overlay",
				"x", Expr(fmt.Sprintf("W-w-%d", watermarkMargin)),
				"y", Expr(fmt.Sprintf("H-h-%d", watermarkMargin)),
			))
		cur = "vwm"
	}

	if pb := p.Progress; pb != nil {
		size := fmt.Sprintf("%dx%d", p.Width, pb.Height)
		g.Add(nil, "pbtrack", F("color", "c", pb.Track.FFmpeg(), "s", size, "r", FPS, "d", p.Total))
		g.Add(nil, "pbfill", F("color", "c", pb.Fill.FFmpeg(), "s", size, "r", FPS, "d", p.Total))
		// The fill slides in from the left so its visible share is min(t/total,1).
		g.Add([]string{"pbtrack", "pbfill"}, "pbar",
			F("overlay", "x", Expr(fmt.Sprintf("-W+W*min(t/%s,1)", formatFloat(p.Total))), "y", 0))
		g.Add([]string{cur, "pbar"}, "vpb", F("overlay", "x", 0, "y", pb.Y))
		cur = "vpb"
	}

	return cur
}

// audio is the voiceover, optionally mixed with looped music pinned to the
// voiceover's length, then padded with silence to the total duration.
func audio(g *Graph, p Params) {
	vi := g.AddInput(p.Voiceover)
	g.Add([]string{Stream(vi, "a")}, "voice",
		F("aresample", "", audioSampleRate),
		F("volume", "", 1.0),
	)
	cur := "voice"

	if p.Music != "" {
		mi := g.AddInput(p.Music, "-stream_loop", "-1")
		g.Add([]string{Stream(mi, "a")}, "music",
			F("aresample", "", audioSampleRate),
			F("volume", "", musicVolume),
		)
		g.Add([]string{"voice", "music"}, "mix",
			F("amix", "inputs", 2, "duration", "first", "dropout_transition", 0))
		cur = "mix"
	}

	g.Add([]string{cur}, AudioOut, F("apad", "whole_dur", p.Total))
}
