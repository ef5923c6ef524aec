// Package pipeline sequences a render: content, assets, timeline, captions,
// filter graph, encode and upload.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobarin/reelsmith/internal/assets"
	"github.com/bobarin/reelsmith/internal/captions"
	"github.com/bobarin/reelsmith/internal/content"
	"github.com/bobarin/reelsmith/internal/graph"
	"github.com/bobarin/reelsmith/internal/media"
	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/timeline"
	"github.com/bobarin/reelsmith/internal/transcribe"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrTextRequired is returned for a request without text.
var ErrTextRequired = errors.New("Text parameter is required")

// ContentSource supplies scene data for a request.
type ContentSource interface {
	Fetch(ctx context.Context, req models.RenderRequest) (*content.Response, error)
}

// Materializer downloads remote assets into a directory.
type Materializer interface {
	FetchAll(ctx context.Context, dir string, reqs []assets.Request) []assets.Result
}

// Encoder runs the final encode.
type Encoder interface {
	Encode(ctx context.Context, args []string, total float64, onProgress media.ProgressFunc) error
}

// BlobStore stores a finished render and returns where it can be fetched.
type BlobStore interface {
	PutRender(ctx context.Context, jobID uuid.UUID, localPath string) (string, error)
}

// Gate holds a phase back while the host is overloaded.
type Gate interface {
	Wait(ctx context.Context, phase string) error
}

// Deps are the Renderer's collaborators. Aligner, Store and Gate are
// optional.
type Deps struct {
	Content ContentSource
	Assets  Materializer
	Prober  timeline.Prober
	Aligner transcribe.Aligner
	Encoder Encoder
	Store   BlobStore
	Gate    Gate
}

// Options are per-deployment settings.
type Options struct {
	WorkDir        string
	OutputDir      string
	FontsDir       string
	BaseStyle      models.StyleConfig
	TrailingBuffer float64
	Transition     float64
	Seed           int64 // 0 picks motions from the clock
}

// Renderer runs renders. It is safe for concurrent use; every job works in
// its own temp directory.
type Renderer struct {
	deps     Deps
	opts     Options
	timeline *timeline.Builder
	captions *captions.Engine
	log      zerolog.Logger
}

func New(deps Deps, opts Options, log zerolog.Logger) *Renderer {
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "output"
	}
	if opts.BaseStyle.Style == "" {
		opts.BaseStyle = models.DefaultStyle()
	}
	return &Renderer{
		deps:     deps,
		opts:     opts,
		timeline: timeline.NewBuilder(log, opts.TrailingBuffer),
		captions: captions.New(log),
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Render runs a render under a fresh job id.
func (r *Renderer) Render(ctx context.Context, req models.RenderRequest) (*models.RenderResult, error) {
	return r.RenderJob(ctx, uuid.New(), req)
}

// RenderJob runs a render under jobID. The job's temp directory is removed
// on every path. When the upload fails the output is kept under OutputDir
// and its path returned instead of an error.
func (r *Renderer) RenderJob(ctx context.Context, jobID uuid.UUID, req models.RenderRequest) (*models.RenderResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, models.NewError(models.KindValidation, "validate request", ErrTextRequired)
	}
	req = req.WithDefaults()

	log := r.log.With().Str("job_id", jobID.String()).Logger()
	start := time.Now()
	log.Info().Str("style", req.Style).Str("language", req.Language).Msg("render started")

	resp, err := r.deps.Content.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	job, err := resp.ToJob(req, r.opts.BaseStyle)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(r.opts.WorkDir, 0755); err != nil {
		return nil, models.NewError(models.KindInternal, "create work dir", err)
	}
	dir, err := os.MkdirTemp(r.opts.WorkDir, "render-"+jobID.String()+"-")
	if err != nil {
		return nil, models.NewError(models.KindInternal, "create job dir", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to remove job dir")
		}
	}()

	if err := r.wait(ctx, "download"); err != nil {
		return nil, err
	}

	in, err := r.materialize(ctx, dir, job, log)
	if err != nil {
		return nil, err
	}

	voiceover, err := r.timeline.VoiceoverDuration(ctx, r.deps.Prober, in.voiceover, job.DeclaredDuration)
	if err != nil {
		return nil, err
	}

	scenes := r.align(ctx, job.Scenes, in.voiceover, job.Style.Language, log)

	raw := r.captions.DeriveWords(scenes, math.Inf(1))
	total := r.timeline.TotalDuration(voiceover, scenes, raw)
	words := captions.RepairWords(raw, total)

	segments, err := r.timeline.BuildSegments(total, in.clips)
	if err != nil {
		return nil, err
	}

	width, height := job.Style.Dimensions()
	track := r.captions.Build(words, total, job.Style, width, height)
	subPath := filepath.Join(dir, "captions.ass")
	if err := track.Document.WriteFile(subPath); err != nil {
		return nil, models.NewError(models.KindInternal, "write subtitles", err)
	}

	fontsDir := r.opts.FontsDir
	if in.fontsDir != "" {
		fontsDir = in.fontsDir
	}

	plan, err := graph.Build(graph.Params{
		Segments:     segments,
		Total:        total,
		Width:        width,
		Height:       height,
		Profile:      job.Style.Style.Profile(),
		Transition:   r.opts.Transition,
		SubtitlePath: subPath,
		FontsDir:     fontsDir,
		Voiceover:    in.voiceover,
		Music:        in.music,
		Logo:         in.logo,
		Progress:     track.Progress,
		Rand:         r.motionRand(),
	})
	if err != nil {
		return nil, err
	}
	if err := plan.Graph.Validate(); err != nil {
		log.Error().Err(err).Msg("filter graph rejected")
		return nil, err
	}

	scriptPath := filepath.Join(dir, "graph.txt")
	if err := plan.Graph.WriteScript(scriptPath); err != nil {
		return nil, models.NewError(models.KindInternal, "write filter script", err)
	}
	outPath := filepath.Join(dir, "output.mp4")
	args := graph.EncodeArgs(plan.Graph, scriptPath, total, job.Style.Compression.Quality(), outPath)

	log.Info().
		Float64("total", total).
		Float64("voiceover", voiceover).
		Int("segments", len(segments)).
		Int("words", len(words)).
		Int("slides", len(track.Slides)).
		Msg("timeline ready, encoding")

	if err := r.wait(ctx, "encode"); err != nil {
		return nil, err
	}
	if err := r.deps.Encoder.Encode(ctx, args, total, progressLogger(log)); err != nil {
		return nil, err
	}
	if info, err := os.Stat(outPath); err != nil || info.Size() == 0 {
		return nil, models.NewError(models.KindEncode, "encode", errors.New("encoder produced no output"))
	}
	if err := r.wait(ctx, "upload"); err != nil {
		return nil, err
	}

	result := &models.RenderResult{
		JobID:    jobID,
		Duration: total,
		Segments: len(segments),
		Words:    len(words),
	}
	if err := r.deliver(ctx, jobID, outPath, result, log); err != nil {
		return nil, err
	}

	log.Info().
		Str("location", result.Location()).
		Dur("took", time.Since(start)).
		Msg("render finished")

	return result, nil
}

// inputs are the materialized files of a job.
type inputs struct {
	clips     []timeline.Clip
	voiceover string
	logo      string
	music     string
	fontsDir  string
}

func (r *Renderer) materialize(ctx context.Context, dir string, job *content.Job, log zerolog.Logger) (*inputs, error) {
	reqs := make([]assets.Request, 0, len(job.Scenes)+4)
	for i, sc := range job.Scenes {
		reqs = append(reqs, assets.Request{
			URL:      sc.AssetURL,
			Name:     fmt.Sprintf("scene_%03d", i),
			Declared: sc.AssetType,
		})
	}
	aux := map[string]int{}
	addAux := func(name, url string) {
		if url == "" {
			return
		}
		aux[name] = len(reqs)
		reqs = append(reqs, assets.Request{URL: url, Name: name})
	}
	addAux("voiceover", job.VoiceoverURL)
	addAux("logo", job.LogoURL)
	addAux("music", job.MusicURL)
	addAux("font", job.FontURL)

	results := r.deps.Assets.FetchAll(ctx, dir, reqs)

	in := &inputs{}
	for i := range job.Scenes {
		res := results[i]
		if !res.OK() {
			log.Warn().Int("scene", i).Msg("scene asset unavailable, dropping scene from visual track")
			continue
		}
		in.clips = append(in.clips, timeline.Clip{
			Path:       res.Path,
			Type:       res.Type,
			Declared:   job.Scenes[i].DeclaredDuration(),
			SceneIndex: i,
		})
	}
	if len(in.clips) == 0 {
		return nil, models.NewError(models.KindAssetDownload, "materialize assets", errors.New("no scene asset could be downloaded"))
	}

	vo := results[aux["voiceover"]]
	if !vo.OK() {
		if vo.Err != nil {
			return nil, vo.Err
		}
		return nil, models.NewError(models.KindAssetDownload, "materialize assets", errors.New("voiceover unavailable"))
	}
	in.voiceover = vo.Path

	if i, ok := aux["logo"]; ok {
		if results[i].OK() {
			in.logo = results[i].Path
		} else {
			log.Warn().Msg("watermark logo unavailable, rendering without it")
		}
	}
	if i, ok := aux["music"]; ok {
		if results[i].OK() {
			in.music = results[i].Path
		} else {
			log.Warn().Msg("background music unavailable, rendering voiceover only")
		}
	}
	if i, ok := aux["font"]; ok {
		if results[i].OK() {
			fontsDir := filepath.Join(dir, "fonts")
			if err := os.MkdirAll(fontsDir, 0755); err == nil {
				if err := os.Rename(results[i].Path, filepath.Join(fontsDir, filepath.Base(results[i].Path))); err == nil {
					in.fontsDir = fontsDir
				}
			}
		}
		if in.fontsDir == "" {
			log.Warn().Msg("custom font unavailable, using configured fonts")
		}
	}

	return in, nil
}

// align fills in word timestamps from the voiceover when no scene has any.
// Alignment failures fall back to evenly spaced words.
func (r *Renderer) align(ctx context.Context, scenes []models.SceneDescriptor, voiceover, language string, log zerolog.Logger) []models.SceneDescriptor {
	if r.deps.Aligner == nil || !transcribe.NeedsAlignment(scenes) {
		return scenes
	}
	words, err := r.deps.Aligner.Align(ctx, voiceover, language)
	if err != nil {
		log.Warn().Err(err).Str("aligner", r.deps.Aligner.Name()).Msg("word alignment failed, spacing words evenly")
		return scenes
	}
	log.Info().Str("aligner", r.deps.Aligner.Name()).Int("words", len(words)).Msg("voiceover aligned")
	return transcribe.Attach(scenes, words)
}

// deliver uploads the output, or keeps it under OutputDir when there is no
// store or the upload fails.
func (r *Renderer) deliver(ctx context.Context, jobID uuid.UUID, outPath string, result *models.RenderResult, log zerolog.Logger) error {
	if r.deps.Store != nil {
		url, err := r.deps.Store.PutRender(ctx, jobID, outPath)
		if err == nil {
			result.URL = url
			return nil
		}
		log.Warn().Err(err).Msg("upload failed, keeping render locally")
	}

	if err := os.MkdirAll(r.opts.OutputDir, 0755); err != nil {
		return models.NewError(models.KindUpload, "keep local output", err)
	}
	dest, err := filepath.Abs(filepath.Join(r.opts.OutputDir, jobID.String()+".mp4"))
	if err != nil {
		return models.NewError(models.KindUpload, "keep local output", err)
	}
	if err := moveFile(outPath, dest); err != nil {
		return models.NewError(models.KindUpload, "keep local output", err)
	}
	result.LocalPath = dest
	return nil
}

func (r *Renderer) wait(ctx context.Context, phase string) error {
	if r.deps.Gate == nil {
		return nil
	}
	return r.deps.Gate.Wait(ctx, phase)
}

func (r *Renderer) motionRand() *rand.Rand {
	if r.opts.Seed != 0 {
		return rand.New(rand.NewSource(r.opts.Seed))
	}
	return nil
}

// progressLogger logs encode progress at every 10% step.
func progressLogger(log zerolog.Logger) media.ProgressFunc {
	next := 0.1
	return func(fraction float64) {
		if fraction < next {
			return
		}
		log.Info().Int("percent", int(math.Round(fraction*100))).Msg("encoding")
		for next <= fraction {
			next += 0.1
		}
	}
}
