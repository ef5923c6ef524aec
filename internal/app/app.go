// Package app assembles the render pipeline from configuration. Both
// binaries share it.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bobarin/reelsmith/internal/assets"
	"github.com/bobarin/reelsmith/internal/config"
	"github.com/bobarin/reelsmith/internal/content"
	"github.com/bobarin/reelsmith/internal/media"
	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/pipeline"
	"github.com/bobarin/reelsmith/internal/resources"
	"github.com/bobarin/reelsmith/internal/retry"
	"github.com/bobarin/reelsmith/internal/storage"
	"github.com/bobarin/reelsmith/internal/transcribe"
	"github.com/rs/zerolog"
)

// NewRenderer builds a Renderer. A nil source uses the content API client
// from cfg.
func NewRenderer(ctx context.Context, cfg *config.Config, source pipeline.ContentSource, log zerolog.Logger) (*pipeline.Renderer, error) {
	if source == nil {
		source = content.NewClient(cfg.ContentAPIURL, cfg.ContentAPIKey, nil, retry.Default, log)
	}

	aligner, err := transcribe.New(ctx, cfg.WordAligner, cfg.OpenAIKey, cfg.GeminiKey, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create word aligner: %w", err)
	}

	deps := pipeline.Deps{
		Content: source,
		Assets:  assets.New(&http.Client{}, cfg.AssetTimeout, cfg.AssetConcurrency, log),
		Prober:  media.NewProber(cfg.ProbeTimeout),
		Aligner: aligner,
		Encoder: media.NewEncoder(cfg.FFmpegPath, log),
		Gate: resources.NewGate(
			resources.SystemSampler{CPUInterval: 500 * time.Millisecond},
			cfg.MinFreeMemoryMB, cfg.MaxCPUPercent, resources.DefaultPolicy, log,
		),
	}
	if cfg.StorageEnabled() {
		deps.Store = storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket, retry.Default, log)
	}

	style := models.DefaultStyle()
	if cfg.DefaultFontFamily != "" {
		style.FontFamily = cfg.DefaultFontFamily
	}

	return pipeline.New(deps, pipeline.Options{
		WorkDir:        cfg.WorkDir,
		OutputDir:      cfg.OutputDir,
		FontsDir:       cfg.FontsDir,
		BaseStyle:      style,
		TrailingBuffer: cfg.TrailingBufferSeconds,
		Transition:     cfg.TransitionSeconds,
	}, log), nil
}
