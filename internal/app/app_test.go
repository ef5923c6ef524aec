package app

import (
	"context"
	"testing"

	"github.com/bobarin/reelsmith/internal/config"
	"github.com/bobarin/reelsmith/internal/content"
	"github.com/rs/zerolog"
)

func testConfig() *config.Config {
	return &config.Config{
		ContentAPIURL:    "https://content.example.com/api",
		WorkDir:          "",
		OutputDir:        "output",
		FFmpegPath:       "ffmpeg",
		AssetConcurrency: 2,
		MaxSyncRenders:   1,
		WordAligner:      "none",
	}
}

func TestNewRenderer(t *testing.T) {
	r, err := NewRenderer(context.Background(), testConfig(), &content.FixtureSource{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	if r == nil {
		t.Fatal("expected a renderer")
	}
}

func TestNewRendererDefaultSource(t *testing.T) {
	if _, err := NewRenderer(context.Background(), testConfig(), nil, zerolog.Nop()); err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
}

func TestNewRendererAlignerWithoutKey(t *testing.T) {
	cfg := testConfig()
	cfg.WordAligner = "openai"

	if _, err := NewRenderer(context.Background(), cfg, nil, zerolog.Nop()); err == nil {
		t.Fatal("expected an error for the openai aligner without a key")
	}
}
