// Package media wraps the ffprobe and ffmpeg processes the renderer depends on.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeFunc runs ffprobe and returns its JSON output.
type ProbeFunc func(fileName string, timeout time.Duration, kwargs ffmpeg.KwArgs) (string, error)

// Info is the subset of ffprobe output the pipeline uses.
type Info struct {
	Duration float64
	HasVideo bool
	HasAudio bool
	Width    int
	Height   int
}

// JSON output from ffprobe
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Prober inspects media files with ffprobe.
type Prober struct {
	timeout time.Duration
	probe   ProbeFunc
}

// NewProber returns a Prober that runs ffprobe from PATH.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Prober{timeout: timeout, probe: ffmpeg.ProbeWithTimeout}
}

// NewProberWith uses a custom probe function.
func NewProberWith(timeout time.Duration, fn ProbeFunc) *Prober {
	return &Prober{timeout: timeout, probe: fn}
}

// Probe returns stream information for path.
func (p *Prober) Probe(ctx context.Context, path string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := p.probe(path, p.timeout, ffmpeg.KwArgs{"v": "quiet"})
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return ParseProbe([]byte(out))
}

// Duration returns the container duration in seconds, falling back to the
// longest stream when the container does not report one.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	info, err := p.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	if info.Duration <= 0 {
		return 0, fmt.Errorf("no duration reported for %s", path)
	}
	return info.Duration, nil
}

// ParseProbe decodes ffprobe -of json output.
func ParseProbe(data []byte) (*Info, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &Info{}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = d
	}

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			info.HasVideo = true
			if info.Width == 0 {
				info.Width, info.Height = s.Width, s.Height
			}
		case "audio":
			info.HasAudio = true
		}
		if info.Duration <= 0 {
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > info.Duration {
				info.Duration = d
			}
		}
	}

	return info, nil
}
