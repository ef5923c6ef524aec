package media

import (
	"context"
	"errors"
	"testing"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const sampleProbe = `{
  "streams": [
    {"codec_type": "video", "width": 1920, "height": 1080, "duration": "12.500000"},
    {"codec_type": "audio", "duration": "12.480000"}
  ],
  "format": {"duration": "12.512000"}
}`

func TestParseProbe(t *testing.T) {
	info, err := ParseProbe([]byte(sampleProbe))
	if err != nil {
		t.Fatalf("ParseProbe: %v", err)
	}
	if info.Duration != 12.512 {
		t.Errorf("expected container duration, got %v", info.Duration)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("expected both stream types")
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("unexpected size %dx%d", info.Width, info.Height)
	}
}

func TestParseProbeStreamFallback(t *testing.T) {
	info, err := ParseProbe([]byte(`{"streams":[{"codec_type":"audio","duration":"3.25"}],"format":{}}`))
	if err != nil {
		t.Fatalf("ParseProbe: %v", err)
	}
	if info.Duration != 3.25 {
		t.Errorf("expected stream duration, got %v", info.Duration)
	}
}

func TestProberDuration(t *testing.T) {
	p := NewProberWith(time.Second, func(string, time.Duration, ffmpeg.KwArgs) (string, error) {
		return sampleProbe, nil
	})
	d, err := p.Duration(context.Background(), "voice.mp3")
	if err != nil || d != 12.512 {
		t.Fatalf("Duration = %v, %v", d, err)
	}

	failing := NewProberWith(time.Second, func(string, time.Duration, ffmpeg.KwArgs) (string, error) {
		return "", errors.New("exit status 1")
	})
	if _, err := failing.Duration(context.Background(), "voice.mp3"); err == nil {
		t.Fatalf("expected error from failing probe")
	}
}

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"out_time_us=2500000", 2.5, true},
		{"out_time_ms=1000000", 1, true},
		{"out_time=00:01:02.500000", 62.5, true},
		{"out_time=N/A", 0, false},
		{"progress=continue", 0, false},
		{"frame=12", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseProgressLine(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseProgressLine(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{max: 5}
	tb.Write([]byte("abc"))
	tb.Write([]byte("defgh"))
	if got := tb.String(); got != "defgh" {
		t.Errorf("tail = %q, want defgh", got)
	}
}
