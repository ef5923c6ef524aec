package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestRequestFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cmd *cobra.Command)
		wantErr bool
	}{
		{
			name: "defaults",
			args: []string{},
			check: func(t *testing.T, cmd *cobra.Command) {
				req, _ := requestFromFlags(cmd, "topic")
				if req.Language != "en" || req.Style != "style_1" || req.TranscriptionFormat != "segment" {
					t.Errorf("unexpected defaults: %+v", req)
				}
				if req.NoOfWords != nil || req.ShowProgressBar != nil || req.Watermark != nil {
					t.Errorf("unset flags must not override content values: %+v", req)
				}
			},
		},
		{
			name: "overrides",
			args: []string{"--style", "style_3", "--video-type", "portrait", "--words", "3", "--no-watermark"},
			check: func(t *testing.T, cmd *cobra.Command) {
				req, _ := requestFromFlags(cmd, "topic")
				if req.Style != "style_3" || req.VideoType != "portrait" {
					t.Errorf("unexpected request: %+v", req)
				}
				if req.NoOfWords == nil || *req.NoOfWords != 3 {
					t.Errorf("NoOfWords = %v, want 3", req.NoOfWords)
				}
				if req.Watermark == nil || bool(*req.Watermark) {
					t.Errorf("Watermark should be explicitly false")
				}
				if req.ShowProgressBar != nil {
					t.Errorf("ShowProgressBar should be unset")
				}
			},
		},
		{name: "unknown style", args: []string{"--style", "style_9"}, wantErr: true},
		{name: "bad video type", args: []string{"--video-type", "square"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "render"}
			addRenderFlags(cmd)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}

			_, err := requestFromFlags(cmd, "topic")
			if (err != nil) != tt.wantErr {
				t.Fatalf("requestFromFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cmd)
			}
		})
	}
}

func TestFormatProbe(t *testing.T) {
	tests := []struct {
		r    probeReport
		want string
	}{
		{probeReport{File: "a.mp3", Duration: 12.5, HasAudio: true}, "a.mp3: 12.500s audio"},
		{probeReport{File: "b.mp4", Duration: 3, HasVideo: true, Width: 1280, Height: 720}, "b.mp4: 3.000s video 1280x720"},
		{probeReport{File: "c.mp4", Error: "ffprobe failed"}, "c.mp4: error: ffprobe failed"},
	}
	for _, tt := range tests {
		t.Run(tt.r.File, func(t *testing.T) {
			if got := formatProbe(tt.r); got != tt.want {
				t.Errorf("formatProbe() = %q, want %q", got, tt.want)
			}
		})
	}
}
