package graph

import (
	"fmt"

	"github.com/bobarin/reelsmith/internal/models"
)

// EncodeArgs returns the ffmpeg arguments for the final encode. The graph is
// read from scriptPath, which must hold g.String().
func EncodeArgs(g *Graph, scriptPath string, total float64, q models.EncodeQuality, outputPath string) []string {
	args := []string{"-hide_banner", "-nostdin", "-nostats", "-y"}

	for _, in := range g.Inputs {
		args = append(args, in.Options...)
		args = append(args, "-i", in.Path)
	}

	gop := fmt.Sprint(2 * FPS) // keyframe every 2s

	args = append(args,
		"-filter_complex_script", scriptPath,
		"-map", "["+g.VideoOut+"]",
		"-map", "["+g.AudioOut+"]",
		"-r", fmt.Sprint(FPS),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", fmt.Sprint(q.CRF),
		"-maxrate", q.MaxBitrate,
		"-bufsize", q.BufSize,
		"-g", gop,
		"-keyint_min", gop,
		"-sc_threshold", "0",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", fmt.Sprint(audioSampleRate),
		"-t", formatFloat(total),
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		outputPath,
	)
	return args
}
