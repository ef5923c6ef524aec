package cli

import (
	"encoding/json"
	"fmt"

	"github.com/bobarin/reelsmith/internal/media"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe [media_file...]",
	Short: "Print duration and streams of media files",
	Long: `Run ffprobe on each file and print what the pipeline would see:
duration, stream presence and frame size.

Examples:
  renderctl probe voiceover.mp3
  renderctl probe clip1.mp4 clip2.mp4 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().Duration("timeout", 0, "ffprobe timeout (default PROBE_TIMEOUT or 30s)")
	probeCmd.Flags().Bool("json", false, "Print JSON instead of text")
}

type probeReport struct {
	File     string  `json:"file"`
	Duration float64 `json:"duration"`
	HasVideo bool    `json:"has_video"`
	HasAudio bool    `json:"has_audio"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	asJSON, _ := cmd.Flags().GetBool("json")

	prober := media.NewProber(timeout)
	out := cmd.OutOrStdout()

	var reports []probeReport
	failed := 0
	for _, path := range args {
		r := probeReport{File: path}
		info, err := prober.Probe(cmd.Context(), path)
		if err != nil {
			r.Error = err.Error()
			failed++
			logger.Error().Err(err).Str("file", path).Msg("probe failed")
		} else {
			r.Duration, r.HasVideo, r.HasAudio = info.Duration, info.HasVideo, info.HasAudio
			r.Width, r.Height = info.Width, info.Height
		}
		reports = append(reports, r)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			fmt.Fprintln(out, formatProbe(r))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be probed", failed, len(args))
	}
	return nil
}

func formatProbe(r probeReport) string {
	if r.Error != "" {
		return fmt.Sprintf("%s: error: %s", r.File, r.Error)
	}
	s := fmt.Sprintf("%s: %.3fs", r.File, r.Duration)
	if r.HasVideo {
		s += fmt.Sprintf(" video %dx%d", r.Width, r.Height)
	}
	if r.HasAudio {
		s += " audio"
	}
	return s
}
