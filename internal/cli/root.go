// Package cli implements renderctl, the operator tool for local renders,
// media inspection and load testing a running API.
package cli

import (
	"github.com/bobarin/reelsmith/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "renderctl",
	Short: "Operate the narrated video renderer",
	Long: `renderctl drives the render pipeline without the HTTP service.

It can render a video from a saved content response, inspect media files
with ffprobe, and load test a running render API.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		env := "production"
		if verbose {
			env = "development"
		}
		logger = logging.New(env)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
