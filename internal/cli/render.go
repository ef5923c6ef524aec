package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bobarin/reelsmith/internal/app"
	"github.com/bobarin/reelsmith/internal/config"
	"github.com/bobarin/reelsmith/internal/content"
	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/pipeline"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a video locally",
	Long: `Render a video in-process and print where it ended up.

Content comes from the configured content API, or from a saved response
with --fixture. Renders are uploaded when Supabase is configured and kept
in OUTPUT_DIR otherwise.

Examples:
  renderctl render --text "Why the sky is blue"
  renderctl render --text "demo" --fixture testdata/content.json --style style_2
  renderctl render --text "demo" --video-type portrait --no-progress-bar`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	addRenderFlags(renderCmd)
}

func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("text", "t", "", "Topic text to render (required)")
	cmd.Flags().StringP("fixture", "f", "", "Saved content API response to render instead of calling the API")
	cmd.Flags().StringP("language", "l", "en", "Language code")
	cmd.Flags().StringP("style", "s", string(models.Style1), "Caption style (style_1 .. style_4)")
	cmd.Flags().String("video-type", "", "landscape or portrait")
	cmd.Flags().String("resolution", "", "Output resolution (e.g. 720p, 1080p)")
	cmd.Flags().Int("words", 0, "Words per caption slide (0 keeps the content default)")
	cmd.Flags().Bool("no-progress-bar", false, "Disable the progress bar")
	cmd.Flags().Bool("no-watermark", false, "Disable the logo watermark")
	cmd.Flags().StringP("output", "o", "", "Override OUTPUT_DIR")

	_ = cmd.MarkFlagRequired("text")
}

func runRender(cmd *cobra.Command, args []string) error {
	text, _ := cmd.Flags().GetString("text")
	fixture, _ := cmd.Flags().GetString("fixture")
	outputDir, _ := cmd.Flags().GetString("output")

	cfg := config.LoadEnv()
	if fixture != "" && cfg.ContentAPIURL == "" {
		cfg.ContentAPIURL = "fixture://" + fixture
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var source pipeline.ContentSource
	if fixture != "" {
		resp, err := content.LoadFixture(fixture)
		if err != nil {
			return err
		}
		source = &content.FixtureSource{Response: resp}
	}

	req, err := requestFromFlags(cmd, text)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer, err := app.NewRenderer(ctx, cfg, source, logger)
	if err != nil {
		return err
	}

	result, err := renderer.Render(ctx, req)
	if err != nil {
		return fmt.Errorf("render failed (%s): %w", models.KindOf(err), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", result.Location())
	logger.Info().
		Str("job_id", result.JobID.String()).
		Float64("duration", result.Duration).
		Int("segments", result.Segments).
		Int("words", result.Words).
		Msg("render complete")
	return nil
}

// requestFromFlags maps command flags onto a render request. Unset flags
// leave the content API's values in place.
func requestFromFlags(cmd *cobra.Command, text string) (models.RenderRequest, error) {
	language, _ := cmd.Flags().GetString("language")
	style, _ := cmd.Flags().GetString("style")
	videoType, _ := cmd.Flags().GetString("video-type")
	resolution, _ := cmd.Flags().GetString("resolution")
	words, _ := cmd.Flags().GetInt("words")
	noBar, _ := cmd.Flags().GetBool("no-progress-bar")
	noMark, _ := cmd.Flags().GetBool("no-watermark")

	if id := models.ParseStyleID(style); string(id) != strings.ToLower(strings.TrimSpace(style)) {
		return models.RenderRequest{}, fmt.Errorf("unknown style %q", style)
	}
	switch videoType {
	case "", "landscape", "portrait":
	default:
		return models.RenderRequest{}, fmt.Errorf("invalid video type %q: expected landscape or portrait", videoType)
	}

	req := models.RenderRequest{
		Text:       text,
		Language:   language,
		Style:      style,
		VideoType:  videoType,
		Resolution: resolution,
	}
	if words > 0 {
		n := models.FlexInt(words)
		req.NoOfWords = &n
	}
	if cmd.Flags().Changed("no-progress-bar") {
		b := models.FlexBool(!noBar)
		req.ShowProgressBar = &b
	}
	if cmd.Flags().Changed("no-watermark") {
		b := models.FlexBool(!noMark)
		req.Watermark = &b
	}
	return req.WithDefaults(), nil
}
