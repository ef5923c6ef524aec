package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// WhisperAligner uses OpenAI Whisper word-level timestamps.
type WhisperAligner struct {
	client *openai.Client
	log    zerolog.Logger
}

func NewWhisperAligner(apiKey string, log zerolog.Logger) *WhisperAligner {
	return &WhisperAligner{
		client: openai.NewClient(apiKey),
		log:    log.With().Str("component", "whisper").Logger(),
	}
}

func (a *WhisperAligner) Name() string { return KindOpenAI }

// Align sends the audio file to Whisper and returns word-level timestamps.
func (a *WhisperAligner) Align(ctx context.Context, audioPath, language string) ([]models.WordTiming, error) {
	if language == "" {
		language = "en"
	}

	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: language,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	if len(resp.Words) == 0 {
		return nil, fmt.Errorf("whisper returned no word timestamps (text: %q)", truncateString(resp.Text, 80))
	}

	words := make([]models.WordTiming, 0, len(resp.Words))
	for _, w := range resp.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		words = append(words, models.WordTiming{Word: text, Start: w.Start, End: w.End})
	}

	a.log.Info().
		Int("words", len(words)).
		Float64("duration", resp.Duration).
		Msg("voiceover aligned")

	return words, nil
}
