package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// GeminiAligner asks Gemini for word timestamps of an uploaded audio file.
type GeminiAligner struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

func NewGeminiAligner(ctx context.Context, apiKey, model string, log zerolog.Logger) (*GeminiAligner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiAligner{
		client: client,
		model:  model,
		log:    log.With().Str("component", "gemini").Logger(),
	}, nil
}

func (a *GeminiAligner) Name() string { return KindGemini }

// Align uploads the audio, requests word timings and deletes the upload.
func (a *GeminiAligner) Align(ctx context.Context, audioPath, language string) ([]models.WordTiming, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	uploaded, err := a.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio file: %w", err)
	}
	defer func() {
		_, _ = a.client.Files.Delete(ctx, uploaded.Name, nil)
	}()

	parts := []*genai.Part{
		genai.NewPartFromText(buildPrompt(language)),
		genai.NewPartFromURI(uploaded.URI, uploaded.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini alignment failed: %w", err)
	}

	text, err := responseText(result)
	if err != nil {
		return nil, err
	}

	words, err := ParseWords(text)
	if err != nil {
		return nil, err
	}

	a.log.Info().Int("words", len(words)).Msg("voiceover aligned")
	return words, nil
}

func buildPrompt(language string) string {
	var sb strings.Builder
	sb.WriteString("Transcribe this narration word by word. ")
	sb.WriteString("Return a JSON array of objects with 'word', 'start' and 'end' fields, ")
	sb.WriteString("where 'start' and 'end' are seconds from the start of the audio (as numbers). ")
	if language != "" {
		sb.WriteString(fmt.Sprintf("The audio is in %s. ", language))
	}
	sb.WriteString("Return ONLY the JSON array, no other text or markdown formatting.")
	return sb.String()
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no text in Gemini response")
	}
	return sb.String(), nil
}
