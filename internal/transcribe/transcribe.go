// Package transcribe recovers word-level timestamps from a voiceover when the
// content API sends none.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/rs/zerolog"
)

// Aligner returns timed words for an audio file.
type Aligner interface {
	Align(ctx context.Context, audioPath, language string) ([]models.WordTiming, error)
	Name() string
}

// Aligner names accepted by New.
const (
	KindNone   = "none"
	KindOpenAI = "openai"
	KindGemini = "gemini"
)

// New builds the configured aligner. It returns nil, nil for "none".
func New(ctx context.Context, kind, openAIKey, geminiKey string, log zerolog.Logger) (Aligner, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindNone:
		return nil, nil
	case KindOpenAI:
		if openAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai aligner")
		}
		return NewWhisperAligner(openAIKey, log), nil
	case KindGemini:
		if geminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini aligner")
		}
		a, err := NewGeminiAligner(ctx, geminiKey, "", log)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown word aligner %q", kind)
	}
}

// Attach assigns words to the scene whose window contains their start.
// Scenes that already carry words are left alone.
func Attach(scenes []models.SceneDescriptor, words []models.WordTiming) []models.SceneDescriptor {
	out := make([]models.SceneDescriptor, len(scenes))
	copy(out, scenes)

	for _, w := range words {
		for i := range out {
			if len(scenes[i].Words) > 0 {
				continue
			}
			last := i == len(out)-1
			if w.Start >= out[i].SegmentStart && (w.Start < out[i].SegmentEnd || last) {
				out[i].Words = append(out[i].Words, w)
				break
			}
		}
	}
	return out
}

// NeedsAlignment reports whether no scene carries word timestamps.
func NeedsAlignment(scenes []models.SceneDescriptor) bool {
	for _, sc := range scenes {
		if len(sc.Words) > 0 {
			return false
		}
	}
	return true
}

// ParseWords extracts a word list from a model response: a bare JSON array,
// or an object wrapping it under "words", possibly fenced or surrounded by
// prose.
func ParseWords(text string) ([]models.WordTiming, error) {
	text = cleanJSONResponse(text)

	if start := strings.IndexAny(text, "[{"); start > 0 {
		text = text[start:]
	}

	var words []models.WordTiming
	dec := json.NewDecoder(strings.NewReader(text))
	if strings.HasPrefix(text, "{") {
		var wrapper struct {
			Words []models.WordTiming `json:"words"`
		}
		if err := dec.Decode(&wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse JSON response: %w (response: %s)", err, truncateString(text, 200))
		}
		words = wrapper.Words
	} else if err := dec.Decode(&words); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w (response: %s)", err, truncateString(text, 200))
	}

	out := words[:0]
	for _, w := range words {
		w.Word = strings.TrimSpace(w.Word)
		if w.Word == "" || w.End < w.Start {
			continue
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no words in response")
	}
	return out, nil
}

var jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*")

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// truncateString truncates a string to maxLen and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
