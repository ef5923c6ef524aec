package transcribe

import (
	"context"
	"testing"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

func TestParseWords(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantErr   bool
	}{
		{
			name:      "plain array",
			input:     `[{"word":"hello","start":0,"end":0.5},{"word":"world","start":0.6,"end":1.1}]`,
			wantCount: 2,
		},
		{
			name:      "fenced",
			input:     "```json\n[{\"word\":\"hi\",\"start\":0,\"end\":0.3}]\n```",
			wantCount: 1,
		},
		{
			name:      "preamble and trailing text",
			input:     `Here you go: [{"word":"one","start":1,"end":2}] Hope that helps!`,
			wantCount: 1,
		},
		{
			name:      "wrapper object",
			input:     `{"words":[{"word":"a","start":0,"end":1},{"word":" ","start":1,"end":2}]}`,
			wantCount: 1,
		},
		{
			name:    "garbage",
			input:   `sorry, I cannot help`,
			wantErr: true,
		},
		{
			name:    "empty list",
			input:   `[]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words, err := ParseWords(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", words)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(words) != tt.wantCount {
				t.Errorf("expected %d words, got %d", tt.wantCount, len(words))
			}
		})
	}
}

func TestAttach(t *testing.T) {
	scenes := []models.SceneDescriptor{
		{SegmentStart: 0, SegmentEnd: 2},
		{SegmentStart: 2, SegmentEnd: 4},
	}
	words := []models.WordTiming{
		{Word: "a", Start: 0.1, End: 0.5},
		{Word: "b", Start: 1.9, End: 2.3},
		{Word: "c", Start: 2.5, End: 3},
		{Word: "d", Start: 4.2, End: 4.6},
	}

	out := Attach(scenes, words)
	if len(out[0].Words) != 2 || len(out[1].Words) != 2 {
		t.Fatalf("unexpected split: %d / %d", len(out[0].Words), len(out[1].Words))
	}
	if len(scenes[0].Words) != 0 {
		t.Errorf("input scenes must not be modified")
	}
	if !NeedsAlignment(scenes) || NeedsAlignment(out) {
		t.Errorf("NeedsAlignment disagrees with word presence")
	}
}

func TestNewNone(t *testing.T) {
	a, err := New(context.Background(), "none", "", "", zerolog.Nop())
	if err != nil || a != nil {
		t.Fatalf("expected no aligner, got %v %v", a, err)
	}
	if _, err := New(context.Background(), "openai", "", "", zerolog.Nop()); err == nil {
		t.Errorf("expected missing key error")
	}
	if _, err := New(context.Background(), "bogus", "k", "k", zerolog.Nop()); err == nil {
		t.Errorf("expected unknown aligner error")
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "[{\"word\":"}, {Text: "\"x\",\"start\":0,\"end\":1}]"}}},
		}},
	}
	text, err := responseText(resp)
	if err != nil {
		t.Fatalf("responseText: %v", err)
	}
	if words, err := ParseWords(text); err != nil || len(words) != 1 {
		t.Errorf("expected one word, got %v %v", words, err)
	}

	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Errorf("expected error for empty response")
	}
}
