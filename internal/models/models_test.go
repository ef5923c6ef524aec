package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestJSONBMarshal(t *testing.T) {
	j := JSONB{
		"style": "style_2",
		"text":  "hello there",
	}

	data, err := j.Value()
	if err != nil {
		t.Fatalf("failed to marshal JSONB: %v", err)
	}

	if data == nil {
		t.Fatal("expected non-nil data")
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data.([]byte), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["style"] != "style_2" {
		t.Errorf("expected style=style_2, got %v", result["style"])
	}
}

func TestJSONBScan(t *testing.T) {
	jsonData := []byte(`{"language": "hi", "fontSize": 10}`)

	var j JSONB
	if err := j.Scan(jsonData); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	if j["language"] != "hi" {
		t.Errorf("expected language=hi, got %v", j["language"])
	}

	if j["fontSize"].(float64) != 10 {
		t.Errorf("expected fontSize=10, got %v", j["fontSize"])
	}
}

func TestRenderRequestFlexibleFields(t *testing.T) {
	body := `{"text":"hi","animation":"true","showProgressBar":true,"noOfWords":"4","fontSize":90,"positionY":"35"}`

	var req RenderRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if req.Animation == nil || !bool(*req.Animation) {
		t.Errorf("expected animation=true from string")
	}
	if req.ShowProgressBar == nil || !bool(*req.ShowProgressBar) {
		t.Errorf("expected showProgressBar=true from bool")
	}
	if req.NoOfWords == nil || *req.NoOfWords != 4 {
		t.Errorf("expected noOfWords=4, got %v", req.NoOfWords)
	}
	if req.PositionY == nil || *req.PositionY != 35 {
		t.Errorf("expected positionY=35, got %v", req.PositionY)
	}

	req = req.WithDefaults()
	if req.Language != "en" || req.Style != "style_1" || req.TranscriptionFormat != "segment" {
		t.Errorf("unexpected defaults: %+v", req)
	}
}

func TestStyleDimensions(t *testing.T) {
	tests := []struct {
		resolution  string
		orientation Orientation
		w, h        int
	}{
		{Resolution1080p, OrientationPortrait, 1080, 1920},
		{Resolution1080p, OrientationLandscape, 1920, 1080},
		{Resolution720p, OrientationPortrait, 720, 1280},
		{Resolution720p, OrientationLandscape, 1280, 720},
		{Resolution720p, OrientationSquare, 720, 720},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.resolution, tt.orientation), func(t *testing.T) {
			s := StyleConfig{Resolution: tt.resolution, Orientation: tt.orientation}
			w, h := s.Dimensions()
			if w != tt.w || h != tt.h {
				t.Errorf("expected %dx%d, got %dx%d", tt.w, tt.h, w, h)
			}
		})
	}
}

func TestStyleNormalize(t *testing.T) {
	s := StyleConfig{Style: "STYLE_4", FontSizePx: -5, PositionYPercent: 150, Compression: "bogus"}.Normalize()

	if s.Style != Style4 {
		t.Errorf("expected style_4, got %s", s.Style)
	}
	if s.FontSizePx != 100 {
		t.Errorf("expected default font size, got %d", s.FontSizePx)
	}
	if s.PositionYPercent != 50 {
		t.Errorf("expected default position, got %d", s.PositionYPercent)
	}
	if s.Compression != CompressionStudio {
		t.Errorf("expected studio compression, got %s", s.Compression)
	}
	if s.WordsPerLine != 2 {
		t.Errorf("expected 2 words per line, got %d", s.WordsPerLine)
	}
}

func TestParseWordsPerLine(t *testing.T) {
	tests := map[string]int{"more": 4, "less": 2, "3": 3, "": 0, "x": 0, "-1": 0}
	for in, want := range tests {
		if got := ParseWordsPerLine(in); got != want {
			t.Errorf("ParseWordsPerLine(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestCompressionQuality(t *testing.T) {
	if CompressionStudio.Quality().CRF >= CompressionSocial.Quality().CRF {
		t.Errorf("studio should encode at lower CRF than social")
	}
	if CompressionSocial.Quality().CRF >= CompressionWeb.Quality().CRF {
		t.Errorf("social should encode at lower CRF than web")
	}
}

func TestKindOf(t *testing.T) {
	base := NewError(KindEncode, "ffmpeg", errors.New("exit status 1"))
	wrapped := fmt.Errorf("render failed: %w", base)

	if KindOf(wrapped) != KindEncode {
		t.Errorf("expected encode kind, got %s", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Errorf("expected internal kind for plain errors")
	}
	if IsRetryable(wrapped) {
		t.Errorf("encode errors must not be retried")
	}
	if !IsRetryable(NewError(KindUpstreamAPI, "fetch", nil)) {
		t.Errorf("upstream errors should be retryable")
	}
}
