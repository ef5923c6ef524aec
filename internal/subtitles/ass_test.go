package subtitles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00.00"},
		{-3, "0:00:00.00"},
		{1.5, "0:00:01.50"},
		{61.25, "0:01:01.25"},
		{3723.999, "1:02:04.00"},
	}

	for _, tt := range tests {
		if got := FormatTime(tt.in); got != tt.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColorConversions(t *testing.T) {
	c, err := ParseColor("#FF8000")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if got := c.ASS(); got != "&H000080FF" {
		t.Errorf("ASS() = %q", got)
	}
	if got := c.ASSInline(); got != "&H0080FF&" {
		t.Errorf("ASSInline() = %q", got)
	}
	if got := c.FFmpeg(); got != "0xFF8000" {
		t.Errorf("FFmpeg() = %q", got)
	}

	short, err := ParseColor("#fff")
	if err != nil || short != White {
		t.Errorf("expected short form to parse as white, got %v %v", short, err)
	}

	if _, err := ParseColor("purple"); err == nil {
		t.Errorf("expected error for named colour")
	}
	if got := MustColor("nope", Black); got != Black {
		t.Errorf("expected fallback colour")
	}
}

func TestDocumentEvents(t *testing.T) {
	doc := New(1080, 1920)
	doc.AddStyle(Style{Name: "Default", FontName: "Poetsen One", FontSize: 100, Primary: White, Bold: true})

	fill := Color{R: 0xFF, B: 0xFF}
	doc.AddEvent(Event{Layer: 0, Start: 0, End: 1, X: 540, Y: 960, Fill: &fill, Drawing: RoundedRect(200, 120, 20)})
	doc.AddEvent(Event{Layer: 1, Start: 0, End: 2, X: 540, Y: 960, Text: "hello {world}"})
	doc.AddEvent(Event{Layer: 1, Start: 0, End: 2, X: 540, Y: 960, Karaoke: []KaraokeSpan{
		{Text: "one", Delay: 0, Duration: 0.5},
		{Text: "two", Delay: 0.25, Duration: 0.5},
	}})

	out := doc.String()

	for _, want := range []string{
		"PlayResX: 1080",
		"PlayResY: 1920",
		"Style: Default,Poetsen One,100,&H00FFFFFF,",
		`Dialogue: 0,0:00:00.00,0:00:01.00,Default,,0,0,0,,{\an5\pos(540,960)\1c&HFF00FF&\p1}m 20 0`,
		`{\p0}`,
		`Dialogue: 1,0:00:00.00,0:00:02.00,Default,,0,0,0,,{\an5\pos(540,960)}hello (world)`,
		`{\kf50}one {\k25}{\kf50}two`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("document missing %q\n%s", want, out)
		}
	}
}

func TestRoundedRectClosesPath(t *testing.T) {
	path := RoundedRect(100, 40, 50)
	if !strings.HasPrefix(path, "m 20 0") {
		t.Errorf("radius should clamp to half the height, got %q", path)
	}
	if !strings.HasSuffix(path, "20 0") {
		t.Errorf("path should end where it started, got %q", path)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captions.ass")

	doc := New(720, 1280)
	doc.AddEvent(Event{Start: 0, End: 1, Text: "hi"})
	if err := doc.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "[Events]") {
		t.Errorf("written file missing events section")
	}
}
