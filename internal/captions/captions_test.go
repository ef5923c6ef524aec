package captions

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/rs/zerolog"
)

func roundTripScenes() []models.SceneDescriptor {
	return []models.SceneDescriptor{
		{SegmentStart: 0, SegmentEnd: 2, Text: "hello world"},
		{SegmentStart: 2, SegmentEnd: 5, Text: "goodbye now friend"},
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 0.02
}

func TestRoundTripExample(t *testing.T) {
	e := New(zerolog.Nop())
	words := e.DeriveWords(roundTripScenes(), 5.0)
	if len(words) != 5 {
		t.Fatalf("expected 5 words, got %d", len(words))
	}

	slides := GroupSlides(words, 2, 100, 1080)
	if len(slides) != 3 {
		t.Fatalf("expected 3 slides, got %d: %+v", len(slides), slides)
	}

	want := []struct {
		text       string
		start, end float64
	}{
		{"hello world", 0, 2},
		{"goodbye now", 2, 4},
		{"friend", 4, 5},
	}
	for i, w := range want {
		s := slides[i]
		if s.Text() != w.text {
			t.Errorf("slide %d text = %q, want %q", i, s.Text(), w.text)
		}
		if !near(s.Start, w.start) || !near(s.End, w.end) {
			t.Errorf("slide %d window = [%.3f,%.3f), want ~[%.1f,%.1f)", i, s.Start, s.End, w.start, w.end)
		}
	}

	for i := 1; i < len(slides); i++ {
		if slides[i].Start < slides[i-1].End {
			t.Errorf("slides %d and %d overlap", i-1, i)
		}
	}
	if slides[len(slides)-1].End > 5.0 {
		t.Errorf("last slide ends after total duration")
	}
}

func TestRepairWordsNoOverlap(t *testing.T) {
	noisy := []models.Word{
		{Text: "c", Start: 1.0, End: 1.02},
		{Text: "a", Start: 0.0, End: 0.9},
		{Text: "b", Start: 0.5, End: 0.6},
		{Text: "d", Start: 1.01, End: 3.0},
		{Text: "e", Start: 9.0, End: 9.5},
	}

	words := RepairWords(noisy, 4.0)

	for i, w := range words {
		if w.End > 4.0 {
			t.Errorf("word %q ends after total: %v", w.Text, w.End)
		}
		if w.Start >= w.End {
			t.Errorf("word %q has empty window", w.Text)
		}
		if i > 0 && w.Start < words[i-1].End {
			t.Errorf("word %q overlaps previous", w.Text)
		}
	}

	var got []string
	for _, w := range words {
		got = append(got, w.Text)
	}
	if strings.Join(got, "") != "abcd" {
		t.Errorf("expected order abcd with e dropped, got %v", got)
	}
}

func TestRepairEnforcesGapAndMinimum(t *testing.T) {
	words := RepairWords([]models.Word{
		{Text: "x", Start: 0, End: 0.01},
		{Text: "y", Start: 0, End: 0.01},
	}, 10)

	if !near(words[0].End, MinWordDuration) {
		t.Errorf("expected min duration, got %v", words[0].End)
	}
	if words[1].Start < words[0].End+WordGap-1e-9 {
		t.Errorf("expected gap of %v, got start %v after end %v", WordGap, words[1].Start, words[0].End)
	}
}

func TestDeriveWordsPrefersTimestamps(t *testing.T) {
	e := New(zerolog.Nop())
	scenes := []models.SceneDescriptor{{
		SegmentStart: 0, SegmentEnd: 3, Text: "ignored text here",
		Words: []models.WordTiming{{Word: "real", Start: 0.2, End: 0.8}, {Word: " ", Start: 1, End: 2}},
	}}

	words := e.DeriveWords(scenes, 3)
	if len(words) != 1 || words[0].Text != "real" || words[0].Start != 0.2 {
		t.Fatalf("unexpected words: %+v", words)
	}
}

func TestDeriveWordsRepairsEmptyWindow(t *testing.T) {
	e := New(zerolog.Nop())
	scenes := []models.SceneDescriptor{{SegmentStart: 2, SegmentEnd: 2, Text: "a b"}}

	words := e.DeriveWords(scenes, 10)
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0].Start != 2 {
		t.Errorf("expected words to start at the scene start")
	}
}

func TestTextWidth(t *testing.T) {
	if got := TextWidth("a", 100); got != 60 {
		t.Errorf("average char width = %v, want 60", got)
	}
	if got := TextWidth("i", 100); got != 30 {
		t.Errorf("narrow char width = %v, want 30", got)
	}
	if got := TextWidth("W", 100); got != 72 {
		t.Errorf("wide char width = %v, want 72", got)
	}
	if TextWidth("mmm", 50) <= TextWidth("iii", 50) {
		t.Errorf("wide text should be wider than narrow text")
	}
}

func TestGroupSlidesWrapsOnWidth(t *testing.T) {
	words := []models.Word{
		{Text: "extraordinarily", Start: 0, End: 1},
		{Text: "magnificent", Start: 1.005, End: 2},
		{Text: "words", Start: 2.005, End: 3},
		{Text: "everywhere", Start: 3.005, End: 4},
	}

	slides := GroupSlides(words, 4, 100, 1080)

	for _, s := range slides {
		if len(s.Lines) > 2 {
			t.Errorf("slide has %d lines", len(s.Lines))
		}
		for _, line := range s.Lines {
			if len(line) > 1 {
				var w float64
				for i, idx := range line {
					if i > 0 {
						w += spaceWidth * 100
					}
					w += TextWidth(s.Words[idx].Text, 100)
				}
				if w > MaxLineWidth(1080) {
					t.Errorf("multi-word line too wide: %v", w)
				}
			}
		}
	}
	if len(slides[0].Lines) != 2 {
		t.Errorf("expected the first slide to wrap onto two lines, got %v", slides[0].Lines)
	}
}

func TestLayoutCentres(t *testing.T) {
	s := Slide{
		Words: []models.Word{{Text: "ab", Start: 0, End: 1}, {Text: "cd", Start: 1, End: 2}},
		Lines: [][]int{{0, 1}},
	}

	placed := Layout(s, 100, 1000, 2000, 50)
	if len(placed) != 2 {
		t.Fatalf("expected 2 placed words")
	}
	left := placed[0].X - placed[0].Width/2
	right := placed[1].X + placed[1].Width/2
	if !near(left+right, 1000) {
		t.Errorf("line not centred: %v..%v", left, right)
	}
	if placed[0].Y != 1000 {
		t.Errorf("expected vertical centre at 1000, got %v", placed[0].Y)
	}
}

func TestBuildDeterministic(t *testing.T) {
	e := New(zerolog.Nop())
	style := models.DefaultStyle()
	words := e.DeriveWords(roundTripScenes(), 5)

	a := e.Build(words, 5, style, 1080, 1920)
	b := e.Build(words, 5, style, 1080, 1920)

	if !reflect.DeepEqual(a.Slides, b.Slides) {
		t.Errorf("slides differ between identical builds")
	}
	if a.Document.String() != b.Document.String() {
		t.Errorf("documents differ between identical builds")
	}
}

func TestBuildWordBoxes(t *testing.T) {
	e := New(zerolog.Nop())
	style := models.DefaultStyle()
	style.ProgressBar = true
	words := e.DeriveWords(roundTripScenes(), 5)

	track := e.Build(words, 5, style, 1080, 1920)

	var text, boxes int
	for _, ev := range track.Document.Events {
		switch ev.Layer {
		case LayerText:
			text++
			slideFound := false
			for _, s := range track.Slides {
				if ev.Start == s.Start && ev.End == s.End {
					slideFound = true
				}
			}
			if !slideFound {
				t.Errorf("static text %q not shown for a full slide window", ev.Text)
			}
		case LayerHighlight:
			boxes++
			if ev.Drawing == "" || ev.Fill == nil {
				t.Errorf("highlight event is not a filled drawing")
			}
		}
	}
	if text != 5 || boxes != 5 {
		t.Errorf("expected 5 text + 5 highlight events, got %d + %d", text, boxes)
	}

	if track.Progress == nil {
		t.Fatalf("expected progress bar")
	}
	if track.Progress.FilledFraction(2.5) != 0.5 || track.Progress.FilledFraction(99) != 1 {
		t.Errorf("unexpected progress fraction")
	}
}

func TestBuildKaraokeUppercase(t *testing.T) {
	e := New(zerolog.Nop())

	style := models.DefaultStyle()
	style.Style = models.Style2
	words := e.DeriveWords(roundTripScenes(), 5)
	track := e.Build(words, 5, style, 1080, 1920)

	for _, ev := range track.Document.Events {
		if ev.Layer != LayerText || len(ev.Karaoke) == 0 {
			t.Errorf("karaoke style should only emit karaoke text events, got %+v", ev)
		}
	}
	if !strings.Contains(track.Document.String(), `\kf`) {
		t.Errorf("expected karaoke sweep tags")
	}

	style = models.DefaultStyle()
	style.Style = models.Style3
	style.Language = "tr"
	track = e.Build([]models.Word{{Text: "istanbul", Start: 0, End: 1}}, 1, style, 1080, 1920)
	if got := track.Slides[0].Words[0].Text; got != "İSTANBUL" {
		t.Errorf("expected Turkish upper-casing, got %q", got)
	}
}
