package captions

import (
	"strings"

	"github.com/bobarin/reelsmith/internal/models"
)

// Character width model, as a fraction of the font size.
const (
	avgCharWidth   = 0.6
	narrowFactor   = 0.5
	wideFactor     = 1.2
	spaceWidth     = 0.25
	lineHeight     = 1.15
	maxSlideLines  = 2
	marginFraction = 1.0 / 16
)

const (
	narrowChars = "ijl1|!.,:;'`fIt"
	wideChars   = "mwMW@%"
)

// TextWidth estimates the rendered width of text in pixels.
func TextWidth(text string, fontSize int) float64 {
	avg := avgCharWidth * float64(fontSize)
	var w float64
	for _, r := range text {
		switch {
		case r == ' ':
			w += spaceWidth * float64(fontSize)
		case strings.ContainsRune(narrowChars, r):
			w += avg * narrowFactor
		case strings.ContainsRune(wideChars, r):
			w += avg * wideFactor
		default:
			w += avg
		}
	}
	return w
}

// Slide is a group of words shown together. Lines index into Words.
type Slide struct {
	Words []models.Word
	Lines [][]int
	Start float64
	End   float64
}

// Text returns the slide's words joined by spaces, lines separated by "/".
func (s Slide) Text() string {
	parts := make([]string, 0, len(s.Lines))
	for _, line := range s.Lines {
		var ws []string
		for _, idx := range line {
			ws = append(ws, s.Words[idx].Text)
		}
		parts = append(parts, strings.Join(ws, " "))
	}
	return strings.Join(parts, " / ")
}

// MaxLineWidth is the widest a caption line may be on a frame of width w.
func MaxLineWidth(frameWidth int) float64 {
	return float64(frameWidth) * (1 - 2*marginFraction)
}

// GroupSlides packs words greedily into slides of at most wordsPerLine words,
// wrapping onto a second line when the estimated width would overflow. The
// first word of a slide is always taken even when it alone is too wide.
func GroupSlides(words []models.Word, wordsPerLine, fontSize, frameWidth int) []Slide {
	if wordsPerLine <= 0 {
		wordsPerLine = 1
	}
	maxWidth := MaxLineWidth(frameWidth)
	space := spaceWidth * float64(fontSize)

	var (
		slides    []Slide
		cur       Slide
		lineWidth float64
	)

	flush := func() {
		if len(cur.Words) == 0 {
			return
		}
		cur.Start = cur.Words[0].Start
		cur.End = cur.Words[len(cur.Words)-1].End
		if n := len(slides); n > 0 && cur.Start < slides[n-1].End {
			cur.Start = slides[n-1].End
		}
		if cur.End > cur.Start {
			slides = append(slides, cur)
		}
		cur = Slide{}
	}

	startSlide := func(w models.Word, ww float64) {
		cur.Words = []models.Word{w}
		cur.Lines = [][]int{{0}}
		lineWidth = ww
	}

	for _, w := range words {
		ww := TextWidth(w.Text, fontSize)

		if len(cur.Words) == 0 {
			startSlide(w, ww)
			continue
		}
		if len(cur.Words) >= wordsPerLine {
			flush()
			startSlide(w, ww)
			continue
		}

		idx := len(cur.Words)
		if lineWidth+space+ww <= maxWidth {
			cur.Words = append(cur.Words, w)
			last := len(cur.Lines) - 1
			cur.Lines[last] = append(cur.Lines[last], idx)
			lineWidth += space + ww
			continue
		}
		if len(cur.Lines) < maxSlideLines {
			cur.Words = append(cur.Words, w)
			cur.Lines = append(cur.Lines, []int{idx})
			lineWidth = ww
			continue
		}

		flush()
		startSlide(w, ww)
	}
	flush()

	return slides
}
