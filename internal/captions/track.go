package captions

import (
	"fmt"
	"math"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/subtitles"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Subtitle layers. Highlights sit under the static text.
const (
	LayerHighlight = 0
	LayerText      = 1
)

const (
	progressBarHeight = 80
	popInMs           = 80
	popSettleMs       = 150
)

// PlacedWord is a word with its centre position on the frame.
type PlacedWord struct {
	models.Word
	X, Y  float64
	Width float64
	Line  int
}

// ProgressBar describes the two-colour bar composited over the video.
type ProgressBar struct {
	Total  float64
	Height int
	Y      int
	Fill   subtitles.Color
	Track  subtitles.Color
}

// FilledFraction is the share of the bar that is filled at playback time t.
func (p ProgressBar) FilledFraction(t float64) float64 {
	if p.Total <= 0 || t <= 0 {
		return 0
	}
	return math.Min(t/p.Total, 1)
}

// Track is the complete caption overlay for one render.
type Track struct {
	Width, Height int
	Total         float64
	Slides        []Slide
	Placed        [][]PlacedWord // per slide
	Progress      *ProgressBar
	Document      *subtitles.Document
}

// Layout positions a slide's words: each line is centred horizontally and the
// block of lines is centred on positionY percent of the frame height.
func Layout(s Slide, fontSize, width, height, positionY int) []PlacedWord {
	font := float64(fontSize)
	lh := lineHeight * font
	space := spaceWidth * font

	blockHeight := lh * float64(len(s.Lines))
	top := float64(height)*float64(positionY)/100 - blockHeight/2

	placed := make([]PlacedWord, 0, len(s.Words))
	for li, line := range s.Lines {
		var lineWidth float64
		for i, idx := range line {
			if i > 0 {
				lineWidth += space
			}
			lineWidth += TextWidth(s.Words[idx].Text, fontSize)
		}

		x := (float64(width) - lineWidth) / 2
		y := top + lh*(float64(li)+0.5)
		for _, idx := range line {
			ww := TextWidth(s.Words[idx].Text, fontSize)
			placed = append(placed, PlacedWord{
				Word:  s.Words[idx],
				X:     x + ww/2,
				Y:     y,
				Width: ww,
				Line:  li,
			})
			x += ww + space
		}
	}
	return placed
}

// Build lays out words for the given style and frame and renders the
// subtitle document. words must already be repaired against total.
func (e *Engine) Build(words []models.Word, total float64, style models.StyleConfig, width, height int) *Track {
	profile := style.Style.Profile()

	display := words
	if profile.Uppercase {
		upper := cases.Upper(language.Make(style.Language))
		display = make([]models.Word, len(words))
		for i, w := range words {
			w.Text = upper.String(w.Text)
			display[i] = w
		}
	}

	slides := GroupSlides(display, style.WordsPerLine, style.FontSizePx, width)

	t := &Track{
		Width:  width,
		Height: height,
		Total:  total,
		Slides: slides,
		Placed: make([][]PlacedWord, len(slides)),
	}
	for i, s := range slides {
		t.Placed[i] = Layout(s, style.FontSizePx, width, height, style.PositionYPercent)
	}

	if style.ProgressBar {
		t.Progress = &ProgressBar{
			Total:  total,
			Height: progressBarHeight,
			Y:      0,
			Fill:   subtitles.MustColor(style.BackgroundColor, subtitles.White),
			Track:  subtitles.MustColor(style.TextColor, subtitles.Black),
		}
	}

	t.Document = e.render(t, style, profile)

	e.log.Debug().
		Int("words", len(words)).
		Int("slides", len(slides)).
		Str("style", string(style.Style)).
		Msg("caption track built")

	return t
}

func (e *Engine) render(t *Track, style models.StyleConfig, profile models.StyleProfile) *subtitles.Document {
	textColor := subtitles.MustColor(style.TextColor, subtitles.White)
	highlight := subtitles.MustColor(style.HighlightColor, subtitles.Black)
	boxColor := subtitles.MustColor(style.BackgroundColor, subtitles.White)

	border := style.FontSizePx / 20
	if border < 2 {
		border = 2
	}
	font := style.FontFamily

	doc := subtitles.New(t.Width, t.Height)
	doc.AddStyle(subtitles.Style{
		Name:      "Default",
		FontName:  font,
		FontSize:  style.FontSizePx,
		Primary:   textColor,
		Secondary: textColor,
		Outline:   subtitles.Black,
		Back:      subtitles.Black,
		Bold:      true,
		Border:    border,
		Alignment: 5,
	})
	if profile.Captions == models.CaptionKaraoke {
		doc.AddStyle(subtitles.Style{
			Name:      "Karaoke",
			FontName:  font,
			FontSize:  style.FontSizePx,
			Primary:   highlight,
			Secondary: textColor,
			Outline:   subtitles.Black,
			Back:      subtitles.Black,
			Bold:      true,
			Border:    border,
			Alignment: 5,
		})
	}

	for si, s := range t.Slides {
		placed := t.Placed[si]

		if profile.Captions == models.CaptionKaraoke {
			e.renderKaraoke(doc, s, placed, style.Animation)
			continue
		}

		for _, pw := range placed {
			ev := subtitles.Event{
				Layer: LayerText,
				Start: s.Start,
				End:   s.End,
				Style: "Default",
				X:     pw.X,
				Y:     pw.Y,
				Text:  pw.Text,
			}
			if style.Animation {
				ev.Tags = colourSwap(pw.Start-s.Start, pw.End-s.Start, highlight, textColor)
				doc.AddEvent(highlightBox(pw, style.FontSizePx, boxColor))
			}
			doc.AddEvent(ev)
		}
	}

	return doc
}

// renderKaraoke emits one event per line that sweeps each word from the
// text colour to the highlight colour over the word's window.
func (e *Engine) renderKaraoke(doc *subtitles.Document, s Slide, placed []PlacedWord, animate bool) {
	lines := map[int][]PlacedWord{}
	var order []int
	for _, pw := range placed {
		if _, ok := lines[pw.Line]; !ok {
			order = append(order, pw.Line)
		}
		lines[pw.Line] = append(lines[pw.Line], pw)
	}

	for _, li := range order {
		line := lines[li]
		ev := subtitles.Event{
			Layer: LayerText,
			Start: s.Start,
			End:   s.End,
			Style: "Karaoke",
			X:     (line[0].X - line[0].Width/2 + line[len(line)-1].X + line[len(line)-1].Width/2) / 2,
			Y:     line[0].Y,
		}

		if !animate {
			ev.Style = "Default"
			for i, pw := range line {
				if i > 0 {
					ev.Text += " "
				}
				ev.Text += pw.Text
			}
			doc.AddEvent(ev)
			continue
		}

		// The sweep clock starts at the event start.
		cursor := s.Start
		for _, pw := range line {
			ev.Karaoke = append(ev.Karaoke, subtitles.KaraokeSpan{
				Text:     pw.Text,
				Delay:    math.Max(pw.Start-cursor, 0),
				Duration: pw.End - pw.Start,
			})
			cursor = math.Max(cursor, pw.End)
		}
		doc.AddEvent(ev)
	}
}

// highlightBox is the rounded rectangle behind the active word. It pops in
// slightly oversized and settles to full size.
func highlightBox(pw PlacedWord, fontSize int, fill subtitles.Color) subtitles.Event {
	font := float64(fontSize)
	w := pw.Width + 0.3*font
	h := lineHeight * font
	return subtitles.Event{
		Layer:   LayerHighlight,
		Start:   pw.Start,
		End:     pw.End,
		Style:   "Default",
		X:       pw.X,
		Y:       pw.Y,
		Fill:    &fill,
		Tags:    fmt.Sprintf(`\bord0\shad0\fscx85\fscy85\t(0,%d,\fscx108\fscy108)\t(%d,%d,\fscx100\fscy100)`, popInMs, popInMs, popSettleMs),
		Drawing: subtitles.RoundedRect(w, h, 0.2*font),
	}
}

// colourSwap switches the text fill to on during [from,to) seconds relative
// to the event start and back to off afterwards.
func colourSwap(from, to float64, on, off subtitles.Color) string {
	a := int(math.Round(from * 1000))
	b := int(math.Round(to * 1000))
	if a < 0 {
		a = 0
	}
	return fmt.Sprintf(`\t(%d,%d,\1c%s)\t(%d,%d,\1c%s)`, a, a, on.ASSInline(), b, b, off.ASSInline())
}
