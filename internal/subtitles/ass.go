// Package subtitles models an ASS (Advanced SubStation Alpha) script: the
// hand-off format between caption layout and the ffmpeg `ass` filter.
//
// Every event is anchored with \an5\pos so positions are the centre of the
// text or drawing in PlayRes coordinates, which always match the output frame.
package subtitles

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Style is one row of the [V4+ Styles] table.
type Style struct {
	Name      string
	FontName  string
	FontSize  int
	Primary   Color // fill, and the "sung" colour for karaoke
	Secondary Color // karaoke "unsung" colour
	Outline   Color
	Back      Color
	Bold      bool
	Border    int // outline thickness
	Shadow    int
	Alignment int // numpad alignment; 5 = middle centre
}

// KaraokeSpan is one word of a karaoke line. Delay is silence before the
// word starts sweeping, Duration is the sweep itself (both in seconds).
type KaraokeSpan struct {
	Text     string
	Delay    float64
	Duration float64
}

// Event is one Dialogue line. Exactly one of Text, Drawing and Karaoke is
// rendered, in that order of precedence: Drawing, Karaoke, Text.
type Event struct {
	Layer   int
	Start   float64
	End     float64
	Style   string
	X, Y    float64
	Fill    *Color // per-event \1c override
	Tags    string // extra override tags, e.g. \t(...)
	Text    string
	Drawing string // \p1 vector path
	Karaoke []KaraokeSpan
}

// Document is a complete ASS script.
type Document struct {
	Width  int
	Height int
	Styles []Style
	Events []Event
}

// New creates an empty document whose canvas matches the output frame.
func New(width, height int) *Document {
	return &Document{Width: width, Height: height}
}

func (d *Document) AddStyle(s Style) {
	d.Styles = append(d.Styles, s)
}

func (d *Document) AddEvent(e Event) {
	d.Events = append(d.Events, e)
}

// WriteTo serializes the script.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString(fmt.Sprintf("PlayResX: %d\n", d.Width))
	sb.WriteString(fmt.Sprintf("PlayResY: %d\n", d.Height))
	sb.WriteString("WrapStyle: 2\n")
	sb.WriteString("ScaledBorderAndShadow: yes\n")
	sb.WriteString("\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	for _, s := range d.Styles {
		bold := 0
		if s.Bold {
			bold = -1
		}
		align := s.Alignment
		if align == 0 {
			align = 5
		}
		sb.WriteString(fmt.Sprintf(
			"Style: %s,%s,%d,%s,%s,%s,%s,%d,0,0,0,100,100,0,0,1,%d,%d,%d,0,0,0,1\n",
			s.Name, s.FontName, s.FontSize,
			s.Primary.ASS(), s.Secondary.ASS(), s.Outline.ASS(), s.Back.ASS(),
			bold, s.Border, s.Shadow, align,
		))
	}
	sb.WriteString("\n")

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, e := range d.Events {
		style := e.Style
		if style == "" {
			style = "Default"
		}
		sb.WriteString(fmt.Sprintf(
			"Dialogue: %d,%s,%s,%s,,0,0,0,,%s\n",
			e.Layer, FormatTime(e.Start), FormatTime(e.End), style, e.body(),
		))
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// String returns the serialized script.
func (d *Document) String() string {
	var sb strings.Builder
	d.WriteTo(&sb)
	return sb.String()
}

// WriteFile writes the script to path.
func (d *Document) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create subtitle file: %w", err)
	}
	if _, err := d.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return f.Close()
}

func (e Event) body() string {
	var tags strings.Builder
	tags.WriteString(fmt.Sprintf(`\an5\pos(%s,%s)`, num(e.X), num(e.Y)))
	if e.Fill != nil {
		tags.WriteString(`\1c` + e.Fill.ASSInline())
	}
	tags.WriteString(e.Tags)

	switch {
	case e.Drawing != "":
		return "{" + tags.String() + `\p1}` + e.Drawing + `{\p0}`
	case len(e.Karaoke) > 0:
		var sb strings.Builder
		sb.WriteString("{" + tags.String() + "}")
		for i, k := range e.Karaoke {
			if i > 0 {
				sb.WriteString(" ")
			}
			if cs := centis(k.Delay); cs > 0 {
				sb.WriteString(fmt.Sprintf(`{\k%d}`, cs))
			}
			sb.WriteString(fmt.Sprintf(`{\kf%d}`, centis(k.Duration)))
			sb.WriteString(EscapeText(k.Text))
		}
		return sb.String()
	default:
		return "{" + tags.String() + "}" + EscapeText(e.Text)
	}
}

// FormatTime converts seconds to ASS timestamp format: H:MM:SS.CC
func FormatTime(seconds float64) string {
	cs := centis(seconds)
	hours := cs / 360000
	minutes := (cs % 360000) / 6000
	secs := (cs % 6000) / 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, cs%100)
}

func centis(seconds float64) int {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int(math.Round(seconds * 100))
}

// EscapeText neutralizes characters that libass would read as override
// blocks or escape sequences.
func EscapeText(s string) string {
	r := strings.NewReplacer(
		"{", "(",
		"}", ")",
		`\`, "/",
		"\n", " ",
	)
	return r.Replace(s)
}

// RoundedRect returns a \p1 path for a w×h rectangle with corner radius r,
// drawn from the origin.
func RoundedRect(w, h, r float64) string {
	if r < 0 {
		r = 0
	}
	r = math.Min(r, math.Min(w, h)/2)
	k := r * 0.5523 // cubic approximation of a quarter circle

	var sb strings.Builder
	p := func(cmd string, pts ...float64) {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(cmd)
		for _, v := range pts {
			sb.WriteString(" ")
			sb.WriteString(num(v))
		}
	}

	p("m", r, 0)
	p("l", w-r, 0)
	p("b", w-r+k, 0, w, r-k, w, r)
	p("l", w, h-r)
	p("b", w, h-r+k, w-r+k, h, w-r, h)
	p("l", r, h)
	p("b", r-k, h, 0, h-r+k, 0, h-r)
	p("l", 0, r)
	p("b", 0, r-k, r-k, 0, r, 0)
	return sb.String()
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
