package models

import (
	"strconv"
	"strings"
)

// StyleID selects one of the supported caption/motion looks.
type StyleID string

const (
	Style1 StyleID = "style_1" // word boxes, slow zoom-in, hard cuts
	Style2 StyleID = "style_2" // karaoke sweep, anchored zoom, crossfades
	Style3 StyleID = "style_3" // word boxes, anchored zoom, crossfades
	Style4 StyleID = "style_4" // word boxes, directional pan+zoom, crossfades
)

// CaptionMode is how the active word is decorated.
type CaptionMode string

const (
	CaptionWordBoxes CaptionMode = "word_boxes"
	CaptionKaraoke   CaptionMode = "karaoke"
)

// MotionFamily is the family of zoom/pan effects applied per segment.
type MotionFamily string

const (
	MotionZoomIn      MotionFamily = "zoom_in"
	MotionAnchorZoom  MotionFamily = "anchor_zoom"
	MotionDirectional MotionFamily = "directional_pan"
)

// StitchMode is how consecutive segments are joined.
type StitchMode string

const (
	StitchConcat    StitchMode = "concat"
	StitchCrossfade StitchMode = "crossfade"
)

// StyleProfile is the fixed behaviour bundle behind a StyleID.
type StyleProfile struct {
	Captions  CaptionMode
	Motion    MotionFamily
	Stitch    StitchMode
	Uppercase bool
}

var styleProfiles = map[StyleID]StyleProfile{
	Style1: {Captions: CaptionWordBoxes, Motion: MotionZoomIn, Stitch: StitchConcat},
	Style2: {Captions: CaptionKaraoke, Motion: MotionAnchorZoom, Stitch: StitchCrossfade},
	Style3: {Captions: CaptionWordBoxes, Motion: MotionAnchorZoom, Stitch: StitchCrossfade, Uppercase: true},
	Style4: {Captions: CaptionWordBoxes, Motion: MotionDirectional, Stitch: StitchCrossfade, Uppercase: true},
}

// ParseStyleID normalizes a style name, falling back to style_1.
func ParseStyleID(s string) StyleID {
	id := StyleID(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := styleProfiles[id]; ok {
		return id
	}
	return Style1
}

// Profile returns the behaviour bundle for the style.
func (id StyleID) Profile() StyleProfile {
	if p, ok := styleProfiles[id]; ok {
		return p
	}
	return styleProfiles[Style1]
}

// Orientation of the output frame.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
	OrientationSquare    Orientation = "square"
)

// Resolution preset names.
const (
	Resolution720p  = "720p"
	Resolution1080p = "1080p"
)

// CompressionPreset selects the quality tier of the final encode.
type CompressionPreset string

const (
	CompressionStudio CompressionPreset = "studio"       // archival
	CompressionSocial CompressionPreset = "social_media" // social
	CompressionWeb    CompressionPreset = "web"          // web
)

// EncodeQuality is the rate control for one compression preset.
type EncodeQuality struct {
	CRF        int
	MaxBitrate string
	BufSize    string
}

// Quality maps the preset to rate control values. Unknown presets use studio.
func (c CompressionPreset) Quality() EncodeQuality {
	switch c {
	case CompressionSocial:
		return EncodeQuality{CRF: 23, MaxBitrate: "6M", BufSize: "12M"}
	case CompressionWeb:
		return EncodeQuality{CRF: 28, MaxBitrate: "3M", BufSize: "6M"}
	default:
		return EncodeQuality{CRF: 18, MaxBitrate: "12M", BufSize: "24M"}
	}
}

// StyleConfig is the complete set of visual knobs for one render.
type StyleConfig struct {
	Style            StyleID           `json:"style"`
	WordsPerLine     int               `json:"words_per_line"`
	FontFamily       string            `json:"font_family"`
	FontFile         string            `json:"font_file,omitempty"`
	FontSizePx       int               `json:"font_size_px"`
	TextColor        string            `json:"text_color"`
	HighlightColor   string            `json:"highlight_color"`
	BackgroundColor  string            `json:"background_color"`
	PositionYPercent int               `json:"position_y_percent"`
	Animation        bool              `json:"animation"`
	ProgressBar      bool              `json:"progress_bar"`
	Watermark        bool              `json:"watermark"`
	Resolution       string            `json:"resolution"`
	Orientation      Orientation       `json:"orientation"`
	Compression      CompressionPreset `json:"compression"`
	Language         string            `json:"language"`
}

// DefaultStyle returns the style used when neither the request nor the
// content API say otherwise.
func DefaultStyle() StyleConfig {
	return StyleConfig{
		Style:            Style1,
		WordsPerLine:     2,
		FontFamily:       "Poetsen One",
		FontSizePx:       100,
		TextColor:        "#FFFFFF",
		HighlightColor:   "#000000",
		BackgroundColor:  "#FF00FF",
		PositionYPercent: 50,
		Animation:        true,
		Resolution:       Resolution1080p,
		Orientation:      OrientationPortrait,
		Compression:      CompressionStudio,
		Language:         "en",
	}
}

// Dimensions maps resolution x orientation to the output frame size.
func (s StyleConfig) Dimensions() (int, int) {
	short, long := 1080, 1920
	if s.Resolution == Resolution720p {
		short, long = 720, 1280
	}
	switch s.Orientation {
	case OrientationLandscape:
		return long, short
	case OrientationSquare:
		return short, short
	default:
		return short, long
	}
}

// Normalize clamps out-of-range values to usable defaults.
func (s StyleConfig) Normalize() StyleConfig {
	def := DefaultStyle()
	s.Style = ParseStyleID(string(s.Style))
	if s.WordsPerLine <= 0 {
		s.WordsPerLine = def.WordsPerLine
	}
	if s.FontSizePx <= 0 || s.FontSizePx > 400 {
		s.FontSizePx = def.FontSizePx
	}
	if s.FontFamily == "" {
		s.FontFamily = def.FontFamily
	}
	if s.PositionYPercent <= 0 || s.PositionYPercent >= 100 {
		s.PositionYPercent = def.PositionYPercent
	}
	if s.Resolution != Resolution720p {
		s.Resolution = Resolution1080p
	}
	switch s.Orientation {
	case OrientationLandscape, OrientationSquare, OrientationPortrait:
	default:
		s.Orientation = OrientationPortrait
	}
	switch s.Compression {
	case CompressionStudio, CompressionSocial, CompressionWeb:
	default:
		s.Compression = CompressionStudio
	}
	if s.TextColor == "" {
		s.TextColor = def.TextColor
	}
	if s.HighlightColor == "" {
		s.HighlightColor = def.HighlightColor
	}
	if s.BackgroundColor == "" {
		s.BackgroundColor = def.BackgroundColor
	}
	if s.Language == "" {
		s.Language = def.Language
	}
	return s
}

// ParseWordsPerLine accepts "more"/"less" as well as plain integers.
func ParseWordsPerLine(v string) int {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return 0
	case "more":
		return 4
	case "less":
		return 2
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
