package content

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bobarin/reelsmith/internal/models"
)

// FlexString accepts strings, numbers and booleans, keeping the raw text.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(raw)
	return nil
}

// Video is one entry of the content API's videos list.
type Video struct {
	AssetURL          string           `json:"assetUrl"`
	VideoURL          string           `json:"videoUrl"`
	AssetType         string           `json:"assetType,omitempty"`
	SegmentStart      models.FlexFloat `json:"segmentStart"`
	SegmentEnd        models.FlexFloat `json:"segmentEnd"`
	SegmentDuration   models.FlexFloat `json:"segmentDuration"`
	VideoDuration     models.FlexFloat `json:"videoDuration,omitempty"`
	TranscriptionPart string           `json:"transcriptionPart"`
}

// URL returns assetUrl, falling back to videoUrl.
func (v Video) URL() string {
	if v.AssetURL != "" {
		return v.AssetURL
	}
	return v.VideoURL
}

// Word is a word timestamp as sent by the content API.
type Word struct {
	Word  string           `json:"word"`
	Start models.FlexFloat `json:"start"`
	End   models.FlexFloat `json:"end"`
}

// Response is the content API payload.
type Response struct {
	Videos          []Video          `json:"videos"`
	VoiceoverURL    string           `json:"voiceoverUrl"`
	VideoType       string           `json:"videoType"`
	NoOfWords       FlexString       `json:"noOfWords"`
	FontSize        models.FlexInt   `json:"fontSize"`
	FontName        string           `json:"fontName,omitempty"`
	Animation       *models.FlexBool `json:"animation"`
	Resolution      string           `json:"resolution"`
	Compression     string           `json:"compression"`
	ShowProgressBar models.FlexBool  `json:"showProgressBar"`
	Watermark       models.FlexBool  `json:"watermark"`
	WatermarkIcon   string           `json:"watermarkIcon"`
	ColorText1      string           `json:"colorText1"`
	ColorText2      string           `json:"colorText2"`
	ColorBg         string           `json:"colorBg"`
	PositionY       models.FlexInt   `json:"positionY"`
	Duration        models.FlexFloat `json:"duration"`
	Words           []Word           `json:"words,omitempty"`
	BgMusicFile     string           `json:"bg_music_file,omitempty"`
}

// Job is a content response resolved against a render request: scenes in
// order, the merged style and the auxiliary asset URLs.
type Job struct {
	Scenes           []models.SceneDescriptor
	Style            models.StyleConfig
	VoiceoverURL     string
	LogoURL          string
	MusicURL         string
	FontURL          string
	DeclaredDuration float64
}

// ToJob resolves the response. Precedence for style values is request
// override, then API value, then base.
func (r *Response) ToJob(req models.RenderRequest, base models.StyleConfig) (*Job, error) {
	if len(r.Videos) == 0 {
		return nil, models.NewError(models.KindUpstreamAPI, "resolve content", fmt.Errorf("response has no videos"))
	}
	if r.VoiceoverURL == "" {
		return nil, models.NewError(models.KindUpstreamAPI, "resolve content", fmt.Errorf("response has no voiceover"))
	}

	job := &Job{
		VoiceoverURL:     r.VoiceoverURL,
		MusicURL:         r.BgMusicFile,
		DeclaredDuration: float64(r.Duration),
	}

	for _, v := range r.Videos {
		sc := models.SceneDescriptor{
			AssetURL:        v.URL(),
			AssetType:       declaredType(v),
			SegmentStart:    float64(v.SegmentStart),
			SegmentEnd:      float64(v.SegmentEnd),
			SegmentDuration: float64(v.SegmentDuration),
			Text:            v.TranscriptionPart,
		}
		// Global word list is split across scenes by window.
		for _, w := range r.Words {
			start, end := float64(w.Start), float64(w.End)
			if start >= sc.SegmentStart && end <= sc.SegmentEnd {
				sc.Words = append(sc.Words, models.WordTiming{Word: w.Word, Start: start, End: end})
			}
		}
		job.Scenes = append(job.Scenes, sc)
	}

	s := base
	s.Style = models.ParseStyleID(req.Style)
	if req.Language != "" {
		s.Language = req.Language
	}

	// API values
	if n := models.ParseWordsPerLine(string(r.NoOfWords)); n > 0 {
		s.WordsPerLine = n
	}
	if r.FontSize > 0 {
		s.FontSizePx = int(r.FontSize)
	}
	if r.FontName != "" {
		if isURL(r.FontName) {
			job.FontURL = r.FontName
		} else {
			s.FontFamily = r.FontName
		}
	}
	if r.Animation != nil {
		s.Animation = bool(*r.Animation)
	}
	setString(&s.Resolution, r.Resolution)
	setOrientation(&s, r.VideoType)
	if r.Compression != "" {
		s.Compression = models.CompressionPreset(r.Compression)
	}
	s.ProgressBar = bool(r.ShowProgressBar)
	s.Watermark = bool(r.Watermark) && r.WatermarkIcon != ""
	if s.Watermark {
		job.LogoURL = r.WatermarkIcon
	}
	setString(&s.TextColor, r.ColorText1)
	setString(&s.HighlightColor, r.ColorText2)
	setString(&s.BackgroundColor, r.ColorBg)
	if r.PositionY > 0 {
		s.PositionYPercent = int(r.PositionY)
	}

	// Request overrides
	if req.NoOfWords != nil && *req.NoOfWords > 0 {
		s.WordsPerLine = int(*req.NoOfWords)
	}
	if req.FontSize != nil && *req.FontSize > 0 {
		s.FontSizePx = int(*req.FontSize)
	}
	if req.Animation != nil {
		s.Animation = bool(*req.Animation)
	}
	setString(&s.Resolution, req.Resolution)
	setOrientation(&s, req.VideoType)
	if req.Compression != "" {
		s.Compression = models.CompressionPreset(req.Compression)
	}
	if req.ShowProgressBar != nil {
		s.ProgressBar = bool(*req.ShowProgressBar)
	}
	if req.Watermark != nil {
		s.Watermark = bool(*req.Watermark) && job.LogoURL != ""
	}
	setString(&s.TextColor, req.ColorText1)
	setString(&s.HighlightColor, req.ColorText2)
	setString(&s.BackgroundColor, req.ColorBg)
	if req.PositionY != nil && *req.PositionY > 0 {
		s.PositionYPercent = int(*req.PositionY)
	}

	job.Style = s.Normalize()
	if !job.Style.Watermark {
		job.LogoURL = ""
	}
	return job, nil
}

// LoadFixture reads a saved content API response from disk.
func LoadFixture(path string) (*Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &r, nil
}

func declaredType(v Video) models.AssetType {
	switch strings.ToLower(v.AssetType) {
	case "image", "photo", "picture":
		return models.AssetTypeImage
	case "video", "clip":
		return models.AssetTypeVideo
	}
	if v.AssetURL == "" && v.VideoURL != "" {
		return models.AssetTypeVideo
	}
	return ""
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setOrientation(s *models.StyleConfig, videoType string) {
	switch strings.ToLower(strings.TrimSpace(videoType)) {
	case "landscape", "horizontal", "16:9":
		s.Orientation = models.OrientationLandscape
	case "portrait", "vertical", "9:16", "reel", "short":
		s.Orientation = models.OrientationPortrait
	case "square", "1:1":
		s.Orientation = models.OrientationSquare
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// formatBool renders a flag for the outbound query string.
func formatBool(b bool) string {
	return strconv.FormatBool(b)
}
