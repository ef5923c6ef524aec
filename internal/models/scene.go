package models

// AssetType classifies a visual asset. Only stills and clips are supported.
type AssetType string

const (
	AssetTypeVideo AssetType = "video"
	AssetTypeImage AssetType = "image"
)

// WordTiming is a word with absolute timestamps (seconds from voiceover start)
// as delivered by the content API or a word aligner.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SceneDescriptor is one narrated segment as described by the content API.
type SceneDescriptor struct {
	AssetURL        string       `json:"asset_url"`
	AssetType       AssetType    `json:"asset_type"`
	SegmentStart    float64      `json:"segment_start"`
	SegmentEnd      float64      `json:"segment_end"`
	SegmentDuration float64      `json:"segment_duration,omitempty"` // 0 = derive from start/end
	Text            string       `json:"text"`
	Words           []WordTiming `json:"words,omitempty"`
}

// DeclaredDuration is the duration the API asked for this scene's visual.
// Falls back to the segment window when no explicit duration was sent.
func (s SceneDescriptor) DeclaredDuration() float64 {
	if s.SegmentDuration > 0 {
		return s.SegmentDuration
	}
	return s.SegmentEnd - s.SegmentStart
}

// VisualSegment is one entry of the render-order visual track.
type VisualSegment struct {
	AssetPath  string    `json:"asset_path"`
	AssetType  AssetType `json:"asset_type"`
	Duration   float64   `json:"duration"`
	Position   int       `json:"position"`
	SceneIndex int       `json:"scene_index"`
}

// Word is a caption word after timing repair. Start/End are absolute seconds.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End-Start.
func (w Word) Duration() float64 {
	return w.End - w.Start
}
