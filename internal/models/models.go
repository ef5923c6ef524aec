package models

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Enums
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// FlexBool accepts true/false as JSON booleans or strings ("true", "1", ...).
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*b = false
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		*b = false
		return nil
	}
	*b = FlexBool(v)
	return nil
}

// FlexInt accepts numbers or numeric strings. Unparseable values decode as 0.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = FlexInt(int(f))
	return nil
}

// FlexFloat accepts numbers or numeric strings. Unparseable values decode as 0.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// RenderRequest is the inbound render request (POST /generate-video body).
// Every style field is optional and overrides what the content API returns.
type RenderRequest struct {
	Text                string    `json:"text"`
	Language            string    `json:"language,omitempty"`
	Style               string    `json:"style,omitempty"`
	TranscriptionFormat string    `json:"transcription_format,omitempty"`
	Animation           *FlexBool `json:"animation,omitempty"`
	VideoType           string    `json:"videoType,omitempty"`
	Resolution          string    `json:"resolution,omitempty"`
	Compression         string    `json:"compression,omitempty"`
	NoOfWords           *FlexInt  `json:"noOfWords,omitempty"`
	FontSize            *FlexInt  `json:"fontSize,omitempty"`
	ShowProgressBar     *FlexBool `json:"showProgressBar,omitempty"`
	Watermark           *FlexBool `json:"watermark,omitempty"`
	ColorText1          string    `json:"colorText1,omitempty"`
	ColorText2          string    `json:"colorText2,omitempty"`
	ColorBg             string    `json:"colorBg,omitempty"`
	PositionY           *FlexInt  `json:"positionY,omitempty"`
}

// WithDefaults fills language, style and transcription format.
func (r RenderRequest) WithDefaults() RenderRequest {
	if r.Language == "" {
		r.Language = "en"
	}
	if r.Style == "" {
		r.Style = string(Style1)
	}
	if r.TranscriptionFormat == "" {
		r.TranscriptionFormat = "segment"
	}
	return r
}

// RenderResult is what a finished render hands back. Exactly one of URL and
// LocalPath is set: callers must not assume the output was uploaded.
type RenderResult struct {
	JobID     uuid.UUID `json:"job_id"`
	URL       string    `json:"url,omitempty"`
	LocalPath string    `json:"path,omitempty"`
	Duration  float64   `json:"duration"`
	Segments  int       `json:"segments"`
	Words     int       `json:"words"`
}

// Location returns the URL when uploaded, otherwise the local path.
func (r *RenderResult) Location() string {
	if r.URL != "" {
		return r.URL
	}
	return r.LocalPath
}

// RenderJob is the persisted record of an asynchronous render.
type RenderJob struct {
	ID           uuid.UUID  `json:"id"`
	Status       JobStatus  `json:"status"`
	Request      JSONB      `json:"request"`
	Attempts     int        `json:"attempts"`
	ResultURL    *string    `json:"result_url,omitempty"`
	LocalPath    *string    `json:"local_path,omitempty"`
	DurationSec  *float64   `json:"duration_sec,omitempty"`
	ErrorKind    *string    `json:"error_kind,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DTOs for API responses
type GenerateVideoResponse struct {
	Status   string `json:"status"`
	VideoURL string `json:"videoUrl,omitempty"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

type CreateRenderResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status JobStatus `json:"status"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
