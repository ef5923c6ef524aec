package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies render failures so callers can decide between
// surfacing, retrying and falling back.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindUpstreamAPI     ErrorKind = "upstream_api"
	KindAssetDownload   ErrorKind = "asset_download"
	KindAudioProbe      ErrorKind = "audio_probe"
	KindEmptyTimeline   ErrorKind = "empty_timeline"
	KindGraphValidation ErrorKind = "graph_validation"
	KindEncode          ErrorKind = "encode"
	KindUpload          ErrorKind = "upload"
	KindInternal        ErrorKind = "internal"
)

// RenderError is the error type returned by every pipeline stage.
type RenderError struct {
	Kind   ErrorKind
	Op     string
	Detail string // diagnostics: graph fragment, encoder output, ...
	Err    error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind and the failing operation.
func NewError(kind ErrorKind, op string, err error) *RenderError {
	return &RenderError{Kind: kind, Op: op, Err: err}
}

// NewErrorDetail is NewError with attached diagnostics.
func NewErrorDetail(kind ErrorKind, op string, err error, detail string) *RenderError {
	return &RenderError{Kind: kind, Op: op, Err: err, Detail: detail}
}

// KindOf returns the kind of the first RenderError in err's chain.
func KindOf(err error) ErrorKind {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

// IsRetryable reports whether a whole-job retry can plausibly succeed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindUpstreamAPI, KindAssetDownload:
		return true
	}
	return false
}
