// Package ocr defines the text-extraction boundary. Extraction never fails
// the caller: an engine error is reported as a Failed result so a note can
// still be written for the capture.
package ocr

import (
	"context"
	"image"
	"strings"
)

// ErrorMarker prefixes the body of a note whose extraction failed.
const ErrorMarker = "[OCR ERROR]"

// Engine extracts text from a decoded image.
type Engine interface {
	// Name identifies the engine in note metadata.
	Name() string
	Extract(ctx context.Context, img image.Image) Result
}

// Result is the outcome of an extraction: either extracted text or a failure reason.
type Result struct {
	text   string
	reason string
	failed bool
}

// Extracted returns a successful result.
func Extracted(text string) Result {
	return Result{text: text}
}

// Failed returns a degraded result carrying reason.
func Failed(reason string) Result {
	return Result{reason: reason, failed: true}
}

// Failed reports whether extraction failed.
func (r Result) Failed() bool { return r.failed }

// Text returns the extracted text; empty for failed results.
func (r Result) Text() string { return r.text }

// Reason returns the failure reason; empty for successful results.
func (r Result) Reason() string { return r.reason }

// Body renders the result as note body text.
func (r Result) Body() string {
	if r.failed {
		return ErrorMarker + " " + strings.TrimSpace(r.reason)
	}
	return r.text
}
