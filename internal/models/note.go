// Package models defines the domain types for envisage.
package models

import "time"

// Frontmatter keys, in the order they are written.
const (
	KeyCreatedUTC   = "created_utc"
	KeySource       = "source"
	KeyOrigFilename = "orig_filename"
	KeyTopics       = "topics"
	KeyVersion      = "version"
	KeyOCREngine    = "ocr_engine"
)

// FrontmatterKeys lists the required keys of a well-formed note.
var FrontmatterKeys = []string{
	KeyCreatedUTC,
	KeySource,
	KeyOrigFilename,
	KeyTopics,
	KeyVersion,
	KeyOCREngine,
}

// Provenance tags.
const (
	SourceScreenshot = "screenshot"
	SourceClipboard  = "clipboard"
	SourceUpload     = "upload"
)

// Defaults applied by the note builder.
const (
	DefaultTopics  = "general"
	DefaultVersion = "1.0"
)

// NoteRecord is a persisted note: OCR output plus metadata for one source image.
// It is written once and never mutated.
type NoteRecord struct {
	Path             string    `json:"path"`
	Filename         string    `json:"filename"`
	CreatedUTC       time.Time `json:"created_utc"`
	Source           string    `json:"source"`
	OrigFilename     string    `json:"orig_filename"`
	Topics           string    `json:"topics"`
	Version          string    `json:"version"`
	OCREngine        string    `json:"ocr_engine"`
	Body             string    `json:"body"`
	ExtractionFailed bool      `json:"extraction_failed"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
