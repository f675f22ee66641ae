// Package note turns an image into a durable note record: OCR, metadata,
// deterministic filename and an atomic write.
package note

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/starford/envisage/internal/imaging"
	"github.com/starford/envisage/internal/models"
	"github.com/starford/envisage/internal/ocr"
	"github.com/starford/envisage/internal/parser"
	"github.com/starford/envisage/internal/stamp"
	"github.com/starford/envisage/internal/storage"
)

// EmptyBody is written when extraction produced no text.
const EmptyBody = "(no text)"

// Input describes one image to turn into a note.
type Input struct {
	// Data holds the encoded image. Ignored when Image is set.
	Data []byte
	// Image is an already decoded image.
	Image image.Image
	// OrigFilename is recorded verbatim in the frontmatter.
	OrigFilename string
	// Stem overrides the filename stem; defaults to the stem of OrigFilename.
	Stem    string
	Source  string
	Topics  string
	Version string
}

// Builder writes notes into a notes directory.
type Builder struct {
	store   storage.Provider
	engine  ocr.Engine
	stamper *stamp.Stamper
	logger  *slog.Logger

	topics  string
	version string
}

// Option configures a Builder.
type Option func(*Builder)

// WithStamper shares a stamper with other writers (e.g. clipboard captures).
func WithStamper(s *stamp.Stamper) Option {
	return func(b *Builder) { b.stamper = s }
}

// WithDefaults sets the topics and version used when an Input leaves them empty.
func WithDefaults(topics, version string) Option {
	return func(b *Builder) {
		if strings.TrimSpace(topics) != "" {
			b.topics = strings.TrimSpace(topics)
		}
		if strings.TrimSpace(version) != "" {
			b.version = strings.TrimSpace(version)
		}
	}
}

// NewBuilder creates a Builder writing through store (rooted at the notes dir).
func NewBuilder(store storage.Provider, engine ocr.Engine, logger *slog.Logger, opts ...Option) *Builder {
	b := &Builder{
		store:   store,
		engine:  engine,
		logger:  logger,
		topics:  models.DefaultTopics,
		version: models.DefaultVersion,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.stamper == nil {
		b.stamper = stamp.New(nil)
	}
	return b
}

// Build decodes the image, runs OCR and writes the note. A decode failure
// returns an error wrapping apperr.ErrDecode and leaves no file behind; an
// OCR failure is recorded in the note body instead.
func (b *Builder) Build(ctx context.Context, in Input) (*models.NoteRecord, error) {
	img := in.Image
	if img == nil {
		decoded, _, err := imaging.Decode(in.Data)
		if err != nil {
			return nil, fmt.Errorf("note: %s: %w", in.OrigFilename, err)
		}
		img = decoded
	}

	b.logger.Info("note: ocr extracting", slog.String("orig_filename", in.OrigFilename), slog.String("engine", b.engine.Name()))
	res := b.engine.Extract(ctx, img)
	if res.Failed() {
		b.logger.Warn("note: ocr failed", slog.String("orig_filename", in.OrigFilename), slog.String("reason", res.Reason()))
	}

	created := b.stamper.Next()
	stem := in.Stem
	if stem == "" {
		stem = StemOf(in.OrigFilename)
	}
	filename := stamp.Filename(created) + "__" + SanitizeStem(stem) + ".md"

	rec := &models.NoteRecord{
		Filename:         filename,
		CreatedUTC:       created,
		Source:           in.Source,
		OrigFilename:     in.OrigFilename,
		Topics:           firstNonEmpty(in.Topics, b.topics),
		Version:          firstNonEmpty(in.Version, b.version),
		OCREngine:        b.engine.Name(),
		Body:             normalizeBody(res.Body()),
		ExtractionFailed: res.Failed(),
	}

	if err := b.store.Write(filename, Encode(rec)); err != nil {
		return nil, fmt.Errorf("note: write %s: %w", filename, err)
	}
	path, err := b.store.Abs(filename)
	if err != nil {
		return nil, err
	}
	rec.Path = path

	b.logger.Info("note: written", slog.String("path", path), slog.Bool("ocr_failed", rec.ExtractionFailed))
	return rec, nil
}

// Encode serializes a record in the persisted note format.
func Encode(rec *models.NoteRecord) []byte {
	fields := []parser.Field{
		{Key: models.KeyCreatedUTC, Value: rec.CreatedUTC.UTC().Format(stamp.CreatedLayout)},
		{Key: models.KeySource, Value: rec.Source},
		{Key: models.KeyOrigFilename, Value: rec.OrigFilename},
		{Key: models.KeyTopics, Value: rec.Topics},
		{Key: models.KeyVersion, Value: rec.Version},
		{Key: models.KeyOCREngine, Value: rec.OCREngine},
	}
	return parser.Compose(fields, normalizeBody(rec.Body))
}

func normalizeBody(body string) string {
	body = strings.TrimRight(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	if strings.TrimSpace(body) == "" {
		return EmptyBody
	}
	return body
}

func firstNonEmpty(v, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}
