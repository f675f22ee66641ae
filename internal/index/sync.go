package index

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/envisage/internal/checksum"
	"github.com/starford/envisage/internal/models"
	"github.com/starford/envisage/internal/ocr"
	"github.com/starford/envisage/internal/parser"
	"github.com/starford/envisage/internal/stamp"
	"github.com/starford/envisage/internal/storage"
)

// legacyTimestampKey holds the creation stamp in notes written by early versions.
const legacyTimestampKey = "timestamp_utc"

// createdAtLayout is fixed-width so the column sorts chronologically as text.
const createdAtLayout = "2006-01-02T15:04:05.000000Z"

// Sync walks the notes directory and brings the catalog up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the catalog
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// Catalog binds a DB to the notes directory it mirrors.
type Catalog struct {
	db     *DB
	store  storage.Provider
	logger *slog.Logger
}

// NewCatalog creates a Catalog.
func NewCatalog(db *DB, store storage.Provider, logger *slog.Logger) *Catalog {
	return &Catalog{db: db, store: store, logger: logger}
}

// Sync refreshes the catalog from disk.
func (c *Catalog) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return Sync(c.db, c.store, c.logger)
}

// RowFor builds the catalog row for a note file.
func RowFor(path string, data []byte, updated time.Time) NoteRow {
	res, _ := parser.Parse(data)

	created := res.Get(models.KeyCreatedUTC, "")
	if created == "" {
		created = res.Get(legacyTimestampKey, "")
	}
	var createdAt string
	if t, ok := stamp.ParseCreated(created); ok {
		createdAt = t.UTC().Format(createdAtLayout)
	}

	title := res.Title
	if title == "" {
		title = strings.TrimSuffix(path, ".md")
	}

	return NoteRow{
		Path:         path,
		Title:        title,
		CreatedUTC:   created,
		CreatedAt:    createdAt,
		Source:       res.Get(models.KeySource, ""),
		OrigFilename: res.Get(models.KeyOrigFilename, ""),
		Topics:       res.Get(models.KeyTopics, ""),
		Version:      res.Get(models.KeyVersion, ""),
		OCREngine:    res.Get(models.KeyOCREngine, ""),
		OCRFailed:    strings.HasPrefix(res.Body, ocr.ErrorMarker),
		Checksum:     checksum.Sum(data),
		Body:         res.Body,
		UpdatedAt:    updated,
	}
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, path string, data []byte, updated time.Time) error {
	return db.UpsertNote(RowFor(path, data, updated))
}
