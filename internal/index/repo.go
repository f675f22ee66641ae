package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/envisage/internal/apperr"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path  string
	Title string
	// CreatedUTC is the creation value as written in the note.
	CreatedUTC string
	// CreatedAt is CreatedUTC normalized to a fixed-width UTC stamp, empty when unparseable.
	CreatedAt    string
	Source       string
	OrigFilename string
	Topics       string
	Version      string
	OCREngine    string
	OCRFailed    bool
	Checksum     string
	Body         string
	UpdatedAt    time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// ListQuery filters and pages ListNotes. Empty filters match everything.
type ListQuery struct {
	Limit  int
	Offset int
	Source string
	Topic  string
}

// UpsertNote inserts or replaces a note and its FTS entry within a transaction.
func (db *DB) UpsertNote(n NoteRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notes (path, title, created_utc, created_at, source, orig_filename,
		                   topics, version, ocr_engine, ocr_failed, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title         = excluded.title,
			created_utc   = excluded.created_utc,
			created_at    = excluded.created_at,
			source        = excluded.source,
			orig_filename = excluded.orig_filename,
			topics        = excluded.topics,
			version       = excluded.version,
			ocr_engine    = excluded.ocr_engine,
			ocr_failed    = excluded.ocr_failed,
			checksum      = excluded.checksum,
			body          = excluded.body,
			updated_at    = excluded.updated_at
	`, n.Path, n.Title, n.CreatedUTC, n.CreatedAt, n.Source, n.OrigFilename,
		n.Topics, n.Version, n.OCREngine, n.OCRFailed, n.Checksum, n.Body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, n); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNote removes a note and its FTS entry.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

const rowColumns = `path, title, created_utc, created_at, source, orig_filename,
	topics, version, ocr_engine, ocr_failed, checksum, updated_at`

func scanRow(sc interface{ Scan(...any) error }, n *NoteRow, extra ...any) error {
	dest := []any{&n.Path, &n.Title, &n.CreatedUTC, &n.CreatedAt, &n.Source, &n.OrigFilename,
		&n.Topics, &n.Version, &n.OCREngine, &n.OCRFailed, &n.Checksum, &n.UpdatedAt}
	return sc.Scan(append(dest, extra...)...)
}

// GetNote returns one note including its body.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	var n NoteRow
	row := db.conn.QueryRow(`SELECT `+rowColumns+`, body FROM notes WHERE path = ?`, path)
	if err := scanRow(row, &n, &n.Body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("index: note %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return &n, nil
}

// ListNotes returns one page of notes, newest first, and the total match count.
// Bodies are not loaded.
func (db *DB) ListNotes(q ListQuery) ([]NoteRow, int, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	var (
		where []string
		args  []any
	)
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}
	if q.Topic != "" {
		where = append(where, "(',' || replace(topics, ' ', '') || ',') LIKE ?")
		args = append(args, "%,"+strings.ReplaceAll(q.Topic, " ", "")+",%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+rowColumns+` FROM notes`+clause+
		` ORDER BY created_at DESC, path DESC LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var n NoteRow
		if err := scanRow(rows, &n); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// AllChecksums returns path → checksum for every catalogued note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
