// Package storage defines the file-system abstraction shared by the note
// builder, the site generator and the catalog.
package storage

import "github.com/starford/envisage/internal/models"

// Provider is the interface for rooted file operations.
type Provider interface {
	// List returns metadata for every .md file directly inside dir (relative to root), sorted by name.
	List(dir string) ([]models.NoteMetadata, error)
	// Names returns the names of files with the given extension directly inside dir, sorted.
	Names(dir, ext string) ([]string, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
	// Abs resolves path (relative to root) to an absolute path.
	Abs(path string) (string, error)
}
