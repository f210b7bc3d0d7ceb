// Package storage archives processed statement files so a document can be
// re-extracted later without the original upload. Files are keyed by the
// document id the pipeline assigned.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// DocumentFile is the archived file plus extraction provenance.
type DocumentFile struct {
	DocumentID    uuid.UUID `json:"document_id"`
	SourceName    string    `json:"source_name"`
	Size          int64     `json:"size"`
	StatementType string    `json:"statement_type"`
	QualityBand   string    `json:"quality_band"`
	Path          string    `json:"path"`
	ArchivedAt    time.Time `json:"archived_at"`
}

// Store persists and retrieves archived statement files.
type Store interface {
	// Archive stores the file under the document id and returns its metadata.
	Archive(ctx context.Context, file DocumentFile, r io.Reader) (*DocumentFile, error)

	// Open returns a reader over an archived file.
	Open(ctx context.Context, docID uuid.UUID) (io.ReadCloser, *DocumentFile, error)

	// List returns metadata for every archived document.
	List(ctx context.Context) ([]*DocumentFile, error)

	// Remove deletes an archived file and its metadata.
	Remove(ctx context.Context, docID uuid.UUID) error
}
