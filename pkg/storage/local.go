package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStore implements Store on the local filesystem. Each archived file is
// stored next to a JSON metadata sidecar under .meta/.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a filesystem archive rooted at basePath.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Archive stores the file under the document id and returns its metadata.
func (s *LocalStore) Archive(ctx context.Context, file DocumentFile, r io.Reader) (*DocumentFile, error) {
	if file.DocumentID == uuid.Nil {
		return nil, fmt.Errorf("archiving %s: document id is required", file.SourceName)
	}

	stored := fmt.Sprintf("%s_%s", file.DocumentID.String()[:8], sanitizeFilename(file.SourceName))
	path := filepath.Join(s.basePath, stored)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating archive file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing archive file: %w", err)
	}

	file.Size = size
	file.Path = stored
	file.ArchivedAt = time.Now()

	if err := s.saveMetadata(&file); err != nil {
		os.Remove(path)
		return nil, err
	}
	return &file, nil
}

// Open returns a reader over an archived file.
func (s *LocalStore) Open(ctx context.Context, docID uuid.UUID) (io.ReadCloser, *DocumentFile, error) {
	file, err := s.metadata(docID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.basePath, file.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("opening archived file: %w", err)
	}
	return f, file, nil
}

// List returns metadata for every archived document.
func (s *LocalStore) List(ctx context.Context) ([]*DocumentFile, error) {
	metaDir := filepath.Join(s.basePath, ".meta")
	entries, err := os.ReadDir(metaDir)
	if os.IsNotExist(err) {
		return []*DocumentFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing archive metadata: %w", err)
	}

	files := make([]*DocumentFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		file, err := s.metadata(id)
		if err != nil {
			continue
		}
		files = append(files, file)
	}
	return files, nil
}

// Remove deletes an archived file and its metadata.
func (s *LocalStore) Remove(ctx context.Context, docID uuid.UUID) error {
	file, err := s.metadata(docID)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.basePath, file.Path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting archived file: %w", err)
	}
	os.Remove(s.metaPath(docID))
	return nil
}

func (s *LocalStore) metadata(docID uuid.UUID) (*DocumentFile, error) {
	data, err := os.ReadFile(s.metaPath(docID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("document not archived: %s", docID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading archive metadata: %w", err)
	}

	var file DocumentFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing archive metadata: %w", err)
	}
	return &file, nil
}

func (s *LocalStore) saveMetadata(file *DocumentFile) error {
	metaDir := filepath.Join(s.basePath, ".meta")
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling archive metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(file.DocumentID), data, 0o644); err != nil {
		return fmt.Errorf("writing archive metadata: %w", err)
	}
	return nil
}

func (s *LocalStore) metaPath(docID uuid.UUID) string {
	return filepath.Join(s.basePath, ".meta", docID.String()+".json")
}

// sanitizeFilename strips path separators and shell-hostile characters.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(filepath.Base(name))
}
