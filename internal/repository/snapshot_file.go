package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

// FileSnapshots stores each collection as a JSON file under a data
// directory (links.json, filters.json, batches.json). Writes go through a
// temp file plus rename so a crash mid-save never leaves a torn document.
type FileSnapshots struct {
	dir string
}

// NewFileSnapshots ensures the data directory exists and returns the store.
func NewFileSnapshots(dir string) (*FileSnapshots, error) {
	if dir == "" {
		dir = "./data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileSnapshots{dir: dir}, nil
}

// Load reads the collection document from disk.
func (s *FileSnapshots) Load(_ context.Context, collection string) ([]byte, error) {
	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErrors.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("read snapshot %s: %w", collection, err)
	}
	return data, nil
}

// Save atomically replaces the collection document on disk.
func (s *FileSnapshots) Save(_ context.Context, collection string, data []byte) error {
	target := s.path(collection)
	tmp, err := os.CreateTemp(s.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot %s: %w", collection, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot %s: %w", collection, err)
	}
	return nil
}

// Path returns the on-disk location for a collection document.
func (s *FileSnapshots) Path(collection string) string {
	return s.path(collection)
}

func (s *FileSnapshots) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}
