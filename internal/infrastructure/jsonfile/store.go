package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	domain "github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "inventory.json"

// FileStore keeps the snapshot as a JSON document on the local filesystem.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{path: path}
}

func (s *FileStore) Location() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (domain.Snapshot, error) {
	_ = ctx

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("jsonfile: open %s: %w", s.path, domain.ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("jsonfile: open: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("jsonfile: read %s: %w", s.path, err)
	}

	snap, err := domain.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("jsonfile: decode %s: %w", s.path, err)
	}
	return snap, nil
}

// Save writes the document to a temp file next to the target and renames it
// into place, so a crash leaves either the old or the new file.
func (s *FileStore) Save(ctx context.Context, snap domain.Snapshot) (err error) {
	_ = ctx

	data, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("jsonfile: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
		}
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("jsonfile: write: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("jsonfile: sync: %w", err)
	}
	closeErr := tmp.Close()
	tmp = nil
	if err = closeErr; err != nil {
		return fmt.Errorf("jsonfile: close: %w", err)
	}
	if err = os.Chmod(tmpName, s.fileMode()); err != nil {
		return fmt.Errorf("jsonfile: chmod: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("jsonfile: rename: %w", err)
	}
	return nil
}

// fileMode keeps the permissions of an existing document; new ones get 0644.
func (s *FileStore) fileMode() fs.FileMode {
	if fi, err := os.Stat(s.path); err == nil {
		return fi.Mode().Perm()
	}
	return 0o644
}

var _ domain.SnapshotStore = (*FileStore)(nil)
