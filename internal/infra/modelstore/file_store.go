package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yanqian/allergy-risk/internal/domain/risk"
)

// FileStore keeps the artifact in a single file. Writes go to a temp file in the
// same directory and are renamed into place, so readers see the old or the new
// artifact and never a partial one.
type FileStore struct {
	path string
}

// NewFileStore constructs a store rooted at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements risk.ArtifactStore.
func (s *FileStore) Load(_ context.Context) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read model file: %w", err)
	}
	return data, true, nil
}

// Save implements risk.ArtifactStore.
func (s *FileStore) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp model file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp model file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("install model file: %w", err)
	}
	return nil
}

var _ risk.ArtifactStore = (*FileStore)(nil)
