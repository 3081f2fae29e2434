package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lakegrant/lakegrant/pkg/store"
)

// FileStore keeps the snapshot in a pretty-printed JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to the given path. Parent directories
// are created on the first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (store.State, bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return store.State{}, false, nil
	}
	if err != nil {
		return store.State{}, false, fmt.Errorf("reading snapshot %s: %w", f.path, err)
	}

	var state store.State
	if err := json.Unmarshal(data, &state); err != nil {
		return store.State{}, false, fmt.Errorf("decoding snapshot %s: %w", f.path, err)
	}
	return state, true, nil
}

func (f *FileStore) Save(state store.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", f.path, err)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}
