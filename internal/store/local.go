package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONStore is the subset of the S3 client used for bookkeeping files.
// LocalStore implements it on the filesystem.
type JSONStore interface {
	ReadJSON(ctx context.Context, key string, out any) (bool, error)
	WriteJSON(ctx context.Context, key string, v any) error
}

// LocalStore resolves keys relative to Root. An empty Root means keys are
// used as given.
type LocalStore struct {
	Root string
}

func (s LocalStore) path(key string) string {
	if s.Root == "" {
		return key
	}
	return filepath.Join(s.Root, key)
}

func (s LocalStore) ReadJSON(_ context.Context, key string, out any) (bool, error) {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// WriteJSON writes through a temp file and rename so a crash never leaves a
// truncated index behind.
func (s LocalStore) WriteJSON(_ context.Context, key string, v any) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}
