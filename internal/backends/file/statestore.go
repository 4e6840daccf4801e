package file

import (
	"bytes"
	"commitlens/internal/state"
	"commitlens/internal/types"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// StateStore keeps the directory cache in a single local file, replaced atomically on save.
type StateStore struct {
	path     string
	compress bool
}

func NewStateStore(path string, compress bool) *StateStore {
	return &StateStore{path: path, compress: compress}
}

func (s *StateStore) Path() string { return s.path }

func (s *StateStore) Load(_ context.Context) (*types.CacheState, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, types.Err(types.ErrDataStoreAccess, err, "read %s", s.path)
	}
	st, err := state.Decode(b)
	if err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "decode %s", s.path)
	}
	return st, nil
}

func (s *StateStore) Save(_ context.Context, st types.CacheState) error {
	b, err := state.Encode(st, s.compress)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "create state dir")
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(b)); err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "write %s", s.path)
	}
	return nil
}
