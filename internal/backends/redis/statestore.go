package redis

import (
	"commitlens/internal/state"
	"commitlens/internal/types"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	stateKeyNameTemplate = "_commitlens_dir_%s"
)

// StateStore keeps the directory cache as a single Redis string per cache name.
type StateStore struct {
	cli      *redis.Client
	name     string
	compress bool
}

func NewStateStore(cli *redis.Client, name string, compress bool) *StateStore {
	return &StateStore{cli: cli, name: name, compress: compress}
}

// Load returns the persisted state, or (nil,nil) if the key does not exist.
func (s *StateStore) Load(ctx context.Context) (*types.CacheState, error) {
	b, err := s.cli.Get(ctx, getStateKey(s.name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, types.Err(types.ErrDataStoreAccess, err, "redis get")
	}
	st, err := state.Decode(b)
	if err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "decode redis state")
	}
	return st, nil
}

func (s *StateStore) Save(ctx context.Context, st types.CacheState) error {
	b, err := state.Encode(st, s.compress)
	if err != nil {
		return err
	}
	if err := s.cli.Set(ctx, getStateKey(s.name), b, 0).Err(); err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "redis set")
	}
	return nil
}

// ClearAll deletes the persisted state. Used in tests only.
func (s *StateStore) ClearAll(ctx context.Context) error {
	return s.cli.Del(ctx, getStateKey(s.name)).Err()
}

func getStateKey(name string) string {
	return fmt.Sprintf(stateKeyNameTemplate, name)
}
