package ports

import (
	"commitlens/internal/types"
	"context"
)

// StateStore persists the directory cache so it survives process restarts.
type StateStore interface {
	// Load returns the last saved state.
	// If nothing was saved yet, (nil,nil) MUST be returned.
	Load(ctx context.Context) (*types.CacheState, error)

	// Save replaces the persisted state with st.
	Save(ctx context.Context, st types.CacheState) error
}
