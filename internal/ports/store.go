package ports

import (
	"context"

	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

// StateStore persists and restores the engine's State. Load's second
// return is false when no prior state exists (the engine then constructs
// fresh state from the seed candidate); Save is a no-op implementation's
// prerogative when no run_dir is configured.
type StateStore[ID comparable] interface {
	Load(ctx context.Context) (*state.State[ID], bool, error)
	Save(ctx context.Context, s *state.State[ID]) error
}
