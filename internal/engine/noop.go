package engine

import (
	"context"

	"github.com/jennyfothergill/msibi/internal/state"
)

func init() {
	Register("none", func() Driver { return Noop{} })
}

// Noop is a driver that runs no simulations. Useful for dry runs against
// pre-existing trajectories and for tests.
type Noop struct{}

func (Noop) Name() string { return "none" }

func (Noop) RunQuerySimulations(ctx context.Context, states []*state.State) error {
	return ctx.Err()
}
