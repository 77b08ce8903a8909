// Package engine abstracts the external molecular-dynamics engine that
// produces query trajectories. Drivers are registered by name and resolved
// once per optimization run.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jennyfothergill/msibi/internal/state"
)

// Driver runs the external simulation engine for every active state of one
// iteration. RunQuerySimulations blocks until all states have finished;
// its completion is the precondition for RDF recomputation.
type Driver interface {
	Name() string
	RunQuerySimulations(ctx context.Context, states []*state.State) error
}

var (
	mu      sync.RWMutex
	drivers = make(map[string]func() Driver)
)

// Register makes a driver constructor available under its name.
func Register(name string, factory func() Driver) {
	mu.Lock()
	defer mu.Unlock()
	drivers[name] = factory
}

// Get resolves a driver by name.
func Get(name string) (Driver, error) {
	mu.RLock()
	factory, ok := drivers[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: unknown driver %q (have %v)", name, Names())
	}
	return factory(), nil
}

// Names lists the registered driver names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
