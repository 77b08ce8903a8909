package msibi

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/jennyfothergill/msibi/internal/pair"
	"github.com/jennyfothergill/msibi/internal/rdf"
	"github.com/jennyfothergill/msibi/internal/state"
)

// combo is one (pair, state) combination of the current iteration.
type combo struct {
	pair *pair.Pair
	rec  *pair.StateRecord
}

// workerResult is the payload one worker produces for its combo slot.
type workerResult struct {
	rdf  *rdf.RDF
	fFit float64
}

// recomputeRDFs recomputes the RDF for every (pair, state) combination of
// iteration n, fully in parallel. Each worker owns one result slot keyed
// by a stable index; a done mark separate from the payload records
// completion so a missing result fails the iteration instead of feeding
// defaults into the update. The call is a hard barrier: it returns only
// after every worker has joined.
func (m *MSIBI) recomputeRDFs(ctx context.Context, n int) ([]workerResult, error) {
	if err := m.reloadTrajectories(n); err != nil {
		return nil, err
	}

	combos := m.enumerate()
	results := make([]workerResult, len(combos))
	errs := make([]error, len(combos))
	done := make([]bool, len(combos))

	var wg sync.WaitGroup
	for i, c := range combos {
		wg.Add(1)
		go func(i int, c combo) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			current, fFit, err := c.pair.ComputeCurrentRDF(c.rec.State, m.RdfRRange, m.RdfNBins, m.SmoothRDFs)
			if err != nil {
				errs[i] = err
				return
			}

			// Dump for offline inspection; radius shifted back half a bin.
			name := fmt.Sprintf("pair_%s-state_%s-step%d.txt", c.pair.Name, c.rec.State.Name, n)
			if err := current.Save(filepath.Join(m.RdfDir, name), m.Dr/2); err != nil {
				errs[i] = err
				return
			}

			m.log.Infof("pair %s, state %s, iteration %d: %.6f", c.pair.Name, c.rec.State.Name, n, fFit)
			results[i] = workerResult{rdf: current, fFit: fFit}
			done[i] = true
		}(i, c)
	}
	wg.Wait()

	for i := range combos {
		if errs[i] != nil {
			return nil, fmt.Errorf("iteration %d: pair %s, state %s: %w",
				n, combos[i].pair.Name, combos[i].rec.State.Name, errs[i])
		}
		if !done[i] {
			return nil, fmt.Errorf("iteration %d: pair %s, state %s: worker produced no result",
				n, combos[i].pair.Name, combos[i].rec.State.Name)
		}
	}
	return results, nil
}

// enumerate lists every (pair, state) combination exactly once, in stable
// order: pairs in registration order, each pair's states in its own
// registration order. Result attribution depends on this order.
func (m *MSIBI) enumerate() []combo {
	var combos []combo
	for _, p := range m.pairs {
		for _, rec := range p.States() {
			combos = append(combos, combo{pair: p, rec: rec})
		}
	}
	return combos
}

// reloadTrajectories re-reads every state's query trajectory once before
// the fan-out, so workers of pairs sharing a state read one consistent
// load instead of racing on the handle.
func (m *MSIBI) reloadTrajectories(n int) error {
	seen := make(map[*state.State]bool)
	var states []*state.State
	for _, s := range m.states {
		if !seen[s] {
			seen[s] = true
			states = append(states, s)
		}
	}
	for _, p := range m.pairs {
		for _, rec := range p.States() {
			if !seen[rec.State] {
				seen[rec.State] = true
				states = append(states, rec.State)
			}
		}
	}

	errs := make([]error, len(states))
	var wg sync.WaitGroup
	for i, s := range states {
		wg.Add(1)
		go func(i int, s *state.State) {
			defer wg.Done()
			if err := s.ReloadQueryTrajectory(); err != nil {
				errs[i] = err
				return
			}
			errs[i] = s.BackupTrajectory(n)
		}(i, s)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
