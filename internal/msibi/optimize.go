package msibi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jennyfothergill/msibi/internal/checkpoint"
	"github.com/jennyfothergill/msibi/internal/engine"
	"github.com/jennyfothergill/msibi/internal/pair"
	"github.com/jennyfothergill/msibi/internal/potential"
	"github.com/jennyfothergill/msibi/internal/state"
)

// Options configures one Optimize run.
type Options struct {
	// NIterations is the number of optimization passes. Zero runs
	// initialization only; negative selects the orchestrator default.
	NIterations int

	// Engine names the simulation driver; defaults to "hoomd".
	Engine string

	// StartIteration offsets the logical iteration numbering for resumed
	// runs.
	StartIteration int

	// Checkpoint, when set, persists per-iteration potentials and restores
	// them when StartIteration > 0.
	Checkpoint *checkpoint.IO
}

// Optimize binds states and pairs and runs the iteration loop. Every
// numerical or configuration error aborts the run. Note the loop executes
// StartIteration+NIterations total passes numbered from zero; resumed runs
// therefore repeat the leading passes against the restored potentials.
func (m *MSIBI) Optimize(ctx context.Context, states []*state.State, pairs []*pair.Pair, opts Options) error {
	m.states = states
	m.pairs = pairs
	if opts.NIterations >= 0 {
		m.NIterations = opts.NIterations
	}
	if opts.Engine == "" {
		opts.Engine = "hoomd"
	}

	driver, err := engine.Get(opts.Engine)
	if err != nil {
		return err
	}

	if err := m.initialize(); err != nil {
		return err
	}

	if opts.Checkpoint != nil && opts.StartIteration > 0 {
		if err := m.restore(opts.Checkpoint); err != nil {
			return err
		}
	}

	total := opts.StartIteration + m.NIterations
	for n := 0; n < total; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.log.Infof("-------- Iteration %d --------", n)

		if err := driver.RunQuerySimulations(ctx, m.states); err != nil {
			return err
		}
		if err := m.updatePotentials(ctx, n); err != nil {
			return err
		}
		if opts.Checkpoint != nil {
			if err := m.save(opts.Checkpoint, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// initialize builds the output directories, writes the initial tabulated
// potentials, and emits every state's run script. It is deterministic for
// fixed inputs: running it twice produces identical iteration-0 tables.
func (m *MSIBI) initialize() error {
	for _, dir := range []string{m.PotentialsDir, m.RdfDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tables := make([]state.TablePotential, 0, len(m.pairs))
	for _, p := range m.pairs {
		p.PotentialFile = filepath.Join(m.PotentialsDir, pair.LiveTableName(p.Name))
		tables = append(tables, state.TablePotential{Type1: p.Type1, Type2: p.Type2, File: p.PotentialFile})

		v, err := potential.TailCorrection(m.PotR, p.Potential, m.RSwitch)
		if err != nil {
			return fmt.Errorf("initializing pair %s: %w", p.Name, err)
		}
		p.Potential = v
		// Snapshot for later inspection of the potential's evolution.
		if err := p.SaveTableSnapshot(m.PotR, 0); err != nil {
			return err
		}
		// Live table read by the query simulations.
		if err := p.SaveTablePotential(m.PotR); err != nil {
			return err
		}
	}

	for _, s := range m.states {
		if err := s.SaveRunscript(tables, len(m.PotR)); err != nil {
			return err
		}
	}
	return nil
}

// updatePotentials gathers the recomputed RDFs for iteration n, attributes
// them back to each pair's per-state record in enumeration order, and
// applies the Boltzmann-inversion update to every pair.
func (m *MSIBI) updatePotentials(ctx context.Context, n int) error {
	results, err := m.recomputeRDFs(ctx, n)
	if err != nil {
		return err
	}

	i := 0
	for _, p := range m.pairs {
		for _, rec := range p.States() {
			res := results[i]
			rec.CurrentRDF = res.rdf
			rec.FFit = append(rec.FFit, res.fFit)
			if m.recorder != nil {
				if err := m.recorder.RecordFit(n, p.Name, rec.State.Name, res.fFit); err != nil {
					return err
				}
			}
			i++
		}
		if err := p.UpdatePotential(m.PotR, m.RSwitch); err != nil {
			return err
		}
		if err := p.SaveTableSnapshot(m.PotR, n); err != nil {
			return err
		}
		if err := p.SaveTablePotential(m.PotR); err != nil {
			return err
		}
	}
	return nil
}

func (m *MSIBI) save(ckpt *checkpoint.IO, iteration int) error {
	data := &checkpoint.Data{
		Iteration:  iteration,
		Potentials: make(map[string][]float64, len(m.pairs)),
	}
	for _, p := range m.pairs {
		data.Potentials[p.Name] = p.Potential
	}
	return ckpt.Save(data)
}

func (m *MSIBI) restore(ckpt *checkpoint.IO) error {
	data, err := ckpt.Load()
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	for _, p := range m.pairs {
		v, ok := data.Potentials[p.Name]
		if !ok {
			continue
		}
		if len(v) != len(m.PotR) {
			return &potential.SizeMismatchError{Op: "checkpoint for pair " + p.Name, Want: len(m.PotR), Got: len(v)}
		}
		p.Potential = v
		if err := p.SaveTablePotential(m.PotR); err != nil {
			return err
		}
	}
	m.log.Infof("restored potentials from checkpoint at iteration %d", data.Iteration)
	return nil
}
