package main

import (
	"context"
	"fmt"

	"github.com/jennyfothergill/msibi/internal/checkpoint"
	"github.com/jennyfothergill/msibi/internal/config"
	"github.com/jennyfothergill/msibi/internal/msibi"
	"github.com/jennyfothergill/msibi/internal/pair"
	"github.com/jennyfothergill/msibi/internal/potential"
	"github.com/jennyfothergill/msibi/internal/rdf"
	"github.com/jennyfothergill/msibi/internal/state"
	"github.com/jennyfothergill/msibi/internal/storage"
)

// runFromConfig wires a full optimization from a yaml configuration:
// orchestrator, states, pairs with seed potentials and targets, run
// storage, and an optional checkpoint database.
func runFromConfig(ctx context.Context, path, dataDir string, iterations, startIter int, engineOverride string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if iterations >= 0 {
		cfg.Iterations = iterations
	}
	if startIter >= 0 {
		cfg.StartIteration = startIter
	}
	if engineOverride != "" {
		cfg.Engine = engineOverride
	}

	opt, err := msibi.New(msibi.Config{
		RdfCutoff:     cfg.RdfCutoff,
		NRdfPoints:    cfg.NRdfPoints,
		PotCutoff:     cfg.PotCutoff,
		RSwitch:       cfg.RSwitch,
		StatusFile:    cfg.StatusFile,
		SmoothRDFs:    cfg.SmoothRDFs,
		PotentialsDir: cfg.PotentialsDir,
		RdfDir:        cfg.RdfDir,
	})
	if err != nil {
		return err
	}
	defer opt.Close()

	states, byName, err := buildStates(cfg)
	if err != nil {
		return err
	}
	pairs, err := buildPairs(cfg, opt, byName)
	if err != nil {
		return err
	}

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	run, err := store.NewRun(runMetadata(cfg, opt, states, pairs))
	if err != nil {
		return err
	}
	defer run.Close()
	opt.SetFitRecorder(run)

	opts := msibi.Options{
		NIterations:    cfg.Iterations,
		Engine:         cfg.Engine,
		StartIteration: cfg.StartIteration,
	}
	if cfg.Checkpoint != "" {
		db, err := checkpoint.Open(cfg.Checkpoint)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Checkpoint = checkpoint.New(db, []byte(run.Dir))
	}

	return opt.Optimize(ctx, states, pairs, opts)
}

func buildStates(cfg *config.Config) ([]*state.State, map[string]*state.State, error) {
	states := make([]*state.State, 0, len(cfg.States))
	byName := make(map[string]*state.State, len(cfg.States))
	for _, sc := range cfg.States {
		s, err := state.New(sc.KT, sc.Dir, sc.TrajFile, state.Options{
			TopFile: sc.TopFile,
			Name:    sc.Name,
			Backup:  sc.Backup,
		})
		if err != nil {
			return nil, nil, err
		}
		states = append(states, s)
		byName[s.Name] = s
	}
	return states, byName, nil
}

func buildPairs(cfg *config.Config, opt *msibi.MSIBI, byName map[string]*state.State) ([]*pair.Pair, error) {
	pairs := make([]*pair.Pair, 0, len(cfg.Pairs))
	for _, pc := range cfg.Pairs {
		seed, err := seedPotential(pc.Initial, opt.PotR)
		if err != nil {
			return nil, fmt.Errorf("pair %s-%s: %w", pc.Type1, pc.Type2, err)
		}
		p := pair.New(pc.Type1, pc.Type2, seed)

		for _, ref := range pc.States {
			target, err := rdf.Load(ref.TargetRDF)
			if err != nil {
				return nil, fmt.Errorf("pair %s: %w", p.Name, err)
			}
			alpha := ref.Alpha
			if alpha == 0 {
				alpha = config.DefaultAlpha
			}
			p.AddState(byName[ref.State], target, alpha)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func seedPotential(init config.InitialPotential, potR []float64) ([]float64, error) {
	if init.Table != "" {
		cols, err := potential.ReadTable(init.Table)
		if err != nil {
			return nil, err
		}
		if len(cols) < 2 {
			return nil, fmt.Errorf("%s: expected at least 2 columns", init.Table)
		}
		return cols[1], nil
	}

	eps, sigma := init.Epsilon, init.Sigma
	if eps == 0 {
		eps = 1
	}
	if sigma == 0 {
		sigma = 1
	}
	switch init.Form {
	case "", "lj":
		return potential.LJ(potR, eps, sigma), nil
	case "mie":
		m, n := init.M, init.N
		if m == 0 {
			m = 12
		}
		if n == 0 {
			n = 6
		}
		return potential.Mie(potR, eps, sigma, m, n), nil
	}
	return nil, fmt.Errorf("unknown initial potential form %q", init.Form)
}

func runMetadata(cfg *config.Config, opt *msibi.MSIBI, states []*state.State, pairs []*pair.Pair) storage.RunMetadata {
	meta := storage.RunMetadata{
		Engine:      cfg.Engine,
		RdfCutoff:   opt.RdfCutoff,
		NRdfPoints:  opt.NRdfPoints,
		PotCutoff:   opt.PotCutoff,
		RSwitch:     opt.RSwitch,
		SmoothRDFs:  opt.SmoothRDFs,
		NIterations: cfg.Iterations,
	}
	for _, p := range pairs {
		meta.Pairs = append(meta.Pairs, p.Name)
	}
	for _, s := range states {
		meta.States = append(meta.States, s.Name)
	}
	return meta
}
