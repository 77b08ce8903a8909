// Package msibi implements multistate iterative Boltzmann inversion: the
// optimization loop that refines pair potentials until simulated RDFs
// match their targets across every registered thermodynamic state.
package msibi

import (
	"fmt"
	"os"

	"github.com/op/go-logging"

	"github.com/jennyfothergill/msibi/internal/pair"
	"github.com/jennyfothergill/msibi/internal/potential"
	"github.com/jennyfothergill/msibi/internal/state"
)

// DefaultIterations is the iteration count used when Optimize is not given
// an explicit one.
const DefaultIterations = 10

var statusFormat = logging.MustStringFormatter(`%{message}`)

// Config describes the radius discretization and run-level options of an
// optimization.
type Config struct {
	// RdfCutoff is the upper cutoff for the RDF calculation. Required, > 0.
	RdfCutoff float64

	// NRdfPoints is the number of radius values. Required, > 1.
	NRdfPoints int

	// PotCutoff is the upper cutoff for the potential; defaults to
	// RdfCutoff.
	PotCutoff float64

	// RSwitch is the radius beyond which the tail correction applies;
	// defaults to the 5th-from-last point of the potential grid.
	RSwitch float64

	// StatusFile is the append-only fit log; defaults to f_fits.log.
	StatusFile string

	// SmoothRDFs smooths each recomputed RDF before it feeds the update.
	SmoothRDFs bool

	// PotentialsDir holds the tabulated potential files; defaults to
	// "potentials".
	PotentialsDir string

	// RdfDir holds the per-iteration RDF dumps; defaults to "rdfs".
	RdfDir string
}

// MSIBI orchestrates the optimization. The radius grids are derived once
// at construction and never mutated; per-iteration mutation is confined to
// the pairs' potential curves and fit records.
type MSIBI struct {
	RdfCutoff  float64
	NRdfPoints int
	Dr         float64
	PotCutoff  float64
	RSwitch    float64
	SmoothRDFs bool

	// RdfRRange is the histogram range [0, RdfCutoff+Dr].
	RdfRRange [2]float64

	// RdfNBins is NRdfPoints+1, the histogram bin count.
	RdfNBins int

	// PotR is the radius grid the potential is tabulated on.
	PotR []float64

	NIterations   int
	PotentialsDir string
	RdfDir        string

	states []*state.State
	pairs  []*pair.Pair

	log        *logging.Logger
	statusFile *os.File

	// recorder, when set, receives every (iteration, pair, state, fit)
	// result for offline analysis.
	recorder FitRecorder
}

// FitRecorder receives fit results as they are gathered.
type FitRecorder interface {
	RecordFit(iteration int, pairName, stateName string, fFit float64) error
}

// New derives the radius grids from cfg and opens the status log. The
// returned MSIBI owns the log's lifecycle; call Close when done.
func New(cfg Config) (*MSIBI, error) {
	if cfg.RdfCutoff <= 0 {
		return nil, fmt.Errorf("msibi: rdf cutoff must be positive, got %g", cfg.RdfCutoff)
	}
	if cfg.NRdfPoints <= 1 {
		return nil, fmt.Errorf("msibi: need more than one rdf point, got %d", cfg.NRdfPoints)
	}
	if cfg.PotCutoff == 0 {
		cfg.PotCutoff = cfg.RdfCutoff
	}
	if cfg.StatusFile == "" {
		cfg.StatusFile = "f_fits.log"
	}
	if cfg.PotentialsDir == "" {
		cfg.PotentialsDir = "potentials"
	}
	if cfg.RdfDir == "" {
		cfg.RdfDir = "rdfs"
	}

	m := &MSIBI{
		RdfCutoff:     cfg.RdfCutoff,
		NRdfPoints:    cfg.NRdfPoints,
		Dr:            cfg.RdfCutoff / float64(cfg.NRdfPoints-1),
		PotCutoff:     cfg.PotCutoff,
		SmoothRDFs:    cfg.SmoothRDFs,
		RdfNBins:      cfg.NRdfPoints + 1,
		NIterations:   DefaultIterations,
		PotentialsDir: cfg.PotentialsDir,
		RdfDir:        cfg.RdfDir,
	}
	m.RdfRRange = [2]float64{0, m.RdfCutoff + m.Dr}
	m.PotR = potential.Arange(m.PotCutoff, m.Dr)

	m.RSwitch = cfg.RSwitch
	if m.RSwitch == 0 {
		if len(m.PotR) < 5 {
			return nil, fmt.Errorf("msibi: potential grid too short (%d points) for default r_switch", len(m.PotR))
		}
		m.RSwitch = m.PotR[len(m.PotR)-5]
	}

	f, err := os.OpenFile(cfg.StatusFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("msibi: opening status log: %w", err)
	}
	m.statusFile = f

	m.log = logging.MustGetLogger("msibi")
	backend := logging.NewLogBackend(f, "", 0)
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, statusFormat))
	leveled.SetLevel(logging.INFO, "msibi")
	m.log.SetBackend(leveled)

	return m, nil
}

// SetFitRecorder attaches a recorder for gathered fit results.
func (m *MSIBI) SetFitRecorder(r FitRecorder) { m.recorder = r }

// States returns the bound states.
func (m *MSIBI) States() []*state.State { return m.states }

// Pairs returns the bound pairs.
func (m *MSIBI) Pairs() []*pair.Pair { return m.pairs }

// Close releases the status log.
func (m *MSIBI) Close() error {
	if m.statusFile == nil {
		return nil
	}
	err := m.statusFile.Close()
	m.statusFile = nil
	return err
}
