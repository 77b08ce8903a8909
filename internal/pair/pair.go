// Package pair holds the mutable optimization state of one type pair: its
// current potential curve, its per-state target RDFs, and the fit history
// accumulated across iterations.
package pair

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/jennyfothergill/msibi/internal/potential"
	"github.com/jennyfothergill/msibi/internal/rdf"
	"github.com/jennyfothergill/msibi/internal/state"
)

// StateRecord is the per-state bookkeeping a pair keeps for each state it
// participates in. The record belongs to the pair, not the state: several
// pairs share a state but each tracks its own fit against it.
type StateRecord struct {
	State      *state.State
	Target     *rdf.RDF
	Alpha      float64
	CurrentRDF *rdf.RDF
	// FFit grows by one entry per iteration and is never truncated.
	FFit []float64
}

// Pair is the potential model for an unordered pair of particle types.
type Pair struct {
	Type1 string
	Type2 string
	Name  string

	Potential         []float64
	PreviousPotential []float64

	// PotentialFile is the live table the next simulation round reads.
	PotentialFile string

	records []*StateRecord
}

// New creates a pair with a seed potential defined on the shared radius
// grid.
func New(type1, type2 string, seed []float64) *Pair {
	v := make([]float64, len(seed))
	copy(v, seed)
	return &Pair{
		Type1:     type1,
		Type2:     type2,
		Name:      type1 + "-" + type2,
		Potential: v,
	}
}

// AddState registers a state with this pair. Registration order is the
// order used for fan-out and result attribution.
func (p *Pair) AddState(s *state.State, target *rdf.RDF, alpha float64) {
	p.records = append(p.records, &StateRecord{State: s, Target: target, Alpha: alpha})
}

// States returns the pair's state records in registration order.
func (p *Pair) States() []*StateRecord { return p.records }

// Record returns the record for a state, or nil.
func (p *Pair) Record(s *state.State) *StateRecord {
	for _, rec := range p.records {
		if rec.State == s {
			return rec
		}
	}
	return nil
}

// ComputeCurrentRDF recomputes the RDF for this pair at one state from the
// state's currently loaded trajectory and scores it against the target.
// The computed histogram must match both the requested bin count and the
// target; a mismatch is a hard error, never a truncation.
func (p *Pair) ComputeCurrentRDF(s *state.State, rRange [2]float64, nBins int, smooth bool) (*rdf.RDF, float64, error) {
	rec := p.Record(s)
	if rec == nil {
		return nil, 0, fmt.Errorf("pair %s: state %s not registered", p.Name, s.Name)
	}
	if s.Traj == nil {
		return nil, 0, fmt.Errorf("pair %s, state %s: trajectory not loaded", p.Name, s.Name)
	}

	current, err := rdf.Compute(s.Traj, p.Type1, p.Type2, rRange, nBins)
	if err != nil {
		return nil, 0, fmt.Errorf("pair %s, state %s: %w", p.Name, s.Name, err)
	}
	if smooth {
		current = current.WithG(potential.SavitzkyGolay(current.G, 9))
	}
	if rec.Target != nil && rec.Target.Len() != current.Len() {
		return nil, 0, &potential.SizeMismatchError{
			Op:   fmt.Sprintf("pair %s, state %s: target rdf", p.Name, s.Name),
			Want: current.Len(),
			Got:  rec.Target.Len(),
		}
	}

	fFit := 1.0
	if rec.Target != nil {
		fFit = potential.Similarity(rec.Target.G, current.G)
	}
	return current, fFit, nil
}

// UpdatePotential applies the multistate Boltzmann-inversion correction:
// for each associated state, kT * alpha * ln(g_current/g_target) averaged
// over the states, followed by the tail correction beyond rSwitch and a
// head correction over the short range where the RDFs vanish.
func (p *Pair) UpdatePotential(potR []float64, rSwitch float64) error {
	if len(p.Potential) != len(potR) {
		return &potential.SizeMismatchError{Op: "pair " + p.Name + ": potential grid", Want: len(potR), Got: len(p.Potential)}
	}
	p.PreviousPotential = make([]float64, len(p.Potential))
	copy(p.PreviousPotential, p.Potential)

	nStates := float64(len(p.records))
	for _, rec := range p.records {
		if rec.CurrentRDF == nil || rec.Target == nil {
			return fmt.Errorf("pair %s, state %s: missing rdf for update", p.Name, rec.State.Name)
		}
		// The potential grid may be shorter than the RDF grid when the
		// potential cutoff is below the RDF cutoff; the excess RDF points
		// are unused. The reverse is a sizing error.
		if rec.CurrentRDF.Len() < len(p.Potential) || rec.Target.Len() < len(p.Potential) {
			return &potential.SizeMismatchError{
				Op:   "pair " + p.Name + ": rdf shorter than potential",
				Want: len(p.Potential),
				Got:  rec.CurrentRDF.Len(),
			}
		}
		kT := rec.State.KT
		for i := range p.Potential {
			p.Potential[i] += kT * rec.Alpha *
				math.Log(rec.CurrentRDF.G[i]/rec.Target.G[i]) / nStates
		}
	}

	v, err := potential.TailCorrection(potR, p.Potential, rSwitch)
	if err != nil {
		return err
	}
	p.Potential = potential.HeadCorrection(potR, v)
	return nil
}

// LiveTableName returns the file name of the live table for a pair name.
func LiveTableName(pairName string) string {
	return fmt.Sprintf("pot.%s.txt", pairName)
}

// SnapshotTableName returns the per-iteration snapshot file name.
func SnapshotTableName(pairName string, iteration int) string {
	return fmt.Sprintf("step%d.%s", iteration, LiveTableName(pairName))
}

// SaveTablePotential writes the live tabulated potential, the single file
// the next simulation round reads.
func (p *Pair) SaveTablePotential(potR []float64) error {
	if p.PotentialFile == "" {
		return fmt.Errorf("pair %s: potential file not set", p.Name)
	}
	return potential.WriteTable(p.PotentialFile, potR, p.Potential)
}

// SaveTableSnapshot writes the per-iteration snapshot of the potential for
// later inspection of its evolution.
func (p *Pair) SaveTableSnapshot(potR []float64, iteration int) error {
	if p.PotentialFile == "" {
		return fmt.Errorf("pair %s: potential file not set", p.Name)
	}
	dir := filepath.Dir(p.PotentialFile)
	path := filepath.Join(dir, SnapshotTableName(p.Name, iteration))
	return potential.WriteTable(path, potR, p.Potential)
}
