// Package state describes a single thermodynamic state of a multistate
// optimization: its temperature, its query trajectory, and the run script
// handed to the external simulation engine.
package state

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jennyfothergill/msibi/internal/trajectory"
)

// State is one thermodynamic condition under which the system is
// simulated. All fields except Traj are fixed at construction.
type State struct {
	// KT is the unitless heat energy (Boltzmann constant times temperature).
	KT float64

	// Dir is the state directory holding the trajectory, the run-script
	// template, and the generated run script.
	Dir string

	// TrajFile is the query trajectory file name inside Dir; empty when the
	// trajectory is injected directly (tests, resumed runs).
	TrajFile string

	// TopFile is the optional HOOMD XML topology, required for DCD
	// trajectories.
	TopFile string

	// Name identifies the state in logs and file names.
	Name string

	// Backup controls whether each query trajectory is copied aside per
	// iteration before being overwritten by the next simulation round.
	Backup bool

	// Format is the trajectory classification, resolved once at
	// construction.
	Format trajectory.Format

	// Traj is the lazily populated trajectory handle; nil until a reload is
	// requested.
	Traj *trajectory.Trajectory
}

// Options configures optional State fields.
type Options struct {
	TopFile string
	Name    string
	Backup  bool
}

// New creates a State and classifies its trajectory file. A trajectory
// that probes as unrecognized falls back to the legacy DCD format when a
// topology file is supplied; with no topology it is fatal for the state.
func New(kT float64, dir, trajFile string, opts Options) (*State, error) {
	s := &State{
		KT:       kT,
		Dir:      dir,
		TrajFile: trajFile,
		TopFile:  opts.TopFile,
		Name:     opts.Name,
		Backup:   opts.Backup,
	}
	if s.Name == "" {
		s.Name = fmt.Sprintf("state-%.3f", kT)
	}

	if trajFile != "" {
		format, err := trajectory.Probe(s.TrajPath())
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("state %s: probing %s: %w", s.Name, trajFile, err)
		}
		if err == nil {
			switch format {
			case trajectory.FormatGSD, trajectory.FormatDCD:
				s.Format = format
			default:
				if opts.TopFile == "" {
					return nil, fmt.Errorf("state %s: unrecognized trajectory format in %s and no topology given", s.Name, trajFile)
				}
				s.Format = trajectory.FormatDCD
			}
		}
	}
	return s, nil
}

// TrajPath returns the full path to the query trajectory.
func (s *State) TrajPath() string {
	return filepath.Join(s.Dir, s.TrajFile)
}

// TopPath returns the full path to the topology file, or "" when unset.
func (s *State) TopPath() string {
	if s.TopFile == "" {
		return ""
	}
	return filepath.Join(s.Dir, s.TopFile)
}

// ReloadQueryTrajectory re-reads the query trajectory from disk, replacing
// any previously loaded handle.
func (s *State) ReloadQueryTrajectory() error {
	if s.TrajFile == "" {
		if s.Traj != nil {
			return nil
		}
		return fmt.Errorf("state %s: no trajectory file configured", s.Name)
	}

	// Re-probe: the format can change when the engine switches output
	// formats between restarts.
	format, err := trajectory.Probe(s.TrajPath())
	if err != nil {
		return fmt.Errorf("state %s: %w", s.Name, err)
	}
	switch format {
	case trajectory.FormatGSD:
		s.Traj, err = trajectory.ReadGSD(s.TrajPath())
	case trajectory.FormatDCD:
		var top *trajectory.Topology
		if s.TopPath() != "" {
			top, err = trajectory.ReadHOOMDXML(s.TopPath())
			if err != nil {
				return fmt.Errorf("state %s: %w", s.Name, err)
			}
		}
		if top != nil {
			s.Traj, err = trajectory.ReadDCD(s.TrajPath(), top.TypeNames, top.TypeIDs)
		} else {
			s.Traj, err = trajectory.ReadDCD(s.TrajPath(), nil, nil)
		}
	default:
		return fmt.Errorf("state %s: unrecognized trajectory format in %s", s.Name, s.TrajFile)
	}
	if err != nil {
		return fmt.Errorf("state %s: %w", s.Name, err)
	}
	s.Format = format
	return nil
}

// BackupTrajectory copies the current query trajectory aside, tagging the
// copy with the iteration number. No-op unless the backup flag is set.
func (s *State) BackupTrajectory(iteration int) error {
	if !s.Backup || s.TrajFile == "" {
		return nil
	}
	src, err := os.Open(s.TrajPath())
	if err != nil {
		return err
	}
	defer src.Close()

	name := fmt.Sprintf("%s.iteration%d", s.TrajFile, iteration)
	dst, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}
