// Package config loads and validates yaml run configurations describing a
// full multistate optimization: discretization, engine, states, and pairs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultIterations = 10
	DefaultEngine     = "hoomd"
	DefaultStatusFile = "f_fits.log"
	DefaultAlpha      = 1.0
)

type Config struct {
	RdfCutoff     float64 `yaml:"rdf_cutoff"`
	NRdfPoints    int     `yaml:"n_rdf_points"`
	PotCutoff     float64 `yaml:"pot_cutoff"`
	RSwitch       float64 `yaml:"r_switch"`
	SmoothRDFs    bool    `yaml:"smooth_rdfs"`
	StatusFile    string  `yaml:"status_file"`
	PotentialsDir string  `yaml:"potentials_dir"`
	RdfDir        string  `yaml:"rdf_dir"`

	Engine         string `yaml:"engine"`
	Iterations     int    `yaml:"iterations"`
	StartIteration int    `yaml:"start_iteration"`
	Checkpoint     string `yaml:"checkpoint"`
	DataDir        string `yaml:"data_dir"`

	States []StateConfig `yaml:"states"`
	Pairs  []PairConfig  `yaml:"pairs"`
}

type StateConfig struct {
	KT       float64 `yaml:"kt"`
	Dir      string  `yaml:"dir"`
	TrajFile string  `yaml:"traj_file"`
	TopFile  string  `yaml:"top_file"`
	Name     string  `yaml:"name"`
	Backup   bool    `yaml:"backup_trajectory"`
}

type PairConfig struct {
	Type1   string           `yaml:"type1"`
	Type2   string           `yaml:"type2"`
	Initial InitialPotential `yaml:"initial"`
	States  []PairStateRef   `yaml:"states"`
}

// InitialPotential selects the seed potential form for a pair.
type InitialPotential struct {
	Form    string  `yaml:"form"` // "mie" or "lj"
	Epsilon float64 `yaml:"epsilon"`
	Sigma   float64 `yaml:"sigma"`
	M       float64 `yaml:"m"`
	N       float64 `yaml:"n"`
	// Table overrides the analytic forms with an existing potential table.
	Table string `yaml:"table"`
}

// PairStateRef associates a pair with a state by name and supplies the
// target RDF and weighting for that combination.
type PairStateRef struct {
	State     string  `yaml:"state"`
	TargetRDF string  `yaml:"target_rdf"`
	Alpha     float64 `yaml:"alpha"`
}

func DefaultConfig() *Config {
	return &Config{
		Engine:     DefaultEngine,
		Iterations: DefaultIterations,
		StatusFile: DefaultStatusFile,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.RdfCutoff <= 0 {
		return fmt.Errorf("config: rdf_cutoff must be positive, got %g", c.RdfCutoff)
	}
	if c.NRdfPoints <= 1 {
		return fmt.Errorf("config: n_rdf_points must be greater than 1, got %d", c.NRdfPoints)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("config: iterations must not be negative, got %d", c.Iterations)
	}
	if len(c.States) == 0 {
		return fmt.Errorf("config: at least one state is required")
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("config: at least one pair is required")
	}

	names := make(map[string]bool)
	for i, s := range c.States {
		if s.Dir == "" {
			return fmt.Errorf("config: state %d: dir is required", i)
		}
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("state-%.3f", s.KT)
		}
		if names[name] {
			return fmt.Errorf("config: duplicate state name %q", name)
		}
		names[name] = true
	}

	for i, p := range c.Pairs {
		if p.Type1 == "" || p.Type2 == "" {
			return fmt.Errorf("config: pair %d: both types are required", i)
		}
		if len(p.States) == 0 {
			return fmt.Errorf("config: pair %s-%s: at least one state reference is required", p.Type1, p.Type2)
		}
		for _, ref := range p.States {
			if !names[ref.State] {
				return fmt.Errorf("config: pair %s-%s references unknown state %q", p.Type1, p.Type2, ref.State)
			}
			if ref.TargetRDF == "" {
				return fmt.Errorf("config: pair %s-%s, state %s: target_rdf is required", p.Type1, p.Type2, ref.State)
			}
		}
	}
	return nil
}
