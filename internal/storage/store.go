// Package storage keeps per-run artifacts: run metadata and the gathered
// fit results, laid out one directory per optimization run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one optimization run.
type RunMetadata struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Engine      string    `json:"engine"`
	RdfCutoff   float64   `json:"rdf_cutoff"`
	NRdfPoints  int       `json:"n_rdf_points"`
	PotCutoff   float64   `json:"pot_cutoff"`
	RSwitch     float64   `json:"r_switch"`
	SmoothRDFs  bool      `json:"smooth_rdfs"`
	NIterations int       `json:"n_iterations"`
	Pairs       []string  `json:"pairs"`
	States      []string  `json:"states"`
}

// Run is an open run directory accepting fit results.
type Run struct {
	Dir  string
	meta RunMetadata

	fits   *os.File
	writer *csv.Writer
}

// NewRun creates a run directory, writes its metadata, and opens the fit
// log.
func (s *Store) NewRun(meta RunMetadata) (*Run, error) {
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("msibi_%d", time.Now().Unix())
	}
	meta.Timestamp = time.Now()

	dir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	metaFile, err := os.Create(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return nil, err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return nil, err
	}

	fits, err := os.Create(filepath.Join(dir, "fits.csv"))
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(fits)
	if err := w.Write([]string{"iteration", "pair", "state", "f_fit"}); err != nil {
		fits.Close()
		return nil, err
	}
	w.Flush()
	return &Run{Dir: dir, meta: meta, fits: fits, writer: w}, nil
}

// RecordFit appends one gathered fit result.
func (r *Run) RecordFit(iteration int, pairName, stateName string, fFit float64) error {
	err := r.writer.Write([]string{
		strconv.Itoa(iteration),
		pairName,
		stateName,
		strconv.FormatFloat(fFit, 'f', 6, 64),
	})
	if err != nil {
		return err
	}
	r.writer.Flush()
	return r.writer.Error()
}

// Close flushes and closes the fit log.
func (r *Run) Close() error {
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		r.fits.Close()
		return err
	}
	return r.fits.Close()
}

// FitSeries is the fit history of one (pair, state) combination.
type FitSeries struct {
	Pair  string
	State string
	FFits []float64
}

// LoadFits reads a run's fit log back as ordered per-combination series.
func LoadFits(runDir string) ([]FitSeries, error) {
	f, err := os.Open(filepath.Join(runDir, "fits.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	var series []FitSeries
	index := make(map[string]int)
	for i, row := range rows {
		if i == 0 || len(row) != 4 {
			continue
		}
		key := row[1] + "/" + row[2]
		idx, ok := index[key]
		if !ok {
			idx = len(series)
			index[key] = idx
			series = append(series, FitSeries{Pair: row[1], State: row[2]})
		}
		fit, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("fits.csv row %d: %w", i, err)
		}
		series[idx].FFits = append(series[idx].FFits, fit)
	}
	return series, nil
}

// ListRuns returns the run IDs present under the store.
func (s *Store) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var runs []string
	for _, e := range entries {
		if e.IsDir() {
			runs = append(runs, e.Name())
		}
	}
	return runs, nil
}
