package rdf

import (
	"bufio"
	"fmt"
	"os"

	"github.com/jennyfothergill/msibi/internal/potential"
)

// Load reads a two-column (r, g) table, the format used for target RDFs
// and the per-iteration RDF dumps.
func Load(path string) (*RDF, error) {
	cols, err := potential.ReadTable(path)
	if err != nil {
		return nil, err
	}
	if len(cols) < 2 {
		return nil, fmt.Errorf("rdf %s: expected 2 columns, got %d", path, len(cols))
	}
	return &RDF{R: cols[0], G: cols[1]}, nil
}

// Save writes the RDF as a two-column table with the radius column shifted
// back by shift (half a bin width in the per-iteration dumps).
func (r *RDF) Save(path string, shift float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := range r.R {
		fmt.Fprintf(w, "%.18e %.18e\n", r.R[i]-shift, r.G[i])
	}
	return w.Flush()
}
