// Package rdf computes radial distribution functions from trajectories.
package rdf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/jennyfothergill/msibi/internal/trajectory"
)

// RDF is a radial distribution function sampled at bin centers.
type RDF struct {
	R []float64
	G []float64
}

// Len returns the number of bins.
func (r *RDF) Len() int { return len(r.R) }

// Compute histograms the minimum-image distances between particles of
// type1 and type2 over every frame of the trajectory and normalizes by
// the ideal-gas shell count. The result has exactly nBins points; any
// incompatibility between the trajectory and the requested binning is an
// error, never a silent truncation.
func Compute(traj *trajectory.Trajectory, type1, type2 string, rRange [2]float64, nBins int) (*RDF, error) {
	if nBins < 2 {
		return nil, fmt.Errorf("rdf: need at least 2 bins, got %d", nBins)
	}
	if rRange[1] <= rRange[0] {
		return nil, fmt.Errorf("rdf: invalid range [%g, %g]", rRange[0], rRange[1])
	}
	if traj == nil || traj.NFrames() == 0 {
		return nil, fmt.Errorf("rdf: empty trajectory")
	}

	sel1 := traj.Select(type1)
	sel2 := traj.Select(type2)
	if len(sel1) == 0 || len(sel2) == 0 {
		return nil, fmt.Errorf("rdf: no particles for pair %s-%s", type1, type2)
	}

	dr := (rRange[1] - rRange[0]) / float64(nBins)
	hist := make([]float64, nBins)
	var volume float64

	for _, frame := range traj.Frames {
		for _, i := range sel1 {
			for _, j := range sel2 {
				if i == j {
					continue
				}
				d := trajectory.Distance(frame.Box, frame.Positions[i], frame.Positions[j])
				if d < rRange[0] || d >= rRange[1] {
					continue
				}
				hist[int((d-rRange[0])/dr)]++
			}
		}
		volume += frame.Box[0] * frame.Box[1] * frame.Box[2]
	}
	volume /= float64(traj.NFrames())
	if volume <= 0 {
		return nil, fmt.Errorf("rdf: trajectory has no box volume")
	}

	out := &RDF{R: make([]float64, nBins), G: make([]float64, nBins)}
	nPairs := float64(len(sel1) * len(sel2))
	if type1 == type2 {
		nPairs = float64(len(sel1) * (len(sel2) - 1))
	}
	norm := nPairs * float64(traj.NFrames()) / volume
	for k := 0; k < nBins; k++ {
		rLo := rRange[0] + float64(k)*dr
		rHi := rLo + dr
		shell := 4.0 / 3.0 * math.Pi * (rHi*rHi*rHi - rLo*rLo*rLo)
		out.R[k] = rLo + 0.5*dr
		if norm > 0 {
			out.G[k] = hist[k] / (shell * norm)
		}
	}
	return out, nil
}

// Smooth returns a copy of the RDF with the g(r) column smoothed by a
// quadratic Savitzky-Golay window. Smoothing trades fidelity for iteration
// stability; the smoothing itself lives in the potential package.
func (r *RDF) WithG(g []float64) *RDF {
	out := &RDF{R: make([]float64, len(r.R)), G: g}
	copy(out.R, r.R)
	return out
}

// Integrate returns the coordination number up to rMax: the integral of
// 4*pi*r^2*rho*g(r) approximated on the bin grid with unit density.
func (r *RDF) Integrate(rMax float64) float64 {
	if len(r.R) < 2 {
		return 0
	}
	dr := r.R[1] - r.R[0]
	var sum float64
	for i := range r.R {
		if r.R[i] > rMax {
			break
		}
		sum += 4 * math.Pi * r.R[i] * r.R[i] * r.G[i] * dr
	}
	return sum
}

// MaxG returns the height of the first peak of g(r).
func (r *RDF) MaxG() float64 {
	if len(r.G) == 0 {
		return 0
	}
	return floats.Max(r.G)
}
