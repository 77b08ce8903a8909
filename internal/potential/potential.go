// Package potential implements the pair-potential math used by the MSIBI
// update step: seed potential forms, tail and head corrections, smoothing,
// the fit-quality score, and the tabulated potential file layout read by
// the simulation engine.
package potential

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Arange returns multiples of step from 0 up through the half-open bound
// stop+step: the last point is the largest multiple of step strictly below
// stop+step. The relative epsilon keeps a bound that lands exactly on the
// grid from gaining a point through rounding noise.
func Arange(stop, step float64) []float64 {
	n := int(math.Ceil((stop+step)/step - 1e-9))
	r := make([]float64, n)
	for i := range r {
		r[i] = float64(i) * step
	}
	return r
}

// Linspace returns n evenly spaced values over [start, stop].
func Linspace(start, stop float64, n int) []float64 {
	r := make([]float64, n)
	if n == 1 {
		r[0] = start
		return r
	}
	step := (stop - start) / float64(n-1)
	for i := range r {
		r[i] = start + float64(i)*step
	}
	return r
}

// NearestIndex returns the index of the grid point closest to x.
func NearestIndex(r []float64, x float64) int {
	best := 0
	for i := range r {
		if math.Abs(r[i]-x) < math.Abs(r[best]-x) {
			best = i
		}
	}
	return best
}

// Mie evaluates the Mie potential on the grid r.
func Mie(r []float64, eps, sigma float64, m, n float64) []float64 {
	prefactor := (m / (m - n)) * math.Pow(m/n, n/(m-n)) * eps
	v := make([]float64, len(r))
	for i, ri := range r {
		sr := sigma / ri
		v[i] = prefactor * (math.Pow(sr, m) - math.Pow(sr, n))
	}
	return v
}

// LJ evaluates the 12-6 Lennard-Jones potential on the grid r.
func LJ(r []float64, eps, sigma float64) []float64 {
	return Mie(r, eps, sigma, 12, 6)
}

// TailCorrection blends the potential smoothly to zero beyond rSwitch.
// The multiplicative switching function is 1 at rSwitch and 0 at the last
// grid point, so the corrected potential decays continuously instead of
// carrying the raw noisy inversion result at long range.
func TailCorrection(r, v []float64, rSwitch float64) ([]float64, error) {
	if len(r) != len(v) {
		return nil, &SizeMismatchError{Op: "tail correction", Want: len(r), Got: len(v)}
	}
	rCut := r[len(r)-1]
	idx := NearestIndex(r, rSwitch)
	rs := r[idx]

	out := make([]float64, len(v))
	copy(out, v)
	denom := math.Pow(rCut*rCut-rs*rs, 3)
	for i := idx; i < len(r); i++ {
		ri2 := r[i] * r[i]
		s := (rCut*rCut - ri2) * (rCut*rCut - ri2) *
			(rCut*rCut + 2*ri2 - 3*rs*rs) / denom
		out[i] *= s
	}
	return out, nil
}

// HeadCorrection replaces the leading non-finite region of the potential
// (produced by the logarithm of a vanishing RDF at short range) with a
// linear extrapolation through the first two finite points.
func HeadCorrection(r, v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)

	first := -1
	for i, vi := range out {
		if !math.IsNaN(vi) && !math.IsInf(vi, 0) {
			first = i
			break
		}
	}
	if first <= 0 || first+1 >= len(out) {
		return out
	}
	slope := (out[first+1] - out[first]) / (r[first+1] - r[first])
	for i := 0; i < first; i++ {
		out[i] = out[first] + slope*(r[i]-r[first])
	}
	return out
}

// SavitzkyGolay smooths y with a quadratic Savitzky-Golay filter of the
// given odd window size. The signal is mirror-padded at both ends.
func SavitzkyGolay(y []float64, window int) []float64 {
	if window < 3 || window%2 == 0 || len(y) < window {
		out := make([]float64, len(y))
		copy(out, y)
		return out
	}
	m := window / 2
	// Closed-form quadratic smoothing coefficients.
	norm := float64((2*m + 3) * (2*m + 1) * (2*m - 1))
	c := make([]float64, window)
	for i := -m; i <= m; i++ {
		c[i+m] = 3 * (float64(3*m*m+3*m-1) - 5*float64(i*i)) / norm
	}

	padded := make([]float64, len(y)+2*m)
	copy(padded[m:], y)
	for i := 0; i < m; i++ {
		padded[m-1-i] = y[i+1]
		padded[len(y)+m+i] = y[len(y)-2-i]
	}

	out := make([]float64, len(y))
	for i := range y {
		out[i] = floats.Dot(c, padded[i:i+window])
	}
	return out
}

// Similarity scores how closely two curves match: 1 for identical curves,
// approaching 0 as they diverge. This is the f_fit reported per iteration.
func Similarity(a, b []float64) float64 {
	diff := make([]float64, len(a))
	floats.SubTo(diff, a, b)
	denom := floats.Norm(a, 1) + floats.Norm(b, 1)
	if denom == 0 {
		return 1.0
	}
	return 1.0 - floats.Norm(diff, 1)/denom
}

// Force returns -dV/dr by central differences, with one-sided differences
// at the ends. This matches the gradient column the engine expects in a
// tabulated potential.
func Force(r, v []float64) []float64 {
	n := len(v)
	f := make([]float64, n)
	if n < 2 {
		return f
	}
	f[0] = -(v[1] - v[0]) / (r[1] - r[0])
	f[n-1] = -(v[n-1] - v[n-2]) / (r[n-1] - r[n-2])
	for i := 1; i < n-1; i++ {
		f[i] = -(v[i+1] - v[i-1]) / (r[i+1] - r[i-1])
	}
	return f
}

// SizeMismatchError reports an incompatibility between a configured grid
// and the data computed against it. It always terminates the run.
type SizeMismatchError struct {
	Op   string
	Want int
	Got  int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: size mismatch: want %d points, got %d", e.Op, e.Want, e.Got)
}
