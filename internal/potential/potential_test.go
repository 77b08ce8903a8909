package potential

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestArangeLength(t *testing.T) {
	tests := []struct {
		stop     float64
		step     float64
		expected int
	}{
		{2.5, 2.5 / 150.0, 151},
		{2.0, 2.5 / 150.0, 121},
		{1.0, 0.1, 11},
		// A cutoff off the grid still includes the last point below
		// stop+step, so the grid overshoots the cutoff by a fraction of a
		// step instead of stopping short of it.
		{1.02, 0.1, 12},
	}
	for _, tt := range tests {
		r := Arange(tt.stop, tt.step)
		if len(r) != tt.expected {
			t.Errorf("Arange(%g, %g): expected %d points, got %d", tt.stop, tt.step, tt.expected, len(r))
		}
		if r[0] != 0 {
			t.Errorf("Arange(%g, %g): expected first point 0, got %g", tt.stop, tt.step, r[0])
		}
		if last := r[len(r)-1]; last >= tt.stop+tt.step {
			t.Errorf("Arange(%g, %g): last point %g outside the half-open bound", tt.stop, tt.step, last)
		}
	}
}

func TestNearestIndex(t *testing.T) {
	r := Linspace(0, 1, 11)
	if idx := NearestIndex(r, 0.32); idx != 3 {
		t.Errorf("expected index 3, got %d", idx)
	}
	if idx := NearestIndex(r, 2.0); idx != 10 {
		t.Errorf("expected index 10, got %d", idx)
	}
}

func TestLJZeroAtSigma(t *testing.T) {
	r := []float64{1.0}
	v := LJ(r, 1.0, 1.0)
	if math.Abs(v[0]) > 1e-12 {
		t.Errorf("expected V(sigma)=0, got %g", v[0])
	}
}

func TestLJMinimum(t *testing.T) {
	rMin := math.Pow(2, 1.0/6.0)
	v := LJ([]float64{rMin}, 1.5, 1.0)
	if math.Abs(v[0]+1.5) > 1e-12 {
		t.Errorf("expected V(r_min)=-eps, got %g", v[0])
	}
}

func TestTailCorrection(t *testing.T) {
	r := Linspace(0, 2.5, 151)
	v := make([]float64, len(r))
	for i := range v {
		v[i] = 1.0 - r[i]/5.0
	}
	rSwitch := r[len(r)-5]

	out, err := TailCorrection(r, v, rSwitch)
	if err != nil {
		t.Fatalf("tail correction failed: %v", err)
	}

	// Untouched before the switch radius.
	idx := NearestIndex(r, rSwitch)
	for i := 0; i < idx; i++ {
		if out[i] != v[i] {
			t.Fatalf("point %d below r_switch modified: %g != %g", i, out[i], v[i])
		}
	}
	// Switch point itself keeps its value (S=1 there).
	if math.Abs(out[idx]-v[idx]) > 1e-12 {
		t.Errorf("switch point changed: %g != %g", out[idx], v[idx])
	}
	// Zero at the cutoff.
	if math.Abs(out[len(out)-1]) > 1e-12 {
		t.Errorf("expected V=0 at cutoff, got %g", out[len(out)-1])
	}
}

func TestTailCorrectionSizeMismatch(t *testing.T) {
	r := Linspace(0, 2.5, 152)
	v := make([]float64, 151)
	_, err := TailCorrection(r, v, r[len(r)-5])
	var sizeErr *SizeMismatchError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected SizeMismatchError, got %v", err)
	}
}

func TestHeadCorrection(t *testing.T) {
	r := []float64{0, 0.1, 0.2, 0.3, 0.4}
	v := []float64{math.Inf(1), math.NaN(), 1.0, 0.8, 0.6}

	out := HeadCorrection(r, v)
	// Linear extrapolation through (r[2], 1.0) and (r[3], 0.8).
	if math.Abs(out[1]-1.2) > 1e-12 {
		t.Errorf("expected out[1]=1.2, got %g", out[1])
	}
	if math.Abs(out[0]-1.4) > 1e-12 {
		t.Errorf("expected out[0]=1.4, got %g", out[0])
	}
	for i := 2; i < len(v); i++ {
		if out[i] != v[i] {
			t.Errorf("finite point %d modified", i)
		}
	}
}

func TestSavitzkyGolayConstant(t *testing.T) {
	y := make([]float64, 50)
	for i := range y {
		y[i] = 3.7
	}
	out := SavitzkyGolay(y, 9)
	for i, v := range out {
		if math.Abs(v-3.7) > 1e-12 {
			t.Fatalf("point %d: constant not preserved: %g", i, v)
		}
	}
}

func TestSavitzkyGolayQuadraticInterior(t *testing.T) {
	y := make([]float64, 40)
	for i := range y {
		x := float64(i)
		y[i] = 0.5*x*x - 2*x + 1
	}
	out := SavitzkyGolay(y, 9)
	// A quadratic is reproduced exactly away from the padded edges.
	for i := 4; i < len(y)-4; i++ {
		if math.Abs(out[i]-y[i]) > 1e-9 {
			t.Fatalf("point %d: expected %g, got %g", i, y[i], out[i])
		}
	}
}

func TestSavitzkyGolayReducesNoise(t *testing.T) {
	n := 100
	clean := make([]float64, n)
	noisy := make([]float64, n)
	for i := range clean {
		x := float64(i) / 10
		clean[i] = math.Sin(x)
		noise := 0.1
		if i%2 == 1 {
			noise = -0.1
		}
		noisy[i] = clean[i] + noise
	}
	out := SavitzkyGolay(noisy, 9)

	var rawErr, smoothErr float64
	for i := 10; i < n-10; i++ {
		rawErr += math.Abs(noisy[i] - clean[i])
		smoothErr += math.Abs(out[i] - clean[i])
	}
	if smoothErr >= rawErr {
		t.Errorf("smoothing did not reduce noise: %g >= %g", smoothErr, rawErr)
	}
}

func TestSimilarity(t *testing.T) {
	a := []float64{1, 2, 3}
	if s := Similarity(a, a); s != 1.0 {
		t.Errorf("identical curves: expected 1, got %g", s)
	}
	zero := []float64{0, 0, 0}
	b := []float64{1, 1, 1}
	if s := Similarity(zero, b); s != 0.0 {
		t.Errorf("disjoint curves: expected 0, got %g", s)
	}
	if s := Similarity(zero, zero); s != 1.0 {
		t.Errorf("both zero: expected 1, got %g", s)
	}
}

func TestForceLinearPotential(t *testing.T) {
	r := Linspace(0, 1, 11)
	v := make([]float64, len(r))
	for i := range v {
		v[i] = 2 * r[i]
	}
	f := Force(r, v)
	for i, fi := range f {
		if math.Abs(fi+2) > 1e-12 {
			t.Errorf("point %d: expected force -2, got %g", i, fi)
		}
	}
}

func TestWriteReadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pot.test.txt")

	r := Linspace(0.1, 1.0, 10)
	v := make([]float64, len(r))
	for i := range v {
		v[i] = -1.0 / r[i]
	}
	if err := WriteTable(path, r, v); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cols, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(cols) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(cols))
	}
	for i := range r {
		if math.Abs(cols[0][i]-r[i]) > 1e-12 || math.Abs(cols[1][i]-v[i]) > 1e-12 {
			t.Fatalf("row %d does not round-trip", i)
		}
	}
}

func TestWriteTableSizeMismatch(t *testing.T) {
	err := WriteTable(filepath.Join(t.TempDir(), "x.txt"), []float64{1, 2}, []float64{1})
	var sizeErr *SizeMismatchError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected SizeMismatchError, got %v", err)
	}
}
