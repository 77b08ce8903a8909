package checkpoint

import (
	"math"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *IO {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "checkpoint.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, []byte("run-1"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	io := openTestDB(t)

	saved := &Data{
		Iteration: 7,
		Potentials: map[string][]float64{
			"A-A": {0.1, 0.2, 0.3},
			"A-B": {-1.5, 0, 1.5},
		},
	}
	if err := io.Save(saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := io.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a checkpoint")
	}
	if loaded.Iteration != 7 {
		t.Errorf("expected iteration 7, got %d", loaded.Iteration)
	}
	if len(loaded.Potentials) != 2 || loaded.Potentials["A-B"][0] != -1.5 {
		t.Errorf("potentials do not round-trip: %+v", loaded.Potentials)
	}
}

func TestSaveLoadNonFinitePotentials(t *testing.T) {
	// The inversion update leaves NaN and infinities in bins where an RDF
	// vanishes; checkpoints must carry those values.
	io := openTestDB(t)

	saved := &Data{
		Iteration: 1,
		Potentials: map[string][]float64{
			"A-A": {math.NaN(), math.Inf(1), math.Inf(-1), 0.25},
		},
	}
	if err := io.Save(saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := io.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	v := loaded.Potentials["A-A"]
	if len(v) != 4 {
		t.Fatalf("expected 4 points, got %d", len(v))
	}
	if !math.IsNaN(v[0]) {
		t.Errorf("expected NaN, got %g", v[0])
	}
	if !math.IsInf(v[1], 1) || !math.IsInf(v[2], -1) {
		t.Errorf("infinities do not round-trip: %v", v)
	}
	if v[3] != 0.25 {
		t.Errorf("finite value does not round-trip: %g", v[3])
	}
}

func TestSaveOverwrites(t *testing.T) {
	io := openTestDB(t)
	for i := 0; i < 3; i++ {
		if err := io.Save(&Data{Iteration: i}); err != nil {
			t.Fatal(err)
		}
	}
	loaded, err := io.Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Iteration != 2 {
		t.Errorf("expected latest checkpoint, got iteration %d", loaded.Iteration)
	}
}

func TestLoadEmpty(t *testing.T) {
	io := openTestDB(t)
	loaded, err := io.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for empty database, got %+v", loaded)
	}
}

func TestNilIO(t *testing.T) {
	var io *IO
	if err := io.Save(&Data{Iteration: 1}); err != nil {
		t.Errorf("nil IO save must be a no-op: %v", err)
	}
	loaded, err := io.Load()
	if err != nil || loaded != nil {
		t.Errorf("nil IO load must return nothing: %v %v", loaded, err)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "checkpoint.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	a := New(db, []byte("run-a"))
	b := New(db, []byte("run-b"))
	if err := a.Save(&Data{Iteration: 1}); err != nil {
		t.Fatal(err)
	}
	if err := b.Save(&Data{Iteration: 9}); err != nil {
		t.Fatal(err)
	}

	fromA, err := a.Load()
	if err != nil {
		t.Fatal(err)
	}
	if fromA.Iteration != 1 {
		t.Errorf("run-a checkpoint clobbered: %d", fromA.Iteration)
	}
}
