package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jennyfothergill/msibi/internal/trajectory"
)

// Eight gsd magic bytes followed by padding, enough for the probe.
func writeGSDStub(t *testing.T, dir, name string) {
	t.Helper()
	data := make([]byte, 16)
	for i := 0; i < 8; i += 2 {
		data[i] = 0xDF
		data[i+1] = 0x65
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNewDefaultName(t *testing.T) {
	s, err := New(1.5, t.TempDir(), "", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "state-1.500" {
		t.Errorf("unexpected default name %q", s.Name)
	}
}

func TestNewProbesGSD(t *testing.T) {
	dir := t.TempDir()
	writeGSDStub(t, dir, "query.gsd")

	s, err := New(1.0, dir, "query.gsd", Options{Name: "melt"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Format != trajectory.FormatGSD {
		t.Errorf("expected gsd format, got %v", s.Format)
	}
	if s.Name != "melt" {
		t.Errorf("expected explicit name kept, got %q", s.Name)
	}
}

func TestNewUnrecognizedFallsBackWithTopology(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "query.dcd"), []byte("not a trajectory"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(1.0, dir, "query.dcd", Options{}); err == nil {
		t.Error("expected error for unrecognized format without topology")
	}

	s, err := New(1.0, dir, "query.dcd", Options{TopFile: "start.hoomdxml"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Format != trajectory.FormatDCD {
		t.Errorf("expected dcd fallback, got %v", s.Format)
	}
}

func TestNewMissingTrajectoryTolerated(t *testing.T) {
	// The engine produces the trajectory later; construction must not fail.
	s, err := New(1.0, t.TempDir(), "query.gsd", Options{})
	if err != nil {
		t.Fatalf("missing trajectory should not be fatal at construction: %v", err)
	}
	if s.Format != trajectory.FormatUnrecognized {
		t.Errorf("expected unresolved format, got %v", s.Format)
	}
}

func TestReloadInjectedTrajectory(t *testing.T) {
	s, err := New(1.0, t.TempDir(), "", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ReloadQueryTrajectory(); err == nil {
		t.Error("expected error with neither file nor injected trajectory")
	}

	s.Traj = &trajectory.Trajectory{TypeNames: []string{"A"}, TypeIDs: []int{0}}
	if err := s.ReloadQueryTrajectory(); err != nil {
		t.Errorf("injected trajectory should make reload a no-op: %v", err)
	}
}

func TestBackupTrajectory(t *testing.T) {
	dir := t.TempDir()
	writeGSDStub(t, dir, "query.gsd")

	s, err := New(1.0, dir, "query.gsd", Options{Backup: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.BackupTrajectory(3); err != nil {
		t.Fatalf("backup failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "query.gsd.iteration3")); err != nil {
		t.Errorf("backup copy missing: %v", err)
	}

	s.Backup = false
	if err := s.BackupTrajectory(4); err != nil {
		t.Errorf("disabled backup should be a no-op: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "query.gsd.iteration4")); err == nil {
		t.Error("backup written despite disabled flag")
	}
}

func TestSaveRunscriptGSD(t *testing.T) {
	dir := t.TempDir()
	writeGSDStub(t, dir, "query.gsd")
	body := "run_upto(1e6)\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultRunscriptTemplate), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(2.5, dir, "query.gsd", Options{})
	if err != nil {
		t.Fatal(err)
	}
	tables := []TablePotential{
		{Type1: "A", Type2: "A", File: "pot.A-A.txt"},
		{Type1: "A", Type2: "B", File: "pot.A-B.txt"},
	}
	if err := s.SaveRunscript(tables, 151); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, RunscriptName))
	if err != nil {
		t.Fatal(err)
	}
	script := string(raw)

	for _, want := range []string{
		`read_gsd("query.gsd", frame=-1, time_step=0)`,
		"T_final = 2.5",
		"pot_width = 151",
		`table.set_from_file('A', 'A', filename='pot.A-A.txt')`,
		`table.set_from_file('A', 'B', filename='pot.A-B.txt')`,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("runscript missing %q", want)
		}
	}
	if strings.Contains(script, "read_xml") && strings.Contains(script, `read_xml(filename=`) {
		t.Error("gsd runscript must not restart from xml")
	}
	if !strings.HasSuffix(script, body) {
		t.Error("body template must follow the header verbatim")
	}
	// Header before body.
	if strings.Index(script, "pot_width") > strings.Index(script, "run_upto") {
		t.Error("header must precede the body")
	}
}

func TestSaveRunscriptLegacy(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "query.dcd"), []byte("not a trajectory"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, DefaultRunscriptTemplate), []byte("run(1000)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(1.0, dir, "query.dcd", Options{TopFile: "start.hoomdxml"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRunscript(nil, 61); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, RunscriptName))
	if err != nil {
		t.Fatal(err)
	}
	script := string(raw)
	if !strings.Contains(script, "read_xml(filename=") {
		t.Error("legacy runscript must restart from xml")
	}
	if !strings.Contains(script, s.TopPath()) {
		t.Error("legacy restart must point at the topology file")
	}
}

func TestSaveRunscriptMissingTemplate(t *testing.T) {
	dir := t.TempDir()
	writeGSDStub(t, dir, "query.gsd")
	s, err := New(1.0, dir, "query.gsd", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRunscript(nil, 10); err == nil {
		t.Error("expected error for missing body template")
	}
}
