package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/jennyfothergill/msibi/internal/state"
)

func init() {
	Register("hoomd", func() Driver { return NewHOOMD() })
}

// HOOMD drives the HOOMD-blue engine by executing each state's generated
// run script as a subprocess. States run concurrently; the call returns
// after every subprocess has exited.
type HOOMD struct {
	// Python is the interpreter used to run the scripts.
	Python string
}

// NewHOOMD returns a HOOMD driver with the default interpreter.
func NewHOOMD() *HOOMD {
	return &HOOMD{Python: "python"}
}

func (h *HOOMD) Name() string { return "hoomd" }

// RunQuerySimulations executes run.py in every state directory and joins.
// The first failure is returned; there is no retry.
func (h *HOOMD) RunQuerySimulations(ctx context.Context, states []*state.State) error {
	errs := make([]error, len(states))
	var wg sync.WaitGroup
	for i, s := range states {
		wg.Add(1)
		go func(i int, s *state.State) {
			defer wg.Done()
			errs[i] = h.runOne(ctx, s)
		}(i, s)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("engine hoomd: state %s: %w", states[i].Name, err)
		}
	}
	return nil
}

func (h *HOOMD) runOne(ctx context.Context, s *state.State) error {
	logPath := filepath.Join(s.Dir, "log.txt")
	logFile, err := os.Create(logPath)
	if err != nil {
		return err
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, h.Python, state.RunscriptName)
	cmd.Dir = s.Dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w (see %s)", h.Python, state.RunscriptName, err, logPath)
	}
	return nil
}
