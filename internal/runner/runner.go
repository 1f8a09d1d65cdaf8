// Package runner executes PySCF attempts on the local machine. It renders
// the input script, stages restart state, runs the interpreter with the
// configured walltime, and hands the retrieved directory to the parser.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/scfchain/scfchain/internal/parser"
	"github.com/scfchain/scfchain/internal/pyscf"
	"github.com/scfchain/scfchain/internal/structure"
	"github.com/scfchain/scfchain/internal/workchain"
)

// KeyParameters is the opaque context key under which the work chain carries
// the calculation parameters. Unlike the reserved restart keys, the engine
// never touches it.
const KeyParameters = "parameters"

// Local runs attempts as local subprocesses, one working directory per
// attempt under LogsRoot.
type Local struct {
	// Executable is the Python interpreter used to run the rendered script.
	Executable string

	LogsRoot string

	// Walltime bounds one attempt. Zero means unbounded. An attempt killed
	// at the walltime is reported with the scheduler out-of-walltime status,
	// matching what a batch scheduler would do.
	Walltime time.Duration
}

func (r *Local) Submit(ctx context.Context, attemptID string, inputs *workchain.Context) (workchain.Outcome, error) {
	geometry := inputs.Geometry()
	if geometry == nil {
		return workchain.Outcome{}, fmt.Errorf("input context carries no geometry under %q", workchain.KeyGeometry)
	}
	params, err := parameters(inputs)
	if err != nil {
		return workchain.Outcome{}, err
	}

	dir := filepath.Join(r.LogsRoot, "attempts", attemptID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return workchain.Outcome{}, fmt.Errorf("create attempt directory: %w", err)
	}

	restart := inputs.Checkpoint()
	if restart != nil {
		if err := copyFile(restart.Path, filepath.Join(dir, pyscf.FilenameRestart)); err != nil {
			return workchain.Outcome{}, fmt.Errorf("stage restart checkpoint: %w", err)
		}
	}

	script, err := pyscf.RenderScript(pyscf.ScriptInput{
		Structure:  geometry,
		Parameters: params,
		Restart:    restart != nil,
	})
	if err != nil {
		return workchain.Outcome{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, pyscf.FilenameScript), []byte(script), 0o644); err != nil {
		return workchain.Outcome{}, fmt.Errorf("write script: %w", err)
	}

	schedulerStatus, err := r.execute(ctx, dir)
	if err != nil {
		return workchain.Outcome{}, err
	}

	_, out := parser.Parse(dir, geometry, schedulerStatus)
	return out, nil
}

// execute runs the interpreter and maps infrastructure-level terminations
// onto the scheduler status band. A plain non-zero exit is left for the
// parser to classify from the retrieved files.
func (r *Local) execute(ctx context.Context, dir string) (int, error) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if r.Walltime > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.Walltime)
	}
	defer cancel()

	stdout, err := os.Create(filepath.Join(dir, pyscf.FilenameStdout))
	if err != nil {
		return 0, fmt.Errorf("create stdout file: %w", err)
	}
	defer stdout.Close()

	exe := r.Executable
	if exe == "" {
		exe = "python"
	}
	cmd := exec.CommandContext(runCtx, exe, pyscf.FilenameScript)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stdout

	runErr := cmd.Run()
	if runErr == nil {
		return 0, nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return workchain.StatusSchedulerOutOfWalltime, nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		if status, ok := exitErr.Sys().(interface{ Signaled() bool }); ok && status.Signaled() {
			return workchain.StatusSchedulerNodeFailure, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("run %s: %w", exe, runErr)
}

func parameters(inputs *workchain.Context) (*pyscf.Parameters, error) {
	v, ok := inputs.Get(KeyParameters)
	if !ok {
		return nil, fmt.Errorf("input context carries no parameters under %q", KeyParameters)
	}
	params, ok := v.(*pyscf.Parameters)
	if !ok {
		return nil, fmt.Errorf("context key %q holds %T, want *pyscf.Parameters", KeyParameters, v)
	}
	return params, nil
}

// NewInputContext assembles the initial input context for a run.
func NewInputContext(geometry *structure.Structure, params *pyscf.Parameters) map[string]any {
	return map[string]any{
		workchain.KeyGeometry: geometry,
		KeyParameters:         params,
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
