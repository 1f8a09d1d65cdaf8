// Package parser turns the files retrieved from a finished PySCF job into a
// structured result record and a failure classification. A missing required
// output file is a program error in the unrecoverable band, never silently
// treated as non-convergence.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/scfchain/scfchain/internal/pyscf"
	"github.com/scfchain/scfchain/internal/structure"
	"github.com/scfchain/scfchain/internal/workchain"
)

// Result is the structured record parsed from one attempt's output files.
// Energies are in eV, coordinates in angstrom, forces in eV/angstrom.
type Result struct {
	Parameters map[string]any
	Structure  *structure.Structure
	Trajectory *structure.Trajectory
	Checkpoint *workchain.CheckpointRef
	Cubegen    map[string]string
	FCIDump    map[string]string
}

type resultsDocument struct {
	TotalEnergy           *float64       `json:"total_energy"`
	IsConverged           *bool          `json:"is_converged"`
	IsOptimizerConverged  *bool          `json:"is_optimizer_converged"`
	OptimizedCoordinates  [][]float64    `json:"optimized_coordinates"`
	TrajectoryCoordinates [][][]float64  `json:"trajectory_coordinates"`
	Forces                [][]float64    `json:"forces"`
	MolecularOrbitals     *orbitalsBlock `json:"molecular_orbitals"`
}

type orbitalsBlock struct {
	Energies []float64 `json:"energies"`
	Labels   []string  `json:"labels"`
}

// Parse reads the retrieved directory of a finished attempt and produces the
// converted result plus the terminal outcome. schedulerStatus is the exit
// status the execution backend assigned, or zero; it passes through when the
// parser has no stronger classification, mirroring the scheduler-override
// semantics of the original plugin.
func Parse(dir string, input *structure.Structure, schedulerStatus int) (*Result, workchain.Outcome) {
	res := &Result{}

	if _, err := os.Stat(filepath.Join(dir, pyscf.FilenameStdout)); errors.Is(err, fs.ErrNotExist) {
		return res, fail(res, dir, workchain.StatusStdoutMissing, "the stdout output file was not retrieved", schedulerStatus, false)
	}

	raw, err := os.ReadFile(filepath.Join(dir, pyscf.FilenameResults))
	if errors.Is(err, fs.ErrNotExist) {
		return res, fail(res, dir, workchain.StatusResultsMissing, "the results JSON file was not retrieved", schedulerStatus, false)
	} else if err != nil {
		return res, fail(res, dir, workchain.StatusResultsMissing, fmt.Sprintf("reading results JSON: %v", err), schedulerStatus, false)
	}

	if err := validateResultsDocument(raw); err != nil {
		return res, fail(res, dir, workchain.StatusResultsMissing, fmt.Sprintf("invalid results JSON: %v", err), schedulerStatus, false)
	}

	var doc resultsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return res, fail(res, dir, workchain.StatusResultsMissing, fmt.Sprintf("decoding results JSON: %v", err), schedulerStatus, false)
	}

	res.Parameters = convertParameters(&doc)
	res.Structure = convertStructure(&doc, input)
	res.Trajectory = convertTrajectory(&doc, input)
	res.Cubegen = collectArtifacts(dir, "*.cube")
	res.FCIDump = collectArtifacts(dir, "*.fcidump")
	res.Checkpoint = attachCheckpoint(dir)

	if doc.IsConverged != nil && !*doc.IsConverged {
		// Electronic non-convergence overrides whatever the scheduler set:
		// a job the scheduler killed after SCF already diverged restarts
		// from the checkpoint either way.
		return res, fail(res, dir, workchain.StatusElectronicNotConverged,
			"the electronic minimization cycle did not reach self-consistency", schedulerStatus, true)
	}
	if doc.IsOptimizerConverged != nil && !*doc.IsOptimizerConverged {
		return res, fail(res, dir, workchain.StatusIonicNotConverged,
			"the ionic minimization cycle did not converge for the given thresholds", schedulerStatus, true)
	}
	if schedulerStatus != 0 {
		return res, fail(res, dir, schedulerStatus, "the execution backend reported a failure", schedulerStatus, false)
	}

	out := workchain.Success(res.Parameters)
	return res, out
}

// fail builds a failed outcome, attaching whatever restart artifacts were
// recovered. When overrideScheduler is false and the scheduler already
// assigned a status, the scheduler's status wins.
func fail(res *Result, dir string, status int, message string, schedulerStatus int, overrideScheduler bool) workchain.Outcome {
	if res.Checkpoint == nil {
		res.Checkpoint = attachCheckpoint(dir)
	}
	if !overrideScheduler && schedulerStatus != 0 {
		status = schedulerStatus
	}
	out := workchain.Failed(workchain.ClassifyExitStatus(status), status, message)
	out.Artifacts = workchain.Artifacts{
		Checkpoint: res.Checkpoint,
		Structure:  res.Structure,
		Trajectory: res.Trajectory,
	}
	return out
}

func convertParameters(doc *resultsDocument) map[string]any {
	params := map[string]any{}
	if doc.TotalEnergy != nil {
		params["total_energy"] = *doc.TotalEnergy * structure.HartreeToEV
		params["total_energy_units"] = "eV"
	}
	if doc.IsConverged != nil {
		params["is_converged"] = *doc.IsConverged
	}
	if doc.IsOptimizerConverged != nil {
		params["is_optimizer_converged"] = *doc.IsOptimizerConverged
	}
	if doc.MolecularOrbitals != nil {
		labels := make([]string, len(doc.MolecularOrbitals.Labels))
		for i, l := range doc.MolecularOrbitals.Labels {
			labels[i] = strings.TrimSpace(l)
		}
		params["molecular_orbitals"] = map[string]any{
			"energies": structure.EnergiesToEV(doc.MolecularOrbitals.Energies),
			"labels":   labels,
		}
	}
	if len(doc.Forces) > 0 {
		params["forces"] = structure.ForcesToEVPerAngstrom(toVec3(doc.Forces))
		params["forces_units"] = "eV/Å"
	}
	return params
}

// convertStructure promotes optimized coordinates (bohr) to an output
// geometry, cloning symbols and periodic boundary flags from the input.
func convertStructure(doc *resultsDocument, input *structure.Structure) *structure.Structure {
	if len(doc.OptimizedCoordinates) == 0 || input == nil {
		return nil
	}
	out := input.Clone()
	out.Positions = structure.PositionsToAngstrom(toVec3(doc.OptimizedCoordinates))
	return out
}

func convertTrajectory(doc *resultsDocument, input *structure.Structure) *structure.Trajectory {
	if len(doc.TrajectoryCoordinates) == 0 || input == nil {
		return nil
	}
	traj := &structure.Trajectory{Symbols: append([]string(nil), input.Symbols...)}
	for _, frame := range doc.TrajectoryCoordinates {
		traj.Frames = append(traj.Frames, structure.PositionsToAngstrom(toVec3(frame)))
	}
	return traj
}

// collectArtifacts globs the retrieved directory and maps file stems to
// absolute paths, in deterministic order for stable output naming.
func collectArtifacts(dir, pattern string) map[string]string {
	matches, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)
	out := make(map[string]string, len(matches))
	for _, m := range matches {
		stem := strings.TrimSuffix(filepath.Base(m), filepath.Ext(m))
		out[stem] = filepath.Join(dir, m)
	}
	return out
}

func toVec3(rows [][]float64) [][3]float64 {
	out := make([][3]float64, len(rows))
	for i, row := range rows {
		for k := 0; k < 3 && k < len(row); k++ {
			out[i][k] = row[k]
		}
	}
	return out
}
