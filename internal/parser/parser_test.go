package parser

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/scfchain/scfchain/internal/pyscf"
	"github.com/scfchain/scfchain/internal/structure"
	"github.com/scfchain/scfchain/internal/workchain"
)

func inputStructure() *structure.Structure {
	return &structure.Structure{
		Symbols:   []string{"H", "H"},
		Positions: [][3]float64{{0, 0, 0}, {0, 0, 0.74}},
		PBC:       [3]bool{true, true, true},
	}
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestParseMissingStdout(t *testing.T) {
	dir := writeFiles(t, nil)
	_, out := Parse(dir, inputStructure(), 0)
	if out.OK {
		t.Fatalf("expected failure")
	}
	if out.ExitStatus != workchain.StatusStdoutMissing {
		t.Fatalf("got status %d, want %d", out.ExitStatus, workchain.StatusStdoutMissing)
	}
	if out.Classification != workchain.ClassUnrecoverable {
		t.Fatalf("missing output is a program error, got %s", out.Classification)
	}
}

func TestParseMissingResults(t *testing.T) {
	dir := writeFiles(t, map[string]string{pyscf.FilenameStdout: "converged SCF energy"})
	_, out := Parse(dir, inputStructure(), 0)
	if out.ExitStatus != workchain.StatusResultsMissing {
		t.Fatalf("got status %d, want %d", out.ExitStatus, workchain.StatusResultsMissing)
	}
	if out.Classification != workchain.ClassUnrecoverable {
		t.Fatalf("got classification %s", out.Classification)
	}
}

func TestParseMalformedResults(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		pyscf.FilenameStdout:  "output",
		pyscf.FilenameResults: `{"is_converged": "yes"}`,
	})
	_, out := Parse(dir, inputStructure(), 0)
	if out.OK || out.ExitStatus != workchain.StatusResultsMissing {
		t.Fatalf("schema violation must fail in the unrecoverable band, got %+v", out)
	}
}

func TestParseSuccessConvertsUnits(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		pyscf.FilenameStdout: "output",
		pyscf.FilenameResults: `{
			"is_converged": true,
			"total_energy": -1.0,
			"forces": [[1.0, 0.0, 0.0], [0.0, 0.0, 0.0]],
			"molecular_orbitals": {"energies": [-0.5, 0.5], "labels": [" 0 H 1s  ", " 1 H 1s  "]}
		}`,
	})
	res, out := Parse(dir, inputStructure(), 0)
	if !out.OK {
		t.Fatalf("expected success, got %+v", out)
	}

	energy := res.Parameters["total_energy"].(float64)
	if math.Abs(energy+structure.HartreeToEV) > 1e-9 {
		t.Fatalf("total_energy = %v eV, want %v", energy, -structure.HartreeToEV)
	}
	if res.Parameters["total_energy_units"] != "eV" {
		t.Fatalf("missing unit annotation")
	}

	orbitals := res.Parameters["molecular_orbitals"].(map[string]any)
	labels := orbitals["labels"].([]string)
	if labels[0] != "0 H 1s" {
		t.Fatalf("labels not trimmed: %q", labels[0])
	}
	energies := orbitals["energies"].([]float64)
	if math.Abs(energies[0]+0.5*structure.HartreeToEV) > 1e-9 {
		t.Fatalf("orbital energies not converted: %v", energies)
	}

	forces := res.Parameters["forces"].([][3]float64)
	if math.Abs(forces[0][0]-structure.HartreePerBohrToEVPerAngstrom) > 1e-9 {
		t.Fatalf("forces not converted: %v", forces)
	}
}

func TestParseElectronicNonConvergenceOverridesScheduler(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		pyscf.FilenameStdout:     "output",
		pyscf.FilenameResults:    `{"is_converged": false}`,
		pyscf.FilenameCheckpoint: "binary checkpoint",
	})
	// The scheduler killed the job, but SCF had already failed to converge;
	// the stronger classification wins.
	_, out := Parse(dir, inputStructure(), workchain.StatusSchedulerOutOfWalltime)
	if out.ExitStatus != workchain.StatusElectronicNotConverged {
		t.Fatalf("got status %d, want %d", out.ExitStatus, workchain.StatusElectronicNotConverged)
	}
	if out.Classification != workchain.ClassElectronicNotConverged {
		t.Fatalf("got classification %s", out.Classification)
	}
	if out.Artifacts.Checkpoint == nil || out.Artifacts.Checkpoint.Digest == "" {
		t.Fatalf("checkpoint artifact must be attached and fingerprinted")
	}
}

func TestParseSchedulerStatusPassthrough(t *testing.T) {
	dir := writeFiles(t, map[string]string{pyscf.FilenameStdout: "output"})
	_, out := Parse(dir, inputStructure(), workchain.StatusSchedulerOutOfWalltime)
	// results.json is missing, but the scheduler already assigned a status
	// and the parser has no stronger classification to override it with.
	if out.ExitStatus != workchain.StatusSchedulerOutOfWalltime {
		t.Fatalf("got status %d, want scheduler passthrough %d", out.ExitStatus, workchain.StatusSchedulerOutOfWalltime)
	}
	if out.Classification != workchain.ClassSchedulerOutOfWalltime {
		t.Fatalf("got classification %s", out.Classification)
	}
}

func TestParseIonicNonConvergenceWithTrajectory(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		pyscf.FilenameStdout: "output",
		pyscf.FilenameResults: `{
			"is_converged": true,
			"is_optimizer_converged": false,
			"trajectory_coordinates": [
				[[0, 0, 0], [0, 0, 1.0]],
				[[0, 0, 0], [0, 0, 1.5]]
			]
		}`,
	})
	res, out := Parse(dir, inputStructure(), 0)
	if out.ExitStatus != workchain.StatusIonicNotConverged {
		t.Fatalf("got status %d, want %d", out.ExitStatus, workchain.StatusIonicNotConverged)
	}
	if out.Classification != workchain.ClassIonicNotConverged {
		t.Fatalf("got classification %s", out.Classification)
	}
	if res.Trajectory.NumFrames() != 2 {
		t.Fatalf("trajectory frames = %d, want 2", res.Trajectory.NumFrames())
	}
	last, _ := res.Trajectory.LastFrame()
	want := 1.5 * structure.BohrToAngstrom
	if math.Abs(last.Positions[1][2]-want) > 1e-9 {
		t.Fatalf("trajectory not converted to angstrom: %v", last.Positions[1])
	}
}

func TestParseOptimizedStructureKeepsPBC(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		pyscf.FilenameStdout: "output",
		pyscf.FilenameResults: `{
			"is_converged": true,
			"optimized_coordinates": [[0, 0, 0], [0, 0, 1.4]]
		}`,
	})
	res, out := Parse(dir, inputStructure(), 0)
	if !out.OK {
		t.Fatalf("expected success, got %+v", out)
	}
	if res.Structure == nil {
		t.Fatalf("optimized structure missing")
	}
	if res.Structure.PBC != inputStructure().PBC {
		t.Fatalf("periodic boundary flags not propagated: %v", res.Structure.PBC)
	}
	want := 1.4 * structure.BohrToAngstrom
	if math.Abs(res.Structure.Positions[1][2]-want) > 1e-9 {
		t.Fatalf("coordinates not converted: %v", res.Structure.Positions[1])
	}
}

func TestParseCollectsCubeAndFCIDumpArtifacts(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		pyscf.FilenameStdout:     "output",
		pyscf.FilenameResults:    `{"is_converged": true}`,
		"mo_3.cube":              "cube data",
		"density.cube":           "cube data",
		"active_space_0.fcidump": "fcidump data",
	})
	res, out := Parse(dir, inputStructure(), 0)
	if !out.OK {
		t.Fatalf("expected success, got %+v", out)
	}
	if len(res.Cubegen) != 2 {
		t.Fatalf("cubegen artifacts = %v, want mo_3 and density", res.Cubegen)
	}
	if _, ok := res.Cubegen["mo_3"]; !ok {
		t.Fatalf("missing mo_3 artifact: %v", res.Cubegen)
	}
	if _, ok := res.FCIDump["active_space_0"]; !ok {
		t.Fatalf("missing fcidump artifact: %v", res.FCIDump)
	}
}
