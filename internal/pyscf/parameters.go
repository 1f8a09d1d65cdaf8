// Package pyscf renders PySCF calculation scripts and validates their input
// parameters. The rendered script is self-contained: it builds the molecule,
// runs the requested mean-field method and optional geometry optimization,
// and dumps a results JSON document next to its stdout.
package pyscf

import (
	"fmt"
	"strings"
)

// Reserved filenames inside an attempt's working directory.
const (
	FilenameScript     = "script.py"
	FilenameStdout     = "aiida.out"
	FilenameResults    = "results.json"
	FilenameCheckpoint = "checkpoint.chk"
	FilenameRestart    = "restart.chk"
)

var validMethods = []string{"RKS", "RHF", "DKS", "DHF", "GKS", "GHF", "HF", "KS", "ROHF", "ROKS", "UKS", "UHF"}

var validSolvers = []string{"geometric", "berny"}

type MeanField struct {
	Method string `yaml:"method" json:"method"`
	Basis  string `yaml:"basis,omitempty" json:"basis,omitempty"`
	XC     string `yaml:"xc,omitempty" json:"xc,omitempty"`
}

type Optimizer struct {
	Solver   string `yaml:"solver" json:"solver"`
	MaxSteps int    `yaml:"max_steps,omitempty" json:"max_steps,omitempty"`
}

type CubegenOrbitals struct {
	Indices []int `yaml:"indices" json:"indices"`
}

type Cubegen struct {
	Orbitals *CubegenOrbitals `yaml:"orbitals,omitempty" json:"orbitals,omitempty"`
	Density  bool             `yaml:"density,omitempty" json:"density,omitempty"`
	MEP      bool             `yaml:"mep,omitempty" json:"mep,omitempty"`
}

type FCIDump struct {
	ActiveSpaces [][]int `yaml:"active_spaces" json:"active_spaces"`
	Occupations  [][]int `yaml:"occupations" json:"occupations"`
}

// Parameters are the inputs used to render the calculation script. The
// checkpoint file name is not configurable: it is injected by the work chain
// when a restart checkpoint is carried into the attempt.
type Parameters struct {
	Charge    int        `yaml:"charge,omitempty" json:"charge,omitempty"`
	Spin      int        `yaml:"spin,omitempty" json:"spin,omitempty"`
	MeanField MeanField  `yaml:"mean_field" json:"mean_field"`
	Optimizer *Optimizer `yaml:"optimizer,omitempty" json:"optimizer,omitempty"`
	Cubegen   *Cubegen   `yaml:"cubegen,omitempty" json:"cubegen,omitempty"`
	FCIDump   *FCIDump   `yaml:"fcidump,omitempty" json:"fcidump,omitempty"`
}

func (p *Parameters) Validate() error {
	if p == nil {
		return fmt.Errorf("parameters are nil")
	}

	options := strings.Join(validMethods, " ")
	method := strings.TrimSpace(p.MeanField.Method)
	if method == "" {
		return fmt.Errorf("the mean_field.method has to be specified, choose from: %s", options)
	}
	if !contains(validMethods, method) {
		return fmt.Errorf("specified mean field method %s is not supported, choose from: %s", method, options)
	}

	if p.Optimizer != nil {
		solver := strings.ToLower(strings.TrimSpace(p.Optimizer.Solver))
		if solver == "" {
			return fmt.Errorf("no solver specified in optimizer parameters, choose from: %s", strings.Join(validSolvers, " "))
		}
		if !contains(validSolvers, solver) {
			return fmt.Errorf("invalid solver %q specified in optimizer parameters, choose from: %s", p.Optimizer.Solver, strings.Join(validSolvers, " "))
		}
		if p.Optimizer.MaxSteps < 0 {
			return fmt.Errorf("optimizer.max_steps must be >= 0")
		}
	}

	if p.Cubegen != nil && p.Cubegen.Orbitals != nil && len(p.Cubegen.Orbitals.Indices) == 0 {
		return fmt.Errorf("if cubegen.orbitals is specified, cubegen.orbitals.indices has to define a list of indices")
	}

	if p.FCIDump != nil {
		if err := validateOrbitalLists("fcidump.active_spaces", p.FCIDump.ActiveSpaces); err != nil {
			return err
		}
		if err := validateOrbitalLists("fcidump.occupations", p.FCIDump.Occupations); err != nil {
			return err
		}
		if !sameShape(p.FCIDump.ActiveSpaces, p.FCIDump.Occupations) {
			return fmt.Errorf("the fcidump.active_spaces and fcidump.occupations arrays have different shapes")
		}
	}

	return nil
}

// validateOrbitalLists requires a rectangular nested list of orbital indices.
func validateOrbitalLists(key string, lists [][]int) error {
	if len(lists) == 0 {
		return fmt.Errorf("the %s should be a non-empty nested list of integers", key)
	}
	width := len(lists[0])
	for _, row := range lists {
		if len(row) == 0 || len(row) != width {
			return fmt.Errorf("the %s should be a rectangular nested list of integers", key)
		}
	}
	return nil
}

func sameShape(a, b [][]int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
