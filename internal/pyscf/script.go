package pyscf

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/scfchain/scfchain/internal/structure"
)

// ScriptInput bundles everything the script template needs. Restart is true
// when a checkpoint from a previous attempt was staged as FilenameRestart.
type ScriptInput struct {
	Structure  *structure.Structure
	Parameters *Parameters
	Restart    bool
}

// RenderScript produces the PySCF input script for one attempt.
func RenderScript(in ScriptInput) (string, error) {
	if err := in.Structure.Validate(); err != nil {
		return "", fmt.Errorf("invalid structure: %w", err)
	}
	if err := in.Parameters.Validate(); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}

	data := map[string]any{
		"xyz":                in.Structure.XYZBody(),
		"charge":             in.Parameters.Charge,
		"spin":               in.Parameters.Spin,
		"basis":              in.Parameters.MeanField.Basis,
		"method":             in.Parameters.MeanField.Method,
		"xc":                 in.Parameters.MeanField.XC,
		"optimizer":          in.Parameters.Optimizer,
		"cubegen":            in.Parameters.Cubegen,
		"fcidump":            in.Parameters.FCIDump,
		"restart":            in.Restart,
		"filenameResults":    FilenameResults,
		"filenameCheckpoint": FilenameCheckpoint,
		"filenameRestart":    FilenameRestart,
	}

	var b strings.Builder
	if err := scriptTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render script: %w", err)
	}
	return b.String(), nil
}

var scriptTemplate = template.Must(template.New("script.py").Funcs(template.FuncMap{
	"py": pyLiteral,
}).Parse(`#!/usr/bin/env python
import json

import numpy as np
from pyscf import gto, scf
{{- if .optimizer}}
from pyscf.geomopt.{{.optimizer.Solver}}_solver import optimize
{{- end}}
{{- if .cubegen}}
from pyscf.tools import cubegen
{{- end}}
{{- if .fcidump}}
from pyscf.tools import fcidump
{{- end}}

results = {}

molecule = gto.M(
    atom="""
{{.xyz}}
""",
{{- if .basis}}
    basis={{py .basis}},
{{- end}}
    charge={{.charge}},
    spin={{.spin}},
    unit='angstrom',
)

mean_field = scf.{{.method}}(molecule)
mean_field.chkfile = {{py .filenameCheckpoint}}
{{- if .xc}}
mean_field.xc = {{py .xc}}
{{- end}}
{{- if .restart}}
mean_field.init_guess = 'chkfile'
mean_field.__dict__.update(scf.chkfile.load({{py .filenameRestart}}, 'scf'))
{{- end}}

{{- if .optimizer}}

optimized = optimize(mean_field{{if .optimizer.MaxSteps}}, maxsteps={{.optimizer.MaxSteps}}{{end}})
results['optimized_coordinates'] = optimized.atom_coords().tolist()
mean_field.mol = optimized
{{- end}}

mean_field.kernel()
results['total_energy'] = mean_field.e_tot
results['is_converged'] = bool(mean_field.converged)
results['molecular_orbitals'] = {
    'energies': mean_field.mo_energy.tolist(),
    'labels': molecule.ao_labels(),
}
results['forces'] = mean_field.nuc_grad_method().kernel().tolist()

{{- if .cubegen}}
{{- if .cubegen.Orbitals}}

for index in {{py .cubegen.Orbitals.Indices}}:
    cubegen.orbital(molecule, f'mo_{index}.cube', mean_field.mo_coeff[:, index])
{{- end}}
{{- if .cubegen.Density}}
cubegen.density(molecule, 'density.cube', mean_field.make_rdm1())
{{- end}}
{{- if .cubegen.MEP}}
cubegen.mep(molecule, 'mep.cube', mean_field.make_rdm1())
{{- end}}
{{- end}}

{{- if .fcidump}}

active_spaces = np.array({{py .fcidump.ActiveSpaces}})
occupations = np.array({{py .fcidump.Occupations}})
for i, space in enumerate(active_spaces):
    fcidump.from_mo(molecule, f'active_space_{i}.fcidump', mean_field.mo_coeff[:, space - 1])
{{- end}}

with open({{py .filenameResults}}, 'w') as handle:
    json.dump(results, handle)
`))

// pyLiteral renders a Go value the way it would be written in a Python
// script: strings keep their quotes, slices become list literals.
func pyLiteral(value any) string {
	switch v := value.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "\\'") + "'"
	case []int:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = fmt.Sprintf("%d", n)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case [][]int:
		parts := make([]string, len(v))
		for i, row := range v {
			parts[i] = pyLiteral(row)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case bool:
		if v {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprintf("%v", v)
	}
}
