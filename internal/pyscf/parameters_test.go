package pyscf

import (
	"strings"
	"testing"
)

func validParameters() *Parameters {
	return &Parameters{
		MeanField: MeanField{Method: "RHF", Basis: "sto-3g"},
	}
}

func TestValidateParameters(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Parameters)
		wantErr string
	}{
		{
			name:   "valid minimal",
			mutate: func(*Parameters) {},
		},
		{
			name:    "missing method",
			mutate:  func(p *Parameters) { p.MeanField.Method = "" },
			wantErr: "mean_field.method",
		},
		{
			name:    "unsupported method",
			mutate:  func(p *Parameters) { p.MeanField.Method = "CCSD" },
			wantErr: "not supported",
		},
		{
			name:   "valid optimizer",
			mutate: func(p *Parameters) { p.Optimizer = &Optimizer{Solver: "geometric"} },
		},
		{
			name:    "optimizer without solver",
			mutate:  func(p *Parameters) { p.Optimizer = &Optimizer{} },
			wantErr: "no solver specified",
		},
		{
			name:    "invalid solver",
			mutate:  func(p *Parameters) { p.Optimizer = &Optimizer{Solver: "newton"} },
			wantErr: "invalid solver",
		},
		{
			name:    "cubegen orbitals without indices",
			mutate:  func(p *Parameters) { p.Cubegen = &Cubegen{Orbitals: &CubegenOrbitals{}} },
			wantErr: "cubegen.orbitals.indices",
		},
		{
			name: "fcidump shape mismatch",
			mutate: func(p *Parameters) {
				p.FCIDump = &FCIDump{
					ActiveSpaces: [][]int{{1, 2}},
					Occupations:  [][]int{{1, 2, 3}},
				}
			},
			wantErr: "different shapes",
		},
		{
			name: "fcidump ragged rows",
			mutate: func(p *Parameters) {
				p.FCIDump = &FCIDump{
					ActiveSpaces: [][]int{{1, 2}, {3}},
					Occupations:  [][]int{{1, 2}, {3}},
				}
			},
			wantErr: "rectangular",
		},
		{
			name: "valid fcidump",
			mutate: func(p *Parameters) {
				p.FCIDump = &FCIDump{
					ActiveSpaces: [][]int{{5, 6}, {5, 7}},
					Occupations:  [][]int{{2, 0}, {2, 0}},
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validParameters()
			tc.mutate(p)
			err := p.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}
