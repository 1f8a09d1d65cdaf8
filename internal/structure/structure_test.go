package structure

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func water() *Structure {
	return &Structure{
		Symbols:   []string{"O", "H", "H"},
		Positions: [][3]float64{{0, 0, 0}, {0, 0, 0.96}, {0.93, 0, -0.26}},
		PBC:       [3]bool{true, false, false},
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := water()
	c := s.Clone()
	c.Symbols[0] = "N"
	c.Positions[0][2] = 42
	if s.Symbols[0] != "O" || s.Positions[0][2] != 0 {
		t.Fatalf("clone mutated the original")
	}
	if diff := cmp.Diff(water(), s); diff != "" {
		t.Fatalf("original changed (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		s       *Structure
		wantErr bool
	}{
		{"ok", water(), false},
		{"nil", nil, true},
		{"empty", &Structure{}, true},
		{"mismatched", &Structure{Symbols: []string{"H"}, Positions: nil}, true},
		{"blank symbol", &Structure{Symbols: []string{" "}, Positions: [][3]float64{{0, 0, 0}}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestXYZBody(t *testing.T) {
	body := water().XYZBody()
	lines := strings.Split(body, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), body)
	}
	if !strings.HasPrefix(lines[0], "O") || !strings.HasPrefix(lines[1], "H") {
		t.Fatalf("unexpected layout:\n%s", body)
	}
	if strings.Contains(body, "\n\n") || strings.HasSuffix(body, "\n") {
		t.Fatalf("body must have no blank or trailing lines:\n%q", body)
	}
}

func TestTrajectoryLastFrame(t *testing.T) {
	traj := &Trajectory{
		Symbols: []string{"H", "H"},
		Frames: [][][3]float64{
			{{0, 0, 0}, {0, 0, 0.7}},
			{{0, 0, 0}, {0, 0, 0.74}},
		},
	}
	got, ok := traj.LastFrame()
	if !ok {
		t.Fatalf("expected a frame")
	}
	want := &Structure{Symbols: []string{"H", "H"}, Positions: [][3]float64{{0, 0, 0}, {0, 0, 0.74}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("last frame mismatch (-want +got):\n%s", diff)
	}

	if _, ok := (&Trajectory{}).LastFrame(); ok {
		t.Fatalf("empty trajectory must not yield a frame")
	}
	var nilTraj *Trajectory
	if nilTraj.NumFrames() != 0 {
		t.Fatalf("nil trajectory has frames")
	}
}

func TestUnitConversions(t *testing.T) {
	approx := func(got, want float64) bool {
		return math.Abs(got-want) < 1e-9
	}
	if got := EnergiesToEV([]float64{1})[0]; !approx(got, HartreeToEV) {
		t.Fatalf("1 hartree = %v eV, want %v", got, HartreeToEV)
	}
	if got := PositionsToAngstrom([][3]float64{{1, 0, 2}})[0]; !approx(got[0], BohrToAngstrom) || !approx(got[2], 2*BohrToAngstrom) {
		t.Fatalf("bohr conversion wrong: %v", got)
	}
	if got := ForcesToEVPerAngstrom([][3]float64{{1, 0, 0}})[0][0]; !approx(got, HartreeToEV/BohrToAngstrom) {
		t.Fatalf("force conversion wrong: %v", got)
	}
}
