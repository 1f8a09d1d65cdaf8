package structure

import (
	"fmt"
	"strings"
)

// Structure is a molecular geometry: element symbols with Cartesian
// coordinates in angstrom, plus the periodic boundary flags of the cell.
type Structure struct {
	Symbols   []string     `json:"symbols"`
	Positions [][3]float64 `json:"positions"`
	PBC       [3]bool      `json:"pbc"`
}

func (s *Structure) NumAtoms() int {
	if s == nil {
		return 0
	}
	return len(s.Symbols)
}

func (s *Structure) Clone() *Structure {
	if s == nil {
		return nil
	}
	out := &Structure{
		Symbols:   make([]string, len(s.Symbols)),
		Positions: make([][3]float64, len(s.Positions)),
		PBC:       s.PBC,
	}
	copy(out.Symbols, s.Symbols)
	copy(out.Positions, s.Positions)
	return out
}

func (s *Structure) Validate() error {
	if s == nil {
		return fmt.Errorf("structure is nil")
	}
	if len(s.Symbols) == 0 {
		return fmt.Errorf("structure has no atoms")
	}
	if len(s.Symbols) != len(s.Positions) {
		return fmt.Errorf("structure has %d symbols but %d positions", len(s.Symbols), len(s.Positions))
	}
	for i, sym := range s.Symbols {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("structure atom %d has an empty symbol", i)
		}
	}
	return nil
}

// XYZBody renders the structure as the body of an XYZ file, without the
// atom-count and comment header lines. This is the block the calculation
// script template splices into the PySCF atom specification.
func (s *Structure) XYZBody() string {
	var b strings.Builder
	for i, sym := range s.Symbols {
		p := s.Positions[i]
		fmt.Fprintf(&b, "%-3s %20.12f %20.12f %20.12f", sym, p[0], p[1], p[2])
		if i < len(s.Symbols)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Trajectory is an ordered list of geometry frames sharing one symbol list,
// as produced by a geometry optimizer. Coordinates are in angstrom.
type Trajectory struct {
	Symbols []string       `json:"symbols"`
	Frames  [][][3]float64 `json:"frames"`
}

func (t *Trajectory) NumFrames() int {
	if t == nil {
		return 0
	}
	return len(t.Frames)
}

// LastFrame promotes the final frame of the trajectory to a standalone
// structure. The returned structure carries no periodic boundary flags; the
// caller is expected to copy them from the geometry the optimization started
// from.
func (t *Trajectory) LastFrame() (*Structure, bool) {
	if t == nil || len(t.Frames) == 0 {
		return nil, false
	}
	last := t.Frames[len(t.Frames)-1]
	out := &Structure{
		Symbols:   make([]string, len(t.Symbols)),
		Positions: make([][3]float64, len(last)),
	}
	copy(out.Symbols, t.Symbols)
	copy(out.Positions, last)
	return out, true
}
