package structure

// Conversion factors between the atomic units PySCF reports in and the SI-ish
// units surfaced to callers (CODATA 2018).
const (
	BohrToAngstrom = 0.529177210903
	HartreeToEV    = 27.211386245988

	// Forces come back as hartree/bohr and are surfaced as eV/angstrom.
	HartreePerBohrToEVPerAngstrom = HartreeToEV / BohrToAngstrom
)

func EnergiesToEV(hartree []float64) []float64 {
	out := make([]float64, len(hartree))
	for i, v := range hartree {
		out[i] = v * HartreeToEV
	}
	return out
}

func PositionsToAngstrom(bohr [][3]float64) [][3]float64 {
	out := make([][3]float64, len(bohr))
	for i, p := range bohr {
		for k := 0; k < 3; k++ {
			out[i][k] = p[k] * BohrToAngstrom
		}
	}
	return out
}

func ForcesToEVPerAngstrom(hartreePerBohr [][3]float64) [][3]float64 {
	out := make([][3]float64, len(hartreePerBohr))
	for i, f := range hartreePerBohr {
		for k := 0; k < 3; k++ {
			out[i][k] = f[k] * HartreePerBohrToEVPerAngstrom
		}
	}
	return out
}
