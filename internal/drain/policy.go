package drain

import "github.com/ntBre/psqs/internal/program"

// Policy folds a successful result into the destination and picks the
// procedure the inputs are written for.
type Policy[T any] interface {
	Procedure() program.Procedure
	SetResult(dst []T, index int, coeff float64, res *program.Result)
}

// Single sums coefficient-weighted single-point energies.
type Single struct{}

func (Single) Procedure() program.Procedure { return program.SinglePt }

func (Single) SetResult(dst []float64, index int, coeff float64, res *program.Result) {
	dst[index] += coeff * res.Energy
}

// Opt stores the optimized geometry.
type Opt struct{}

func (Opt) Procedure() program.Procedure { return program.Opt }

func (Opt) SetResult(dst []program.Geom, index int, _ float64, res *program.Result) {
	if res.Geom != nil {
		dst[index] = *res.Geom
	}
}

// Both stores the whole result of an optimization.
type Both struct{}

func (Both) Procedure() program.Procedure { return program.Opt }

func (Both) SetResult(dst []program.Result, index int, _ float64, res *program.Result) {
	dst[index] = *res
}
