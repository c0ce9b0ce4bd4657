package gsolve

import (
	"fmt"

	"github.com/gsnk/gsnk/pkg/grid"
	"gonum.org/v1/gonum/linsolve"
	"gonum.org/v1/gonum/mat"
)

// innerSolver wraps the matrix-free Delta* operator and a GMRES method,
// solving Delta*psi = rhs with prescribed Dirichlet boundary values on a
// fixed grid. Constructed once per grid and reused across every outer
// Newton-Krylov correction, the way the teacher's inverse-operator cache is
// built once and reused across Stamp calls.
type innerSolver struct {
	g       *grid.Grid
	op      *deltaStarOperator
	initX   *mat.VecDense
}

func newInnerSolver(g *grid.Grid) *innerSolver {
	op := newDeltaStarOperator(g)
	return &innerSolver{g: g, op: op, initX: mat.NewVecDense(op.n(), nil)}
}

// Solve returns the full-grid psi field satisfying Delta*psi = rhsFull on
// the interior and psi = psiDirichlet on the boundary. rhsFull is sampled
// only at interior points; psiDirichlet supplies the boundary values (zero
// elsewhere).
func (s *innerSolver) Solve(rhsFull, psiDirichlet []float64) ([]float64, error) {
	n := s.op.n()
	b := mat.NewVecDense(n, nil)
	boundaryContrib := s.op.boundaryContribution(psiDirichlet)
	for idx, k := range s.op.interior {
		b.SetVec(idx, rhsFull[k]-boundaryContrib[idx])
	}

	method := &linsolve.GMRES{}
	settings := linsolve.Settings{
		InitX: s.initX,
		Dst:   mat.NewVecDense(n, nil),
		Work:  linsolve.NewContext(n),
		Tolerance: 1e-12,
	}
	result, err := linsolve.Iterative(s.op, b, method, &settings)
	if err != nil {
		return nil, fmt.Errorf("gsolve: inner linear solve failed: %v", err)
	}
	s.initX.CopyVec(result.X)

	out := make([]float64, s.g.N())
	copy(out, psiDirichlet)
	for idx, k := range s.op.interior {
		out[k] = result.X.AtVec(idx)
	}
	return out, nil
}
