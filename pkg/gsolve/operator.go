package gsolve

import (
	"github.com/gsnk/gsnk/pkg/grid"
	"gonum.org/v1/gonum/mat"
)

// deltaStarOperator is the matrix-free Grad-Shafranov elliptic operator
// Delta* restricted to the grid's interior points, exposed through gonum's
// MulVecToer interface so linsolve.GMRES never needs an explicit
// nx*ny-square matrix. The operator is not symmetric (the 1/R first
// derivative term breaks symmetry), which is why GMRES rather than CG is
// used for the inner solve.
type deltaStarOperator struct {
	g        *grid.Grid
	interior []int // flat grid index for each interior unknown
	indexOf  map[int]int
}

func newDeltaStarOperator(g *grid.Grid) *deltaStarOperator {
	op := &deltaStarOperator{g: g, indexOf: make(map[int]int)}
	for i := 1; i < g.Ny-1; i++ {
		for j := 1; j < g.Nx-1; j++ {
			k := g.Index(i, j)
			op.indexOf[k] = len(op.interior)
			op.interior = append(op.interior, k)
		}
	}
	return op
}

func (op *deltaStarOperator) n() int { return len(op.interior) }

// stencil returns the centre and four neighbour coefficients used when
// computing Delta*psi at interior point (i,j), with R=R_j, using the
// standard 5-point discretisation:
//
//	Delta*psi_ij = (psi_{i,j+1}-2psi_ij+psi_{i,j-1})/dR^2
//	             - (psi_{i,j+1}-psi_{i,j-1})/(2*R_j*dR)
//	             + (psi_{i+1,j}-2psi_ij+psi_{i-1,j})/dZ^2
func (op *deltaStarOperator) stencil(i, j int) (center, east, west, north, south float64) {
	dR2, dZ2 := op.g.DRDZ2()
	r := op.g.R(j)
	east = 1/dR2 - 1/(2*r*op.g.DR())
	west = 1/dR2 + 1/(2*r*op.g.DR())
	north = 1 / dZ2
	south = 1 / dZ2
	center = -2/dR2 - 2/dZ2
	return center, east, west, north, south
}

// MulVecTo implements gonum/linsolve's MulVecToer interface over the
// interior unknown vector.
func (op *deltaStarOperator) MulVecTo(dst *mat.VecDense, _ bool, x mat.Vector) {
	n := op.n()
	for idx := 0; idx < n; idx++ {
		k := op.interior[idx]
		i, j := k/op.g.Nx, k%op.g.Nx
		center, east, west, north, south := op.stencil(i, j)

		val := center * x.AtVec(idx)
		if jj, ok := op.indexOf[op.g.Index(i, j+1)]; ok {
			val += east * x.AtVec(jj)
		}
		if jj, ok := op.indexOf[op.g.Index(i, j-1)]; ok {
			val += west * x.AtVec(jj)
		}
		if jj, ok := op.indexOf[op.g.Index(i+1, j)]; ok {
			val += north * x.AtVec(jj)
		}
		if jj, ok := op.indexOf[op.g.Index(i-1, j)]; ok {
			val += south * x.AtVec(jj)
		}
		dst.SetVec(idx, val)
	}
}

// boundaryContribution returns, for each interior unknown, the stencil
// contribution from neighbouring grid points that lie ON the boundary
// (Dirichlet data), to be moved to the right-hand side:
// rhs_idx -= sum_{k in boundary neighbours} coeff_k * psiDirichlet[k].
func (op *deltaStarOperator) boundaryContribution(psiDirichlet []float64) []float64 {
	n := op.n()
	out := make([]float64, n)
	for idx := 0; idx < n; idx++ {
		k := op.interior[idx]
		i, j := k/op.g.Nx, k%op.g.Nx
		_, east, west, north, south := op.stencil(i, j)

		if kk := op.g.Index(i, j+1); op.g.OnBoundary(kk) {
			out[idx] += east * psiDirichlet[kk]
		}
		if kk := op.g.Index(i, j-1); op.g.OnBoundary(kk) {
			out[idx] += west * psiDirichlet[kk]
		}
		if kk := op.g.Index(i+1, j); op.g.OnBoundary(kk) {
			out[idx] += north * psiDirichlet[kk]
		}
		if kk := op.g.Index(i-1, j); op.g.OnBoundary(kk) {
			out[idx] += south * psiDirichlet[kk]
		}
	}
	return out
}
