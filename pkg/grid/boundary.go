package grid

import "gonum.org/v1/gonum/mat"

// BoundaryResponse is the precomputed Green's-function response matrix used
// to close the free-boundary problem: row b holds G(R_b,Z_b;R_ij,Z_ij)*dRdZ
// for every grid point ij (boundary points included), with the self-entry (b==ij) zeroed to
// avoid the coincident-filament singularity. ψ_b = BoundaryResponse * Jtor
// gives the Dirichlet boundary flux produced by a toroidal current density
// Jtor sampled on the full grid.
type BoundaryResponse struct {
	g        *Grid
	boundary []int
	rows     *mat.Dense // len(boundary) x N
}

// NewBoundaryResponse builds the response matrix once for a grid; it depends
// only on grid geometry so callers construct it a single time and reuse it
// for every Grad-Shafranov solve on that grid.
func NewBoundaryResponse(g *Grid) *BoundaryResponse {
	boundary := g.BoundaryIndices()
	n := g.N()
	rows := mat.NewDense(len(boundary), n, nil)

	dRdZ := g.DRDZ()
	for bi, b := range boundary {
		rb, zb := g.RZ(b)
		for k := 0; k < n; k++ {
			if k == b {
				continue
			}
			rk, zk := g.RZ(k)
			rows.Set(bi, k, GreensFilament(rb, zb, rk, zk)*dRdZ)
		}
	}
	return &BoundaryResponse{g: g, boundary: boundary, rows: rows}
}

// BoundaryIndices returns the flat grid indices the response matrix covers,
// in row order.
func (b *BoundaryResponse) BoundaryIndices() []int { return b.boundary }

// Apply computes ψ_b = rows * jtor restricted to the boundary nodes and
// scatters the result into a full-length (N) Dirichlet vector, zero
// elsewhere; this is the shape the inner linear solver expects its boundary
// data in.
func (b *BoundaryResponse) Apply(jtor []float64) []float64 {
	jv := mat.NewVecDense(len(jtor), jtor)
	var psiB mat.VecDense
	psiB.MulVec(b.rows, jv)

	out := make([]float64, b.g.N())
	for i, idx := range b.boundary {
		out[idx] = psiB.AtVec(i)
	}
	return out
}
