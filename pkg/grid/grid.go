// Package grid defines the rectangular R,Z computational mesh and the
// axisymmetric free-space Green's function used to close the free-boundary
// Grad-Shafranov problem.
package grid

import (
	"fmt"
	"math"
)

// Grid is a rectangular (R,Z) mesh with nx*ny nodes, row-major in Z (rows)
// and column-major in R (columns): index(i,j) = i*nx+j for row i (Z), column
// j (R), matching the teacher's row-major device/matrix indexing convention.
type Grid struct {
	Rmin, Rmax float64
	Zmin, Zmax float64
	Nx, Ny     int

	dR, dZ float64

	r []float64 // length Nx, R(j)
	z []float64 // length Ny, Z(i)
}

// New builds a grid with Nx columns (R direction) and Ny rows (Z direction).
func New(rmin, rmax, zmin, zmax float64, nx, ny int) (*Grid, error) {
	if nx < 2 || ny < 2 {
		return nil, fmt.Errorf("grid: nx and ny must be >= 2, got nx=%d ny=%d", nx, ny)
	}
	if rmax <= rmin || zmax <= zmin {
		return nil, fmt.Errorf("grid: invalid bounds R=[%g,%g] Z=[%g,%g]", rmin, rmax, zmin, zmax)
	}
	if rmin <= 0 {
		return nil, fmt.Errorf("grid: Rmin must be > 0 (axisymmetric geometry), got %g", rmin)
	}

	g := &Grid{Rmin: rmin, Rmax: rmax, Zmin: zmin, Zmax: zmax, Nx: nx, Ny: ny}
	g.dR = (rmax - rmin) / float64(nx-1)
	g.dZ = (zmax - zmin) / float64(ny-1)

	g.r = make([]float64, nx)
	for j := 0; j < nx; j++ {
		g.r[j] = rmin + float64(j)*g.dR
	}
	g.z = make([]float64, ny)
	for i := 0; i < ny; i++ {
		g.z[i] = zmin + float64(i)*g.dZ
	}
	return g, nil
}

// DRDZ is the area element of a single grid cell.
func (g *Grid) DRDZ() float64 { return g.dR * g.dZ }

// DR returns the R grid spacing.
func (g *Grid) DR() float64 { return g.dR }

// DZ returns the Z grid spacing.
func (g *Grid) DZ() float64 { return g.dZ }

// DRDZ2 returns (dR^2, dZ^2), convenient for finite-difference stencils.
func (g *Grid) DRDZ2() (dR2, dZ2 float64) { return g.dR * g.dR, g.dZ * g.dZ }

// N is the total number of grid points.
func (g *Grid) N() int { return g.Nx * g.Ny }

// Index maps a (row i, column j) pair to the flat vector index.
func (g *Grid) Index(i, j int) int { return i*g.Nx + j }

// RZ returns the physical coordinates of flat index k.
func (g *Grid) RZ(k int) (r, z float64) {
	i := k / g.Nx
	j := k % g.Nx
	return g.r[j], g.z[i]
}

// R returns R at column j.
func (g *Grid) R(j int) float64 { return g.r[j] }

// Z returns Z at row i.
func (g *Grid) Z(i int) float64 { return g.z[i] }

// OnBoundary reports whether flat index k lies on the rectangle's edge.
func (g *Grid) OnBoundary(k int) bool {
	i := k / g.Nx
	j := k % g.Nx
	return i == 0 || i == g.Ny-1 || j == 0 || j == g.Nx-1
}

// BoundaryIndices lists every flat index on the rectangle's edge, in the
// order the outer loop visits them (bottom and top rows, interleaved column
// by column, then left/right columns excluding corners already listed).
func (g *Grid) BoundaryIndices() []int {
	var idx []int
	for j := 0; j < g.Nx; j++ {
		idx = append(idx, g.Index(0, j))
		idx = append(idx, g.Index(g.Ny-1, j))
	}
	for i := 1; i < g.Ny-1; i++ {
		idx = append(idx, g.Index(i, 0))
		idx = append(idx, g.Index(i, g.Nx-1))
	}
	return idx
}

// GreensFilament returns the mutual flux per unit current between two
// coaxial circular filaments at (r1,z1) and (r2,z2): the axisymmetric
// vacuum Green's function for the Grad-Shafranov operator, expressed through
// complete elliptic integrals of the first and second kind (Abramowitz &
// Stegun polynomial approximations, accurate to ~2e-8 absolute error).
func GreensFilament(r1, z1, r2, z2 float64) float64 {
	const mu0 = 1.25663706212e-6

	dz := z1 - z2
	k2 := 4 * r1 * r2 / ((r1+r2)*(r1+r2) + dz*dz)
	if k2 > 1 {
		k2 = 1
	}
	if k2 < 0 {
		k2 = 0
	}

	ek, kk := ellipke(k2)

	// Mutual inductance of two coaxial circular filaments (Maxwell's
	// formula), already in flux-per-unit-current units (Wb/A):
	//   G = mu0 * sqrt(r1*r2) * [ (2/k - k) K(k) - (2/k) E(k) ]
	k := math.Sqrt(k2)
	return mu0 * math.Sqrt(r1*r2) * ((2.0/k-k)*kk - (2.0/k)*ek)
}

// ellipke returns (E(k2), K(k2)), the complete elliptic integrals of the
// second and first kind respectively, as functions of the parameter m=k2, via the
// Abramowitz & Stegun polynomial approximations (17.3.34/17.3.36).
func ellipke(m float64) (e, k float64) {
	m1 := 1 - m

	const (
		a0, a1, a2, a3, a4 = 1.38629436112, 0.09666344259, 0.03590092383, 0.03742563713, 0.01451196212
		b0, b1, b2, b3, b4 = 0.5, 0.12498593597, 0.06880248576, 0.03328355346, 0.00441787012
	)
	k = a0 + m1*(a1+m1*(a2+m1*(a3+m1*a4))) +
		(b0+m1*(b1+m1*(b2+m1*(b3+m1*b4))))*-math.Log(m1+1e-300)

	const (
		c1, c2, c3, c4 = 0.44325141463, 0.06260601220, 0.04757383546, 0.01736506451
		d1, d2, d3, d4 = 0.24998368310, 0.09200180037, 0.04069697526, 0.00526449639
	)
	e = 1 + m1*(c1+m1*(c2+m1*(c3+m1*c4))) +
		m1*(d1+m1*(d2+m1*(d3+m1*d4)))*-math.Log(m1+1e-300)

	if m >= 1 {
		return 1, math.Inf(1)
	}
	return e, k
}
