// Package limiter computes the boolean "inside limiter" mask, the reduced
// plasma-domain point list, and decides whether a candidate equilibrium is
// diverted (last-closed-flux-surface bound) or limiter-bound (material
// contact), following the core_mask_limiter algorithm.
package limiter

import (
	"math"

	"github.com/gsnk/gsnk/pkg/grid"
)

// Polygon is a closed 2-D contour in (R,Z), vertex list not repeating the
// first point at the end.
type Polygon struct {
	R, Z []float64
}

// Contains reports whether (r,z) is inside the polygon via the standard
// ray-casting parity test.
func (p Polygon) Contains(r, z float64) bool {
	n := len(p.R)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		ri, zi := p.R[i], p.Z[i]
		rj, zj := p.R[j], p.Z[j]
		if (zi > z) != (zj > z) {
			rIntersect := ri + (z-zi)/(zj-zi)*(rj-ri)
			if r < rIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// Mask holds the precomputed "inside limiter" boolean field and the
// corresponding flat plasma-domain index list.
type Mask struct {
	Grid       *grid.Grid
	Inside     []bool // length Grid.N(), true inside the limiter polygon
	PlasmaPts  []int  // flat indices where Inside is true
}

// Build precomputes mask_inside_limiter and plasma_pts for a polygon.
func Build(g *grid.Grid, poly Polygon) *Mask {
	inside := make([]bool, g.N())
	var pts []int
	for k := 0; k < g.N(); k++ {
		r, z := g.RZ(k)
		if poly.Contains(r, z) {
			inside[k] = true
			pts = append(pts, k)
		}
	}
	return &Mask{Grid: g, Inside: inside, PlasmaPts: pts}
}

// CoreResult is the outcome of core_mask_limiter: the effective plasma
// boundary flux, the core region mask (flat grid indices), and whether the
// configuration turned out to be limiter-bound.
type CoreResult struct {
	PsiBoundary float64
	Core        []bool
	LimiterFlag bool
}

// CoreMaskLimiter decides whether the plasma boundary is the diverted last
// closed flux surface or a limiter contact point.
//
//   - psi is the full-grid flux field (plasma + metal contributions).
//   - psiXptCandidate is the candidate diverted boundary flux (the
//     separatrix value found by the caller's critical-point search).
//   - divertedCore is the core mask implied by psiXptCandidate (every point
//     with psi on the plasma side of the separatrix, as the caller's
//     critical-point routine determines it).
//
// The limiter layer is the set of inside points with at least one grid
// neighbour outside the limiter (or off the grid).
// If divertedCore contains no point of the limiter layer, the configuration
// is diverted and the candidate is
// returned unchanged. Otherwise the limiter contact point is the maximum psi
// reachable from the magnetic axis by a connected region of {psi >=
// psi_layer_max}, where psi_layer_max is the largest psi on the limiter
// layer that still lies within divertedCore's connected extent.
func CoreMaskLimiter(m *Mask, psi []float64, axisIndex int, psiXptCandidate float64, divertedCore []bool) CoreResult {
	g := m.Grid
	layer := make([]bool, len(m.Inside))
	for _, idx := range m.PlasmaPts {
		i, j := idx/g.Nx, idx%g.Nx
		for _, n := range [][2]int{{i - 1, j}, {i + 1, j}, {i, j - 1}, {i, j + 1}} {
			if n[0] < 0 || n[0] >= g.Ny || n[1] < 0 || n[1] >= g.Nx || !m.Inside[g.Index(n[0], n[1])] {
				layer[idx] = true
				break
			}
		}
	}
	if !anyOverlap(divertedCore, layer) {
		return CoreResult{PsiBoundary: psiXptCandidate, Core: divertedCore, LimiterFlag: false}
	}

	psiLayerMax := math.Inf(-1)
	for _, idx := range m.PlasmaPts {
		if layer[idx] && divertedCore[idx] && psi[idx] > psiLayerMax {
			psiLayerMax = psi[idx]
		}
	}

	core := connectedRegion(m.Grid, psi, axisIndex, psiLayerMax)
	return CoreResult{PsiBoundary: psiLayerMax, Core: core, LimiterFlag: true}
}

// DivertedCore returns the connected region of {psi >= psiXptCandidate}
// reachable from the magnetic axis: the core mask implied by treating
// psiXptCandidate as the diverted separatrix flux, the divertedCore input
// CoreMaskLimiter expects from the caller's critical-point search.
func DivertedCore(g *grid.Grid, psi []float64, axisIndex int, psiXptCandidate float64) []bool {
	return connectedRegion(g, psi, axisIndex, psiXptCandidate)
}

func anyOverlap(a, b []bool) bool {
	for i := range a {
		if i < len(b) && a[i] && b[i] {
			return true
		}
	}
	return false
}

// connectedRegion flood-fills from axisIndex over grid neighbours whose
// psi >= threshold, mirroring "find the connected region of {psi>=
// psi_layer_max} containing the O-point".
func connectedRegion(g *grid.Grid, psi []float64, axisIndex int, threshold float64) []bool {
	visited := make([]bool, g.N())
	if psi[axisIndex] < threshold {
		return visited
	}
	stack := []int{axisIndex}
	visited[axisIndex] = true
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		i, j := k/g.Nx, k%g.Nx
		for _, n := range [][2]int{{i - 1, j}, {i + 1, j}, {i, j - 1}, {i, j + 1}} {
			ni, nj := n[0], n[1]
			if ni < 0 || ni >= g.Ny || nj < 0 || nj >= g.Nx {
				continue
			}
			nk := g.Index(ni, nj)
			if visited[nk] || psi[nk] < threshold {
				continue
			}
			visited[nk] = true
			stack = append(stack, nk)
		}
	}
	return visited
}
