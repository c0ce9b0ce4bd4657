package profile

import "github.com/gsnk/gsnk/pkg/grid"

// findCriticalPoints scans the interior of the grid for the magnetic axis
// (the local extremum nearest the grid centre, on the assumption that a
// well-formed equilibrium has a single core extremum) and, if one exists, a
// saddle point elsewhere in the domain (the X-point). This is a compact
// discrete stand-in for the reference implementation's contour-based
// critical-point search: adequate for deciding "is there an axis, is there
// a saddle", which is what the limiter handler and the outer solve loop
// need.
func findCriticalPoints(g *grid.Grid, psi []float64) CriticalPoints {
	axisIdx, axisIsMax := findCoreExtremum(g, psi)
	cp := CriticalPoints{AxisIndex: axisIdx}
	if axisIdx >= 0 {
		cp.AxisR, cp.AxisZ = g.RZ(axisIdx)
	}

	xIdx, ok := findSaddle(g, psi, axisIdx, axisIsMax)
	if ok {
		cp.HasXpoint = true
		cp.XpointIndex = xIdx
		cp.XpointR, cp.XpointZ = g.RZ(xIdx)
	}
	return cp
}

// findCoreExtremum returns the interior grid point closest to the domain
// centre that is a strict local extremum of psi among its four neighbours,
// and whether that extremum is a local maximum.
func findCoreExtremum(g *grid.Grid, psi []float64) (idx int, isMax bool) {
	cr := (g.R(0) + g.R(g.Nx-1)) / 2
	cz := (g.Z(0) + g.Z(g.Ny-1)) / 2

	best := -1
	bestDist := 0.0
	bestIsMax := false
	for i := 1; i < g.Ny-1; i++ {
		for j := 1; j < g.Nx-1; j++ {
			k := g.Index(i, j)
			v := psi[k]
			nbrs := neighbourValues(g, psi, i, j)
			localMax, localMin := true, true
			for _, nv := range nbrs {
				if nv >= v {
					localMax = false
				}
				if nv <= v {
					localMin = false
				}
			}
			if !localMax && !localMin {
				continue
			}
			r, z := g.RZ(k)
			d := (r-cr)*(r-cr) + (z-cz)*(z-cz)
			if best < 0 || d < bestDist {
				best, bestDist, bestIsMax = k, d, localMax
			}
		}
	}
	return best, bestIsMax
}

// findSaddle looks for a discrete saddle point: a point that is a local
// extremum along R but the opposite kind of extremum along Z, excluding the
// axis itself. Returns the first candidate found in a row-major scan of the
// interior (from the bottom-left corner); ok is false if none exists (e.g. fully diverted-free vacuum field).
func findSaddle(g *grid.Grid, psi []float64, axisIdx int, axisIsMax bool) (int, bool) {
	if axisIdx < 0 {
		return 0, false
	}
	for i := 1; i < g.Ny-1; i++ {
		for j := 1; j < g.Nx-1; j++ {
			k := g.Index(i, j)
			if k == axisIdx {
				continue
			}
			v := psi[k]
			left, right := psi[g.Index(i, j-1)], psi[g.Index(i, j+1)]
			down, up := psi[g.Index(i-1, j)], psi[g.Index(i+1, j)]

			rExtreme := (v-left)*(v-right) > 0
			zExtreme := (v-down)*(v-up) > 0
			if rExtreme && zExtreme && sign(v-left) != sign(v-down) {
				return k, true
			}
		}
	}
	return 0, false
}

func neighbourValues(g *grid.Grid, psi []float64, i, j int) []float64 {
	return []float64{
		psi[g.Index(i-1, j)],
		psi[g.Index(i+1, j)],
		psi[g.Index(i, j-1)],
		psi[g.Index(i, j+1)],
	}
}

func sign(x float64) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}
