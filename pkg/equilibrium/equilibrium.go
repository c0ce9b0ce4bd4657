// Package equilibrium holds the durable equilibrium state and the
// persisted-snapshot load/save contract, including the bicubic flux
// resample used when a snapshot's grid shape differs from the current one.
package equilibrium

import (
	"fmt"

	"github.com/gsnk/gsnk/pkg/grid"
	"github.com/gsnk/gsnk/pkg/profile"
	"gonum.org/v1/gonum/interp"
)

// State is the durable equilibrium: coil currents, plasma flux, total
// plasma current and critical points. Mutated only by the GS solver and the
// stepper's commit phase (never by scratch/trial computation).
type State struct {
	CoilCurrents map[string]float64
	PlasmaPsi    []float64 // full grid, length Grid.N()
	Ip           float64
	CP           profile.CriticalPoints
	LimiterFlag  bool

	Grid *grid.Grid

	dirty bool // replaces the source's lazy-spline cache invalidation check
}

// MarkDirty flags PlasmaPsi as freshly mutated; any cached spline derived
// from it must be rebuilt before reuse.
func (s *State) MarkDirty() { s.dirty = true }

// Dirty reports whether PlasmaPsi has changed since the last resample.
func (s *State) Dirty() bool { return s.dirty }

// Snapshot is the persisted-state wire format: {coil_currents, plasma_psi}.
type Snapshot struct {
	CoilCurrents map[string]float64
	PlasmaPsi    [][]float64 // row-major [Ny][Nx], may be on a different grid shape
	Rmin, Rmax   float64
	Zmin, Zmax   float64
}

// IncompatibleInitialEquilibriumError reports that the snapshot's active
// coil name set disagrees with the machine (warning-level: initialisation
// falls back to defaults rather than failing).
type IncompatibleInitialEquilibriumError struct {
	Missing, Extra []string
}

func (e *IncompatibleInitialEquilibriumError) Error() string {
	return fmt.Sprintf("equilibrium: snapshot active coil set disagrees with machine (missing=%v extra=%v)", e.Missing, e.Extra)
}

// Load builds a State from a snapshot on the current grid, validating that
// the snapshot's active coil names match activeNames (passive entries,
// prefixed "passive", are ignored for validation). If the snapshot's grid
// shape differs from g, the flux is bicubic-resampled, then multiplied by 2
// to avoid starting from a fragile GS-exact solution, per the persisted-
// state contract.
func Load(snap Snapshot, g *grid.Grid, activeNames []string) (*State, error) {
	if err := validateActiveNames(snap.CoilCurrents, activeNames); err != nil {
		return nil, err
	}

	var psi []float64
	srcNy := len(snap.PlasmaPsi)
	srcNx := 0
	if srcNy > 0 {
		srcNx = len(snap.PlasmaPsi[0])
	}
	if srcNy == g.Ny && srcNx == g.Nx {
		psi = flatten(snap.PlasmaPsi)
	} else {
		psi = resample(snap, g)
	}
	for i := range psi {
		psi[i] *= 2
	}

	return &State{CoilCurrents: copyMap(snap.CoilCurrents), PlasmaPsi: psi, Grid: g, dirty: true}, nil
}

func validateActiveNames(coilCurrents map[string]float64, activeNames []string) error {
	have := make(map[string]bool, len(coilCurrents))
	for name := range coilCurrents {
		if len(name) >= len("passive") && name[:len("passive")] == "passive" {
			continue
		}
		have[name] = true
	}
	want := make(map[string]bool, len(activeNames))
	for _, n := range activeNames {
		want[n] = true
	}

	var missing, extra []string
	for n := range want {
		if !have[n] {
			missing = append(missing, n)
		}
	}
	for n := range have {
		if !want[n] {
			extra = append(extra, n)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		return &IncompatibleInitialEquilibriumError{Missing: missing, Extra: extra}
	}
	return nil
}

func flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	nx := len(rows[0])
	out := make([]float64, len(rows)*nx)
	for i, row := range rows {
		copy(out[i*nx:(i+1)*nx], row)
	}
	return out
}

// resample bicubic-interpolates the snapshot's plasma flux (on its own
// Rmin/Rmax/Zmin/Zmax grid) onto g, via a tensor-product application of
// gonum's PiecewiseCubic spline along rows then columns.
func resample(snap Snapshot, g *grid.Grid) []float64 {
	srcNy := len(snap.PlasmaPsi)
	srcNx := len(snap.PlasmaPsi[0])

	srcR := linspace(snap.Rmin, snap.Rmax, srcNx)
	srcZ := linspace(snap.Zmin, snap.Zmax, srcNy)

	// Interpolate along R for every source row first.
	rowSplines := make([]interp.PiecewiseCubic, srcNy)
	for i := 0; i < srcNy; i++ {
		rowSplines[i].Fit(srcR, snap.PlasmaPsi[i])
	}

	// For each target column, interpolate along Z using the values
	// produced by evaluating every row-spline at that target R.
	intermediate := make([][]float64, srcNy)
	for i := range intermediate {
		intermediate[i] = make([]float64, g.Nx)
		for j := 0; j < g.Nx; j++ {
			intermediate[i][j] = clampEval(rowSplines[i], srcR, g.R(j))
		}
	}

	out := make([]float64, g.N())
	var colSpline interp.PiecewiseCubic
	colVals := make([]float64, srcNy)
	for j := 0; j < g.Nx; j++ {
		for i := 0; i < srcNy; i++ {
			colVals[i] = intermediate[i][j]
		}
		colSpline.Fit(srcZ, colVals)
		for i := 0; i < g.Ny; i++ {
			out[g.Index(i, j)] = clampEval(colSpline, srcZ, g.Z(i))
		}
	}
	return out
}

// clampEval evaluates a fitted PiecewiseCubic, clamping the query point to
// the fitted domain to avoid extrapolation past the source grid's edge.
func clampEval(sp interp.PiecewiseCubic, xs []float64, x float64) float64 {
	if x < xs[0] {
		x = xs[0]
	}
	if x > xs[len(xs)-1] {
		x = xs[len(xs)-1]
	}
	return sp.Predict(x)
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func copyMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
