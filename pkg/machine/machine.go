// Package machine assembles the conductor geometry of active coils and
// passive vessel structures into the mutual-inductance matrix M, the
// diagonal resistance vector R_met, and the plasma-metal coupling matrix
// Mey, following the filament-level coils_dict representation.
package machine

import (
	"fmt"
	"math"

	"github.com/gsnk/gsnk/pkg/grid"
	"gonum.org/v1/gonum/mat"
)

// Filament is one current-carrying loop: a ring of cross-section Area at
// (R,Z), wound Turns times (signed, so reversed windings are negative).
type Filament struct {
	R, Z       float64
	Area       float64
	Turns      float64
	Resistivity float64 // Ohm*m, volume resistivity of the conductor material
}

// Resistance returns the per-filament loop resistance implied by its
// geometry and resistivity: rho * 2*pi*R / Area, the toroidal-loop analogue
// of the teacher's temperature-compensated resistor stamp.
func (f Filament) Resistance() float64 {
	const twoPi = 6.283185307179586
	if f.Area <= 0 {
		return 0
	}
	return f.Resistivity * twoPi * f.R / f.Area
}

// ConductorKind distinguishes externally driven circuits from passive
// structures that only carry induced current.
type ConductorKind int

const (
	Active ConductorKind = iota
	Passive
)

// Conductor is one row/column of the machine's circuit equations: a named
// active circuit (possibly built from several filament bundles in series)
// or a single passive structure element.
type Conductor struct {
	Name      string
	Kind      ConductorKind
	Filaments []Filament
}

// TotalResistance sums the series resistance of every filament bundle
// belonging to this conductor.
func (c Conductor) TotalResistance() float64 {
	var r float64
	for _, f := range c.Filaments {
		r += f.Resistance()
	}
	return r
}

// Machine holds the complete set of conductors plus the grid the plasma
// lives on, and is immutable after Build.
type Machine struct {
	Conductors []Conductor
	Grid       *grid.Grid

	// PlasmaPts are the flat grid indices the plasma-domain vector Iy is
	// defined over (set by the limiter handler; defaults to every interior
	// point when nil).
	PlasmaPts []int

	M      *mat.SymDense // n_cond x n_cond mutual inductance
	RMet   []float64     // n_cond diagonal resistance
	Mey    *mat.Dense    // n_cond x n_plasma_pts
}

// Build assembles M, RMet and Mey from the conductor geometry. M is
// guaranteed symmetric by construction (it is only ever written through
// SetSym); callers should additionally check positive-definiteness via
// CheckPositiveDefinite, since a degenerate machine description can still
// produce a singular M (e.g. a conductor with zero filaments).
func Build(conductors []Conductor, g *grid.Grid, plasmaPts []int) (*Machine, error) {
	if len(conductors) == 0 {
		return nil, fmt.Errorf("machine: no conductors supplied")
	}
	if g == nil {
		return nil, fmt.Errorf("machine: grid is required")
	}
	pts := plasmaPts
	if pts == nil {
		pts = interiorPoints(g)
	}

	n := len(conductors)
	m := mat.NewSymDense(n, nil)
	rMet := make([]float64, n)
	mey := mat.NewDense(n, len(pts), nil)

	// Cache pairwise filament-bundle mutual inductance; the Green's sum is
	// O(N^2) in filament count, so symmetry is exploited explicitly rather
	// than recomputed for both (a,b) and (b,a).
	for a := 0; a < n; a++ {
		rMet[a] = conductors[a].TotalResistance()
		for b := a; b < n; b++ {
			mab := mutualInductance(conductors[a], conductors[b])
			m.SetSym(a, b, mab)
		}
		for p, idx := range pts {
			r, z := g.RZ(idx)
			mey.Set(a, p, filamentToPointFlux(conductors[a], r, z)*g.DRDZ())
		}
	}

	mach := &Machine{Conductors: conductors, Grid: g, PlasmaPts: pts, M: m, RMet: rMet, Mey: mey}
	return mach, nil
}

// CheckPositiveDefinite verifies M is SPD via Cholesky, returning a
// SingularInductance-shaped error on failure (spec error kind).
func (mc *Machine) CheckPositiveDefinite() error {
	var chol mat.Cholesky
	if ok := chol.Factorize(mc.M); !ok {
		return &SingularInductanceError{}
	}
	return nil
}

// SingularInductanceError reports that M failed Cholesky factorisation
// after assembly (fatal at construction).
type SingularInductanceError struct{}

func (e *SingularInductanceError) Error() string {
	return "machine: mutual inductance matrix M is not positive definite after assembly"
}

func mutualInductance(a, b Conductor) float64 {
	var total float64
	for _, fa := range a.Filaments {
		for _, fb := range b.Filaments {
			if fa.R == fb.R && fa.Z == fb.Z {
				// Coincident filament: the Green's function is singular here,
				// so use the self-inductance of a thin circular loop of minor
				// radius a = sqrt(Area/pi), mu0*R*(ln(8R/a) - 7/4).
				if fa.Area > 0 {
					const mu0 = 1.25663706212e-6
					a := math.Sqrt(fa.Area / math.Pi)
					total += fa.Turns * fb.Turns * mu0 * fa.R * (math.Log(8*fa.R/a) - 1.75)
				}
				continue
			}
			total += fa.Turns * fb.Turns * grid.GreensFilament(fa.R, fa.Z, fb.R, fb.Z)
		}
	}
	return total
}

func filamentToPointFlux(a Conductor, r, z float64) float64 {
	var total float64
	for _, fa := range a.Filaments {
		if fa.R == r && fa.Z == z {
			continue
		}
		total += fa.Turns * grid.GreensFilament(fa.R, fa.Z, r, z)
	}
	return total
}

func interiorPoints(g *grid.Grid) []int {
	var pts []int
	for i := 1; i < g.Ny-1; i++ {
		for j := 1; j < g.Nx-1; j++ {
			pts = append(pts, g.Index(i, j))
		}
	}
	return pts
}

// NConductors returns the number of rows/columns of M.
func (mc *Machine) NConductors() int { return len(mc.Conductors) }

// NPlasmaPts returns the number of plasma-domain grid points Mey covers.
func (mc *Machine) NPlasmaPts() int { return len(mc.PlasmaPts) }

// ActiveNames returns the names of active (externally driven) conductors,
// in machine order; used to validate persisted equilibrium snapshots.
func (mc *Machine) ActiveNames() []string {
	var names []string
	for _, c := range mc.Conductors {
		if c.Kind == Active {
			names = append(names, c.Name)
		}
	}
	return names
}
