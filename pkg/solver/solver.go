// Package solver wires the grid, machine description, modal reducer, static
// GS solver and evolutive stepper into the single top-level entry point a
// caller drives, mirroring the way the teacher's pkg/circuit assembles
// node/branch maps, devices and the MNA matrix behind one Circuit type.
package solver

import (
	"fmt"

	"github.com/gsnk/gsnk/pkg/equilibrium"
	"github.com/gsnk/gsnk/pkg/evolve"
	"github.com/gsnk/gsnk/pkg/grid"
	"github.com/gsnk/gsnk/pkg/gsolve"
	"github.com/gsnk/gsnk/pkg/limiter"
	"github.com/gsnk/gsnk/pkg/machine"
	"github.com/gsnk/gsnk/pkg/modal"
	"github.com/gsnk/gsnk/pkg/profile"
	"gonum.org/v1/gonum/mat"
)

// ModalConfig parametrises the passive-circuit modal reduction (spec §4.5).
type ModalConfig struct {
	OmegaMax     float64 // drop modes decaying faster than this angular frequency
	MinDIyDI     float64 // drop modes whose plasma-coupling influence falls below this; 0 disables
	Influence    []float64
}

// Tokamak bundles every durable object the evolutive and static solves
// share: grid, machine (conductors + M/RMet/Mey), modal basis, the static
// GS engine and the non-linear evolutive stepper.
type Tokamak struct {
	Grid    *grid.Grid
	Machine *machine.Machine
	Basis   *modal.Basis
	Layout  *evolve.Layout
	GS      *gsolve.Solver
	Stepper *evolve.Stepper
}

// Build assembles a Tokamak from a grid, conductor list and plasma-domain
// points, reducing the passive circuit through the modal basis and
// constructing the static GS solver and non-linear evolutive stepper bound
// to prof. limiterPoly may be the zero Polygon (no R/Z vertices), in which
// case the GS solve never consults the limiter handler and every
// equilibrium is resolved as diverted unless the profile reports no
// X-point at all.
func Build(g *grid.Grid, conductors []machine.Conductor, plasmaPts []int, modalCfg ModalConfig, prof profile.Profile, stepperCfg evolve.StepperConfig, limiterPoly limiter.Polygon) (*Tokamak, error) {
	m, err := machine.Build(conductors, g, plasmaPts)
	if err != nil {
		return nil, fmt.Errorf("solver: building machine: %v", err)
	}
	if err := m.CheckPositiveDefinite(); err != nil {
		return nil, fmt.Errorf("solver: %v", err)
	}

	passiveM, passiveR := splitPassive(m)
	basis, err := modal.Reduce(passiveM, passiveR, modalCfg.OmegaMax, modalCfg.Influence, modalCfg.MinDIyDI)
	if err != nil {
		return nil, fmt.Errorf("solver: reducing passive circuit: %v", err)
	}

	layout := evolve.NewLayout(m, basis)
	gs := gsolve.New(g, m)
	if len(limiterPoly.R) >= 3 {
		gs.Limiter = limiter.Build(g, limiterPoly)
	}
	stepper := evolve.NewStepper(m, layout, gs, prof, stepperCfg)

	return &Tokamak{Grid: g, Machine: m, Basis: basis, Layout: layout, GS: gs, Stepper: stepper}, nil
}

// InitialState builds a zero-current, zero-flux durable equilibrium.State
// ready for a first static solve or evolutive step.
func (t *Tokamak) InitialState() *equilibrium.State {
	coilCurrents := make(map[string]float64)
	for _, name := range t.Machine.ActiveNames() {
		coilCurrents[name] = 0
	}
	return &equilibrium.State{
		CoilCurrents: coilCurrents,
		PlasmaPsi:    make([]float64, t.Grid.N()),
		Grid:         t.Grid,
	}
}

// SolveStatic runs one static GS solve from s's current coil currents and
// flux guess, returning the result without mutating s (callers commit
// explicitly via CommitStatic).
func (t *Tokamak) SolveStatic(s *equilibrium.State, prof profile.Profile) (gsolve.Result, error) {
	fil := make([]float64, t.Machine.NConductors())
	for idx, c := range t.Machine.Conductors {
		if v, ok := s.CoilCurrents[c.Name]; ok {
			fil[idx] = v
		}
	}
	return t.GS.Solve(s.PlasmaPsi, fil, prof)
}

// CommitStatic writes a static-solve result back onto the durable state.
func CommitStatic(s *equilibrium.State, res gsolve.Result) {
	s.PlasmaPsi = res.PsiPlasma
	s.Ip = res.Ip
	s.CP = res.CP
	s.LimiterFlag = res.LimiterFlag
	s.MarkDirty()
}

// Advance runs one non-linear evolutive timestep from s under the given
// active-coil voltages, returning the next durable state; the caller
// replaces s with the result to commit it.
func (t *Tokamak) Advance(s *equilibrium.State, activeVoltages map[string]float64) (*equilibrium.State, error) {
	return t.Stepper.Advance(s, activeVoltages)
}

// splitPassive extracts the passive-conductor sub-block of M and its
// diagonal resistance vector, the inputs the modal reducer operates on.
func splitPassive(m *machine.Machine) (*mat.SymDense, []float64) {
	var idx []int
	for i, c := range m.Conductors {
		if c.Kind == machine.Passive {
			idx = append(idx, i)
		}
	}
	n := len(idx)
	sub := mat.NewSymDense(n, nil)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			sub.SetSym(a, b, m.M.At(idx[a], idx[b]))
		}
	}
	rPassive := make([]float64, n)
	for k, i := range idx {
		rPassive[k] = m.RMet[i]
	}
	return sub, rPassive
}
