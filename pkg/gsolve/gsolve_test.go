package gsolve

import (
	"testing"

	"github.com/gsnk/gsnk/pkg/grid"
	"github.com/gsnk/gsnk/pkg/limiter"
	"github.com/gsnk/gsnk/pkg/machine"
	"github.com/gsnk/gsnk/pkg/profile"
)

func smallTokamak(t *testing.T) (*grid.Grid, *machine.Machine) {
	t.Helper()
	g, err := grid.New(0.2, 1.6, -1.2, 1.2, 17, 17)
	if err != nil {
		t.Fatal(err)
	}
	conductors := []machine.Conductor{
		{Name: "Solenoid", Kind: machine.Active, Filaments: []machine.Filament{{R: 0.25, Z: 0, Area: 0.01, Turns: 400, Resistivity: 1.7e-8}}},
		{Name: "PF1", Kind: machine.Active, Filaments: []machine.Filament{{R: 1.3, Z: 0.9, Area: 0.01, Turns: 24, Resistivity: 1.7e-8}}},
		{Name: "PF2", Kind: machine.Active, Filaments: []machine.Filament{{R: 1.3, Z: -0.9, Area: 0.01, Turns: 24, Resistivity: 1.7e-8}}},
	}
	m, err := machine.Build(conductors, g, nil)
	if err != nil {
		t.Fatal(err)
	}
	return g, m
}

func TestSolverSolveConvergesOnSmallMachine(t *testing.T) {
	g, m := smallTokamak(t)
	s := New(g, m)

	prof := profile.NewPaxisIp(8100, 1.8, 1.2, 6.2e5)
	psi0 := make([]float64, g.N())
	currents := []float64{2000, -400, -400}

	res, err := s.Solve(psi0, currents, prof)
	if err != nil {
		t.Fatalf("Solve did not converge: %v (rel residual %.3e after %d iters)", err, res.RelResidual, res.Iters)
	}
	if !res.Converged {
		t.Fatal("expected Converged=true")
	}
	if res.CP.AxisIndex < 0 {
		t.Fatal("expected a magnetic axis to be found")
	}
	if res.Ip == 0 {
		t.Fatal("expected nonzero total plasma current")
	}
}

func TestSolverSolveRoutesThroughLimiterForSplitProfile(t *testing.T) {
	g, m := smallTokamak(t)
	s := New(g, m)
	// A limiter polygon far outside the grid's domain never overlaps the
	// plasma, so a solve that finds an X-point is diverted (LimiterFlag
	// false), but it still must go through the SplitProfile/CoreMaskLimiter
	// path.
	s.Limiter = limiter.Build(g, limiter.Polygon{R: []float64{5, 6, 6, 5}, Z: []float64{-1, -1, 1, 1}})

	prof := profile.NewPaxisIp(8100, 1.8, 1.2, 6.2e5)
	psi0 := make([]float64, g.N())
	currents := []float64{2000, -400, -400}

	res, err := s.Solve(psi0, currents, prof)
	if err != nil {
		t.Fatalf("Solve did not converge with limiter wired: %v", err)
	}
	if res.CP.AxisIndex < 0 {
		t.Fatal("expected a magnetic axis to be found")
	}
	if res.Ip == 0 {
		t.Fatal("expected nonzero total plasma current")
	}
	// This limiter polygon never overlaps the plasma, so a diverted
	// (HasXpoint) equilibrium must report LimiterFlag=false; an equilibrium
	// with no separatrix at all is limiter-bound by construction.
	if res.CP.HasXpoint && res.LimiterFlag {
		t.Fatal("expected LimiterFlag=false: the limiter polygon never overlaps the plasma")
	}
	if !res.CP.HasXpoint && !res.LimiterFlag {
		t.Fatal("expected LimiterFlag=true: no separatrix means the configuration is limiter-bound")
	}
}

func TestSolverSolveReportsNonConvergence(t *testing.T) {
	g, m := smallTokamak(t)
	s := New(g, m)
	s.Config.MaxIter = 0
	s.Retry = RetryPolicy{}

	prof := profile.NewPaxisIp(8100, 1.8, 1.2, 6.2e5)
	psi0 := make([]float64, g.N())
	currents := []float64{2000, -400, -400}

	_, err := s.Solve(psi0, currents, prof)
	if err == nil {
		t.Fatal("expected GSNonConvergedError with MaxIter=0")
	}
	if _, ok := err.(*GSNonConvergedError); !ok {
		t.Fatalf("expected *GSNonConvergedError, got %T", err)
	}
}
