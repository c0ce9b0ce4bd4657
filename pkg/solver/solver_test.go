package solver

import (
	"testing"

	"github.com/gsnk/gsnk/pkg/evolve"
	"github.com/gsnk/gsnk/pkg/grid"
	"github.com/gsnk/gsnk/pkg/limiter"
	"github.com/gsnk/gsnk/pkg/machine"
	"github.com/gsnk/gsnk/pkg/profile"
)

func smallConductors() []machine.Conductor {
	return []machine.Conductor{
		{Name: "Solenoid", Kind: machine.Active, Filaments: []machine.Filament{{R: 0.25, Z: 0, Area: 0.01, Turns: 400, Resistivity: 1.7e-8}}},
		{Name: "PF1", Kind: machine.Active, Filaments: []machine.Filament{{R: 1.3, Z: 0.9, Area: 0.01, Turns: 24, Resistivity: 1.7e-8}}},
		{Name: "PF2", Kind: machine.Active, Filaments: []machine.Filament{{R: 1.3, Z: -0.9, Area: 0.01, Turns: 24, Resistivity: 1.7e-8}}},
		{Name: "Vessel1", Kind: machine.Passive, Filaments: []machine.Filament{{R: 1.1, Z: 0.6, Area: 0.01, Turns: 1, Resistivity: 7.4e-7}}},
		{Name: "Vessel2", Kind: machine.Passive, Filaments: []machine.Filament{{R: 1.1, Z: -0.6, Area: 0.01, Turns: 1, Resistivity: 7.4e-7}}},
	}
}

func buildTokamak(t *testing.T) *Tokamak {
	t.Helper()
	g, err := grid.New(0.2, 1.6, -1.2, 1.2, 17, 17)
	if err != nil {
		t.Fatal(err)
	}
	prof := profile.NewPaxisIp(8100, 1.8, 1.2, 6.2e5)
	modalCfg := ModalConfig{OmegaMax: 1e9}
	stepperCfg := evolve.DefaultStepperConfig()

	tok, err := Build(g, smallConductors(), nil, modalCfg, prof, stepperCfg, limiter.Polygon{})
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestBuildWiresEveryComponent(t *testing.T) {
	tok := buildTokamak(t)
	if tok.Machine.NConductors() != 5 {
		t.Fatalf("NConductors() = %d, want 5", tok.Machine.NConductors())
	}
	if tok.Basis.NKeep != 2 {
		t.Fatalf("Basis.NKeep = %d, want 2 passive modes retained", tok.Basis.NKeep)
	}
	if tok.Layout.NActive() != 3 {
		t.Fatalf("Layout.NActive() = %d, want 3", tok.Layout.NActive())
	}
}

func TestInitialStateIsZeroed(t *testing.T) {
	tok := buildTokamak(t)
	s := tok.InitialState()
	if len(s.CoilCurrents) != 3 {
		t.Fatalf("expected 3 active coil entries, got %d", len(s.CoilCurrents))
	}
	for name, v := range s.CoilCurrents {
		if v != 0 {
			t.Fatalf("expected zero initial current for %s, got %g", name, v)
		}
	}
	if len(s.PlasmaPsi) != tok.Grid.N() {
		t.Fatalf("PlasmaPsi length = %d, want %d", len(s.PlasmaPsi), tok.Grid.N())
	}
}

func TestSolveStaticAndCommit(t *testing.T) {
	tok := buildTokamak(t)
	prof := profile.NewPaxisIp(8100, 1.8, 1.2, 6.2e5)
	s := tok.InitialState()
	s.CoilCurrents["Solenoid"] = 2000
	s.CoilCurrents["PF1"] = -400
	s.CoilCurrents["PF2"] = -400

	res, err := tok.SolveStatic(s, prof)
	if err != nil {
		t.Fatalf("SolveStatic did not converge: %v", err)
	}
	CommitStatic(s, res)
	if !s.Dirty() {
		t.Fatal("expected CommitStatic to mark the state dirty")
	}
	if s.Ip == 0 {
		t.Fatal("expected nonzero committed Ip")
	}
}

func TestBuildWithLimiterPolygonRoutesStaticSolveThroughLimiter(t *testing.T) {
	g, err := grid.New(0.2, 1.6, -1.2, 1.2, 17, 17)
	if err != nil {
		t.Fatal(err)
	}
	prof := profile.NewPaxisIp(8100, 1.8, 1.2, 6.2e5)
	modalCfg := ModalConfig{OmegaMax: 1e9}
	stepperCfg := evolve.DefaultStepperConfig()
	poly := limiter.Polygon{R: []float64{0.4, 1.4, 1.4, 0.4}, Z: []float64{-1, -1, 1, 1}}

	tok, err := Build(g, smallConductors(), nil, modalCfg, prof, stepperCfg, poly)
	if err != nil {
		t.Fatal(err)
	}
	if tok.GS.Limiter == nil {
		t.Fatal("expected Build to wire a non-nil Limiter mask from the polygon")
	}

	s := tok.InitialState()
	s.CoilCurrents["Solenoid"] = 2000
	s.CoilCurrents["PF1"] = -400
	s.CoilCurrents["PF2"] = -400

	res, err := tok.SolveStatic(s, prof)
	if err != nil {
		t.Fatalf("SolveStatic did not converge with limiter wired: %v", err)
	}
	CommitStatic(s, res)
	if s.Ip == 0 {
		t.Fatal("expected nonzero committed Ip")
	}
}
