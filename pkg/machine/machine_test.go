package machine

import (
	"math"
	"testing"

	"github.com/gsnk/gsnk/pkg/grid"
)

func testGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New(0.2, 1.5, -1, 1, 9, 9)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestBuildMutualInductanceSymmetric(t *testing.T) {
	g := testGrid(t)
	conductors := []Conductor{
		{Name: "A", Kind: Active, Filaments: []Filament{{R: 0.5, Z: 0.5, Area: 0.01, Turns: 10, Resistivity: 1.7e-8}}},
		{Name: "B", Kind: Active, Filaments: []Filament{{R: 1.0, Z: -0.3, Area: 0.01, Turns: 5, Resistivity: 1.7e-8}}},
	}
	m, err := Build(conductors, g, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.CheckPositiveDefinite(); err != nil {
		t.Fatalf("expected SPD inductance matrix: %v", err)
	}
	if math.Abs(m.M.At(0, 1)-m.M.At(1, 0)) > 1e-15 {
		t.Fatalf("M not symmetric: M[0,1]=%g M[1,0]=%g", m.M.At(0, 1), m.M.At(1, 0))
	}
	if m.M.At(0, 1) <= 0 {
		t.Fatalf("expected positive mutual inductance between two coaxial coils, got %g", m.M.At(0, 1))
	}
}

func TestBuildDefaultsPlasmaPointsToInterior(t *testing.T) {
	g := testGrid(t)
	conductors := []Conductor{
		{Name: "A", Kind: Active, Filaments: []Filament{{R: 0.5, Z: 0.5, Area: 0.01, Turns: 10, Resistivity: 1.7e-8}}},
	}
	m, err := Build(conductors, g, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := (g.Nx - 2) * (g.Ny - 2)
	if m.NPlasmaPts() != want {
		t.Fatalf("got %d plasma points, want %d interior points", m.NPlasmaPts(), want)
	}
}

func TestActiveNames(t *testing.T) {
	g := testGrid(t)
	conductors := []Conductor{
		{Name: "Solenoid", Kind: Active, Filaments: []Filament{{R: 0.3, Z: 0, Area: 0.01, Turns: 1, Resistivity: 1.7e-8}}},
		{Name: "Vessel1", Kind: Passive, Filaments: []Filament{{R: 1.2, Z: 0.8, Area: 0.01, Turns: 1, Resistivity: 7.4e-7}}},
	}
	m, err := Build(conductors, g, nil)
	if err != nil {
		t.Fatal(err)
	}
	names := m.ActiveNames()
	if len(names) != 1 || names[0] != "Solenoid" {
		t.Fatalf("ActiveNames() = %v, want [Solenoid]", names)
	}
}

func TestBuildRejectsEmptyConductors(t *testing.T) {
	g := testGrid(t)
	if _, err := Build(nil, g, nil); err == nil {
		t.Fatal("expected error for empty conductor list")
	}
}
