package equilibrium

import (
	"math"
	"testing"

	"github.com/gsnk/gsnk/pkg/grid"
)

func testGrid(t *testing.T, nx, ny int) *grid.Grid {
	t.Helper()
	g, err := grid.New(0.2, 1.5, -1, 1, nx, ny)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestLoadSameShapeDoublesFlux(t *testing.T) {
	g := testGrid(t, 5, 5)
	rows := make([][]float64, 5)
	for i := range rows {
		rows[i] = make([]float64, 5)
		for j := range rows[i] {
			rows[i][j] = 1.0
		}
	}
	snap := Snapshot{
		CoilCurrents: map[string]float64{"Solenoid": 100},
		PlasmaPsi:    rows,
		Rmin: 0.2, Rmax: 1.5, Zmin: -1, Zmax: 1,
	}
	st, err := Load(snap, g, []string{"Solenoid"})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range st.PlasmaPsi {
		if math.Abs(v-2.0) > 1e-12 {
			t.Fatalf("expected same-shape load to double flux to 2.0, got %g", v)
		}
	}
	if !st.Dirty() {
		t.Fatal("expected freshly loaded state to be dirty")
	}
}

func TestLoadMismatchedShapeResamples(t *testing.T) {
	g := testGrid(t, 9, 9)
	srcNx, srcNy := 5, 5
	rows := make([][]float64, srcNy)
	for i := range rows {
		rows[i] = make([]float64, srcNx)
		for j := range rows[i] {
			rows[i][j] = 3.0 // constant field resamples to the same constant everywhere
		}
	}
	snap := Snapshot{
		CoilCurrents: map[string]float64{"Solenoid": 100},
		PlasmaPsi:    rows,
		Rmin: 0.2, Rmax: 1.5, Zmin: -1, Zmax: 1,
	}
	st, err := Load(snap, g, []string{"Solenoid"})
	if err != nil {
		t.Fatal(err)
	}
	if len(st.PlasmaPsi) != g.N() {
		t.Fatalf("resampled psi length = %d, want %d", len(st.PlasmaPsi), g.N())
	}
	for _, v := range st.PlasmaPsi {
		if math.Abs(v-6.0) > 1e-6 {
			t.Fatalf("expected resampled constant field doubled to 6.0, got %g", v)
		}
	}
}

func TestLoadRejectsIncompatibleActiveNames(t *testing.T) {
	g := testGrid(t, 5, 5)
	rows := make([][]float64, 5)
	for i := range rows {
		rows[i] = make([]float64, 5)
	}
	snap := Snapshot{
		CoilCurrents: map[string]float64{"Solenoid": 100, "passiveVessel1": 0},
		PlasmaPsi:    rows,
		Rmin: 0.2, Rmax: 1.5, Zmin: -1, Zmax: 1,
	}
	if _, err := Load(snap, g, []string{"Solenoid", "PF1"}); err == nil {
		t.Fatal("expected IncompatibleInitialEquilibriumError for missing PF1")
	} else if ierr, ok := err.(*IncompatibleInitialEquilibriumError); !ok {
		t.Fatalf("expected *IncompatibleInitialEquilibriumError, got %T", err)
	} else if len(ierr.Missing) != 1 || ierr.Missing[0] != "PF1" {
		t.Fatalf("Missing = %v, want [PF1]", ierr.Missing)
	}
}

func TestMarkDirtyTogglesState(t *testing.T) {
	g := testGrid(t, 5, 5)
	st := &State{Grid: g, PlasmaPsi: make([]float64, g.N())}
	if st.Dirty() {
		t.Fatal("expected a zero-value State not to report dirty")
	}
	st.MarkDirty()
	if !st.Dirty() {
		t.Fatal("expected Dirty() true after MarkDirty")
	}
}
