package profile

import (
	"math"
	"testing"

	"github.com/gsnk/gsnk/pkg/grid"
)

func TestShapeBounds(t *testing.T) {
	if v := shape(0, 1.5, 2); v != 1 {
		t.Fatalf("shape(0,...) = %g, want 1", v)
	}
	if v := shape(1, 1.5, 2); v != 0 {
		t.Fatalf("shape(1,...) = %g, want 0", v)
	}
	if v := shape(-0.1, 1.5, 2); v != 0 {
		t.Fatalf("shape outside [0,1] should be 0, got %g", v)
	}
}

func bowlGrid(t *testing.T) (*grid.Grid, []float64) {
	t.Helper()
	g, err := grid.New(0.2, 1.8, -1, 1, 11, 11)
	if err != nil {
		t.Fatal(err)
	}
	cr, cz := (g.R(0)+g.R(g.Nx-1))/2, (g.Z(0)+g.Z(g.Ny-1))/2
	psi := make([]float64, g.N())
	for k := range psi {
		r, z := g.RZ(k)
		psi[k] = (r-cr)*(r-cr) + (z-cz)*(z-cz)
	}
	return g, psi
}

func TestPaxisIpJtorConservesSignOfIp(t *testing.T) {
	g, psi := bowlGrid(t)
	p := NewPaxisIp(8100, 1.8, 1.2, 6.2e5)
	jtor := p.Jtor(g, psi, math.NaN())

	cp := p.CriticalPoints()
	if cp.AxisIndex < 0 {
		t.Fatal("expected an axis to be found on a single-well bowl psi field")
	}

	var total float64
	for _, j := range jtor {
		if math.IsNaN(j) || math.IsInf(j, 0) {
			t.Fatalf("Jtor produced a non-finite value %g", j)
		}
		total += j
	}
	total *= g.DRDZ()
	if total <= 0 {
		t.Fatalf("expected positive total current matching Ip's sign, got %g", total)
	}
}

func TestPaxisIpSplitProfileMatchesSingleStageJtor(t *testing.T) {
	g, psi := bowlGrid(t)

	direct := NewPaxisIp(8100, 1.8, 1.2, 6.2e5)
	jtorDirect := direct.Jtor(g, psi, math.NaN())

	var sp SplitProfile = NewPaxisIp(8100, 1.8, 1.2, 6.2e5)
	raw, cp := sp.JtorPart1(g, psi)
	if cp.AxisIndex != direct.CriticalPoints().AxisIndex {
		t.Fatalf("JtorPart1 axis index = %d, want %d", cp.AxisIndex, direct.CriticalPoints().AxisIndex)
	}
	jtorSplit := sp.JtorPart2(g, psi, raw, cp, math.NaN())

	for k := range jtorDirect {
		if math.Abs(jtorDirect[k]-jtorSplit[k]) > 1e-9 {
			t.Fatalf("split Jtor[%d] = %g, want %g (matching single-stage Jtor)", k, jtorSplit[k], jtorDirect[k])
		}
	}
}

func TestTopeolSetParameterAndTag(t *testing.T) {
	p := NewTopeol(0.4, 1, 2, 1e6)
	if p.Tag() != TagTopeol {
		t.Fatalf("Tag() = %s, want %s", p.Tag(), TagTopeol)
	}
	if err := p.SetParameter("beta0", 0.6); err != nil {
		t.Fatal(err)
	}
	if p.Parameters()["beta0"] != 0.6 {
		t.Fatalf("beta0 = %g, want 0.6 after SetParameter", p.Parameters()["beta0"])
	}
	if err := p.SetParameter("nonexistent", 1); err == nil {
		t.Fatal("expected error for unknown parameter name")
	}
}

func TestRequiresReinit(t *testing.T) {
	if !RequiresReinit(TagLao85) {
		t.Fatal("Lao85 should require re-initialisation on parameter change")
	}
	if RequiresReinit(TagPaxisIp) {
		t.Fatal("PaxisIp should not require re-initialisation on parameter change")
	}
}

func TestLao85NeedsReinitAfterConstructionAndParamChange(t *testing.T) {
	l := NewLao85(1, 1, 1e6)
	if !l.NeedsReinit() {
		t.Fatal("freshly constructed Lao85 must be explicitly initialised before first use")
	}
	l.Reinitialise()
	if l.NeedsReinit() {
		t.Fatal("Reinitialise should clear the flag")
	}
	if err := l.SetParameter("alpha", 2); err != nil {
		t.Fatal(err)
	}
	if !l.NeedsReinit() {
		t.Fatal("changing alpha on Lao85 should flag NeedsReinit")
	}
}
