package evolve

import (
	"math"
	"testing"
)

func uniformHatIy(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0 / float64(n)
	}
	return out
}

func TestBuildLinearSystemDimensionsAndSymmetricBlocks(t *testing.T) {
	m, l := testLayout(t)
	hatIy := uniformHatIy(m.NPlasmaPts())
	pl := PlasmaLoopParams{Rp: 1.0, MinorRadius: 0.3, Resistance: 1e-6, InternalInductance: 0.8}

	ls := BuildLinearSystem(l, m, hatIy, pl)
	n := l.Dim()
	r, c := ls.M.Dims()
	if r != n || c != n {
		t.Fatalf("M dims = %dx%d, want %dx%d", r, c, n, n)
	}
	rr, cc := ls.R.Dims()
	if rr != n || cc != n {
		t.Fatalf("R dims = %dx%d, want %dx%d", rr, cc, n, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if math.Abs(ls.M.At(i, j)-ls.M.At(j, i)) > 1e-9 {
				t.Fatalf("M not symmetric at (%d,%d): %g vs %g", i, j, ls.M.At(i, j), ls.M.At(j, i))
			}
		}
	}

	ipIdx := l.IpIndex()
	if ls.M.At(ipIdx, ipIdx) <= 0 {
		t.Fatalf("plasma self-inductance entry should be positive, got %g", ls.M.At(ipIdx, ipIdx))
	}
	if ls.R.At(ipIdx, ipIdx) <= 0 {
		t.Fatalf("plasma resistance entry should be positive, got %g", ls.R.At(ipIdx, ipIdx))
	}
}

func TestBuildLinearSystemStepDecaysTowardZeroWithNoForcing(t *testing.T) {
	m, l := testLayout(t)
	hatIy := uniformHatIy(m.NPlasmaPts())
	pl := PlasmaLoopParams{Rp: 1.0, MinorRadius: 0.3, Resistance: 1e-6, InternalInductance: 0.8}

	ls := BuildLinearSystem(l, m, hatIy, pl)
	if err := ls.Prepare(1e-3, 1e-5); err != nil {
		t.Fatal(err)
	}

	i0 := make([]float64, l.Dim())
	for k := range i0 {
		i0[k] = 1000
	}
	forcing := make([]float64, l.Dim())
	i1 := ls.Step(i0, forcing)

	n0, n1 := 0.0, 0.0
	for k := range i0 {
		n0 += i0[k] * i0[k]
		n1 += i1[k] * i1[k]
	}
	if n1 >= n0 {
		t.Fatalf("expected current norm to decay under zero forcing: before=%g after=%g", math.Sqrt(n0), math.Sqrt(n1))
	}
}

func TestShafranovSelfInductanceDegenerateFallback(t *testing.T) {
	if l := shafranovSelfInductance(PlasmaLoopParams{Rp: 0, MinorRadius: 0.3}); l <= 0 {
		t.Fatalf("expected positive mu0 fallback for Rp<=0, got %g", l)
	}
	l := shafranovSelfInductance(PlasmaLoopParams{Rp: 1.0, MinorRadius: 0.3, InternalInductance: 0.8})
	if l <= 0 {
		t.Fatalf("expected positive self-inductance, got %g", l)
	}
}
