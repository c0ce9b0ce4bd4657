package evolve

import (
	"math"
	"testing"

	"github.com/gsnk/gsnk/pkg/gsolve"
	"github.com/gsnk/gsnk/pkg/profile"
)

func TestBuildLinearizationMatrixDimensionsAndPredictMatchesReference(t *testing.T) {
	m, l := testLayout(t)
	gs := gsolve.New(m.Grid, m)
	prof := profile.NewPaxisIp(8100, 1.8, 1.2, 6.2e5)

	filCurrents := make([]float64, m.NConductors())
	for _, idx := range l.ActiveIdx {
		filCurrents[idx] = 1500
	}
	iRef := l.FromFilamentCurrents(filCurrents, 6.2e5)

	psiGuess := make([]float64, m.Grid.N())
	iyFunc := MakeIyFunc(gs, l, m, prof, psiGuess, 1e-2)

	iy0, _, err := iyFunc(iRef)
	if err != nil {
		t.Fatalf("reference IyFunc evaluation: %v", err)
	}

	jac, err := BuildLinearization(iRef, iy0, iyFunc, DefaultBuildLinearizationConfig())
	if err != nil {
		t.Fatalf("BuildLinearization: %v", err)
	}

	r, c := jac.Matrix.Dims()
	if r != m.NPlasmaPts() {
		t.Fatalf("Jacobian rows = %d, want %d (plasma points)", r, m.NPlasmaPts())
	}
	if c != l.Dim() {
		t.Fatalf("Jacobian cols = %d, want %d (Layout.Dim())", c, l.Dim())
	}

	predAtRef := jac.Predict(iRef)
	for k := range predAtRef {
		if math.Abs(predAtRef[k]-iy0[k]) > 1e-9 {
			t.Fatalf("Predict(Ref)[%d] = %g, want Iy0[%d] = %g (zero displacement)", k, predAtRef[k], k, iy0[k])
		}
	}
}
