package modal

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// diagonalMachine builds a trivial passive circuit with no mutual coupling
// (M = I, R = diag(r)), whose decay rates are exactly r and whose
// eigenvectors are the standard basis, for the cheapest possible check of
// the Cholesky-whitened reduction.
func diagonalMachine(r []float64) *mat.SymDense {
	n := len(r)
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		m.SetSym(i, i, 1)
	}
	return m
}

func TestReduceDiagonalRecoversRates(t *testing.T) {
	r := []float64{3, 1, 5, 2}
	m := diagonalMachine(r)
	basis, err := Reduce(m, r, 1e9, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if basis.NKeep != len(r) {
		t.Fatalf("NKeep = %d, want %d", basis.NKeep, len(r))
	}
	for i := 1; i < len(basis.Lambda); i++ {
		if basis.Lambda[i] < basis.Lambda[i-1] {
			t.Fatalf("Lambda not ascending: %v", basis.Lambda)
		}
	}
	if basis.Lambda[0] != 1 {
		t.Fatalf("smallest decay rate = %g, want 1", basis.Lambda[0])
	}
}

func TestReduceOmegaMaxPrunes(t *testing.T) {
	r := []float64{1, 2, 3, 100}
	m := diagonalMachine(r)
	basis, err := Reduce(m, r, 10, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if basis.NKeep != 3 {
		t.Fatalf("NKeep = %d, want 3 after pruning the 100 Hz mode", basis.NKeep)
	}
}

func TestFilamentModeRoundtrip(t *testing.T) {
	r := []float64{4, 1, 2}
	m := diagonalMachine(r)
	basis, err := Reduce(m, r, 1e9, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	iFil := []float64{1, 2, 3}
	mode := basis.FilamentToMode(iFil)
	back := basis.ModeToFilament(mode)
	for i := range iFil {
		if math.Abs(back[i]-iFil[i]) > 1e-9 {
			t.Fatalf("roundtrip mismatch at %d: got %g want %g", i, back[i], iFil[i])
		}
	}
}

func TestReduceRejectsDimensionMismatch(t *testing.T) {
	m := diagonalMachine([]float64{1, 2, 3})
	if _, err := Reduce(m, []float64{1, 2}, 1e9, nil, 0); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
