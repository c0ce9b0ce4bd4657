package nkengine

import (
	"math"
	"testing"
)

func TestSolveLinearSystem(t *testing.T) {
	// F(x) = A*x - b, A = [[2,0],[0,3]], b = [4,9] -> root at x=[2,3].
	f := func(x []float64) []float64 {
		return []float64{2*x[0] - 4, 3*x[1] - 9}
	}
	res := Solve([]float64{0, 0}, f, DefaultConfig())
	if !res.Converged {
		t.Fatalf("expected convergence, relative residual %.3e after %d iters", res.RelResidual, res.Iters)
	}
	want := []float64{2, 3}
	for i := range want {
		if math.Abs(res.X[i]-want[i]) > 1e-4 {
			t.Fatalf("X[%d] = %g, want %g", i, res.X[i], want[i])
		}
	}
}

func TestSolveMildlyNonlinear(t *testing.T) {
	// F(x) = x^2 - 2 -> root at x = sqrt(2).
	f := func(x []float64) []float64 {
		return []float64{x[0]*x[0] - 2}
	}
	res := Solve([]float64{1.0}, f, DefaultConfig())
	if !res.Converged {
		t.Fatalf("expected convergence, got relative residual %.3e", res.RelResidual)
	}
	if math.Abs(res.X[0]-math.Sqrt2) > 1e-3 {
		t.Fatalf("X[0] = %g, want sqrt(2) = %g", res.X[0], math.Sqrt2)
	}
}

func TestSolveAlreadyAtRoot(t *testing.T) {
	f := func(x []float64) []float64 { return []float64{0, 0} }
	res := Solve([]float64{1, 2}, f, DefaultConfig())
	if !res.Converged {
		t.Fatal("expected immediate convergence when residual is already zero")
	}
	if res.Iters != 0 {
		t.Fatalf("expected 0 iterations, got %d", res.Iters)
	}
}
