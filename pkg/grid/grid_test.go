package grid

import (
	"math"
	"testing"
)

func TestNewRejectsBadBounds(t *testing.T) {
	if _, err := New(1, 2, -1, 1, 1, 5); err == nil {
		t.Fatal("expected error for nx < 2")
	}
	if _, err := New(2, 1, -1, 1, 5, 5); err == nil {
		t.Fatal("expected error for rmax <= rmin")
	}
	if _, err := New(-1, 1, -1, 1, 5, 5); err == nil {
		t.Fatal("expected error for non-positive rmin")
	}
}

func TestIndexRZRoundtrip(t *testing.T) {
	g, err := New(0.5, 1.5, -1, 1, 5, 7)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < g.Ny; i++ {
		for j := 0; j < g.Nx; j++ {
			k := g.Index(i, j)
			r, z := g.RZ(k)
			if r != g.R(j) || z != g.Z(i) {
				t.Fatalf("RZ(%d)=(%g,%g) want (%g,%g)", k, r, z, g.R(j), g.Z(i))
			}
		}
	}
}

func TestBoundaryIndicesCoverEdgeOnly(t *testing.T) {
	g, err := New(0.5, 1.5, -1, 1, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	idx := g.BoundaryIndices()
	want := 2*g.Nx + 2*(g.Ny-2)
	if len(idx) != want {
		t.Fatalf("got %d boundary indices, want %d", len(idx), want)
	}
	for _, k := range idx {
		if !g.OnBoundary(k) {
			t.Fatalf("index %d reported by BoundaryIndices is not on the boundary", k)
		}
	}
}

func TestGreensFilamentSymmetric(t *testing.T) {
	a := GreensFilament(1.0, 0.2, 1.3, -0.4)
	b := GreensFilament(1.3, -0.4, 1.0, 0.2)
	if math.Abs(a-b) > 1e-12*math.Abs(a) {
		t.Fatalf("Green's function not symmetric: G(a,b)=%g G(b,a)=%g", a, b)
	}
	if a <= 0 {
		t.Fatalf("expected positive mutual flux for two coaxial filaments, got %g", a)
	}
}

func TestEllipkeAtZero(t *testing.T) {
	e, k := ellipke(0)
	if math.Abs(e-math.Pi/2) > 1e-6 {
		t.Fatalf("E(0) = %g, want pi/2", e)
	}
	if math.Abs(k-math.Pi/2) > 1e-6 {
		t.Fatalf("K(0) = %g, want pi/2", k)
	}
}
