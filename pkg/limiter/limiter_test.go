package limiter

import (
	"testing"

	"github.com/gsnk/gsnk/pkg/grid"
)

func square() Polygon {
	return Polygon{R: []float64{0.5, 1.5, 1.5, 0.5}, Z: []float64{-0.5, -0.5, 0.5, 0.5}}
}

func TestPolygonContains(t *testing.T) {
	p := square()
	if !p.Contains(1.0, 0.0) {
		t.Fatal("expected center point inside polygon")
	}
	if p.Contains(2.0, 0.0) {
		t.Fatal("expected point outside polygon bounds to be outside")
	}
}

func TestBuildMasksInteriorPoints(t *testing.T) {
	g, err := grid.New(0.1, 2.0, -1, 1, 9, 9)
	if err != nil {
		t.Fatal(err)
	}
	mask := Build(g, square())
	if len(mask.PlasmaPts) == 0 {
		t.Fatal("expected at least one point inside the limiter square")
	}
	for _, idx := range mask.PlasmaPts {
		if !mask.Inside[idx] {
			t.Fatalf("index %d in PlasmaPts but Inside[%d] is false", idx, idx)
		}
	}
}

func TestCoreMaskLimiterDivertedWhenNoOverlap(t *testing.T) {
	g, err := grid.New(0.1, 2.0, -1, 1, 9, 9)
	if err != nil {
		t.Fatal(err)
	}
	mask := Build(g, square())
	divertedCore := make([]bool, g.N())
	psi := make([]float64, g.N())

	res := CoreMaskLimiter(mask, psi, 0, 1.23, divertedCore)
	if res.LimiterFlag {
		t.Fatal("expected diverted (no limiter overlap), got LimiterFlag=true")
	}
	if res.PsiBoundary != 1.23 {
		t.Fatalf("PsiBoundary = %g, want unchanged candidate 1.23", res.PsiBoundary)
	}
}

func TestCoreMaskLimiterFlagsContact(t *testing.T) {
	g, err := grid.New(0.1, 2.0, -1, 1, 9, 9)
	if err != nil {
		t.Fatal(err)
	}
	mask := Build(g, square())
	divertedCore := make([]bool, g.N())
	for _, idx := range mask.PlasmaPts {
		divertedCore[idx] = true
	}
	psi := make([]float64, g.N())
	axisIdx := g.Index(4, 4)
	for k := range psi {
		psi[k] = 1.0
	}
	psi[axisIdx] = 2.0

	res := CoreMaskLimiter(mask, psi, axisIdx, 5.0, divertedCore)
	if !res.LimiterFlag {
		t.Fatal("expected limiter contact to be flagged")
	}
	if res.PsiBoundary != 1.0 {
		t.Fatalf("PsiBoundary = %g, want the limiter layer's max flux 1.0", res.PsiBoundary)
	}
}
