package evolve

import (
	"math"

	"github.com/gsnk/gsnk/pkg/grid"
	"github.com/gsnk/gsnk/pkg/machine"
)

// SimplifiedConfig parametrises the J1 simplified circuit solver's
// hatIy box-blur contraction kernel and linear-solve blend.
type SimplifiedConfig struct {
	BlurPasses int     // nbroad: number of 3x3 box-blur passes applied to hatIy
	Blend      float64 // weight given to the new linear-solve current vector, in (0,1]; non-positive values act as 1
}

func DefaultSimplifiedConfig() SimplifiedConfig {
	return SimplifiedConfig{BlurPasses: 1, Blend: 1.0}
}

// BlurHatIy applies cfg.BlurPasses rounds of a normalised 3x3 box blur to a
// plasma current distribution sampled on g's plasma points, then renormalises
// the result on those points to unit sum. This is the "broadening" used by the simplified
// solver in place of a full re-solve of Iy(I) every cycle.
func BlurHatIy(g *grid.Grid, hatIy []float64, idx []int, cfg SimplifiedConfig) []float64 {
	field := make([]float64, g.N())
	for k, i := range idx {
		field[i] = hatIy[k]
	}

	for pass := 0; pass < cfg.BlurPasses; pass++ {
		field = boxBlur3x3(g, field)
	}

	out := make([]float64, len(idx))
	var sum float64
	for k, i := range idx {
		out[k] = field[i]
		sum += out[k]
	}
	if sum > 0 {
		for k := range out {
			out[k] /= sum
		}
	}
	return out
}

func boxBlur3x3(g *grid.Grid, field []float64) []float64 {
	out := make([]float64, len(field))
	for i := 0; i < g.Ny; i++ {
		for j := 0; j < g.Nx; j++ {
			var sum float64
			var count float64
			for di := -1; di <= 1; di++ {
				for dj := -1; dj <= 1; dj++ {
					ii, jj := i+di, j+dj
					if ii < 0 || ii >= g.Ny || jj < 0 || jj >= g.Nx {
						continue
					}
					sum += field[g.Index(ii, jj)]
					count++
				}
			}
			out[g.Index(i, j)] = sum / count
		}
	}
	return out
}

// SimplifiedSolver advances the extensive current vector one step by
// linearising the metal+plasma circuit once around a fixed, broadened
// current distribution and solving it directly, skipping the outer
// GS/Jacobian refresh the full non-linear stepper performs every cycle
// (spec §4.8).
type SimplifiedSolver struct {
	Config SimplifiedConfig
}

func NewSimplifiedSolver(cfg SimplifiedConfig) *SimplifiedSolver {
	return &SimplifiedSolver{Config: cfg}
}

// Step advances i by one full timestep using the plasma current
// distribution contracted by cfg.BlurPasses box-blur passes (hatIy_left,
// §4.8's "left contraction"): it rebuilds the metal+plasma linear system
// from that contracted distribution, one-shot solves it under the given
// voltage forcing, and blends the result with i by Config.Blend to damp
// overshoot from the frozen-Iy approximation. This skips the GS/Jacobian
// refresh the full non-linear stepper performs every cycle.
func (s *SimplifiedSolver) Step(l *Layout, m *machine.Machine, hatIy []float64, pl PlasmaLoopParams, fullTimestep, maxInternalTimestep float64, i []float64, forcing []float64) ([]float64, error) {
	hatLeft := BlurHatIy(m.Grid, hatIy, m.PlasmaPts, s.Config)
	ls := BuildLinearSystem(l, m, hatLeft, pl)
	if err := ls.Prepare(fullTimestep, maxInternalTimestep); err != nil {
		return nil, err
	}
	next := ls.Step(i, forcing)

	blend := s.Config.Blend
	if blend <= 0 {
		blend = 1
	}
	out := make([]float64, len(i))
	for k := range out {
		out[k] = i[k] + blend*(next[k]-i[k])
	}
	return out, nil
}

// Residual evaluates ||M*(Inew-Iold)/dt + R*Inew - F|| / ||F||, giving a
// caller a cheap measure of how far the frozen-Iy linear step is from
// satisfying the full circuit equation: the trigger spec §4.8 uses to fall
// back to the non-linear stepper.
func Residual(ls *LinearSystem, iOld, iNew, forcing []float64, dt float64) float64 {
	n := len(iOld)
	lhs := make([]float64, n)
	for r := 0; r < n; r++ {
		var mAcc, rAcc float64
		for c := 0; c < n; c++ {
			mAcc += ls.M.At(r, c) * (iNew[c] - iOld[c]) / dt
			rAcc += ls.R.At(r, c) * iNew[c]
		}
		lhs[r] = mAcc + rAcc - forcing[r]
	}
	return norm(lhs) / math.Max(norm(forcing), 1e-300)
}
