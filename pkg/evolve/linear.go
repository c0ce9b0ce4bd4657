package evolve

import (
	"math"

	"github.com/gsnk/gsnk/pkg/euler"
	"github.com/gsnk/gsnk/pkg/machine"
	"gonum.org/v1/gonum/mat"
)

// LinearSystem is the finite-dimensional linear ODE M*Idot + R*I = F in the
// extensive current vector, obtained by linearising Iy(I) around a
// reference equilibrium and projecting the plasma circuit equation through
// that linearisation (spec §4.7).
type LinearSystem struct {
	Layout *Layout
	M, R   *mat.Dense // Layout.Dim() square

	stepper *euler.Stepper
}

// PlasmaLoopParams are the scalar quantities the plasma circuit row needs:
// the current distribution's R-weighted centroid and minor radius (used for
// a Shafranov-formula plasma self-inductance estimate) and its resistance.
type PlasmaLoopParams struct {
	Rp, MinorRadius, Resistance, InternalInductance float64
}

// BuildLinearSystem assembles M and R for the extensive current vector from
// the machine's conductor matrices (reduced through the modal basis for the
// passive block), a flux-weighted conductor-to-plasma coupling row/column
// built from hatIy, and a plasma-loop self-inductance estimate from
// PlasmaLoopParams.
func BuildLinearSystem(l *Layout, m *machine.Machine, hatIy []float64, pl PlasmaLoopParams) *LinearSystem {
	n := l.Dim()
	mm := mat.NewDense(n, n, nil)
	rr := mat.NewDense(n, n, nil)

	na, nMode := l.NActive(), l.NMode()

	// Active-active block straight from the machine mutual-inductance
	// matrix; active resistance is the conductor's own diagonal entry.
	for a := 0; a < na; a++ {
		ca := l.ActiveIdx[a]
		rr.Set(a, a, m.RMet[ca])
		for b := 0; b < na; b++ {
			cb := l.ActiveIdx[b]
			mm.Set(a, b, m.M.At(ca, cb))
		}
	}

	// Active-mode coupling: M_am = M(active,passive) * P.
	for a := 0; a < na; a++ {
		ca := l.ActiveIdx[a]
		for k := 0; k < nMode; k++ {
			var s float64
			for b, cb := range l.PassiveIdx {
				s += m.M.At(ca, cb) * l.Basis.P.At(b, k)
			}
			mm.Set(a, na+k, s)
			mm.Set(na+k, a, s) // M symmetric under the same change of basis
		}
	}

	// Mode-mode block: identity (M-orthonormal modal basis) and diagonal
	// decay-rate resistance, per the modal reducer's construction.
	for k := 0; k < nMode; k++ {
		mm.Set(na+k, na+k, 1)
		rr.Set(na+k, na+k, l.Basis.Lambda[k])
	}

	// Plasma row/column: mutual coupling to each conductor via the flux-
	// weighted Green's sum (Mey already carries flux-per-filament-current;
	// weighting by hatIy turns it into flux-per-unit total plasma current),
	// projected into the active/mode basis the same way as the metal block.
	ipIdx := l.IpIndex()
	condFlux := conductorPlasmaCoupling(m, hatIy)
	for a := 0; a < na; a++ {
		ca := l.ActiveIdx[a]
		mm.Set(a, ipIdx, condFlux[ca]*l.IpScale)
		mm.Set(ipIdx, a, condFlux[ca]*l.IpScale)
	}
	for k := 0; k < nMode; k++ {
		var s float64
		for b, cb := range l.PassiveIdx {
			s += condFlux[cb] * l.Basis.P.At(b, k)
		}
		mm.Set(na+k, ipIdx, s*l.IpScale)
		mm.Set(ipIdx, na+k, s*l.IpScale)
	}

	lpp := shafranovSelfInductance(pl)
	mm.Set(ipIdx, ipIdx, lpp*l.IpScale*l.IpScale)
	rr.Set(ipIdx, ipIdx, pl.Resistance*l.IpScale*l.IpScale)

	return &LinearSystem{Layout: l, M: mm, R: rr}
}

// conductorPlasmaCoupling returns, for each conductor, sum_p Mey[c,p]*hatIy[p]:
// flux produced at the plasma per unit total plasma current.
func conductorPlasmaCoupling(m *machine.Machine, hatIy []float64) []float64 {
	out := make([]float64, m.NConductors())
	for c := 0; c < m.NConductors(); c++ {
		var s float64
		for p, w := range hatIy {
			s += m.Mey.At(c, p) * w
		}
		out[c] = s
	}
	return out
}

// shafranovSelfInductance estimates the plasma loop's poloidal self-
// inductance via the standard large-aspect-ratio formula
// L = mu0*Rp*(ln(8*Rp/a) - 2 + li/2).
func shafranovSelfInductance(pl PlasmaLoopParams) float64 {
	const mu0 = 1.25663706212e-6
	if pl.Rp <= 0 || pl.MinorRadius <= 0 {
		return mu0 // degenerate fallback, avoids division by zero downstream
	}
	return mu0 * pl.Rp * (math.Log(8*pl.Rp/pl.MinorRadius) - 2 + pl.InternalInductance/2)
}

// Prepare (re)builds the cached implicit-Euler inverse operator for a given
// full timestep and internal sub-step cap; must be called before Step after
// BuildLinearSystem or any later mutation of M/R.
func (ls *LinearSystem) Prepare(fullTimestep, maxInternalTimestep float64) error {
	s, err := euler.NewStepper(ls.M, ls.R, fullTimestep, maxInternalTimestep)
	if err != nil {
		return err
	}
	ls.stepper = s
	return nil
}

// Step advances the extensive current vector by the prepared full timestep
// under constant active-coil forcing voltages (forcing is zero on every
// passive/plasma row).
func (ls *LinearSystem) Step(i []float64, activeVoltages []float64) []float64 {
	forcing := make([]float64, ls.Layout.Dim())
	copy(forcing, activeVoltages)
	return ls.stepper.FullStep(i, forcing)
}

// GrowthRate returns the dominant (most positive real part) eigenvalue of
// -M^-1*R, i.e. the fastest-growing mode's rate; used by automatic_timestep
// (Testable Property 7). ok is false if every eigenvalue's real part is
// non-positive (no instability).
func (ls *LinearSystem) GrowthRate() (rate float64, ok bool) {
	n, _ := ls.M.Dims()
	mInv := mat.NewDense(n, n, nil)
	if err := mInv.Inverse(ls.M); err != nil {
		return 0, false
	}
	var a mat.Dense
	a.Mul(mInv, ls.R)
	a.Scale(-1, &a)

	var eig mat.Eigen
	if !eig.Factorize(&a, mat.EigenNone) {
		return 0, false
	}
	values := eig.Values(nil)
	best := math.Inf(-1)
	for _, v := range values {
		if re := real(v); re > best {
			best = re
		}
	}
	if best <= 0 {
		return 0, false
	}
	return best, true
}
