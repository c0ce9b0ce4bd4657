// Package gsolve implements the static free-boundary Grad-Shafranov
// Newton-Krylov solver: inner matrix-free Poisson-like linear solve (§4.2),
// Green's-function boundary closure (§4.1), and the outer Arnoldi/Newton-
// Krylov correction (§4.3), built wholesale on the generic engine in
// pkg/nkengine.
package gsolve

import (
	"fmt"
	"math"

	"github.com/gsnk/gsnk/internal/consts"
	"github.com/gsnk/gsnk/pkg/grid"
	"github.com/gsnk/gsnk/pkg/limiter"
	"github.com/gsnk/gsnk/pkg/machine"
	"github.com/gsnk/gsnk/pkg/nkengine"
	"github.com/gsnk/gsnk/pkg/profile"
	"gonum.org/v1/gonum/mat"
)

// GSNonConvergedError reports that the outer Newton-Krylov loop exceeded
// MaxIter without reaching RelTol.
type GSNonConvergedError struct {
	RelResidual float64
	Iters       int
}

func (e *GSNonConvergedError) Error() string {
	return fmt.Sprintf("gsolve: static GS solve did not converge after %d iterations (relative residual %.3e)", e.Iters, e.RelResidual)
}

// RetryPolicy rescales the initial plasma flux guess when critical-point
// detection fails to find an axis or separatrix, per the Design Note
// resolving the source's undefined-n_exp heuristic: try scale-up, then
// scale-down, then exponentiation, each bounded by a small cap.
type RetryPolicy struct {
	MaxScaleUp   int // factor 1.5 up, up to this many times
	MaxScaleDown int // factor 1/1.1 down, up to this many times
	MaxExponent  int // exponentiate (psi -> sign(psi)*|psi|^p for small p>1), up to this many times
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxScaleUp: 10, MaxScaleDown: 10, MaxExponent: 3}
}

// Solver holds everything that depends only on grid geometry and the
// machine's conductor layout, built once and reused across every solve.
type Solver struct {
	Grid    *grid.Grid
	Machine *machine.Machine

	boundary   *grid.BoundaryResponse
	inner      *innerSolver
	condToGrid *mat.Dense // n_cond x N, Green's flux from each conductor to every grid point

	Config nkengine.Config
	Retry  RetryPolicy

	// Limiter, when set, activates the limiter-aware boundary determination
	// (§4.4): if prof also implements profile.SplitProfile, Solve routes the
	// boundary flux through core_mask_limiter instead of letting the profile
	// resolve its own separatrix/edge estimate.
	Limiter *limiter.Mask
}

// New builds a solver for a fixed grid and machine.
func New(g *grid.Grid, m *machine.Machine) *Solver {
	s := &Solver{
		Grid:     g,
		Machine:  m,
		boundary: grid.NewBoundaryResponse(g),
		inner:    newInnerSolver(g),
		Config:   nkengine.DefaultConfig(),
		Retry:    DefaultRetryPolicy(),
	}
	s.condToGrid = buildCondToGrid(g, m)
	return s
}

func buildCondToGrid(g *grid.Grid, m *machine.Machine) *mat.Dense {
	n := m.NConductors()
	out := mat.NewDense(n, g.N(), nil)
	for c, cond := range m.Conductors {
		for k := 0; k < g.N(); k++ {
			r, z := g.RZ(k)
			var flux float64
			for _, f := range cond.Filaments {
				if f.R == r && f.Z == z {
					continue
				}
				flux += f.Turns * grid.GreensFilament(f.R, f.Z, r, z)
			}
			out.Set(c, k, flux)
		}
	}
	return out
}

// tokamakFlux returns psi_tok, the flux produced by the metal conductor
// currents alone, over the full grid.
func (s *Solver) tokamakFlux(conductorCurrents []float64) []float64 {
	v := mat.NewVecDense(len(conductorCurrents), conductorCurrents)
	var out mat.VecDense
	out.MulVec(s.condToGrid.T(), v)
	return out.RawVector().Data
}

// TokamakFlux is the exported form of tokamakFlux, for callers (the
// finite-difference Jacobian builder) that need to reconstruct the total
// flux field outside of a Solve call.
func (s *Solver) TokamakFlux(conductorCurrents []float64) []float64 {
	return s.tokamakFlux(conductorCurrents)
}

// Result is the outcome of Solve.
type Result struct {
	PsiPlasma []float64
	Ip        float64
	CP        profile.CriticalPoints
	Converged bool
	Iters     int
	RelResidual float64
	LimiterFlag bool
}

// resolveJtor evaluates the current density on the full grid total, routing
// through the limiter handler when both a Limiter mask and a SplitProfile
// are available; otherwise it falls back to the profile's own single-call
// Jtor (which resolves its own boundary, diverted or limiter-bound, as
// before).
func (s *Solver) resolveJtor(total []float64, prof profile.Profile) (jtor []float64, cp profile.CriticalPoints, limiterFlag bool) {
	sp, splitOK := prof.(profile.SplitProfile)
	if !splitOK || s.Limiter == nil {
		jtor = prof.Jtor(s.Grid, total, math.NaN())
		return jtor, prof.CriticalPoints(), false
	}

	raw, cp := sp.JtorPart1(s.Grid, total)
	if cp.AxisIndex < 0 {
		return make([]float64, s.Grid.N()), cp, false
	}
	if !cp.HasXpoint {
		// No separatrix at all: the configuration can only be limiter-bound,
		// so there is nothing for core_mask_limiter to decide.
		jtor = sp.JtorPart2(s.Grid, total, raw, cp, math.NaN())
		return jtor, cp, true
	}

	psiXptCandidate := total[cp.XpointIndex]
	divertedCore := limiter.DivertedCore(s.Grid, total, cp.AxisIndex, psiXptCandidate)
	cr := limiter.CoreMaskLimiter(s.Limiter, total, cp.AxisIndex, psiXptCandidate, divertedCore)
	jtor = sp.JtorPart2(s.Grid, total, raw, cp, cr.PsiBoundary)
	return jtor, cp, cr.LimiterFlag
}

// Solve runs the static GS Newton-Krylov loop (spec §4.3 algorithm),
// retrying with a rescaled initial guess per Retry if critical-point
// detection fails, and returning GSNonConvergedError if the outer loop
// exhausts Config.MaxIter without reaching Config.RelTol.
func (s *Solver) Solve(psi0 []float64, conductorCurrents []float64, prof profile.Profile) (Result, error) {
	psiTok := s.tokamakFlux(conductorCurrents)

	residual := func(psiPlasma []float64) []float64 {
		total := make([]float64, len(psiPlasma))
		for i := range total {
			total[i] = psiPlasma[i] + psiTok[i]
		}
		jtor, _, _ := s.resolveJtor(total, prof)

		psiB := s.boundary.Apply(jtor)
		rhs := make([]float64, s.Grid.N())
		for i, j := range jtor {
			rhs[i] = -consts.Mu0 * rVal(s.Grid, i) * j
		}

		psiSolved, err := s.inner.Solve(rhs, psiB)
		if err != nil {
			// Surface the inner failure as a large residual rather than a
			// panic; the outer loop will report non-convergence.
			big := make([]float64, len(psiPlasma))
			for i := range big {
				big[i] = math.Inf(1)
			}
			return big
		}

		out := make([]float64, len(psiPlasma))
		for i := range out {
			out[i] = psiPlasma[i] - psiSolved[i]
		}
		return out
	}

	guess := psi0
	for attempt := 0; attempt < 1+s.Retry.MaxScaleUp+s.Retry.MaxScaleDown+s.Retry.MaxExponent; attempt++ {
		total := make([]float64, len(guess))
		for i := range total {
			total[i] = guess[i] + psiTok[i]
		}
		_, cp, _ := s.resolveJtor(total, prof)
		if cp.AxisIndex >= 0 {
			break
		}
		if attempt == s.Retry.MaxScaleUp+s.Retry.MaxScaleDown+s.Retry.MaxExponent {
			break
		}
		guess = rescaleGuess(guess, attempt, s.Retry)
	}

	res := nkengine.Solve(guess, residual, s.Config)
	ip := 0.0
	totalPsi := make([]float64, len(res.X))
	for i := range totalPsi {
		totalPsi[i] = res.X[i] + psiTok[i]
	}
	jtorFinal, cpFinal, limiterFlag := s.resolveJtor(totalPsi, prof)
	for _, j := range jtorFinal {
		ip += j
	}
	ip *= s.Grid.DRDZ()

	result := Result{PsiPlasma: res.X, Ip: ip, CP: cpFinal, Converged: res.Converged, Iters: res.Iters, RelResidual: res.RelResidual, LimiterFlag: limiterFlag}
	if !res.Converged {
		return result, &GSNonConvergedError{RelResidual: res.RelResidual, Iters: res.Iters}
	}
	return result, nil
}

func rescaleGuess(psi []float64, attempt int, policy RetryPolicy) []float64 {
	out := make([]float64, len(psi))
	switch {
	case attempt < policy.MaxScaleUp:
		for i, v := range psi {
			out[i] = v * 1.5
		}
	case attempt < policy.MaxScaleUp+policy.MaxScaleDown:
		for i, v := range psi {
			out[i] = v / 1.1
		}
	default:
		for i, v := range psi {
			s := 1.0
			if v < 0 {
				s = -1
			}
			out[i] = s * math.Pow(math.Abs(v), 1.05)
		}
	}
	return out
}

func rVal(g *grid.Grid, flatIdx int) float64 {
	r, _ := g.RZ(flatIdx)
	return r
}
