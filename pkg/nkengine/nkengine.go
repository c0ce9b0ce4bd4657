// Package nkengine provides a generic Arnoldi-based Newton-Krylov root
// finder over []float64, shared by the static GS solver and both evolutive
// loops. It builds a Krylov basis from finite-difference directional
// probes of the residual function rather than forming an explicit
// Jacobian, exactly as the reference solver's Arnoldi_iteration/dpsi pair
// does.
package nkengine

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Residual evaluates F(x) for the root problem F(x)=0.
type Residual func(x []float64) []float64

// Config parametrises one outer Newton-Krylov correction (one call to
// arnoldiStep); Solve repeats it until convergence or MaxIter is exhausted.
type Config struct {
	NDirections  int     // max number of Krylov directions per outer iteration (n_k)
	ConvCrit     float64 // stop adding directions once unexplained residual fraction falls below this
	GradEps      float64 // finite-difference step-size scale (grad_eps)
	Clip         float64 // coefficient clipping bound
	RelTol       float64 // outer convergence tolerance on ||F||_inf / range(x)
	MaxIter      int
}

// DefaultConfig mirrors the reference solver's defaults for the static GS
// problem (n_k=8, conv_crit=.15, grad_eps=.5, clip=10, max_iter=30).
func DefaultConfig() Config {
	return Config{NDirections: 8, ConvCrit: 0.15, GradEps: 0.5, Clip: 10, RelTol: 1e-6, MaxIter: 30}
}

// Result reports the outcome of Solve.
type Result struct {
	X         []float64
	Converged bool
	Iters     int
	RelResidual float64
}

// Solve runs the outer Newton-Krylov loop: compute F(x), probe a Krylov
// basis of finite-difference directions, solve the least-squares
// correction, step, repeat until the relative residual falls below
// cfg.RelTol or cfg.MaxIter outer iterations are exhausted.
func Solve(x0 []float64, f Residual, cfg Config) Result {
	x := append([]float64(nil), x0...)
	res := f(x)

	var relResidual float64
	it := 0
	for ; it < cfg.MaxIter; it++ {
		relResidual = relativeResidual(res, x)
		if relResidual < cfg.RelTol {
			return Result{X: x, Converged: true, Iters: it, RelResidual: relResidual}
		}

		dx, newRes := arnoldiStep(x, res, f, cfg)
		for i := range x {
			x[i] += dx[i]
		}
		res = newRes
	}
	relResidual = relativeResidual(res, x)
	return Result{X: x, Converged: relResidual < cfg.RelTol, Iters: it, RelResidual: relResidual}
}

func relativeResidual(res, x []float64) float64 {
	maxAbsRes := 0.0
	for _, r := range res {
		if a := math.Abs(r); a > maxAbsRes {
			maxAbsRes = a
		}
	}
	lo, hi := x[0], x[0]
	for _, v := range x {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	rng := hi - lo
	if rng == 0 {
		return maxAbsRes
	}
	return maxAbsRes / rng
}

// arnoldiStep builds the Krylov basis of finite-difference directions
// (probing along the previous residual and successive orthogonalised
// search directions), solves the least-squares coefficient problem, clips
// the coefficients, and returns the accumulated step dx plus F evaluated at
// x+dx.
func arnoldiStep(x, res []float64, f Residual, cfg Config) (dx []float64, newRes []float64) {
	n := len(x)
	normX := norm(x)
	normRes := norm(res)

	var q [][]float64  // raw probing directions
	var qn [][]float64 // orthonormalised directions
	var g [][]float64  // residual differences G_k = F(x+dx_k) - F(x)

	dir := append([]float64(nil), res...)
	normDir := norm(dir)
	if normDir == 0 {
		return make([]float64, n), res
	}

	for k := 0; k < cfg.NDirections; k++ {
		gradCoeff := cfg.GradEps * normX / normDir * normRes / math.Pow(float64(k+1), 1.2)
		if gradCoeff == 0 || math.IsNaN(gradCoeff) {
			break
		}
		delta := make([]float64, n)
		for i := range delta {
			delta[i] = dir[i] * gradCoeff
		}

		trial := make([]float64, n)
		for i := range trial {
			trial[i] = x[i] + delta[i]
		}
		fTrial := f(trial)
		gk := make([]float64, n)
		for i := range gk {
			gk[i] = fTrial[i] - res[i]
		}

		q = append(q, delta)
		qOrth := orthogonalise(delta, qn)
		qn = append(qn, qOrth)
		g = append(g, gk)

		coeffs, explained := leastSquaresCoeffs(g, res, cfg.Clip)
		unexplained := residualNorm(res, g, coeffs) / normRes
		if unexplained <= cfg.ConvCrit {
			dx = combine(q, coeffs)
			newRes = stepResidual(x, dx, f)
			_ = explained
			return dx, newRes
		}

		// Next probing direction: orthogonalise the current residual
		// against all directions explored so far.
		dir = orthogonalise(res, qn)
		if nd := norm(dir); nd > 1e-300 {
			normDir = nd
		} else {
			break
		}
	}

	coeffs, _ := leastSquaresCoeffs(g, res, cfg.Clip)
	dx = combine(q, coeffs)
	newRes = stepResidual(x, dx, f)
	return dx, newRes
}

func stepResidual(x, dx []float64, f Residual) []float64 {
	trial := make([]float64, len(x))
	for i := range trial {
		trial[i] = x[i] + dx[i]
	}
	return f(trial)
}

// leastSquaresCoeffs solves min||G*c + res||_2 via the normal equations
// (G^T G) c = -G^T res, then clips each coefficient to [-clip, clip].
func leastSquaresCoeffs(g [][]float64, res []float64, clip float64) (coeffs []float64, explained []float64) {
	k := len(g)
	n := len(res)
	gm := mat.NewDense(n, k, nil)
	for j, col := range g {
		for i := 0; i < n; i++ {
			gm.Set(i, j, col[i])
		}
	}
	var gtg mat.Dense
	gtg.Mul(gm.T(), gm)

	resV := mat.NewVecDense(n, res)
	var gtRes mat.VecDense
	gtRes.MulVec(gm.T(), resV)
	gtRes.ScaleVec(-1, &gtRes)

	var lu mat.LU
	lu.Factorize(&gtg)
	var c mat.VecDense
	if err := lu.SolveVecTo(&c, false, &gtRes); err != nil {
		// Degenerate/ill-conditioned basis: fall back to the zero
		// correction rather than amplifying noise.
		coeffs = make([]float64, k)
		return coeffs, make([]float64, n)
	}

	coeffs = make([]float64, k)
	for j := 0; j < k; j++ {
		v := c.AtVec(j)
		if v > clip {
			v = clip
		} else if v < -clip {
			v = -clip
		}
		coeffs[j] = v
	}

	var explainedV mat.VecDense
	explainedV.MulVec(gm, mat.NewVecDense(k, coeffs))
	explained = explainedV.RawVector().Data
	return coeffs, explained
}

func residualNorm(res []float64, g [][]float64, coeffs []float64) float64 {
	n := len(res)
	explained := make([]float64, n)
	for j, col := range g {
		for i := 0; i < n; i++ {
			explained[i] += col[i] * coeffs[j]
		}
	}
	var s float64
	for i := 0; i < n; i++ {
		r := res[i] + explained[i]
		s += r * r
	}
	return math.Sqrt(s)
}

func combine(dirs [][]float64, coeffs []float64) []float64 {
	if len(dirs) == 0 {
		return nil
	}
	n := len(dirs[0])
	out := make([]float64, n)
	for j, d := range dirs {
		for i := 0; i < n; i++ {
			out[i] += d[i] * coeffs[j]
		}
	}
	return out
}

// orthogonalise returns v with the component along every vector in basis
// removed (classical Gram-Schmidt) and re-normalised to unit length.
func orthogonalise(v []float64, basis [][]float64) []float64 {
	w := append([]float64(nil), v...)
	for _, b := range basis {
		nb := norm(b)
		if nb == 0 {
			continue
		}
		proj := dot(w, b) / (nb * nb)
		for i := range w {
			w[i] -= proj * b[i]
		}
	}
	nw := norm(w)
	if nw > 1e-300 {
		for i := range w {
			w[i] /= nw
		}
	}
	return w
}

func norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
