package evolve

import (
	"math"

	"github.com/gsnk/gsnk/pkg/gsolve"
	"github.com/gsnk/gsnk/pkg/machine"
	"github.com/gsnk/gsnk/pkg/profile"
	"gonum.org/v1/gonum/mat"
)

// IyFunc evaluates the plasma current distribution Iy (sampled at the
// machine's plasma-domain points) for a given extensive current vector,
// by running a static GS solve at tight tolerance.
type IyFunc func(i []float64) (iy []float64, psi []float64, err error)

// Jacobian is dIy/dI at a single reference extensive-current state: a
// dense matrix of n_plasma_pts rows by Layout.Dim() columns.
type Jacobian struct {
	Ref    []float64
	Iy0    []float64
	Matrix *mat.Dense
}

// BuildLinearizationConfig parametrises build_linearization's two-stage
// finite-difference column construction.
type BuildLinearizationConfig struct {
	StartStep   float64 // initial probing step size delta_I_j^0
	TargetDIy   float64 // target ||delta Iy|| / ||Iy|| for the rescaled step
	MinStep     float64
	MaxStep     float64
}

func DefaultBuildLinearizationConfig() BuildLinearizationConfig {
	return BuildLinearizationConfig{StartStep: 1e-3, TargetDIy: 1e-3, MinStep: 1e-8, MaxStep: 1e3}
}

// BuildLinearization constructs the Jacobian dIy/dI around ref by, for each
// independent current index j: probing with StartStep, measuring ||dIy||,
// rescaling to the target relative change (clipped to [MinStep,MaxStep]),
// then recording the column from a second GS solve at the rescaled step.
func BuildLinearization(ref []float64, iy0 []float64, f IyFunc, cfg BuildLinearizationConfig) (*Jacobian, error) {
	n := len(ref)
	m := len(iy0)
	jac := mat.NewDense(m, n, nil)
	normIy0 := norm(iy0)

	for j := 0; j < n; j++ {
		probe := append([]float64(nil), ref...)
		probe[j] += cfg.StartStep
		iyProbe, _, err := f(probe)
		if err != nil {
			return nil, err
		}
		dIyNorm := diffNorm(iyProbe, iy0)

		step := cfg.StartStep
		if dIyNorm > 0 && normIy0 > 0 {
			step = cfg.StartStep * (cfg.TargetDIy * normIy0) / dIyNorm
		}
		if step < cfg.MinStep {
			step = cfg.MinStep
		}
		if step > cfg.MaxStep {
			step = cfg.MaxStep
		}
		if math.IsNaN(step) || step == 0 {
			step = cfg.StartStep
		}

		probe2 := append([]float64(nil), ref...)
		probe2[j] += step
		iyProbe2, _, err := f(probe2)
		if err != nil {
			return nil, err
		}
		for i := 0; i < m; i++ {
			jac.Set(i, j, (iyProbe2[i]-iy0[i])/step)
		}
	}

	return &Jacobian{Ref: ref, Iy0: iy0, Matrix: jac}, nil
}

// Predict linearly extrapolates Iy(I) ~= Iy0 + J*(I-Iref).
func (j *Jacobian) Predict(i []float64) []float64 {
	n := len(i)
	delta := make([]float64, n)
	for k := 0; k < n; k++ {
		delta[k] = i[k] - j.Ref[k]
	}
	dv := mat.NewVecDense(n, delta)
	var dIy mat.VecDense
	dIy.MulVec(j.Matrix, dv)

	out := make([]float64, len(j.Iy0))
	for k := range out {
		out[k] = j.Iy0[k] + dIy.AtVec(k)
	}
	return out
}

// MakeIyFunc builds an IyFunc backed by a real GS solve at tight
// tolerance, the way build_linearization's intermediate solves do.
func MakeIyFunc(s *gsolve.Solver, l *Layout, m *machine.Machine, prof profile.Profile, psiGuess []float64, tightTol float64) IyFunc {
	return func(i []float64) ([]float64, []float64, error) {
		filCurrents, ip := l.ToFilamentCurrents(i, m.NConductors())
		_ = ip
		cfg := s.Config
		cfg.RelTol = tightTol
		saved := s.Config
		s.Config = cfg
		res, err := s.Solve(psiGuess, filCurrents, prof)
		s.Config = saved
		if err != nil {
			// A non-converged tight-tolerance probe is still usable for a
			// finite-difference column; only propagate if we got no result
			// at all.
			if res.PsiPlasma == nil {
				return nil, nil, err
			}
		}

		tok := s.TokamakFlux(filCurrents)
		total := make([]float64, len(res.PsiPlasma))
		for k := range total {
			total[k] = res.PsiPlasma[k] + tok[k]
		}
		jtor := prof.Jtor(m.Grid, total, math.NaN())
		iy := sampleAt(jtor, m.PlasmaPts)
		return iy, res.PsiPlasma, nil
	}
}

func sampleAt(field []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = field[i]
	}
	return out
}

func norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func diffNorm(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}
