// Package euler implements the sub-stepped implicit-Euler solver for the
// linear circuit ODE M*Idot + R*I = F with constant M, R and F over a full
// timestep, caching the inverse operator between matrix changes the way the
// teacher's BDF coefficient table is built once and reused every stamp.
package euler

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Stepper advances I(t) under M*Idot + R*I = F by repeated sub-steps of
// size InternalTimestep, using the cached InverseOperator = (I + h*M^-1*R)^-1.
type Stepper struct {
	m, r *mat.Dense // n x n
	mInv *mat.Dense

	fullTimestep        float64
	maxInternalTimestep float64
	internalTimestep    float64
	nSteps              int

	inverseOperator *mat.Dense
}

// NewStepper builds a stepper for the given M and R matrices; both must be
// square of the same dimension and M must be invertible.
func NewStepper(m, r *mat.Dense, fullTimestep, maxInternalTimestep float64) (*Stepper, error) {
	mr, mc := m.Dims()
	if mr != mc {
		return nil, fmt.Errorf("euler: M must be square, got %dx%d", mr, mc)
	}
	rr, rc := r.Dims()
	if rr != mr || rc != mc {
		return nil, fmt.Errorf("euler: R dims %dx%d do not match M dims %dx%d", rr, rc, mr, mc)
	}

	mInv := mat.NewDense(mr, mr, nil)
	if err := mInv.Inverse(m); err != nil {
		return nil, fmt.Errorf("euler: M is singular: %v", err)
	}

	s := &Stepper{m: m, r: r, mInv: mInv}
	if err := s.SetTimesteps(fullTimestep, maxInternalTimestep); err != nil {
		return nil, err
	}
	return s, nil
}

// SetM replaces the M matrix (e.g. after a passive-resistivity reset) and
// recomputes the cached inverse operator.
func (s *Stepper) SetM(m *mat.Dense) error {
	n, _ := m.Dims()
	mInv := mat.NewDense(n, n, nil)
	if err := mInv.Inverse(m); err != nil {
		return fmt.Errorf("euler: M is singular: %v", err)
	}
	s.m, s.mInv = m, mInv
	return s.calcInverseOperator()
}

// SetR replaces the R matrix and recomputes the cached inverse operator.
func (s *Stepper) SetR(r *mat.Dense) error {
	s.r = r
	return s.calcInverseOperator()
}

// SetTimesteps recomputes the sub-step count and cached inverse operator for
// a (possibly new) full timestep and internal step cap.
func (s *Stepper) SetTimesteps(fullTimestep, maxInternalTimestep float64) error {
	if fullTimestep <= 0 || maxInternalTimestep <= 0 {
		return fmt.Errorf("euler: timesteps must be positive, got full=%g max_internal=%g", fullTimestep, maxInternalTimestep)
	}
	s.fullTimestep = fullTimestep
	s.maxInternalTimestep = maxInternalTimestep
	s.nSteps = int(fullTimestep/maxInternalTimestep + 0.999)
	if s.nSteps < 1 {
		s.nSteps = 1
	}
	s.internalTimestep = fullTimestep / float64(s.nSteps)
	return s.calcInverseOperator()
}

func (s *Stepper) calcInverseOperator() error {
	n, _ := s.m.Dims()
	var mInvR mat.Dense
	mInvR.Mul(s.mInv, s.r)
	mInvR.Scale(s.internalTimestep, &mInvR)

	eye := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		eye.Set(i, i, 1)
	}
	var sum mat.Dense
	sum.Add(eye, &mInvR)

	inv := mat.NewDense(n, n, nil)
	if err := inv.Inverse(&sum); err != nil {
		return fmt.Errorf("euler: (I + h*M^-1*R) is singular: %v", err)
	}
	s.inverseOperator = inv
	return nil
}

// internalStep advances It by one internal_timestep, given the already
// M-inverted forcing term Mm1forcing: I(t+h) = inverseOperator*(Mm1forcing*h + It).
func (s *Stepper) internalStep(it, mm1forcing []float64) []float64 {
	n := len(it)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, mm1forcing[i]*s.internalTimestep+it[i])
	}
	var out mat.VecDense
	out.MulVec(s.inverseOperator, rhs)
	return out.RawVector().Data
}

// FullStep advances It by the full timestep, sub-stepping n_steps times with
// the constant forcing vector F.
func (s *Stepper) FullStep(it, forcing []float64) []float64 {
	n := len(forcing)
	fv := mat.NewVecDense(n, forcing)
	var mm1f mat.VecDense
	mm1f.MulVec(s.mInv, fv)
	mm1forcing := mm1f.RawVector().Data

	cur := append([]float64(nil), it...)
	for k := 0; k < s.nSteps; k++ {
		cur = s.internalStep(cur, mm1forcing)
	}
	return cur
}

// ExactDecay returns exp(-M^-1*R*t)*I0 for the homogeneous system (F=0),
// evaluated via the matrix exponential of -M^-1*R*t; used by callers
// validating the first-order convergence of FullStep against the analytic
// solution (Testable Property 5).
func ExactDecay(m, r *mat.Dense, i0 []float64, t float64) ([]float64, error) {
	n, _ := m.Dims()
	mInv := mat.NewDense(n, n, nil)
	if err := mInv.Inverse(m); err != nil {
		return nil, fmt.Errorf("euler: M is singular: %v", err)
	}
	var a mat.Dense
	a.Mul(mInv, r)
	a.Scale(-t, &a)

	var expA mat.Dense
	expA.Exp(&a)

	i0v := mat.NewVecDense(n, i0)
	var out mat.VecDense
	out.MulVec(&expA, i0v)
	return out.RawVector().Data, nil
}
