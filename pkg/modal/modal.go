// Package modal reduces the passive-structure filament currents to a small
// set of normal modes ranked by decay timescale, via the generalised
// eigenproblem R_met*P = M*P*Lambda on the passive block.
package modal

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Basis is the change-of-basis between passive filament currents and modal
// currents: I_filament = P * I_mode. The active block is carried as an
// identity and is not part of the reduced passive dimension.
type Basis struct {
	P      *mat.Dense // n_passive x n_keep
	Pinv   *mat.Dense // n_keep x n_passive (left-inverse, P^T*M since P is M-orthonormal)
	Lambda []float64  // n_keep decay rates, ascending
	NKeep  int
}

// Reduce solves R_met*P = M*P*Lambda restricted to the passive block
// (mPassive, rPassive), keeping only modes with Lambda <= omegaMax, then
// further dropping modes whose influence on the plasma coupling column
// influence[k] falls below minDIyDI (spec's further-pruning rule). influence
// may be nil to skip the second pruning stage.
func Reduce(mPassive *mat.SymDense, rPassive []float64, omegaMax float64, influence []float64, minDIyDI float64) (*Basis, error) {
	n := mPassive.SymmetricDim()
	if len(rPassive) != n {
		return nil, fmt.Errorf("modal: R_met length %d does not match M dimension %d", len(rPassive), n)
	}

	// M is SPD (machine invariant); whiten via Cholesky so the generalised
	// problem R*P = M*P*Lambda reduces to a standard symmetric eigenproblem:
	// let M = L*L^T, y = L^T*x, then R*x = lambda*M*x becomes
	// (L^-1 * R * L^-T) * y = lambda * y, a plain symmetric eigenproblem —
	// the lighter path available because R_met is diagonal, hence
	// symmetric, wherever a general non-symmetric QZ reduction would
	// otherwise be required.
	var chol mat.Cholesky
	if ok := chol.Factorize(mPassive); !ok {
		return nil, fmt.Errorf("modal: passive-block M is not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)

	rDiag := mat.NewDiagDense(n, rPassive)

	var linv mat.Dense
	if err := linv.Inverse(&l); err != nil {
		return nil, fmt.Errorf("modal: Cholesky factor not invertible: %v", err)
	}

	var tmp mat.Dense
	tmp.Mul(&linv, rDiag)
	var a mat.Dense
	a.Mul(&tmp, linv.T())

	aSym := symmetrize(&a, n)

	var eig mat.EigenSym
	if ok := eig.Factorize(aSym, true); !ok {
		return nil, fmt.Errorf("modal: eigendecomposition of reduced system failed")
	}

	lambda := eig.Values(nil)
	var evec mat.Dense
	eig.VectorsTo(&evec)

	type mode struct {
		lambda float64
		y       []float64
	}
	modes := make([]mode, n)
	for k := 0; k < n; k++ {
		y := make([]float64, n)
		for i := 0; i < n; i++ {
			y[i] = evec.At(i, k)
		}
		modes[k] = mode{lambda: lambda[k], y: y}
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i].lambda < modes[j].lambda })

	var kept []mode
	for _, m := range modes {
		if m.lambda <= omegaMax {
			kept = append(kept, m)
		}
	}
	if influence != nil {
		var filtered []mode
		for _, m := range kept {
			// x = L^-T * y maps whitened eigenvector back to filament space;
			// project the supplied per-filament influence vector onto it.
			x := make([]float64, n)
			for i := 0; i < n; i++ {
				var s float64
				for j := 0; j < n; j++ {
					s += linv.At(j, i) * m.y[j]
				}
				x[i] = s
			}
			var infl float64
			for i := 0; i < n; i++ {
				infl += influence[i] * x[i]
			}
			if abs(infl) >= minDIyDI {
				filtered = append(filtered, m)
			}
		}
		kept = filtered
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("modal: no modes survived frequency/influence pruning")
	}

	p := mat.NewDense(n, len(kept), nil)
	lam := make([]float64, len(kept))
	for k, m := range kept {
		lam[k] = m.lambda
		for i := 0; i < n; i++ {
			var s float64
			for j := 0; j < n; j++ {
				s += linv.At(j, i) * m.y[j]
			}
			p.Set(i, k, s)
		}
	}

	// P columns are M-orthogonal by construction (whitened eigenvectors are
	// orthonormal), so the left-inverse is P^T * M.
	var pInv mat.Dense
	pInv.Mul(p.T(), mPassive)

	return &Basis{P: p, Pinv: &pInv, Lambda: lam, NKeep: len(kept)}, nil
}

func symmetrize(a *mat.Dense, n int) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return s
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// FilamentToMode maps filament currents to modal currents: I_mode = Pinv * I_filament.
func (b *Basis) FilamentToMode(iFil []float64) []float64 {
	v := mat.NewVecDense(len(iFil), iFil)
	var out mat.VecDense
	out.MulVec(b.Pinv, v)
	return out.RawVector().Data
}

// ModeToFilament maps modal currents back to filament currents: I_filament = P * I_mode.
func (b *Basis) ModeToFilament(iMode []float64) []float64 {
	v := mat.NewVecDense(len(iMode), iMode)
	var out mat.VecDense
	out.MulVec(b.P, v)
	return out.RawVector().Data
}
