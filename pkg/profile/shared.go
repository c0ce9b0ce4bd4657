package profile

import (
	"math"

	"github.com/gsnk/gsnk/pkg/grid"
)

// shape is the common core profile shape function used by all four
// families: (1-psiN^alpha_m)^alpha_n inside the plasma (0<=psiN<=1), zero
// outside.
func shape(psiN, alphaM, alphaN float64) float64 {
	if psiN < 0 || psiN > 1 {
		return 0
	}
	base := 1 - math.Pow(psiN, alphaM)
	if base < 0 {
		base = 0
	}
	return math.Pow(base, alphaN)
}

// avgShape numerically integrates shape(psiN) over psiN in [0,1] with a
// fixed quadrature resolution; used to relate the on-axis pressure
// constraint to the (lambda, beta0) current-density scaling.
func avgShape(alphaM, alphaN float64) float64 {
	const nSamples = 64
	var sum float64
	for i := 0; i < nSamples; i++ {
		psiN := (float64(i) + 0.5) / nSamples
		sum += shape(psiN, alphaM, alphaN)
	}
	return sum / nSamples
}

// normalisedPsi computes psiN = (psi-psiAxis)/(psiBndry-psiAxis) pointwise,
// returning NaN outside a sane denominator (caller must already have found
// psiAxis/psiBndry).
func normalisedPsi(psi []float64, psiAxis, psiBndry float64) []float64 {
	out := make([]float64, len(psi))
	denom := psiBndry - psiAxis
	for i, v := range psi {
		if denom == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - psiAxis) / denom
	}
	return out
}

// coreIntegrals computes A1=sum(R/Raxis*shape*dRdZ), A2=sum(Raxis/R*shape*dRdZ)
// over the grid, given the normalised flux field.
func coreIntegrals(g *grid.Grid, psiN []float64, raxis, alphaM, alphaN float64) (a1, a2 float64) {
	dRdZ := g.DRDZ()
	for k := 0; k < g.N(); k++ {
		s := shape(psiN[k], alphaM, alphaN)
		if s == 0 {
			continue
		}
		r, _ := g.RZ(k)
		a1 += (r / raxis) * s * dRdZ
		a2 += (raxis / r) * s * dRdZ
	}
	return a1, a2
}

// jtorField assembles Jtor(R,Z) = lambda*(beta0*R/Raxis + (1-beta0)*Raxis/R) * shape(psiN).
func jtorField(g *grid.Grid, psiN []float64, raxis, lambda, beta0, alphaM, alphaN float64) []float64 {
	out := make([]float64, g.N())
	for k := 0; k < g.N(); k++ {
		s := shape(psiN[k], alphaM, alphaN)
		if s == 0 {
			continue
		}
		r, _ := g.RZ(k)
		out[k] = lambda * (beta0*(r/raxis) + (1-beta0)*(raxis/r)) * s
	}
	return out
}

// solveLambdaBeta0 solves the 2x2 linear system for (lambda, lambda*beta0)
// given the total-current constraint Ip = lambda*(beta0*A1+(1-beta0)*A2) and
// the on-axis-pressure constraint paxis = lambda*beta0*(psiBndry-psiAxis)/Raxis*avgS,
// returning (lambda, beta0).
func solveLambdaBeta0(ip, paxis, a1, a2, psiSpan, raxis, avgS float64) (lambda, beta0 float64) {
	// Let x = lambda*beta0, y = lambda*(1-beta0) = lambda - x.
	// Ip = x*A1 + y*A2 = x*A1 + (lambda-x)*A2  =>  Ip = lambda*A2 + x*(A1-A2)
	// paxis = x*psiSpan/Raxis*avgS  =>  x = paxis*Raxis/(psiSpan*avgS)
	if psiSpan == 0 || avgS == 0 {
		return 0, 0.5
	}
	x := paxis * raxis / (psiSpan * avgS)
	if a2 == 0 {
		return 0, 0.5
	}
	lambda = (ip - x*(a1-a2)) / a2
	if lambda == 0 {
		return 0, 0.5
	}
	beta0 = x / lambda
	return lambda, beta0
}

func totalCurrent(g *grid.Grid, jtor []float64) float64 {
	dRdZ := g.DRDZ()
	var sum float64
	for _, j := range jtor {
		sum += j
	}
	return sum * dRdZ
}
