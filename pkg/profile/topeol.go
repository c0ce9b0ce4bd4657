package profile

import (
	"fmt"
	"math"

	"github.com/gsnk/gsnk/pkg/grid"
)

// Topeol is the Fiesta/Topeol profile family: parameters
// {beta0, alpha_m, alpha_n}. Unlike PaxisIp/BetapIp, beta0 is the profile's
// native parameter (no constraint solve needed for it); only the overall
// current-density scale lambda is fit to the Ip target.
type Topeol struct {
	Beta0, AlphaM, AlphaN float64
	Ip                    float64

	cp CriticalPoints
}

func NewTopeol(beta0, alphaM, alphaN, ip float64) *Topeol {
	return &Topeol{Beta0: beta0, AlphaM: alphaM, AlphaN: alphaN, Ip: ip}
}

func (p *Topeol) Tag() string { return TagTopeol }

func (p *Topeol) CriticalPoints() CriticalPoints { return p.cp }

func (p *Topeol) Parameters() map[string]float64 {
	return map[string]float64{"beta0": p.Beta0, "alpha_m": p.AlphaM, "alpha_n": p.AlphaN, "Ip": p.Ip}
}

func (p *Topeol) SetParameter(name string, value float64) error {
	switch name {
	case "beta0":
		p.Beta0 = value
	case "alpha_m":
		p.AlphaM = value
	case "alpha_n":
		p.AlphaN = value
	case "Ip":
		p.Ip = value
	default:
		return fmt.Errorf("profile: topeol has no parameter %q", name)
	}
	return nil
}

func (p *Topeol) Jtor(g *grid.Grid, psi []float64, psiBndry float64) []float64 {
	p.cp = findCriticalPoints(g, psi)
	if p.cp.AxisIndex < 0 {
		return make([]float64, g.N())
	}
	psiAxis := psi[p.cp.AxisIndex]
	if !p.cp.HasXpoint {
		psiBndry = edgeFlux(g, psi)
	} else if math.IsNaN(psiBndry) {
		psiBndry = psi[p.cp.XpointIndex]
	}

	psiN := normalisedPsi(psi, psiAxis, psiBndry)
	a1, a2 := coreIntegrals(g, psiN, p.cp.AxisR, p.AlphaM, p.AlphaN)
	denom := p.Beta0*a1 + (1-p.Beta0)*a2
	var lambda float64
	if denom != 0 {
		lambda = p.Ip / denom
	}

	return jtorField(g, psiN, p.cp.AxisR, lambda, p.Beta0, p.AlphaM, p.AlphaN)
}
