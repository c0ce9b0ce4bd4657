package profile

import (
	"fmt"
	"math"

	"github.com/gsnk/gsnk/pkg/grid"
)

// BetapIp is the poloidal-beta + plasma-current profile family: parameters
// {betap, alpha_m, alpha_n}. betap is converted to an equivalent on-axis
// pressure via the standard approximate relation betap ~ 8*pi*<p>*a/(mu0*Ip^2)
// with <p> ~ paxis/2 for a peaked profile, then reuses the paxis+Ip solve.
type BetapIp struct {
	Betap, AlphaM, AlphaN float64
	Ip                    float64

	cp CriticalPoints
}

func NewBetapIp(betap, alphaM, alphaN, ip float64) *BetapIp {
	return &BetapIp{Betap: betap, AlphaM: alphaM, AlphaN: alphaN, Ip: ip}
}

func (p *BetapIp) Tag() string { return TagBetapIp }

func (p *BetapIp) CriticalPoints() CriticalPoints { return p.cp }

func (p *BetapIp) Parameters() map[string]float64 {
	return map[string]float64{"betap": p.Betap, "alpha_m": p.AlphaM, "alpha_n": p.AlphaN, "Ip": p.Ip}
}

func (p *BetapIp) SetParameter(name string, value float64) error {
	switch name {
	case "betap":
		p.Betap = value
	case "alpha_m":
		p.AlphaM = value
	case "alpha_n":
		p.AlphaN = value
	case "Ip":
		p.Ip = value
	default:
		return fmt.Errorf("profile: betap_ip has no parameter %q", name)
	}
	return nil
}

func (p *BetapIp) Jtor(g *grid.Grid, psi []float64, psiBndry float64) []float64 {
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

	a := plasmaMinorRadius(g, psi, psiAxis, psiBndry)
	const mu0 = 1.25663706212e-6
	const pi = 3.14159265358979
	paxisEquiv := 0.0
	if a > 0 {
		paxisEquiv = p.Betap * mu0 * p.Ip * p.Ip / (4 * pi * a)
	}

	psiN := normalisedPsi(psi, psiAxis, psiBndry)
	a1, a2 := coreIntegrals(g, psiN, p.cp.AxisR, p.AlphaM, p.AlphaN)
	avgS := avgShape(p.AlphaM, p.AlphaN)
	lambda, beta0 := solveLambdaBeta0(p.Ip, paxisEquiv, a1, a2, psiBndry-psiAxis, p.cp.AxisR, avgS)

	return jtorField(g, psiN, p.cp.AxisR, lambda, beta0, p.AlphaM, p.AlphaN)
}

// plasmaMinorRadius estimates the plasma minor radius as half the R-extent
// of the region with psiN in [0,1] along the grid's middle row (a proxy for
// the equatorial plane).
func plasmaMinorRadius(g *grid.Grid, psi []float64, psiAxis, psiBndry float64) float64 {
	denom := psiBndry - psiAxis
	if denom == 0 {
		return 0
	}
	var rmin, rmax float64
	found := false
	for j := 0; j < g.Nx; j++ {
		// Use the mid row as a proxy for the equatorial plane.
		i := g.Ny / 2
		k := g.Index(i, j)
		psiN := (psi[k] - psiAxis) / denom
		if psiN >= 0 && psiN <= 1 {
			r := g.R(j)
			if !found {
				rmin, rmax = r, r
				found = true
			}
			if r < rmin {
				rmin = r
			}
			if r > rmax {
				rmax = r
			}
		}
	}
	if !found {
		return 0
	}
	return (rmax - rmin) / 2
}
