package profile

import (
	"fmt"
	"math"

	"github.com/gsnk/gsnk/pkg/grid"
)

// Lao85 is the Lao 1985 profile family: parameters {alpha, beta}, single
// linear-in-psiN terms for pprime and ffprime (pprime ~ alpha*(1-psiN),
// ffprime ~ beta*(1-psiN)) scaled to match the target plasma current.
// Unlike the other three families, changing a parameter requires
// re-initialisation (RequiresReinit): SetParameter sets the NeedsReinit flag
// and Reinitialise clears it. Jtor itself does not consult the flag.
type Lao85 struct {
	Alpha, Beta float64
	Ip          float64

	cp        CriticalPoints
	needsInit bool
}

func NewLao85(alpha, beta, ip float64) *Lao85 {
	return &Lao85{Alpha: alpha, Beta: beta, Ip: ip, needsInit: true}
}

func (p *Lao85) Tag() string { return TagLao85 }

func (p *Lao85) CriticalPoints() CriticalPoints { return p.cp }

func (p *Lao85) Parameters() map[string]float64 {
	return map[string]float64{"alpha": p.Alpha, "beta": p.Beta, "Ip": p.Ip}
}

func (p *Lao85) SetParameter(name string, value float64) error {
	switch name {
	case "alpha":
		p.Alpha = value
	case "beta":
		p.Beta = value
	case "Ip":
		p.Ip = value
	default:
		return fmt.Errorf("profile: lao85 has no parameter %q", name)
	}
	p.needsInit = true
	return nil
}

// Reinitialise clears the re-initialisation flag; callers (check_and_change_profiles)
// must call this after SetParameter before the next Jtor, per the family's
// external-interface contract.
func (p *Lao85) Reinitialise() { p.needsInit = false }

func (p *Lao85) NeedsReinit() bool { return p.needsInit }

func (p *Lao85) Jtor(g *grid.Grid, psi []float64, psiBndry float64) []float64 {
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
	denom := psiBndry - psiAxis
	if denom == 0 {
		return make([]float64, g.N())
	}

	const mu0 = 1.25663706212e-6
	dRdZ := g.DRDZ()

	raw := make([]float64, g.N())
	var unscaled float64
	for k := 0; k < g.N(); k++ {
		psiN := (psi[k] - psiAxis) / denom
		if psiN < 0 || psiN > 1 {
			continue
		}
		r, _ := g.RZ(k)
		pprime := p.Alpha * (1 - psiN)
		ffprime := p.Beta * (1 - psiN)
		j := r*pprime + ffprime/(mu0*r)
		raw[k] = j
		unscaled += j * dRdZ
	}
	if unscaled == 0 {
		return raw
	}
	scale := p.Ip / unscaled
	for k := range raw {
		raw[k] *= scale
	}
	return raw
}
