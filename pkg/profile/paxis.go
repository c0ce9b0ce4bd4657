package profile

import (
	"fmt"
	"math"

	"github.com/gsnk/gsnk/pkg/grid"
)

// PaxisIp is the pressure-on-axis + plasma-current profile family:
// parameters {paxis, alpha_m, alpha_n}. The current-density scale lambda
// and core/edge mixing beta0 are solved at each Jtor evaluation from the
// pair of constraints (Ip, paxis).
type PaxisIp struct {
	Paxis, AlphaM, AlphaN float64
	Ip                    float64

	cp CriticalPoints
}

// NewPaxisIp constructs a profile targeting total plasma current ip.
func NewPaxisIp(paxis, alphaM, alphaN, ip float64) *PaxisIp {
	return &PaxisIp{Paxis: paxis, AlphaM: alphaM, AlphaN: alphaN, Ip: ip}
}

func (p *PaxisIp) Tag() string { return TagPaxisIp }

func (p *PaxisIp) CriticalPoints() CriticalPoints { return p.cp }

func (p *PaxisIp) Parameters() map[string]float64 {
	return map[string]float64{"paxis": p.Paxis, "alpha_m": p.AlphaM, "alpha_n": p.AlphaN, "Ip": p.Ip}
}

func (p *PaxisIp) SetParameter(name string, value float64) error {
	switch name {
	case "paxis":
		p.Paxis = value
	case "alpha_m":
		p.AlphaM = value
	case "alpha_n":
		p.AlphaN = value
	case "Ip":
		p.Ip = value
	default:
		return fmt.Errorf("profile: paxis_ip has no parameter %q", name)
	}
	return nil
}

func (p *PaxisIp) Jtor(g *grid.Grid, psi []float64, psiBndry float64) []float64 {
	raw, cp := p.JtorPart1(g, psi)
	if cp.AxisIndex < 0 {
		return raw
	}
	if math.IsNaN(psiBndry) {
		if cp.HasXpoint {
			psiBndry = psi[cp.XpointIndex]
		} else {
			psiBndry = edgeFlux(g, psi)
		}
	}
	return p.JtorPart2(g, psi, raw, cp, psiBndry)
}

// JtorPart1 locates the critical points for the given flux field, the first
// stage of the limiter-aware split: it stops short of committing to a
// boundary flux, so a limiter handler can intervene between this call and
// JtorPart2 to decide the diverted-vs-limiter-contact boundary.
func (p *PaxisIp) JtorPart1(g *grid.Grid, psi []float64) (raw []float64, cp CriticalPoints) {
	cp = findCriticalPoints(g, psi)
	p.cp = cp
	if cp.AxisIndex < 0 {
		return make([]float64, g.N()), cp
	}
	return psi, cp
}

// JtorPart2 finishes the Jtor assembly once psiBndry has been settled (by
// the caller directly, or by a limiter handler working from JtorPart1's
// critical points). A NaN psiBndry falls back to the limiter-bound edge-flux
// estimate, the same default Jtor uses when no X-point is present.
func (p *PaxisIp) JtorPart2(g *grid.Grid, psi []float64, raw []float64, cp CriticalPoints, psiBndry float64) []float64 {
	p.cp = cp
	if cp.AxisIndex < 0 {
		return make([]float64, g.N())
	}
	if math.IsNaN(psiBndry) {
		psiBndry = edgeFlux(g, psi)
	}

	psiAxis := raw[cp.AxisIndex]
	psiN := normalisedPsi(raw, psiAxis, psiBndry)
	a1, a2 := coreIntegrals(g, psiN, cp.AxisR, p.AlphaM, p.AlphaN)
	avgS := avgShape(p.AlphaM, p.AlphaN)
	lambda, beta0 := solveLambdaBeta0(p.Ip, p.Paxis, a1, a2, psiBndry-psiAxis, cp.AxisR, avgS)

	return jtorField(g, psiN, cp.AxisR, lambda, beta0, p.AlphaM, p.AlphaN)
}

// edgeFlux returns the minimum psi value on the boundary ring as a fallback
// boundary flux when no X-point is present (i.e. a limiter-bound guess
// before the limiter handler has settled the true contact point).
func edgeFlux(g *grid.Grid, psi []float64) float64 {
	idx := g.BoundaryIndices()
	if len(idx) == 0 {
		return 0
	}
	v := psi[idx[0]]
	for _, k := range idx[1:] {
		if psi[k] < v {
			v = psi[k]
		}
	}
	return v
}
