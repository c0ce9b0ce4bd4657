package evolve

import (
	"math"

	"github.com/gsnk/gsnk/internal/consts"
	"github.com/gsnk/gsnk/pkg/equilibrium"
	"github.com/gsnk/gsnk/pkg/gsolve"
	"github.com/gsnk/gsnk/pkg/machine"
	"github.com/gsnk/gsnk/pkg/nkengine"
	"github.com/gsnk/gsnk/pkg/profile"
)

// StepperConfig is the nlstepper surface's configuration: the evolutive
// solver's timestep, relaxation and convergence controls (spec §6).
type StepperConfig struct {
	Dt                   float64
	MaxInternalTimestep  float64
	BlendGS              float64 // relaxation applied to each GS sub-solve's flux update, in (0,1]
	MaxCycles            int
	CurrentsRelTol       float64
	GSRelTol             float64
	PlasmaResistivity    float64 // uniform plasma resistivity used for the circuit-row R_p
	InternalInductance   float64 // li, Shafranov-formula normalised internal inductance
	AutomaticTimestep    bool
	MaxAutoTimestepRatio float64 // dt is capped at this multiple of 1/growth_rate when AutomaticTimestep is set
}

func DefaultStepperConfig() StepperConfig {
	return StepperConfig{
		Dt:                   1e-3,
		MaxInternalTimestep:  1e-4,
		BlendGS:              1.0,
		MaxCycles:            10,
		CurrentsRelTol:       consts.DefaultCurrentRelTol,
		GSRelTol:             consts.DefaultGSStepRelTol,
		PlasmaResistivity:    1e-6,
		InternalInductance:   0.8,
		AutomaticTimestep:    false,
		MaxAutoTimestepRatio: 0.1,
	}
}

// Stepper is the non-linear evolutive solver: it advances a durable
// equilibrium.State by one timestep through linear-guess -> outer
// fixed-point loop (GS re-solve, circuit-equation Newton-Krylov on the
// extensive current vector) -> commit (spec §4.9).
type Stepper struct {
	Machine *machine.Machine
	Layout  *Layout
	GS      *gsolve.Solver
	Profile profile.Profile
	Config  StepperConfig

	jacConfig BuildLinearizationConfig
}

func NewStepper(m *machine.Machine, l *Layout, gs *gsolve.Solver, prof profile.Profile, cfg StepperConfig) *Stepper {
	return &Stepper{Machine: m, Layout: l, GS: gs, Profile: prof, Config: cfg, jacConfig: DefaultBuildLinearizationConfig()}
}

// plasmaGeometry estimates (Rp, minor radius) from a current distribution
// sampled at the machine's plasma points, for the Shafranov self-inductance
// formula: Rp is the current-weighted centroid, the minor radius is
// estimated from the area enclosed by points carrying a non-negligible
// share of the current.
func (st *Stepper) plasmaGeometry(hatIy []float64) (rp, minorRadius float64) {
	var rSum float64
	var count float64
	for k, idx := range st.Machine.PlasmaPts {
		r, _ := st.Machine.Grid.RZ(idx)
		rSum += hatIy[k] * r
		if hatIy[k] > 0.05/float64(len(hatIy)) {
			count++
		}
	}
	rp = rSum
	area := count * st.Machine.Grid.DRDZ()
	minorRadius = math.Sqrt(area / math.Pi)
	if minorRadius <= 0 {
		minorRadius = st.Machine.Grid.DR()
	}
	return rp, minorRadius
}

// Advance runs one full timestep of the non-linear evolutive stepper,
// mutating nothing in s until the cycle converges; the caller commits the
// returned state onto s itself (mirrors the source's eq1/eq2 scratch vs.
// durable-state split).
func (st *Stepper) Advance(s *equilibrium.State, activeVoltages map[string]float64) (*equilibrium.State, error) {
	filCurrents0, ip0 := st.currentsFromState(s)
	i0 := st.Layout.FromFilamentCurrents(filCurrents0, ip0)

	hatIy0 := st.normalisedIy(s.PlasmaPsi, filCurrents0)
	rp, minorR := st.plasmaGeometry(hatIy0)
	pl := PlasmaLoopParams{Rp: rp, MinorRadius: minorR, Resistance: st.Config.PlasmaResistivity, InternalInductance: st.Config.InternalInductance}

	ls := BuildLinearSystem(st.Layout, st.Machine, hatIy0, pl)

	dt := st.Config.Dt
	if st.Config.AutomaticTimestep {
		if rate, ok := ls.GrowthRate(); ok {
			capped := st.Config.MaxAutoTimestepRatio / rate
			if capped < dt {
				dt = capped
			}
		} else {
			return nil, &NoInstabilityFoundError{}
		}
	}
	if err := ls.Prepare(dt, st.Config.MaxInternalTimestep); err != nil {
		return nil, err
	}

	forcing := st.forcingVector(activeVoltages)
	iGuess := ls.Step(i0, forcing)

	// Refine the linear guess with the finite-difference Jacobian dIy/dI
	// (§4.7): predict the plasma current distribution at iGuess without a
	// fresh GS solve, and rebuild the linear system around that predicted
	// hatIy before entering the outer fixed-point loop. A probe that returns
	// an error just keeps the unrefined guess (a GS probe that does not
	// converge but still yields a flux is used as is, see MakeIyFunc).
	if jac, err := st.buildJacobian(s, i0); err == nil {
		if hatPred := normaliseIy(jac.Predict(iGuess)); hatPred != nil {
			rpPred, minorRPred := st.plasmaGeometry(hatPred)
			plPred := pl
			plPred.Rp, plPred.MinorRadius = rpPred, minorRPred
			lsPred := BuildLinearSystem(st.Layout, st.Machine, hatPred, plPred)
			if err := lsPred.Prepare(dt, st.Config.MaxInternalTimestep); err == nil {
				iGuess = lsPred.Step(i0, forcing)
			}
		}
	}

	psiGuess := append([]float64(nil), s.PlasmaPsi...)
	var lastGSResidual, lastCurrentsResidual float64
	var finalRes gsolve.Result

	for cycle := 0; cycle < st.Config.MaxCycles; cycle++ {
		filCurrents, _ := st.Layout.ToFilamentCurrents(iGuess, st.Machine.NConductors())

		res, gsErr := st.GS.Solve(psiGuess, filCurrents, st.Profile)
		if gsErr != nil {
			if _, ok := gsErr.(*gsolve.GSNonConvergedError); !ok {
				return nil, gsErr
			}
		}
		lastGSResidual = res.RelResidual
		finalRes = res

		blend := st.Config.BlendGS
		if blend <= 0 {
			blend = 1
		}
		for k := range psiGuess {
			psiGuess[k] += blend * (res.PsiPlasma[k] - psiGuess[k])
		}

		hatIy := st.normalisedIy(psiGuess, filCurrents)
		rp, minorR := st.plasmaGeometry(hatIy)
		pl.Rp, pl.MinorRadius = rp, minorR

		// Outer current update per §4.9.3c: run Newton-Krylov on
		// F_I(I) = simplified_solver_J1(I) - I, the fixed point of the J1
		// simplified solver's one-shot linear step from I under the
		// contracted (box-blurred) plasma coupling, rather than hand-rolling
		// the implicit-Euler circuit residual directly.
		simp := NewSimplifiedSolver(DefaultSimplifiedConfig())
		j1Residual := func(i []float64) []float64 {
			next, err := simp.Step(st.Layout, st.Machine, hatIy, pl, dt, st.Config.MaxInternalTimestep, i, forcing)
			if err != nil {
				big := make([]float64, len(i))
				for k := range big {
					big[k] = math.Inf(1)
				}
				return big
			}
			out := make([]float64, len(i))
			for k := range out {
				out[k] = next[k] - i[k]
			}
			return out
		}

		nkCfg := nkengine.DefaultConfig()
		nkCfg.RelTol = st.Config.CurrentsRelTol
		result := nkengine.Solve(iGuess, j1Residual, nkCfg)
		lastCurrentsResidual = result.RelResidual

		currentsDelta := diffNorm(result.X, iGuess) / math.Max(norm(iGuess), 1e-300)
		iGuess = result.X

		if currentsDelta < st.Config.CurrentsRelTol && lastGSResidual < st.Config.GSRelTol {
			break
		}
	}

	if lastCurrentsResidual >= st.Config.CurrentsRelTol || lastGSResidual >= st.Config.GSRelTol {
		return nil, &StepperNonConvergedError{Cycles: st.Config.MaxCycles, CurrentsResidual: lastCurrentsResidual, GSResidual: lastGSResidual}
	}

	filFinal, ipFinal := st.Layout.ToFilamentCurrents(iGuess, st.Machine.NConductors())
	coilCurrents := make(map[string]float64, len(st.Machine.Conductors))
	for idx, c := range st.Machine.Conductors {
		if c.Kind == machine.Active {
			coilCurrents[c.Name] = filFinal[idx]
		}
	}

	return &equilibrium.State{
		CoilCurrents: coilCurrents,
		PlasmaPsi:    finalRes.PsiPlasma,
		Ip:           ipFinal,
		CP:           finalRes.CP,
		LimiterFlag:  finalRes.LimiterFlag,
		Grid:         s.Grid,
	}, nil
}

// buildJacobian builds the finite-difference Jacobian dIy/dI around iRef,
// probing with repeated tight-tolerance GS solves via jacConfig.
func (st *Stepper) buildJacobian(s *equilibrium.State, iRef []float64) (*Jacobian, error) {
	iyFunc := MakeIyFunc(st.GS, st.Layout, st.Machine, st.Profile, s.PlasmaPsi, st.Config.GSRelTol*0.1)
	iy0, _, err := iyFunc(iRef)
	if err != nil {
		return nil, err
	}
	return BuildLinearization(iRef, iy0, iyFunc, st.jacConfig)
}

// normaliseIy rescales a plasma current density sample to unit sum (hatIy),
// or returns nil if the predicted distribution carries no net current.
func normaliseIy(iy []float64) []float64 {
	var sum float64
	for _, v := range iy {
		sum += v
	}
	if sum <= 0 {
		return nil
	}
	out := make([]float64, len(iy))
	for k, v := range iy {
		out[k] = v / sum
	}
	return out
}

func (st *Stepper) currentsFromState(s *equilibrium.State) ([]float64, float64) {
	fil := make([]float64, st.Machine.NConductors())
	for idx, c := range st.Machine.Conductors {
		if v, ok := s.CoilCurrents[c.Name]; ok {
			fil[idx] = v
		}
	}
	return fil, s.Ip
}

func (st *Stepper) forcingVector(activeVoltages map[string]float64) []float64 {
	f := make([]float64, st.Layout.Dim())
	for k, condIdx := range st.Layout.ActiveIdx {
		f[k] = activeVoltages[st.Machine.Conductors[condIdx].Name]
	}
	return f
}

// normalisedIy samples the profile's Jtor on the total flux (plasma flux psi
// plus the flux of the conductor currents filCurrents) and returns it
// restricted to the machine's plasma points, normalised to unit sum (hatIy).
func (st *Stepper) normalisedIy(psi, filCurrents []float64) []float64 {
	tok := st.GS.TokamakFlux(filCurrents)
	total := make([]float64, len(psi))
	for k := range total {
		total[k] = psi[k] + tok[k]
	}
	jtor := st.Profile.Jtor(st.Machine.Grid, total, math.NaN())
	out := make([]float64, len(st.Machine.PlasmaPts))
	var sum float64
	for k, idx := range st.Machine.PlasmaPts {
		out[k] = jtor[idx]
		sum += out[k]
	}
	if sum > 0 {
		for k := range out {
			out[k] /= sum
		}
	}
	return out
}
