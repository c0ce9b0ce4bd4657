// Command gsnk runs a free-boundary Grad-Shafranov equilibrium and coupled
// circuit evolution for a machine description given on the command line,
// defaulting to a small MAST-U-like scenario when no config file is given.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gsnk/gsnk/pkg/evolve"
	"github.com/gsnk/gsnk/pkg/grid"
	"github.com/gsnk/gsnk/pkg/limiter"
	"github.com/gsnk/gsnk/pkg/machine"
	"github.com/gsnk/gsnk/pkg/profile"
	"github.com/gsnk/gsnk/pkg/solver"
	"github.com/gsnk/gsnk/pkg/util"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML machine/scenario description; if empty, runs the built-in demo scenario")
	nSteps := flag.Int("steps", 0, "override the number of evolutive timesteps (0 uses the config/demo default)")
	flag.Parse()

	var cfg *Config
	if *configPath != "" {
		fmt.Printf("\n[1] Reading machine description: %s\n", *configPath)
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("reading config: %v", err)
		}
		cfg, err = loadConfig(data)
		if err != nil {
			log.Fatalf("parsing config: %v", err)
		}
	} else {
		fmt.Println("\n[1] No config given; building the built-in MAST-U-like demo scenario")
		cfg = demoConfig()
	}

	fmt.Println("\n[2] Building grid and machine")
	g, err := grid.New(
		float64(cfg.Machine.Grid.Rmin), float64(cfg.Machine.Grid.Rmax),
		float64(cfg.Machine.Grid.Zmin), float64(cfg.Machine.Grid.Zmax),
		cfg.Machine.Grid.Nx, cfg.Machine.Grid.Ny,
	)
	if err != nil {
		log.Fatalf("building grid: %v", err)
	}
	conductors := make([]machine.Conductor, len(cfg.Machine.Conductors))
	for i, cc := range cfg.Machine.Conductors {
		kind := machine.Passive
		if cc.Active {
			kind = machine.Active
		}
		fils := make([]machine.Filament, len(cc.Filaments))
		for j, fc := range cc.Filaments {
			fils[j] = machine.Filament{R: float64(fc.R), Z: float64(fc.Z), Area: float64(fc.Area), Turns: float64(fc.Turns), Resistivity: float64(fc.Resistivity)}
		}
		conductors[i] = machine.Conductor{Name: cc.Name, Kind: kind, Filaments: fils}
	}
	fmt.Printf("Grid: %dx%d nodes over R=[%.3f,%.3f] Z=[%.3f,%.3f]\n", g.Nx, g.Ny, g.Rmin, g.Rmax, g.Zmin, g.Zmax)
	fmt.Printf("Conductors: %d\n", len(conductors))

	fmt.Println("\n[3] Selecting plasma profile")
	prof, err := buildProfile(cfg.Profile)
	if err != nil {
		log.Fatalf("building profile: %v", err)
	}
	fmt.Printf("Profile family: %s\n", prof.Tag())

	fmt.Println("\n[4] Reducing passive circuit and assembling solvers")
	stepperCfg := evolve.DefaultStepperConfig()
	if cfg.Scenario.Dt > 0 {
		stepperCfg.Dt = float64(cfg.Scenario.Dt)
	}
	if cfg.Scenario.MaxCycles > 0 {
		stepperCfg.MaxCycles = cfg.Scenario.MaxCycles
	}
	modalCfg := solver.ModalConfig{OmegaMax: float64(cfg.Scenario.OmegaMax)}
	if modalCfg.OmegaMax == 0 {
		modalCfg.OmegaMax = 1e6
	}

	var limiterPoly limiter.Polygon
	for _, r := range cfg.Machine.Limiter.R {
		limiterPoly.R = append(limiterPoly.R, float64(r))
	}
	for _, z := range cfg.Machine.Limiter.Z {
		limiterPoly.Z = append(limiterPoly.Z, float64(z))
	}

	tok, err := solver.Build(g, conductors, nil, modalCfg, prof, stepperCfg, limiterPoly)
	if err != nil {
		log.Fatalf("building solver: %v", err)
	}
	fmt.Printf("Retained %d passive modes (of %d filaments)\n", tok.Basis.NKeep, len(tok.Layout.PassiveIdx))
	if tok.GS.Limiter != nil {
		fmt.Printf("Limiter polygon: %d vertices, %d grid points inside\n", len(limiterPoly.R), len(tok.GS.Limiter.PlasmaPts))
	}

	fmt.Println("\n[5] Running initial static equilibrium")
	state := tok.InitialState()
	for name, v := range cfg.Scenario.ActiveVoltage {
		_ = v
		if _, ok := state.CoilCurrents[name]; !ok {
			log.Fatalf("scenario references unknown active coil %q", name)
		}
	}
	res, err := tok.SolveStatic(state, prof)
	if err != nil {
		fmt.Printf("warning: initial static solve: %v\n", err)
	}
	solver.CommitStatic(state, res)
	fmt.Printf("Initial Ip=%s after %d iterations (residual %s)\n",
		util.FormatValueFactor(state.Ip, "A"), res.Iters, util.FormatResidual(res.RelResidual))

	steps := cfg.Scenario.NSteps
	if *nSteps > 0 {
		steps = *nSteps
	}
	if steps <= 0 {
		steps = 1
	}

	voltages := make(map[string]float64, len(cfg.Scenario.ActiveVoltage))
	for name, v := range cfg.Scenario.ActiveVoltage {
		voltages[name] = float64(v)
	}

	fmt.Printf("\n[6] Advancing %d evolutive timesteps (dt=%s)\n", steps, util.FormatValueFactor(stepperCfg.Dt, "s"))
	for step := 0; step < steps; step++ {
		next, err := tok.Advance(state, voltages)
		if err != nil {
			log.Fatalf("step %d: %v", step, err)
		}
		state = next
		fmt.Printf("step %3d: t=%s Ip=%s\n", step, util.FormatValueFactor(float64(step+1)*stepperCfg.Dt, "s"), util.FormatValueFactor(state.Ip, "A"))
	}

	fmt.Println("\n[7] Done")
}

func buildProfile(pc ProfileConfig) (profile.Profile, error) {
	p := func(name string, def float64) float64 {
		if v, ok := pc.Params[name]; ok {
			return float64(v)
		}
		return def
	}
	switch pc.Family {
	case profile.TagBetapIp:
		return profile.NewBetapIp(p("betap", 0.5), p("alpha_m", 1), p("alpha_n", 2), p("Ip", 1e6)), nil
	case profile.TagTopeol:
		return profile.NewTopeol(p("beta0", 0.5), p("alpha_m", 1), p("alpha_n", 2), p("Ip", 1e6)), nil
	case profile.TagLao85:
		return profile.NewLao85(p("alpha", 1), p("beta", 1), p("Ip", 1e6)), nil
	case "", profile.TagPaxisIp:
		return profile.NewPaxisIp(p("paxis", 1e4), p("alpha_m", 1), p("alpha_n", 2), p("Ip", 1e6)), nil
	default:
		return nil, fmt.Errorf("unknown profile family %q", pc.Family)
	}
}
