package main

import "math"

// demoConfig builds the MAST-U-like machine and S1 pressure-on-axis profile
// used by the spec's concrete end-to-end test scenarios: a 65x129 grid over
// R=[0.1,2.0] Z=[-2.2,2.2], a central solenoid plus a handful of shaping
// coils and vessel structures, with a 10 V voltage on the Solenoid. The
// scenario sets no initial coil currents, so every active current starts at
// zero (the Solenoid is not preset to 5 kA).
func demoConfig() *Config {
	cfg := &Config{}
	cfg.Machine.Grid.Rmin, cfg.Machine.Grid.Rmax = 0.1, 2.0
	cfg.Machine.Grid.Zmin, cfg.Machine.Grid.Zmax = -2.2, 2.2
	cfg.Machine.Grid.Nx, cfg.Machine.Grid.Ny = 65, 129

	addActive := func(name string, r, z, area, turns float64) {
		cfg.Machine.Conductors = append(cfg.Machine.Conductors, ConductorConfig{
			Name: name, Active: true,
			Filaments: []struct{ R, Z, Area, Turns, Resistivity EngFloat }{
				{EngFloat(r), EngFloat(z), EngFloat(area), EngFloat(turns), EngFloat(1.7e-8)},
			},
		})
	}
	addActive("Solenoid", 0.2, 0.0, 0.05, 800)
	addActive("PF1", 0.6, 1.8, 0.02, 48)
	addActive("PF2", 1.5, 1.2, 0.02, 48)
	addActive("PF3", 1.5, -1.2, 0.02, 48)
	addActive("PF4", 0.6, -1.8, 0.02, 48)

	addPassive := func(name string, r, z float64) {
		cfg.Machine.Conductors = append(cfg.Machine.Conductors, ConductorConfig{
			Name: name, Active: false,
			Filaments: []struct{ R, Z, Area, Turns, Resistivity EngFloat }{
				{EngFloat(r), EngFloat(z), EngFloat(0.01), EngFloat(1), EngFloat(7.4e-7)},
			},
		})
	}
	for i := 0; i < 8; i++ {
		angle := float64(i) * math.Pi / 4
		addPassive("vessel"+string(rune('A'+i)), 1.0+0.8*math.Cos(angle), 1.4*math.Sin(angle))
	}

	// A rounded-rectangle limiter sitting just inside the vessel filaments,
	// so the demo scenario exercises the limiter-vs-diverted decision rather
	// than always resolving as purely diverted.
	limiterAngles := 16
	for i := 0; i < limiterAngles; i++ {
		angle := float64(i) * 2 * math.Pi / float64(limiterAngles)
		cfg.Machine.Limiter.R = append(cfg.Machine.Limiter.R, EngFloat(1.0+0.7*math.Cos(angle)))
		cfg.Machine.Limiter.Z = append(cfg.Machine.Limiter.Z, EngFloat(1.3*math.Sin(angle)))
	}

	cfg.Profile.Family = "paxis_ip"
	cfg.Profile.Params = map[string]EngFloat{
		"paxis":   8100,
		"Ip":      6.2e5,
		"alpha_m": 1.8,
		"alpha_n": 1.2,
	}

	cfg.Scenario.OmegaMax = 316 // 10^2.5
	cfg.Scenario.Dt = 1e-4
	cfg.Scenario.MaxCycles = 10
	cfg.Scenario.NSteps = 5
	cfg.Scenario.ActiveVoltage = map[string]EngFloat{"Solenoid": 10}

	return cfg
}
