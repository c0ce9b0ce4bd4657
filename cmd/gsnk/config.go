package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// valueUnit maps an engineering-notation suffix to its multiplier, the same
// table a netlist value parser uses, reused here for YAML scalar fields like
// "1.5k" (amps) or "50m" (seconds).
var valueUnit = map[string]float64{
	"T": 1e12, "G": 1e9, "meg": 1e6, "M": 1e6, "k": 1e3, "K": 1e3,
	"m": 1e-3, "u": 1e-6, "n": 1e-9, "p": 1e-12,
}

var valueRe = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|[TGMKkmunp])?$`)

// ParseEngValue parses a plain float or an engineering-notation string like
// "12.3k" or "-4.5m" into its numeric value.
func ParseEngValue(s string) (float64, error) {
	m := valueRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("config: invalid numeric value %q", s)
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, err
	}
	if m[2] != "" {
		num *= valueUnit[m[2]]
	}
	return num, nil
}

// EngFloat unmarshals a YAML scalar as either a plain number or an
// engineering-notation string.
type EngFloat float64

func (f *EngFloat) UnmarshalYAML(value *yaml.Node) error {
	var asFloat float64
	if err := value.Decode(&asFloat); err == nil {
		*f = EngFloat(asFloat)
		return nil
	}
	var asString string
	if err := value.Decode(&asString); err != nil {
		return fmt.Errorf("config: value must be a number or numeric string: %v", err)
	}
	v, err := ParseEngValue(asString)
	if err != nil {
		return err
	}
	*f = EngFloat(v)
	return nil
}

// MachineConfig is the YAML machine description: the grid bounds and
// resolution, and the active/passive conductor filament geometry.
type MachineConfig struct {
	Grid struct {
		Rmin, Rmax, Zmin, Zmax EngFloat
		Nx, Ny                 int
	}
	Conductors []ConductorConfig
	// Limiter is the optional limiter polygon vertices (R, Z arrays of equal
	// length); when absent the machine is treated as purely diverted.
	Limiter struct {
		R, Z []EngFloat
	}
}

type ConductorConfig struct {
	Name   string
	Active bool
	Filaments []struct {
		R, Z, Area, Turns, Resistivity EngFloat
	}
}

// ProfileConfig selects and parametrises one of the four profile families.
type ProfileConfig struct {
	Family string // "paxis_ip", "betap_ip", "topeol", "lao85"
	Params map[string]EngFloat
}

// ScenarioConfig describes the run: modal reduction cutoffs, stepper
// tuning, and a sequence of timesteps with per-step active-coil voltages.
type ScenarioConfig struct {
	OmegaMax     EngFloat
	Dt           EngFloat
	MaxCycles    int
	NSteps       int
	ActiveVoltage map[string]EngFloat
}

// Config is the top-level YAML document cmd/gsnk loads.
type Config struct {
	Machine  MachineConfig
	Profile  ProfileConfig
	Scenario ScenarioConfig
}

func loadConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing YAML: %v", err)
	}
	return &cfg, nil
}
