// Package profile defines the plasma pressure/current model abstraction
// (Jtor as a functional of psi) and the four recognised profile families,
// following the named-parameter nonlinear-model pattern the teacher uses
// for diodes and BJTs: a capability interface plus concrete tagged variants.
package profile

import "github.com/gsnk/gsnk/pkg/grid"

// CriticalPoints records the magnetic axis (O-point) and, if present, a
// separatrix (X-point) location found while evaluating Jtor.
type CriticalPoints struct {
	AxisR, AxisZ   float64
	AxisIndex      int
	HasXpoint      bool
	XpointR, XpointZ float64
	XpointIndex    int
}

// Profile is the abstract collaborator every equilibrium solve depends on:
// given the total flux field psi (plasma + metal contribution) and the
// current boundary flux psiBndry, it returns the toroidal current density
// on the grid and updates its view of the critical points.
type Profile interface {
	// Jtor evaluates the current density on the full grid. psiBndry may be
	// NaN, meaning "determine the boundary flux from psi itself" (the
	// profile must locate its own separatrix/limiter contact).
	Jtor(g *grid.Grid, psi []float64, psiBndry float64) []float64

	// CriticalPoints returns the critical points found by the most recent
	// Jtor call.
	CriticalPoints() CriticalPoints

	// SetParameter updates a single named parameter; check_and_change_profiles'
	// dispatch (whether a re-initialisation is needed) is the caller's
	// concern, driven by the concrete tag below.
	SetParameter(name string, value float64) error

	// Parameters returns the current named-parameter values.
	Parameters() map[string]float64

	// Tag identifies the concrete family, used only by check_and_change_profiles
	// to decide whether changing a parameter requires re-initialisation
	// (Lao85 does; the others do not).
	Tag() string
}

// SplitProfile is an optional capability: profiles that support the
// two-stage Jtor_part1/Jtor_part2 split used by limiter-aware solves, where
// the limiter handler intervenes between critical-point detection and the
// final current-density assembly.
type SplitProfile interface {
	Profile
	// JtorPart1 locates critical points and returns everything needed to
	// decide the effective boundary (diverted vs limiter-bound) without
	// yet normalising the current profile to the target Ip.
	JtorPart1(g *grid.Grid, psi []float64) (raw []float64, cp CriticalPoints)
	// JtorPart2 finishes the assembly once psiBndry has been settled by
	// the limiter handler.
	JtorPart2(g *grid.Grid, psi []float64, raw []float64, cp CriticalPoints, psiBndry float64) []float64
}

// RequiresReinit reports whether changing a parameter on a profile with the
// given tag requires a full re-initialisation call (true only for Lao85,
// per the external-interfaces contract).
func RequiresReinit(tag string) bool {
	return tag == TagLao85
}

const (
	TagPaxisIp = "paxis_ip"
	TagBetapIp = "betap_ip"
	TagTopeol  = "topeol"
	TagLao85   = "lao85"
)
