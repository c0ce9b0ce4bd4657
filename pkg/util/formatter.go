// Package util holds small formatting helpers shared by cmd/gsnk's progress
// and result output, adapted from the netlist-tool's engineering-notation
// formatter to the units this domain actually prints (A, V, Wb, Ohm, s).
package util

import (
	"fmt"
	"math"
)

// FormatValueFactor renders value with an SI magnitude prefix and the given
// unit suffix, e.g. FormatValueFactor(1.23e4, "A") -> "12.300 kA".
func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1e6:
		return fmt.Sprintf("%.3f M%s", value/1e6, unit)
	case absValue >= 1e3:
		return fmt.Sprintf("%.3f k%s", value/1e3, unit)
	case absValue >= 1:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

// FormatResidual renders a relative residual in scientific notation, the
// way convergence diagnostics are printed throughout the stepper/solver.
func FormatResidual(value float64) string {
	return fmt.Sprintf("%.3e", value)
}
