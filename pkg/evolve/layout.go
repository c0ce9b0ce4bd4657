package evolve

import (
	"github.com/gsnk/gsnk/internal/consts"
	"github.com/gsnk/gsnk/pkg/machine"
	"github.com/gsnk/gsnk/pkg/modal"
)

// Layout describes how the extensive current vector I (length n_active +
// n_mode_passive + 1) maps to physical active-coil currents, modal passive
// currents, and the normalised total plasma current.
type Layout struct {
	ActiveIdx  []int // machine conductor index for each active entry, in I order
	PassiveIdx []int // machine conductor index for each passive filament, in modal-basis order
	Basis      *modal.Basis
	IpScale    float64
}

// NewLayout builds the layout from a machine and its modal reduction.
func NewLayout(m *machine.Machine, basis *modal.Basis) *Layout {
	l := &Layout{Basis: basis, IpScale: consts.DefaultIpScale}
	for idx, c := range m.Conductors {
		if c.Kind == machine.Active {
			l.ActiveIdx = append(l.ActiveIdx, idx)
		} else {
			l.PassiveIdx = append(l.PassiveIdx, idx)
		}
	}
	return l
}

// NActive is the number of active-coil entries.
func (l *Layout) NActive() int { return len(l.ActiveIdx) }

// NMode is the number of retained passive modes.
func (l *Layout) NMode() int { return l.Basis.NKeep }

// Dim is the total extensive-current vector length.
func (l *Layout) Dim() int { return l.NActive() + l.NMode() + 1 }

// IpIndex is the index of the normalised total-plasma-current entry.
func (l *Layout) IpIndex() int { return l.Dim() - 1 }

// ToFilamentCurrents expands an extensive current vector I into the full
// per-conductor current vector (active currents physical, passive filament
// currents reconstructed via the modal basis), and returns Ip (physical
// units, not normalised).
func (l *Layout) ToFilamentCurrents(i []float64, nConductors int) (filCurrents []float64, ip float64) {
	filCurrents = make([]float64, nConductors)
	for k, condIdx := range l.ActiveIdx {
		filCurrents[condIdx] = i[k]
	}

	mode := i[l.NActive() : l.NActive()+l.NMode()]
	passiveCurrents := l.Basis.ModeToFilament(mode)
	for k, condIdx := range l.PassiveIdx {
		filCurrents[condIdx] = passiveCurrents[k]
	}

	ip = i[l.IpIndex()] * l.IpScale
	return filCurrents, ip
}

// FromFilamentCurrents packs per-conductor currents and a physical Ip into
// an extensive current vector.
func (l *Layout) FromFilamentCurrents(filCurrents []float64, ip float64) []float64 {
	out := make([]float64, l.Dim())
	for k, condIdx := range l.ActiveIdx {
		out[k] = filCurrents[condIdx]
	}

	passive := make([]float64, len(l.PassiveIdx))
	for k, condIdx := range l.PassiveIdx {
		passive[k] = filCurrents[condIdx]
	}
	mode := l.Basis.FilamentToMode(passive)
	copy(out[l.NActive():l.NActive()+l.NMode()], mode)

	out[l.IpIndex()] = ip / l.IpScale
	return out
}
