package consts

const (
	Mu0 = 1.25663706212e-6 // vacuum permeability (H/m)

	// DefaultIpScale is the normalisation applied to the total plasma
	// current entry of the extensive current vector so that it sits in
	// the same numerical range as coil and modal currents.
	DefaultIpScale = 1e3

	DefaultGSRelTol       = 1e-7
	DefaultGSMaxIter      = 30
	DefaultUnexplainedTol = 0.15
	DefaultClip           = 10.0

	DefaultCurrentRelTol = 5e-3
	DefaultGSStepRelTol  = 5e-3
)
