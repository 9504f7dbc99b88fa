package interp

// signal is the control-flow tag threaded out of statement evaluation:
// break/continue/return/remove are modeled as an explicit enum instead of
// panicking through the tree walk.
type signal int

const (
	sigNone signal = iota
	sigBreak
	sigContinue
	sigReturn
	sigRemove
)
