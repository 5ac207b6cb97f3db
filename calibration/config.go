package calibration

import "math"

// Bound is a closed interval [Lower, Upper] for one parameter. The model
// itself still rejects non-positive values, so a zero Lower leaves the
// domain open at 0.
type Bound struct {
	Lower float64
	Upper float64
}

// PositiveBound is the default bound for every parameter.
var PositiveBound = Bound{Lower: 0, Upper: math.Inf(1)}

// Config holds the minimiser settings.
type Config struct {
	// MaxIterations caps Nelder-Mead major iterations (0 = unlimited).
	MaxIterations int

	// MaxEvaluations caps loss evaluations (0 = unlimited).
	MaxEvaluations int

	// ConvergeIterations is the number of consecutive major iterations
	// without an improvement larger than ConvergeAbsolute +
	// ConvergeRelative*|loss| after which the search stops as converged.
	ConvergeIterations int
	ConvergeAbsolute   float64
	ConvergeRelative   float64

	// SimplexSize is the edge length of the initial simplex built around
	// the initial guess.
	SimplexSize float64

	// Penalty is the loss floor reported for points outside the parameter
	// domain or Bounds. The effective penalty is raised to at least
	// 1000·(1 + initial loss) so it always dominates.
	Penalty float64

	// Strict turns non-convergence into a *CalibrationError.
	Strict bool

	// Bounds, when set, must have one entry per model parameter.
	Bounds []Bound
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	MaxIterations:      5000,
	MaxEvaluations:     20000,
	ConvergeIterations: 100,
	ConvergeAbsolute:   1e-12,
	ConvergeRelative:   1e-10,
	SimplexSize:        0.05,
	Penalty:            1e10,
	Strict:             false,
}
