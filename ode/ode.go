// Package ode integrates systems of ordinary differential equations
// y' = f(t, y) with the embedded Dormand-Prince 5(4) Runge-Kutta pair and
// adaptive step-size control.
package ode

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Func evaluates the derivative of y at t into dy. dy has len(y) and must
// not alias y.
type Func func(t float64, y, dy []float64)

// Settings controls step-size adaptation.
type Settings struct {
	// RelTol and AbsTol bound the local error of each component:
	// |err_i| <= AbsTol + RelTol * max(|y_i|, |y_new_i|) in RMS norm.
	RelTol float64
	AbsTol float64

	// InitialStep overrides the starting step heuristic when positive.
	InitialStep float64

	// MaxSteps caps accepted plus rejected steps.
	MaxSteps int

	// MinStep is the smallest step, relative to the span, before the
	// integration is abandoned.
	MinStep float64
}

// DefaultSettings is tight enough for the covariance ODEs of the process
// models to agree with their closed forms to ~1e-10 relative.
var DefaultSettings = Settings{
	RelTol:   1e-10,
	AbsTol:   1e-12,
	MaxSteps: 100000,
	MinStep:  1e-14,
}

var (
	ErrStepSize  = errors.New("ode: step size underflow")
	ErrMaxSteps  = errors.New("ode: maximum number of steps exceeded")
	ErrNonFinite = errors.New("ode: non-finite state")
	ErrInterval  = errors.New("ode: invalid integration interval")
)

// Result is the state at the end of the interval plus step statistics.
type Result struct {
	Y           []float64
	Steps       int
	Rejected    int
	Evaluations int
}

// Dormand-Prince 5(4) tableau. The 7th stage is evaluated at the 5th-order
// solution, so it is reused as the first stage of the next step.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// 5th minus 4th order weights.
	dpE = [7]float64{71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40}
)

const (
	safety    = 0.9
	minFactor = 0.2
	maxFactor = 10.0
)

// Integrate advances y0 from t0 to t1 (t1 >= t0). y0 is not modified.
func Integrate(f Func, y0 []float64, t0, t1 float64, s Settings) (Result, error) {
	if math.IsNaN(t0) || math.IsNaN(t1) || math.IsInf(t0, 0) || math.IsInf(t1, 0) || t1 < t0 {
		return Result{}, errors.Wrapf(ErrInterval, "[%v, %v]", t0, t1)
	}
	if s.RelTol <= 0 && s.AbsTol <= 0 {
		s.RelTol, s.AbsTol = DefaultSettings.RelTol, DefaultSettings.AbsTol
	}
	if s.MaxSteps <= 0 {
		s.MaxSteps = DefaultSettings.MaxSteps
	}

	n := len(y0)
	y := make([]float64, n)
	copy(y, y0)
	res := Result{Y: y}
	if t1 == t0 || n == 0 {
		return res, nil
	}

	var k [7][]float64
	for i := range k {
		k[i] = make([]float64, n)
	}
	tmp := make([]float64, n)
	yNew := make([]float64, n)

	f(t0, y, k[0])
	res.Evaluations++

	span := t1 - t0
	h := s.InitialStep
	if h <= 0 {
		h = initialStep(y, k[0], span)
	}
	minStep := s.MinStep * span

	t := t0
	for t < t1 {
		if res.Steps+res.Rejected >= s.MaxSteps {
			return res, errors.Wrapf(ErrMaxSteps, "at t=%v after %d steps", t, s.MaxSteps)
		}
		last := false
		if t+h >= t1 {
			h = t1 - t
			last = true
		}

		for i := 1; i < 7; i++ {
			copy(tmp, y)
			for j := 0; j < i; j++ {
				if dpA[i][j] != 0 {
					floats.AddScaled(tmp, h*dpA[i][j], k[j])
				}
			}
			f(t+dpC[i]*h, tmp, k[i])
			res.Evaluations++
		}
		// Row 7 of A is the 5th-order weight vector, so the last stage
		// input is the new solution.
		copy(yNew, tmp)

		errNorm := errorNorm(h, k, y, yNew, s)
		if math.IsNaN(errNorm) || !allFinite(yNew) {
			return res, errors.Wrapf(ErrNonFinite, "at t=%v", t)
		}

		if errNorm <= 1 {
			res.Steps++
			if last {
				t = t1
			} else {
				t += h
			}
			y, yNew = yNew, y
			k[0], k[6] = k[6], k[0]
			h *= stepFactor(errNorm, maxFactor)
			continue
		}

		res.Rejected++
		h *= stepFactor(errNorm, 1)
		if h < minStep {
			return res, errors.Wrapf(ErrStepSize, "at t=%v (h=%g)", t, h)
		}
	}

	res.Y = y
	return res, nil
}

func errorNorm(h float64, k [7][]float64, y, yNew []float64, s Settings) float64 {
	var sum float64
	for i := range y {
		var e float64
		for j := 0; j < 7; j++ {
			e += dpE[j] * k[j][i]
		}
		scale := s.AbsTol + s.RelTol*math.Max(math.Abs(y[i]), math.Abs(yNew[i]))
		r := h * e / scale
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(y)))
}

func stepFactor(errNorm, upper float64) float64 {
	if errNorm == 0 {
		return upper
	}
	return math.Min(upper, math.Max(minFactor, safety*math.Pow(errNorm, -0.2)))
}

// initialStep follows the first half of the Hairer-Norsett-Wanner
// starting-step heuristic: 1% of the ratio of state to slope magnitude.
func initialStep(y, dy []float64, span float64) float64 {
	d0 := floats.Norm(y, 2) / math.Sqrt(float64(len(y)))
	d1 := floats.Norm(dy, 2) / math.Sqrt(float64(len(y)))
	h := 1e-6
	if d0 > 1e-5 && d1 > 1e-5 {
		h = 0.01 * d0 / d1
	}
	return math.Min(h, span)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
