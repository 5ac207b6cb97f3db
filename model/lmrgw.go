package model

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// meanReverting holds the state shared by the analytic and numerical
// log-mean-reverting to generalised Wiener process models.
//
// The log-price x mean-reverts at rate l towards y, which itself follows a
// generalised Wiener process:
//
//	dx = l·(y − x)·dt + s_x·dW_x
//	dy = μ·dt + s_y·dW_y
//
// The covariance P of (x, y) obeys dP/dt = A·P + P·Aᵀ + Q with
// A = [[−l, l], [0, 0]], Q = diag(s_x², s_y²) and P(0) = p_0.
type meanReverting struct {
	p0 *mat.SymDense
	l  float64
	sx float64
	sy float64
}

var meanRevertingParamNames = []string{"l", "s_x", "s_y"}

func newMeanReverting(name string, p0 mat.Symmetric, l, sx, sy float64) (meanReverting, error) {
	if err := checkPositive(name, meanRevertingParamNames, l, sx, sy); err != nil {
		return meanReverting{}, err
	}
	cov, err := checkInitialCovariance(name, p0)
	if err != nil {
		return meanReverting{}, err
	}
	return meanReverting{p0: cov, l: l, sx: sx, sy: sy}, nil
}

// checkInitialCovariance copies p0 after checking it is a finite 2x2
// positive semi-definite matrix.
func checkInitialCovariance(name string, p0 mat.Symmetric) (*mat.SymDense, error) {
	if p0 == nil {
		return nil, errors.Wrapf(ErrInitialCovariance, "%s: p_0 is required", name)
	}
	if r, c := p0.Dims(); r != 2 || c != 2 {
		return nil, errors.Wrapf(ErrInitialCovariance, "%s: p_0 must be 2x2, got %dx%d", name, r, c)
	}
	a, b, c := p0.At(0, 0), p0.At(0, 1), p0.At(1, 1)
	for _, v := range []float64{a, b, c} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Wrapf(ErrInitialCovariance, "%s: p_0 has non-finite entry %v", name, v)
		}
	}
	if a < 0 || c < 0 || a*c-b*b < 0 {
		return nil, errors.Wrapf(ErrInitialCovariance, "%s: p_0 is not positive semi-definite", name)
	}
	cov := mat.NewSymDense(2, nil)
	cov.CopySym(p0)
	return cov, nil
}

// validate re-checks an instance, so a zero value fails like a bad
// constructor call instead of dereferencing a nil p_0.
func (m meanReverting) validate(name string) error {
	if err := checkPositive(name, meanRevertingParamNames, m.l, m.sx, m.sy); err != nil {
		return err
	}
	if m.p0 == nil {
		return errors.Wrapf(ErrInitialCovariance, "%s: p_0 is required", name)
	}
	return nil
}

// L is the mean-reversion rate.
func (m meanReverting) L() float64 { return m.l }

// SX is the volatility of the mean-reverting log-price.
func (m meanReverting) SX() float64 { return m.sx }

// SY is the volatility of the generalised Wiener level.
func (m meanReverting) SY() float64 { return m.sy }

// InitialCovariance returns a copy of p_0, or nil for a zero value.
func (m meanReverting) InitialCovariance() *mat.SymDense {
	if m.p0 == nil {
		return nil
	}
	cov := mat.NewSymDense(2, nil)
	cov.CopySym(m.p0)
	return cov
}

func (m meanReverting) Parameters() []float64 { return []float64{m.l, m.sx, m.sy} }

func (m meanReverting) ParameterNames() []string { return copyNames(meanRevertingParamNames) }

// LogMeanReverting is the log-mean-reverting to generalised Wiener process
// with the covariance ODE solved in closed form.
type LogMeanReverting struct {
	meanReverting
}

// NewLogMeanReverting validates l, s_x, s_y > 0 and p_0.
func NewLogMeanReverting(p0 mat.Symmetric, l, sx, sy float64) (*LogMeanReverting, error) {
	mr, err := newMeanReverting(NameLMRGW, p0, l, sx, sy)
	if err != nil {
		return nil, err
	}
	return &LogMeanReverting{meanReverting: mr}, nil
}

func (m *LogMeanReverting) Name() string { return NameLMRGW }

// Variance returns P₀₀(t). With a, b, c the entries P₀₀, P₀₁, P₁₁:
//
//	c(t) = c₀ + s_y²·t
//	b(t) = c(t) − s_y²/l + D·e^{−lt},          D = b₀ − c₀ + s_y²/l
//	a(t) = K + s_y²·t + 2D·e^{−lt} + (a₀ − K − 2D)·e^{−2lt},
//	       K = c₀ − 3s_y²/(2l) + s_x²/(2l)
//
// Any change here must keep agreeing with NumericalLogMeanReverting.
func (m *LogMeanReverting) Variance(t float64) (float64, error) {
	if err := m.validate(NameLMRGW); err != nil {
		return 0, err
	}
	if err := checkHorizon(NameLMRGW, t); err != nil {
		return 0, err
	}
	a0, b0, c0 := m.p0.At(0, 0), m.p0.At(0, 1), m.p0.At(1, 1)
	if t == 0 {
		return a0, nil
	}
	l := m.l
	sx2, sy2 := m.sx*m.sx, m.sy*m.sy

	d := b0 - c0 + sy2/l
	k := c0 - 1.5*sy2/l + 0.5*sx2/l
	e1 := math.Exp(-l * t)
	e2 := e1 * e1

	return k + sy2*t + 2*d*e1 + (a0-k-2*d)*e2, nil
}

func (m *LogMeanReverting) WithParameters(p []float64) (Process, error) {
	if err := checkCount(NameLMRGW, p, 3); err != nil {
		return nil, err
	}
	next, err := NewLogMeanReverting(m.p0, p[0], p[1], p[2])
	if err != nil {
		return nil, err
	}
	return next, nil
}
