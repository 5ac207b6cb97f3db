package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/optcal/ode"
)

// NumericalLogMeanReverting is LogMeanReverting with the covariance ODE
// integrated numerically. It is an order of magnitude slower and exists to
// cross-check the closed form.
type NumericalLogMeanReverting struct {
	meanReverting
	settings ode.Settings
}

// NewNumericalLogMeanReverting validates l, s_x, s_y > 0 and p_0 and uses
// ode.DefaultSettings.
func NewNumericalLogMeanReverting(p0 mat.Symmetric, l, sx, sy float64) (*NumericalLogMeanReverting, error) {
	mr, err := newMeanReverting(NameLMRGWNumerical, p0, l, sx, sy)
	if err != nil {
		return nil, err
	}
	return &NumericalLogMeanReverting{meanReverting: mr, settings: ode.DefaultSettings}, nil
}

// WithSettings returns a copy integrating with s.
func (m *NumericalLogMeanReverting) WithSettings(s ode.Settings) *NumericalLogMeanReverting {
	next := *m
	next.settings = s
	return &next
}

func (m *NumericalLogMeanReverting) Name() string { return NameLMRGWNumerical }

// Variance integrates the three distinct entries (P₀₀, P₀₁, P₁₁) of the
// covariance from p_0 at 0 to t and returns P₀₀(t).
func (m *NumericalLogMeanReverting) Variance(t float64) (float64, error) {
	if err := m.validate(NameLMRGWNumerical); err != nil {
		return 0, err
	}
	if err := checkHorizon(NameLMRGWNumerical, t); err != nil {
		return 0, err
	}
	if t == 0 {
		return m.p0.At(0, 0), nil
	}

	a := mat.NewDense(2, 2, []float64{
		-m.l, m.l,
		0, 0,
	})
	q := mat.NewDiagDense(2, []float64{m.sx * m.sx, m.sy * m.sy})
	p := mat.NewSymDense(2, nil)
	ap := mat.NewDense(2, 2, nil)

	rhs := func(_ float64, y, dy []float64) {
		p.SetSym(0, 0, y[0])
		p.SetSym(0, 1, y[1])
		p.SetSym(1, 1, y[2])
		ap.Mul(a, p)
		// (A·P + P·Aᵀ)ᵢⱼ = (A·P)ᵢⱼ + (A·P)ⱼᵢ
		dy[0] = 2*ap.At(0, 0) + q.At(0, 0)
		dy[1] = ap.At(0, 1) + ap.At(1, 0) + q.At(0, 1)
		dy[2] = 2*ap.At(1, 1) + q.At(1, 1)
	}

	y0 := []float64{m.p0.At(0, 0), m.p0.At(0, 1), m.p0.At(1, 1)}
	res, err := ode.Integrate(rhs, y0, 0, t, m.settings)
	if err != nil {
		return 0, &IntegrationError{Model: NameLMRGWNumerical, T: t, Err: err}
	}
	return res.Y[0], nil
}

func (m *NumericalLogMeanReverting) WithParameters(p []float64) (Process, error) {
	if err := checkCount(NameLMRGWNumerical, p, 3); err != nil {
		return nil, err
	}
	next, err := NewNumericalLogMeanReverting(m.p0, p[0], p[1], p[2])
	if err != nil {
		return nil, err
	}
	next.settings = m.settings
	return next, nil
}
