package pricing

import (
	"math"

	"github.com/pkg/errors"

	"github.com/meenmo/optcal/model"
	"github.com/meenmo/optcal/option"
)

// Model prices vanilla options with Black-Scholes, taking the volatility
// implied by a stochastic process's variance at the option's maturity.
type Model struct {
	Process      model.Process
	RiskFreeRate float64
}

// NewModel wraps p with a continuously compounded risk-free rate.
func NewModel(p model.Process, riskFreeRate float64) (*Model, error) {
	if p == nil {
		return nil, errors.New("pricing: process is required")
	}
	if math.IsNaN(riskFreeRate) || math.IsInf(riskFreeRate, 0) {
		return nil, errors.Errorf("pricing: risk-free rate must be finite, got %v", riskFreeRate)
	}
	return &Model{Process: p, RiskFreeRate: riskFreeRate}, nil
}

// Volatility is the annualised volatility sqrt(Var(t)/t). At t = 0 it is 0.
func (m *Model) Volatility(t float64) (float64, error) {
	v, err := m.Process.Variance(t)
	if err != nil {
		return 0, err
	}
	if t == 0 {
		return 0, nil
	}
	if v < 0 {
		return 0, errors.Errorf("pricing: %s produced negative variance %v at t=%v", m.Process.Name(), v, t)
	}
	return math.Sqrt(v / t), nil
}

// Price returns the model price of o. Errors from the process, including
// *model.InvalidParameterError and *model.IntegrationError, are returned
// unchanged.
func (m *Model) Price(o option.Option) (float64, error) {
	t := o.YearsToMaturity()
	vol, err := m.Volatility(t)
	if err != nil {
		return 0, err
	}
	return BlackScholes(o.Type(), o.Spot(), o.Strike(), t, m.RiskFreeRate, vol)
}

// Parameters returns the free parameters of the wrapped process.
func (m *Model) Parameters() []float64 {
	return m.Process.Parameters()
}

// WithParameters returns a new Model around a re-parameterised process.
// The receiver is not modified.
func (m *Model) WithParameters(p []float64) (*Model, error) {
	next, err := m.Process.WithParameters(p)
	if err != nil {
		return nil, err
	}
	return &Model{Process: next, RiskFreeRate: m.RiskFreeRate}, nil
}
