package model

// GeometricBrownianMotion is dS/S = mu dt + s dW, so the log-price variance
// grows linearly: Var(t) = s²·t.
type GeometricBrownianMotion struct {
	s float64
}

var gbmParamNames = []string{"s"}

// NewGeometricBrownianMotion validates s > 0.
func NewGeometricBrownianMotion(s float64) (*GeometricBrownianMotion, error) {
	if err := checkPositive(NameGBM, gbmParamNames, s); err != nil {
		return nil, err
	}
	return &GeometricBrownianMotion{s: s}, nil
}

func (m *GeometricBrownianMotion) Name() string { return NameGBM }

// S is the volatility.
func (m *GeometricBrownianMotion) S() float64 { return m.s }

// Variance rejects a receiver that did not come from the constructor, such
// as the zero value.
func (m *GeometricBrownianMotion) Variance(t float64) (float64, error) {
	if err := checkPositive(NameGBM, gbmParamNames, m.s); err != nil {
		return 0, err
	}
	if err := checkHorizon(NameGBM, t); err != nil {
		return 0, err
	}
	return m.s * m.s * t, nil
}

func (m *GeometricBrownianMotion) Parameters() []float64 { return []float64{m.s} }

func (m *GeometricBrownianMotion) ParameterNames() []string { return copyNames(gbmParamNames) }

func (m *GeometricBrownianMotion) WithParameters(p []float64) (Process, error) {
	if err := checkCount(NameGBM, p, 1); err != nil {
		return nil, err
	}
	next, err := NewGeometricBrownianMotion(p[0])
	if err != nil {
		return nil, err
	}
	return next, nil
}

func copyNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}
