package model_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/optcal/model"
	"github.com/meenmo/optcal/ode"
)

func TestGBM_Variance(t *testing.T) {
	t.Parallel()

	for _, s := range []float64{0.01, 0.2, 0.31408317454633633, 1.5} {
		m, err := model.NewGeometricBrownianMotion(s)
		require.NoError(t, err)
		for _, tt := range []float64{0, 1.0 / 365, 0.5, 1, 10} {
			v, err := m.Variance(tt)
			require.NoError(t, err)
			assert.InDelta(t, s*s*tt, v, 1e-15, "s=%v t=%v", s, tt)
		}
	}
}

func TestLMRGW_VarianceReferenceValue(t *testing.T) {
	t.Parallel()

	m, err := model.NewLogMeanReverting(model.Identity(), 1, 1, 0.05)
	require.NoError(t, err)
	v, err := m.Variance(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.967664270613846, v, 1e-12)

	num, err := model.NewNumericalLogMeanReverting(model.Identity(), 1, 1, 0.05)
	require.NoError(t, err)
	nv, err := num.Variance(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.967664270613846, nv, 1e-9)
}

func TestLMRGW_NonIdentityInitialCovariance(t *testing.T) {
	t.Parallel()

	p0 := mat.NewSymDense(2, []float64{0.04, 0.01, 0.01, 0.09})
	m, err := model.NewLogMeanReverting(p0, 1.5, 0.3, 0.2)
	require.NoError(t, err)
	num, err := model.NewNumericalLogMeanReverting(p0, 1.5, 0.3, 0.2)
	require.NoError(t, err)

	v, err := m.Variance(0.75)
	require.NoError(t, err)
	nv, err := num.Variance(0.75)
	require.NoError(t, err)

	assert.InDelta(t, 0.08239701845256697, v, 1e-14)
	assert.InEpsilon(t, v, nv, 1e-9)

	// Later mutation of the caller's matrix must not leak into the model.
	p0.SetSym(0, 0, 10)
	again, err := m.Variance(0.75)
	require.NoError(t, err)
	assert.Equal(t, v, again)
}

func TestMeanReverting_VarianceAtZeroIsInitialVariance(t *testing.T) {
	t.Parallel()

	p0 := mat.NewSymDense(2, []float64{0.3, -0.1, -0.1, 0.7})
	m, err := model.NewLogMeanReverting(p0, 2, 0.4, 0.1)
	require.NoError(t, err)
	num, err := model.NewNumericalLogMeanReverting(p0, 2, 0.4, 0.1)
	require.NoError(t, err)

	for _, p := range []model.Process{m, num} {
		v, err := p.Variance(0)
		require.NoError(t, err)
		assert.Equal(t, 0.3, v, p.Name())
	}
}

// The closed form is only trusted because it agrees with direct
// integration of the covariance ODE.
func TestLMRGW_AnalyticMatchesNumerical(t *testing.T) {
	t.Parallel()

	n := 10
	if testing.Short() {
		n = 4
	}
	grid := make([]float64, n)
	floats.Span(grid, 0.5, 5)
	horizons := make([]float64, n)
	floats.Span(horizons, 10.0/365.0, 2)

	p0 := model.Identity()
	for _, l := range grid {
		for _, sx := range grid {
			for _, sy := range grid {
				m, err := model.NewLogMeanReverting(p0, l, sx, sy)
				require.NoError(t, err)
				num, err := model.NewNumericalLogMeanReverting(p0, l, sx, sy)
				require.NoError(t, err)
				for _, tt := range horizons {
					v, err := m.Variance(tt)
					require.NoError(t, err)
					nv, err := num.Variance(tt)
					require.NoError(t, err)
					if math.Abs(v-nv) > 1e-7*math.Abs(nv) {
						t.Fatalf("l=%v s_x=%v s_y=%v t=%v: analytic %.15g numerical %.15g", l, sx, sy, tt, v, nv)
					}
				}
			}
		}
	}
}

func TestParameters_Ordering(t *testing.T) {
	t.Parallel()

	num, err := model.NewNumericalLogMeanReverting(model.Identity(), 1, 1, 0.05)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0.05}, num.Parameters())
	assert.Equal(t, []string{"l", "s_x", "s_y"}, num.ParameterNames())

	m, err := model.NewLogMeanReverting(model.Identity(), 1, 1, 0.05)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0.05}, m.Parameters())

	gbm, err := model.NewGeometricBrownianMotion(0.25)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25}, gbm.Parameters())
	assert.Equal(t, []string{"s"}, gbm.ParameterNames())
}

func TestConstructors_RejectNonPositiveParameters(t *testing.T) {
	t.Parallel()

	bad := []float64{0, -1, math.NaN(), math.Inf(1)}
	for _, name := range model.Names() {
		valid := []float64{1, 1, 1}
		if name == model.NameGBM {
			valid = []float64{1}
		}

		p, err := model.New(name, nil, valid)
		require.NoError(t, err, name)
		assert.Equal(t, valid, p.Parameters(), name)

		for i := range valid {
			for _, v := range bad {
				params := append([]float64(nil), valid...)
				params[i] = v

				_, err := model.New(name, nil, params)
				var ipe *model.InvalidParameterError
				require.True(t, errors.As(err, &ipe), "%s param %d=%v: got %v", name, i, v, err)
				assert.Equal(t, p.ParameterNames()[i], ipe.Field)

				_, err = p.WithParameters(params)
				require.True(t, errors.As(err, &ipe), "%s WithParameters param %d=%v: got %v", name, i, v, err)
			}
		}
	}
}

func TestWithParameters_KeepsInitialCovariance(t *testing.T) {
	t.Parallel()

	p0 := mat.NewSymDense(2, []float64{0.5, 0, 0, 2})
	m, err := model.NewLogMeanReverting(p0, 1, 1, 1)
	require.NoError(t, err)

	next, err := m.WithParameters([]float64{3, 0.2, 0.1})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0.2, 0.1}, next.Parameters())
	assert.Equal(t, []float64{1, 1, 1}, m.Parameters(), "receiver must be unchanged")

	v, err := next.Variance(0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	_, err = m.WithParameters([]float64{1, 1})
	assert.True(t, errors.Is(err, model.ErrParameterCount), "got %v", err)
}

func TestInitialCovarianceValidation(t *testing.T) {
	t.Parallel()

	cases := map[string]mat.Symmetric{
		"nil":            nil,
		"3x3":            mat.NewSymDense(3, nil),
		"negative diag":  mat.NewSymDense(2, []float64{-1, 0, 0, 1}),
		"not psd":        mat.NewSymDense(2, []float64{1, 2, 2, 1}),
		"non-finite":     mat.NewSymDense(2, []float64{math.NaN(), 0, 0, 1}),
	}
	for name, p0 := range cases {
		_, err := model.NewLogMeanReverting(p0, 1, 1, 1)
		assert.True(t, errors.Is(err, model.ErrInitialCovariance), "%s: got %v", name, err)
		_, err = model.NewNumericalLogMeanReverting(p0, 1, 1, 1)
		assert.True(t, errors.Is(err, model.ErrInitialCovariance), "%s: got %v", name, err)
	}
}

func TestVariance_RejectsNegativeHorizon(t *testing.T) {
	t.Parallel()

	for _, name := range model.Names() {
		params := []float64{1, 1, 1}
		if name == model.NameGBM {
			params = []float64{1}
		}
		p, err := model.New(name, nil, params)
		require.NoError(t, err)

		_, err = p.Variance(-0.1)
		var ipe *model.InvalidParameterError
		require.True(t, errors.As(err, &ipe), "%s: got %v", name, err)
		assert.Equal(t, "t", ipe.Field)
	}
}

func TestVariance_ZeroValueIsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p     model.Process
		field string
	}{
		{&model.GeometricBrownianMotion{}, "s"},
		{&model.LogMeanReverting{}, "l"},
		{&model.NumericalLogMeanReverting{}, "l"},
	}
	for _, tc := range tests {
		v, err := tc.p.Variance(1)
		var ipe *model.InvalidParameterError
		require.True(t, errors.As(err, &ipe), "%s: got %v", tc.p.Name(), err)
		assert.Equal(t, tc.field, ipe.Field, tc.p.Name())
		assert.Equal(t, 0.0, ipe.Value, tc.p.Name())
		assert.Equal(t, 0.0, v)
	}

	assert.Nil(t, (&model.LogMeanReverting{}).InitialCovariance())
}

func TestNumerical_IntegrationFailureIsDistinct(t *testing.T) {
	t.Parallel()

	num, err := model.NewNumericalLogMeanReverting(model.Identity(), 1, 1, 1)
	require.NoError(t, err)

	s := ode.DefaultSettings
	s.MaxSteps = 2
	_, err = num.WithSettings(s).Variance(2)

	var ie *model.IntegrationError
	require.True(t, errors.As(err, &ie), "got %v", err)
	assert.True(t, errors.Is(err, ode.ErrMaxSteps))
	var ipe *model.InvalidParameterError
	assert.False(t, errors.As(err, &ipe))

	// Settings survive re-parameterisation.
	next, err := num.WithSettings(s).WithParameters([]float64{2, 1, 1})
	require.NoError(t, err)
	_, err = next.Variance(2)
	assert.True(t, errors.As(err, &ie))
}

func TestNew_Registry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"gbm", "lmrgw", "lmrgw-numerical"}, model.Names())

	p, err := model.New(" GBM ", nil, []float64{0.3})
	require.NoError(t, err)
	assert.Equal(t, model.NameGBM, p.Name())

	_, err = model.New("heston", nil, []float64{1})
	assert.True(t, errors.Is(err, model.ErrUnknownModel), "got %v", err)

	_, err = model.New(model.NameLMRGW, nil, []float64{1})
	assert.True(t, errors.Is(err, model.ErrParameterCount), "got %v", err)
}
