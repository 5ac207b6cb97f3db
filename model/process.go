// Package model implements the stochastic processes whose variance drives
// option prices during calibration.
//
// Every process is immutable and only obtainable through a validating
// constructor: a value either exists with strictly positive parameters or
// an *InvalidParameterError is returned instead.
package model

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Process is the capability set shared by all models.
type Process interface {
	// Name is the registry name of the model.
	Name() string
	// Variance of the log-price at horizon t (years), t >= 0.
	Variance(t float64) (float64, error)
	// Parameters returns the free parameters in their canonical order.
	Parameters() []float64
	// ParameterNames labels Parameters, in the same order.
	ParameterNames() []string
	// WithParameters returns a copy of the process with new free
	// parameters. Fixed state (e.g. the initial covariance) is kept.
	WithParameters(p []float64) (Process, error)
}

// Registry names.
const (
	NameGBM            = "gbm"
	NameLMRGW          = "lmrgw"
	NameLMRGWNumerical = "lmrgw-numerical"
)

type factory func(p0 mat.Symmetric, params []float64) (Process, error)

var registry = map[string]factory{
	NameGBM: func(_ mat.Symmetric, params []float64) (Process, error) {
		if err := checkCount(NameGBM, params, 1); err != nil {
			return nil, err
		}
		m, err := NewGeometricBrownianMotion(params[0])
		if err != nil {
			return nil, err
		}
		return m, nil
	},
	NameLMRGW: func(p0 mat.Symmetric, params []float64) (Process, error) {
		if err := checkCount(NameLMRGW, params, 3); err != nil {
			return nil, err
		}
		m, err := NewLogMeanReverting(p0, params[0], params[1], params[2])
		if err != nil {
			return nil, err
		}
		return m, nil
	},
	NameLMRGWNumerical: func(p0 mat.Symmetric, params []float64) (Process, error) {
		if err := checkCount(NameLMRGWNumerical, params, 3); err != nil {
			return nil, err
		}
		m, err := NewNumericalLogMeanReverting(p0, params[0], params[1], params[2])
		if err != nil {
			return nil, err
		}
		return m, nil
	},
}

// New builds a registered process by name. p0 is ignored by GBM; a nil p0
// for the mean-reverting models means the 2x2 identity.
func New(name string, p0 mat.Symmetric, params []float64) (Process, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownModel, "%q (known: %s)", name, strings.Join(Names(), ", "))
	}
	if p0 == nil {
		p0 = Identity()
	}
	return f(p0, params)
}

// Names lists the registered model names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Identity returns a fresh 2x2 identity covariance.
func Identity() *mat.SymDense {
	return mat.NewSymDense(2, []float64{1, 0, 0, 1})
}

func checkCount(model string, params []float64, want int) error {
	if len(params) != want {
		return errors.Wrapf(ErrParameterCount, "%s takes %d, got %d", model, want, len(params))
	}
	return nil
}

// checkPositive validates values against names pairwise, reporting the
// first offender.
func checkPositive(model string, names []string, values ...float64) error {
	for i, v := range values {
		if !(v > 0) || math.IsInf(v, 0) {
			return &InvalidParameterError{Model: model, Field: names[i], Value: v}
		}
	}
	return nil
}

func checkHorizon(model string, t float64) error {
	if !(t >= 0) || math.IsInf(t, 0) {
		return &InvalidParameterError{Model: model, Field: "t", Value: t}
	}
	return nil
}
