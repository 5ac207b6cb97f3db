package model

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidParameterError is returned when a model parameter (or a variance
// horizon) lies outside its domain. No model value carrying an invalid
// parameter is ever returned alongside it.
type InvalidParameterError struct {
	Model string
	Field string
	Value float64
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("model: %s: invalid parameter %s=%v", e.Model, e.Field, e.Value)
}

// IntegrationError reports that the numerical variance integration failed.
// It is never an InvalidParameterError: the parameters were valid but the
// solver could not reach the horizon.
type IntegrationError struct {
	Model string
	T     float64
	Err   error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("model: %s: variance integration to t=%v failed: %v", e.Model, e.T, e.Err)
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

var (
	// ErrParameterCount is wrapped when a parameter vector has the wrong length.
	ErrParameterCount = errors.New("model: wrong number of parameters")
	// ErrUnknownModel is wrapped by New for unregistered names.
	ErrUnknownModel = errors.New("model: unknown model")
	// ErrInitialCovariance is wrapped when p_0 is not a 2x2 covariance matrix.
	ErrInitialCovariance = errors.New("model: invalid initial covariance")
)
