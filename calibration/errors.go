package calibration

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoOptions is returned when there is nothing to fit against.
var ErrNoOptions = errors.New("calibration: no options to calibrate against")

// CalibrationError reports a calibration that could not start or, in
// strict mode, did not converge. The cause is available through Unwrap,
// so errors.As still finds a *model.InvalidParameterError behind an
// invalid initial guess.
type CalibrationError struct {
	Reason string
	Err    error
}

func (e *CalibrationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("calibration: %s", e.Reason)
	}
	return fmt.Sprintf("calibration: %s: %v", e.Reason, e.Err)
}

func (e *CalibrationError) Unwrap() error {
	return e.Err
}

const (
	ReasonInitialGuess   = "invalid initial guess"
	ReasonBounds         = "invalid bounds"
	ReasonOptimizer      = "optimizer failed"
	ReasonNotConverged   = "did not converge"
	ReasonFinalParameter = "optimizer returned invalid parameters"
)
