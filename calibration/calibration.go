// Package calibration fits a pricing model to market option quotes by
// minimising the sum of squared pricing errors over the process
// parameters.
package calibration

import (
	"log/slog"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/optimize"

	"github.com/meenmo/optcal/option"
	"github.com/meenmo/optcal/pricing"
)

// maxPenalty leaves headroom below MaxFloat64 for the simplex arithmetic.
const maxPenalty = math.MaxFloat64 / 2

// Calibrator fits models to a fixed set of option quotes. It holds no model
// state; each Calibrate call owns the models it creates.
type Calibrator struct {
	options []option.Option
	cfg     Config
	logger  *slog.Logger
}

// Option customises a Calibrator.
type Option func(*Calibrator)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(c *Calibrator) { c.cfg = cfg }
}

// WithLogger sets the logger. Iterations are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Calibrator) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Calibrator over a copy of options.
func New(options []option.Option, opts ...Option) *Calibrator {
	c := &Calibrator{
		options: append([]option.Option(nil), options...),
		cfg:     DefaultConfig,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Options returns the quotes being fitted.
func (c *Calibrator) Options() []option.Option {
	return append([]option.Option(nil), c.options...)
}

// Result is the outcome of a calibration run. Raw is gonum's result,
// passed through unchanged.
type Result struct {
	X           []float64
	Loss        float64
	InitialLoss float64
	Converged   bool
	Status      optimize.Status
	Stats       optimize.Stats
	Trace       []Iteration
	Raw         *optimize.Result
}

// Loss is Σ (model price − market price)² over the quotes. Any pricing
// error is returned as is.
func (c *Calibrator) Loss(m *pricing.Model) (float64, error) {
	if len(c.options) == 0 {
		return 0, ErrNoOptions
	}
	var loss float64
	for _, o := range c.options {
		p, err := m.Price(o)
		if err != nil {
			return 0, err
		}
		d := p - o.Price()
		loss += d * d
	}
	return loss, nil
}

// Residuals returns model price − market price per quote, in quote order.
func (c *Calibrator) Residuals(m *pricing.Model) ([]float64, error) {
	out := make([]float64, len(c.options))
	for i, o := range c.options {
		p, err := m.Price(o)
		if err != nil {
			return nil, err
		}
		out[i] = p - o.Price()
	}
	return out, nil
}

// Calibrate searches the parameters of m minimising Loss, starting from
// m's own parameters, with a deterministic Nelder-Mead simplex.
//
// The initial guess is evaluated strictly: if it cannot be priced the call
// fails with a *CalibrationError wrapping the cause. During the search,
// points the model rejects are given a penalty loss instead.
//
// The returned model carries exactly Result.X. In strict mode a
// non-converged search returns the Result with a *CalibrationError and no
// model.
func (c *Calibrator) Calibrate(m *pricing.Model) (*Result, *pricing.Model, error) {
	if len(c.options) == 0 {
		return nil, nil, ErrNoOptions
	}
	if m == nil || m.Process == nil {
		return nil, nil, &CalibrationError{Reason: ReasonInitialGuess, Err: errors.New("model is required")}
	}

	x0 := m.Parameters()
	bounds, err := c.bounds(len(x0))
	if err != nil {
		return nil, nil, err
	}
	if v := boundViolation(x0, bounds); v > 0 {
		return nil, nil, &CalibrationError{Reason: ReasonInitialGuess, Err: errors.Errorf("parameters %v outside bounds", x0)}
	}
	// Re-validate through the model so a hand-built Model cannot smuggle
	// an invalid guess past the constructors.
	if _, err := m.WithParameters(x0); err != nil {
		return nil, nil, &CalibrationError{Reason: ReasonInitialGuess, Err: err}
	}
	initialLoss, err := c.Loss(m)
	if err != nil {
		return nil, nil, &CalibrationError{Reason: ReasonInitialGuess, Err: err}
	}
	if math.IsNaN(initialLoss) || math.IsInf(initialLoss, 0) {
		return nil, nil, &CalibrationError{Reason: ReasonInitialGuess, Err: errors.Errorf("non-finite loss %v", initialLoss)}
	}

	penalty := math.Max(c.cfg.Penalty, 1000*(1+initialLoss))
	rec := &traceRecorder{logger: c.logger}
	problem := optimize.Problem{Func: c.objective(m, bounds, penalty)}
	settings := &optimize.Settings{
		MajorIterations: c.cfg.MaxIterations,
		FuncEvaluations: c.cfg.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   c.cfg.ConvergeAbsolute,
			Relative:   c.cfg.ConvergeRelative,
			Iterations: c.cfg.ConvergeIterations,
		},
		Recorder: rec,
	}
	method := &optimize.NelderMead{SimplexSize: c.cfg.SimplexSize}

	name := m.Process.Name()
	c.logger.Info("calibration started",
		slog.String("model", name),
		slog.Int("options", len(c.options)),
		slog.Any("initial", x0),
		slog.Float64("initial_loss", initialLoss),
	)
	start := time.Now()

	raw, err := optimize.Minimize(problem, x0, settings, method)
	if raw == nil || (err != nil && !isLimit(raw.Status)) {
		if err == nil {
			err = errors.New("no result")
		}
		return nil, nil, &CalibrationError{Reason: ReasonOptimizer, Err: err}
	}

	res := &Result{
		X:           append([]float64(nil), raw.X...),
		Loss:        raw.F,
		InitialLoss: initialLoss,
		Converged:   isConverged(raw.Status),
		Status:      raw.Status,
		Stats:       raw.Stats,
		Trace:       rec.trace,
		Raw:         raw,
	}

	c.logger.Info("calibration finished",
		slog.String("model", name),
		slog.Any("x", res.X),
		slog.Float64("loss", res.Loss),
		slog.Bool("converged", res.Converged),
		slog.String("status", res.Status.String()),
		slog.Int("iterations", res.Stats.MajorIterations),
		slog.Int("evaluations", res.Stats.FuncEvaluations),
		slog.Duration("elapsed", time.Since(start)),
	)

	if !res.Converged && c.cfg.Strict {
		return res, nil, &CalibrationError{Reason: ReasonNotConverged, Err: errors.Errorf("status %s", res.Status)}
	}

	calibrated, err := m.WithParameters(res.X)
	if err != nil {
		return res, nil, &CalibrationError{Reason: ReasonFinalParameter, Err: err}
	}
	return res, calibrated, nil
}

// objective is the search-side loss: unlike Loss it never fails. Points
// outside Bounds or rejected by the model score penalty·(1 + violation²) so
// the simplex is pushed back towards the valid region.
func (c *Calibrator) objective(base *pricing.Model, bounds []Bound, penalty float64) func([]float64) float64 {
	return func(x []float64) float64 {
		if v := boundViolation(x, bounds); v > 0 {
			return capPenalty(penalty * (1 + v))
		}
		m, err := base.WithParameters(x)
		if err != nil {
			return capPenalty(penalty * (1 + domainViolation(x)))
		}
		loss, err := c.Loss(m)
		if err != nil || math.IsNaN(loss) || math.IsInf(loss, 0) {
			return capPenalty(penalty)
		}
		return loss
	}
}

// capPenalty keeps far-off points finite; NelderMead cannot order +Inf
// vertices.
func capPenalty(v float64) float64 {
	return math.Min(v, maxPenalty)
}

func (c *Calibrator) bounds(n int) ([]Bound, error) {
	if len(c.cfg.Bounds) == 0 {
		out := make([]Bound, n)
		for i := range out {
			out[i] = PositiveBound
		}
		return out, nil
	}
	if len(c.cfg.Bounds) != n {
		return nil, &CalibrationError{Reason: ReasonBounds, Err: errors.Errorf("%d bounds for %d parameters", len(c.cfg.Bounds), n)}
	}
	for i, b := range c.cfg.Bounds {
		if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) || b.Lower > b.Upper {
			return nil, &CalibrationError{Reason: ReasonBounds, Err: errors.Errorf("bound %d is [%v, %v]", i, b.Lower, b.Upper)}
		}
	}
	return c.cfg.Bounds, nil
}

// boundViolation is the squared distance of x outside bounds.
func boundViolation(x []float64, bounds []Bound) float64 {
	var v float64
	for i, xi := range x {
		if math.IsNaN(xi) {
			return math.MaxFloat64
		}
		b := bounds[i]
		switch {
		case xi < b.Lower:
			v += (b.Lower - xi) * (b.Lower - xi)
		case xi > b.Upper:
			v += (xi - b.Upper) * (xi - b.Upper)
		}
	}
	return v
}

// domainViolation is the squared distance of x below zero.
func domainViolation(x []float64) float64 {
	var v float64
	for _, xi := range x {
		if xi < 0 {
			v += xi * xi
		}
	}
	return v
}

func isConverged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionConvergence,
		optimize.FunctionThreshold,
		optimize.GradientThreshold,
		optimize.MethodConverge:
		return true
	}
	return false
}

func isLimit(s optimize.Status) bool {
	switch s {
	case optimize.IterationLimit,
		optimize.FunctionEvaluationLimit,
		optimize.RuntimeLimit:
		return true
	}
	return false
}
