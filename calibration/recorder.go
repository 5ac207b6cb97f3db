package calibration

import (
	"log/slog"

	"gonum.org/v1/gonum/optimize"
)

// Iteration is one Nelder-Mead major iteration: the best vertex so far.
type Iteration struct {
	N           int       `json:"n"`
	X           []float64 `json:"x"`
	Loss        float64   `json:"loss"`
	Evaluations int       `json:"evaluations"`
}

// traceRecorder implements optimize.Recorder, keeping every major
// iteration and logging it at debug level.
type traceRecorder struct {
	logger *slog.Logger
	trace  []Iteration
}

func (r *traceRecorder) Init() error {
	r.trace = r.trace[:0]
	return nil
}

func (r *traceRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op != optimize.MajorIteration || loc == nil || stats == nil {
		return nil
	}
	x := make([]float64, len(loc.X))
	copy(x, loc.X)
	it := Iteration{
		N:           stats.MajorIterations,
		X:           x,
		Loss:        loc.F,
		Evaluations: stats.FuncEvaluations,
	}
	r.trace = append(r.trace, it)
	r.logger.Debug("calibration iteration",
		slog.Int("iteration", it.N),
		slog.Any("x", it.X),
		slog.Float64("loss", it.Loss),
		slog.Int("evaluations", it.Evaluations),
	)
	return nil
}
