package fit

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/optcal/calibration"
	"github.com/meenmo/optcal/cmd/calibrate/internal/cli"
	"github.com/meenmo/optcal/config"
	"github.com/meenmo/optcal/logging"
	"github.com/meenmo/optcal/option"
	"github.com/meenmo/optcal/pricing"
)

// Output is one calibration run.
type Output struct {
	RunID          string    `json:"run_id"`
	Model          string    `json:"model"`
	ParameterNames []string  `json:"parameter_names,omitempty"`
	Initial        []float64 `json:"initial,omitempty"`
	Parameters     []float64 `json:"parameters,omitempty"`
	Loss           float64   `json:"loss"`
	InitialLoss    float64   `json:"initial_loss"`
	Converged      bool      `json:"converged"`
	Status         string    `json:"status,omitempty"`
	Iterations     int       `json:"iterations"`
	Evaluations    int       `json:"evaluations"`
	Error          string    `json:"error,omitempty"`
}

func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "quote table (.csv or .xlsx); CSV is read from stdin when empty")
	sheet := fs.String("sheet", "", "worksheet of an .xlsx input (default: first sheet)")
	configPath := fs.String("config", "", "YAML configuration file")
	models := fs.String("models", "gbm", "comma separated models to fit")
	guess := fs.String("guess", "", "comma separated initial parameters (single model only)")
	p0 := fs.String("p0", "", "initial covariance p00,p01,p11 for mean-reverting models")
	jobs := fs.Int("jobs", runtime.NumCPU(), "models calibrated concurrently")
	help := fs.Bool("h", false, "Show help")
	fs.BoolVar(help, "help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		usage(stderr)
		return 0
	}
	if *inputPath == "" && cli.IsTerminal(stdin) {
		usage(stderr)
		return 2
	}

	cfg, logger, err := cli.Setup(*configPath, stderr)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}

	names := cli.SplitNames(*models)
	if len(names) == 0 {
		return cli.WriteError(stdout, "at least one model is required")
	}
	initial, err := cli.ParseFloats(*guess)
	if err != nil {
		return cli.WriteError(stdout, fmt.Sprintf("invalid guess: %v", err))
	}
	if initial != nil && len(names) > 1 {
		return cli.WriteError(stdout, "-guess can only be used with a single model")
	}
	cov, err := cli.ParseCovariance(*p0)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}

	quotes, err := cli.LoadQuotes(stdin, *inputPath, *sheet)
	if err != nil {
		return cli.WriteError(stdout, fmt.Sprintf("failed to read input: %v", err))
	}

	runs := make([]request, len(names))
	for i, n := range names {
		x0 := initial
		if x0 == nil {
			x0 = cli.DefaultGuess(n)
		}
		runs[i] = request{name: n, p0: cov, guess: x0}
	}

	outputs, err := fitAll(context.Background(), cfg, logger, quotes, runs, *jobs)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	cli.WriteJSON(stdout, outputs)

	for _, o := range outputs {
		if o.Error != "" {
			return 1
		}
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  calibrate fit -input quotes.csv [-models gbm,lmrgw] [-guess 0.3] [-config optcal.yaml]")
	fmt.Fprintln(w, "  calibrate fit -models lmrgw -p0 0.04,0.01,0.09 < quotes.csv")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Calibrate each model to the quotes and print one JSON result per model.")
}

type request struct {
	name  string
	p0    mat.Symmetric
	guess []float64
}

// fitAll calibrates every request concurrently. Each goroutine owns its
// model and calibrator; per-model failures are reported in Output.Error.
func fitAll(ctx context.Context, cfg *config.Config, logger *slog.Logger, quotes []option.Option, runs []request, jobs int) ([]Output, error) {
	out := make([]Output, len(runs))
	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, r := range runs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id := uuid.NewString()
			out[i] = fitOne(cfg, logging.WithRunID(logger, id), quotes, r)
			out[i].RunID = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func fitOne(cfg *config.Config, logger *slog.Logger, quotes []option.Option, r request) Output {
	o := Output{Model: r.name, Initial: r.guess}

	p, err := cli.BuildProcess(r.name, r.p0, r.guess, cfg.ODESettings())
	if err != nil {
		o.Error = err.Error()
		return o
	}
	o.Model = p.Name()
	o.ParameterNames = p.ParameterNames()

	m, err := pricing.NewModel(p, cfg.RiskFreeRate)
	if err != nil {
		o.Error = err.Error()
		return o
	}

	c := calibration.New(quotes,
		calibration.WithConfig(cfg.Calibration()),
		calibration.WithLogger(logger),
	)
	res, _, err := c.Calibrate(m)
	if res != nil {
		o.Parameters = res.X
		o.Loss = res.Loss
		o.InitialLoss = res.InitialLoss
		o.Converged = res.Converged
		o.Status = res.Status.String()
		o.Iterations = res.Stats.MajorIterations
		o.Evaluations = res.Stats.FuncEvaluations
	}
	if err != nil {
		logger.Error("calibration failed", slog.String("model", o.Model), slog.Any("error", err))
		o.Error = err.Error()
	}
	return o
}
