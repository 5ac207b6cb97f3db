package variance

import (
	"flag"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/meenmo/optcal/cmd/calibrate/internal/cli"
	"github.com/meenmo/optcal/model"
)

// Output is the variance of log spot at one horizon. Numerical is only
// set for the mean-reverting family, where both solutions exist.
type Output struct {
	T           float64  `json:"t"`
	Model       string   `json:"model"`
	Analytic    float64  `json:"analytic"`
	Numerical   *float64 `json:"numerical,omitempty"`
	RelativeGap *float64 `json:"relative_gap,omitempty"`
}

func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("variance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	name := fs.String("model", model.NameLMRGW, "model name")
	params := fs.String("params", "", "comma separated model parameters")
	p0 := fs.String("p0", "", "initial covariance p00,p01,p11 for mean-reverting models")
	horizons := fs.String("t", "1", "comma separated horizons in years")
	help := fs.Bool("h", false, "Show help")
	fs.BoolVar(help, "help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		usage(stderr)
		return 0
	}

	cfg, _, err := cli.Setup(*configPath, stderr)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	values, err := cli.ParseFloats(*params)
	if err != nil {
		return cli.WriteError(stdout, fmt.Sprintf("invalid params: %v", err))
	}
	if values == nil {
		values = cli.DefaultGuess(*name)
	}
	ts, err := cli.ParseFloats(*horizons)
	if err != nil || len(ts) == 0 {
		return cli.WriteError(stdout, fmt.Sprintf("invalid -t %q", *horizons))
	}
	cov, err := cli.ParseCovariance(*p0)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}

	key := strings.ToLower(strings.TrimSpace(*name))
	analyticName := key
	numericalName := ""
	if key == model.NameLMRGW || key == model.NameLMRGWNumerical {
		analyticName, numericalName = model.NameLMRGW, model.NameLMRGWNumerical
	}

	analytic, err := cli.BuildProcess(analyticName, cov, values, cfg.ODESettings())
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	var numerical model.Process
	if numericalName != "" {
		numerical, err = cli.BuildProcess(numericalName, cov, values, cfg.ODESettings())
		if err != nil {
			return cli.WriteError(stdout, err.Error())
		}
	}

	outputs := make([]Output, 0, len(ts))
	for _, t := range ts {
		a, err := analytic.Variance(t)
		if err != nil {
			return cli.WriteError(stdout, err.Error())
		}
		o := Output{T: t, Model: analytic.Name(), Analytic: a}
		if numerical != nil {
			n, err := numerical.Variance(t)
			if err != nil {
				return cli.WriteError(stdout, err.Error())
			}
			gap := relativeGap(a, n)
			o.Numerical, o.RelativeGap = &n, &gap
		}
		outputs = append(outputs, o)
	}
	cli.WriteJSON(stdout, outputs)
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  calibrate variance -model lmrgw -params 1,1,0.05 -t 1")
	fmt.Fprintln(w, "  calibrate variance -model lmrgw -params 1.5,0.3,0.2 -p0 0.04,0.01,0.09 -t 0.25,0.5,1")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the model variance of log spot; mean-reverting models show the closed form")
	fmt.Fprintln(w, "and the integrated covariance side by side.")
}

func relativeGap(a, n float64) float64 {
	if n == 0 {
		return math.Abs(a)
	}
	return math.Abs(a-n) / math.Abs(n)
}
