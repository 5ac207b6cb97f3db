package price

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/meenmo/optcal/cmd/calibrate/internal/cli"
	"github.com/meenmo/optcal/pricing"
)

// Output is one priced quote.
type Output struct {
	Date        string  `json:"date"`
	Maturity    string  `json:"maturity"`
	Type        string  `json:"option_type"`
	Strike      float64 `json:"strike"`
	Spot        float64 `json:"spot"`
	MarketPrice float64 `json:"market_price"`
	ModelPrice  float64 `json:"model_price"`
	Residual    float64 `json:"residual"`
	Volatility  float64 `json:"volatility"`

	// MarketVolatility is the Black-Scholes volatility implied by the
	// market price; omitted when the price admits none.
	MarketVolatility *float64 `json:"market_volatility,omitempty"`
}

func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "quote table (.csv or .xlsx); CSV is read from stdin when empty")
	sheet := fs.String("sheet", "", "worksheet of an .xlsx input (default: first sheet)")
	configPath := fs.String("config", "", "YAML configuration file")
	name := fs.String("model", "gbm", "model name")
	params := fs.String("params", "", "comma separated model parameters")
	p0 := fs.String("p0", "", "initial covariance p00,p01,p11 for mean-reverting models")
	rate := fs.String("r", "", "continuously compounded risk-free rate (default: from config)")
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

	cfg, _, err := cli.Setup(*configPath, stderr)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	r := cfg.RiskFreeRate
	if s := strings.TrimSpace(*rate); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return cli.WriteError(stdout, fmt.Sprintf("invalid -r: %v", err))
		}
		r = d.InexactFloat64()
	}

	values, err := cli.ParseFloats(*params)
	if err != nil {
		return cli.WriteError(stdout, fmt.Sprintf("invalid params: %v", err))
	}
	if values == nil {
		values = cli.DefaultGuess(*name)
	}
	cov, err := cli.ParseCovariance(*p0)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	p, err := cli.BuildProcess(*name, cov, values, cfg.ODESettings())
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	m, err := pricing.NewModel(p, r)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}

	quotes, err := cli.LoadQuotes(stdin, *inputPath, *sheet)
	if err != nil {
		return cli.WriteError(stdout, fmt.Sprintf("failed to read input: %v", err))
	}

	outputs := make([]Output, 0, len(quotes))
	for i, q := range quotes {
		mp, err := m.Price(q)
		if err != nil {
			return cli.WriteError(stdout, errors.Wrapf(err, "quote %d", i+1).Error())
		}
		vol, err := m.Volatility(q.YearsToMaturity())
		if err != nil {
			return cli.WriteError(stdout, errors.Wrapf(err, "quote %d", i+1).Error())
		}
		o := Output{
			Date:        q.Date().Format("2006-01-02"),
			Maturity:    q.Maturity().Format("2006-01-02"),
			Type:        string(q.Type()),
			Strike:      q.Strike(),
			Spot:        q.Spot(),
			MarketPrice: q.Price(),
			ModelPrice:  mp,
			Residual:    mp - q.Price(),
			Volatility:  vol,
		}
		if iv, _, err := pricing.ImpliedVolatility(q.Type(), q.Spot(), q.Strike(), q.YearsToMaturity(), r, q.Price()); err == nil {
			o.MarketVolatility = &iv
		}
		outputs = append(outputs, o)
	}
	cli.WriteJSON(stdout, outputs)
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  calibrate price -input quotes.csv -model gbm -params 0.25")
	fmt.Fprintln(w, "  calibrate price -model lmrgw -params 1,1,0.05 -r 0.01 < quotes.csv")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Price every quote with the given model and print prices and residuals as JSON.")
}
