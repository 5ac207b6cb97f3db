// Package cli holds the input, model and output plumbing shared by the
// calibrate subcommands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/optcal/config"
	"github.com/meenmo/optcal/logging"
	"github.com/meenmo/optcal/model"
	"github.com/meenmo/optcal/ode"
	"github.com/meenmo/optcal/option"
)

// ErrorOutput is written to stdout when a command fails as a whole.
type ErrorOutput struct {
	Error string `json:"error"`
}

// WriteJSON marshals v as a single line on w.
func WriteJSON(w io.Writer, v any) {
	b, _ := json.Marshal(v)
	fmt.Fprintln(w, string(b))
}

// WriteError writes {"error": msg} and returns exit status 1.
func WriteError(w io.Writer, msg string) int {
	WriteJSON(w, ErrorOutput{Error: msg})
	return 1
}

// Setup loads the configuration at path (empty = defaults and environment)
// and builds a logger writing to stderr.
func Setup(path string, stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging, stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// IsTerminal reports whether r is an interactive terminal, in which case
// there is no piped input to read.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice != 0
}

// LoadQuotes reads the quote table from path, or CSV from stdin when path
// is empty. A non-empty sheet selects a worksheet of an Excel file.
func LoadQuotes(stdin io.Reader, path, sheet string) ([]option.Option, error) {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return option.ReadCSV(stdin)
	case sheet != "":
		return option.LoadXLSX(path, sheet)
	default:
		return option.Load(path)
	}
}

// ParseFloats parses a comma separated list. An empty string yields nil.
func ParseFloats(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", p)
		}
		out[i] = d.InexactFloat64()
	}
	return out, nil
}

// ParseCovariance parses "p00,p01,p11" into a symmetric 2x2 matrix. An
// empty string yields a nil interface so model.New falls back to the
// identity.
func ParseCovariance(s string) (mat.Symmetric, error) {
	v, err := ParseFloats(s)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	if len(v) != 3 {
		return nil, errors.Errorf("p0 needs 3 values (p00,p01,p11), got %d", len(v))
	}
	return mat.NewSymDense(2, []float64{v[0], v[1], v[1], v[2]}), nil
}

// SplitNames parses a comma separated model list, dropping blanks and
// duplicates while keeping order.
func SplitNames(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range strings.Split(s, ",") {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

var defaultGuesses = map[string][]float64{
	model.NameGBM:            {0.2},
	model.NameLMRGW:          {1, 0.5, 0.5},
	model.NameLMRGWNumerical: {1, 0.5, 0.5},
}

// DefaultGuess is the starting point used by fit when none is given.
func DefaultGuess(name string) []float64 {
	return append([]float64(nil), defaultGuesses[strings.ToLower(strings.TrimSpace(name))]...)
}

// BuildProcess creates a named process and applies the ODE settings to the
// numerical variant.
func BuildProcess(name string, p0 mat.Symmetric, params []float64, s ode.Settings) (model.Process, error) {
	p, err := model.New(name, p0, params)
	if err != nil {
		return nil, err
	}
	if n, ok := p.(*model.NumericalLogMeanReverting); ok {
		return n.WithSettings(s), nil
	}
	return p, nil
}
