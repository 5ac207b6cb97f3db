// Package config loads calibration settings from a YAML file, overridden by
// OPTCAL_* environment variables.
package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/meenmo/optcal/calibration"
	"github.com/meenmo/optcal/ode"
)

// EnvPrefix prefixes every environment override, e.g. OPTCAL_PENALTY or
// OPTCAL_ODE_RTOL.
const EnvPrefix = "OPTCAL"

// Config is the full set of tunables.
type Config struct {
	RiskFreeRate       float64 `yaml:"risk_free_rate" envconfig:"RISK_FREE_RATE" validate:"gte=-1,lte=1"`
	Penalty            float64 `yaml:"penalty" envconfig:"PENALTY" validate:"gt=0"`
	MaxIterations      int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" validate:"gte=0"`
	MaxEvaluations     int     `yaml:"max_evaluations" envconfig:"MAX_EVALUATIONS" validate:"gte=0"`
	ConvergeIterations int     `yaml:"converge_iterations" envconfig:"CONVERGE_ITERATIONS" validate:"gte=1"`
	ConvergeAbsolute   float64 `yaml:"converge_absolute" envconfig:"CONVERGE_ABSOLUTE" validate:"gte=0"`
	ConvergeRelative   float64 `yaml:"converge_relative" envconfig:"CONVERGE_RELATIVE" validate:"gte=0"`
	SimplexSize        float64 `yaml:"simplex_size" envconfig:"SIMPLEX_SIZE" validate:"gt=0"`
	Strict             bool    `yaml:"strict" envconfig:"STRICT"`

	ODE     ODE     `yaml:"ode" envconfig:"ODE"`
	Logging Logging `yaml:"logging" envconfig:"LOGGING"`
}

// ODE configures the numerical covariance integrator.
type ODE struct {
	RelTol   float64 `yaml:"rtol" envconfig:"RTOL" validate:"gt=0,lt=1"`
	AbsTol   float64 `yaml:"atol" envconfig:"ATOL" validate:"gt=0"`
	MaxSteps int     `yaml:"max_steps" envconfig:"MAX_STEPS" validate:"gte=1"`
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

// Default mirrors calibration.DefaultConfig and ode.DefaultSettings.
func Default() Config {
	c := calibration.DefaultConfig
	s := ode.DefaultSettings
	return Config{
		RiskFreeRate:       0,
		Penalty:            c.Penalty,
		MaxIterations:      c.MaxIterations,
		MaxEvaluations:     c.MaxEvaluations,
		ConvergeIterations: c.ConvergeIterations,
		ConvergeAbsolute:   c.ConvergeAbsolute,
		ConvergeRelative:   c.ConvergeRelative,
		SimplexSize:        c.SimplexSize,
		Strict:             c.Strict,
		ODE: ODE{
			RelTol:   s.RelTol,
			AbsTol:   s.AbsTol,
			MaxSteps: s.MaxSteps,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path (skipped when empty) over Default, applies environment
// overrides and validates the result. Unknown YAML keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "config: read file")
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "config: parse %s", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "config: environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks the struct tags and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "config: validate")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return errors.Errorf("config: invalid %s", strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "oneof":
		return field + " must be one of [" + fe.Param() + "]"
	case "gt", "gte", "lt", "lte":
		return field + " must be " + fe.Tag() + " " + fe.Param()
	default:
		return field + " failed " + fe.Tag()
	}
}

// Calibration maps the file settings onto calibration.Config. Bounds are
// left unset, so every parameter keeps the default positive domain.
func (c *Config) Calibration() calibration.Config {
	return calibration.Config{
		MaxIterations:      c.MaxIterations,
		MaxEvaluations:     c.MaxEvaluations,
		ConvergeIterations: c.ConvergeIterations,
		ConvergeAbsolute:   c.ConvergeAbsolute,
		ConvergeRelative:   c.ConvergeRelative,
		SimplexSize:        c.SimplexSize,
		Penalty:            c.Penalty,
		Strict:             c.Strict,
	}
}

// ODESettings returns ode.DefaultSettings with the configured tolerances
// and step budget.
func (c *Config) ODESettings() ode.Settings {
	s := ode.DefaultSettings
	s.RelTol = c.ODE.RelTol
	s.AbsTol = c.ODE.AbsTol
	s.MaxSteps = c.ODE.MaxSteps
	return s
}
