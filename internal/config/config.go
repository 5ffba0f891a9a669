// Package config loads and validates YAML run configurations.
package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/trajgen/internal/dynamo"
	"github.com/san-kum/trajgen/internal/planner"
	"github.com/san-kum/trajgen/internal/problems"
	"github.com/san-kum/trajgen/internal/symbolic"
)

const (
	DefaultProblem = "double_integrator"
	DefaultDir     = "runs"
	DefaultSamples = 200
)

var ErrUnknownPreset = errors.New("unknown preset")

var registry = problems.NewRegistry()

// Registry returns the problem registry configurations resolve names in.
func Registry() *problems.Registry { return registry }

type Config struct {
	Problem string         `yaml:"problem"`
	Preset  string         `yaml:"preset,omitempty"`
	System  *SystemConfig  `yaml:"system,omitempty"`
	Planner planner.Config `yaml:"planner"`
	Output  OutputConfig   `yaml:"output"`
}

// SystemConfig defines a problem inline. Dynamics holds one Go expression
// per state over x1…xn, u1…um and the names in Params.
type SystemConfig struct {
	Name     string             `yaml:"name"`
	A        float64            `yaml:"a"`
	B        float64            `yaml:"b"`
	XA       []float64          `yaml:"xa"`
	XB       []float64          `yaml:"xb"`
	UA       []float64          `yaml:"ua,omitempty"`
	UB       []float64          `yaml:"ub,omitempty"`
	Inputs   int                `yaml:"inputs"`
	Params   map[string]float64 `yaml:"params,omitempty"`
	Dynamics []string           `yaml:"dynamics"`
}

type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Samples int    `yaml:"samples"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem: DefaultProblem,
		Planner: planner.DefaultConfig(),
		Output: OutputConfig{
			Dir:     DefaultDir,
			Samples: DefaultSamples,
		},
	}
}

// New returns the defaults for a registered problem with its tuning and
// the named preset applied, in that order. Empty names are skipped.
func New(problem, preset string) (*Config, error) {
	cfg := DefaultConfig()
	if problem != "" {
		cfg.Problem = problem
		if e, err := registry.Get(problem); err == nil && e.Tune != nil {
			e.Tune(&cfg.Planner)
		}
	}
	if preset != "" {
		p, ok := GetPreset(preset)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, preset)
		}
		cfg.Preset = preset
		p.Apply(&cfg.Planner)
	}
	return cfg, nil
}

// Load reads a YAML file. Values in the file override the preset it names,
// which overrides the problem tuning and the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var head struct {
		Problem string `yaml:"problem"`
		Preset  string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dynamo.ErrInvalidConfig, path, err)
	}
	cfg, err := New(head.Problem, head.Preset)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dynamo.ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	errs := c.Planner.Validate()
	if c.Output.Samples < 2 {
		errs = multierr.Append(errs, fmt.Errorf("%w: output samples must be at least 2, got %d", dynamo.ErrInvalidConfig, c.Output.Samples))
	}
	if c.System == nil {
		if _, err := registry.Get(c.Problem); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %v", dynamo.ErrInvalidConfig, err))
		}
		return errs
	}

	p, err := c.System.Problem()
	if err != nil {
		return multierr.Append(errs, err)
	}
	return multierr.Append(errs, p.Validate())
}

// BuildProblem returns the inline system if one is given, otherwise the
// registered problem.
func (c *Config) BuildProblem() (planner.Problem, error) {
	if c.System != nil {
		return c.System.Problem()
	}
	e, err := registry.Get(c.Problem)
	if err != nil {
		return planner.Problem{}, err
	}
	return e.Build(), nil
}

// Name is the name runs of this configuration are stored under.
func (c *Config) Name() string {
	if c.System != nil && c.System.Name != "" {
		return c.System.Name
	}
	if c.System != nil {
		return "custom"
	}
	return c.Problem
}

// Problem parses the dynamics and assembles a planner problem.
func (s *SystemConfig) Problem() (planner.Problem, error) {
	exprs, err := symbolic.ParseAll(s.Dynamics, s.Params)
	if err != nil {
		return planner.Problem{}, fmt.Errorf("%w: %v", dynamo.ErrInvalidProblem, err)
	}
	name := s.Name
	if name == "" {
		name = "custom"
	}
	return planner.Problem{
		Name: name,
		Dynamics: func(x, u []symbolic.Expr) []symbolic.Expr {
			return exprs
		},
		A:      s.A,
		B:      s.B,
		XA:     s.XA,
		XB:     s.XB,
		UA:     s.UA,
		UB:     s.UB,
		Inputs: s.Inputs,
	}, nil
}
