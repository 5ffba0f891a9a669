package config

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/trajgen/internal/dynamo"
)

// Batch is a named set of runs planned together. Each entry of runs has the
// layout of a config file.
type Batch struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Runs        []yaml.Node `yaml:"runs"`
}

// LoadBatch reads a batch file and resolves every run the way Load resolves
// a single file. Errors of all runs are reported together.
func LoadBatch(path string) (string, []*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", dynamo.ErrInvalidConfig, path, err)
	}
	if len(b.Runs) == 0 {
		return "", nil, fmt.Errorf("%w: %s: no runs", dynamo.ErrInvalidConfig, path)
	}

	cfgs := make([]*Config, len(b.Runs))
	var errs error
	for i := range b.Runs {
		cfg, err := decodeRun(&b.Runs[i])
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("run %d: %w", i, err))
			continue
		}
		cfgs[i] = cfg
	}
	if errs != nil {
		return "", nil, errs
	}
	return b.Name, cfgs, nil
}

func decodeRun(node *yaml.Node) (*Config, error) {
	var head struct {
		Problem string `yaml:"problem"`
		Preset  string `yaml:"preset"`
	}
	if err := node.Decode(&head); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidConfig, err)
	}
	cfg, err := New(head.Problem, head.Preset)
	if err != nil {
		return nil, err
	}
	if err := node.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidConfig, err)
	}
	return cfg, nil
}
