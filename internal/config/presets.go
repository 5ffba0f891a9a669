package config

import (
	"sort"

	"github.com/san-kum/trajgen/internal/planner"
)

type Preset struct {
	Description string
	Apply       func(*planner.Config)
}

var Presets = map[string]Preset{
	"fast": {
		Description: "loose tolerances, few refinements, no collocation error check",
		Apply: func(c *planner.Config) {
			c.Tolerance = 1e-4
			c.MaxSolverIterations = 50
			c.MaxRefinements = 3
			c.ErrorTolerance = 0
		},
	},
	"default": {
		Description: "the built-in defaults",
		Apply:       func(*planner.Config) {},
	},
	"accurate": {
		Description: "tight tolerances, three nodes per segment, adaptive verification",
		Apply: func(c *planner.Config) {
			c.Tolerance = 1e-8
			c.Delta = 3
			c.MaxRefinements = 8
			c.ErrorTolerance = 1e-3
			c.SimTolerance = 1e-4
			c.SimIntegrator = "rk45"
		},
	},
	"robust": {
		Description: "Chebyshev nodes, least-squares warm starts, generous iteration budget",
		Apply: func(c *planner.Config) {
			c.Method = "leven"
			c.NodeType = "chebyshev"
			c.UseFastInterpolation = false
			c.MaxSolverIterations = 300
			c.MaxRefinements = 8
		},
	},
}

func GetPreset(name string) (Preset, bool) {
	p, ok := Presets[name]
	return p, ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
