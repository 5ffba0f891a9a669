// Package problems holds named control problems ready for the planner.
package problems

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/trajgen/internal/planner"
)

var ErrUnknownProblem = errors.New("unknown problem")

// Entry describes a registered problem. Tune adjusts a configuration to
// settings the problem is known to solve with; it may be nil.
type Entry struct {
	Name        string
	Description string
	Build       func() planner.Problem
	Tune        func(*planner.Config)
}

type Registry struct {
	entries map[string]Entry
}

func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]Entry)}

	r.Register(Entry{
		Name:        "double_integrator",
		Description: "rest to rest transfer of a unit mass, x1'' = u1",
		Build:       func() planner.Problem { return DoubleIntegrator(0, 2, 1) },
	})
	r.Register(Entry{
		Name:        "pendulum",
		Description: "damped pendulum swung from hanging to upright by a joint torque",
		Build:       func() planner.Problem { return NewPendulum().SwingUp(3) },
	})
	r.Register(Entry{
		Name:        "cartpole",
		Description: "inverted pendulum swing-up on a cart driven by its acceleration",
		Build:       func() planner.Problem { return NewCartPole().SwingUp(2) },
		Tune:        unchained,
	})
	r.Register(Entry{
		Name:        "aircraft",
		Description: "planar vertical take-off aircraft with two deflected engines",
		Build:       func() planner.Problem { return NewAircraft().Transfer(3, 10, 5) },
		Tune:        unchained,
	})
	return r
}

// unchained keeps one spline per variable and one node per segment, so the
// collocation system has at least as many unknowns as equations.
func unchained(c *planner.Config) {
	c.UseChains = false
	c.Delta = 1
}

// Register adds or replaces an entry.
func (r *Registry) Register(e Entry) { r.entries[e.Name] = e }

func (r *Registry) Get(name string) (Entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownProblem, name)
	}
	return e, nil
}

// Problem builds the named problem and applies its tuning to cfg.
func (r *Registry) Problem(name string, cfg *planner.Config) (planner.Problem, error) {
	e, err := r.Get(name)
	if err != nil {
		return planner.Problem{}, err
	}
	if e.Tune != nil && cfg != nil {
		e.Tune(cfg)
	}
	return e.Build(), nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
