package storage

import (
	"fmt"

	"github.com/san-kum/trajgen/internal/spline"
	"github.com/san-kum/trajgen/internal/trajectory"
)

// OwnerSnapshot is one stored spline together with the variables it
// carries: Chain lists them upper first, variable i being the i-th
// derivative of the spline.
type OwnerSnapshot struct {
	Chain  []string        `json:"chain"`
	Spline spline.Snapshot `json:"spline"`
}

// Splines is the stored spline set of a run.
type Splines struct {
	A      float64         `json:"a"`
	B      float64         `json:"b"`
	Owners []OwnerSnapshot `json:"owners"`

	splines []*spline.Spline
	index   map[string]ref
}

type ref struct {
	owner int
	order int
}

// Capture snapshots every owner spline of a solved set.
func Capture(set *trajectory.Set) (*Splines, error) {
	sp := &Splines{A: set.A(), B: set.B()}
	for _, o := range set.Owners() {
		snap, err := o.Spline.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", o.Name, err)
		}
		chain := []string{o.Name}
		if len(o.Chain) > 0 {
			chain = append([]string(nil), o.Chain...)
		}
		sp.Owners = append(sp.Owners, OwnerSnapshot{Chain: chain, Spline: snap})
	}
	return sp, sp.restore()
}

func (sp *Splines) restore() error {
	sp.splines = make([]*spline.Spline, len(sp.Owners))
	sp.index = make(map[string]ref)
	for i, o := range sp.Owners {
		s, err := spline.Restore(o.Spline)
		if err != nil {
			return err
		}
		sp.splines[i] = s
		for d, name := range o.Chain {
			sp.index[name] = ref{owner: i, order: d}
		}
	}
	return nil
}

// Value evaluates a variable, or its derivative of the given order, at t.
func (sp *Splines) Value(name string, t float64, order int) (float64, error) {
	r, ok := sp.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", trajectory.ErrUnknownVariable, name)
	}
	return sp.splines[r.owner].Eval(t, r.order+order)
}
