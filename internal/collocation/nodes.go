// Package collocation assembles the nonlinear equation system whose root
// makes the spline trajectories satisfy the dynamics at a set of nodes.
package collocation

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

const (
	Equidistant = "equidistant"
	Chebyshev   = "chebyshev"
)

// NodeKind returns the canonical name of a node kind and whether it is
// known. Unknown kinds map to Equidistant.
func NodeKind(kind string) (string, bool) {
	switch kind {
	case Equidistant, "":
		return Equidistant, true
	case Chebyshev, "chebychev":
		return Chebyshev, true
	}
	return Equidistant, false
}

// Nodes returns n increasing collocation nodes in [a,b], endpoints included.
// Chebyshev nodes place the interior points at cosine-distributed positions,
// which clusters them towards the ends. Unknown kinds fall back to
// equidistant nodes with a warning.
func Nodes(a, b float64, n int, kind string, log *zap.Logger) []float64 {
	if log == nil {
		log = zap.NewNop()
	}
	if n < 2 {
		n = 2
	}
	k, ok := NodeKind(kind)
	if !ok {
		log.Warn("unknown collocation node type, using equidistant nodes",
			zap.String("node_type", kind))
	}
	if k != Chebyshev {
		return floats.Span(make([]float64, n), a, b)
	}

	nc := n - 2
	pts := make([]float64, 0, n)
	pts = append(pts, a)
	inner := make([]float64, nc)
	for i := range inner {
		z := math.Cos(float64(2*i+1) / float64(2*(nc+1)) * math.Pi)
		inner[i] = a + (b-a)/2*(z+1)
	}
	sort.Float64s(inner)
	pts = append(pts, inner...)
	return append(pts, b)
}
