// Package chains detects integrator chains in a vector field: runs of
// variables where each one is exactly the time derivative of the previous.
// Variables of one chain share a single spline.
package chains

import (
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/trajgen/internal/symbolic"
)

// Chain lists variable names from the least differentiated (upper) to the
// most differentiated (lower) end.
type Chain []string

func (c Chain) Upper() string { return c[0] }
func (c Chain) Lower() string { return c[len(c)-1] }

// Index returns the derivative order of name within the chain, or -1.
func (c Chain) Index(name string) int {
	for i, v := range c {
		if v == name {
			return i
		}
	}
	return -1
}

func (c Chain) Contains(name string) bool { return c.Index(name) >= 0 }

func (c Chain) String() string { return strings.Join(c, " -> ") }

// Find returns the maximal, pairwise disjoint integrator chains of the
// vector field f over states. f[i] is the right-hand side of the equation
// for states[i]; a link states[i] -> v exists when f[i] is exactly the symbol
// v. Chains are grown from variables without a predecessor in canonical
// order, so when two links target the same variable the first one wins.
// Pure cycles have no start and produce no chain.
func Find(f []symbolic.Expr, states, inputs []string) []Chain {
	known := make(map[string]bool, len(states)+len(inputs))
	for _, v := range states {
		known[v] = true
	}
	for _, v := range inputs {
		known[v] = true
	}

	next := make(map[string]string)
	hasPred := make(map[string]bool)
	for i, rhs := range f {
		if i >= len(states) {
			break
		}
		name, ok := symbolic.SymbolName(rhs)
		if !ok || !known[name] || name == states[i] {
			continue
		}
		next[states[i]] = name
		hasPred[name] = true
	}

	starts := make([]string, 0, len(next))
	for v := range next {
		if !hasPred[v] {
			starts = append(starts, v)
		}
	}
	Sort(starts)

	claimed := make(map[string]bool)
	var out []Chain
	for _, s := range starts {
		chain := Chain{s}
		cur := s
		for {
			n, ok := next[cur]
			if !ok || claimed[n] || chain.Contains(n) {
				break
			}
			chain = append(chain, n)
			cur = n
		}
		if len(chain) < 2 {
			continue
		}
		for _, v := range chain {
			claimed[v] = true
		}
		out = append(out, chain)
	}
	return out
}

// Equations returns the indices of the state equations that remain after the
// chains are accounted for: the lower end of every chain that ends in a
// state, and every state outside all chains.
func Equations(cs []Chain, states []string) []int {
	var eqs []int
	for i, v := range states {
		c, ok := Of(cs, v)
		if !ok || c.Lower() == v {
			eqs = append(eqs, i)
		}
	}
	return eqs
}

// Of returns the chain containing name.
func Of(cs []Chain, name string) (Chain, bool) {
	for _, c := range cs {
		if c.Contains(name) {
			return c, true
		}
	}
	return nil, false
}

// Less orders variable names canonically: inputs before states, then by
// numeric suffix, so u1 < u2 < x1 < x2 < x10.
func Less(a, b string) bool {
	pa, na := split(a)
	pb, nb := split(b)
	if pa != pb {
		return rank(pa) < rank(pb) || (rank(pa) == rank(pb) && pa < pb)
	}
	if na != nb {
		return na < nb
	}
	return a < b
}

// Sort sorts names in canonical order.
func Sort(names []string) {
	sort.SliceStable(names, func(i, j int) bool { return Less(names[i], names[j]) })
}

func rank(prefix string) int {
	switch prefix {
	case "u":
		return 0
	case "x":
		return 1
	}
	return 2
}

func split(name string) (string, int) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		n = -1
	}
	return name[:i], n
}
