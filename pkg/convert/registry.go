// Package convert implements the conversion engine: a registry of units,
// conversion scales and prefixes, the scale-factor search between two
// compatible units, and registry mutations that keep the dependency graph
// acyclic.
package convert

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// Prefix scales a unit by Base^Exponent.
type Prefix struct {
	Base     float64
	Exponent float64
}

// Scale returns Base^Exponent.
func (p Prefix) Scale() float64 {
	return math.Pow(p.Base, p.Exponent)
}

// Registry holds unit definitions, conversion scales and prefixes.
//
// Units maps a symbol to its definition; a unit with no expansion is a base
// unit. Conversions holds the scale of every derived unit relative to the
// magnitude of its expansion. A Registry is a plain value: it is only
// guaranteed consistent once it has passed Validate.
type Registry struct {
	Units       map[string]types.Unit
	Conversions map[string]float64
	Prefixes    map[string]Prefix
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Units:       make(map[string]types.Unit),
		Conversions: make(map[string]float64),
		Prefixes:    make(map[string]Prefix),
	}
}

// Clone returns a deep copy of r.
func (r *Registry) Clone() *Registry {
	out := NewRegistry()
	for sym, u := range r.Units {
		out.Units[sym] = types.Unit{Symbol: u.Symbol, Dims: u.Dims.Reduce()}
	}
	maps.Copy(out.Conversions, r.Conversions)
	maps.Copy(out.Prefixes, r.Prefixes)
	return out
}

// DefineBase sets sym as a base unit without validation.
func (r *Registry) DefineBase(sym string) {
	r.Units[sym] = types.NewUnit(sym)
	delete(r.Conversions, sym)
}

// DefineDerived sets sym as scale × expansion without validation.
func (r *Registry) DefineDerived(sym string, scale float64, expansion types.Dimensions) {
	r.Units[sym] = types.NewDerivedUnit(sym, expansion)
	r.Conversions[sym] = scale
}

// DefinePrefix sets a prefix without validation.
func (r *Registry) DefinePrefix(sym string, base, exponent float64) {
	r.Prefixes[sym] = Prefix{Base: base, Exponent: exponent}
}

// Scale returns the conversion scale of sym, 1 for base units.
func (r *Registry) Scale(sym string) float64 {
	if s, ok := r.Conversions[sym]; ok {
		return s
	}
	return 1
}

// UnitSymbols returns all unit symbols in sorted order.
func (r *Registry) UnitSymbols() []string {
	return slices.Sorted(maps.Keys(r.Units))
}

// PrefixSymbols returns all prefix symbols in sorted order.
func (r *Registry) PrefixSymbols() []string {
	return slices.Sorted(maps.Keys(r.Prefixes))
}

// StripPrefix splits candidate into a prefix and the longest registered
// unit symbol that is a suffix of it. The prefix is empty when candidate is
// itself a unit. The prefix is not checked against r.Prefixes.
func (r *Registry) StripPrefix(candidate string) (prefix, base string, err error) {
	if _, ok := r.Units[candidate]; ok {
		return "", candidate, nil
	}
	for sym := range r.Units {
		if len(sym) > len(base) && len(sym) < len(candidate) && candidate[len(candidate)-len(sym):] == sym {
			base = sym
		}
	}
	if base == "" {
		return "", "", types.NewUnitError(fmt.Sprintf("unknown unit '%s'", candidate))
	}
	return candidate[:len(candidate)-len(base)], base, nil
}

// resolve strips candidate and checks that any prefix is registered.
func (r *Registry) resolve(candidate string) (prefix, base string, err error) {
	prefix, base, err = r.StripPrefix(candidate)
	if err != nil {
		return "", "", err
	}
	if prefix != "" {
		if _, ok := r.Prefixes[prefix]; !ok {
			return "", "", types.NewUnitError(fmt.Sprintf("unknown unit '%s': no prefix '%s' for unit '%s'", candidate, prefix, base))
		}
	}
	return prefix, base, nil
}

// dependencies returns the unprefixed symbols sym's expansion refers to, in
// sorted order. Symbols that cannot be stripped are skipped; Validate
// reports them.
func (r *Registry) dependencies(sym string) []string {
	u, ok := r.Units[sym]
	if !ok {
		return nil
	}
	var deps []string
	for _, dep := range u.Dims.Symbols() {
		_, base, err := r.StripPrefix(dep)
		if err != nil {
			continue
		}
		if !slices.Contains(deps, base) {
			deps = append(deps, base)
		}
	}
	return deps
}

// dependencyGraph builds the graph of roots and everything they depend on,
// with an edge from each derived unit to each of its dependencies.
func (r *Registry) dependencyGraph(roots []string) *Graph {
	g := NewGraph()
	visited := make(map[string]bool)
	queue := slices.Clone(roots)
	for len(queue) > 0 {
		sym := queue[0]
		queue = queue[1:]
		if visited[sym] {
			continue
		}
		visited[sym] = true
		g.AddNode(sym)
		for _, dep := range r.dependencies(sym) {
			g.AddEdge(sym, dep)
			if !visited[dep] {
				queue = append(queue, dep)
			}
		}
	}
	return g
}
