package convert

import (
	"fmt"
	"math"
	"slices"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// Engine computes scale factors between units over a validated registry.
//
// An Engine is not safe for concurrent use. Mutations replace the registry
// wholesale after validating a modified copy, so a failed mutation leaves
// the engine unchanged.
type Engine struct {
	reg *Registry
}

// New validates reg and returns an engine that owns a copy of it. A nil
// registry yields an empty engine.
func New(reg *Registry) (*Engine, error) {
	if reg == nil {
		return &Engine{reg: NewRegistry()}, nil
	}
	own := reg.Clone()
	if err := Validate(own); err != nil {
		return nil, err
	}
	return &Engine{reg: own}, nil
}

// Registry returns a copy of the engine's registry.
func (e *Engine) Registry() *Registry {
	return e.reg.Clone()
}

// HasUnit reports whether sym is a registered unit, ignoring prefixes.
func (e *Engine) HasUnit(sym string) bool {
	_, ok := e.reg.Units[sym]
	return ok
}

// HasPrefix reports whether sym is a registered prefix.
func (e *Engine) HasPrefix(sym string) bool {
	_, ok := e.reg.Prefixes[sym]
	return ok
}

// Units returns the registered unit symbols in sorted order.
func (e *Engine) Units() []string {
	return e.reg.UnitSymbols()
}

// Prefixes returns the registered prefix symbols in sorted order.
func (e *Engine) Prefixes() []string {
	return e.reg.PrefixSymbols()
}

// PrefixScale returns base^exponent for a registered prefix.
func (e *Engine) PrefixScale(prefix string) (float64, error) {
	p, ok := e.reg.Prefixes[prefix]
	if !ok {
		return 0, types.NewUnitError(fmt.Sprintf("unknown prefix '%s'", prefix))
	}
	return p.Scale(), nil
}

// StripPrefix splits candidate into a registered prefix and unit symbol.
func (e *Engine) StripPrefix(candidate string) (prefix, base string, err error) {
	return e.reg.resolve(candidate)
}

// Convert returns the factor f such that a value v in src equals v·f in dst.
//
// Both units are reduced to dimension maps. The engine then repeatedly
// strips prefixes, cancels symbols common to both sides, and expands the
// first derived unit in dependency order, folding every prefix and
// conversion scale into the factor. Whatever remains once no derived unit is
// left makes the conversion invalid.
func (e *Engine) Convert(src, dst types.Unit) (float64, error) {
	srcMap, dstMap := src.Reduce(), dst.Reduce()
	factor := 1.0

	for {
		scale, err := e.stripPrefixes(srcMap)
		if err != nil {
			return 0, err
		}
		factor *= scale
		if scale, err = e.stripPrefixes(dstMap); err != nil {
			return 0, err
		}
		factor /= scale

		if err := cancelCommon(srcMap, dstMap); err != nil {
			return 0, err
		}

		next, err := e.nextDerived(srcMap, dstMap)
		if err != nil {
			return 0, err
		}
		if next == "" {
			break
		}
		if _, ok := srcMap[next]; ok {
			if scale, err = e.expand(next, srcMap); err != nil {
				return 0, err
			}
			factor *= scale
		} else {
			if scale, err = e.expand(next, dstMap); err != nil {
				return 0, err
			}
			factor /= scale
		}
	}

	if len(srcMap) > 0 || len(dstMap) > 0 {
		return 0, types.NewUnitError(fmt.Sprintf("invalid conversion: %s to %s", unitLabel(src), unitLabel(dst)))
	}
	if math.IsInf(factor, 0) || math.IsNaN(factor) || factor == 0 {
		return 0, types.NewUnitError(fmt.Sprintf("conversion from %s to %s is out of range", unitLabel(src), unitLabel(dst)))
	}
	return factor, nil
}

// stripPrefixes replaces every prefixed symbol in m with its base unit and
// returns the product of the stripped prefix scales.
func (e *Engine) stripPrefixes(m types.Dimensions) (float64, error) {
	scale := 1.0
	for _, sym := range m.Symbols() {
		prefix, base, err := e.reg.resolve(sym)
		if err != nil {
			return 0, err
		}
		if prefix == "" {
			continue
		}
		exp := m[sym]
		scale *= math.Pow(e.reg.Prefixes[prefix].Scale(), float64(exp))
		delete(m, sym)
		if err := m.Add(types.Dimensions{base: exp}, 1); err != nil {
			return 0, err
		}
	}
	return scale, nil
}

// cancelCommon subtracts min(srcExp, dstExp) from both sides for every
// symbol they share.
func cancelCommon(srcMap, dstMap types.Dimensions) error {
	for sym, srcExp := range srcMap {
		dstExp, ok := dstMap[sym]
		if !ok {
			continue
		}
		common := min(srcExp, dstExp)
		if err := srcMap.Add(types.Dimensions{sym: common}, -1); err != nil {
			return err
		}
		if err := dstMap.Add(types.Dimensions{sym: common}, -1); err != nil {
			return err
		}
	}
	return nil
}

// nextDerived returns the first derived unit left in either map, in
// dependency order, or "" if only base units remain.
func (e *Engine) nextDerived(srcMap, dstMap types.Dimensions) (string, error) {
	roots := slices.Concat(srcMap.Symbols(), dstMap.Symbols())
	order, err := e.reg.dependencyGraph(roots).TopologicalSort()
	if err != nil {
		return "", err
	}
	for _, sym := range order {
		_, inSrc := srcMap[sym]
		_, inDst := dstMap[sym]
		if (inSrc || inDst) && e.reg.Units[sym].IsDerived() {
			return sym, nil
		}
	}
	return "", nil
}

// expand replaces sym in m by its expansion and returns scale^exp.
func (e *Engine) expand(sym string, m types.Dimensions) (float64, error) {
	exp := m[sym]
	delete(m, sym)
	if err := m.Add(e.reg.Units[sym].Dims, exp); err != nil {
		return 0, err
	}
	return math.Pow(e.reg.Scale(sym), float64(exp)), nil
}

func unitLabel(u types.Unit) string {
	if u.IsDimensionless() {
		return "(dimensionless)"
	}
	return "'" + u.String() + "'"
}
