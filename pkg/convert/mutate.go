package convert

import (
	"fmt"
	"slices"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// AddUnit defines sym as scale × unit. A unit with no dimensions becomes a
// base unit and must have scale 1. The registry is only replaced if the
// extended copy validates.
func (e *Engine) AddUnit(sym string, scale float64, unit types.Unit) error {
	if existing, ok := e.reg.Units[sym]; ok {
		return types.NewRegistryError(fmt.Sprintf("unit '%s' already exists: %s", sym, e.definition(existing.Symbol, "")))
	}
	if !types.IsValidSymbol(sym) {
		return types.NewRegistryError(fmt.Sprintf("invalid unit symbol '%s'", sym))
	}

	next := e.reg.Clone()
	expansion := unit.Reduce()
	if len(expansion) == 0 {
		if scale != 1 {
			return types.NewRegistryError(fmt.Sprintf("unit '%s' has no dimensions; a base unit cannot have scale %s", sym, types.FormatValue(scale)))
		}
		next.DefineBase(sym)
	} else {
		next.DefineDerived(sym, scale, expansion)
	}

	if err := Validate(next); err != nil {
		return err
	}
	e.reg = next
	return nil
}

// AddPrefix defines sym as the prefix base^exponent.
func (e *Engine) AddPrefix(sym string, base, exponent float64) error {
	if _, ok := e.reg.Prefixes[sym]; ok {
		def, _ := e.PrefixDefinition(sym)
		return types.NewRegistryError(fmt.Sprintf("prefix '%s' already exists: %s", sym, def))
	}

	next := e.reg.Clone()
	next.DefinePrefix(sym, base, exponent)
	if err := Validate(next); err != nil {
		return err
	}
	e.reg = next
	return nil
}

// DelUnit removes sym and every unit that depends on it, directly or
// transitively. It returns the removed symbols in sorted order. A prefixed
// alias such as "km" cannot be deleted.
func (e *Engine) DelUnit(sym string) ([]string, error) {
	if _, ok := e.reg.Units[sym]; !ok {
		if prefix, _, err := e.reg.resolve(sym); err == nil && prefix != "" {
			return nil, types.NewRegistryError(fmt.Sprintf("cannot delete '%s': unit contains a prefix: %s", sym, e.definition(sym, prefix)))
		}
		return nil, types.NewRegistryError(fmt.Sprintf("cannot delete '%s': unit does not exist", sym))
	}

	removed := e.cascade(map[string]bool{sym: true}, "")
	if err := e.commitRemoval(removed, ""); err != nil {
		return nil, err
	}
	return removed, nil
}

// DelPrefix removes a prefix and every unit whose expansion uses it,
// directly or transitively. It returns the removed unit symbols in sorted
// order.
func (e *Engine) DelPrefix(sym string) ([]string, error) {
	if _, ok := e.reg.Prefixes[sym]; !ok {
		return nil, types.NewRegistryError(fmt.Sprintf("cannot delete '%s': prefix does not exist", sym))
	}

	removed := e.cascade(make(map[string]bool), sym)
	if err := e.commitRemoval(removed, sym); err != nil {
		return nil, err
	}
	return removed, nil
}

// Dependents returns the units that deleting sym would also remove, in
// sorted order, excluding sym itself.
func (e *Engine) Dependents(sym string) []string {
	if _, ok := e.reg.Units[sym]; !ok {
		return nil
	}
	removed := e.cascade(map[string]bool{sym: true}, "")
	return slices.DeleteFunc(removed, func(s string) bool { return s == sym })
}

// cascade grows doomed until it holds every unit whose expansion refers to
// a doomed unit or uses prefix. Prefix stripping is done against the
// current registry.
func (e *Engine) cascade(doomed map[string]bool, prefix string) []string {
	for found := true; found; {
		found = false
		for _, sym := range e.reg.UnitSymbols() {
			if doomed[sym] {
				continue
			}
			for _, dep := range e.reg.Units[sym].Dims.Symbols() {
				p, base, err := e.reg.StripPrefix(dep)
				if err != nil {
					continue
				}
				if doomed[base] || (prefix != "" && p == prefix) {
					doomed[sym] = true
					found = true
					break
				}
			}
		}
	}

	removed := make([]string, 0, len(doomed))
	for sym := range doomed {
		removed = append(removed, sym)
	}
	slices.Sort(removed)
	return removed
}

// commitRemoval deletes units (and prefix, if set) from a copy of the
// registry and installs the copy if it validates.
func (e *Engine) commitRemoval(units []string, prefix string) error {
	next := e.reg.Clone()
	for _, sym := range units {
		delete(next.Units, sym)
		delete(next.Conversions, sym)
	}
	if prefix != "" {
		delete(next.Prefixes, prefix)
	}
	if err := Validate(next); err != nil {
		return err
	}
	e.reg = next
	return nil
}
