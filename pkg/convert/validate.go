package convert

import (
	"errors"
	"fmt"
	"math"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// Validate checks that reg is consistent: symbols are well formed, every
// symbol in an expansion resolves to a registered unit with a registered
// prefix, every conversion belongs to a unit, scales are finite and
// non-zero, and the dependency graph is acyclic.
func Validate(reg *Registry) error {
	for _, sym := range reg.PrefixSymbols() {
		if !types.IsValidSymbol(sym) {
			return types.NewRegistryError(fmt.Sprintf("invalid prefix symbol '%s'", sym))
		}
		if s := reg.Prefixes[sym].Scale(); !isUsableScale(s) {
			return types.NewRegistryError(fmt.Sprintf("prefix '%s' has unusable scale %s", sym, types.FormatValue(s)))
		}
	}

	for _, sym := range reg.UnitSymbols() {
		if !types.IsValidSymbol(sym) {
			return types.NewRegistryError(fmt.Sprintf("invalid unit symbol '%s'", sym))
		}
		u := reg.Units[sym]
		if u.Symbol != sym {
			return types.NewRegistryError(fmt.Sprintf("unit stored as '%s' is named '%s'", sym, u.Symbol))
		}
		for _, dep := range u.Dims.Symbols() {
			if _, _, err := reg.resolve(dep); err != nil {
				var domainErr *types.Error
				if errors.As(err, &domainErr) {
					return types.NewRegistryError(fmt.Sprintf("unit '%s': %s", sym, domainErr.Message))
				}
				return err
			}
		}
	}

	for sym, scale := range reg.Conversions {
		if _, ok := reg.Units[sym]; !ok {
			return types.NewRegistryError(fmt.Sprintf("conversion for unknown unit '%s'", sym))
		}
		if !isUsableScale(scale) {
			return types.NewRegistryError(fmt.Sprintf("unit '%s' has unusable scale %s", sym, types.FormatValue(scale)))
		}
	}

	if _, err := reg.dependencyGraph(reg.UnitSymbols()).TopologicalSort(); err != nil {
		return err
	}
	return nil
}

func isUsableScale(s float64) bool {
	return s != 0 && !math.IsInf(s, 0) && !math.IsNaN(s)
}
