package convert

import (
	"fmt"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// UnitDefinition describes sym, which may carry a prefix:
//
//	1 km = prefix: 'k', unit: 'm' = 1000 m
//	1 N = 1000 g m s^(-2)
func (e *Engine) UnitDefinition(sym string) (string, error) {
	prefix, _, err := e.reg.resolve(sym)
	if err != nil {
		return "", err
	}
	return e.definition(sym, prefix), nil
}

// PrefixDefinition describes a prefix, e.g. "k = (10)^(3) = 1000".
func (e *Engine) PrefixDefinition(sym string) (string, error) {
	p, ok := e.reg.Prefixes[sym]
	if !ok {
		return "", types.NewUnitError(fmt.Sprintf("unknown prefix '%s'", sym))
	}
	return fmt.Sprintf("%s = (%s)^(%s) = %s", sym,
		types.FormatValue(p.Base), types.FormatValue(p.Exponent), types.FormatValue(p.Scale())), nil
}

// definition formats the definition of an already resolved symbol.
func (e *Engine) definition(sym, prefix string) string {
	if prefix != "" {
		base := sym[len(prefix):]
		scale := e.reg.Prefixes[prefix].Scale()
		return fmt.Sprintf("1 %s = prefix: '%s', unit: '%s' = %s %s", sym, prefix, base, types.FormatValue(scale), base)
	}
	return fmt.Sprintf("1 %s = %s %s", sym, types.FormatValue(e.reg.Scale(sym)), e.reg.Units[sym].Definition())
}

// Definition returns the scale and expansion of a registered, unprefixed
// unit. Base units have scale 1 and no expansion.
func (e *Engine) Definition(sym string) (scale float64, expansion types.Dimensions, err error) {
	u, ok := e.reg.Units[sym]
	if !ok {
		return 0, nil, types.NewUnitError(fmt.Sprintf("unknown unit '%s'", sym))
	}
	return e.reg.Scale(sym), u.Dims.Clone(), nil
}

// Prefix returns a registered prefix.
func (e *Engine) Prefix(sym string) (Prefix, bool) {
	p, ok := e.reg.Prefixes[sym]
	return p, ok
}
