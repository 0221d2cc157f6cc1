// Package stdlib provides the standard unit library: SI base and derived
// units, SI and binary prefixes, and common imperial and everyday units.
package stdlib

import (
	"github.com/lemonberrylabs/unitcalc/pkg/convert"
	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// library accumulates definitions into a registry.
type library struct {
	reg *convert.Registry
}

// NewRegistry returns a registry with every standard definition. It passes
// convert.Validate.
func NewRegistry() *convert.Registry {
	l := &library{reg: convert.NewRegistry()}
	l.registerSIPrefixes()
	l.registerBinaryPrefixes()
	l.registerSIBase()
	l.registerSIDerived()
	l.registerTime()
	l.registerImperial()
	l.registerData()
	l.registerMisc()
	return l.reg
}

// NewEngine returns a conversion engine over the standard library.
func NewEngine() (*convert.Engine, error) {
	return convert.New(NewRegistry())
}

func (l *library) base(sym string) {
	l.reg.DefineBase(sym)
}

// derived defines sym = scale × expansion.
func (l *library) derived(sym string, scale float64, expansion types.Dimensions) {
	l.reg.DefineDerived(sym, scale, expansion)
}

func (l *library) prefix(sym string, base, exponent float64) {
	l.reg.DefinePrefix(sym, base, exponent)
}
