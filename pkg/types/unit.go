// Package types defines the unit algebra shared by the expression evaluator
// and the conversion engine, together with the domain error type.
package types

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Dimensions maps a unit symbol to its integer exponent.
type Dimensions map[string]int

// Clone returns a copy of d. A nil map clones to an empty one.
func (d Dimensions) Clone() Dimensions {
	out := make(Dimensions, len(d))
	for sym, exp := range d {
		out[sym] = exp
	}
	return out
}

// Reduce returns a copy of d without zero exponents.
func (d Dimensions) Reduce() Dimensions {
	out := make(Dimensions, len(d))
	for sym, exp := range d {
		if exp != 0 {
			out[sym] = exp
		}
	}
	return out
}

// Add adds every exponent of other, multiplied by factor, into d in place
// and prunes zeros. On overflow d is left partially updated and a UnitError
// is returned.
func (d Dimensions) Add(other Dimensions, factor int) error {
	for sym, exp := range other {
		scaled, err := mulExponent(exp, factor)
		if err != nil {
			return err
		}
		sum, err := addExponent(d[sym], scaled)
		if err != nil {
			return err
		}
		if sum == 0 {
			delete(d, sym)
		} else {
			d[sym] = sum
		}
	}
	return nil
}

// Scale returns a reduced copy of d with every exponent multiplied by n.
func (d Dimensions) Scale(n int) (Dimensions, error) {
	out := make(Dimensions, len(d))
	for sym, exp := range d {
		v, err := mulExponent(exp, n)
		if err != nil {
			return nil, err
		}
		if v != 0 {
			out[sym] = v
		}
	}
	return out, nil
}

func errExponentRange() *Error {
	return NewUnitError("exponent out of range")
}

func addExponent(a, b int) (int, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, errExponentRange()
	}
	return sum, nil
}

func mulExponent(a, b int) (int, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt) || (b == -1 && a == math.MinInt) {
		return 0, errExponentRange()
	}
	return p, nil
}

// AddExponents returns a+b, or a UnitError if the sum overflows.
func AddExponents(a, b int) (int, error) {
	return addExponent(a, b)
}

// SubExponents returns a-b, or a UnitError if the difference overflows.
func SubExponents(a, b int) (int, error) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, errExponentRange()
	}
	return diff, nil
}

// Equal reports whether d and other hold the same non-zero exponents.
func (d Dimensions) Equal(other Dimensions) bool {
	a, b := d.Reduce(), other.Reduce()
	if len(a) != len(b) {
		return false
	}
	for sym, exp := range a {
		if b[sym] != exp {
			return false
		}
	}
	return true
}

// Symbols returns the symbols of d in sorted order.
func (d Dimensions) Symbols() []string {
	syms := make([]string, 0, len(d))
	for sym := range d {
		syms = append(syms, sym)
	}
	slices.Sort(syms)
	return syms
}

// String renders d as space-separated factors, e.g. "kg m s^(-2)".
// The output is itself a valid unit expression.
func (d Dimensions) String() string {
	parts := make([]string, 0, len(d))
	for _, sym := range d.Symbols() {
		exp := d[sym]
		switch {
		case exp == 0:
			continue
		case exp == 1:
			parts = append(parts, sym)
		default:
			parts = append(parts, fmt.Sprintf("%s^(%d)", sym, exp))
		}
	}
	return strings.Join(parts, " ")
}

// Unit is either a named unit (Symbol set) or an anonymous dimension vector.
//
// A named unit held by a registry may carry its expansion in Dims; base units
// have no expansion. Units produced by expression evaluation are either named
// with no expansion or anonymous.
type Unit struct {
	Symbol string
	Dims   Dimensions
}

// NewUnit returns the named unit sym with no expansion.
func NewUnit(sym string) Unit {
	return Unit{Symbol: sym}
}

// NewDerivedUnit returns the named unit sym defined by expansion.
func NewDerivedUnit(sym string, expansion Dimensions) Unit {
	return Unit{Symbol: sym, Dims: expansion.Reduce()}
}

// Dimensionless returns the empty unit.
func Dimensionless() Unit {
	return Unit{}
}

// FromDimensions builds an anonymous unit from d. A vector holding exactly
// one symbol with exponent 1 canonicalizes to that named unit.
func FromDimensions(d Dimensions) Unit {
	r := d.Reduce()
	if len(r) == 0 {
		return Unit{}
	}
	if len(r) == 1 {
		for sym, exp := range r {
			if exp == 1 {
				return Unit{Symbol: sym}
			}
		}
	}
	return Unit{Dims: r}
}

// IsDimensionless reports whether u carries no dimensions at all.
func (u Unit) IsDimensionless() bool {
	return u.Symbol == "" && len(u.Dims.Reduce()) == 0
}

// IsBase reports whether u is a named unit with no expansion.
func (u Unit) IsBase() bool {
	return u.Symbol != "" && len(u.Dims) == 0
}

// IsDerived reports whether u is a named unit with an expansion.
func (u Unit) IsDerived() bool {
	return u.Symbol != "" && len(u.Dims) > 0
}

// Reduce returns the dimension vector of u. A named unit reduces to
// {Symbol: 1}; its expansion is resolved only by the conversion engine, which
// also knows the scale relating the two. An anonymous unit reduces to its own
// vector with zeros pruned.
func (u Unit) Reduce() Dimensions {
	if u.Symbol != "" {
		return Dimensions{u.Symbol: 1}
	}
	return u.Dims.Reduce()
}

// Equal compares the reduced dimension vectors of u and other.
func (u Unit) Equal(other Unit) bool {
	if u.Symbol != "" && u.Symbol == other.Symbol {
		return true
	}
	return u.Reduce().Equal(other.Reduce())
}

// Mul returns u·other.
func (u Unit) Mul(other Unit) (Unit, error) {
	d := u.Reduce()
	if err := d.Add(other.Reduce(), 1); err != nil {
		return Unit{}, err
	}
	return FromDimensions(d), nil
}

// Div returns u/other.
func (u Unit) Div(other Unit) (Unit, error) {
	d := u.Reduce()
	if err := d.Add(other.Reduce(), -1); err != nil {
		return Unit{}, err
	}
	return FromDimensions(d), nil
}

// Pow returns u raised to the integer n.
func (u Unit) Pow(n int) (Unit, error) {
	d, err := u.Reduce().Scale(n)
	if err != nil {
		return Unit{}, err
	}
	return FromDimensions(d), nil
}

// maxExponent bounds float exponents before they are converted to int.
const maxExponent = 1 << 62

// PowFloat raises u to a real power. Every resulting exponent must be an
// integer.
func (u Unit) PowFloat(x float64) (Unit, error) {
	if u.IsDimensionless() {
		return Unit{}, nil
	}
	if math.IsNaN(x) || math.Abs(x) >= maxExponent {
		return Unit{}, errExponentRange()
	}
	if x == math.Trunc(x) {
		return u.Pow(int(x))
	}
	out := make(Dimensions)
	for sym, exp := range u.Reduce() {
		v := float64(exp) * x
		if v != math.Trunc(v) {
			return Unit{}, NewUnitError(fmt.Sprintf("cannot raise %s to non-integer power %s", u, FormatValue(x)))
		}
		if math.Abs(v) >= maxExponent {
			return Unit{}, errExponentRange()
		}
		out[sym] = int(v)
	}
	return FromDimensions(out), nil
}

// String renders u. Named units render as their symbol, anonymous units as
// their dimension vector.
func (u Unit) String() string {
	if u.Symbol != "" {
		return u.Symbol
	}
	return u.Dims.String()
}

// Definition renders the expansion of a derived unit, or its symbol when it
// has none.
func (u Unit) Definition() string {
	if len(u.Dims) > 0 {
		return u.Dims.String()
	}
	return u.Symbol
}

// IsValidSymbol reports whether s is a non-empty run of letters and
// underscores.
func IsValidSymbol(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsSymbolRune(r) {
			return false
		}
	}
	return true
}

// IsSymbolRune reports whether r may appear in a unit symbol.
func IsSymbolRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
