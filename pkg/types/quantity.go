package types

import (
	"math"
	"strconv"
)

// Quantity is a numeric value paired with a unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

// NewQuantity returns a quantity of value in unit.
func NewQuantity(value float64, unit Unit) Quantity {
	return Quantity{Value: value, Unit: unit}
}

// Scalar returns a dimensionless quantity.
func Scalar(value float64) Quantity {
	return Quantity{Value: value}
}

// Add sums q and other. Both must already be expressed in the same unit; the
// result carries other's unit.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	if !q.Unit.Equal(other.Unit) {
		return Quantity{}, NewUnitError("cannot add " + q.Unit.String() + " and " + other.Unit.String())
	}
	return Quantity{Value: q.Value + other.Value, Unit: other.Unit}, nil
}

// Sub subtracts other from q under the same rules as Add.
func (q Quantity) Sub(other Quantity) (Quantity, error) {
	if !q.Unit.Equal(other.Unit) {
		return Quantity{}, NewUnitError("cannot subtract " + other.Unit.String() + " from " + q.Unit.String())
	}
	return Quantity{Value: q.Value - other.Value, Unit: other.Unit}, nil
}

// Mul multiplies values and combines dimensions.
func (q Quantity) Mul(other Quantity) (Quantity, error) {
	unit, err := q.Unit.Mul(other.Unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Value * other.Value, Unit: unit}, nil
}

// Div divides values and combines dimensions.
func (q Quantity) Div(other Quantity) (Quantity, error) {
	if other.Value == 0 {
		return Quantity{}, NewUnitError("division by zero")
	}
	unit, err := q.Unit.Div(other.Unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Value / other.Value, Unit: unit}, nil
}

// Pow raises q to a dimensionless exponent.
func (q Quantity) Pow(exp Quantity) (Quantity, error) {
	if !exp.Unit.IsDimensionless() {
		return Quantity{}, NewUnitError("exponent must be dimensionless, got " + exp.Unit.String())
	}
	unit, err := q.Unit.PowFloat(exp.Value)
	if err != nil {
		return Quantity{}, err
	}
	v := math.Pow(q.Value, exp.Value)
	if math.IsNaN(v) {
		return Quantity{}, NewUnitError("result of " + q.String() + "^" + FormatValue(exp.Value) + " is not a real number")
	}
	return Quantity{Value: v, Unit: unit}, nil
}

// Equal compares value and unit exactly.
func (q Quantity) Equal(other Quantity) bool {
	return q.Value == other.Value && q.Unit.Equal(other.Unit)
}

// String renders q as "value unit", or just the value when dimensionless.
func (q Quantity) String() string {
	u := q.Unit.String()
	if u == "" {
		return FormatValue(q.Value)
	}
	return FormatValue(q.Value) + " " + u
}

// FormatValue renders v in the shortest form that parses back exactly.
// Magnitudes in [1e-6, 1e21) are written without an exponent.
func FormatValue(v float64) string {
	if a := math.Abs(v); a == 0 || (a >= 1e-6 && a < 1e21) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
