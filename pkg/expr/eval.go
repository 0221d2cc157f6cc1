package expr

import (
	"fmt"
	"strings"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// Converter computes the factor that turns a value in src into a value in
// dst. *convert.Engine implements it.
type Converter interface {
	Convert(src, dst types.Unit) (float64, error)
}

// ExponentPolicy decides what happens when an exponent carries a unit that
// cannot be converted to a dimensionless one.
type ExponentPolicy int

const (
	// ExponentStrict fails the evaluation with a UnitError.
	ExponentStrict ExponentPolicy = iota
	// ExponentRawValue drops the unit and uses the raw numeric value.
	ExponentRawValue
)

// String returns the configuration name of the policy.
func (p ExponentPolicy) String() string {
	switch p {
	case ExponentStrict:
		return "strict"
	case ExponentRawValue:
		return "raw"
	default:
		return "unknown"
	}
}

// ParseExponentPolicy parses "strict" or "raw".
func ParseExponentPolicy(s string) (ExponentPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return ExponentStrict, nil
	case "raw", "raw_value", "rawvalue":
		return ExponentRawValue, nil
	default:
		return ExponentStrict, fmt.Errorf("unknown exponent policy %q (want strict or raw)", s)
	}
}

// Options tune evaluation.
type Options struct {
	ExponentPolicy ExponentPolicy
}

// Evaluate evaluates node with the default options.
func Evaluate(node Node, conv Converter) (types.Quantity, error) {
	return EvaluateWith(node, conv, Options{})
}

// EvaluateWith evaluates node, converting between units through conv.
func EvaluateWith(node Node, conv Converter, opts Options) (types.Quantity, error) {
	e := &evaluator{conv: conv, opts: opts}
	if node == nil {
		return types.Quantity{}, types.NewSyntaxError("empty expression")
	}
	return e.eval(node)
}

type evaluator struct {
	conv Converter
	opts Options
}

func (e *evaluator) eval(node Node) (types.Quantity, error) {
	switch n := node.(type) {
	case *LiteralNode:
		return n.Quantity, nil
	case *BinaryNode:
		return e.evalBinary(n)
	default:
		return types.Quantity{}, types.NewSyntaxError(fmt.Sprintf("unsupported expression node type: %T", node))
	}
}

func (e *evaluator) evalBinary(n *BinaryNode) (types.Quantity, error) {
	if n.Op == Exp {
		return e.evalExp(n)
	}

	left, err := e.eval(n.Left)
	if err != nil {
		return types.Quantity{}, err
	}
	right, err := e.eval(n.Right)
	if err != nil {
		return types.Quantity{}, err
	}

	switch n.Op {
	case Add:
		if !left.Unit.Equal(right.Unit) {
			if left, err = e.convertTo(left, right.Unit); err != nil {
				return types.Quantity{}, err
			}
		}
		return left.Add(right)
	case Sub:
		if left, err = e.convertTo(left, right.Unit); err != nil {
			return types.Quantity{}, err
		}
		return left.Sub(right)
	case Mul:
		return left.Mul(right)
	case Div:
		return left.Div(right)
	case Convert:
		if left, err = e.convertTo(left, right.Unit); err != nil {
			return types.Quantity{}, err
		}
		if right.Value == 0 {
			return types.Quantity{}, types.NewUnitError("division by zero")
		}
		return types.NewQuantity(left.Value/right.Value, right.Unit), nil
	default:
		return types.Quantity{}, types.NewSyntaxError(fmt.Sprintf("unknown operator %s", n.Op))
	}
}

func (e *evaluator) evalExp(n *BinaryNode) (types.Quantity, error) {
	exp, err := e.eval(n.Right)
	if err != nil {
		return types.Quantity{}, err
	}
	if !exp.Unit.IsDimensionless() {
		scaled, err := e.convertTo(exp, types.Dimensionless())
		switch {
		case err == nil:
			exp = scaled
		case e.opts.ExponentPolicy == ExponentRawValue:
			exp = types.Scalar(exp.Value)
		default:
			return types.Quantity{}, types.WrapUnitError(fmt.Sprintf("exponent %s is not dimensionless", exp), err)
		}
	}

	base, err := e.eval(n.Left)
	if err != nil {
		return types.Quantity{}, err
	}
	return base.Pow(exp)
}

// convertTo expresses q in unit.
func (e *evaluator) convertTo(q types.Quantity, unit types.Unit) (types.Quantity, error) {
	if e.conv == nil {
		if q.Unit.Equal(unit) {
			return types.NewQuantity(q.Value, unit), nil
		}
		return types.Quantity{}, types.NewUnitError(fmt.Sprintf("cannot convert %s to %s without a conversion engine", q.Unit, unit))
	}
	factor, err := e.conv.Convert(q.Unit, unit)
	if err != nil {
		return types.Quantity{}, err
	}
	return types.NewQuantity(q.Value*factor, unit), nil
}
