package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// unitOperand is an integer exponent or a partial dimension vector.
type unitOperand struct {
	isInt bool
	n     int
	dims  types.Dimensions
}

func (o unitOperand) String() string {
	if o.isInt {
		return strconv.Itoa(o.n)
	}
	return o.dims.String()
}

// EvalUnitTokens reduces the sub-tokens of a compound unit to a dimension
// vector. '^' raises a unit to an integer, '*' and '/' combine units, and
// '+' and '-' combine integers inside exponents.
func EvalUnitTokens(parts []Token) (types.Dimensions, error) {
	rpn, err := ToRPN(parts, DefaultOperators, ClassifyToken)
	if err != nil {
		return nil, err
	}

	var stack []unitOperand
	pop2 := func(op string) (unitOperand, unitOperand, error) {
		if len(stack) < 2 {
			return unitOperand{}, unitOperand{}, types.NewSyntaxError(fmt.Sprintf("operator %q is missing an operand", op))
		}
		b, a := stack[len(stack)-2], stack[len(stack)-1]
		stack = stack[:len(stack)-2]
		return b, a, nil
	}

	for _, tok := range rpn {
		switch tok.Type {
		case TokenNumber:
			n, err := strconv.Atoi(tok.Value)
			if err != nil {
				return nil, types.NewAggregationError(fmt.Sprintf("expected integer exponent; received %q", tok.Value))
			}
			stack = append(stack, unitOperand{isInt: true, n: n})
		case TokenSymbol:
			stack = append(stack, unitOperand{dims: types.Dimensions{tok.Value: 1}})
		case TokenOperator:
			left, right, err := pop2(tok.Value)
			if err != nil {
				return nil, err
			}
			result, err := applyUnitOperator(tok.Value, left, right)
			if err != nil {
				return nil, err
			}
			stack = append(stack, result)
		default:
			return nil, types.NewAggregationError(fmt.Sprintf("unexpected token %q in unit", tok.String()))
		}
	}

	dims := make(types.Dimensions)
	for _, operand := range stack {
		if operand.isInt {
			return nil, types.NewAggregationError(fmt.Sprintf("dangling integer %d in unit", operand.n))
		}
		if err := dims.Add(operand.dims, 1); err != nil {
			return nil, err
		}
	}
	return dims, nil
}

func applyUnitOperator(op string, left, right unitOperand) (unitOperand, error) {
	switch op {
	case OpAdd, OpSub:
		if !left.isInt || !right.isInt {
			return unitOperand{}, types.NewAggregationError(fmt.Sprintf("expected integer exponents around %q; received %s and %s", op, left, right))
		}
		combine := types.AddExponents
		if op == OpSub {
			combine = types.SubExponents
		}
		n, err := combine(left.n, right.n)
		if err != nil {
			return unitOperand{}, err
		}
		return unitOperand{isInt: true, n: n}, nil
	case OpMul, OpDiv:
		if left.isInt || right.isInt {
			return unitOperand{}, types.NewAggregationError(fmt.Sprintf("expected units around %q; received %s and %s", op, left, right))
		}
		dims := left.dims.Clone()
		factor := 1
		if op == OpDiv {
			factor = -1
		}
		if err := dims.Add(right.dims, factor); err != nil {
			return unitOperand{}, err
		}
		return unitOperand{dims: dims}, nil
	case OpExp:
		if left.isInt || !right.isInt {
			return unitOperand{}, types.NewAggregationError(fmt.Sprintf("expected unit ^ integer; received %s ^ %s", left, right))
		}
		dims, err := left.dims.Scale(right.n)
		if err != nil {
			return unitOperand{}, err
		}
		return unitOperand{dims: dims}, nil
	default:
		return unitOperand{}, types.NewAggregationError(fmt.Sprintf("operator %q is not allowed in a unit", op))
	}
}

// ParseUnit parses a standalone unit expression such as "kg m/s^2". Empty
// input is the dimensionless unit.
func ParseUnit(text string) (types.Unit, error) {
	if strings.TrimSpace(text) == "" {
		return types.Dimensionless(), nil
	}
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return types.Unit{}, err
	}
	folded, err := FoldSigns(tokens)
	if err != nil {
		return types.Unit{}, err
	}
	units, err := AggregateUnits(folded)
	if err != nil {
		return types.Unit{}, err
	}
	if len(units) != 1 || units[0].Type != TokenUnit {
		return types.Unit{}, types.NewUnitError(fmt.Sprintf("%q is not a unit expression", text))
	}
	dims, err := EvalUnitTokens(units[0].Parts)
	if err != nil {
		return types.Unit{}, err
	}
	return types.FromDimensions(dims), nil
}
