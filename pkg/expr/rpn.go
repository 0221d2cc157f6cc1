package expr

import (
	"fmt"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// Class tells the Shunting-Yard converter how to treat a token.
type Class int

const (
	ClassOperand Class = iota
	ClassOperator
	ClassOpen
	ClassClose
)

// OperatorInfo describes an operator's binding.
type OperatorInfo struct {
	Precedence int
	RightAssoc bool
}

// OperatorTable maps operator symbols to their binding.
type OperatorTable map[string]OperatorInfo

// DefaultOperators is the operator table of the expression language.
var DefaultOperators = OperatorTable{
	OpExp:     {Precedence: 3, RightAssoc: true},
	OpMul:     {Precedence: 2},
	OpDiv:     {Precedence: 2},
	OpAdd:     {Precedence: 1},
	OpSub:     {Precedence: 1},
	OpConvert: {Precedence: 0},
}

// stackEntry is an operator or an open bracket waiting on the operator stack.
type stackEntry[T any] struct {
	tok  T
	op   string
	open bool
}

// ToRPN converts an infix token sequence into postfix order with the
// Shunting-Yard algorithm. Tokens of any alphabet are supported: classify
// reports the class of a token and, for operators, its symbol in table.
func ToRPN[T any](tokens []T, table OperatorTable, classify func(T) (Class, string)) ([]T, error) {
	output := make([]T, 0, len(tokens))
	var stack []stackEntry[T]

	for _, tok := range tokens {
		class, op := classify(tok)
		switch class {
		case ClassOpen:
			stack = append(stack, stackEntry[T]{tok: tok, open: true})
		case ClassClose:
			for len(stack) > 0 && !stack[len(stack)-1].open {
				output = append(output, stack[len(stack)-1].tok)
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return nil, types.NewSyntaxError("mismatched parentheses: ')'")
			}
			stack = stack[:len(stack)-1]
		case ClassOperator:
			info, ok := table[op]
			if !ok {
				return nil, types.NewSyntaxError(fmt.Sprintf("unknown operator %q", op))
			}
			for len(stack) > 0 && !stack[len(stack)-1].open {
				top := table[stack[len(stack)-1].op]
				if top.Precedence > info.Precedence || (top.Precedence == info.Precedence && !info.RightAssoc) {
					output = append(output, stack[len(stack)-1].tok)
					stack = stack[:len(stack)-1]
					continue
				}
				break
			}
			stack = append(stack, stackEntry[T]{tok: tok, op: op})
		default:
			output = append(output, tok)
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.open {
			return nil, types.NewSyntaxError("mismatched parentheses: '('")
		}
		output = append(output, top.tok)
		stack = stack[:len(stack)-1]
	}
	return output, nil
}

// ClassifyString classifies plain string tokens against DefaultOperators.
func ClassifyString(s string) (Class, string) {
	switch s {
	case "(":
		return ClassOpen, ""
	case ")":
		return ClassClose, ""
	}
	if _, ok := DefaultOperators[s]; ok {
		return ClassOperator, s
	}
	return ClassOperand, ""
}

// ClassifyToken classifies lexed and aggregated tokens.
func ClassifyToken(t Token) (Class, string) {
	switch t.Type {
	case TokenLParen:
		return ClassOpen, ""
	case TokenRParen:
		return ClassClose, ""
	case TokenOperator:
		return ClassOperator, t.Value
	default:
		return ClassOperand, ""
	}
}
