package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// MaxExpressionLength is the maximum allowed length for a single expression.
const MaxExpressionLength = 4096

// Parse runs the full pipeline (lexer, aggregator, Shunting-Yard, tree
// build) over text. It returns a nil Node and no error for blank input.
func Parse(text string) (Node, error) {
	if len(text) > MaxExpressionLength {
		return nil, types.NewSyntaxError(fmt.Sprintf("expression exceeds maximum length of %d characters", MaxExpressionLength))
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return nil, err
	}
	tokens, err = Aggregate(tokens)
	if err != nil {
		return nil, err
	}
	rpn, err := ToRPN(tokens, DefaultOperators, ClassifyToken)
	if err != nil {
		return nil, err
	}
	return BuildTree(rpn)
}

// BuildTree assembles a postfix sequence of quantity and operator tokens
// into an expression tree. An empty sequence yields a nil Node.
func BuildTree(rpn []Token) (Node, error) {
	var stack []Node
	for _, tok := range rpn {
		switch tok.Type {
		case TokenOperator:
			op, ok := binaryOps[tok.Value]
			if !ok {
				return nil, types.NewSyntaxError(fmt.Sprintf("unknown operator %q", tok.Value))
			}
			if len(stack) < 2 {
				return nil, types.NewSyntaxError(fmt.Sprintf("operator %q at position %d is missing an operand", tok.Value, tok.Pos))
			}
			left, right := stack[len(stack)-2], stack[len(stack)-1]
			stack = append(stack[:len(stack)-2], &BinaryNode{Op: op, Left: left, Right: right})
		case TokenQuantity:
			lit, err := literal(tok)
			if err != nil {
				return nil, err
			}
			stack = append(stack, lit)
		default:
			return nil, types.NewSyntaxError(fmt.Sprintf("unexpected token %q at position %d", tok.String(), tok.Pos))
		}
	}

	switch len(stack) {
	case 0:
		return nil, nil
	case 1:
		return stack[0], nil
	default:
		return nil, types.NewSyntaxError("invalid expression: operands without an operator between them")
	}
}

func literal(tok Token) (*LiteralNode, error) {
	value, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		return nil, types.NewSyntaxError(fmt.Sprintf("invalid number %q at position %d", tok.Value, tok.Pos))
	}
	dims, err := EvalUnitTokens(tok.Parts)
	if err != nil {
		return nil, err
	}
	return &LiteralNode{Quantity: types.NewQuantity(value, types.FromDimensions(dims))}, nil
}
