// Package expr implements the unit-expression language: a lexer with a
// numeric sub-automaton, a three-pass aggregator, a generic Shunting-Yard
// converter, the expression tree, and its unit-aware evaluator.
package expr

import "strings"

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenNumber   TokenType = iota // numeric literal
	TokenSymbol                    // unit symbol (letters and underscores)
	TokenOperator                  // + - * / ^ :
	TokenLParen                    // (
	TokenRParen                    // )

	// Composites produced by aggregation
	TokenUnit     // compound unit expression (Parts)
	TokenQuantity // value literal + compound unit (Value, Parts)
)

// Operator symbols.
const (
	OpAdd     = "+"
	OpSub     = "-"
	OpMul     = "*"
	OpDiv     = "/"
	OpExp     = "^"
	OpConvert = ":"
)

// Token represents a single lexical or aggregated token.
type Token struct {
	Type  TokenType
	Value string  // raw text; the value literal for TokenQuantity
	Parts []Token // unit sub-tokens for TokenUnit and TokenQuantity
	Pos   int     // rune offset in source
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenNumber:
		return "NUMBER"
	case TokenSymbol:
		return "SYMBOL"
	case TokenOperator:
		return "OPERATOR"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenUnit:
		return "UNIT"
	case TokenQuantity:
		return "QUANTITY"
	default:
		return "UNKNOWN"
	}
}

// String renders the token as source text.
func (t Token) String() string {
	switch t.Type {
	case TokenUnit:
		return joinTokens(t.Parts)
	case TokenQuantity:
		if len(t.Parts) == 0 {
			return t.Value
		}
		return t.Value + " " + joinTokens(t.Parts)
	default:
		return t.Value
	}
}

// isOperator reports whether t is the operator op.
func (t Token) isOperator(op string) bool {
	return t.Type == TokenOperator && t.Value == op
}

// isSpecial reports whether t is an operator or a bracket.
func (t Token) isSpecial() bool {
	return t.Type == TokenOperator || t.Type == TokenLParen || t.Type == TokenRParen
}

func joinTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

func operatorToken(op string, pos int) Token {
	return Token{Type: TokenOperator, Value: op, Pos: pos}
}
