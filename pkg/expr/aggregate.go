package expr

import (
	"fmt"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// Aggregate runs the three aggregation passes over lexed tokens: sign
// folding, unit aggregation and quantity aggregation. The result holds only
// TokenQuantity operands, operators and brackets.
func Aggregate(tokens []Token) ([]Token, error) {
	folded, err := FoldSigns(tokens)
	if err != nil {
		return nil, err
	}
	units, err := AggregateUnits(folded)
	if err != nil {
		return nil, err
	}
	return AggregateQuantities(units)
}

// FoldSigns rewrites unary '+' and '-'. A sign directly followed by a number
// is fused into it; otherwise "-x ..." becomes "( -1 * x ... )" where the
// wrapped run extends to the end of the enclosing bracket group.
func FoldSigns(tokens []Token) ([]Token, error) {
	_, out, err := foldGroup(tokens, 0, make([]Token, 0, len(tokens)), 0)
	return out, err
}

// foldGroup folds tokens from i up to, but not including, the ')' that
// closes the current group. It returns the index it stopped at.
func foldGroup(tokens []Token, i int, out []Token, depth int) (int, []Token, error) {
	var err error
	for i < len(tokens) {
		tok := tokens[i]
		switch {
		case tok.Type == TokenLParen:
			out = append(out, tok)
			i, out, err = foldGroup(tokens, i+1, out, depth+1)
			if err != nil {
				return i, out, err
			}
			if i < len(tokens) {
				out = append(out, tokens[i])
				i++
			}
		case tok.Type == TokenRParen:
			if depth == 0 {
				return i, out, types.NewAggregationError(fmt.Sprintf("mismatched parentheses: ')' at position %d", tok.Pos))
			}
			return i, out, nil
		case (tok.isOperator(OpAdd) || tok.isOperator(OpSub)) && isUnaryPosition(out):
			if i+1 < len(tokens) && tokens[i+1].Type == TokenNumber {
				out = append(out, Token{Type: TokenNumber, Value: tok.Value + tokens[i+1].Value, Pos: tok.Pos})
				i += 2
				continue
			}
			out = append(out,
				Token{Type: TokenLParen, Value: "(", Pos: tok.Pos},
				Token{Type: TokenNumber, Value: tok.Value + "1", Pos: tok.Pos},
				operatorToken(OpMul, tok.Pos),
			)
			i, out, err = foldGroup(tokens, i+1, out, depth)
			if err != nil {
				return i, out, err
			}
			out = append(out, Token{Type: TokenRParen, Value: ")", Pos: tok.Pos})
		default:
			out = append(out, tok)
			i++
		}
	}
	return i, out, nil
}

// isUnaryPosition reports whether a sign appended after out has no left
// operand.
func isUnaryPosition(out []Token) bool {
	if len(out) == 0 {
		return true
	}
	last := out[len(out)-1]
	return last.Type == TokenOperator || last.Type == TokenLParen
}

// unitAggregator folds runs of unit symbols, exponents and '*'/'/' into
// TokenUnit composites.
type unitAggregator struct {
	tokens []Token
	pos    int
	out    []Token
	run    []Token

	// expDepth is 0 outside an exponent, 1 right after '^', and one more
	// for every bracket opened inside the exponent.
	expDepth int
}

// AggregateUnits groups compound unit expressions into TokenUnit tokens and
// inserts implicit multiplication.
func AggregateUnits(tokens []Token) ([]Token, error) {
	a := &unitAggregator{tokens: tokens, out: make([]Token, 0, len(tokens))}
	for a.pos < len(a.tokens) {
		tok := a.tokens[a.pos]
		a.pos++
		if err := a.handle(tok); err != nil {
			return nil, err
		}
	}
	if a.expDepth > 0 {
		return nil, types.NewAggregationError("incomplete exponent at end of expression")
	}
	a.flushRun(nil)
	return a.out, nil
}

func (a *unitAggregator) handle(tok Token) error {
	switch tok.Type {
	case TokenLParen:
		if a.expDepth > 0 {
			a.run = append(a.run, tok)
			a.expDepth++
			return nil
		}
		a.flushRun(&tok)
	case TokenRParen:
		if a.expDepth == 1 {
			return a.exponentError(tok)
		}
		if a.expDepth > 0 {
			a.run = append(a.run, tok)
			a.expDepth--
			if a.expDepth == 1 {
				a.endExponent()
			}
			return nil
		}
		a.flushRun(&tok)
	case TokenNumber:
		if a.expDepth > 0 {
			if !isInteger(tok.Value) {
				return a.exponentError(tok)
			}
			a.run = append(a.run, tok)
			if a.expDepth == 1 {
				a.endExponent()
			}
			return nil
		}
		a.flushRun(&tok)
	case TokenSymbol:
		if a.expDepth > 0 {
			return a.exponentError(tok)
		}
		a.run = append(a.run, tok)
		a.afterSymbol()
	case TokenOperator:
		if a.expDepth > 1 && (tok.Value == OpAdd || tok.Value == OpSub) {
			a.run = append(a.run, tok)
			return nil
		}
		if a.expDepth > 0 {
			return a.exponentError(tok)
		}
		a.flushRun(&tok)
	default:
		return types.NewAggregationError(fmt.Sprintf("unexpected token %q", tok.String()))
	}
	return nil
}

func (a *unitAggregator) exponentError(tok Token) error {
	return types.NewAggregationError(fmt.Sprintf("expected integer exponent; received %q at position %d", tok.Value, tok.Pos))
}

func (a *unitAggregator) peek() (Token, bool) {
	if a.pos >= len(a.tokens) {
		return Token{}, false
	}
	return a.tokens[a.pos], true
}

// afterSymbol continues the run after a unit symbol: '^' opens an exponent,
// '*' or '/' is absorbed, and an adjacent symbol gets an implicit '*'.
func (a *unitAggregator) afterSymbol() {
	next, ok := a.peek()
	if !ok {
		return
	}
	switch {
	case next.isOperator(OpExp):
		a.run = append(a.run, next)
		a.pos++
		a.expDepth = 1
	case next.isOperator(OpMul) || next.isOperator(OpDiv):
		a.run = append(a.run, next)
		a.pos++
	case next.Type == TokenSymbol:
		a.run = append(a.run, operatorToken(OpMul, next.Pos))
	}
}

// endExponent closes a complete exponent and continues the run like
// afterSymbol does, minus the '^' case.
func (a *unitAggregator) endExponent() {
	a.expDepth = 0
	next, ok := a.peek()
	if !ok {
		return
	}
	switch {
	case next.isOperator(OpMul) || next.isOperator(OpDiv):
		a.run = append(a.run, next)
		a.pos++
	case next.Type == TokenSymbol:
		a.run = append(a.run, operatorToken(OpMul, next.Pos))
	}
}

// flushRun emits the pending unit run, demoting a trailing '*' or '/' back
// to a plain operator, then emits tok with an implicit '*' before a '(' that
// follows an operand.
func (a *unitAggregator) flushRun(tok *Token) {
	if len(a.run) > 0 {
		run := a.run
		var op *Token
		if last := run[len(run)-1]; last.isOperator(OpMul) || last.isOperator(OpDiv) {
			op = &last
			run = run[:len(run)-1]
		}
		a.out = append(a.out, Token{Type: TokenUnit, Parts: run, Pos: run[0].Pos})
		if op != nil {
			a.out = append(a.out, *op)
		}
		a.run = nil
	}
	if tok == nil {
		return
	}
	if tok.Type == TokenLParen && len(a.out) > 0 && !a.out[len(a.out)-1].isSpecial() {
		a.out = append(a.out, operatorToken(OpMul, tok.Pos))
	}
	a.out = append(a.out, *tok)
}

// AggregateQuantities pairs every value with the unit that follows it. A
// unit with no value gets "1"; a value with no unit gets an empty unit.
func AggregateQuantities(tokens []Token) ([]Token, error) {
	out := make([]Token, 0, len(tokens))
	needsValue := true

	for i := 0; i < len(tokens); {
		tok := tokens[i]
		switch tok.Type {
		case TokenOperator:
			if needsValue {
				return nil, types.NewAggregationError(fmt.Sprintf("expected a value before %q at position %d", tok.Value, tok.Pos))
			}
			out = append(out, tok)
			needsValue = true
			i++
		case TokenLParen, TokenRParen:
			out = append(out, tok)
			i++
		case TokenNumber, TokenUnit:
			q := Token{Type: TokenQuantity, Value: "1", Pos: tok.Pos}
			if tok.Type == TokenNumber {
				q.Value = tok.Value
				i++
			}
			if i < len(tokens) && tokens[i].Type == TokenUnit {
				q.Parts = tokens[i].Parts
				i++
			}

			afterGroup := len(out) > 0 && out[len(out)-1].Type == TokenRParen
			switch {
			case tok.Type == TokenUnit && afterGroup:
				out = append(out, operatorToken(OpMul, tok.Pos))
			case !needsValue:
				return nil, types.NewAggregationError(fmt.Sprintf("missing operator before %q at position %d", q.String(), tok.Pos))
			}
			out = append(out, q)
			needsValue = false
		default:
			return nil, types.NewAggregationError(fmt.Sprintf("unexpected token %q", tok.String()))
		}
	}
	if len(out) > 0 && out[len(out)-1].Type == TokenOperator {
		last := out[len(out)-1]
		return nil, types.NewAggregationError(fmt.Sprintf("dangling operator %q at end of expression", last.Value))
	}
	return out, nil
}
