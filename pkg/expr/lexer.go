package expr

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// floatState is the state of the numeric-literal sub-automaton.
type floatState int

const (
	floatNone         floatState = iota // not inside a numeric literal
	floatInteger                        // [0-9]+
	floatFraction                       // after '.'
	floatExponentMark                   // after 'e', sign or digit expected
	floatExponent                       // exponent sign or digits
)

// eofRune is fed to the sub-automaton once at end of input.
const eofRune rune = -1

// Lexer tokenizes a unit expression.
type Lexer struct {
	input    []rune
	tokens   []string
	offsets  []int
	buf      []rune
	bufStart int
	state    floatState
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// Tokenize splits the input into raw tokens and classifies them.
func (l *Lexer) Tokenize() ([]Token, error) {
	l.split()

	tokens := make([]Token, 0, len(l.tokens))
	for i, raw := range l.tokens {
		tok, err := classify(raw, l.offsets[i])
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// Split returns the raw token strings of input without classifying them.
func Split(input string) []string {
	l := NewLexer(input)
	l.split()
	return l.tokens
}

func (l *Lexer) split() {
	for pos, ch := range l.input {
		l.stepFloat(ch, pos)

		switch {
		case l.state != floatNone:
			l.push(ch, pos)
		case unicode.IsSpace(ch):
			l.flush()
		case isSpecialRune(ch):
			l.flush()
			l.emit(string(ch), pos)
		default:
			l.push(ch, pos)
		}
	}
	l.stepFloat(eofRune, len(l.input))
	l.flush()
}

// stepFloat advances the numeric sub-automaton by one character. It flushes
// the buffer when a literal starts or ends, and ejects a dangling exponent
// marker and sign as separate tokens.
func (l *Lexer) stepFloat(ch rune, pos int) {
	switch l.state {
	case floatNone:
		if isDigit(ch) {
			l.flush()
			l.state = floatInteger
		} else if ch == '.' {
			l.flush()
			l.state = floatFraction
		}
	case floatInteger:
		switch {
		case ch == '.':
			l.state = floatFraction
		case ch == 'e' || ch == 'E':
			l.state = floatExponentMark
		case !isDigit(ch):
			l.state = floatNone
			l.flush()
		}
	case floatFraction:
		switch {
		case ch == 'e' || ch == 'E':
			l.state = floatExponentMark
		case !isDigit(ch):
			l.state = floatNone
			l.flush()
		}
	case floatExponentMark:
		if ch == '+' || ch == '-' || isDigit(ch) {
			l.state = floatExponent
			return
		}
		// "1e" followed by anything else: the literal ends before the marker,
		// which stays buffered as the start of an ordinary token.
		l.state = floatNone
		mark := l.buf[len(l.buf)-1]
		l.buf = l.buf[:len(l.buf)-1]
		l.flush()
		l.push(mark, pos-1)
	case floatExponent:
		if isDigit(ch) {
			return
		}
		l.state = floatNone
		var ejected []rune
		if last := l.buf[len(l.buf)-1]; last == '+' || last == '-' {
			ejected = append(ejected, last)
			l.buf = l.buf[:len(l.buf)-1]
		}
		if last := l.buf[len(l.buf)-1]; last == 'e' || last == 'E' {
			ejected = append(ejected, last)
			l.buf = l.buf[:len(l.buf)-1]
		}
		end := l.bufStart + len(l.buf)
		l.flush()
		for i := len(ejected) - 1; i >= 0; i-- {
			l.emit(string(ejected[i]), end)
			end++
		}
	}
}

func (l *Lexer) push(ch rune, pos int) {
	if len(l.buf) == 0 {
		l.bufStart = pos
	}
	l.buf = append(l.buf, ch)
}

func (l *Lexer) flush() {
	if len(l.buf) == 0 {
		return
	}
	l.emit(string(l.buf), l.bufStart)
	l.buf = l.buf[:0]
}

func (l *Lexer) emit(raw string, pos int) {
	l.tokens = append(l.tokens, raw)
	l.offsets = append(l.offsets, pos)
}

// classify assigns a type to a raw token.
func classify(raw string, pos int) (Token, error) {
	switch raw {
	case "(":
		return Token{Type: TokenLParen, Value: raw, Pos: pos}, nil
	case ")":
		return Token{Type: TokenRParen, Value: raw, Pos: pos}, nil
	case OpAdd, OpSub, OpMul, OpDiv, OpExp, OpConvert:
		return operatorToken(raw, pos), nil
	}
	if isNumber(raw) {
		return Token{Type: TokenNumber, Value: raw, Pos: pos}, nil
	}
	if types.IsValidSymbol(raw) {
		return Token{Type: TokenSymbol, Value: raw, Pos: pos}, nil
	}
	return Token{}, types.NewLexError(fmt.Sprintf("unrecognized token %q at position %d", raw, pos))
}

// isNumber reports whether s is a decimal float literal, optionally signed.
func isNumber(s string) bool {
	body := s
	if len(body) > 0 && (body[0] == '+' || body[0] == '-') {
		body = body[1:]
	}
	if body == "" || !(isDigit(rune(body[0])) || body[0] == '.') {
		return false
	}
	for _, ch := range body {
		if !(isDigit(ch) || ch == '.' || ch == 'e' || ch == 'E' || ch == '+' || ch == '-') {
			return false
		}
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// isInteger reports whether s is a signed decimal integer.
func isInteger(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isSpecialRune(ch rune) bool {
	switch ch {
	case '+', '-', '*', '/', '^', '(', ')', ':':
		return true
	}
	return false
}
