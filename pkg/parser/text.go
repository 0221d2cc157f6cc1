package parser

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/unitcalc/pkg/convert"
	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// Delimiters of the legacy text format.
const (
	EndDelimiter     = ';'
	SepDelimiter     = ','
	MapDelimiter     = ':'
	CommentDelimiter = '#'
)

// textToken is a token of the legacy text format with its source line.
type textToken struct {
	value string
	line  int
}

// Tokenize splits legacy text source into tokens. Whitespace separates
// tokens, each delimiter is a token of its own, and '#' comments out the
// rest of the line.
func Tokenize(src string) []string {
	tokens := tokenizeLines(src)
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.value
	}
	return out
}

func tokenizeLines(src string) []textToken {
	var tokens []textToken
	for n, line := range strings.Split(src, "\n") {
		var cur strings.Builder
		flush := func() {
			if cur.Len() > 0 {
				tokens = append(tokens, textToken{value: cur.String(), line: n + 1})
				cur.Reset()
			}
		}
	scan:
		for _, ch := range line {
			switch ch {
			case CommentDelimiter:
				break scan
			case ' ', '\t', '\r', '\n':
				flush()
			case EndDelimiter, SepDelimiter, MapDelimiter:
				flush()
				tokens = append(tokens, textToken{value: string(ch), line: n + 1})
			default:
				cur.WriteRune(ch)
			}
		}
		flush()
	}
	return tokens
}

// tokenStream is a cursor over legacy text tokens.
type tokenStream struct {
	tokens []textToken
	pos    int
	line   int
}

func (s *tokenStream) done() bool {
	return s.pos >= len(s.tokens)
}

func (s *tokenStream) errorf(format string, args ...any) *ParseError {
	loc := ""
	if s.line > 0 {
		loc = fmt.Sprintf("line %d", s.line)
	}
	return &ParseError{Message: fmt.Sprintf(format, args...), Location: loc}
}

func (s *tokenStream) peek() (string, error) {
	if s.done() {
		return "", s.errorf("expected token; none received")
	}
	return s.tokens[s.pos].value, nil
}

func (s *tokenStream) next() (string, error) {
	if s.done() {
		return "", s.errorf("expected token; none received")
	}
	tok := s.tokens[s.pos]
	s.pos++
	s.line = tok.line
	return tok.value, nil
}

func (s *tokenStream) expect(want rune) error {
	tok, err := s.next()
	if err != nil {
		return err
	}
	if tok != string(want) {
		return s.errorf("expected '%c'; received '%s'", want, tok)
	}
	return nil
}

func (s *tokenStream) symbol() (string, error) {
	tok, err := s.next()
	if err != nil {
		return "", err
	}
	if !types.IsValidSymbol(tok) {
		return "", s.errorf("expected alphabetical symbol; received '%s'", tok)
	}
	return tok, nil
}

func (s *tokenStream) float() (float64, error) {
	tok, err := s.next()
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, s.errorf("expected float; received '%s'", tok)
	}
	return f, nil
}

func (s *tokenStream) integer() (int, error) {
	tok, err := s.next()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, s.errorf("expected integer; received '%s'", tok)
	}
	return n, nil
}

// continues consumes a ',' if one is next.
func (s *tokenStream) continues() (bool, error) {
	tok, err := s.peek()
	if err != nil {
		return false, err
	}
	if tok != string(SepDelimiter) {
		return false, nil
	}
	s.pos++
	return true, nil
}

// parseText reads statements into reg by recursive descent. A statement
// that starts with a symbol defines a unit; anything else opens a prefix
// group.
func parseText(reg *convert.Registry, tokens []textToken, overwrite bool) error {
	s := &tokenStream{tokens: tokens}
	for !s.done() {
		var err error
		if types.IsValidSymbol(s.tokens[s.pos].value) {
			err = parseUnitStatement(reg, s, overwrite)
		} else {
			err = parsePrefixStatement(reg, s, overwrite)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// parseUnitStatement parses "sym;" or "sym: scale, dep exp, ...;".
func parseUnitStatement(reg *convert.Registry, s *tokenStream, overwrite bool) error {
	sym, err := s.symbol()
	if err != nil {
		return err
	}
	if _, dup := reg.Units[sym]; dup && !overwrite {
		return s.errorf("duplicate definition of unit '%s'", sym)
	}

	tok, err := s.next()
	if err != nil {
		return err
	}
	switch tok {
	case string(EndDelimiter):
		reg.DefineBase(sym)
		return nil
	case string(MapDelimiter):
	default:
		return s.errorf("expected delimiter; received '%s'", tok)
	}

	scale, err := s.float()
	if err != nil {
		return err
	}
	if err := s.expect(SepDelimiter); err != nil {
		return err
	}

	expansion := make(types.Dimensions)
	for {
		dep, err := s.symbol()
		if err != nil {
			return err
		}
		exp, err := s.integer()
		if err != nil {
			return err
		}
		expansion[dep] += exp

		more, err := s.continues()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	if err := s.expect(EndDelimiter); err != nil {
		return err
	}
	reg.DefineDerived(sym, scale, expansion)
	return nil
}

// parsePrefixStatement parses "base: prefix exp, prefix exp, ...;".
func parsePrefixStatement(reg *convert.Registry, s *tokenStream, overwrite bool) error {
	base, err := s.float()
	if err != nil {
		return err
	}
	if err := s.expect(MapDelimiter); err != nil {
		return err
	}

	for {
		sym, err := s.symbol()
		if err != nil {
			return err
		}
		if _, dup := reg.Prefixes[sym]; dup && !overwrite {
			return s.errorf("duplicate definition of prefix '%s'", sym)
		}
		exp, err := s.float()
		if err != nil {
			return err
		}
		reg.DefinePrefix(sym, base, exp)

		more, err := s.continues()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return s.expect(EndDelimiter)
}

// WriteText serializes reg in the legacy text format: one statement per
// prefix base, then one statement per unit. The output reads back to an
// equal registry.
func WriteText(w io.Writer, reg *convert.Registry) error {
	bw := bufio.NewWriter(w)

	groups := make(map[float64][]string)
	for sym, p := range reg.Prefixes {
		groups[p.Base] = append(groups[p.Base], sym)
	}
	bases := make([]float64, 0, len(groups))
	for base := range groups {
		bases = append(bases, base)
	}
	slices.Sort(bases)

	for _, base := range bases {
		syms := groups[base]
		slices.SortFunc(syms, func(a, b string) int {
			return cmp.Or(cmp.Compare(reg.Prefixes[a].Exponent, reg.Prefixes[b].Exponent), cmp.Compare(a, b))
		})
		parts := make([]string, len(syms))
		for i, sym := range syms {
			parts[i] = sym + " " + types.FormatValue(reg.Prefixes[sym].Exponent)
		}
		fmt.Fprintf(bw, "%s%c %s%c\n", types.FormatValue(base), MapDelimiter, strings.Join(parts, string(SepDelimiter)+" "), EndDelimiter)
	}

	for _, sym := range reg.UnitSymbols() {
		u := reg.Units[sym]
		if u.IsBase() {
			fmt.Fprintf(bw, "%s%c\n", sym, EndDelimiter)
			continue
		}
		parts := []string{types.FormatValue(reg.Scale(sym))}
		for _, dep := range u.Dims.Symbols() {
			if exp := u.Dims[dep]; exp != 0 {
				parts = append(parts, fmt.Sprintf("%s %d", dep, exp))
			}
		}
		fmt.Fprintf(bw, "%s%c %s%c\n", sym, MapDelimiter, strings.Join(parts, string(SepDelimiter)+" "), EndDelimiter)
	}
	return bw.Flush()
}
