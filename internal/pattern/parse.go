package pattern

import (
	"fmt"
	"strings"
)

// tokenize splits an s-expression string into "(" / ")" / atom tokens.
// Atoms are separated by whitespace and parens; the prefix characters
// (">", "?", "#", "'", "*", "!") are kept as part of the atom, per
// spec.md §4.2's token conventions.
func tokenize(src string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

// Parse parses a single EXPR from src. It is an error for trailing
// tokens to remain after the expression closes.
func Parse(src string) (*Expr, error) {
	toks := tokenize(src)
	e, rest, err := parseExpr(toks)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("pattern: trailing tokens after expression: %v", rest)
	}
	return e, nil
}

func parseExpr(toks []string) (*Expr, []string, error) {
	if len(toks) == 0 {
		return nil, nil, fmt.Errorf("pattern: unexpected end of input")
	}
	if toks[0] == "(" {
		toks = toks[1:]
		if len(toks) == 0 {
			return nil, nil, fmt.Errorf("pattern: unterminated list")
		}
		if toks[0] == "(" || toks[0] == ")" {
			return nil, nil, fmt.Errorf("pattern: list must start with an atom head")
		}
		head := toks[0]
		toks = toks[1:]
		var args []*Expr
		for len(toks) > 0 && toks[0] != ")" {
			var a *Expr
			var err error
			a, toks, err = parseExpr(toks)
			if err != nil {
				return nil, nil, err
			}
			args = append(args, a)
		}
		if len(toks) == 0 || toks[0] != ")" {
			return nil, nil, fmt.Errorf("pattern: unterminated list")
		}
		return &Expr{Head: head, Args: args}, toks[1:], nil
	}
	if toks[0] == ")" {
		return nil, nil, fmt.Errorf("pattern: unexpected )")
	}
	return &Expr{Atom: toks[0]}, toks[1:], nil
}

// MustParse is Parse but panics on a malformed rule; used for rules
// baked in as Go string literals at package init time.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}
