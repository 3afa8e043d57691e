package frontend

import (
	"fmt"
	"strconv"

	"aotc/internal/astin"
)

// Parse scans and parses source into an astin.Program. A non-nil error
// is spec.md §7's "front-end input error (missing file, parse
// failure)"; the driver prints it to stderr and exits non-zero.
func Parse(source string) (*astin.Program, error) {
	toks, err := NewScanner(source).ScanTokens()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	prog := &astin.Program{}
	for !p.check(TokEOF) {
		if p.checkIdent("global") {
			g, err := p.parseGlobal()
			if err != nil {
				return nil, err
			}
			prog.Globals = append(prog.Globals, g)
			continue
		}
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) cur() Token  { return p.toks[p.pos] }
func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) check(tt TokenType) bool { return p.cur().Type == tt }
func (p *parser) checkIdent(lex string) bool {
	return p.cur().Type == TokIdent && p.cur().Lexeme == lex
}
func (p *parser) checkSymbol(lex string) bool {
	return p.cur().Type == TokSymbol && p.cur().Lexeme == lex
}

func (p *parser) expectSymbol(lex string) error {
	if !p.checkSymbol(lex) {
		return fmt.Errorf("line %d: expected %q, got %q", p.cur().Line, lex, p.cur().Lexeme)
	}
	p.advance()
	return nil
}

func (p *parser) expectIdent(lex string) error {
	if !p.checkIdent(lex) {
		return fmt.Errorf("line %d: expected %q, got %q", p.cur().Line, lex, p.cur().Lexeme)
	}
	p.advance()
	return nil
}

func (p *parser) expectType() (astin.Type, error) {
	if !p.check(TokIdent) {
		return astin.TypeVoid, fmt.Errorf("line %d: expected a type, got %q", p.cur().Line, p.cur().Lexeme)
	}
	t := p.advance().Lexeme
	switch t {
	case "i32":
		return astin.TypeI32, nil
	case "i64":
		return astin.TypeI64, nil
	case "f32":
		return astin.TypeF32, nil
	default:
		return astin.TypeVoid, fmt.Errorf("line %d: unknown type %q", p.cur().Line, t)
	}
}

// parseGlobal parses "global name: i64[size];" or "global name: i64;".
func (p *parser) parseGlobal() (*astin.Global, error) {
	p.advance() // "global"
	if !p.check(TokIdent) {
		return nil, fmt.Errorf("line %d: expected a global name", p.cur().Line)
	}
	name := p.advance().Lexeme
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	elem, err := p.expectType()
	if err != nil {
		return nil, err
	}
	size := 1
	if p.checkSymbol("[") {
		p.advance()
		if !p.check(TokInt) {
			return nil, fmt.Errorf("line %d: expected an array size", p.cur().Line)
		}
		n, _ := strconv.Atoi(p.advance().Lexeme)
		size = n
		if err := p.expectSymbol("]"); err != nil {
			return nil, err
		}
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return &astin.Global{Name: name, Size: size, ElemType: elem, AllZero: true}, nil
}

// parseFunction parses "func name(p: i64, ...) -> i64 { ...stmts... }".
func (p *parser) parseFunction() (*astin.Function, error) {
	if err := p.expectIdent("func"); err != nil {
		return nil, err
	}
	if !p.check(TokIdent) {
		return nil, fmt.Errorf("line %d: expected a function name", p.cur().Line)
	}
	name := p.advance().Lexeme
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var params []astin.Param
	for !p.checkSymbol(")") {
		if !p.check(TokIdent) {
			return nil, fmt.Errorf("line %d: expected a parameter name", p.cur().Line)
		}
		pname := p.advance().Lexeme
		if err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		ptyp, err := p.expectType()
		if err != nil {
			return nil, err
		}
		params = append(params, astin.Param{Name: pname, Type: ptyp})
		if p.checkSymbol(",") {
			p.advance()
		}
	}
	p.advance() // ")"
	ret := astin.TypeVoid
	if p.checkSymbol("->") {
		p.advance()
		t, err := p.expectType()
		if err != nil {
			return nil, err
		}
		ret = t
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &astin.Function{Name: name, Params: params, RetType: ret, Body: body, Pure: true}, nil
}

func (p *parser) parseBlock() ([]astin.Stmt, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	var stmts []astin.Stmt
	for !p.checkSymbol("}") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	p.advance() // "}"
	return stmts, nil
}

func (p *parser) parseStmt() (astin.Stmt, error) {
	switch {
	case p.checkIdent("var"):
		return p.parseVarDecl()
	case p.checkIdent("if"):
		return p.parseIf()
	case p.checkIdent("while"):
		return p.parseWhile()
	case p.checkIdent("return"):
		return p.parseReturn()
	default:
		return p.parseAssignOrExprStmt()
	}
}

func (p *parser) parseVarDecl() (astin.Stmt, error) {
	p.advance() // "var"
	if !p.check(TokIdent) {
		return nil, fmt.Errorf("line %d: expected a variable name", p.cur().Line)
	}
	name := p.advance().Lexeme
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	typ, err := p.expectType()
	if err != nil {
		return nil, err
	}
	var init astin.Expr
	if p.checkSymbol("=") {
		p.advance()
		init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return &astin.VarDecl{Name: name, Type: typ, Init: init}, nil
}

func (p *parser) parseIf() (astin.Stmt, error) {
	p.advance() // "if"
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var els []astin.Stmt
	if p.checkIdent("else") {
		p.advance()
		els, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	return &astin.If{Cond: cond, Then: then, Else: els}, nil
}

func (p *parser) parseWhile() (astin.Stmt, error) {
	p.advance() // "while"
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &astin.While{Cond: cond, Body: body}, nil
}

func (p *parser) parseReturn() (astin.Stmt, error) {
	p.advance() // "return"
	var val astin.Expr
	if !p.checkSymbol(";") {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		val = v
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return &astin.Return{Value: val}, nil
}

func (p *parser) parseAssignOrExprStmt() (astin.Stmt, error) {
	if p.check(TokIdent) && p.toks[p.pos+1].Type == TokSymbol && p.toks[p.pos+1].Lexeme == "=" {
		name := p.advance().Lexeme
		p.advance() // "="
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(";"); err != nil {
			return nil, err
		}
		return &astin.Assign{Name: name, Value: val}, nil
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return &astin.ExprStmt{Value: val}, nil
}

// Binary operator precedence, low to high; Op strings match ir.Opcode's
// mid-level vocabulary directly so internal/lower needs no translation.
var precedence = []map[string]string{
	{"||": "or"},
	{"&&": "and"},
	{"==": "eq", "!=": "ne"},
	{"<": "lt", "<=": "le", ">": "gt", ">=": "ge"},
	{"+": "add", "-": "sub"},
	{"*": "mul", "/": "div", "%": "mod"},
}

func (p *parser) parseExpr() (astin.Expr, error) {
	return p.parseBinary(0)
}

func (p *parser) parseBinary(level int) (astin.Expr, error) {
	if level >= len(precedence) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.check(TokSymbol) {
		op, ok := precedence[level][p.cur().Lexeme]
		if !ok {
			break
		}
		p.advance()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &astin.BinOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (astin.Expr, error) {
	if p.checkSymbol("-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &astin.UnaryOp{Op: "minus", Operand: operand}, nil
	}
	if p.checkSymbol("!") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &astin.UnaryOp{Op: "not", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (astin.Expr, error) {
	switch {
	case p.check(TokInt):
		v, _ := strconv.ParseInt(p.advance().Lexeme, 10, 64)
		return &astin.IntLit{Value: v}, nil
	case p.check(TokFloat):
		v, _ := strconv.ParseFloat(p.advance().Lexeme, 32)
		return &astin.FloatLit{Value: float32(v)}, nil
	case p.checkSymbol("("):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.check(TokIdent):
		name := p.advance().Lexeme
		if p.checkSymbol("(") {
			p.advance()
			var args []astin.Expr
			for !p.checkSymbol(")") {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.checkSymbol(",") {
					p.advance()
				}
			}
			p.advance() // ")"
			return &astin.Call{Callee: name, Args: args}, nil
		}
		return &astin.Ident{Name: name}, nil
	default:
		return nil, fmt.Errorf("line %d: unexpected token %q", p.cur().Line, p.cur().Lexeme)
	}
}
