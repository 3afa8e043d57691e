package frontend

import (
	"testing"

	"github.com/kr/pretty"

	"aotc/internal/astin"
)

func TestParseFunction(t *testing.T) {
	src := `
func add(a: i64, b: i64) -> i64 {
	var x: i64 = a + b;
	if (x < 0) {
		return 0;
	} else {
		return x;
	}
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "add" || len(fn.Params) != 2 || fn.RetType != astin.TypeI64 {
		t.Fatalf("fn = %+v", fn)
	}
	if len(fn.Body) != 2 {
		t.Fatalf("got %d statements, want 2", len(fn.Body))
	}
	decl, ok := fn.Body[0].(*astin.VarDecl)
	if !ok {
		t.Fatalf("Body[0] = %T, want *astin.VarDecl", fn.Body[0])
	}
	bin, ok := decl.Init.(*astin.BinOp)
	if !ok || bin.Op != "add" {
		t.Fatalf("decl.Init = %+v, want add BinOp", decl.Init)
	}
	ifStmt, ok := fn.Body[1].(*astin.If)
	if !ok {
		t.Fatalf("Body[1] = %T, want *astin.If", fn.Body[1])
	}
	cond, ok := ifStmt.Cond.(*astin.BinOp)
	if !ok || cond.Op != "lt" {
		t.Fatalf("ifStmt.Cond = %+v, want lt BinOp", ifStmt.Cond)
	}
	if len(ifStmt.Then) != 1 || len(ifStmt.Else) != 1 {
		t.Fatalf("ifStmt = %+v", ifStmt)
	}
}

func TestParseUnaryAndBinaryPrecedence(t *testing.T) {
	prog, err := Parse(`func f(a: i64) -> i64 { return -a + 1; }`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := &astin.BinOp{
		Op:    "add",
		Left:  &astin.UnaryOp{Op: "minus", Operand: &astin.Ident{Name: "a"}},
		Right: &astin.IntLit{Value: 1},
	}
	ret := prog.Functions[0].Body[0].(*astin.Return)
	if diff := pretty.Diff(want, ret.Value); len(diff) != 0 {
		t.Fatalf("unexpected AST shape, diff: %v", diff)
	}
}

func TestParseGlobalAndCall(t *testing.T) {
	src := `
global buf: i64[16];

func main() -> i64 {
	return sum(buf, 16);
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Globals) != 1 || prog.Globals[0].Size != 16 {
		t.Fatalf("Globals = %+v", prog.Globals)
	}
	ret := prog.Functions[0].Body[0].(*astin.Return)
	call, ok := ret.Value.(*astin.Call)
	if !ok || call.Callee != "sum" || len(call.Args) != 2 {
		t.Fatalf("ret.Value = %+v", ret.Value)
	}
}

func TestParseLogicalOperators(t *testing.T) {
	src := `
func f(a: i64, b: i64) -> i64 {
	if (a < b && b < 10) {
		return 1;
	}
	return 0;
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ifStmt := prog.Functions[0].Body[0].(*astin.If)
	cond, ok := ifStmt.Cond.(*astin.BinOp)
	if !ok || cond.Op != "and" {
		t.Fatalf("cond = %+v, want top-level 'and' BinOp", ifStmt.Cond)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"func f(",
		"func f() { var x: bogus = 1; }",
		"func f() { return 1 }", // missing ';'
		"123abc",
	}
	for _, src := range cases {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", src)
		}
	}
}
