package pattern

import (
	"testing"

	"aotc/internal/ir"
)

func TestParseRoundTrip(t *testing.T) {
	e, err := Parse("(add 'x 2)")
	if err != nil {
		t.Fatal(err)
	}
	if e.Head != "add" || len(e.Args) != 2 {
		t.Fatalf("unexpected parse: %+v", e)
	}
	if e.Args[0].Atom != "'x" || e.Args[1].Atom != "2" {
		t.Fatalf("unexpected args: %+v", e.Args)
	}
}

func TestMatchCommutativeFold(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", 0, ir.I32)
	b := ir.NewBuilder()
	bb := f.Body.First()
	b.SetToBlockEnd(bb)
	zero := b.IntConst(0)
	x := b.GetArg(0, ir.I32)
	add := b.BinOp(ir.OpAdd, x, zero)

	pat := MustParse("(add 'x 0)")
	env := NewBindings()
	if !Match(env, pat, add) {
		t.Fatalf("expected (add 'x 0) to match x+0")
	}
	if env.ops["x"] != x {
		t.Fatalf("expected x bound to GetArg op")
	}
}

func TestRuleRewriteAddZero(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", 1, ir.I32)
	b := ir.NewBuilder()
	bb := f.Body.First()
	b.SetToBlockEnd(bb)
	x := b.GetArg(0, ir.I32)
	zero := b.IntConst(0)
	add := b.BinOp(ir.OpAdd, x, zero)
	ret := b.Return(add)

	rule := NewRule("(change (add 'x 0) x)")
	applied := rule.TryRewrite(b, add)
	if !applied {
		t.Fatalf("expected rewrite to apply")
	}
	if ret.Operands[0] != x {
		t.Fatalf("expected return operand rewritten to x, got %v", ret.Operands[0])
	}
}

func TestEvalOnlyIfGuard(t *testing.T) {
	env := NewBindings()
	env.ints["k"] = 4096
	_, ok := Eval(env, MustParse("(!only-if (!inbit #k 12) #k)"))
	if ok {
		t.Fatalf("expected guard to fail for a value that does not fit 12 bits")
	}

	env2 := NewBindings()
	env2.ints["k"] = 100
	v, ok := Eval(env2, MustParse("(!only-if (!inbit #k 12) #k)"))
	if !ok || v != 100 {
		t.Fatalf("expected guard to pass and evaluate to 100, got %d ok=%v", v, ok)
	}
}

func TestRuleRewriteNoMatchIsNoop(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", 1, ir.I32)
	b := ir.NewBuilder()
	bb := f.Body.First()
	b.SetToBlockEnd(bb)
	x := b.GetArg(0, ir.I32)
	one := b.IntConst(1)
	add := b.BinOp(ir.OpAdd, x, one)

	rule := NewRule("(change (add 'x 0) x)")
	if rule.TryRewrite(b, add) {
		t.Fatalf("expected no rewrite for x+1")
	}
	if add.Block() == nil {
		t.Fatalf("add op should remain untouched after a failed match")
	}
}
