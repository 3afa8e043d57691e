package riscv64

import (
	"testing"

	"aotc/internal/ir"
)

func TestSelectRenamesPlainOp(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", 0, ir.I64)
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)

	x := b.GetArg(0, ir.I64)
	y := b.GetArg(1, ir.I64)
	mul := b.BinOp(ir.OpMul, x, y)
	b.Return(mul)

	if err := New().Select(fn); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if mul.Opcode != "riscv64.mul" {
		t.Errorf("mul.Opcode = %s, want riscv64.mul", mul.Opcode)
	}
}

func TestSelectFusesImmediate(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", 0, ir.I64)
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)

	x := b.GetArg(0, ir.I64)
	c := b.IntConst(1)
	and := b.BinOp(ir.OpAnd, x, c)
	b.Return(and)

	if err := New().Select(fn); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if and.Opcode != "riscv64.andi" {
		t.Errorf("and.Opcode = %s, want riscv64.andi (immediate fused)", and.Opcode)
	}
}

func TestTerminatorStillRecognizedAfterRename(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", 0, ir.Void)
	bb := fn.Body.First()
	then := fn.Body.AppendBlock()
	els := fn.Body.AppendBlock()
	b := ir.NewBuilder().SetToBlockEnd(bb)
	cond := b.IntConst(0)
	b.Branch(cond, then, els)
	ir.NewBuilder().SetToBlockEnd(then).Return(nil)
	ir.NewBuilder().SetToBlockEnd(els).Return(nil)

	if err := New().Select(fn); err != nil {
		t.Fatalf("Select: %v", err)
	}
	term := bb.Terminator()
	if term == nil || term.Opcode != "riscv64.bnez" {
		t.Fatalf("term = %v, want riscv64.bnez terminator", term)
	}
}
