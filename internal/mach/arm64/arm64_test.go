package arm64

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
	add := b.BinOp(ir.OpAdd, x, y)
	b.Return(add)

	if err := New().Select(fn); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if add.Opcode != "arm64.add" {
		t.Errorf("add.Opcode = %s, want arm64.add", add.Opcode)
	}
}

func TestSelectFusesImmediate(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", 0, ir.I64)
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)

	x := b.GetArg(0, ir.I64)
	c := b.IntConst(4)
	add := b.BinOp(ir.OpAdd, x, c)
	b.Return(add)

	if err := New().Select(fn); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if add.Opcode != "arm64.addi" {
		t.Errorf("add.Opcode = %s, want arm64.addi (immediate fused)", add.Opcode)
	}
}

func TestTerminatorStillRecognizedAfterRename(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", 0, ir.Void)
	bb := fn.Body.First()
	ir.NewBuilder().SetToBlockEnd(bb).Return(nil)

	if err := New().Select(fn); err != nil {
		t.Fatalf("Select: %v", err)
	}
	term := bb.Terminator()
	if term == nil {
		t.Fatal("Terminator() == nil after selection renamed \"return\" to \"arm64.ret\"")
	}
	if term.Opcode != "arm64.ret" {
		t.Errorf("term.Opcode = %s, want arm64.ret", term.Opcode)
	}
}

func TestRegisterSets(t *testing.T) {
	tgt := New()
	if len(tgt.ArgRegisters()) != 8 {
		t.Errorf("ArgRegisters() len = %d, want 8", len(tgt.ArgRegisters()))
	}
	if len(tgt.CallerSaved())+len(tgt.CalleeSaved()) != len(tgt.GeneralRegisters()) {
		t.Error("CallerSaved+CalleeSaved should partition GeneralRegisters")
	}
	if tgt.StackPointer() != "sp" {
		t.Errorf("StackPointer() = %q, want sp", tgt.StackPointer())
	}
}
