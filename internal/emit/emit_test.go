package emit

import (
	"strings"
	"testing"

	"aotc/internal/ir"
)

func TestWriteOp(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("add", 0, ir.I64)
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)

	add := b.Create(ir.Opcode("arm64.add"), ir.I64, nil,
		ir.RegAttr{Role: ir.RoleRd, Reg: "x9"},
		ir.RegAttr{Role: ir.RoleRs, Reg: "x0"},
		ir.RegAttr{Role: ir.RoleRs2, Reg: "x1"})
	_ = add
	b.Create(ir.Opcode("arm64.ret"), ir.Void, nil)

	got := String(m)
	if !strings.HasPrefix(got, ".global main\n") {
		t.Fatalf("missing header:\n%s", got)
	}
	if !strings.Contains(got, "add:\n") {
		t.Fatalf("missing function label:\n%s", got)
	}
	if !strings.Contains(got, "bb0:\n") {
		t.Fatalf("missing block label:\n%s", got)
	}
	if !strings.Contains(got, "add x9, x0, x1") {
		t.Fatalf("expected rendered add op, got:\n%s", got)
	}
	if !strings.Contains(got, "  ret\n") {
		t.Fatalf("expected rendered ret op, got:\n%s", got)
	}
}

func TestSpilledOperandRendersAsStackSlot(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", 0, ir.Void)
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)
	b.Create(ir.OpSpillStore, ir.Void, nil,
		ir.RegAttr{Role: ir.RoleRs, Reg: "x9"},
		ir.SpilledAttr{Role: ir.RoleRd, Offset: 16})

	got := String(m)
	if !strings.Contains(got, "spillstore [sp+16], x9") {
		t.Fatalf("expected spill slot rendering, got:\n%s", got)
	}
}

func TestLabelOperands(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", 0, ir.Void)
	entry := fn.Body.First()
	target := fn.Body.AppendBlock()
	b := ir.NewBuilder().SetToBlockEnd(entry)
	b.Jump(target)
	ir.NewBuilder().SetToBlockEnd(target).Return(nil)

	got := String(m)
	if !strings.Contains(got, "b bb1") && !strings.Contains(got, "jump bb1") {
		t.Fatalf("expected a jump to bb1, got:\n%s", got)
	}
}
