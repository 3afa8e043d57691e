package latepass

import (
	"testing"

	"aotc/internal/ir"
)

func newFunc() (*ir.Module, *ir.Function) {
	m := ir.NewModule()
	fn := m.NewFunction("f", 0, ir.Void)
	return m, fn
}

func TestEliminateSelfMoves(t *testing.T) {
	_, fn := newFunc()
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)
	b.Create(ir.OpMove, ir.I64, nil,
		ir.RegAttr{Role: ir.RoleRd, Reg: "x9"}, ir.RegAttr{Role: ir.RoleRs, Reg: "x9"})
	b.Create(ir.OpMove, ir.I64, nil,
		ir.RegAttr{Role: ir.RoleRd, Reg: "x9"}, ir.RegAttr{Role: ir.RoleRs, Reg: "x10"})

	if !eliminateSelfMoves(bb) {
		t.Fatal("expected a change")
	}
	ops := bb.Ops()
	if len(ops) != 1 {
		t.Fatalf("got %d ops, want 1 surviving move", len(ops))
	}
}

func TestFoldSpillRoundTripSameReg(t *testing.T) {
	_, fn := newFunc()
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)
	b.Create(ir.OpSpillStore, ir.Void, nil,
		ir.RegAttr{Role: ir.RoleRs, Reg: "x9"}, ir.SpilledAttr{Role: ir.RoleRd, Offset: 8})
	b.Create(ir.OpSpillLoad, ir.I64, nil,
		ir.RegAttr{Role: ir.RoleRd, Reg: "x9"}, ir.SpilledAttr{Role: ir.RoleRs, Offset: 8})

	if !foldSpillRoundTrip(bb) {
		t.Fatal("expected a change")
	}
	ops := bb.Ops()
	if len(ops) != 1 || ops[0].Opcode != ir.OpSpillStore {
		t.Fatalf("ops = %v, want only the original store", opcodesOf(ops))
	}
}

func TestFoldSpillRoundTripDifferentReg(t *testing.T) {
	_, fn := newFunc()
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)
	b.Create(ir.OpSpillStore, ir.Void, nil,
		ir.RegAttr{Role: ir.RoleRs, Reg: "x9"}, ir.SpilledAttr{Role: ir.RoleRd, Offset: 8})
	b.Create(ir.OpSpillLoad, ir.I64, nil,
		ir.RegAttr{Role: ir.RoleRd, Reg: "x10"}, ir.SpilledAttr{Role: ir.RoleRs, Offset: 8})

	if !foldSpillRoundTrip(bb) {
		t.Fatal("expected a change")
	}
	ops := bb.Ops()
	if len(ops) != 2 || ops[1].Opcode != ir.OpMove {
		t.Fatalf("ops = %v, want store+move", opcodesOf(ops))
	}
}

func TestFixupFallthrough(t *testing.T) {
	_, fn := newFunc()
	entry := fn.Body.First()
	taken := fn.Body.AppendBlock()
	notTaken := fn.Body.AppendBlock()

	b := ir.NewBuilder().SetToBlockEnd(entry)
	cond := b.IntConst(1)
	b.Branch(cond, taken, notTaken)
	ir.NewBuilder().SetToBlockEnd(taken).Return(nil)
	ir.NewBuilder().SetToBlockEnd(notTaken).Return(nil)

	if !fixupFallthrough(fn) {
		t.Fatal("expected a change: notTaken is not the physical next block")
	}
	ops := entry.Ops()
	last := ops[len(ops)-1]
	if last.Opcode != ir.OpJump {
		t.Fatalf("last op = %s, want an inserted jump", last.Opcode)
	}
}

func opcodesOf(ops []*ir.Op) []ir.Opcode {
	out := make([]ir.Opcode, len(ops))
	for i, op := range ops {
		out[i] = op.Opcode
	}
	return out
}
