package passes

import (
	"testing"

	"aotc/internal/ir"
)

func TestDCERemovesDeadArithmetic(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", 1, ir.I64)
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)

	a := b.GetArg(0, ir.I64)
	dead := b.BinOp(ir.OpAdd, a, b.IntConst(1)) // unused
	b.Return(a)
	_ = dead

	if !DCE(fn) {
		t.Fatal("expected DCE to report a change")
	}
	for _, op := range fn.AllOps() {
		if op == dead {
			t.Fatal("dead add survived DCE")
		}
	}
}

func TestDCEKeepsStoresAndCalls(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", 1, ir.Void)
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)

	a := b.GetArg(0, ir.I64)
	slot := b.Alloca(8)
	b.Store(slot, a)
	b.Call("sideeffect", nil, ir.Void)
	b.Return(nil)

	Purity(m)
	DCE(fn)
	var sawStore, sawCall bool
	for _, op := range fn.AllOps() {
		if op.Opcode == ir.OpStore {
			sawStore = true
		}
		if op.Opcode == ir.OpCall {
			sawCall = true
		}
	}
	if !sawStore {
		t.Error("DCE erased a Store, which always has side effects")
	}
	if !sawCall {
		t.Error("DCE erased an impure Call with no uses")
	}
}
