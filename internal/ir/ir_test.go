package ir

import (
	"strings"
	"testing"
)

// buildDiamond builds:
//
//	entry: branch cond -> then, else
//	then:  jump join
//	else:  jump join
//	join:  phi(a from then, b from else); return phi
func buildDiamond(t *testing.T) (*Function, *Op) {
	m := NewModule()
	f := m.NewFunction("diamond", 1, I32)
	entry := f.Body.First()
	b := NewBuilder()

	cond := b.SetToBlockEnd(entry).GetArg(0, I32)

	thenBB := f.Body.AppendBlock()
	elseBB := f.Body.AppendBlock()
	joinBB := f.Body.AppendBlock()

	b.SetToBlockEnd(entry).Branch(cond, thenBB, elseBB)

	a := b.SetToBlockEnd(thenBB).IntConst(1)
	b.SetToBlockEnd(thenBB).Jump(joinBB)

	c := b.SetToBlockEnd(elseBB).IntConst(2)
	b.SetToBlockEnd(elseBB).Jump(joinBB)

	phi := b.SetToBlockEnd(joinBB).Phi(I32, []*Op{a, c}, []*BasicBlock{thenBB, elseBB})
	b.SetToBlockEnd(joinBB).Return(phi)

	f.Renumber()
	f.UpdatePreds()
	f.UpdateDoms()
	return f, phi
}

func TestDefUseSymmetry(t *testing.T) {
	f, phi := buildDiamond(t)
	for _, op := range f.AllOps() {
		for _, operand := range op.Operands {
			if operand == nil {
				continue
			}
			found := false
			for _, u := range operand.Uses() {
				if u == op {
					found = true
				}
			}
			if !found {
				t.Errorf("op %s is an operand of %s but missing from its uses list", operand.Opcode, op.Opcode)
			}
		}
	}
	if len(phi.Operands) != 2 {
		t.Fatalf("phi expected 2 operands, got %d", len(phi.Operands))
	}
}

func TestPhiWellFormedness(t *testing.T) {
	f, _ := buildDiamond(t)
	for _, bb := range f.Blocks() {
		for _, phi := range bb.Phis() {
			froms := GetAttrs[FromAttr](phi)
			if len(froms) != len(phi.Operands) {
				t.Fatalf("phi has %d operands but %d From attrs", len(phi.Operands), len(froms))
			}
			if len(froms) != bb.Preds().Len() {
				t.Fatalf("phi has %d incoming edges, block has %d preds", len(froms), bb.Preds().Len())
			}
			predSet := NewSet[*BasicBlock]()
			for _, p := range bb.Preds().Items() {
				predSet.Add(p)
			}
			for _, fr := range froms {
				if !predSet.Has(fr.Block) {
					t.Fatalf("phi From block not in preds set")
				}
			}
		}
	}
}

func TestReplaceAllUsesWith(t *testing.T) {
	f, phi := buildDiamond(t)
	joinBB := phi.Block()
	ret := joinBB.LastOp()
	if ret.Opcode != OpReturn {
		t.Fatalf("expected return terminator, got %s", ret.Opcode)
	}

	b := NewBuilder()
	repl := b.SetBeforeOp(phi).IntConst(42)
	phi.ReplaceAllUsesWith(repl)

	if phi.HasUses() {
		t.Fatalf("phi should have no uses after ReplaceAllUsesWith")
	}
	if ret.Operands[0] != repl {
		t.Fatalf("return operand should now be the replacement op")
	}
	phi.Erase()
	_ = f
}

func TestDominance(t *testing.T) {
	f, phi := buildDiamond(t)
	joinBB := phi.Block()
	entry := f.Blocks()[0]
	if !entry.Dominates(joinBB) {
		t.Fatalf("entry must dominate join")
	}
	if joinBB.Idom() != entry {
		t.Fatalf("join's idom should be entry, got %v", joinBB.Idom())
	}
}

func TestDominanceFrontier(t *testing.T) {
	f, phi := buildDiamond(t)
	joinBB := phi.Block()
	for _, bb := range f.Blocks() {
		if bb == joinBB || bb == f.Blocks()[0] {
			continue
		}
		if !bb.DomFrontier().Has(joinBB) {
			t.Fatalf("block %d's dominance frontier should include join", bb.ID())
		}
	}
}

func TestLivenessCrossesBlock(t *testing.T) {
	f, phi := buildDiamond(t)
	joinBB := phi.Block()
	live := f.UpdateLiveness()
	for _, p := range joinBB.Preds().Items() {
		out := live.LiveOut(p)
		found := false
		for _, operand := range phi.Operands {
			if out.Has(operand.ID()) {
				found = true
			}
		}
		if !found {
			t.Errorf("block %d's live-out should include its phi operand contribution", p.ID())
		}
	}
}

func TestPrintFunctionStable(t *testing.T) {
	f, _ := buildDiamond(t)
	out := PrintFunction(NewDumpContext(), f)
	if !strings.Contains(out, "phi") {
		t.Fatalf("expected phi in printed output, got:\n%s", out)
	}
	if !strings.Contains(out, "return") {
		t.Fatalf("expected return in printed output, got:\n%s", out)
	}
}

func TestEraseDetaches(t *testing.T) {
	f, _ := buildDiamond(t)
	bb := f.Blocks()[0]
	before := bb.Len()
	op := bb.LastOp()
	if op.HasUses() {
		t.Skip("last op unexpectedly has uses in this fixture")
	}
	op.Erase()
	if bb.Len() != before-1 {
		t.Fatalf("expected block length %d after erase, got %d", before-1, bb.Len())
	}
	if op.Block() != nil {
		t.Fatalf("erased op should have nil block")
	}
}
