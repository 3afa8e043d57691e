package ir

import "golang.org/x/tools/container/intsets"

// Liveness holds per-block live-in/live-out sets of op ids, computed by
// UpdateLiveness. Op ids index directly into the intsets.Sparse bitsets
// (Function.Renumber must have been called first), the same
// representation the register allocator reuses for its interference
// graph and "bad colour" sets (internal/regalloc).
type Liveness struct {
	liveIn  map[*BasicBlock]*intsets.Sparse
	liveOut map[*BasicBlock]*intsets.Sparse
	byID    map[int]*Op
}

// LiveIn/LiveOut return the computed sets for bb. Both are nil-safe: an
// empty *intsets.Sparse is returned if UpdateLiveness has not run.
func (l *Liveness) LiveIn(bb *BasicBlock) *intsets.Sparse {
	if l == nil {
		return &intsets.Sparse{}
	}
	return l.liveIn[bb]
}
func (l *Liveness) LiveOut(bb *BasicBlock) *intsets.Sparse {
	if l == nil {
		return &intsets.Sparse{}
	}
	return l.liveOut[bb]
}

// Op resolves an id back to its defining Op.
func (l *Liveness) Op(id int) *Op { return l.byID[id] }

// IsLiveOut reports whether v is live across the boundary out of bb.
func (l *Liveness) IsLiveOut(bb *BasicBlock, v *Op) bool {
	return l.LiveOut(bb).Has(v.ID())
}

// UpdateLiveness computes f's Liveness via the classic backward
// dataflow over operand def/use described in spec.md §4.1, treating φ
// operands as live only along their corresponding incoming edge.
// Requires f.Renumber() and f.UpdatePreds() to reflect the current CFG.
func (f *Function) UpdateLiveness() *Liveness {
	blocks := f.Blocks()
	l := &Liveness{
		liveIn:  make(map[*BasicBlock]*intsets.Sparse, len(blocks)),
		liveOut: make(map[*BasicBlock]*intsets.Sparse, len(blocks)),
		byID:    make(map[int]*Op),
	}
	upExposed := make(map[*BasicBlock]*intsets.Sparse, len(blocks))
	defs := make(map[*BasicBlock]*intsets.Sparse, len(blocks))

	for _, bb := range blocks {
		up := &intsets.Sparse{}
		d := &intsets.Sparse{}
		for _, op := range bb.Ops() {
			l.byID[op.ID()] = op
			if op.IsPhi() {
				for _, operand := range op.Operands {
					if operand != nil {
						l.byID[operand.ID()] = operand
					}
				}
			} else {
				for _, operand := range op.Operands {
					if operand != nil && operand.Block() != bb {
						up.Insert(operand.ID())
					}
				}
			}
			d.Insert(op.ID())
		}
		upExposed[bb] = up
		defs[bb] = d
	}

	for _, bb := range blocks {
		l.liveIn[bb] = &intsets.Sparse{}
		l.liveOut[bb] = &intsets.Sparse{}
	}

	changed := true
	for changed {
		changed = false
		for i := len(blocks) - 1; i >= 0; i-- {
			bb := blocks[i]
			out := &intsets.Sparse{}
			for _, s := range bb.succs.Items() {
				for _, phi := range s.Phis() {
					froms := GetAttrs[FromAttr](phi)
					for idx, operand := range phi.Operands {
						if idx < len(froms) && froms[idx].Block == bb && operand != nil {
							out.Insert(operand.ID())
						}
					}
				}
				nonPhiIn := &intsets.Sparse{}
				nonPhiIn.Copy(l.liveIn[s])
				for _, phi := range s.Phis() {
					nonPhiIn.Remove(phi.ID())
				}
				out.UnionWith(nonPhiIn)
			}
			in := &intsets.Sparse{}
			in.Copy(upExposed[bb])
			rest := &intsets.Sparse{}
			rest.Copy(out)
			rest.DifferenceWith(defs[bb])
			in.UnionWith(rest)

			if !in.Equals(l.liveIn[bb]) || !out.Equals(l.liveOut[bb]) {
				changed = true
			}
			l.liveIn[bb] = in
			l.liveOut[bb] = out
		}
	}
	return l
}
