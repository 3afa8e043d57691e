package ir

import "container/list"

// BasicBlock owns an ordered list of Ops between an implicit label and
// a terminator. preds/succs/idom/domFrontier are recomputable indices:
// any pass that restructures the CFG must call UpdatePreds/UpdateDoms
// before a later reader relies on them (spec.md §5).
type BasicBlock struct {
	id     int
	region *Region
	parent *Region // alias kept for clarity at call sites; same as region
	ops    *list.List

	preds *Set[*BasicBlock]
	succs *Set[*BasicBlock]

	idom        *BasicBlock
	domFrontier *Set[*BasicBlock]
}

func newBlock(r *Region) *BasicBlock {
	bb := &BasicBlock{
		region: r,
		parent: r,
		ops:    list.New(),
		preds:  NewSet[*BasicBlock](),
		succs:  NewSet[*BasicBlock](),
	}
	return bb
}

// ID returns a stable small integer, assigned by Function.Renumber, used
// for printing (bb<k>) and as a bitset index.
func (b *BasicBlock) ID() int { return b.id }

// Region returns the owning region.
func (b *BasicBlock) Region() *Region { return b.region }

// Preds/Succs return the recomputable predecessor/successor sets.
func (b *BasicBlock) Preds() *Set[*BasicBlock] { return b.preds }
func (b *BasicBlock) Succs() *Set[*BasicBlock] { return b.succs }

// Idom returns the immediate dominator computed by the last UpdateDoms
// call, or nil for the entry block / before any call.
func (b *BasicBlock) Idom() *BasicBlock { return b.idom }

// DomFrontier returns the dominance-frontier set computed by the last
// UpdateDoms call.
func (b *BasicBlock) DomFrontier() *Set[*BasicBlock] {
	if b.domFrontier == nil {
		return NewSet[*BasicBlock]()
	}
	return b.domFrontier
}

// Dominates reports whether b dominates other (b == other counts).
func (b *BasicBlock) Dominates(other *BasicBlock) bool {
	for cur := other; cur != nil; cur = cur.idom {
		if cur == b {
			return true
		}
		if cur.idom == cur {
			break
		}
	}
	return false
}

// Ops returns the block's ops in order.
func (b *BasicBlock) Ops() []*Op {
	out := make([]*Op, 0, b.ops.Len())
	for e := b.ops.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Op))
	}
	return out
}

// Len returns the number of ops in the block.
func (b *BasicBlock) Len() int { return b.ops.Len() }

// FirstOp/LastOp return the block's first/last op, or nil if empty.
func (b *BasicBlock) FirstOp() *Op {
	if e := b.ops.Front(); e != nil {
		return e.Value.(*Op)
	}
	return nil
}
func (b *BasicBlock) LastOp() *Op {
	if e := b.ops.Back(); e != nil {
		return e.Value.(*Op)
	}
	return nil
}

// Terminator returns the block's terminator op, or nil if the block
// has not yet been given one (pre-FlattenCFG or under construction).
func (b *BasicBlock) Terminator() *Op {
	last := b.LastOp()
	if last != nil && last.IsTerminator() {
		return last
	}
	return nil
}

// Phis returns the block's leading φ-nodes, in order.
func (b *BasicBlock) Phis() []*Op {
	var out []*Op
	for e := b.ops.Front(); e != nil; e = e.Next() {
		op := e.Value.(*Op)
		if !op.IsPhi() {
			break
		}
		out = append(out, op)
	}
	return out
}

// pushFront/pushBack/insertBefore/insertAfter splice op into the
// intrusive list and record its owning block + position, maintaining
// the spec.md §3 invariant that an op's position matches its block.
func (b *BasicBlock) pushBack(op *Op) {
	op.block = b
	op.pos = b.ops.PushBack(op)
}
func (b *BasicBlock) pushFront(op *Op) {
	op.block = b
	op.pos = b.ops.PushFront(op)
}
func (b *BasicBlock) insertBefore(op, mark *Op) {
	op.block = b
	op.pos = b.ops.InsertBefore(op, mark.pos)
}
func (b *BasicBlock) insertAfter(op, mark *Op) {
	op.block = b
	op.pos = b.ops.InsertAfter(op, mark.pos)
}

// remove detaches op from the intrusive list.
func (b *BasicBlock) remove(op *Op) {
	if op.pos != nil {
		b.ops.Remove(op.pos)
	}
}

// SplitOpsAfter moves every op strictly after mark (or all ops, if mark
// is nil) out of b and onto the end of dest, preserving order. Used by
// FlattenCFG to carve a tail off a block being split at a structured
// control-flow op.
func (b *BasicBlock) SplitOpsAfter(mark *Op, dest *BasicBlock) {
	var start *list.Element
	if mark == nil {
		start = b.ops.Front()
	} else if mark.pos != nil {
		start = mark.pos.Next()
	}
	for e := start; e != nil; {
		next := e.Next()
		op := e.Value.(*Op)
		b.ops.Remove(e)
		dest.pushBack(op)
		e = next
	}
}

// clearEdges empties b's successor set; its predecessor set is left
// as it is.
func (b *BasicBlock) clearEdges() {
	b.succs.Clear()
}
