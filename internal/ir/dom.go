package ir

// UpdatePreds recomputes every block's succs/preds in f from each
// block's terminator. Must be called after any pass that rewrites a
// Jump/Branch's Target/Else attrs or restructures the block list,
// before any reader relies on Preds()/Succs() (spec.md §5).
func (f *Function) UpdatePreds() {
	blocks := f.Blocks()
	for _, bb := range blocks {
		bb.preds.Clear()
		bb.succs.Clear()
	}
	for _, bb := range blocks {
		term := bb.Terminator()
		if term == nil {
			continue
		}
		for _, target := range terminatorTargets(term) {
			bb.succs.Add(target)
			target.preds.Add(bb)
		}
	}
}

// terminatorTargets returns the blocks a terminator op may transfer
// control to.
func terminatorTargets(term *Op) []*BasicBlock {
	var out []*BasicBlock
	if t, ok := GetAttr[TargetAttr](term); ok {
		out = append(out, t.Block)
	}
	if e, ok := GetAttr[ElseAttr](term); ok {
		out = append(out, e.Block)
	}
	return out
}

// UpdateDoms recomputes every block's immediate dominator using the
// iterative Cooper-Harvey-Kennedy algorithm, then derives each block's
// dominance frontier from preds/idom. Requires UpdatePreds to have been
// called first on the current CFG shape.
func (f *Function) UpdateDoms() {
	blocks := f.Blocks()
	if len(blocks) == 0 {
		return
	}
	entry := blocks[0]

	rpo := reversePostorder(entry)
	order := make(map[*BasicBlock]int, len(rpo))
	for i, bb := range rpo {
		order[bb] = i
	}

	entry.idom = entry
	changed := true
	for changed {
		changed = false
		for _, bb := range rpo {
			if bb == entry {
				continue
			}
			var newIdom *BasicBlock
			for _, p := range bb.preds.Items() {
				if p.idom == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, order)
			}
			if newIdom != nil && bb.idom != newIdom {
				bb.idom = newIdom
				changed = true
			}
		}
	}
	entry.idom = nil // entry has no dominator, by convention

	for _, bb := range blocks {
		bb.domFrontier = NewSet[*BasicBlock]()
	}
	for _, bb := range blocks {
		if bb.preds.Len() < 2 {
			continue
		}
		for _, p := range bb.preds.Items() {
			runner := p
			for runner != nil && runner != bb.idom {
				runner.domFrontier.Add(bb)
				runner = runner.idom
			}
		}
	}
}

func intersect(a, b *BasicBlock, order map[*BasicBlock]int) *BasicBlock {
	for a != b {
		for order[a] > order[b] {
			a = a.idom
			if a == nil {
				return b
			}
		}
		for order[b] > order[a] {
			b = b.idom
			if b == nil {
				return a
			}
		}
	}
	return a
}

// reversePostorder returns blocks reachable from entry in reverse
// postorder (entry first), via depth-first succs traversal.
func reversePostorder(entry *BasicBlock) []*BasicBlock {
	visited := NewSet[*BasicBlock]()
	var post []*BasicBlock
	var visit func(bb *BasicBlock)
	visit = func(bb *BasicBlock) {
		if visited.Has(bb) {
			return
		}
		visited.Add(bb)
		for _, s := range bb.succs.Items() {
			visit(s)
		}
		post = append(post, bb)
	}
	visit(entry)
	rpo := make([]*BasicBlock, len(post))
	for i, bb := range post {
		rpo[len(post)-1-i] = bb
	}
	return rpo
}

// IteratedDominanceFrontier computes the iterated dominance frontier of
// a set of blocks (used by Mem2Reg to find φ-insertion points).
func IteratedDominanceFrontier(seed []*BasicBlock) *Set[*BasicBlock] {
	result := NewSet[*BasicBlock]()
	worklist := append([]*BasicBlock(nil), seed...)
	for len(worklist) > 0 {
		bb := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, df := range bb.DomFrontier().Items() {
			if !result.Has(df) {
				result.Add(df)
				worklist = append(worklist, df)
			}
		}
	}
	return result
}
