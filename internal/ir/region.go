package ir

// Region owns an ordered list of BasicBlocks. A structured op (If,
// While) owns one or more nested Regions; a Function owns exactly one,
// its body.
type Region struct {
	owner  *Op
	blocks []*BasicBlock
	parent *Module
}

// Blocks returns the region's basic blocks in order.
func (r *Region) Blocks() []*BasicBlock { return r.blocks }

// Owner returns the op that owns this region (nil for a Function body
// region, which is owned by the Function directly rather than an Op).
func (r *Region) Owner() *Op { return r.owner }

// Empty reports whether the region has no blocks.
func (r *Region) Empty() bool { return len(r.blocks) == 0 }

// First returns the region's first block, or nil if empty.
func (r *Region) First() *BasicBlock {
	if len(r.blocks) == 0 {
		return nil
	}
	return r.blocks[0]
}

// Last returns the region's last block, or nil if empty.
func (r *Region) Last() *BasicBlock {
	if len(r.blocks) == 0 {
		return nil
	}
	return r.blocks[len(r.blocks)-1]
}

// AppendBlock creates and appends a new empty block to the region.
func (r *Region) AppendBlock() *BasicBlock {
	bb := newBlock(r)
	r.blocks = append(r.blocks, bb)
	return bb
}

// InsertAfter inserts a fresh empty block immediately after bb in this
// region and returns it.
func (r *Region) InsertAfter(bb *BasicBlock) *BasicBlock {
	idx := r.indexOf(bb)
	n := newBlock(r)
	r.blocks = append(r.blocks, nil)
	copy(r.blocks[idx+2:], r.blocks[idx+1:])
	r.blocks[idx+1] = n
	return n
}

// InsertBefore inserts a fresh empty block immediately before bb in
// this region and returns it.
func (r *Region) InsertBefore(bb *BasicBlock) *BasicBlock {
	idx := r.indexOf(bb)
	n := newBlock(r)
	r.blocks = append(r.blocks, nil)
	copy(r.blocks[idx+1:], r.blocks[idx:])
	r.blocks[idx] = n
	return n
}

func (r *Region) indexOf(bb *BasicBlock) int {
	for i, b := range r.blocks {
		if b == bb {
			return i
		}
	}
	return -1
}

// MoveTo splices every block of r onto the end of dest's region (used
// when inlining a structured if/while's nested regions into the flat
// function body during FlattenCFG). Returns the first and last block of
// the moved sequence as they now live in dest.
func (r *Region) MoveTo(dest *Region) (first, last *BasicBlock) {
	if len(r.blocks) == 0 {
		return nil, nil
	}
	for _, bb := range r.blocks {
		bb.region = dest
		bb.parent = dest
	}
	dest.blocks = append(dest.blocks, r.blocks...)
	first, last = r.blocks[0], r.blocks[len(r.blocks)-1]
	r.blocks = nil
	return first, last
}

// removeBlock splices bb out of the region's block list (used when
// SimplifyCFG deletes an inlined-away block).
func (r *Region) removeBlock(bb *BasicBlock) {
	idx := r.indexOf(bb)
	if idx < 0 {
		return
	}
	r.blocks = append(r.blocks[:idx], r.blocks[idx+1:]...)
}

// RemoveBlock is the exported form of removeBlock, for passes outside
// this package (DCE's unreachable-block sweep, SimplifyCFG).
func (r *Region) RemoveBlock(bb *BasicBlock) { r.removeBlock(bb) }

// InsertBlocksBefore splices blocks (already-built, currently
// unparented or parented elsewhere) into r's block list immediately
// before mark, reparenting each to r. Used by FlattenCFG to place a
// structured if/while's nested-region blocks between the split head and
// the synthesized join block.
func (r *Region) InsertBlocksBefore(mark *BasicBlock, blocks []*BasicBlock) {
	if len(blocks) == 0 {
		return
	}
	for _, bb := range blocks {
		bb.region = r
		bb.parent = r
	}
	idx := r.indexOf(mark)
	if idx < 0 {
		idx = len(r.blocks)
	}
	tail := append([]*BasicBlock(nil), r.blocks[idx:]...)
	r.blocks = append(r.blocks[:idx], blocks...)
	r.blocks = append(r.blocks, tail...)
}
