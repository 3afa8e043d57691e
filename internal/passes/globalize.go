package passes

import (
	"strconv"

	"aotc/internal/ir"
)

// Globalize promotes a large fixed-size alloca in a function tagged
// AtMostOnceAttr into a module-level Global, replacing its address uses
// with GlobalAddr, per spec.md §4.7/§9. This is sound only when the
// function runs from a single call site (so the storage's lifetime
// cannot alias a second concurrent activation) and only worth doing
// for allocations large enough that spilling their address computation
// out of the prologue matters — spec.md's own sizing note is honored by
// globalizeSizeThreshold below.
const globalizeSizeThreshold = 32

func Globalize(m *ir.Module) bool {
	changed := false
	for _, fn := range m.Functions {
		if !fn.IsAtMostOnce() {
			continue
		}
		for _, op := range fn.AllOps() {
			if op.Opcode != ir.OpAlloca {
				continue
			}
			size, _ := ir.GetAttr[ir.SizeAttr](op)
			if size.Bytes <= globalizeSizeThreshold {
				continue
			}
			name := globalName(m, fn, op)
			g := m.NewGlobal(name, size.Bytes, ir.I32, nil, true)
			b := ir.NewBuilder()
			b.SetBeforeOp(op)
			addr := b.GlobalAddr(g.Name)
			op.ReplaceAllUsesWith(addr)
			op.Erase()
			changed = true
		}
	}
	return changed
}

func globalName(m *ir.Module, fn *ir.Function, op *ir.Op) string {
	base := fn.Name + ".local"
	name := base
	for i := 0; m.FindGlobal(name) != nil; i++ {
		name = base + "." + strconv.Itoa(i)
	}
	return name
}
