package regalloc

import "aotc/internal/ir"

// Graph is the interference graph described in spec.md §4.9 step 2: an
// edge between two value-defining ops means they are simultaneously
// live and therefore cannot receive the same colour. The allocator here
// models a single unified register class (the mach.Selector types this
// module drives against, internal/mach/arm64 and internal/mach/riscv64,
// expose one GeneralRegisters list apiece rather than separate INT/FP
// files), so there is no parallel spill-interference graph: one
// adjacency set serves both colour and stack-slot-packing queries.
type Graph struct {
	order []*ir.Op
	adj   map[*ir.Op]map[*ir.Op]bool
}

func newGraph() *Graph {
	return &Graph{adj: make(map[*ir.Op]map[*ir.Op]bool)}
}

func (g *Graph) addNode(op *ir.Op) {
	if _, ok := g.adj[op]; ok {
		return
	}
	g.order = append(g.order, op)
	g.adj[op] = make(map[*ir.Op]bool)
}

func (g *Graph) addEdge(a, b *ir.Op) {
	if a == b {
		return
	}
	g.addNode(a)
	g.addNode(b)
	g.adj[a][b] = true
	g.adj[b][a] = true
}

// Interferes reports whether a and b are ever simultaneously live.
func (g *Graph) Interferes(a, b *ir.Op) bool { return g.adj[a][b] }

// Neighbors returns every node interfering with op.
func (g *Graph) Neighbors(op *ir.Op) []*ir.Op {
	out := make([]*ir.Op, 0, len(g.adj[op]))
	for n := range g.adj[op] {
		out = append(out, n)
	}
	return out
}

func (g *Graph) degree(op *ir.Op) int { return len(g.adj[op]) }

// isValueNode reports whether op produces a colourable value: it has a
// non-void result (φs included; SSA destruction moves each incoming
// value into the φ's colour), or it is a PlaceHolder.
func isValueNode(op *ir.Op) bool {
	return op.Result != ir.Void || op.Opcode == ir.OpPlaceHolder
}

// buildInterference runs the event-driven sweep spec.md §4.9 step 2
// describes: within each block, order value-defining events by
// position, with a value's live range running from its definition (or
// the block start, if it is live-in) to its last in-block use (or the
// block end, if it is live-out). Two ranges that overlap at any
// instruction produce an edge.
func buildInterference(fn *ir.Function, live *ir.Liveness) *Graph {
	g := newGraph()

	for _, bb := range fn.Blocks() {
		ops := bb.Ops()
		indexOf := make(map[*ir.Op]int, len(ops))
		for i, op := range ops {
			indexOf[op] = i
		}

		type span struct {
			op         *ir.Op
			start, end int
		}
		var spans []span

		liveIn := live.LiveIn(bb)
		seen := make(map[*ir.Op]bool)
		liveIn.Do(func(id int) {
			op := live.Op(id)
			if op == nil || seen[op] {
				return
			}
			seen[op] = true
			end := len(ops)
			for i, o := range ops {
				for _, operand := range o.Operands {
					if operand == op {
						end = i
					}
				}
			}
			spans = append(spans, span{op: op, start: -1, end: end})
		})

		for i, op := range ops {
			if !isValueNode(op) {
				continue
			}
			if seen[op] {
				continue
			}
			// A φ's value is available from block entry: the incoming
			// value already landed in its colour via the predecessor
			// edge's parallel copy (spec.md §4.9 step 6), so it shares
			// the same start point as a live-in value rather than the
			// position of the φ op itself.
			start := i
			if op.IsPhi() {
				start = -1
			}
			end := i
			for j := i + 1; j < len(ops); j++ {
				for _, operand := range ops[j].Operands {
					if operand == op {
						end = j
					}
				}
			}
			if live.IsLiveOut(bb, op) {
				end = len(ops)
			}
			spans = append(spans, span{op: op, start: start, end: end})
		}

		type event struct {
			pos    int
			isEnd  bool
			sp     span
		}
		var events []event
		for _, s := range spans {
			events = append(events, event{pos: s.start, isEnd: false, sp: s})
			events = append(events, event{pos: s.end, isEnd: true, sp: s})
		}
		// Sort by (position, end-before-start): a range ending at
		// position p does not interfere with one starting at p.
		for i := 1; i < len(events); i++ {
			for j := i; j > 0; j-- {
				a, b := events[j-1], events[j]
				swap := a.pos > b.pos || (a.pos == b.pos && !a.isEnd && b.isEnd)
				if !swap {
					break
				}
				events[j-1], events[j] = events[j], events[j-1]
			}
		}

		active := make(map[*ir.Op]bool)
		for _, e := range events {
			if e.isEnd {
				delete(active, e.sp.op)
				continue
			}
			g.addNode(e.sp.op)
			for other := range active {
				g.addEdge(e.sp.op, other)
			}
			active[e.sp.op] = true
		}
	}

	return g
}
