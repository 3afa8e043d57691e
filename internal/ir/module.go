package ir

// Module is the top-level container: an ordered sequence of Functions
// and Globals.
type Module struct {
	Functions []*Function
	Globals   []*Global

	nextOpID    int
	nextBlockID int
}

// Global is named storage: a byte size, an element type (I32 or F32),
// a dense initializer, and an all-zero flag.
type Global struct {
	Name     string
	Size     int
	ElemType Type
	Init     []int32
	AllZero  bool
}

// Function is named, typed, with an argument count, a single body
// Region, and a set of attributes (Caller, Pure/Impure, StackOffset,
// AtMostOnce).
type Function struct {
	Name    string
	NumArgs int
	RetType Type
	Body    *Region
	Attrs   []Attr

	module *Module
}

// NewModule returns an empty Module.
func NewModule() *Module {
	return &Module{}
}

// NewFunction creates a Function with a fresh single-block body region
// and appends it to the module.
func (m *Module) NewFunction(name string, numArgs int, ret Type) *Function {
	f := &Function{Name: name, NumArgs: numArgs, RetType: ret, module: m}
	f.Body = &Region{parent: m}
	f.Body.AppendBlock()
	m.Functions = append(m.Functions, f)
	return f
}

// NewGlobal appends a Global to the module.
func (m *Module) NewGlobal(name string, size int, elem Type, init []int32, allZero bool) *Global {
	g := &Global{Name: name, Size: size, ElemType: elem, Init: init, AllZero: allZero}
	m.Globals = append(m.Globals, g)
	return g
}

// FindFunction returns the function named name, or nil.
func (m *Module) FindFunction(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FindGlobal returns the global named name, or nil.
func (m *Module) FindGlobal(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// IsPure reports whether f is marked pure (no visible side effects).
func (f *Function) IsPure() bool {
	for _, a := range f.Attrs {
		if _, ok := a.(ImpureAttr); ok {
			return false
		}
	}
	return true
}

// IsAtMostOnce reports whether f is called from at most one call site.
func (f *Function) IsAtMostOnce() bool {
	for _, a := range f.Attrs {
		if _, ok := a.(AtMostOnceAttr); ok {
			return true
		}
	}
	return false
}

// SetAttr replaces (or adds) an attribute of the same Go type on f.
func (f *Function) SetAttr(a Attr) {
	for i, existing := range f.Attrs {
		if sameAttrType(existing, a) {
			f.Attrs[i] = a
			return
		}
	}
	f.Attrs = append(f.Attrs, a)
}

func sameAttrType(a, b Attr) bool {
	switch a.(type) {
	case StackOffsetAttr:
		_, ok := b.(StackOffsetAttr)
		return ok
	case CallerAttr:
		_, ok := b.(CallerAttr)
		return ok
	default:
		return false
	}
}

// Blocks returns every basic block reachable through f's body region,
// including nested structured regions (pre-FlattenCFG), in a
// reasonable pre-order.
func (f *Function) Blocks() []*BasicBlock {
	var out []*BasicBlock
	var walkRegion func(r *Region)
	walkRegion = func(r *Region) {
		for _, bb := range r.Blocks() {
			out = append(out, bb)
			for e := bb.ops.Front(); e != nil; e = e.Next() {
				op := e.Value.(*Op)
				for _, nested := range op.Regions {
					walkRegion(nested)
				}
			}
		}
	}
	walkRegion(f.Body)
	return out
}

// Renumber assigns stable small integer ids to every op and block in f,
// in block order. Required before printing and before any pass that
// indexes a bitset by op/block id (liveness, the register allocator's
// interference graph).
func (f *Function) Renumber() {
	bid, oid := 0, 0
	for _, bb := range f.Blocks() {
		bb.id = bid
		bid++
		for e := bb.ops.Front(); e != nil; e = e.Next() {
			op := e.Value.(*Op)
			op.id = oid
			oid++
		}
	}
}

// AllOps returns every op in f's blocks, in block order.
func (f *Function) AllOps() []*Op {
	var out []*Op
	for _, bb := range f.Blocks() {
		out = append(out, bb.Ops()...)
	}
	return out
}
