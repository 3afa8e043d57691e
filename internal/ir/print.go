package ir

import (
	"fmt"
	"sort"
	"strings"
)

// DumpContext threads the numbering used to print a single snapshot
// consistently, replacing the mutable-global-bbid idiom spec.md's
// Design Notes flags as a source pattern to avoid.
type DumpContext struct {
	opNames map[*Op]string
	next    int
}

func NewDumpContext() *DumpContext {
	return &DumpContext{opNames: make(map[*Op]string)}
}

func (c *DumpContext) nameOf(op *Op) string {
	if op == nil {
		return "<nil>"
	}
	if n, ok := c.opNames[op]; ok {
		return n
	}
	n := fmt.Sprintf("%%%d", c.next)
	c.next++
	c.opNames[op] = n
	return n
}

// PrintFunction renders f in a readable textual SSA form: one block per
// label, phi/attrs inline, using the given DumpContext for stable
// value naming across multiple dumps in the same test.
func PrintFunction(c *DumpContext, f *Function) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func %s(%d args) -> %s {\n", f.Name, f.NumArgs, f.RetType)
	for _, bb := range f.Blocks() {
		fmt.Fprintf(&sb, "bb%d:\n", bb.ID())
		for _, op := range bb.Ops() {
			sb.WriteString("  ")
			sb.WriteString(printOp(c, op))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func printOp(c *DumpContext, op *Op) string {
	var sb strings.Builder
	if op.Result != Void {
		fmt.Fprintf(&sb, "%s = ", c.nameOf(op))
	}
	sb.WriteString(string(op.Opcode))
	var parts []string
	for _, v := range op.Operands {
		parts = append(parts, c.nameOf(v))
	}
	for _, a := range op.Attrs {
		parts = append(parts, printAttr(a))
	}
	if len(parts) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	return sb.String()
}

func printAttr(a Attr) string {
	switch v := a.(type) {
	case NameAttr:
		return "#" + v.Name
	case IntAttr:
		return fmt.Sprintf("%d", v.Value)
	case FloatAttr:
		return fmt.Sprintf("%g", v.Value)
	case SizeAttr:
		return fmt.Sprintf("size=%d", v.Bytes)
	case TargetAttr:
		return fmt.Sprintf("bb%d", v.Block.ID())
	case ElseAttr:
		return fmt.Sprintf("else=bb%d", v.Block.ID())
	case FromAttr:
		return fmt.Sprintf("from=bb%d", v.Block.ID())
	case IntArrayAttr:
		return fmt.Sprintf("ints=%v", v.Values)
	case CallerAttr:
		return fmt.Sprintf("callers=%v", v.Names)
	case RangeAttr:
		return fmt.Sprintf("range=[%d,%d)", v.Start, v.Stop)
	case ImpureAttr:
		return "impure"
	case AtMostOnceAttr:
		return "at-most-once"
	case StackOffsetAttr:
		return fmt.Sprintf("frame=%d", v.Offset)
	case SubscriptAttr:
		return fmt.Sprintf("[%d]", v.Index)
	case IncreaseAttr:
		return fmt.Sprintf("increase=%v", v.Coeffs)
	case RegAttr:
		return fmt.Sprintf("%s=%s", roleName(v.Role), v.Reg)
	case SpilledAttr:
		return fmt.Sprintf("spilled-%s=%d(fp=%v)", roleName(v.Role), v.Offset, v.FP)
	case AliasAttr:
		return fmt.Sprintf("alias=%s", printAliasLocations(v.Locations))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func roleName(r RegRole) string {
	switch r {
	case RoleRd:
		return "rd"
	case RoleRs:
		return "rs"
	case RoleRs2:
		return "rs2"
	case RoleRs3:
		return "rs3"
	default:
		return "?"
	}
}

func printAliasLocations(locs map[string]map[int]bool) string {
	bases := make([]string, 0, len(locs))
	for base := range locs {
		bases = append(bases, base)
	}
	sort.Strings(bases)
	var sb strings.Builder
	for i, base := range bases {
		if i > 0 {
			sb.WriteString(";")
		}
		offs := make([]int, 0, len(locs[base]))
		for o := range locs[base] {
			offs = append(offs, o)
		}
		sort.Ints(offs)
		fmt.Fprintf(&sb, "%s%v", base, offs)
	}
	return sb.String()
}

// PrintModule renders every function in m with a shared DumpContext per
// function (values are not named consistently across functions, only
// within one — matching the scope of a single compiled unit's dump).
func PrintModule(m *Module) string {
	var sb strings.Builder
	for _, g := range m.Globals {
		fmt.Fprintf(&sb, "global %s size=%d zero=%v init=%v\n", g.Name, g.Size, g.AllZero, g.Init)
	}
	for _, f := range m.Functions {
		f.Renumber()
		sb.WriteString(PrintFunction(NewDumpContext(), f))
	}
	return sb.String()
}
