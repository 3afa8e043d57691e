// Package emit formats a fully allocated ir.Module as assembly text
// (spec.md §4.10, §6): a ".global main" header, then for each function
// its label and one "bbN:" label per block, each op rendered as its
// mnemonic followed by its register/immediate/label/name operands in
// rd, rs, rs2, rs3, immediate, target, name order.
package emit

import (
	"fmt"
	"io"
	"strings"

	"aotc/internal/ir"
)

// Module writes m's assembly text to w.
func Module(w io.Writer, m *ir.Module) error {
	var sb strings.Builder
	sb.WriteString(".global main\n")
	for _, fn := range m.Functions {
		writeFunction(&sb, fn)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// String renders m's assembly text without needing a writer, for
// callers (tests, --dump-ast-adjacent diagnostics) that just want the
// text.
func String(m *ir.Module) string {
	var sb strings.Builder
	Module(&sb, m)
	return sb.String()
}

func writeFunction(sb *strings.Builder, fn *ir.Function) {
	fn.Renumber()
	fmt.Fprintf(sb, "%s:\n", fn.Name)
	for _, bb := range fn.Blocks() {
		fmt.Fprintf(sb, "bb%d:\n", bb.ID())
		for _, op := range bb.Ops() {
			sb.WriteString("  ")
			sb.WriteString(writeOp(op))
			sb.WriteString("\n")
		}
	}
}

func writeOp(op *ir.Op) string {
	var parts []string
	parts = append(parts, regOperands(op)...)
	parts = append(parts, immOperands(op)...)
	parts = append(parts, labelOperands(op)...)
	parts = append(parts, nameOperands(op)...)

	mnemonic := stripTargetPrefix(string(op.Opcode))
	if len(parts) == 0 {
		return mnemonic
	}
	return mnemonic + " " + strings.Join(parts, ", ")
}

// regOperands renders rd, rs, rs2, rs3 in that fixed order, taking
// whichever of RegAttr/SpilledAttr names that role.
func regOperands(op *ir.Op) []string {
	byRole := make(map[ir.RegRole]string)
	for _, a := range ir.GetAttrs[ir.RegAttr](op) {
		byRole[a.Role] = a.Reg
	}
	for _, a := range ir.GetAttrs[ir.SpilledAttr](op) {
		byRole[a.Role] = fmt.Sprintf("[sp+%d]", a.Offset)
	}
	var out []string
	for _, role := range []ir.RegRole{ir.RoleRd, ir.RoleRs, ir.RoleRs2, ir.RoleRs3} {
		if s, ok := byRole[role]; ok {
			out = append(out, s)
		}
	}
	return out
}

func immOperands(op *ir.Op) []string {
	var out []string
	for _, a := range ir.GetAttrs[ir.IntAttr](op) {
		out = append(out, fmt.Sprintf("%d", a.Value))
	}
	for _, a := range ir.GetAttrs[ir.FloatAttr](op) {
		out = append(out, fmt.Sprintf("%g", a.Value))
	}
	return out
}

func labelOperands(op *ir.Op) []string {
	var out []string
	if t, ok := ir.GetAttr[ir.TargetAttr](op); ok {
		out = append(out, fmt.Sprintf("bb%d", t.Block.ID()))
	}
	if e, ok := ir.GetAttr[ir.ElseAttr](op); ok {
		out = append(out, fmt.Sprintf("bb%d", e.Block.ID()))
	}
	return out
}

func nameOperands(op *ir.Op) []string {
	var out []string
	if n, ok := ir.GetAttr[ir.NameAttr](op); ok {
		out = append(out, n.Name)
	}
	return out
}

// stripTargetPrefix turns "arm64.addi" into "addi"; pseudo-ops
// (move, spillstore, readreg, ...) already have no prefix to strip.
func stripTargetPrefix(opcode string) string {
	if i := strings.IndexByte(opcode, '.'); i >= 0 {
		return opcode[i+1:]
	}
	return opcode
}
