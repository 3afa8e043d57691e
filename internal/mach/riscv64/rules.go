package riscv64

import "aotc/internal/pattern"

// buildRules returns the combining rules instruction selection tries
// before falling back to a plain opcode rename: each one recognizes a
// mid-level shape with a constant operand that RV64's I-type encoding
// can fold directly into the instruction's 12-bit immediate, sparing a
// separate li into a register. Expressed in the same s-expression DSL
// internal/pattern's mid-level rewrites use (spec.md §4.2), since
// instruction selection is itself just another rewrite pass over the
// same Op/Bindings machinery.
func buildRules() pattern.RuleSet {
	srcs := []string{
		`(change (add x 'c) (riscv64.addi x 'c))`,
		`(change (sub x 'c) (riscv64.subi x 'c))`,
		`(change (and x 'c) (riscv64.andi x 'c))`,
		`(change (or x 'c) (riscv64.ori x 'c))`,
		`(change (shl x 'c) (riscv64.slli x 'c))`,
		`(change (shr x 'c) (riscv64.srli x 'c))`,
		`(change (eq x 'c) (riscv64.seqi x 'c))`,
		`(change (lt x 'c) (riscv64.slti x 'c))`,
	}
	var rules pattern.RuleSet
	for _, src := range srcs {
		rules = append(rules, pattern.NewRule(src))
	}
	return rules
}
