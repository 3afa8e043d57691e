package arm64

import "aotc/internal/pattern"

// buildRules returns the combining rules instruction selection tries
// before falling back to a plain opcode rename: each one recognizes a
// mid-level shape with a constant operand that ARM64 can fold directly
// into the instruction's immediate field, sparing a separate
// materialize-into-register op. Expressed in the same s-expression DSL
// internal/pattern's mid-level rewrites use (spec.md §4.2), since
// instruction selection is itself just another rewrite pass over the
// same Op/Bindings machinery.
func buildRules() pattern.RuleSet {
	srcs := []string{
		`(change (add x 'c) (arm64.addi x 'c))`,
		`(change (sub x 'c) (arm64.subi x 'c))`,
		`(change (and x 'c) (arm64.andi x 'c))`,
		`(change (or x 'c) (arm64.orri x 'c))`,
		`(change (shl x 'c) (arm64.lsli x 'c))`,
		`(change (shr x 'c) (arm64.lsri x 'c))`,
		`(change (eq x 'c) (arm64.cmpieq x 'c))`,
		`(change (lt x 'c) (arm64.cmpilt x 'c))`,
	}
	var rules pattern.RuleSet
	for _, src := range srcs {
		rules = append(rules, pattern.NewRule(src))
	}
	return rules
}
