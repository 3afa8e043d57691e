package pattern

import "aotc/internal/ir"

// Rule is one "(change MATCH REWRITE)" entry: a matcher pattern and a
// builder template sharing one variable scope.
type Rule struct {
	Match   *Expr
	Rewrite *Expr
}

// NewRule parses a rule of the shape (change MATCH REWRITE).
func NewRule(src string) Rule {
	e := MustParse(src)
	if e.Head != "change" || len(e.Args) != 2 {
		panic("pattern: rule must be (change MATCH REWRITE): " + src)
	}
	return Rule{Match: e.Args[0], Rewrite: e.Args[1]}
}

// TryRewrite attempts to match r at op; on success it builds the
// replacement immediately before op using b, rewrites every use of op
// to the replacement, erases op, and returns true. On failure it
// performs no mutation and returns false — this is Rewrite(op) from
// spec.md §4.2.
func (r Rule) TryRewrite(b *ir.Builder, op *ir.Op) bool {
	env := NewBindings()
	if !Match(env, r.Match, op) {
		return false
	}
	saved := b.Save()
	b.SetBeforeOp(op)
	newOp := Build(env, b, r.Rewrite)
	if env.failed || newOp == nil {
		saved.Restore()
		return false
	}
	op.ReplaceAllUsesWith(newOp)
	op.Erase()
	return true
}

// RuleSet applies the first matching rule, in order, at op.
type RuleSet []Rule

// Rewrite tries every rule in order and applies the first one that
// matches, per spec.md §4.2's rewrite(op) contract.
func (rs RuleSet) Rewrite(b *ir.Builder, op *ir.Op) bool {
	for _, r := range rs {
		if r.TryRewrite(b, op) {
			return true
		}
	}
	return false
}

// RewriteToFixpoint repeatedly applies rs across every op in fn until a
// full pass produces no rewrites, the fixed-point iteration shared by
// StrengthReduce, peephole passes, and instruction-selection combining.
func (rs RuleSet) RewriteToFixpoint(fn *ir.Function) (rewrites int) {
	b := ir.NewBuilder()
	changed := true
	for changed {
		changed = false
		for _, bb := range fn.Blocks() {
			for _, op := range bb.Ops() {
				if op.Block() == nil {
					continue // erased earlier in this same sweep
				}
				if rs.Rewrite(b, op) {
					changed = true
					rewrites++
				}
			}
		}
	}
	return rewrites
}
