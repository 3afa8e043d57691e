package ir

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind identifies which of spec.md §7's fatal error categories an abort
// belongs to.
type Kind string

const (
	KindFrontEndInput        Kind = "front-end-input"
	KindIRInvariant          Kind = "ir-invariant"
	KindUnimplementedPattern Kind = "unimplemented-pattern"
	KindOverconstrainedSpill Kind = "overconstrained-spill"
)

// Fatal is the error type carried by every internal abort: an invariant
// violation, an unimplemented selection/emission pattern, or a spill
// the allocator's window cannot accommodate. No Fatal is ever recovered
// and continued past — the pass driver converts it straight to a
// non-zero process exit (spec.md §7: "No exceptions escape the pass
// driver").
type Fatal struct {
	Kind Kind
	Msg  string
	Op   string // textual form of the offending op, if any
	err  error  // wraps pkgerrors.WithStack for a printable call stack
}

func (f *Fatal) Error() string {
	if f.Op != "" {
		return fmt.Sprintf("%s: %s (at %s)", f.Kind, f.Msg, f.Op)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Msg)
}

func (f *Fatal) Unwrap() error { return f.err }

// Abort constructs and panics with a *Fatal carrying a captured stack
// trace (via github.com/pkg/errors), the way the teacher's SentraError
// carries a hand-rolled CallStack. The top of the pass driver recovers
// exactly this panic and turns it into a clean process exit; see
// internal/driver.Run.
func Abort(kind Kind, op *Op, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	f := &Fatal{Kind: kind, Msg: msg}
	if op != nil {
		f.Op = string(op.Opcode)
	}
	f.err = pkgerrors.WithStack(f)
	panic(f)
}

// StackTrace returns a printable call stack for a Fatal produced by
// Abort, or "" if f was constructed without one.
func StackTrace(f *Fatal) string {
	if f == nil || f.err == nil {
		return ""
	}
	return fmt.Sprintf("%+v", f.err)
}
