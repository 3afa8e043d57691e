// Package lower translates an astin.Program into an ir.Module: one
// ir.Function per astin.Function, with structured If/While statements
// becoming structured If/While ops (internal/passes.FlattenCFG does the
// structured-to-flat step later) and locals materializing as allocas
// that internal/passes.Mem2Reg promotes back out of memory once the
// module is in SSA form.
package lower

import (
	"fmt"

	"aotc/internal/astin"
	"aotc/internal/ir"
)

// scope maps a local variable name to the alloca holding it.
type scope struct {
	vars   map[string]*ir.Op
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]*ir.Op), parent: parent}
}

func (s *scope) lookup(name string) (*ir.Op, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if op, ok := cur.vars[name]; ok {
			return op, true
		}
	}
	return nil, false
}

// Lower translates prog into a fresh ir.Module.
func Lower(prog *astin.Program) (*ir.Module, error) {
	m := ir.NewModule()
	for _, g := range prog.Globals {
		m.NewGlobal(g.Name, g.Size*typeSize(lowerType(g.ElemType)), lowerType(g.ElemType), g.Init, g.AllZero)
	}
	for _, f := range prog.Functions {
		fn := m.NewFunction(f.Name, len(f.Params), lowerType(f.RetType))
		if !f.Pure {
			fn.SetAttr(ir.ImpureAttr{})
		}
		if err := lowerFunction(fn, f); err != nil {
			return nil, fmt.Errorf("lowering %s: %w", f.Name, err)
		}
	}
	return m, nil
}

func lowerType(t astin.Type) ir.Type {
	switch t {
	case astin.TypeI32:
		return ir.I32
	case astin.TypeI64:
		return ir.I64
	case astin.TypeF32:
		return ir.F32
	default:
		return ir.Void
	}
}

func lowerFunction(fn *ir.Function, f *astin.Function) error {
	b := ir.NewBuilder()
	entry := fn.Body.First()
	b.SetToBlockEnd(entry)

	sc := newScope(nil)
	for i, p := range f.Params {
		arg := b.GetArg(i, lowerType(p.Type))
		slot := b.Alloca(typeSize(lowerType(p.Type)))
		b.Store(slot, arg)
		sc.vars[p.Name] = slot
	}
	return lowerStmts(b, sc, f.Body)
}

func typeSize(t ir.Type) int {
	if s := t.Size(); s > 0 {
		return s
	}
	return 4
}

func lowerStmts(b *ir.Builder, sc *scope, stmts []astin.Stmt) error {
	for _, s := range stmts {
		if err := lowerStmt(b, sc, s); err != nil {
			return err
		}
	}
	return nil
}

func lowerStmt(b *ir.Builder, sc *scope, stmt astin.Stmt) error {
	switch s := stmt.(type) {
	case *astin.VarDecl:
		slot := b.Alloca(typeSize(lowerType(s.Type)))
		sc.vars[s.Name] = slot
		if s.Init != nil {
			v, err := lowerExpr(b, sc, s.Init)
			if err != nil {
				return err
			}
			b.Store(slot, v)
		}
		return nil
	case *astin.Assign:
		slot, ok := sc.lookup(s.Name)
		if !ok {
			return fmt.Errorf("assignment to undeclared variable %q", s.Name)
		}
		v, err := lowerExpr(b, sc, s.Value)
		if err != nil {
			return err
		}
		b.Store(slot, v)
		return nil
	case *astin.ExprStmt:
		_, err := lowerExpr(b, sc, s.Value)
		return err
	case *astin.Return:
		if s.Value == nil {
			b.Return(nil)
			return nil
		}
		v, err := lowerExpr(b, sc, s.Value)
		if err != nil {
			return err
		}
		b.Return(v)
		return nil
	case *astin.If:
		return lowerIf(b, sc, s)
	case *astin.While:
		return lowerWhile(b, sc, s)
	default:
		return fmt.Errorf("unhandled statement type %T", stmt)
	}
}

func lowerIf(b *ir.Builder, sc *scope, s *astin.If) error {
	cond, err := lowerExpr(b, sc, s.Cond)
	if err != nil {
		return err
	}
	numRegions := 1
	if len(s.Else) > 0 {
		numRegions = 2
	}
	op := b.CreateRegions(ir.OpIf, ir.Void, []*ir.Op{cond}, numRegions)

	thenB := ir.NewBuilder().SetToRegionStart(op.Regions[0])
	if err := lowerStmts(thenB, newScope(sc), s.Then); err != nil {
		return err
	}
	if numRegions == 2 {
		elseB := ir.NewBuilder().SetToRegionStart(op.Regions[1])
		if err := lowerStmts(elseB, newScope(sc), s.Else); err != nil {
			return err
		}
	}
	return nil
}

func lowerWhile(b *ir.Builder, sc *scope, s *astin.While) error {
	op := b.CreateRegions(ir.OpWhile, ir.Void, nil, 2)

	beforeB := ir.NewBuilder().SetToRegionStart(op.Regions[0])
	cond, err := lowerExpr(beforeB, sc, s.Cond)
	if err != nil {
		return err
	}
	beforeB.Create(ir.OpProceed, ir.Void, []*ir.Op{cond})

	afterB := ir.NewBuilder().SetToRegionStart(op.Regions[1])
	return lowerStmts(afterB, newScope(sc), s.Body)
}

func lowerExpr(b *ir.Builder, sc *scope, expr astin.Expr) (*ir.Op, error) {
	switch e := expr.(type) {
	case *astin.IntLit:
		return b.IntConst(e.Value), nil
	case *astin.FloatLit:
		return b.FloatConst(e.Value), nil
	case *astin.Ident:
		slot, ok := sc.lookup(e.Name)
		if !ok {
			return nil, fmt.Errorf("reference to undeclared variable %q", e.Name)
		}
		return b.Load(slot, inferAllocaType(slot)), nil
	case *astin.BinOp:
		x, err := lowerExpr(b, sc, e.Left)
		if err != nil {
			return nil, err
		}
		y, err := lowerExpr(b, sc, e.Right)
		if err != nil {
			return nil, err
		}
		return b.BinOp(ir.Opcode(e.Op), x, y), nil
	case *astin.UnaryOp:
		x, err := lowerExpr(b, sc, e.Operand)
		if err != nil {
			return nil, err
		}
		if e.Op == "not" {
			return b.Create(ir.OpNot, x.Result, []*ir.Op{x}), nil
		}
		return b.Neg(x), nil
	case *astin.Call:
		args := make([]*ir.Op, len(e.Args))
		for i, a := range e.Args {
			v, err := lowerExpr(b, sc, a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return b.Call(e.Callee, args, ir.I32), nil
	default:
		return nil, fmt.Errorf("unhandled expression type %T", expr)
	}
}

// inferAllocaType finds the type a local's alloca was sized for by
// inspecting the most recent store to it; Mem2Reg does the same lookup
// (allocaValueType) once the alloca is promoted, so a freshly lowered
// load before any store defaults consistently to I32.
func inferAllocaType(slot *ir.Op) ir.Type {
	for _, u := range slot.Uses() {
		if u.Opcode == ir.OpStore {
			return u.Operands[1].Result
		}
	}
	return ir.I32
}
