package opt

import (
	"starling/internal/ast"
	"starling/internal/mir"
	"starling/internal/types"
)

// latticeKind tracks what is known about a local's value.
type latticeKind uint8

const (
	// latUnknown means no assignment has been seen yet.
	latUnknown latticeKind = iota
	// latConstant means every write stores the same constant.
	latConstant
	// latConflicting means at least one write is non-constant, or two
	// writes disagree. Conflicting locals are never folded.
	latConflicting
)

type latticeCell struct {
	kind  latticeKind
	value mir.Const
}

func (c *latticeCell) meetConst(v mir.Const) {
	switch c.kind {
	case latUnknown:
		c.kind = latConstant
		c.value = v
	case latConstant:
		if c.value != v {
			c.kind = latConflicting
		}
	}
}

func (c *latticeCell) poison() {
	c.kind = latConflicting
}

// PropagateConstants folds uses of locals whose every write stores one
// constant, then folds constant unary/binary operations and switches on
// constant discriminants. A local rewritten by a call or by a second,
// different value drops to conflicting and keeps its loads intact. m
// resolves callee parameter modes for call arguments; with a nil module
// every call-argument root is treated as rewritable.
func PropagateConstants(f *mir.Func, m *mir.Module) {
	if f == nil || len(f.Blocks) == 0 {
		return
	}
	for changed, rounds := true, 0; changed && rounds < 8; rounds++ {
		cells := collectCells(f, m)
		changed = rewriteUses(f, cells)
		if foldRValues(f) {
			changed = true
		}
		if foldSwitches(f) {
			changed = true
		}
	}
}

// collectCells runs the flow-insensitive write analysis. Parameters are
// conflicting from the start: their value arrives at call time.
func collectCells(f *mir.Func, m *mir.Module) []latticeCell {
	cells := make([]latticeCell, len(f.Locals))
	for _, p := range f.Params {
		if int(p.Local) < len(cells) {
			cells[p.Local].poison()
		}
	}
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for ii := range b.Instrs {
			ins := &b.Instrs[ii]
			if ins.Kind != mir.InstrAssign {
				continue
			}
			dst := ins.Assign.Dst
			if int(dst.Local) >= len(cells) {
				continue
			}
			if len(dst.Proj) > 0 {
				// A partial write invalidates the whole local.
				cells[dst.Local].poison()
				continue
			}
			src := &ins.Assign.Src
			if src.Kind == mir.RValueUse && src.Use.Kind == mir.OperandConst {
				cells[dst.Local].meetConst(src.Use.Const)
			} else {
				cells[dst.Local].poison()
			}
		}
		if b.Term.Kind != mir.TermCall {
			continue
		}
		call := &b.Term.Call
		callee := calleeFunc(m, call.Callee)
		for i := range call.Args {
			a := &call.Args[i]
			if a.Kind != mir.OperandCopy && a.Kind != mir.OperandMove {
				continue
			}
			// An argument bound to a reference parameter must stay an
			// addressable place, and a mutable borrow lets the callee
			// rewrite the binding behind the caller's back.
			if callee != nil && i < len(callee.Params) && callee.Params[i].Mode == ast.PassOwned {
				continue
			}
			if root := a.Place.Root(); int(root) < len(cells) {
				cells[root].poison()
			}
		}
		if call.HasDst {
			if root := call.Dst.Root(); int(root) < len(cells) {
				cells[root].poison()
			}
		}
	}
	return cells
}

// calleeFunc resolves a call target within m. Runtime hooks, pending
// method dispatch and a missing module all come back nil.
func calleeFunc(m *mir.Module, ref mir.FuncRef) *mir.Func {
	if m == nil || ref.Name == "" {
		return nil
	}
	return m.ByName(ref.Name)
}

// rewriteUses replaces loads of constant locals with their value.
func rewriteUses(f *mir.Func, cells []latticeCell) bool {
	changed := false
	rw := func(op *mir.Operand) {
		if op.Kind != mir.OperandCopy && op.Kind != mir.OperandMove {
			return
		}
		if len(op.Place.Proj) > 0 || int(op.Place.Local) >= len(cells) {
			return
		}
		cell := &cells[op.Place.Local]
		if cell.kind != latConstant {
			return
		}
		c := cell.value
		c.Type = op.Type
		*op = mir.ConstOperand(c)
		changed = true
	}
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for ii := range b.Instrs {
			forEachOperand(&b.Instrs[ii], rw)
		}
		switch b.Term.Kind {
		case mir.TermSwitchInt:
			rw(&b.Term.SwitchInt.Disc)
		case mir.TermReturn:
			if b.Term.Return.HasValue {
				rw(&b.Term.Return.Value)
			}
		case mir.TermCall:
			for i := range b.Term.Call.Args {
				rw(&b.Term.Call.Args[i])
			}
		}
	}
	return changed
}

// foldRValues evaluates unary and binary operations over constants.
func foldRValues(f *mir.Func) bool {
	changed := false
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for ii := range b.Instrs {
			ins := &b.Instrs[ii]
			if ins.Kind != mir.InstrAssign {
				continue
			}
			src := &ins.Assign.Src
			switch src.Kind {
			case mir.RValueUnary:
				op := src.Unary.Operand
				if op.Kind != mir.OperandConst {
					continue
				}
				if c, ok := foldUnary(src.Unary.Op, op.Const); ok {
					*src = mir.RValue{Kind: mir.RValueUse, Use: mir.ConstOperand(c)}
					changed = true
				}
			case mir.RValueBinary:
				l, r := src.Binary.Left, src.Binary.Right
				if l.Kind != mir.OperandConst || r.Kind != mir.OperandConst {
					continue
				}
				if c, ok := foldBinary(src.Binary.Op, l.Const, r.Const); ok {
					if c.Type == types.NoTypeID && len(ins.Assign.Dst.Proj) == 0 {
						// Comparisons lose the operand type; take the
						// destination's declared one.
						c.Type = f.LocalType(ins.Assign.Dst.Local)
					}
					*src = mir.RValue{Kind: mir.RValueUse, Use: mir.ConstOperand(c)}
					changed = true
				}
			}
		}
	}
	return changed
}

func foldUnary(op ast.UnaryOp, v mir.Const) (mir.Const, bool) {
	switch {
	case op == ast.UnaryNeg && v.Kind == mir.ConstInt:
		v.IntValue = -v.IntValue
		return v, true
	case op == ast.UnaryNeg && v.Kind == mir.ConstFloat:
		v.FloatValue = -v.FloatValue
		return v, true
	case op == ast.UnaryNot && v.Kind == mir.ConstBool:
		v.BoolValue = !v.BoolValue
		return v, true
	}
	return mir.Const{}, false
}

func foldBinary(op ast.BinaryOp, l, r mir.Const) (mir.Const, bool) {
	if l.Kind == mir.ConstBool && r.Kind == mir.ConstBool {
		switch op {
		case ast.BinaryAnd:
			return boolConst(l.BoolValue && r.BoolValue, l.Type), true
		case ast.BinaryOr:
			return boolConst(l.BoolValue || r.BoolValue, l.Type), true
		case ast.BinaryEq:
			return boolConst(l.BoolValue == r.BoolValue, l.Type), true
		case ast.BinaryNe:
			return boolConst(l.BoolValue != r.BoolValue, l.Type), true
		}
		return mir.Const{}, false
	}
	if l.Kind != mir.ConstInt || r.Kind != mir.ConstInt {
		return mir.Const{}, false
	}
	a, b := l.IntValue, r.IntValue
	switch op {
	case ast.BinaryAdd:
		return intConst(a+b, l.Type), true
	case ast.BinarySub:
		return intConst(a-b, l.Type), true
	case ast.BinaryMul:
		return intConst(a*b, l.Type), true
	case ast.BinaryDiv:
		if b == 0 {
			// Division by zero stays in the program and traps at runtime.
			return mir.Const{}, false
		}
		return intConst(a/b, l.Type), true
	case ast.BinaryRem:
		if b == 0 {
			return mir.Const{}, false
		}
		return intConst(a%b, l.Type), true
	case ast.BinaryEq:
		return boolConst(a == b, types.NoTypeID), true
	case ast.BinaryNe:
		return boolConst(a != b, types.NoTypeID), true
	case ast.BinaryLt:
		return boolConst(a < b, types.NoTypeID), true
	case ast.BinaryLe:
		return boolConst(a <= b, types.NoTypeID), true
	case ast.BinaryGt:
		return boolConst(a > b, types.NoTypeID), true
	case ast.BinaryGe:
		return boolConst(a >= b, types.NoTypeID), true
	}
	return mir.Const{}, false
}

func intConst(v int64, t types.TypeID) mir.Const {
	return mir.Const{Kind: mir.ConstInt, Type: t, IntValue: v}
}

func boolConst(v bool, t types.TypeID) mir.Const {
	return mir.Const{Kind: mir.ConstBool, Type: t, BoolValue: v}
}

// foldSwitches turns switches on constant discriminants into gotos.
func foldSwitches(f *mir.Func) bool {
	changed := false
	for bi := range f.Blocks {
		term := &f.Blocks[bi].Term
		if term.Kind != mir.TermSwitchInt || term.SwitchInt.Disc.Kind != mir.OperandConst {
			continue
		}
		c := term.SwitchInt.Disc.Const
		var disc int64
		switch c.Kind {
		case mir.ConstInt:
			disc = c.IntValue
		case mir.ConstBool:
			if c.BoolValue {
				disc = 1
			}
		default:
			continue
		}
		target := term.SwitchInt.Default
		for _, cs := range term.SwitchInt.Cases {
			if cs.Value == disc {
				target = cs.Target
				break
			}
		}
		*term = mir.Terminator{Kind: mir.TermGoto, Goto: mir.GotoTerm{Target: target}}
		changed = true
	}
	return changed
}

// forEachOperand visits the operands of one instruction.
func forEachOperand(ins *mir.Instr, visit func(*mir.Operand)) {
	if ins.Kind != mir.InstrAssign {
		return
	}
	src := &ins.Assign.Src
	switch src.Kind {
	case mir.RValueUse:
		visit(&src.Use)
	case mir.RValueUnary:
		visit(&src.Unary.Operand)
	case mir.RValueBinary:
		visit(&src.Binary.Left)
		visit(&src.Binary.Right)
	case mir.RValueAggregate:
		for i := range src.Aggregate.Fields {
			visit(&src.Aggregate.Fields[i].Value)
		}
	case mir.RValueCast:
		visit(&src.Cast.Value)
	}
}
