package opt

import (
	"starling/internal/mir"
	"starling/internal/types"
)

// Inline splices small concrete callees into their callers. A call site
// is inlined when the callee body is at most threshold instructions,
// is not (mutually) recursive with the caller and is known to the
// module. Runtime intrinsics have no body and always stay as calls.
func Inline(f *mir.Func, m *mir.Module, threshold int) {
	if f == nil || m == nil {
		return
	}
	// Snapshot the block count: blocks spliced by this pass are not
	// reconsidered, so one call per site per pass.
	limit := len(f.Blocks)
	for bi := 0; bi < limit; bi++ {
		term := &f.Blocks[bi].Term
		if term.Kind != mir.TermCall {
			continue
		}
		callee := m.ByName(term.Call.Callee.Name)
		if !inlinable(f, callee, threshold) {
			continue
		}
		splice(f, bi, callee)
	}
}

func inlinable(caller, callee *mir.Func, threshold int) bool {
	if callee == nil || callee.Name == caller.Name {
		return false
	}
	if instrCount(callee) > threshold {
		return false
	}
	// Mutual recursion through one level keeps both bodies out.
	for bi := range callee.Blocks {
		t := &callee.Blocks[bi].Term
		if t.Kind == mir.TermCall && (t.Call.Callee.Name == caller.Name || t.Call.Callee.Name == callee.Name) {
			return false
		}
	}
	return true
}

func instrCount(f *mir.Func) int {
	n := 0
	for i := range f.Blocks {
		n += len(f.Blocks[i].Instrs)
	}
	return n
}

// splice replaces the call terminator of caller block bi with the
// callee's body: arguments bind to fresh parameter locals, the callee
// entry becomes the fallthrough, and every callee return turns into the
// destination store plus a goto to the call's continuation.
func splice(f *mir.Func, bi int, callee *mir.Func) {
	call := f.Blocks[bi].Term.Call
	localOff := mir.LocalID(len(f.Locals))   //nolint:gosec // G115: arena-sized
	blockOff := mir.BlockID(len(f.Blocks))   //nolint:gosec // G115: arena-sized
	f.Locals = append(f.Locals, callee.Locals...)

	// Bind arguments in the calling block, then fall into the body.
	for i, p := range callee.Params {
		if i >= len(call.Args) {
			break
		}
		f.Blocks[bi].Instrs = append(f.Blocks[bi].Instrs, mir.Instr{
			Kind: mir.InstrAssign,
			Assign: mir.AssignInstr{
				Dst: mir.Place{Local: p.Local + localOff},
				Src: mir.RValue{Kind: mir.RValueUse, Use: call.Args[i]},
			},
		})
	}
	f.Blocks[bi].Term = mir.Terminator{
		Kind: mir.TermGoto,
		Goto: mir.GotoTerm{Target: callee.Entry + blockOff},
	}

	for ci := range callee.Blocks {
		nb := copyBlockShifted(&callee.Blocks[ci], localOff, blockOff)
		if nb.Term.Kind == mir.TermReturn {
			ret := nb.Term.Return
			if call.HasDst {
				src := mir.RValue{Kind: mir.RValueUse}
				if ret.HasValue {
					src.Use = ret.Value
				} else {
					src.Use = mir.ConstOperand(mir.Const{
						Kind: mir.ConstUnit,
						Type: dstType(f, call.Dst),
					})
				}
				nb.Instrs = append(nb.Instrs, mir.Instr{
					Kind:   mir.InstrAssign,
					Assign: mir.AssignInstr{Dst: call.Dst, Src: src},
				})
			}
			nb.Term = mir.Terminator{Kind: mir.TermGoto, Goto: mir.GotoTerm{Target: call.Next}}
		}
		f.Blocks = append(f.Blocks, nb)
	}
}

func dstType(f *mir.Func, dst mir.Place) types.TypeID {
	if len(dst.Proj) == 0 {
		return f.LocalType(dst.Local)
	}
	return types.NoTypeID
}

// copyBlockShifted deep-copies a callee block, shifting every local and
// block reference into the caller's arenas.
func copyBlockShifted(b *mir.Block, localOff mir.LocalID, blockOff mir.BlockID) mir.Block {
	shiftPlace := func(p mir.Place) mir.Place {
		out := mir.Place{Local: p.Local + localOff, Proj: append([]mir.PlaceProj(nil), p.Proj...)}
		for i := range out.Proj {
			if out.Proj[i].Kind == mir.PlaceProjIndex {
				out.Proj[i].IndexLocal += localOff
			}
		}
		return out
	}
	shiftOp := func(op mir.Operand) mir.Operand {
		if op.Kind == mir.OperandCopy || op.Kind == mir.OperandMove {
			op.Place = shiftPlace(op.Place)
		}
		return op
	}

	out := mir.Block{ID: b.ID + blockOff, Term: b.Term}
	out.Instrs = make([]mir.Instr, len(b.Instrs))
	for i := range b.Instrs {
		ins := b.Instrs[i]
		if ins.Kind == mir.InstrAssign {
			ins.Assign.Dst = shiftPlace(ins.Assign.Dst)
			src := &ins.Assign.Src
			switch src.Kind {
			case mir.RValueUse:
				src.Use = shiftOp(src.Use)
			case mir.RValueUnary:
				src.Unary.Operand = shiftOp(src.Unary.Operand)
			case mir.RValueBinary:
				src.Binary.Left = shiftOp(src.Binary.Left)
				src.Binary.Right = shiftOp(src.Binary.Right)
			case mir.RValueAggregate:
				src.Aggregate.Fields = append([]mir.AggregateField(nil), src.Aggregate.Fields...)
				for fi := range src.Aggregate.Fields {
					src.Aggregate.Fields[fi].Value = shiftOp(src.Aggregate.Fields[fi].Value)
				}
			case mir.RValueCast:
				src.Cast.Value = shiftOp(src.Cast.Value)
			}
		}
		out.Instrs[i] = ins
	}

	shiftBlock := func(id mir.BlockID) mir.BlockID { return id + blockOff }
	switch out.Term.Kind {
	case mir.TermGoto:
		out.Term.Goto.Target = shiftBlock(out.Term.Goto.Target)
	case mir.TermSwitchInt:
		out.Term.SwitchInt.Disc = shiftOp(out.Term.SwitchInt.Disc)
		out.Term.SwitchInt.Cases = append([]mir.SwitchIntCase(nil), out.Term.SwitchInt.Cases...)
		for i := range out.Term.SwitchInt.Cases {
			out.Term.SwitchInt.Cases[i].Target = shiftBlock(out.Term.SwitchInt.Cases[i].Target)
		}
		out.Term.SwitchInt.Default = shiftBlock(out.Term.SwitchInt.Default)
	case mir.TermReturn:
		if out.Term.Return.HasValue {
			out.Term.Return.Value = shiftOp(out.Term.Return.Value)
		}
	case mir.TermCall:
		out.Term.Call.Args = append([]mir.Operand(nil), out.Term.Call.Args...)
		for i := range out.Term.Call.Args {
			out.Term.Call.Args[i] = shiftOp(out.Term.Call.Args[i])
		}
		if out.Term.Call.HasDst {
			out.Term.Call.Dst = shiftPlace(out.Term.Call.Dst)
		}
		out.Term.Call.Next = shiftBlock(out.Term.Call.Next)
	}
	return out
}
