package mono

import (
	"starling/internal/mir"
	"starling/internal/types"
)

// cloneFunc deep-copies a function body so instances can be rewritten
// without touching the generic template.
func cloneFunc(f *mir.Func) *mir.Func {
	if f == nil {
		return nil
	}
	out := &mir.Func{
		ID:             f.ID,
		Name:           f.Name,
		Span:           f.Span,
		Result:         f.Result,
		TypeArgs:       append([]types.TypeID(nil), f.TypeArgs...),
		TypeParamNames: append([]string(nil), f.TypeParamNames...),
		Params:         append([]mir.Param(nil), f.Params...),
		ParamCount:     f.ParamCount,
		Locals:         append([]mir.Local(nil), f.Locals...),
		Entry:          f.Entry,
	}
	out.Blocks = make([]mir.Block, len(f.Blocks))
	for i := range f.Blocks {
		out.Blocks[i] = cloneBlock(&f.Blocks[i])
	}
	return out
}

func cloneBlock(b *mir.Block) mir.Block {
	out := mir.Block{ID: b.ID, Term: b.Term}
	out.Instrs = make([]mir.Instr, len(b.Instrs))
	for i := range b.Instrs {
		out.Instrs[i] = cloneInstr(&b.Instrs[i])
	}
	switch b.Term.Kind {
	case mir.TermSwitchInt:
		out.Term.SwitchInt.Cases = append([]mir.SwitchIntCase(nil), b.Term.SwitchInt.Cases...)
	case mir.TermCall:
		out.Term.Call.Args = append([]mir.Operand(nil), b.Term.Call.Args...)
		out.Term.Call.Callee.TypeArgs = append([]types.TypeID(nil), b.Term.Call.Callee.TypeArgs...)
		out.Term.Call.Dst.Proj = append([]mir.PlaceProj(nil), b.Term.Call.Dst.Proj...)
	}
	return out
}

func cloneInstr(ins *mir.Instr) mir.Instr {
	out := *ins
	if ins.Kind != mir.InstrAssign {
		return out
	}
	out.Assign.Dst.Proj = append([]mir.PlaceProj(nil), ins.Assign.Dst.Proj...)
	if ins.Assign.Src.Kind == mir.RValueAggregate {
		out.Assign.Src.Aggregate.Fields = append([]mir.AggregateField(nil), ins.Assign.Src.Aggregate.Fields...)
	}
	return out
}

// substFunc rewrites every type mention in f through the argument tuple.
// The caller owns f; templates are cloned before this runs.
func substFunc(in *types.Interner, f *mir.Func, args []types.TypeID) error {
	var err error
	sub := func(t types.TypeID) types.TypeID {
		if err != nil || t == types.NoTypeID {
			return t
		}
		var s types.TypeID
		s, err = in.Substitute(t, args)
		if err != nil {
			return t
		}
		return s
	}

	f.Result = sub(f.Result)
	for i := range f.Locals {
		f.Locals[i].Type = sub(f.Locals[i].Type)
	}
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for ii := range b.Instrs {
			substInstr(&b.Instrs[ii], sub)
		}
		substTerm(&b.Term, sub)
	}
	return err
}

func substInstr(ins *mir.Instr, sub func(types.TypeID) types.TypeID) {
	if ins.Kind != mir.InstrAssign {
		return
	}
	src := &ins.Assign.Src
	switch src.Kind {
	case mir.RValueUse:
		substOperand(&src.Use, sub)
	case mir.RValueUnary:
		substOperand(&src.Unary.Operand, sub)
	case mir.RValueBinary:
		substOperand(&src.Binary.Left, sub)
		substOperand(&src.Binary.Right, sub)
	case mir.RValueAggregate:
		src.Aggregate.Type = sub(src.Aggregate.Type)
		for i := range src.Aggregate.Fields {
			substOperand(&src.Aggregate.Fields[i].Value, sub)
		}
	case mir.RValueCast:
		substOperand(&src.Cast.Value, sub)
		src.Cast.TargetTy = sub(src.Cast.TargetTy)
	}
}

func substTerm(t *mir.Terminator, sub func(types.TypeID) types.TypeID) {
	switch t.Kind {
	case mir.TermSwitchInt:
		substOperand(&t.SwitchInt.Disc, sub)
	case mir.TermReturn:
		if t.Return.HasValue {
			substOperand(&t.Return.Value, sub)
		}
	case mir.TermCall:
		for i := range t.Call.Args {
			substOperand(&t.Call.Args[i], sub)
		}
		t.Call.Callee.RecvType = sub(t.Call.Callee.RecvType)
		for i, a := range t.Call.Callee.TypeArgs {
			t.Call.Callee.TypeArgs[i] = sub(a)
		}
	}
}

func substOperand(op *mir.Operand, sub func(types.TypeID) types.TypeID) {
	op.Type = sub(op.Type)
	if op.Kind == mir.OperandConst {
		op.Const.Type = sub(op.Const.Type)
	}
}
