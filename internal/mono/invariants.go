package mono

import (
	"errors"
	"fmt"

	"starling/internal/mir"
	"starling/internal/types"
)

// CheckConcrete verifies no type parameter survived monomorphization.
// A failure here is an internal error, never a user diagnostic.
func CheckConcrete(m *mir.Module, typesIn *types.Interner) error {
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if f.IsGeneric() {
			errs = append(errs, fmt.Errorf("mono: function %s is still generic", f.Name))
			continue
		}
		var bad types.TypeID
		forEachType(f, func(t types.TypeID) {
			if bad == types.NoTypeID && t != types.NoTypeID && typesIn.ContainsParams(t) {
				bad = t
			}
		})
		if bad != types.NoTypeID {
			errs = append(errs, fmt.Errorf("mono: type parameter leaked into %s via %s", f.Name, typesIn.String(bad)))
		}
		for bi := range f.Blocks {
			term := &f.Blocks[bi].Term
			if term.Kind != mir.TermCall {
				continue
			}
			if term.Call.Callee.IsPendingDispatch() {
				errs = append(errs, fmt.Errorf("mono: unresolved method dispatch %q in %s", term.Call.Callee.Method, f.Name))
			}
			if len(term.Call.Callee.TypeArgs) > 0 {
				errs = append(errs, fmt.Errorf("mono: generic call to %s survived in %s", term.Call.Callee.Name, f.Name))
			}
		}
	}
	return errors.Join(errs...)
}

// forEachType visits every type mention in a function body.
func forEachType(f *mir.Func, visit func(types.TypeID)) {
	visit(f.Result)
	for i := range f.Locals {
		visit(f.Locals[i].Type)
	}
	op := func(o *mir.Operand) {
		visit(o.Type)
		if o.Kind == mir.OperandConst {
			visit(o.Const.Type)
		}
	}
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for ii := range b.Instrs {
			ins := &b.Instrs[ii]
			if ins.Kind != mir.InstrAssign {
				continue
			}
			src := &ins.Assign.Src
			switch src.Kind {
			case mir.RValueUse:
				op(&src.Use)
			case mir.RValueUnary:
				op(&src.Unary.Operand)
			case mir.RValueBinary:
				op(&src.Binary.Left)
				op(&src.Binary.Right)
			case mir.RValueAggregate:
				visit(src.Aggregate.Type)
				for i := range src.Aggregate.Fields {
					op(&src.Aggregate.Fields[i].Value)
				}
			case mir.RValueCast:
				op(&src.Cast.Value)
				visit(src.Cast.TargetTy)
			}
		}
		switch b.Term.Kind {
		case mir.TermSwitchInt:
			op(&b.Term.SwitchInt.Disc)
		case mir.TermReturn:
			if b.Term.Return.HasValue {
				op(&b.Term.Return.Value)
			}
		case mir.TermCall:
			for i := range b.Term.Call.Args {
				op(&b.Term.Call.Args[i])
			}
			visit(b.Term.Call.Callee.RecvType)
		}
	}
}
