package mir

import (
	"errors"
	"fmt"
)

// Validate checks MIR module invariants. A violation signals a compiler
// bug, so it comes back as a plain error and must never be reported
// through the user diagnostic channel.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := ValidateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateFunc checks per-function invariants: every block carries exactly
// one terminator, every successor id is in range, the entry block exists,
// and every referenced local exists.
func ValidateFunc(f *Func) error {
	if f == nil {
		return nil
	}
	var errs []error
	if err := validateBlocksTerminated(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateBlockTargets(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateLocalIDs(f); err != nil {
		errs = append(errs, err)
	}
	if f.Entry < 0 || int(f.Entry) >= len(f.Blocks) {
		errs = append(errs, fmt.Errorf("entry block bb%d out of range", f.Entry))
	}
	return errors.Join(errs...)
}

func validateBlocksTerminated(f *Func) error {
	var errs []error
	for i := range f.Blocks {
		if f.Blocks[i].Term.Kind == TermNone {
			errs = append(errs, fmt.Errorf("bb%d: unterminated block", i))
		}
	}
	return errors.Join(errs...)
}

func validateBlockTargets(f *Func) error {
	var errs []error
	var succ []BlockID
	for i := range f.Blocks {
		succ = f.Blocks[i].Term.Successors(succ[:0])
		for _, t := range succ {
			if t < 0 || int(t) >= len(f.Blocks) {
				errs = append(errs, fmt.Errorf("bb%d: dangling successor bb%d", i, t))
			}
		}
	}
	return errors.Join(errs...)
}

func validateLocalIDs(f *Func) error {
	var errs []error
	checkPlace := func(bb int, p Place) {
		if !p.IsValid() {
			return
		}
		if int(p.Local) >= len(f.Locals) {
			errs = append(errs, fmt.Errorf("bb%d: place references unknown local _%d", bb, p.Local))
		}
		for _, proj := range p.Proj {
			if proj.Kind == PlaceProjIndex && int(proj.IndexLocal) >= len(f.Locals) {
				errs = append(errs, fmt.Errorf("bb%d: index projection references unknown local _%d", bb, proj.IndexLocal))
			}
		}
	}
	checkOperand := func(bb int, op Operand) {
		if op.Kind == OperandCopy || op.Kind == OperandMove {
			checkPlace(bb, op.Place)
		}
	}
	for i := range f.Blocks {
		b := &f.Blocks[i]
		for _, ins := range b.Instrs {
			if ins.Kind != InstrAssign {
				continue
			}
			checkPlace(i, ins.Assign.Dst)
			forEachOperand(&ins.Assign.Src, func(op *Operand) {
				checkOperand(i, *op)
			})
		}
		switch b.Term.Kind {
		case TermSwitchInt:
			checkOperand(i, b.Term.SwitchInt.Disc)
		case TermReturn:
			if b.Term.Return.HasValue {
				checkOperand(i, b.Term.Return.Value)
			}
		case TermCall:
			for _, a := range b.Term.Call.Args {
				checkOperand(i, a)
			}
			if b.Term.Call.HasDst {
				checkPlace(i, b.Term.Call.Dst)
			}
		}
	}
	return errors.Join(errs...)
}

// forEachOperand visits every operand of an rvalue in place.
func forEachOperand(rv *RValue, visit func(*Operand)) {
	switch rv.Kind {
	case RValueUse:
		visit(&rv.Use)
	case RValueUnary:
		visit(&rv.Unary.Operand)
	case RValueBinary:
		visit(&rv.Binary.Left)
		visit(&rv.Binary.Right)
	case RValueAggregate:
		for i := range rv.Aggregate.Fields {
			visit(&rv.Aggregate.Fields[i].Value)
		}
	case RValueCast:
		visit(&rv.Cast.Value)
	}
}
