package mir

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"starling/internal/types"
)

// DumpModule writes a human-readable representation of a MIR module,
// sorted by function name for stable output.
func DumpModule(w io.Writer, m *Module, typesIn *types.Interner) {
	if w == nil || m == nil {
		return
	}
	funcs := make([]*Func, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if f != nil {
			funcs = append(funcs, f)
		}
	}
	slices.SortStableFunc(funcs, func(a, b *Func) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return int(a.ID) - int(b.ID)
	})
	fmt.Fprintf(w, "funcs=%d\n", len(funcs))
	for _, f := range funcs {
		DumpFunc(w, f, typesIn)
	}
}

// DumpFunc writes one function body.
func DumpFunc(w io.Writer, f *Func, typesIn *types.Interner) {
	if w == nil || f == nil {
		return
	}
	fmt.Fprintf(w, "fn %s -> %s entry=bb%d\n", f.Name, typeStr(typesIn, f.Result), f.Entry)
	for i, local := range f.Locals {
		flags := ""
		if local.Mutable {
			flags = " mut"
		}
		if i < f.ParamCount {
			flags += " param"
		}
		fmt.Fprintf(w, "  _%d: %s%s // %s\n", i, typeStr(typesIn, local.Type), flags, local.Name)
	}
	for i := range f.Blocks {
		b := &f.Blocks[i]
		fmt.Fprintf(w, "  bb%d:\n", b.ID)
		for _, ins := range b.Instrs {
			fmt.Fprintf(w, "    %s\n", instrStr(&ins))
		}
		fmt.Fprintf(w, "    %s\n", termStr(&b.Term))
	}
}

func typeStr(in *types.Interner, t types.TypeID) string {
	if in == nil {
		return fmt.Sprintf("ty%d", t)
	}
	return in.String(t)
}

func instrStr(ins *Instr) string {
	switch ins.Kind {
	case InstrAssign:
		return fmt.Sprintf("%s = %s", placeStr(ins.Assign.Dst), rvalueStr(&ins.Assign.Src))
	case InstrNop:
		return "nop"
	default:
		return "<?>"
	}
}

func placeStr(p Place) string {
	var b strings.Builder
	fmt.Fprintf(&b, "_%d", p.Local)
	for _, proj := range p.Proj {
		switch proj.Kind {
		case PlaceProjField:
			fmt.Fprintf(&b, ".%s", proj.FieldName)
		case PlaceProjIndex:
			fmt.Fprintf(&b, "[_%d]", proj.IndexLocal)
		case PlaceProjDeref:
			b.WriteString(".*")
		}
	}
	return b.String()
}

func operandStr(op Operand) string {
	switch op.Kind {
	case OperandConst:
		return constStr(op.Const)
	case OperandCopy:
		return "copy " + placeStr(op.Place)
	case OperandMove:
		return "move " + placeStr(op.Place)
	default:
		return "<?>"
	}
}

func constStr(c Const) string {
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("const %d", c.IntValue)
	case ConstUint:
		return fmt.Sprintf("const %du", c.UintValue)
	case ConstFloat:
		return fmt.Sprintf("const %g", c.FloatValue)
	case ConstBool:
		return fmt.Sprintf("const %t", c.BoolValue)
	case ConstString:
		return fmt.Sprintf("const %q", c.StringValue)
	case ConstUnit:
		return "const ()"
	case ConstFn:
		return "fn " + c.StringValue
	default:
		return "<?>"
	}
}

func rvalueStr(rv *RValue) string {
	switch rv.Kind {
	case RValueUse:
		return operandStr(rv.Use)
	case RValueUnary:
		return fmt.Sprintf("un(%d) %s", rv.Unary.Op, operandStr(rv.Unary.Operand))
	case RValueBinary:
		return fmt.Sprintf("bin(%d) %s, %s", rv.Binary.Op, operandStr(rv.Binary.Left), operandStr(rv.Binary.Right))
	case RValueAggregate:
		var b strings.Builder
		b.WriteString("aggregate {")
		for i, f := range rv.Aggregate.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", f.Name, operandStr(f.Value))
		}
		b.WriteString("}")
		return b.String()
	case RValueCast:
		return fmt.Sprintf("cast %s", operandStr(rv.Cast.Value))
	default:
		return "<?>"
	}
}

func termStr(t *Terminator) string {
	switch t.Kind {
	case TermNone:
		return "<unterminated>"
	case TermGoto:
		return fmt.Sprintf("goto bb%d", t.Goto.Target)
	case TermSwitchInt:
		var b strings.Builder
		fmt.Fprintf(&b, "switchInt(%s) [", operandStr(t.SwitchInt.Disc))
		for i, c := range t.SwitchInt.Cases {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%d: bb%d", c.Value, c.Target)
		}
		fmt.Fprintf(&b, "] otherwise bb%d", t.SwitchInt.Default)
		return b.String()
	case TermReturn:
		if t.Return.HasValue {
			return "return " + operandStr(t.Return.Value)
		}
		return "return"
	case TermCall:
		var b strings.Builder
		if t.Call.HasDst {
			fmt.Fprintf(&b, "%s = ", placeStr(t.Call.Dst))
		}
		name := t.Call.Callee.Name
		if name == "" {
			name = "<dispatch>." + t.Call.Callee.Method
		}
		fmt.Fprintf(&b, "call %s(", name)
		for i, a := range t.Call.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(operandStr(a))
		}
		fmt.Fprintf(&b, ") -> bb%d", t.Call.Next)
		return b.String()
	case TermUnreachable:
		return "unreachable"
	default:
		return "<?>"
	}
}
