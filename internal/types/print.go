package types

import "strings"

// String renders a human-readable form of t.
func (in *Interner) String(t TypeID) string {
	tt, ok := in.Lookup(t)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
	case KindUnit:
		return "Unit"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindUint:
		return "Uint"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindRef:
		if tt.Mutable {
			return "&mut " + in.String(tt.Elem)
		}
		return "&" + in.String(tt.Elem)
	case KindParam:
		return tt.Name
	case KindNamed:
		info := in.Named(tt.Named)
		if info == nil {
			return "<unknown>"
		}
		if len(tt.Args) == 0 {
			return info.Name
		}
		var b strings.Builder
		b.WriteString(info.Name)
		b.WriteByte('<')
		for i, a := range tt.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(in.String(a))
		}
		b.WriteByte('>')
		return b.String()
	default:
		return "<invalid>"
	}
}

// MangledName builds the flat instance name for a monomorphized symbol,
// e.g. f + [Int] -> "f_Int".
func (in *Interner) MangledName(base string, args []TypeID) string {
	if len(args) == 0 {
		return base
	}
	var b strings.Builder
	b.WriteString(base)
	for _, a := range args {
		b.WriteByte('_')
		b.WriteString(mangleComponent(in.String(a)))
	}
	return b.String()
}

func mangleComponent(s string) string {
	r := strings.NewReplacer(
		"&mut ", "refmut_",
		"&", "ref_",
		"<", "_",
		">", "",
		", ", "_",
		" ", "_",
	)
	return r.Replace(s)
}
