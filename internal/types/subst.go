package types

import "fmt"

// ErrUnresolvedParam reports a generic parameter occurrence that survived
// substitution because the argument tuple was too short.
type ErrUnresolvedParam struct {
	Name    string
	Ordinal uint32
}

func (e *ErrUnresolvedParam) Error() string {
	return fmt.Sprintf("unresolved generic parameter %q (ordinal %d)", e.Name, e.Ordinal)
}

// Substitute replaces every KindParam occurrence in t by its positional
// argument. Returns ErrUnresolvedParam when an ordinal is out of range.
func (in *Interner) Substitute(t TypeID, args []TypeID) (TypeID, error) {
	tt, ok := in.Lookup(t)
	if !ok {
		return t, nil
	}
	switch tt.Kind {
	case KindParam:
		if int(tt.Ordinal) >= len(args) {
			return NoTypeID, &ErrUnresolvedParam{Name: tt.Name, Ordinal: tt.Ordinal}
		}
		return args[tt.Ordinal], nil
	case KindRef:
		elem, err := in.Substitute(tt.Elem, args)
		if err != nil {
			return NoTypeID, err
		}
		if elem == tt.Elem {
			return t, nil
		}
		return in.MakeRef(elem, tt.Mutable), nil
	case KindNamed:
		if len(tt.Args) == 0 {
			return t, nil
		}
		changed := false
		newArgs := make([]TypeID, len(tt.Args))
		for i, a := range tt.Args {
			sub, err := in.Substitute(a, args)
			if err != nil {
				return NoTypeID, err
			}
			newArgs[i] = sub
			if sub != a {
				changed = true
			}
		}
		if !changed {
			return t, nil
		}
		return in.MakeNamed(tt.Named, newArgs), nil
	default:
		return t, nil
	}
}

// ContainsParams reports whether t still mentions a generic parameter.
func (in *Interner) ContainsParams(t TypeID) bool {
	tt, ok := in.Lookup(t)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindParam:
		return true
	case KindRef:
		return in.ContainsParams(tt.Elem)
	case KindNamed:
		for _, a := range tt.Args {
			if in.ContainsParams(a) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IsCopyOnPass reports whether passing a value of t by owned value leaves
// the source binding usable. Primitives and references copy; named types
// copy only when their declaration is marked CopyOnPass.
func (in *Interner) IsCopyOnPass(t TypeID) bool {
	tt, ok := in.Lookup(t)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindBool, KindInt, KindUint, KindFloat, KindUnit, KindRef:
		return true
	case KindNamed:
		info := in.Named(tt.Named)
		return info != nil && info.CopyOnPass
	default:
		return false
	}
}

// IsIntegerLike reports whether t can serve as a switch discriminant.
func (in *Interner) IsIntegerLike(t TypeID) bool {
	tt, ok := in.Lookup(t)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindInt, KindUint, KindBool:
		return true
	case KindNamed:
		info := in.Named(tt.Named)
		return info != nil && info.Kind == NamedEnum
	default:
		return false
	}
}
