package ast

import (
	"fmt"

	"starling/internal/diag"
	"starling/internal/types"
)

// ValidateImpl checks that an impl block naming a trait provides every
// required method with a matching name and signature (with Self replaced
// by the impl target). Violations are user diagnostics, not ICEs.
func ValidateImpl(m *Module, im *ImplBlock, in *types.Interner, r diag.Reporter) bool {
	if im == nil || im.Trait == NoTraitID {
		return true
	}
	tr := m.Trait(im.Trait)
	if tr == nil {
		diag.ReportError(r, diag.GenTraitNotImplemented, im.Span,
			fmt.Sprintf("impl names unknown trait #%d", im.Trait)).Emit()
		return false
	}
	ok := true
	for i := range tr.Methods {
		sig := &tr.Methods[i]
		impl := im.Method(sig.Name)
		if impl == nil {
			diag.ReportError(r, diag.GenImplMissingMethod, im.Span,
				fmt.Sprintf("impl of trait %q for %s is missing method %q",
					tr.Name, in.String(im.Target), sig.Name)).
				WithNote(sig.Span, "required by this trait method").
				Emit()
			ok = false
			continue
		}
		if !methodMatches(sig, impl, im.Target, in) {
			diag.ReportError(r, diag.GenImplSignatureMismatch, impl.Span,
				fmt.Sprintf("method %q does not match the signature required by trait %q",
					sig.Name, tr.Name)).
				WithNote(sig.Span, "required signature declared here").
				Emit()
			ok = false
		}
	}
	return ok
}

func methodMatches(sig *MethodSig, impl *Func, target types.TypeID, in *types.Interner) bool {
	if len(sig.Params) != len(impl.Params) {
		return false
	}
	for i, want := range sig.Params {
		if substSelf(in, want, target) != impl.Params[i].Type {
			return false
		}
	}
	return substSelf(in, sig.Result, target) == impl.Result
}

// substSelf replaces the Self placeholder in t by target.
func substSelf(in *types.Interner, t types.TypeID, target types.TypeID) types.TypeID {
	tt, ok := in.Lookup(t)
	if !ok {
		return t
	}
	switch tt.Kind {
	case types.KindParam:
		if tt.Ordinal == SelfOrdinal {
			return target
		}
		return t
	case types.KindRef:
		elem := substSelf(in, tt.Elem, target)
		if elem == tt.Elem {
			return t
		}
		return in.MakeRef(elem, tt.Mutable)
	case types.KindNamed:
		if len(tt.Args) == 0 {
			return t
		}
		changed := false
		args := make([]types.TypeID, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = substSelf(in, a, target)
			if args[i] != a {
				changed = true
			}
		}
		if !changed {
			return t
		}
		return in.MakeNamed(tt.Named, args)
	default:
		return t
	}
}
