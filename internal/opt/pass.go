// Package opt holds the intra-function optimization passes that run
// after monomorphization. Every pass preserves observable behavior:
// calls are never reordered or deleted, only unreachable and provably
// dead straight-line work is.
package opt

import "starling/internal/mir"

// Options selects which passes run and tunes their thresholds.
type Options struct {
	ConstProp bool
	Inline    bool
	DCE       bool

	// InlineThreshold is the largest callee body, in instructions, that
	// still gets spliced into its caller.
	InlineThreshold int
}

// DefaultInlineThreshold matches the manifest default.
const DefaultInlineThreshold = 24

// Default enables every pass.
func Default() Options {
	return Options{
		ConstProp:       true,
		Inline:          true,
		DCE:             true,
		InlineThreshold: DefaultInlineThreshold,
	}
}

// Run applies the configured passes to one function. Inlining needs the
// whole module to find callee bodies and constant propagation reads
// callee parameter modes from it; with a nil m inlining is skipped and
// propagation treats every call argument as rewritable. Safe to call
// concurrently for distinct functions as long as no two goroutines
// share f; only Params metadata of other functions is read through m.
func Run(f *mir.Func, m *mir.Module, opt Options) {
	if f == nil {
		return
	}
	if opt.InlineThreshold <= 0 {
		opt.InlineThreshold = DefaultInlineThreshold
	}
	SimplifyCFG(f)
	if opt.Inline && m != nil {
		Inline(f, m, opt.InlineThreshold)
	}
	if opt.ConstProp {
		PropagateConstants(f, m)
	}
	// Folding switch discriminants exposes dead branches; clean up after.
	SimplifyCFG(f)
	if opt.DCE {
		EliminateDeadCode(f)
	}
}

// retarget rewrites every successor edge of t through fn.
func retarget(t *mir.Terminator, fn func(mir.BlockID) mir.BlockID) {
	switch t.Kind {
	case mir.TermGoto:
		t.Goto.Target = fn(t.Goto.Target)
	case mir.TermSwitchInt:
		for i := range t.SwitchInt.Cases {
			t.SwitchInt.Cases[i].Target = fn(t.SwitchInt.Cases[i].Target)
		}
		t.SwitchInt.Default = fn(t.SwitchInt.Default)
	case mir.TermCall:
		t.Call.Next = fn(t.Call.Next)
	}
}
