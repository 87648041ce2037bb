package sema

import (
	"fmt"

	"starling/internal/ast"
	"starling/internal/diag"
)

// checkOutlives validates declared lifetime relations syntactically: both
// sides must name borrowed parameters (or "return"), and a parameter
// cannot be declared to outlive itself. No dataflow inference happens
// here.
func checkOutlives(fn *ast.Func, r diag.Reporter) {
	borrowed := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		if p.Mode == ast.PassRef || p.Mode == ast.PassRefMut {
			borrowed[p.Name] = true
		}
	}
	for _, cl := range fn.Outlives {
		if cl.Longer == cl.Shorter {
			diag.ReportError(r, diag.OwnBadOutlivesClause, cl.Span,
				fmt.Sprintf("%q cannot be declared to outlive itself", cl.Longer)).Emit()
			continue
		}
		for _, name := range []string{cl.Longer, cl.Shorter} {
			if name == "return" {
				continue
			}
			if !borrowed[name] {
				diag.ReportError(r, diag.OwnBadOutlivesClause, cl.Span,
					fmt.Sprintf("outlives clause names %q, which is not a borrowed parameter", name)).Emit()
			}
		}
	}
}
