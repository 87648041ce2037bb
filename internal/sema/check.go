package sema

import (
	"fmt"

	"starling/internal/ast"
	"starling/internal/diag"
	"starling/internal/source"
	"starling/internal/types"
)

// VerifyModule runs the ownership verifier over every function and impl
// method of mod.
func VerifyModule(mod *ast.Module, typesIn *types.Interner, r diag.Reporter) {
	if mod == nil {
		return
	}
	for _, fn := range mod.Funcs {
		VerifyFunc(mod, fn, typesIn, r)
	}
	for _, im := range mod.Impls {
		if im == nil {
			continue
		}
		for _, m := range im.Methods {
			VerifyFunc(mod, m, typesIn, r)
		}
	}
}

// VerifyFunc checks one function with a single ordered walk.
func VerifyFunc(mod *ast.Module, fn *ast.Func, typesIn *types.Interner, r diag.Reporter) {
	if fn == nil {
		return
	}
	c := &checker{
		mod:      mod,
		types:    typesIn,
		reporter: r,
		env:      make(env),
	}
	for _, p := range fn.Params {
		c.env[p.Name] = &bindingState{
			Kind:       StateOwned,
			Mutable:    p.Mode != ast.PassRef,
			Type:       p.Type,
			DeclaredAt: p.Span,
		}
	}
	checkOutlives(fn, r)
	c.walkStmts(fn.Body)
}

type checker struct {
	mod      *ast.Module
	types    *types.Interner
	reporter diag.Reporter
	env      env
}

type shadowEntry struct {
	name string
	prev *bindingState // nil when the name was fresh
}

func (c *checker) walkStmts(stmts []ast.Stmt) {
	var declared []shadowEntry
	for i := range stmts {
		c.walkStmt(&stmts[i], &declared)
	}
	// Bindings fall out of scope in reverse declaration order.
	for i := len(declared) - 1; i >= 0; i-- {
		d := declared[i]
		if d.prev == nil {
			delete(c.env, d.name)
		} else {
			c.env[d.name] = d.prev
		}
	}
}

func (c *checker) walkStmt(s *ast.Stmt, declared *[]shadowEntry) {
	switch s.Kind {
	case ast.StmtLet:
		data := s.Data.(ast.LetData)
		if data.Value != nil {
			c.useExpr(data.Value, true)
		}
		st := &bindingState{
			Kind:       StateOwned,
			Mutable:    data.IsMut,
			Type:       data.Type,
			DeclaredAt: s.Span,
		}
		if data.Value == nil {
			st.Kind = StateUninitialized
		}
		*declared = append(*declared, shadowEntry{name: data.Name, prev: c.env[data.Name]})
		c.env[data.Name] = st

	case ast.StmtAssign:
		data := s.Data.(ast.AssignData)
		c.useExpr(data.Value, true)
		c.assignTarget(data.Target, s.Span)

	case ast.StmtExpr:
		c.useExpr(s.Data.(ast.ExprStmtData).Expr, false)

	case ast.StmtIf:
		data := s.Data.(ast.IfData)
		c.useExpr(data.Cond, false)
		base := c.env
		thenEnv := base.clone()
		c.env = thenEnv
		c.walkStmts(data.Then)
		elseEnv := base.clone()
		c.env = elseEnv
		c.walkStmts(data.Else)
		c.env = base
		mergeInto(base, thenEnv, elseEnv)

	case ast.StmtWhile:
		data := s.Data.(ast.WhileData)
		c.useExpr(data.Cond, false)
		base := c.env
		bodyEnv := base.clone()
		c.env = bodyEnv
		c.walkStmts(data.Body)
		c.env = base
		// The body may run zero times, so the pre-state joins in too.
		mergeInto(base, bodyEnv, base.clone())

	case ast.StmtFor:
		data := s.Data.(ast.ForData)
		if data.Init != nil {
			c.walkStmt(data.Init, declared)
		}
		if data.Cond != nil {
			c.useExpr(data.Cond, false)
		}
		base := c.env
		bodyEnv := base.clone()
		c.env = bodyEnv
		c.walkStmts(data.Body)
		if data.Post != nil {
			var scratch []shadowEntry
			c.walkStmt(data.Post, &scratch)
		}
		c.env = base
		mergeInto(base, bodyEnv, base.clone())

	case ast.StmtMatch:
		data := s.Data.(ast.MatchData)
		c.useExpr(data.Disc, false)
		base := c.env
		branches := make([]env, 0, len(data.Arms))
		for i := range data.Arms {
			armEnv := base.clone()
			c.env = armEnv
			c.walkStmts(data.Arms[i].Body)
			branches = append(branches, armEnv)
		}
		c.env = base
		mergeInto(base, branches...)

	case ast.StmtReturn:
		data := s.Data.(ast.ReturnData)
		if data.Value != nil {
			c.useExpr(data.Value, true)
		}

	case ast.StmtBlock:
		c.walkStmts(s.Data.(ast.BlockData).Body)

	case ast.StmtBreak, ast.StmtContinue:
		// Structural checks happen during lowering.
	}
}

// assignTarget handles whole-binding reassignment: the binding resets to
// Owned unconditionally. Writing through a projection is a use of the
// root instead, so a moved-out aggregate still reports.
func (c *checker) assignTarget(target *ast.Expr, span source.Span) {
	if target == nil {
		return
	}
	root, ok := target.PlaceRoot()
	if !ok {
		return
	}
	st := c.env[root]
	if st == nil {
		return
	}
	if target.Kind != ast.ExprLocalRef {
		c.readRoot(root, st, span, true)
		return
	}
	if !st.Mutable && st.Kind != StateUninitialized {
		diag.ReportError(c.reporter, diag.OwnAssignImmutable, span,
			fmt.Sprintf("cannot assign to immutable binding %q", root)).
			WithNote(st.DeclaredAt, "binding declared here").
			WithFix("declare the binding as mutable").
			Emit()
	}
	st.Kind = StateOwned
	st.SharedCount = 0
	st.CondMove = false
	st.MovedAt = source.Span{}
	st.BorrowedAt = source.Span{}
}

// useExpr walks an expression, reporting reads of dead bindings and
// applying move semantics when consume is set.
func (c *checker) useExpr(e *ast.Expr, consume bool) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprIntLit, ast.ExprBoolLit, ast.ExprFloatLit, ast.ExprStringLit:
		return
	case ast.ExprLocalRef:
		name := e.Data.(ast.LocalRefData).Name
		c.usePlace(e, name, consume)
	case ast.ExprField, ast.ExprIndex:
		root, ok := e.PlaceRoot()
		if !ok {
			return
		}
		if e.Kind == ast.ExprIndex {
			c.useExpr(e.Data.(ast.IndexData).Index, false)
		}
		c.usePlace(e, root, consume)
	case ast.ExprUnary:
		c.useExpr(e.Data.(ast.UnaryData).Operand, false)
	case ast.ExprBinary:
		data := e.Data.(ast.BinaryData)
		c.useExpr(data.Left, false)
		c.useExpr(data.Right, false)
	case ast.ExprCall:
		c.useCall(e)
	case ast.ExprMethodCall:
		data := e.Data.(ast.MethodCallData)
		// The receiver is a transient shared borrow for the call.
		released := c.borrowForCall(data.Recv, false, e.Span, nil)
		for _, a := range data.Args {
			c.useExpr(a, true)
		}
		releaseBorrows(released)
	case ast.ExprStructLit:
		for _, f := range e.Data.(ast.StructLitData).Fields {
			c.useExpr(f.Value, true)
		}
	case ast.ExprCast:
		c.useExpr(e.Data.(ast.CastData).Value, false)
	case ast.ExprSpawn:
		data := e.Data.(ast.SpawnData)
		if data.Call != nil && data.Call.Kind == ast.ExprCall {
			// Spawned arguments cross into the runtime and always move.
			for _, a := range data.Call.Data.(ast.CallData).Args {
				c.useExpr(a, true)
			}
		}
	case ast.ExprAwait:
		c.useExpr(e.Data.(ast.AwaitData).Task, true)
	}
}

// usePlace reads the binding behind a place expression. Consuming a
// non-copy projection moves the whole binding; partial moves are not
// modeled. Copy-on-pass types never transition to MovedOut.
func (c *checker) usePlace(e *ast.Expr, root string, consume bool) {
	st := c.env[root]
	if st == nil {
		return
	}
	projected := e.Kind != ast.ExprLocalRef
	c.readRoot(root, st, e.Span, projected)
	if !consume || c.typeIsCopy(e.Type) {
		return
	}
	if projected && c.rootIsRef(st.Type) {
		diag.ReportError(c.reporter, diag.OwnMoveThroughBorrow, e.Span,
			fmt.Sprintf("cannot move out of %q behind a reference", root)).
			WithNote(st.DeclaredAt, "reference binding declared here").
			Emit()
		return
	}
	if c.typeIsCopy(st.Type) {
		return
	}
	switch st.Kind {
	case StateSharedBorrowed, StateMutablyBorrowed:
		diag.ReportError(c.reporter, diag.OwnMoveBorrowed, e.Span,
			fmt.Sprintf("cannot move %q while it is borrowed", root)).
			WithNote(st.BorrowedAt, "borrow created here").
			Emit()
		return
	case StateMovedOut, StateUninitialized:
		// The read above already reported.
		return
	}
	st.Kind = StateMovedOut
	st.CondMove = false
	st.MovedAt = e.Span
}

func (c *checker) rootIsRef(t types.TypeID) bool {
	if c.types == nil {
		return false
	}
	tt, ok := c.types.Lookup(t)
	return ok && tt.Kind == types.KindRef
}

func (c *checker) typeIsCopy(t types.TypeID) bool {
	return c.types != nil && c.types.IsCopyOnPass(t)
}

// readRoot reports a read of a dead binding: exactly one diagnostic per
// offending read.
func (c *checker) readRoot(name string, st *bindingState, at source.Span, projected bool) {
	switch st.Kind {
	case StateMovedOut:
		code := diag.OwnUseAfterMove
		msg := fmt.Sprintf("use of moved value %q", name)
		note := "value moved here"
		switch {
		case projected:
			code = diag.OwnFieldOfMoved
			msg = fmt.Sprintf("field access on moved value %q", name)
		case st.CondMove:
			code = diag.OwnMovedInBranch
			msg = fmt.Sprintf("use of %q, which may have been moved", name)
			note = "moved on this path"
		}
		diag.ReportError(c.reporter, code, at, msg).
			WithNote(st.MovedAt, note).
			WithFix("reassign the binding before this use").
			Emit()
	case StateUninitialized:
		diag.ReportError(c.reporter, diag.OwnUseUninitialized, at,
			fmt.Sprintf("use of uninitialized binding %q", name)).
			WithNote(st.DeclaredAt, "declared without a value here").
			Emit()
	}
}

// useCall applies parameter pass modes: owned arguments move, reference
// arguments take transient borrows released when the call returns.
func (c *checker) useCall(e *ast.Expr) {
	data := e.Data.(ast.CallData)
	callee := c.mod.FuncByName(data.Callee)
	var released []*bindingState
	for i, arg := range data.Args {
		mode := ast.PassOwned
		if callee != nil && i < len(callee.Params) {
			mode = callee.Params[i].Mode
		}
		switch mode {
		case ast.PassOwned:
			c.useExpr(arg, true)
		case ast.PassRef:
			released = c.borrowForCall(arg, false, e.Span, released)
		case ast.PassRefMut:
			released = c.borrowForCall(arg, true, e.Span, released)
		}
	}
	releaseBorrows(released)
}

// borrowForCall takes a transient borrow of the binding behind arg for
// the duration of one call. Returns the updated release list.
func (c *checker) borrowForCall(arg *ast.Expr, mutable bool, callSpan source.Span, released []*bindingState) []*bindingState {
	if arg == nil {
		return released
	}
	root, ok := arg.PlaceRoot()
	if !ok {
		// Borrow of a temporary: check uses, nothing outlives the call.
		c.useExpr(arg, false)
		return released
	}
	st := c.env[root]
	if st == nil {
		return released
	}
	c.readRoot(root, st, arg.Span, arg.Kind != ast.ExprLocalRef)
	if mutable {
		switch st.Kind {
		case StateSharedBorrowed:
			diag.ReportError(c.reporter, diag.OwnBorrowConflict, arg.Span,
				fmt.Sprintf("cannot borrow %q mutably: a shared borrow is live", root)).
				WithNote(st.BorrowedAt, "shared borrow created here").
				Emit()
			return released
		case StateMutablyBorrowed:
			diag.ReportError(c.reporter, diag.OwnBorrowConflict, arg.Span,
				fmt.Sprintf("cannot borrow %q mutably more than once", root)).
				WithNote(st.BorrowedAt, "first mutable borrow created here").
				Emit()
			return released
		}
		st.Kind = StateMutablyBorrowed
		st.BorrowedAt = callSpan
		return append(released, st)
	}
	switch st.Kind {
	case StateMutablyBorrowed:
		diag.ReportError(c.reporter, diag.OwnBorrowConflict, arg.Span,
			fmt.Sprintf("cannot borrow %q: a mutable borrow is live", root)).
			WithNote(st.BorrowedAt, "mutable borrow created here").
			Emit()
		return released
	case StateMovedOut, StateUninitialized:
		return released
	}
	if st.Kind != StateSharedBorrowed {
		st.BorrowedAt = callSpan
	}
	st.Kind = StateSharedBorrowed
	st.SharedCount++
	return append(released, st)
}

// releaseBorrows ends the transient borrows taken for one call.
func releaseBorrows(borrows []*bindingState) {
	for _, st := range borrows {
		switch st.Kind {
		case StateMutablyBorrowed:
			st.Kind = StateOwned
			st.BorrowedAt = source.Span{}
		case StateSharedBorrowed:
			st.SharedCount--
			if st.SharedCount <= 0 {
				st.Kind = StateOwned
				st.SharedCount = 0
				st.BorrowedAt = source.Span{}
			}
		}
	}
}
