package mono

import (
	"fmt"
	"sort"

	"starling/internal/ast"
	"starling/internal/contracts"
	"starling/internal/diag"
	"starling/internal/mir"
	"starling/internal/types"
)

// Options tunes monomorphization.
type Options struct {
	// MaxDepth bounds the instantiation chain length. A chain this deep
	// almost always means a polymorphically recursive program that would
	// otherwise expand forever.
	MaxDepth int
}

// DefaultMaxDepth is the instantiation depth limit used when Options
// leaves it unset.
const DefaultMaxDepth = 64

// Monomorphize expands every generic call in src into concrete function
// instances and returns a module free of type parameters. Generic
// templates are not copied into the output. The cache may be shared
// across runs; pass nil to use a private one.
func Monomorphize(astMod *ast.Module, src *mir.Module, typesIn *types.Interner, r diag.Reporter, rec *contracts.Recorder, cache *Cache, opt Options) (*mir.Module, error) {
	if opt.MaxDepth <= 0 {
		opt.MaxDepth = DefaultMaxDepth
	}
	if cache == nil {
		cache = NewCache(nextFuncID(src))
	}
	m := &monomorphizer{
		ast:      astMod,
		src:      src,
		types:    typesIn,
		reporter: r,
		recorder: rec,
		cache:    cache,
		opt:      opt,
		out:      mir.NewModule(),
	}
	if err := m.seed(); err != nil {
		return nil, err
	}
	return m.out, m.err
}

func nextFuncID(m *mir.Module) mir.FuncID {
	var next mir.FuncID
	for id := range m.Funcs {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

type monomorphizer struct {
	ast      *ast.Module
	src      *mir.Module
	types    *types.Interner
	reporter diag.Reporter
	recorder *contracts.Recorder
	cache    *Cache
	opt      Options
	out      *mir.Module

	err error
}

func (m *monomorphizer) fail(err error) {
	if m.err == nil {
		m.err = err
	}
}

// seed copies every concrete function into the output and rewrites its
// calls, instantiating generic callees on demand. Functions are visited
// in name order so instance ids are deterministic.
func (m *monomorphizer) seed() error {
	names := make([]string, 0, len(m.src.Funcs))
	for _, f := range m.src.Funcs {
		if f != nil && !f.IsGeneric() {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		f := cloneFunc(m.src.ByName(name))
		m.out.Add(f)
	}
	for _, name := range names {
		m.rewriteCalls(m.out.ByName(name), 0)
	}
	return m.err
}

// rewriteCalls resolves pending method dispatch and replaces generic
// callee references with concrete instance names.
func (m *monomorphizer) rewriteCalls(f *mir.Func, depth int) {
	if f == nil {
		return
	}
	for bi := range f.Blocks {
		term := &f.Blocks[bi].Term
		if term.Kind != mir.TermCall {
			continue
		}
		call := &term.Call

		if call.Callee.IsPendingDispatch() {
			name, ok := m.resolveDispatch(call, f)
			if !ok {
				continue
			}
			call.Callee = mir.FuncRef{Name: name}
		}

		template := m.src.ByName(call.Callee.Name)
		if template == nil || !template.IsGeneric() {
			// Concrete callees and runtime intrinsics pass through.
			call.Callee.TypeArgs = nil
			continue
		}
		args := call.Callee.TypeArgs
		if len(args) == 0 {
			var ok bool
			args, ok = m.inferTypeArgs(template, call, f)
			if !ok {
				continue
			}
		}
		instName, ok := m.instantiate(template, args, f, depth)
		if !ok {
			continue
		}
		call.Callee = mir.FuncRef{Name: instName}
	}
}

// instantiate returns the concrete instance name for template<args>,
// building the body on a cache miss. The cache is consulted before any
// recursion so self-referential generics terminate.
func (m *monomorphizer) instantiate(template *mir.Func, args []types.TypeID, caller *mir.Func, depth int) (string, bool) {
	for _, a := range args {
		if a == types.NoTypeID || m.types.ContainsParams(a) {
			diag.ReportError(m.reporter, diag.GenUnresolvedParameter, caller.Span,
				fmt.Sprintf("cannot instantiate %s: type argument %s is not concrete", template.Name, m.types.String(a))).Emit()
			return "", false
		}
	}
	if len(args) != len(template.TypeParamNames) {
		diag.ReportError(m.reporter, diag.GenArgumentCountMismatch, caller.Span,
			fmt.Sprintf("%s expects %d type arguments, got %d", template.Name, len(template.TypeParamNames), len(args))).Emit()
		return "", false
	}
	if !m.checkBounds(template, args, caller) {
		return "", false
	}

	key := InstantiationKey{Name: template.Name, ArgsKey: TypeArgsKey(args)}
	mangled := m.types.MangledName(template.Name, args)
	inst, reserved := m.cache.LookupOrReserve(key, template.Name, mangled, args)
	m.cache.RecordUse(key, UseSite{Span: caller.Span, Caller: caller.Name})
	if !reserved {
		m.adopt(inst)
		return inst.Name, true
	}

	if depth >= m.opt.MaxDepth {
		diag.ReportError(m.reporter, diag.GenInstantiationCycle, caller.Span,
			fmt.Sprintf("instantiation of %s exceeds depth %d; generic recursion never reaches a concrete base case", mangled, m.opt.MaxDepth)).Emit()
		return "", false
	}

	body := cloneFunc(template)
	body.ID = m.cache.AllocID()
	body.Name = mangled
	body.TypeArgs = append([]types.TypeID(nil), args...)
	if err := substFunc(m.types, body, args); err != nil {
		m.fail(fmt.Errorf("mono: %s: %w", mangled, err))
		return "", false
	}
	inst.Func = body
	m.out.Add(body)
	m.recordStrategy(inst)

	m.rewriteCalls(body, depth+1)
	return inst.Name, true
}

// adopt makes sure an instance built by an earlier run through a shared
// cache is present in this output module. The body is cloned rather than
// shared: optimization passes rewrite functions in place, and a module
// produced by a previous run must keep the bodies it was handed.
func (m *monomorphizer) adopt(inst *Instance) {
	if inst.Func == nil {
		return
	}
	if m.out.ByName(inst.Name) == nil {
		m.out.Add(cloneFunc(inst.Func))
	}
}

// checkBounds verifies each type argument implements the traits its
// parameter demands. Runs before any instance body is produced.
func (m *monomorphizer) checkBounds(template *mir.Func, args []types.TypeID, caller *mir.Func) bool {
	decl := m.ast.FuncByName(template.Name)
	if decl == nil {
		return true
	}
	ok := true
	for i, tp := range decl.TypeParams {
		if i >= len(args) {
			break
		}
		for _, bound := range tp.Bounds {
			tr := m.ast.Trait(bound)
			if tr == nil || m.implFor(bound, args[i]) != nil {
				continue
			}
			diag.ReportError(m.reporter, diag.GenTraitNotImplemented, caller.Span,
				fmt.Sprintf("type %s does not implement trait %s, required by parameter %s of %s",
					m.types.String(args[i]), tr.Name, tp.Name, template.Name)).
				WithNote(tr.Span, fmt.Sprintf("trait %s declared here", tr.Name)).
				Emit()
			ok = false
		}
	}
	return ok
}

func (m *monomorphizer) implFor(trait ast.TraitID, target types.TypeID) *ast.ImplBlock {
	for _, im := range m.ast.Impls {
		if im != nil && im.Trait == trait && im.Target == target {
			return im
		}
	}
	return nil
}

// resolveDispatch binds a method call whose receiver type was generic at
// lowering time. After substitution the receiver is concrete, so the
// impl registry decides.
func (m *monomorphizer) resolveDispatch(call *mir.CallTerm, caller *mir.Func) (string, bool) {
	recv := call.Callee.RecvType
	method := call.Callee.Method
	if m.types.ContainsParams(recv) {
		diag.ReportError(m.reporter, diag.GenUnresolvedParameter, caller.Span,
			fmt.Sprintf("receiver type %s of method %q is still generic after substitution", m.types.String(recv), method)).Emit()
		return "", false
	}
	var found string
	matches := 0
	for _, im := range m.ast.Impls {
		if im == nil || im.Target != recv || im.Method(method) == nil {
			continue
		}
		matches++
		found = mir.MethodName(m.types, im.Target, method)
	}
	switch matches {
	case 0:
		diag.ReportError(m.reporter, diag.GenUnknownMethod, caller.Span,
			fmt.Sprintf("type %s has no method %q", m.types.String(recv), method)).Emit()
		return "", false
	case 1:
		return found, true
	default:
		diag.ReportError(m.reporter, diag.GenAmbiguousMethod, caller.Span,
			fmt.Sprintf("method %q is provided by %d impls of %s", method, matches, m.types.String(recv))).Emit()
		return "", false
	}
}

// inferTypeArgs recovers the argument tuple from the value arguments when
// the call site spelled none.
func (m *monomorphizer) inferTypeArgs(template *mir.Func, call *mir.CallTerm, caller *mir.Func) ([]types.TypeID, bool) {
	n := len(template.TypeParamNames)
	args := make([]types.TypeID, n)
	for i, p := range template.Params {
		if i >= len(call.Args) {
			break
		}
		m.unify(template.LocalType(p.Local), call.Args[i].Type, args)
	}
	for i, a := range args {
		if a == types.NoTypeID {
			diag.ReportError(m.reporter, diag.GenUnresolvedParameter, caller.Span,
				fmt.Sprintf("cannot infer type argument %s of %s from the call's value arguments",
					template.TypeParamNames[i], template.Name)).Emit()
			return nil, false
		}
	}
	return args, true
}

// unify matches a parameter type pattern against a concrete argument
// type, filling ordinal slots. First binding wins; a conflicting later
// binding is left for the bound check to reject.
func (m *monomorphizer) unify(pattern, concrete types.TypeID, out []types.TypeID) {
	pt, ok := m.types.Lookup(pattern)
	if !ok {
		return
	}
	switch pt.Kind {
	case types.KindParam:
		if int(pt.Ordinal) < len(out) && out[pt.Ordinal] == types.NoTypeID {
			out[pt.Ordinal] = concrete
		}
	case types.KindRef:
		ct, ok := m.types.Lookup(concrete)
		if ok && ct.Kind == types.KindRef {
			m.unify(pt.Elem, ct.Elem, out)
		}
	case types.KindNamed:
		ct, ok := m.types.Lookup(concrete)
		if !ok || ct.Kind != types.KindNamed || ct.Named != pt.Named {
			return
		}
		for i := range pt.Args {
			if i < len(ct.Args) {
				m.unify(pt.Args[i], ct.Args[i], out)
			}
		}
	}
}

// recordStrategy notes how the external verifier should treat the new
// instance's contracts.
func (m *monomorphizer) recordStrategy(inst *Instance) {
	if m.recorder == nil {
		return
	}
	s := contracts.StrategyNone
	decl := m.ast.FuncByName(inst.Generic)
	if decl != nil {
		if len(decl.Requires) > 0 || len(decl.Ensures) > 0 {
			s = contracts.StrategyReverifyConcrete
		}
		for _, tp := range decl.TypeParams {
			for _, bound := range tp.Bounds {
				if tr := m.ast.Trait(bound); tr != nil && len(tr.Axioms) > 0 {
					s = contracts.StrategyReuseGenericProof
				}
			}
		}
	}
	m.recorder.RecordInstantiation(inst.Name, inst.Generic, s)
}
