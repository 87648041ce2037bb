package mir

import (
	"fmt"

	"fortio.org/safecast"

	"starling/internal/ast"
	"starling/internal/diag"
	"starling/internal/source"
	"starling/internal/types"
)

// Entry points of the external task runtime. Concurrency syntax lowers to
// plain calls against these; scheduling is the runtime's business.
const (
	RuntimeSpawn = "runtime.spawn"
	RuntimeAwait = "runtime.await"
)

// MethodName builds the flat name an impl method is lowered under.
func MethodName(in *types.Interner, target types.TypeID, method string) string {
	return in.String(target) + "::" + method
}

// LowerModule lowers every function and impl method of astMod. User
// errors (break outside a loop, non-exhaustive match) go to the reporter
// and lowering continues; the returned error is the internal-compiler
// channel only.
func LowerModule(astMod *ast.Module, typesIn *types.Interner, r diag.Reporter) (*Module, error) {
	out := NewModule()
	if astMod == nil {
		return out, nil
	}
	nextID := FuncID(1)
	lowerOne := func(fn *ast.Func, name string) error {
		fl := &funcLowerer{
			out:      out,
			mod:      astMod,
			types:    typesIn,
			reporter: r,
		}
		f, err := fl.lowerFunc(nextID, fn, name)
		if err != nil {
			return fmt.Errorf("lowering %s: %w", name, err)
		}
		nextID++
		out.Add(f)
		return nil
	}
	for _, fn := range astMod.Funcs {
		if fn == nil {
			continue
		}
		if err := lowerOne(fn, fn.Name); err != nil {
			return nil, err
		}
	}
	for _, im := range astMod.Impls {
		if im == nil {
			continue
		}
		ast.ValidateImpl(astMod, im, typesIn, r)
		for _, method := range im.Methods {
			if method == nil {
				continue
			}
			if err := lowerOne(method, MethodName(typesIn, im.Target, method.Name)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// loopCtx keeps the enclosing loop's continue and break targets.
type loopCtx struct {
	continueTarget BlockID
	breakTarget    BlockID
}

type funcLowerer struct {
	out      *Module
	mod      *ast.Module
	types    *types.Interner
	reporter diag.Reporter

	f   *Func
	cur BlockID

	localByName map[string]LocalID
	nextTemp    uint32
	loopStack   []loopCtx

	// err records an internal invariant violation; lowering unwinds
	// through it instead of reporting a user diagnostic.
	err error
}

func (l *funcLowerer) lowerFunc(id FuncID, fn *ast.Func, name string) (*Func, error) {
	if fn == nil {
		return nil, fmt.Errorf("mir: nil function")
	}
	l.f = &Func{
		ID:     id,
		Name:   name,
		Span:   fn.Span,
		Result: fn.Result,
	}
	for _, tp := range fn.TypeParams {
		l.f.TypeParamNames = append(l.f.TypeParamNames, tp.Name)
	}
	l.localByName = make(map[string]LocalID, len(fn.Params)+8)

	l.f.ParamCount = len(fn.Params)
	for _, p := range fn.Params {
		local := l.addLocal(p.Name, p.Type, PassModeMutable(p.Mode), p.Span)
		l.localByName[p.Name] = local
		l.f.Params = append(l.f.Params, Param{Local: local, Mode: p.Mode})
	}

	entry := l.newBlock()
	l.f.Entry = entry
	l.startBlock(entry)

	l.lowerStmts(fn.Body)
	if l.err != nil {
		return nil, l.err
	}

	// Falling off the end is an implicit bare return.
	if !l.curBlock().Terminated() {
		l.setTerm(&Terminator{Kind: TermReturn})
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.f, nil
}

// PassModeMutable reports whether a parameter binding is reassignable.
// Owned and mutable-borrow parameters are; shared borrows are not.
func PassModeMutable(m ast.PassMode) bool {
	return m != ast.PassRef
}

func (l *funcLowerer) newBlock() BlockID {
	n, err := safecast.Conv[int32](len(l.f.Blocks))
	if err != nil {
		l.fail(fmt.Errorf("mir: block count overflow: %w", err))
		return NoBlockID
	}
	id := BlockID(n)
	l.f.Blocks = append(l.f.Blocks, Block{ID: id})
	return id
}

func (l *funcLowerer) startBlock(id BlockID) {
	l.cur = id
}

func (l *funcLowerer) curBlock() *Block {
	return l.f.Block(l.cur)
}

func (l *funcLowerer) emit(ins Instr) {
	b := l.curBlock()
	if b == nil {
		l.fail(fmt.Errorf("mir: emit into missing block bb%d", l.cur))
		return
	}
	if b.Terminated() {
		l.fail(fmt.Errorf("mir: emit into terminated block bb%d", l.cur))
		return
	}
	b.Instrs = append(b.Instrs, ins)
}

func (l *funcLowerer) setTerm(t *Terminator) {
	b := l.curBlock()
	if b == nil {
		l.fail(fmt.Errorf("mir: terminator for missing block bb%d", l.cur))
		return
	}
	if b.Terminated() {
		l.fail(fmt.Errorf("mir: block bb%d terminated twice", l.cur))
		return
	}
	b.Term = *t
}

func (l *funcLowerer) addLocal(name string, t types.TypeID, mutable bool, span source.Span) LocalID {
	n, err := safecast.Conv[int32](len(l.f.Locals))
	if err != nil {
		l.fail(fmt.Errorf("mir: local count overflow: %w", err))
		return NoLocalID
	}
	id := LocalID(n)
	l.f.Locals = append(l.f.Locals, Local{Name: name, Type: t, Mutable: mutable, Span: span})
	return id
}

func (l *funcLowerer) newTemp(t types.TypeID, hint string, span source.Span) LocalID {
	l.nextTemp++
	return l.addLocal(fmt.Sprintf("%%%s%d", hint, l.nextTemp), t, true, span)
}

func (l *funcLowerer) lookupLocal(name string) (LocalID, bool) {
	id, ok := l.localByName[name]
	return id, ok
}

func (l *funcLowerer) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

// gotoIfOpen closes the current block with Goto(target) unless a nested
// lowering already closed it with a diverging terminator. Skipping the
// check would overwrite Return terminators emitted inside branches.
func (l *funcLowerer) gotoIfOpen(target BlockID) {
	if !l.curBlock().Terminated() {
		l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: target}})
	}
}
