package mono

import (
	"testing"

	"starling/internal/ast"
	"starling/internal/contracts"
	"starling/internal/diag"
	"starling/internal/mir"
	"starling/internal/types"
)

func intLit(v int64, t types.TypeID) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprIntLit, Type: t, Data: ast.IntLitData{Value: v}}
}

func localRef(name string, t types.TypeID) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLocalRef, Type: t, Data: ast.LocalRefData{Name: name}}
}

func callExpr(callee string, result types.TypeID, typeArgs []types.TypeID, args ...*ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprCall, Type: result, Data: ast.CallData{
		Callee: callee, TypeArgs: typeArgs, Args: args,
	}}
}

func retStmt(e *ast.Expr) ast.Stmt {
	return ast.Stmt{Kind: ast.StmtReturn, Data: ast.ReturnData{Value: e}}
}

// identityModule declares `func id<T>(x: T) -> T` plus one concrete
// caller per entry in callers, each returning id's result.
func identityModule(in *types.Interner, bounds []ast.TraitID, callers map[string][]types.TypeID) *ast.Module {
	bi := in.Builtins()
	tparam := in.MakeParam(0, "T")
	mod := &ast.Module{Name: "main"}
	mod.AddFunc(&ast.Func{
		Name:       "id",
		TypeParams: []ast.TypeParam{{Name: "T", Bounds: bounds}},
		Params:     []ast.Param{{Name: "x", Type: tparam, Mode: ast.PassOwned}},
		Result:     tparam,
		Body:       []ast.Stmt{retStmt(localRef("x", tparam))},
	})
	for name, typeArgs := range callers {
		mod.AddFunc(&ast.Func{
			Name:   name,
			Result: bi.Int,
			Body: []ast.Stmt{
				retStmt(callExpr("id", bi.Int, typeArgs, intLit(1, bi.Int))),
			},
		})
	}
	return mod
}

func lowerAndMono(t *testing.T, mod *ast.Module, in *types.Interner, opt Options) (*mir.Module, *Cache, *contracts.Recorder, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(64)
	r := diag.BagReporter{Bag: bag}
	lowered, err := mir.LowerModule(mod, in, r)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	cache := NewCache(nextFuncID(lowered))
	rec := contracts.NewRecorder()
	out, err := Monomorphize(mod, lowered, in, r, rec, cache, opt)
	if err != nil {
		t.Fatalf("monomorphize: %v", err)
	}
	return out, cache, rec, bag
}

func bagCodes(bag *diag.Bag) []diag.Code {
	var codes []diag.Code
	for _, d := range bag.Items() {
		codes = append(codes, d.Code)
	}
	return codes
}

func TestInstantiateExplicitArgs(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	mod := identityModule(in, nil, map[string][]types.TypeID{
		"main": {bi.Int},
	})

	out, _, _, bag := lowerAndMono(t, mod, in, Options{})
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bagCodes(bag))
	}

	inst := out.ByName("id_Int")
	if inst == nil {
		t.Fatalf("instance id_Int missing; funcs: %v", out.FuncByName)
	}
	if inst.Result != bi.Int {
		t.Fatalf("instance result = %s, want Int", in.String(inst.Result))
	}
	if out.ByName("id") != nil {
		t.Fatalf("generic template leaked into output")
	}
	if err := CheckConcrete(out, in); err != nil {
		t.Fatalf("CheckConcrete: %v", err)
	}

	main := out.ByName("main")
	found := false
	for i := range main.Blocks {
		if term := main.Blocks[i].Term; term.Kind == mir.TermCall {
			if got := term.Call.Callee.Name; got != "id_Int" {
				t.Fatalf("call rewritten to %q, want id_Int", got)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("main lost its call terminator")
	}
}

func TestInstantiateInferredArgs(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	// No explicit type arguments: T is recovered from the Int literal.
	mod := identityModule(in, nil, map[string][]types.TypeID{
		"main": nil,
	})

	out, _, _, bag := lowerAndMono(t, mod, in, Options{})
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bagCodes(bag))
	}
	inst := out.ByName("id_Int")
	if inst == nil {
		t.Fatalf("inference did not produce id_Int")
	}
	if got := TypeArgsKey(inst.TypeArgs); got != TypeArgsKey([]types.TypeID{bi.Int}) {
		t.Fatalf("inferred args key %q", got)
	}
}

func TestInstanceMemoized(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	mod := identityModule(in, nil, map[string][]types.TypeID{
		"alpha": {bi.Int},
		"beta":  {bi.Int},
		"gamma": {bi.Float},
	})

	out, cache, _, bag := lowerAndMono(t, mod, in, Options{})
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bagCodes(bag))
	}
	if got := cache.Len(); got != 2 {
		t.Fatalf("cache holds %d instances, want 2 (Int shared, Float separate)", got)
	}
	if out.ByName("id_Int") == nil || out.ByName("id_Float") == nil {
		t.Fatalf("expected id_Int and id_Float instances")
	}

	key := InstantiationKey{Name: "id", ArgsKey: TypeArgsKey([]types.TypeID{bi.Int})}
	inst, reserved := cache.LookupOrReserve(key, "id", "id_Int", []types.TypeID{bi.Int})
	if reserved {
		t.Fatalf("second lookup reserved a fresh slot")
	}
	if len(inst.UseSites) == 0 {
		t.Fatalf("instance lost its use sites")
	}
}

func TestSharedCacheAdoptsCopies(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()

	run := func(cache *Cache) (*mir.Module, *Cache) {
		mod := identityModule(in, nil, map[string][]types.TypeID{
			"main": {bi.Int},
		})
		bag := diag.NewBag(64)
		r := diag.BagReporter{Bag: bag}
		lowered, err := mir.LowerModule(mod, in, r)
		if err != nil {
			t.Fatalf("lower: %v", err)
		}
		if cache == nil {
			cache = NewCache(nextFuncID(lowered))
		}
		out, err := Monomorphize(mod, lowered, in, r, contracts.NewRecorder(), cache, Options{})
		if err != nil {
			t.Fatalf("monomorphize: %v", err)
		}
		if bag.HasErrors() {
			t.Fatalf("unexpected diagnostics: %v", bagCodes(bag))
		}
		return out, cache
	}

	first, cache := run(nil)
	second, _ := run(cache)
	if got := cache.Len(); got != 1 {
		t.Fatalf("cache holds %d instances, want the one shared id_Int", got)
	}

	a, b := first.ByName("id_Int"), second.ByName("id_Int")
	if a == nil || b == nil {
		t.Fatalf("both runs should carry id_Int")
	}
	if a == b {
		t.Fatalf("two modules share one function body")
	}

	// Rewriting the adopted copy must leave the earlier module intact.
	want := a.Blocks[a.Entry].Term.Kind
	b.Blocks[b.Entry].Term.Kind = mir.TermNone
	if a.Blocks[a.Entry].Term.Kind != want {
		t.Fatalf("mutating the second module's body reached the first")
	}
}

func TestTraitBoundUnsatisfied(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	mod := identityModule(in, []ast.TraitID{1}, map[string][]types.TypeID{
		"main": {bi.Int},
	})
	mod.Traits = []*ast.TraitDef{{ID: 1, Name: "Eq"}}
	// No impl of Eq for Int anywhere.

	out, cache, _, bag := lowerAndMono(t, mod, in, Options{})
	if !bag.HasErrors() {
		t.Fatalf("missing bound violation diagnostic")
	}
	hit := false
	for _, d := range bag.Items() {
		if d.Code == diag.GenTraitNotImplemented {
			hit = true
		}
	}
	if !hit {
		t.Fatalf("got %v, want GenTraitNotImplemented", bagCodes(bag))
	}
	if cache.Len() != 0 || out.ByName("id_Int") != nil {
		t.Fatalf("instance emitted despite failed bound check")
	}
}

func TestInstantiationDepthLimit(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	tparam := in.MakeParam(0, "T")
	mod := &ast.Module{Name: "main"}
	// r<T> calls r<&T>: every level instantiates a fresh type, so the
	// chain never reaches a base case.
	mod.AddFunc(&ast.Func{
		Name:       "r",
		TypeParams: []ast.TypeParam{{Name: "T"}},
		Params:     []ast.Param{{Name: "x", Type: tparam, Mode: ast.PassOwned}},
		Result:     bi.Int,
		Body: []ast.Stmt{
			retStmt(callExpr("r", bi.Int,
				[]types.TypeID{in.MakeRef(tparam, false)},
				localRef("x", tparam))),
		},
	})
	mod.AddFunc(&ast.Func{
		Name:   "main",
		Result: bi.Int,
		Body: []ast.Stmt{
			retStmt(callExpr("r", bi.Int, []types.TypeID{bi.Int}, intLit(0, bi.Int))),
		},
	})

	_, _, _, bag := lowerAndMono(t, mod, in, Options{MaxDepth: 4})
	hit := false
	for _, d := range bag.Items() {
		if d.Code == diag.GenInstantiationCycle {
			hit = true
		}
	}
	if !hit {
		t.Fatalf("got %v, want GenInstantiationCycle", bagCodes(bag))
	}
}

func TestPendingDispatchResolved(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	tparam := in.MakeParam(0, "T")

	mod := &ast.Module{Name: "main"}
	mod.Traits = []*ast.TraitDef{{
		ID:   1,
		Name: "Show",
		Methods: []ast.MethodSig{{
			Name: "show", Params: []types.TypeID{ast.SelfType(in)}, Result: bi.Int,
		}},
	}}
	mod.Impls = []*ast.ImplBlock{{
		Trait:  1,
		Target: bi.Int,
		Methods: []*ast.Func{{
			Name:   "show",
			Params: []ast.Param{{Name: "self", Type: bi.Int, Mode: ast.PassOwned}},
			Result: bi.Int,
			Body:   []ast.Stmt{retStmt(intLit(7, bi.Int))},
		}},
	}}
	mod.AddFunc(&ast.Func{
		Name:       "render",
		TypeParams: []ast.TypeParam{{Name: "T", Bounds: []ast.TraitID{1}}},
		Params:     []ast.Param{{Name: "x", Type: tparam, Mode: ast.PassOwned}},
		Result:     bi.Int,
		Body: []ast.Stmt{
			retStmt(&ast.Expr{Kind: ast.ExprMethodCall, Type: bi.Int, Data: ast.MethodCallData{
				Recv: localRef("x", tparam), Method: "show",
			}}),
		},
	})
	mod.AddFunc(&ast.Func{
		Name:   "main",
		Result: bi.Int,
		Body: []ast.Stmt{
			retStmt(callExpr("render", bi.Int, []types.TypeID{bi.Int}, intLit(3, bi.Int))),
		},
	})

	out, _, _, bag := lowerAndMono(t, mod, in, Options{})
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bagCodes(bag))
	}
	inst := out.ByName("render_Int")
	if inst == nil {
		t.Fatalf("instance render_Int missing")
	}
	resolved := ""
	for i := range inst.Blocks {
		if term := inst.Blocks[i].Term; term.Kind == mir.TermCall {
			resolved = term.Call.Callee.Name
		}
	}
	if want := mir.MethodName(in, bi.Int, "show"); resolved != want {
		t.Fatalf("dispatch resolved to %q, want %q", resolved, want)
	}
	if err := CheckConcrete(out, in); err != nil {
		t.Fatalf("CheckConcrete: %v", err)
	}
}

func TestStrategyRecorded(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	mod := identityModule(in, []ast.TraitID{1}, map[string][]types.TypeID{
		"main": {bi.Int},
	})
	mod.Traits = []*ast.TraitDef{{
		ID:   1,
		Name: "Ord",
		Axioms: []ast.Axiom{{
			Name:    "total",
			Formula: &ast.Expr{Kind: ast.ExprBoolLit, Type: bi.Bool, Data: ast.BoolLitData{Value: true}},
		}},
	}}
	mod.Impls = []*ast.ImplBlock{{Trait: 1, Target: bi.Int}}

	_, _, rec, bag := lowerAndMono(t, mod, in, Options{})
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bagCodes(bag))
	}
	insts := rec.Instantiations()
	if len(insts) != 1 {
		t.Fatalf("recorded %d instantiations, want 1", len(insts))
	}
	got := insts[0]
	if got.Instance != "id_Int" || got.Generic != "id" {
		t.Fatalf("recorded %q of %q", got.Instance, got.Generic)
	}
	if got.Strategy != contracts.StrategyReuseGenericProof {
		t.Fatalf("strategy = %v, want reuse-generic-proof (bound carries an axiom)", got.Strategy)
	}
}
