package mir

import (
	"testing"

	"starling/internal/ast"
	"starling/internal/diag"
	"starling/internal/types"
)

func intLit(v int64, t types.TypeID) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprIntLit, Type: t, Data: ast.IntLitData{Value: v}}
}

func localRef(name string, t types.TypeID) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLocalRef, Type: t, Data: ast.LocalRefData{Name: name}}
}

func retStmt(e *ast.Expr) ast.Stmt {
	return ast.Stmt{Kind: ast.StmtReturn, Data: ast.ReturnData{Value: e}}
}

func lower(t *testing.T, m *ast.Module, in *types.Interner) (*Module, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(64)
	out, err := LowerModule(m, in, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}
	return out, bag
}

// terms flattens every terminator of f in block order.
func terms(f *Func, kind TermKind) []*Terminator {
	var out []*Terminator
	for i := range f.Blocks {
		if f.Blocks[i].Term.Kind == kind {
			out = append(out, &f.Blocks[i].Term)
		}
	}
	return out
}

func TestLowerReturnConstant(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	m := &ast.Module{Name: "t"}
	m.AddFunc(&ast.Func{
		Name:   "answer",
		Result: bi.Int,
		Body:   []ast.Stmt{retStmt(intLit(42, bi.Int))},
	})

	out, bag := lower(t, m, in)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	f := out.ByName("answer")
	if f == nil {
		t.Fatal("answer not lowered")
	}
	if err := ValidateFunc(f); err != nil {
		t.Fatalf("ValidateFunc: %v", err)
	}
	rets := terms(f, TermReturn)
	if len(rets) == 0 || !rets[0].Return.HasValue {
		t.Fatalf("no value-carrying return lowered: %+v", rets)
	}
}

func TestIfBothBranchesReturn(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	m := &ast.Module{Name: "t"}
	m.AddFunc(&ast.Func{
		Name:   "pick",
		Params: []ast.Param{{Name: "flag", Type: bi.Bool, Mode: ast.PassOwned}},
		Result: bi.Int,
		Body: []ast.Stmt{
			{Kind: ast.StmtIf, Data: ast.IfData{
				Cond: localRef("flag", bi.Bool),
				Then: []ast.Stmt{retStmt(intLit(1, bi.Int))},
				Else: []ast.Stmt{retStmt(intLit(2, bi.Int))},
			}},
		},
	})

	out, bag := lower(t, m, in)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	f := out.ByName("pick")
	if err := ValidateFunc(f); err != nil {
		t.Fatalf("ValidateFunc: %v", err)
	}

	entry := f.Block(f.Entry)
	if entry.Term.Kind != TermSwitchInt {
		t.Fatalf("entry terminator = %v, want SwitchInt", entry.Term.Kind)
	}
	for _, succ := range entry.Term.Successors(nil) {
		bt := &f.Blocks[succ].Term
		if bt.Kind != TermReturn || !bt.Return.HasValue {
			t.Fatalf("branch bb%d terminator = %v, want value-carrying return", succ, bt.Kind)
		}
	}

	reached := map[BlockID]bool{}
	stack := []BlockID{f.Entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		reached[id] = true
		stack = append(stack, f.Blocks[id].Term.Successors(nil)...)
	}
	// Both branches diverge: only the entry and the two return blocks are
	// live, and nothing reachable falls through to the synthesized join.
	if len(reached) != 3 {
		t.Fatalf("reachable blocks = %d, want 3 (entry + both returns)", len(reached))
	}
	if len(reached) == len(f.Blocks) {
		t.Fatal("expected an unreachable join block after the diverging if")
	}
	for id := range reached {
		if f.Blocks[id].Term.Kind == TermGoto {
			t.Fatalf("bb%d: goto on a path where every branch returns", id)
		}
	}
}

func TestBreakOutsideLoopReported(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	m := &ast.Module{Name: "t"}
	m.AddFunc(&ast.Func{
		Name:   "main",
		Result: bi.Unit,
		Body:   []ast.Stmt{{Kind: ast.StmtBreak, Data: ast.BreakData{}}},
	})

	_, bag := lower(t, m, in)
	if bag.Len() != 1 || bag.Items()[0].Code != diag.StructBreakOutsideLoop {
		t.Fatalf("diagnostics = %v, want [StructBreakOutsideLoop]", bag.Items())
	}
}

func TestContinueOutsideLoopReported(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	m := &ast.Module{Name: "t"}
	m.AddFunc(&ast.Func{
		Name:   "main",
		Result: bi.Unit,
		Body:   []ast.Stmt{{Kind: ast.StmtContinue, Data: ast.ContinueData{}}},
	})

	_, bag := lower(t, m, in)
	if bag.Len() != 1 || bag.Items()[0].Code != diag.StructContinueOutsideLoop {
		t.Fatalf("diagnostics = %v, want [StructContinueOutsideLoop]", bag.Items())
	}
}

func TestWhileLowersToSwitchWithBackedge(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	m := &ast.Module{Name: "t"}
	m.AddFunc(&ast.Func{
		Name:   "spin",
		Params: []ast.Param{{Name: "go", Type: bi.Bool, Mode: ast.PassOwned}},
		Result: bi.Unit,
		Body: []ast.Stmt{
			{Kind: ast.StmtWhile, Data: ast.WhileData{
				Cond: localRef("go", bi.Bool),
				Body: nil,
			}},
		},
	})

	out, bag := lower(t, m, in)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	f := out.ByName("spin")
	if err := ValidateFunc(f); err != nil {
		t.Fatalf("ValidateFunc: %v", err)
	}
	if len(terms(f, TermSwitchInt)) == 0 {
		t.Fatal("loop condition did not lower to a switch")
	}
}

func TestCallLowersToTerminator(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	m := &ast.Module{Name: "t"}
	m.AddFunc(&ast.Func{
		Name:   "inc",
		Params: []ast.Param{{Name: "n", Type: bi.Int, Mode: ast.PassOwned}},
		Result: bi.Int,
	})
	m.AddFunc(&ast.Func{
		Name:   "main",
		Result: bi.Int,
		Body: []ast.Stmt{
			retStmt(&ast.Expr{Kind: ast.ExprCall, Type: bi.Int, Data: ast.CallData{
				Callee: "inc", Args: []*ast.Expr{intLit(1, bi.Int)},
			}}),
		},
	})

	out, bag := lower(t, m, in)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	f := out.ByName("main")
	calls := terms(f, TermCall)
	if len(calls) != 1 {
		t.Fatalf("call terminators = %d, want 1", len(calls))
	}
	call := calls[0].Call
	if call.Callee.Name != "inc" || !call.HasDst {
		t.Fatalf("call = %+v, want inc with a destination", call)
	}
	if call.Next == NoBlockID || int(call.Next) >= len(f.Blocks) {
		t.Fatalf("call resumes at invalid block %d", call.Next)
	}
}

func TestMethodCallResolvesToImplName(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	m := &ast.Module{Name: "t"}
	m.Impls = append(m.Impls, &ast.ImplBlock{
		Target: bi.Int,
		Methods: []*ast.Func{{
			Name:   "show",
			Params: []ast.Param{{Name: "self", Type: bi.Int, Mode: ast.PassOwned}},
			Result: bi.Int,
			Body:   []ast.Stmt{retStmt(localRef("self", bi.Int))},
		}},
	})
	m.AddFunc(&ast.Func{
		Name:   "main",
		Params: []ast.Param{{Name: "n", Type: bi.Int, Mode: ast.PassOwned}},
		Result: bi.Int,
		Body: []ast.Stmt{
			retStmt(&ast.Expr{Kind: ast.ExprMethodCall, Type: bi.Int, Data: ast.MethodCallData{
				Recv: localRef("n", bi.Int), Method: "show",
			}}),
		},
	})

	out, bag := lower(t, m, in)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	want := MethodName(in, bi.Int, "show")
	if out.ByName(want) == nil {
		t.Fatalf("impl method not lowered under %q", want)
	}
	calls := terms(out.ByName("main"), TermCall)
	if len(calls) != 1 || calls[0].Call.Callee.Name != want {
		t.Fatalf("method call did not resolve to %q: %+v", want, calls)
	}
}

func TestSpawnLowersToRuntimeCall(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	m := &ast.Module{Name: "t"}
	m.AddFunc(&ast.Func{
		Name:   "work",
		Result: bi.Unit,
	})
	m.AddFunc(&ast.Func{
		Name:   "main",
		Result: bi.Unit,
		Body: []ast.Stmt{
			{Kind: ast.StmtExpr, Data: ast.ExprStmtData{Expr: &ast.Expr{
				Kind: ast.ExprSpawn,
				Type: bi.Unit,
				Data: ast.SpawnData{Call: &ast.Expr{
					Kind: ast.ExprCall, Type: bi.Unit, Data: ast.CallData{Callee: "work"},
				}},
			}}},
		},
	})

	out, bag := lower(t, m, in)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	calls := terms(out.ByName("main"), TermCall)
	if len(calls) != 1 || calls[0].Call.Callee.Name != RuntimeSpawn {
		t.Fatalf("spawn did not lower to %s: %+v", RuntimeSpawn, calls)
	}
}

func TestMatchEnumExhaustiveWithoutWildcard(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	colorID := in.AddNamed(types.NamedInfo{
		Kind: types.NamedEnum,
		Name: "Color",
		Variants: []types.Variant{
			{Name: "Red", Tag: 0},
			{Name: "Green", Tag: 1},
		},
		CopyOnPass: true,
	})
	color := in.MakeNamed(colorID, nil)

	m := &ast.Module{Name: "t"}
	m.AddFunc(&ast.Func{
		Name:   "main",
		Params: []ast.Param{{Name: "c", Type: color, Mode: ast.PassOwned}},
		Result: bi.Unit,
		Body: []ast.Stmt{
			{Kind: ast.StmtMatch, Data: ast.MatchData{
				Disc: localRef("c", color),
				Arms: []ast.MatchArm{
					{Value: 0, Tag: "Red"},
					{Value: 1, Tag: "Green"},
				},
			}},
		},
	})

	out, bag := lower(t, m, in)
	if bag.Len() != 0 {
		t.Fatalf("exhaustive match reported: %v", bag.Items())
	}
	f := out.ByName("main")
	if err := ValidateFunc(f); err != nil {
		t.Fatalf("ValidateFunc: %v", err)
	}
	switches := terms(f, TermSwitchInt)
	if len(switches) != 1 || len(switches[0].SwitchInt.Cases) != 2 {
		t.Fatalf("switch shape = %+v, want 2 cases", switches)
	}
	deadEdge := switches[0].SwitchInt.Default
	if f.Blocks[deadEdge].Term.Kind != TermUnreachable {
		t.Fatalf("default edge of an exhaustive match should be unreachable, got %v", f.Blocks[deadEdge].Term.Kind)
	}
}

func TestMatchOpenIntNeedsWildcard(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	m := &ast.Module{Name: "t"}
	m.AddFunc(&ast.Func{
		Name:   "main",
		Params: []ast.Param{{Name: "n", Type: bi.Int, Mode: ast.PassOwned}},
		Result: bi.Unit,
		Body: []ast.Stmt{
			{Kind: ast.StmtMatch, Data: ast.MatchData{
				Disc: localRef("n", bi.Int),
				Arms: []ast.MatchArm{{Value: 0}},
			}},
		},
	})

	_, bag := lower(t, m, in)
	if bag.Len() != 1 || bag.Items()[0].Code != diag.StructNonExhaustiveMatch {
		t.Fatalf("diagnostics = %v, want [StructNonExhaustiveMatch]", bag.Items())
	}
}
