package driver

import (
	"context"
	"strings"
	"testing"

	"starling/internal/ast"
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

func retStmt(e *ast.Expr) ast.Stmt {
	return ast.Stmt{Kind: ast.StmtReturn, Data: ast.ReturnData{Value: e}}
}

// genericModule is a small program exercising the whole pipeline: a
// generic identity, a concrete caller and an arithmetic tail the
// optimizer can fold.
func genericModule(in *types.Interner) *ast.Module {
	bi := in.Builtins()
	tparam := in.MakeParam(0, "T")
	mod := &ast.Module{Name: "main"}
	mod.AddFunc(&ast.Func{
		Name:       "id",
		TypeParams: []ast.TypeParam{{Name: "T"}},
		Params:     []ast.Param{{Name: "x", Type: tparam, Mode: ast.PassOwned}},
		Result:     tparam,
		Body:       []ast.Stmt{retStmt(localRef("x", tparam))},
	})
	mod.AddFunc(&ast.Func{
		Name:   "main",
		Result: bi.Int,
		Body: []ast.Stmt{
			retStmt(&ast.Expr{Kind: ast.ExprCall, Type: bi.Int, Data: ast.CallData{
				Callee:   "id",
				TypeArgs: []types.TypeID{bi.Int},
				Args:     []*ast.Expr{intLit(40, bi.Int)},
			}}),
		},
	})
	return mod
}

func TestCompileCleanModule(t *testing.T) {
	in := types.NewInterner()
	res, err := Compile(context.Background(), genericModule(in), in, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Bag.Items())
	}
	if res.Module == nil {
		t.Fatalf("clean compile produced no module")
	}
	if res.Module.ByName("main") == nil {
		t.Fatalf("main missing from output")
	}
	if err := mir.Validate(res.Module); err != nil {
		t.Fatalf("output module invalid: %v", err)
	}
}

func TestCompileStopsOnOwnershipError(t *testing.T) {
	in := types.NewInterner()
	bi := in.Builtins()
	bufID := in.AddNamed(types.NamedInfo{
		Kind:   types.NamedStruct,
		Name:   "Buf",
		Fields: []types.Field{{Name: "len", Type: bi.Int}},
	})
	buf := in.MakeNamed(bufID, nil)

	mod := &ast.Module{Name: "main"}
	mod.AddFunc(&ast.Func{
		Name:   "consume",
		Params: []ast.Param{{Name: "b", Type: buf, Mode: ast.PassOwned}},
		Result: bi.Unit,
		Body:   []ast.Stmt{{Kind: ast.StmtReturn, Data: ast.ReturnData{}}},
	})
	// s is consumed, then used again.
	mod.AddFunc(&ast.Func{
		Name:   "oops",
		Params: []ast.Param{{Name: "v", Type: buf, Mode: ast.PassOwned}},
		Result: bi.Int,
		Body: []ast.Stmt{
			{Kind: ast.StmtLet, Data: ast.LetData{Name: "s", Type: buf, Value: localRef("v", buf)}},
			{Kind: ast.StmtExpr, Data: ast.ExprStmtData{Expr: &ast.Expr{
				Kind: ast.ExprCall, Type: bi.Unit, Data: ast.CallData{
					Callee: "consume", Args: []*ast.Expr{localRef("s", buf)},
				},
			}}},
			retStmt(&ast.Expr{Kind: ast.ExprField, Type: bi.Int, Data: ast.FieldData{
				Object: localRef("s", buf), Name: "len", Index: 0,
			}}),
		},
	})

	res, err := Compile(context.Background(), mod, in, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Module != nil {
		t.Fatalf("pipeline finished despite ownership errors")
	}
	moves := 0
	for _, d := range res.Bag.Items() {
		if d.Code == diag.OwnUseAfterMove {
			moves++
		}
	}
	if moves != 1 {
		t.Fatalf("OwnUseAfterMove reported %d times, want exactly 1", moves)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	dump := func(jobs int) string {
		in := types.NewInterner()
		res, err := Compile(context.Background(), genericModule(in), in, Options{Jobs: jobs})
		if err != nil {
			t.Fatalf("Compile(jobs=%d): %v", jobs, err)
		}
		if res.Module == nil {
			t.Fatalf("Compile(jobs=%d) produced no module", jobs)
		}
		var b strings.Builder
		mir.DumpModule(&b, res.Module, in)
		return b.String()
	}

	serial := dump(1)
	parallel := dump(8)
	if serial != parallel {
		t.Fatalf("parallel output differs from serial:\n--- serial ---\n%s\n--- parallel ---\n%s", serial, parallel)
	}
}
