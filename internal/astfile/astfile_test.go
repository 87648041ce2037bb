package astfile

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"starling/internal/ast"
	"starling/internal/driver"
	"starling/internal/mir"
	"starling/internal/types"
)

func intLit(v int64, t types.TypeID) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprIntLit, Type: t, Data: ast.IntLitData{Value: v}}
}

func localRef(name string, t types.TypeID) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLocalRef, Type: t, Data: ast.LocalRefData{Name: name}}
}

func binary(op ast.BinaryOp, t types.TypeID, l, r *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprBinary, Type: t, Data: ast.BinaryData{Op: op, Left: l, Right: r}}
}

func retStmt(e *ast.Expr) ast.Stmt {
	return ast.Stmt{Kind: ast.StmtReturn, Data: ast.ReturnData{Value: e}}
}

// sampleModule exercises every record family: a named struct, a trait
// with an axiom, an impl, a bounded generic and control flow in main.
func sampleModule(in *types.Interner) *ast.Module {
	bi := in.Builtins()
	pairID := in.AddNamed(types.NamedInfo{
		Kind: types.NamedStruct,
		Name: "Pair",
		Fields: []types.Field{
			{Name: "a", Type: bi.Int},
			{Name: "b", Type: bi.Int},
		},
		CopyOnPass: true,
	})
	pair := in.MakeNamed(pairID, nil)
	tparam := in.MakeParam(0, "T")

	m := &ast.Module{Name: "sample"}
	m.Traits = append(m.Traits, &ast.TraitDef{
		ID:   1,
		Name: "Show",
		Methods: []ast.MethodSig{
			{Name: "show", Params: []types.TypeID{ast.SelfType(in)}, Result: bi.Int},
		},
		Axioms: []ast.Axiom{
			{Name: "show_total", Formula: binary(ast.BinaryEq, bi.Bool, intLit(0, bi.Int), intLit(0, bi.Int))},
		},
	})
	m.Impls = append(m.Impls, &ast.ImplBlock{
		Trait:  1,
		Target: bi.Int,
		Methods: []*ast.Func{{
			Name:   "show",
			Params: []ast.Param{{Name: "self", Type: bi.Int, Mode: ast.PassOwned}},
			Result: bi.Int,
			Body:   []ast.Stmt{retStmt(localRef("self", bi.Int))},
		}},
	})
	m.AddFunc(&ast.Func{
		Name:       "first",
		Params:     []ast.Param{{Name: "x", Type: tparam, Mode: ast.PassOwned}},
		Result:     tparam,
		TypeParams: []ast.TypeParam{{Name: "T", Bounds: []ast.TraitID{1}}},
		Body:       []ast.Stmt{retStmt(localRef("x", tparam))},
	})
	m.AddFunc(&ast.Func{
		Name:   "main",
		Result: bi.Int,
		Body: []ast.Stmt{
			{Kind: ast.StmtLet, Data: ast.LetData{Name: "p", Type: pair, Value: &ast.Expr{
				Kind: ast.ExprStructLit,
				Type: pair,
				Data: ast.StructLitData{Type: pair, Fields: []ast.StructLitField{
					{Name: "a", Value: intLit(40, bi.Int)},
					{Name: "b", Value: intLit(2, bi.Int)},
				}},
			}}},
			{Kind: ast.StmtLet, Data: ast.LetData{Name: "n", Type: bi.Int, Value: &ast.Expr{
				Kind: ast.ExprCall,
				Type: bi.Int,
				Data: ast.CallData{Callee: "first", Args: []*ast.Expr{{
					Kind: ast.ExprField,
					Type: bi.Int,
					Data: ast.FieldData{Object: localRef("p", pair), Name: "a", Index: 0},
				}}},
			}}},
			{Kind: ast.StmtIf, Data: ast.IfData{
				Cond: binary(ast.BinaryGt, bi.Bool, localRef("n", bi.Int), intLit(0, bi.Int)),
				Then: []ast.Stmt{retStmt(binary(ast.BinaryAdd, bi.Int, localRef("n", bi.Int), intLit(2, bi.Int)))},
			}},
			retStmt(intLit(0, bi.Int)),
		},
	})
	return m
}

func compileDump(t *testing.T, m *ast.Module, in *types.Interner) string {
	t.Helper()
	res, err := driver.Compile(context.Background(), m, in, driver.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Bag.Items())
	}
	var b strings.Builder
	mir.DumpModule(&b, res.Module, in)
	return b.String()
}

func TestRoundtripPreservesCompilation(t *testing.T) {
	in := types.NewInterner()
	m := sampleModule(in)

	var buf bytes.Buffer
	if err := Write(&buf, m, in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	decoded, decodedIn, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if decodedIn.Len() != in.Len() {
		t.Fatalf("type table replay: %d entries, want %d", decodedIn.Len(), in.Len())
	}
	want := compileDump(t, m, in)
	got := compileDump(t, decoded, decodedIn)
	if got != want {
		t.Fatalf("decoded module compiles differently\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestRoundtripKeepsTraitTable(t *testing.T) {
	in := types.NewInterner()
	m := sampleModule(in)

	var buf bytes.Buffer
	if err := Write(&buf, m, in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	decoded, _, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	tr := decoded.Trait(1)
	if tr == nil || tr.Name != "Show" {
		t.Fatalf("trait 1 = %+v, want Show", tr)
	}
	if len(tr.Axioms) != 1 || tr.Axioms[0].Name != "show_total" {
		t.Fatalf("axioms not preserved: %+v", tr.Axioms)
	}
	if len(decoded.Impls) != 1 || decoded.Impls[0].Trait != 1 {
		t.Fatalf("impl table not preserved: %+v", decoded.Impls)
	}
	fn := decoded.FuncByName("first")
	if fn == nil || len(fn.TypeParams) != 1 || len(fn.TypeParams[0].Bounds) != 1 {
		t.Fatalf("generic signature not preserved: %+v", fn)
	}
}

func TestSchemaMismatchRejected(t *testing.T) {
	in := types.NewInterner()
	f := build(sampleModule(in), in)
	f.Schema = SchemaVersion + 1

	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(f); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, _, err := Read(&buf); err == nil {
		t.Fatal("expected schema mismatch error")
	}
}

func TestCorruptTypeTableRejected(t *testing.T) {
	in := types.NewInterner()
	f := build(sampleModule(in), in)
	if len(f.Types) < 2 {
		t.Fatal("sample module interned too few types")
	}
	f.Types[0], f.Types[1] = f.Types[1], f.Types[0]

	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(f); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, _, err := Read(&buf); err == nil {
		t.Fatal("expected replay mismatch error")
	}
}
