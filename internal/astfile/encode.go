package astfile

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"starling/internal/ast"
	"starling/internal/types"
)

// Write serializes a resolved module and its type tables.
func Write(w io.Writer, m *ast.Module, in *types.Interner) error {
	return msgpack.NewEncoder(w).Encode(build(m, in))
}

func build(m *ast.Module, in *types.Interner) *File {
	f := &File{Schema: SchemaVersion, Module: encModule(m)}
	for id := 1; id < in.Len(); id++ {
		t := in.MustLookup(types.TypeID(id)) //nolint:gosec // G115: bounded by Len
		f.Types = append(f.Types, encType(t))
	}
	for id := 1; id < in.NamedLen(); id++ {
		info := in.Named(types.NamedID(id)) //nolint:gosec // G115: bounded by NamedLen
		f.Named = append(f.Named, encNamed(info))
	}
	return f
}

func encType(t types.Type) TypeRec {
	return TypeRec{
		Kind:    uint8(t.Kind),
		Elem:    uint32(t.Elem),
		Mutable: t.Mutable,
		Named:   uint32(t.Named),
		Args:    encTypeIDs(t.Args),
		Ordinal: t.Ordinal,
		Name:    t.Name,
	}
}

func encTypeIDs(ids []types.TypeID) []uint32 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}

func encNamed(info *types.NamedInfo) NamedRec {
	rec := NamedRec{
		Kind:       uint8(info.Kind),
		Name:       info.Name,
		TypeParams: info.TypeParams,
		CopyOnPass: info.CopyOnPass,
	}
	for _, fld := range info.Fields {
		rec.Fields = append(rec.Fields, FieldRec{Name: fld.Name, Type: uint32(fld.Type)})
	}
	for _, v := range info.Variants {
		rec.Variants = append(rec.Variants, VariantRec{Name: v.Name, Tag: v.Tag, Payload: encTypeIDs(v.Payload)})
	}
	return rec
}

func encModule(m *ast.Module) ModuleRec {
	rec := ModuleRec{Name: m.Name}
	for _, fn := range m.Funcs {
		if fn != nil {
			rec.Funcs = append(rec.Funcs, encFunc(fn))
		}
	}
	for _, tr := range m.Traits {
		if tr != nil {
			rec.Traits = append(rec.Traits, encTrait(tr))
		}
	}
	for _, im := range m.Impls {
		if im != nil {
			rec.Impls = append(rec.Impls, encImpl(im))
		}
	}
	return rec
}

func encFunc(fn *ast.Func) FuncRec {
	rec := FuncRec{Name: fn.Name, Result: uint32(fn.Result)}
	for _, p := range fn.Params {
		rec.Params = append(rec.Params, ParamRec{Name: p.Name, Type: uint32(p.Type), Mode: uint8(p.Mode)})
	}
	rec.TypeParams = encTypeParams(fn.TypeParams)
	rec.Body = encStmts(fn.Body)
	for _, c := range fn.Requires {
		rec.Requires = append(rec.Requires, ClauseRec{Kind: uint8(c.Kind), Expr: encExpr(c.Expr)})
	}
	for _, c := range fn.Ensures {
		rec.Ensures = append(rec.Ensures, ClauseRec{Kind: uint8(c.Kind), Expr: encExpr(c.Expr)})
	}
	for _, o := range fn.Outlives {
		rec.Outlives = append(rec.Outlives, OutlivesRec{Longer: o.Longer, Shorter: o.Shorter})
	}
	return rec
}

func encTypeParams(tps []ast.TypeParam) []TypeParamRec {
	if len(tps) == 0 {
		return nil
	}
	out := make([]TypeParamRec, len(tps))
	for i, tp := range tps {
		bounds := make([]uint32, 0, len(tp.Bounds))
		for _, b := range tp.Bounds {
			bounds = append(bounds, uint32(b))
		}
		out[i] = TypeParamRec{Name: tp.Name, Bounds: bounds}
	}
	return out
}

func encTrait(tr *ast.TraitDef) TraitRec {
	rec := TraitRec{Name: tr.Name}
	for _, m := range tr.Methods {
		rec.Methods = append(rec.Methods, MethodSigRec{
			Name:   m.Name,
			Params: encTypeIDs(m.Params),
			Result: uint32(m.Result),
		})
	}
	for _, ax := range tr.Axioms {
		rec.Axioms = append(rec.Axioms, AxiomRec{Name: ax.Name, Formula: encExpr(ax.Formula)})
	}
	return rec
}

func encImpl(im *ast.ImplBlock) ImplRec {
	rec := ImplRec{Trait: uint32(im.Trait), Target: uint32(im.Target), TypeParams: encTypeParams(im.TypeParams)}
	for _, m := range im.Methods {
		if m != nil {
			rec.Methods = append(rec.Methods, encFunc(m))
		}
	}
	return rec
}

func encStmts(body []ast.Stmt) []StmtRec {
	if len(body) == 0 {
		return nil
	}
	out := make([]StmtRec, len(body))
	for i := range body {
		out[i] = encStmt(&body[i])
	}
	return out
}

func encStmt(s *ast.Stmt) StmtRec {
	rec := StmtRec{Kind: uint8(s.Kind)}
	switch s.Kind {
	case ast.StmtLet:
		data := s.Data.(ast.LetData)
		rec.Name = data.Name
		rec.Type = uint32(data.Type)
		rec.Mut = data.IsMut
		rec.E1 = encExpr(data.Value)
	case ast.StmtAssign:
		data := s.Data.(ast.AssignData)
		rec.E1 = encExpr(data.Target)
		rec.E2 = encExpr(data.Value)
	case ast.StmtExpr:
		rec.E1 = encExpr(s.Data.(ast.ExprStmtData).Expr)
	case ast.StmtIf:
		data := s.Data.(ast.IfData)
		rec.E1 = encExpr(data.Cond)
		rec.Body = encStmts(data.Then)
		rec.Else = encStmts(data.Else)
	case ast.StmtWhile:
		data := s.Data.(ast.WhileData)
		rec.E1 = encExpr(data.Cond)
		rec.Body = encStmts(data.Body)
	case ast.StmtFor:
		data := s.Data.(ast.ForData)
		if data.Init != nil {
			init := encStmt(data.Init)
			rec.Init = &init
		}
		rec.E1 = encExpr(data.Cond)
		if data.Post != nil {
			post := encStmt(data.Post)
			rec.Post = &post
		}
		rec.Body = encStmts(data.Body)
	case ast.StmtMatch:
		data := s.Data.(ast.MatchData)
		rec.E1 = encExpr(data.Disc)
		for _, arm := range data.Arms {
			rec.Arms = append(rec.Arms, ArmRec{
				Wildcard: arm.Wildcard,
				Value:    arm.Value,
				Tag:      arm.Tag,
				Body:     encStmts(arm.Body),
			})
		}
	case ast.StmtReturn:
		rec.E1 = encExpr(s.Data.(ast.ReturnData).Value)
	case ast.StmtBlock:
		rec.Body = encStmts(s.Data.(ast.BlockData).Body)
	}
	return rec
}

func encExprs(list []*ast.Expr) []*ExprRec {
	if len(list) == 0 {
		return nil
	}
	out := make([]*ExprRec, len(list))
	for i, e := range list {
		out[i] = encExpr(e)
	}
	return out
}

func encExpr(e *ast.Expr) *ExprRec {
	if e == nil {
		return nil
	}
	rec := &ExprRec{Kind: uint8(e.Kind), Type: uint32(e.Type)}
	switch e.Kind {
	case ast.ExprIntLit:
		rec.Int = e.Data.(ast.IntLitData).Value
	case ast.ExprBoolLit:
		rec.Bool = e.Data.(ast.BoolLitData).Value
	case ast.ExprFloatLit:
		rec.Float = e.Data.(ast.FloatLitData).Value
	case ast.ExprStringLit:
		rec.Str = e.Data.(ast.StringLitData).Value
	case ast.ExprLocalRef:
		rec.Name = e.Data.(ast.LocalRefData).Name
	case ast.ExprField:
		data := e.Data.(ast.FieldData)
		rec.X = encExpr(data.Object)
		rec.Name = data.Name
		rec.Index = data.Index
	case ast.ExprIndex:
		data := e.Data.(ast.IndexData)
		rec.X = encExpr(data.Object)
		rec.Y = encExpr(data.Index)
	case ast.ExprUnary:
		data := e.Data.(ast.UnaryData)
		rec.Op = uint8(data.Op)
		rec.X = encExpr(data.Operand)
	case ast.ExprBinary:
		data := e.Data.(ast.BinaryData)
		rec.Op = uint8(data.Op)
		rec.X = encExpr(data.Left)
		rec.Y = encExpr(data.Right)
	case ast.ExprCall:
		data := e.Data.(ast.CallData)
		rec.Name = data.Callee
		rec.TypeArgs = encTypeIDs(data.TypeArgs)
		rec.Args = encExprs(data.Args)
	case ast.ExprMethodCall:
		data := e.Data.(ast.MethodCallData)
		rec.X = encExpr(data.Recv)
		rec.Name = data.Method
		rec.Args = encExprs(data.Args)
	case ast.ExprStructLit:
		data := e.Data.(ast.StructLitData)
		rec.Target = uint32(data.Type)
		for _, fld := range data.Fields {
			rec.Fields = append(rec.Fields, LitFieldRec{Name: fld.Name, Value: encExpr(fld.Value)})
		}
	case ast.ExprCast:
		data := e.Data.(ast.CastData)
		rec.X = encExpr(data.Value)
		rec.Target = uint32(data.Target)
	case ast.ExprSpawn:
		rec.X = encExpr(e.Data.(ast.SpawnData).Call)
	case ast.ExprAwait:
		rec.X = encExpr(e.Data.(ast.AwaitData).Task)
	}
	return rec
}
