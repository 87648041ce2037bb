package astfile

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"starling/internal/ast"
	"starling/internal/types"
)

// Read decodes an artifact and rebuilds the module plus a fresh
// interner. TypeIDs in the decoded module are valid against the
// returned interner only: both sides assign ids sequentially, so
// replaying the tables in order reproduces them.
func Read(r io.Reader) (*ast.Module, *types.Interner, error) {
	var f File
	if err := msgpack.NewDecoder(r).Decode(&f); err != nil {
		return nil, nil, fmt.Errorf("astfile: decode: %w", err)
	}
	if f.Schema != SchemaVersion {
		return nil, nil, fmt.Errorf("astfile: schema %d, expected %d", f.Schema, SchemaVersion)
	}

	in := types.NewInterner()
	// Named declarations first: type entries may reference them, and
	// AddNamed never inspects field types, so forward TypeIDs are fine.
	for i, rec := range f.Named {
		id := in.AddNamed(decNamed(rec))
		if want := types.NamedID(i + 1); id != want { //nolint:gosec // G115: table index
			return nil, nil, fmt.Errorf("astfile: named table replay gave id %d, expected %d", id, want)
		}
	}
	for i, rec := range f.Types {
		want := types.TypeID(i + 1) //nolint:gosec // G115: table index
		if rec.Kind == uint8(types.KindInvalid) || rec.Kind > uint8(types.KindParam) {
			return nil, nil, fmt.Errorf("astfile: type %d has kind %d", want, rec.Kind)
		}
		got := in.Intern(decType(rec))
		if got != want {
			return nil, nil, fmt.Errorf("astfile: type table replay gave id %d, expected %d", got, want)
		}
	}

	m, err := decModule(f.Module)
	if err != nil {
		return nil, nil, err
	}
	return m, in, nil
}

func decType(rec TypeRec) types.Type {
	return types.Type{
		Kind:    types.Kind(rec.Kind),
		Elem:    types.TypeID(rec.Elem),
		Mutable: rec.Mutable,
		Named:   types.NamedID(rec.Named),
		Args:    decTypeIDs(rec.Args),
		Ordinal: rec.Ordinal,
		Name:    rec.Name,
	}
}

func decTypeIDs(ids []uint32) []types.TypeID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]types.TypeID, len(ids))
	for i, id := range ids {
		out[i] = types.TypeID(id)
	}
	return out
}

func decNamed(rec NamedRec) types.NamedInfo {
	info := types.NamedInfo{
		Kind:       types.NamedKind(rec.Kind),
		Name:       rec.Name,
		TypeParams: rec.TypeParams,
		CopyOnPass: rec.CopyOnPass,
	}
	for _, fld := range rec.Fields {
		info.Fields = append(info.Fields, types.Field{Name: fld.Name, Type: types.TypeID(fld.Type)})
	}
	for _, v := range rec.Variants {
		info.Variants = append(info.Variants, types.Variant{Name: v.Name, Tag: v.Tag, Payload: decTypeIDs(v.Payload)})
	}
	return info
}

func decModule(rec ModuleRec) (*ast.Module, error) {
	m := &ast.Module{Name: rec.Name}
	for i := range rec.Funcs {
		fn, err := decFunc(&rec.Funcs[i])
		if err != nil {
			return nil, err
		}
		m.Funcs = append(m.Funcs, fn)
	}
	for i := range rec.Traits {
		tr, err := decTrait(&rec.Traits[i])
		if err != nil {
			return nil, err
		}
		tr.ID = ast.TraitID(i + 1) //nolint:gosec // G115: table index
		m.Traits = append(m.Traits, tr)
	}
	for i := range rec.Impls {
		im, err := decImpl(&rec.Impls[i])
		if err != nil {
			return nil, err
		}
		m.Impls = append(m.Impls, im)
	}
	return m, nil
}

func decFunc(rec *FuncRec) (*ast.Func, error) {
	fn := &ast.Func{
		Name:       rec.Name,
		Result:     types.TypeID(rec.Result),
		TypeParams: decTypeParams(rec.TypeParams),
	}
	for _, p := range rec.Params {
		if p.Mode > uint8(ast.PassRefMut) {
			return nil, fmt.Errorf("astfile: func %q: parameter %q has pass mode %d", rec.Name, p.Name, p.Mode)
		}
		fn.Params = append(fn.Params, ast.Param{Name: p.Name, Type: types.TypeID(p.Type), Mode: ast.PassMode(p.Mode)})
	}
	body, err := decStmts(rec.Body)
	if err != nil {
		return nil, fmt.Errorf("astfile: func %q: %w", rec.Name, err)
	}
	fn.Body = body
	for _, c := range rec.Requires {
		expr, err := decExpr(c.Expr)
		if err != nil {
			return nil, fmt.Errorf("astfile: func %q requires: %w", rec.Name, err)
		}
		fn.Requires = append(fn.Requires, ast.ContractClause{Kind: ast.ContractKind(c.Kind), Expr: expr})
	}
	for _, c := range rec.Ensures {
		expr, err := decExpr(c.Expr)
		if err != nil {
			return nil, fmt.Errorf("astfile: func %q ensures: %w", rec.Name, err)
		}
		fn.Ensures = append(fn.Ensures, ast.ContractClause{Kind: ast.ContractKind(c.Kind), Expr: expr})
	}
	for _, o := range rec.Outlives {
		fn.Outlives = append(fn.Outlives, ast.OutlivesClause{Longer: o.Longer, Shorter: o.Shorter})
	}
	return fn, nil
}

func decTypeParams(recs []TypeParamRec) []ast.TypeParam {
	if len(recs) == 0 {
		return nil
	}
	out := make([]ast.TypeParam, len(recs))
	for i, rec := range recs {
		bounds := make([]ast.TraitID, 0, len(rec.Bounds))
		for _, b := range rec.Bounds {
			bounds = append(bounds, ast.TraitID(b))
		}
		out[i] = ast.TypeParam{Name: rec.Name, Bounds: bounds}
	}
	return out
}

func decTrait(rec *TraitRec) (*ast.TraitDef, error) {
	tr := &ast.TraitDef{Name: rec.Name}
	for _, m := range rec.Methods {
		tr.Methods = append(tr.Methods, ast.MethodSig{
			Name:   m.Name,
			Params: decTypeIDs(m.Params),
			Result: types.TypeID(m.Result),
		})
	}
	for _, ax := range rec.Axioms {
		formula, err := decExpr(ax.Formula)
		if err != nil {
			return nil, fmt.Errorf("astfile: trait %q axiom %q: %w", rec.Name, ax.Name, err)
		}
		tr.Axioms = append(tr.Axioms, ast.Axiom{Name: ax.Name, Formula: formula})
	}
	return tr, nil
}

func decImpl(rec *ImplRec) (*ast.ImplBlock, error) {
	im := &ast.ImplBlock{
		Trait:      ast.TraitID(rec.Trait),
		Target:     types.TypeID(rec.Target),
		TypeParams: decTypeParams(rec.TypeParams),
	}
	for i := range rec.Methods {
		fn, err := decFunc(&rec.Methods[i])
		if err != nil {
			return nil, err
		}
		im.Methods = append(im.Methods, fn)
	}
	return im, nil
}

func decStmts(recs []StmtRec) ([]ast.Stmt, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	out := make([]ast.Stmt, len(recs))
	for i := range recs {
		s, err := decStmt(&recs[i])
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func decStmt(rec *StmtRec) (ast.Stmt, error) {
	s := ast.Stmt{Kind: ast.StmtKind(rec.Kind)}
	switch s.Kind {
	case ast.StmtLet:
		value, err := decExpr(rec.E1)
		if err != nil {
			return s, err
		}
		s.Data = ast.LetData{Name: rec.Name, Type: types.TypeID(rec.Type), IsMut: rec.Mut, Value: value}
	case ast.StmtAssign:
		target, err := decExpr(rec.E1)
		if err != nil {
			return s, err
		}
		value, err := decExpr(rec.E2)
		if err != nil {
			return s, err
		}
		s.Data = ast.AssignData{Target: target, Value: value}
	case ast.StmtExpr:
		expr, err := decExpr(rec.E1)
		if err != nil {
			return s, err
		}
		s.Data = ast.ExprStmtData{Expr: expr}
	case ast.StmtIf:
		cond, err := decExpr(rec.E1)
		if err != nil {
			return s, err
		}
		then, err := decStmts(rec.Body)
		if err != nil {
			return s, err
		}
		els, err := decStmts(rec.Else)
		if err != nil {
			return s, err
		}
		s.Data = ast.IfData{Cond: cond, Then: then, Else: els}
	case ast.StmtWhile:
		cond, err := decExpr(rec.E1)
		if err != nil {
			return s, err
		}
		body, err := decStmts(rec.Body)
		if err != nil {
			return s, err
		}
		s.Data = ast.WhileData{Cond: cond, Body: body}
	case ast.StmtFor:
		data := ast.ForData{}
		if rec.Init != nil {
			init, err := decStmt(rec.Init)
			if err != nil {
				return s, err
			}
			data.Init = &init
		}
		cond, err := decExpr(rec.E1)
		if err != nil {
			return s, err
		}
		data.Cond = cond
		if rec.Post != nil {
			post, err := decStmt(rec.Post)
			if err != nil {
				return s, err
			}
			data.Post = &post
		}
		data.Body, err = decStmts(rec.Body)
		if err != nil {
			return s, err
		}
		s.Data = data
	case ast.StmtMatch:
		disc, err := decExpr(rec.E1)
		if err != nil {
			return s, err
		}
		data := ast.MatchData{Disc: disc}
		for i := range rec.Arms {
			body, err := decStmts(rec.Arms[i].Body)
			if err != nil {
				return s, err
			}
			data.Arms = append(data.Arms, ast.MatchArm{
				Wildcard: rec.Arms[i].Wildcard,
				Value:    rec.Arms[i].Value,
				Tag:      rec.Arms[i].Tag,
				Body:     body,
			})
		}
		s.Data = data
	case ast.StmtReturn:
		value, err := decExpr(rec.E1)
		if err != nil {
			return s, err
		}
		s.Data = ast.ReturnData{Value: value}
	case ast.StmtBreak:
		s.Data = ast.BreakData{}
	case ast.StmtContinue:
		s.Data = ast.ContinueData{}
	case ast.StmtBlock:
		body, err := decStmts(rec.Body)
		if err != nil {
			return s, err
		}
		s.Data = ast.BlockData{Body: body}
	default:
		return s, fmt.Errorf("statement kind %d", rec.Kind)
	}
	return s, nil
}

func decExprs(recs []*ExprRec) ([]*ast.Expr, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	out := make([]*ast.Expr, len(recs))
	for i, rec := range recs {
		e, err := decExpr(rec)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func decExpr(rec *ExprRec) (*ast.Expr, error) {
	if rec == nil {
		return nil, nil
	}
	e := &ast.Expr{Kind: ast.ExprKind(rec.Kind), Type: types.TypeID(rec.Type)}
	switch e.Kind {
	case ast.ExprIntLit:
		e.Data = ast.IntLitData{Value: rec.Int}
	case ast.ExprBoolLit:
		e.Data = ast.BoolLitData{Value: rec.Bool}
	case ast.ExprFloatLit:
		e.Data = ast.FloatLitData{Value: rec.Float}
	case ast.ExprStringLit:
		e.Data = ast.StringLitData{Value: rec.Str}
	case ast.ExprLocalRef:
		e.Data = ast.LocalRefData{Name: rec.Name}
	case ast.ExprField:
		obj, err := decExpr(rec.X)
		if err != nil {
			return nil, err
		}
		e.Data = ast.FieldData{Object: obj, Name: rec.Name, Index: rec.Index}
	case ast.ExprIndex:
		obj, err := decExpr(rec.X)
		if err != nil {
			return nil, err
		}
		idx, err := decExpr(rec.Y)
		if err != nil {
			return nil, err
		}
		e.Data = ast.IndexData{Object: obj, Index: idx}
	case ast.ExprUnary:
		operand, err := decExpr(rec.X)
		if err != nil {
			return nil, err
		}
		e.Data = ast.UnaryData{Op: ast.UnaryOp(rec.Op), Operand: operand}
	case ast.ExprBinary:
		left, err := decExpr(rec.X)
		if err != nil {
			return nil, err
		}
		right, err := decExpr(rec.Y)
		if err != nil {
			return nil, err
		}
		e.Data = ast.BinaryData{Op: ast.BinaryOp(rec.Op), Left: left, Right: right}
	case ast.ExprCall:
		args, err := decExprs(rec.Args)
		if err != nil {
			return nil, err
		}
		e.Data = ast.CallData{Callee: rec.Name, TypeArgs: decTypeIDs(rec.TypeArgs), Args: args}
	case ast.ExprMethodCall:
		recv, err := decExpr(rec.X)
		if err != nil {
			return nil, err
		}
		args, err := decExprs(rec.Args)
		if err != nil {
			return nil, err
		}
		e.Data = ast.MethodCallData{Recv: recv, Method: rec.Name, Args: args}
	case ast.ExprStructLit:
		data := ast.StructLitData{Type: types.TypeID(rec.Target)}
		for _, fld := range rec.Fields {
			value, err := decExpr(fld.Value)
			if err != nil {
				return nil, err
			}
			data.Fields = append(data.Fields, ast.StructLitField{Name: fld.Name, Value: value})
		}
		e.Data = data
	case ast.ExprCast:
		value, err := decExpr(rec.X)
		if err != nil {
			return nil, err
		}
		e.Data = ast.CastData{Value: value, Target: types.TypeID(rec.Target)}
	case ast.ExprSpawn:
		call, err := decExpr(rec.X)
		if err != nil {
			return nil, err
		}
		e.Data = ast.SpawnData{Call: call}
	case ast.ExprAwait:
		task, err := decExpr(rec.X)
		if err != nil {
			return nil, err
		}
		e.Data = ast.AwaitData{Task: task}
	default:
		return nil, fmt.Errorf("expression kind %d", rec.Kind)
	}
	return e, nil
}
