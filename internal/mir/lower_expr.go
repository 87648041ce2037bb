package mir

import (
	"fmt"

	"starling/internal/ast"
	"starling/internal/diag"
	"starling/internal/types"
)

// lowerExpr lowers e and returns the operand holding its value. consume
// marks reads that take ownership (let initializers, owned call args);
// non-consuming reads always copy.
func (l *funcLowerer) lowerExpr(e *ast.Expr, consume bool) Operand {
	if l.err != nil || e == nil {
		return Operand{}
	}
	switch e.Kind {
	case ast.ExprIntLit:
		data := e.Data.(ast.IntLitData)
		return ConstOperand(Const{Kind: ConstInt, Type: e.Type, IntValue: data.Value})
	case ast.ExprBoolLit:
		data := e.Data.(ast.BoolLitData)
		return ConstOperand(Const{Kind: ConstBool, Type: e.Type, BoolValue: data.Value})
	case ast.ExprFloatLit:
		data := e.Data.(ast.FloatLitData)
		return ConstOperand(Const{Kind: ConstFloat, Type: e.Type, FloatValue: data.Value})
	case ast.ExprStringLit:
		data := e.Data.(ast.StringLitData)
		return ConstOperand(Const{Kind: ConstString, Type: e.Type, StringValue: data.Value})
	case ast.ExprLocalRef, ast.ExprField, ast.ExprIndex:
		place, ok := l.lowerPlace(e)
		if !ok {
			return Operand{}
		}
		return l.placeOperand(place, e.Type, consume)
	case ast.ExprUnary:
		data := e.Data.(ast.UnaryData)
		operand := l.lowerExpr(data.Operand, false)
		tmp := l.newTemp(e.Type, "un", e.Span)
		l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{
			Dst: Place{Local: tmp},
			Src: RValue{Kind: RValueUnary, Unary: UnaryOp{Op: data.Op, Operand: operand}},
		}})
		return CopyOperand(Place{Local: tmp}, e.Type)
	case ast.ExprBinary:
		data := e.Data.(ast.BinaryData)
		left := l.lowerExpr(data.Left, false)
		right := l.lowerExpr(data.Right, false)
		tmp := l.newTemp(e.Type, "bin", e.Span)
		l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{
			Dst: Place{Local: tmp},
			Src: RValue{Kind: RValueBinary, Binary: BinaryOp{Op: data.Op, Left: left, Right: right}},
		}})
		return CopyOperand(Place{Local: tmp}, e.Type)
	case ast.ExprCall:
		return l.lowerCall(e)
	case ast.ExprMethodCall:
		return l.lowerMethodCall(e)
	case ast.ExprStructLit:
		data := e.Data.(ast.StructLitData)
		agg := Aggregate{Type: data.Type}
		for i, f := range data.Fields {
			agg.Fields = append(agg.Fields, AggregateField{
				Name:  f.Name,
				Idx:   i,
				Value: l.lowerExpr(f.Value, true),
			})
		}
		tmp := l.newTemp(e.Type, "agg", e.Span)
		l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{
			Dst: Place{Local: tmp},
			Src: RValue{Kind: RValueAggregate, Aggregate: agg},
		}})
		return l.placeOperand(Place{Local: tmp}, e.Type, consume)
	case ast.ExprCast:
		data := e.Data.(ast.CastData)
		val := l.lowerExpr(data.Value, false)
		tmp := l.newTemp(e.Type, "cast", e.Span)
		l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{
			Dst: Place{Local: tmp},
			Src: RValue{Kind: RValueCast, Cast: CastOp{Value: val, TargetTy: data.Target}},
		}})
		return CopyOperand(Place{Local: tmp}, e.Type)
	case ast.ExprSpawn:
		return l.lowerSpawn(e)
	case ast.ExprAwait:
		data := e.Data.(ast.AwaitData)
		task := l.lowerExpr(data.Task, true)
		return l.emitCall(FuncRef{Name: RuntimeAwait}, []Operand{task}, e.Type, e)
	default:
		l.fail(fmt.Errorf("mir: unhandled expression kind %d", e.Kind))
		return Operand{}
	}
}

func (l *funcLowerer) placeOperand(p Place, t types.TypeID, consume bool) Operand {
	if consume && l.types != nil && !l.types.IsCopyOnPass(t) {
		return MoveOperand(p, t)
	}
	return CopyOperand(p, t)
}

// lowerPlace resolves a place expression into a base local plus
// projections. Index operands are evaluated into fresh temps.
func (l *funcLowerer) lowerPlace(e *ast.Expr) (Place, bool) {
	switch e.Kind {
	case ast.ExprLocalRef:
		data := e.Data.(ast.LocalRefData)
		local, ok := l.lookupLocal(data.Name)
		if !ok {
			// Names are resolved upstream; an unknown one is a core bug.
			l.fail(fmt.Errorf("mir: reference to unknown local %q", data.Name))
			return Place{}, false
		}
		return Place{Local: local}, true
	case ast.ExprField:
		data := e.Data.(ast.FieldData)
		base, ok := l.lowerPlace(data.Object)
		if !ok {
			return Place{}, false
		}
		base.Proj = append(base.Proj, PlaceProj{
			Kind:      PlaceProjField,
			FieldName: data.Name,
			FieldIdx:  data.Index,
		})
		return base, true
	case ast.ExprIndex:
		data := e.Data.(ast.IndexData)
		base, ok := l.lowerPlace(data.Object)
		if !ok {
			return Place{}, false
		}
		idx := l.lowerExpr(data.Index, false)
		tmp := l.newTemp(idx.Type, "idx", e.Span)
		l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{
			Dst: Place{Local: tmp},
			Src: RValue{Kind: RValueUse, Use: idx},
		}})
		base.Proj = append(base.Proj, PlaceProj{Kind: PlaceProjIndex, IndexLocal: tmp})
		return base, true
	default:
		l.fail(fmt.Errorf("mir: expression kind %d is not a place", e.Kind))
		return Place{}, false
	}
}

func (l *funcLowerer) lowerCall(e *ast.Expr) Operand {
	data := e.Data.(ast.CallData)
	callee := l.mod.FuncByName(data.Callee)
	args := make([]Operand, 0, len(data.Args))
	for i, a := range data.Args {
		consume := true
		if callee != nil && i < len(callee.Params) {
			consume = callee.Params[i].Mode == ast.PassOwned
		}
		args = append(args, l.lowerExpr(a, consume))
	}
	return l.emitCall(FuncRef{Name: data.Callee, TypeArgs: data.TypeArgs}, args, e.Type, e)
}

func (l *funcLowerer) lowerMethodCall(e *ast.Expr) Operand {
	data := e.Data.(ast.MethodCallData)
	recvType := types.NoTypeID
	if data.Recv != nil {
		recvType = data.Recv.Type
	}
	recv := l.lowerExpr(data.Recv, false)
	args := make([]Operand, 0, len(data.Args)+1)
	args = append(args, recv)
	for _, a := range data.Args {
		args = append(args, l.lowerExpr(a, true))
	}

	ref := FuncRef{Method: data.Method, RecvType: recvType}
	if l.types != nil && !l.types.ContainsParams(recvType) {
		// Concrete receiver: dispatch now. Generic receivers wait for
		// monomorphization.
		name, ok := l.resolveMethod(recvType, data.Method, e)
		if !ok {
			return Operand{}
		}
		ref = FuncRef{Name: name}
	}
	return l.emitCall(ref, args, e.Type, e)
}

// resolveMethod finds the unique impl method for a concrete receiver.
func (l *funcLowerer) resolveMethod(recvType types.TypeID, method string, e *ast.Expr) (string, bool) {
	var found string
	matches := 0
	for _, im := range l.mod.Impls {
		if im == nil || im.Target != recvType {
			continue
		}
		if im.Method(method) == nil {
			continue
		}
		matches++
		found = MethodName(l.types, im.Target, method)
	}
	switch matches {
	case 0:
		diag.ReportError(l.reporter, diag.GenUnknownMethod, e.Span,
			fmt.Sprintf("type %s has no method %q", l.types.String(recvType), method)).Emit()
		return "", false
	case 1:
		return found, true
	default:
		diag.ReportError(l.reporter, diag.GenAmbiguousMethod, e.Span,
			fmt.Sprintf("method %q is provided by %d impls of %s", method, matches, l.types.String(recvType))).Emit()
		return "", false
	}
}

func (l *funcLowerer) lowerSpawn(e *ast.Expr) Operand {
	data := e.Data.(ast.SpawnData)
	if data.Call == nil || data.Call.Kind != ast.ExprCall {
		l.fail(fmt.Errorf("mir: spawn payload must be a call"))
		return Operand{}
	}
	call := data.Call.Data.(ast.CallData)
	args := make([]Operand, 0, len(call.Args)+1)
	args = append(args, ConstOperand(Const{Kind: ConstFn, StringValue: call.Callee}))
	for _, a := range call.Args {
		// Spawned arguments always move: they cross into the runtime.
		args = append(args, l.lowerExpr(a, true))
	}
	return l.emitCall(FuncRef{Name: RuntimeSpawn}, args, e.Type, e)
}

// emitCall closes the current block with a Call terminator and resumes in
// a fresh continuation block holding the destination value.
func (l *funcLowerer) emitCall(ref FuncRef, args []Operand, result types.TypeID, e *ast.Expr) Operand {
	dst := l.newTemp(result, "call", e.Span)
	next := l.newBlock()
	l.setTerm(&Terminator{Kind: TermCall, Call: CallTerm{
		Callee: ref,
		Args:   args,
		HasDst: true,
		Dst:    Place{Local: dst},
		Next:   next,
	}})
	l.startBlock(next)
	return CopyOperand(Place{Local: dst}, result)
}
