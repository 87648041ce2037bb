package ast

import (
	"starling/internal/source"
	"starling/internal/types"
)

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	// ExprIntLit represents an integer literal.
	ExprIntLit ExprKind = iota
	// ExprBoolLit represents a boolean literal.
	ExprBoolLit
	// ExprFloatLit represents a float literal.
	ExprFloatLit
	// ExprStringLit represents a string literal.
	ExprStringLit
	// ExprLocalRef represents a reference to a local binding or parameter.
	ExprLocalRef
	// ExprField represents field access (obj.field).
	ExprField
	// ExprIndex represents index access (obj[i]).
	ExprIndex
	// ExprUnary represents a unary operation.
	ExprUnary
	// ExprBinary represents a binary operation.
	ExprBinary
	// ExprCall represents a call to a named function.
	ExprCall
	// ExprMethodCall represents value.method(...).
	ExprMethodCall
	// ExprStructLit represents aggregate construction.
	ExprStructLit
	// ExprCast represents an explicit cast.
	ExprCast
	// ExprSpawn represents spawning a task on the external runtime.
	ExprSpawn
	// ExprAwait represents awaiting a task handle.
	ExprAwait
)

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryRem
	BinaryEq
	BinaryNe
	BinaryLt
	BinaryLe
	BinaryGt
	BinaryGe
	BinaryAnd
	BinaryOr
)

// Expr represents one expression. Type is filled in by the upstream
// semantic pass and is always concrete for literals.
type Expr struct {
	Kind ExprKind
	Type types.TypeID
	Span source.Span
	Data ExprData
}

// ExprData is the interface for expression-specific payloads.
type ExprData interface {
	exprData()
}

// IntLitData holds data for ExprIntLit.
type IntLitData struct {
	Value int64
}

// BoolLitData holds data for ExprBoolLit.
type BoolLitData struct {
	Value bool
}

// FloatLitData holds data for ExprFloatLit.
type FloatLitData struct {
	Value float64
}

// StringLitData holds data for ExprStringLit.
type StringLitData struct {
	Value string
}

// LocalRefData holds data for ExprLocalRef.
type LocalRefData struct {
	Name string
}

// FieldData holds data for ExprField.
type FieldData struct {
	Object *Expr
	Name   string
	Index  int
}

// IndexData holds data for ExprIndex.
type IndexData struct {
	Object *Expr
	Index  *Expr
}

// UnaryData holds data for ExprUnary.
type UnaryData struct {
	Op      UnaryOp
	Operand *Expr
}

// BinaryData holds data for ExprBinary.
type BinaryData struct {
	Op    BinaryOp
	Left  *Expr
	Right *Expr
}

// CallData holds data for ExprCall. TypeArgs carries explicit generic
// arguments (f<Int>(...)); when empty they are inferred from argument
// types by the resolver.
type CallData struct {
	Callee   string
	TypeArgs []types.TypeID
	Args     []*Expr
}

// MethodCallData holds data for ExprMethodCall.
type MethodCallData struct {
	Recv   *Expr
	Method string
	Args   []*Expr
}

// StructLitField pairs a field name with its initializer.
type StructLitField struct {
	Name  string
	Value *Expr
}

// StructLitData holds data for ExprStructLit.
type StructLitData struct {
	Type   types.TypeID
	Fields []StructLitField
}

// CastData holds data for ExprCast.
type CastData struct {
	Value  *Expr
	Target types.TypeID
}

// SpawnData holds data for ExprSpawn. The payload call is handed to the
// external task runtime; the middle-end only lowers the handoff.
type SpawnData struct {
	Call *Expr
}

// AwaitData holds data for ExprAwait.
type AwaitData struct {
	Task *Expr
}

func (IntLitData) exprData()     {}
func (BoolLitData) exprData()    {}
func (FloatLitData) exprData()   {}
func (StringLitData) exprData()  {}
func (LocalRefData) exprData()   {}
func (FieldData) exprData()      {}
func (IndexData) exprData()      {}
func (UnaryData) exprData()      {}
func (BinaryData) exprData()     {}
func (CallData) exprData()       {}
func (MethodCallData) exprData() {}
func (StructLitData) exprData()  {}
func (CastData) exprData()       {}
func (SpawnData) exprData()      {}
func (AwaitData) exprData()      {}

// IsPlace reports whether e denotes an addressable location: a local
// reference or a field/index chain rooted at one.
func (e *Expr) IsPlace() bool {
	for e != nil {
		switch e.Kind {
		case ExprLocalRef:
			return true
		case ExprField:
			e = e.Data.(FieldData).Object
		case ExprIndex:
			e = e.Data.(IndexData).Object
		default:
			return false
		}
	}
	return false
}

// PlaceRoot returns the name of the local a place expression is rooted at.
func (e *Expr) PlaceRoot() (string, bool) {
	for e != nil {
		switch e.Kind {
		case ExprLocalRef:
			return e.Data.(LocalRefData).Name, true
		case ExprField:
			e = e.Data.(FieldData).Object
		case ExprIndex:
			e = e.Data.(IndexData).Object
		default:
			return "", false
		}
	}
	return "", false
}
