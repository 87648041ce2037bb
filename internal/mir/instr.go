package mir

import (
	"starling/internal/ast"
	"starling/internal/types"
)

// InstrKind enumerates instruction kinds. Calls are terminators, not
// instructions, so blocks hold straight-line assignments only.
type InstrKind uint8

const (
	// InstrAssign represents an assignment instruction.
	InstrAssign InstrKind = iota
	// InstrNop represents a no-op left behind by rewriting passes.
	InstrNop
)

// Instr represents a single instruction.
type Instr struct {
	Kind   InstrKind
	Assign AssignInstr
}

// AssignInstr stores Place <- RValue.
type AssignInstr struct {
	Dst Place
	Src RValue
}

// OperandKind distinguishes operand types.
type OperandKind uint8

const (
	// OperandConst represents a constant operand.
	OperandConst OperandKind = iota
	// OperandCopy reads a place without consuming it.
	OperandCopy
	// OperandMove reads a place and transfers ownership out of it.
	OperandMove
)

// Operand represents a value use.
type Operand struct {
	Kind OperandKind
	Type types.TypeID

	Const Const
	Place Place
}

// ConstKind distinguishes constant kinds.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstUint
	ConstFloat
	ConstBool
	ConstString
	ConstUnit
	// ConstFn references a function by name; used when handing spawn
	// targets to the external task runtime.
	ConstFn
)

// Const represents a compile-time constant.
type Const struct {
	Kind ConstKind
	Type types.TypeID

	IntValue    int64
	UintValue   uint64
	FloatValue  float64
	BoolValue   bool
	StringValue string
}

// RValueKind distinguishes right-hand value kinds.
type RValueKind uint8

const (
	// RValueUse represents a plain operand use.
	RValueUse RValueKind = iota
	// RValueUnary represents a unary operation.
	RValueUnary
	// RValueBinary represents a binary operation.
	RValueBinary
	// RValueAggregate represents aggregate construction.
	RValueAggregate
	// RValueCast represents a cast.
	RValueCast
)

// RValue represents the right-hand side of an assignment.
type RValue struct {
	Kind RValueKind

	Use       Operand
	Unary     UnaryOp
	Binary    BinaryOp
	Aggregate Aggregate
	Cast      CastOp
}

// UnaryOp represents a unary operation.
type UnaryOp struct {
	Op      ast.UnaryOp
	Operand Operand
}

// BinaryOp represents a binary operation.
type BinaryOp struct {
	Op    ast.BinaryOp
	Left  Operand
	Right Operand
}

// AggregateField pairs a field index with its value.
type AggregateField struct {
	Name  string
	Idx   int
	Value Operand
}

// Aggregate represents struct construction.
type Aggregate struct {
	Type   types.TypeID
	Fields []AggregateField
}

// CastOp represents a cast operation.
type CastOp struct {
	Value    Operand
	TargetTy types.TypeID
}

// ConstOperand wraps a constant into an operand.
func ConstOperand(c Const) Operand {
	return Operand{Kind: OperandConst, Type: c.Type, Const: c}
}

// CopyOperand reads a place non-destructively.
func CopyOperand(p Place, t types.TypeID) Operand {
	return Operand{Kind: OperandCopy, Type: t, Place: p}
}

// MoveOperand consumes a place.
func MoveOperand(p Place, t types.TypeID) Operand {
	return Operand{Kind: OperandMove, Type: t, Place: p}
}
