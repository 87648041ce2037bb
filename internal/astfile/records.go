// Package astfile reads and writes the frontend handoff artifact: a
// msgpack document holding one resolved module plus its type tables.
// The frontend serializes what it resolved; the middle-end decodes it
// and compiles. Source spans are not preserved, so diagnostics against
// decoded modules carry empty locations.
package astfile

// SchemaVersion guards the wire layout. Decoding rejects mismatches.
const SchemaVersion uint16 = 1

// File is the envelope root.
type File struct {
	Schema uint16
	Types  []TypeRec
	Named  []NamedRec
	Module ModuleRec
}

// TypeRec mirrors types.Type with raw ids.
type TypeRec struct {
	Kind    uint8
	Elem    uint32
	Mutable bool
	Named   uint32
	Args    []uint32
	Ordinal uint32
	Name    string
}

// FieldRec is one struct field.
type FieldRec struct {
	Name string
	Type uint32
}

// VariantRec is one enum variant.
type VariantRec struct {
	Name    string
	Tag     int64
	Payload []uint32
}

// NamedRec mirrors types.NamedInfo.
type NamedRec struct {
	Kind       uint8
	Name       string
	TypeParams []string
	Fields     []FieldRec
	Variants   []VariantRec
	CopyOnPass bool
}

// ModuleRec is the resolved module body.
type ModuleRec struct {
	Name   string
	Funcs  []FuncRec
	Traits []TraitRec
	Impls  []ImplRec
}

// ParamRec is one function parameter.
type ParamRec struct {
	Name string
	Type uint32
	Mode uint8
}

// TypeParamRec is one generic parameter with trait bounds.
type TypeParamRec struct {
	Name   string
	Bounds []uint32
}

// ClauseRec is a requires or ensures clause.
type ClauseRec struct {
	Kind uint8
	Expr *ExprRec
}

// OutlivesRec is a structural lifetime relation.
type OutlivesRec struct {
	Longer  string
	Shorter string
}

// FuncRec mirrors ast.Func.
type FuncRec struct {
	Name       string
	Params     []ParamRec
	Result     uint32
	TypeParams []TypeParamRec
	Body       []StmtRec
	Requires   []ClauseRec
	Ensures    []ClauseRec
	Outlives   []OutlivesRec
}

// MethodSigRec is a required trait method signature.
type MethodSigRec struct {
	Name   string
	Params []uint32
	Result uint32
}

// AxiomRec is a recorded trait axiom.
type AxiomRec struct {
	Name    string
	Formula *ExprRec
}

// TraitRec mirrors ast.TraitDef.
type TraitRec struct {
	Name    string
	Methods []MethodSigRec
	Axioms  []AxiomRec
}

// ImplRec mirrors ast.ImplBlock.
type ImplRec struct {
	Trait      uint32
	Target     uint32
	TypeParams []TypeParamRec
	Methods    []FuncRec
}

// ExprRec is the flattened expression record: one Kind tag plus the
// union of payload fields, in the same style the IR uses in memory.
type ExprRec struct {
	Kind uint8
	Type uint32

	Int   int64
	Float float64
	Bool  bool
	Str   string

	// Name carries the local name, callee, method or field name.
	Name  string
	Index int
	Op    uint8

	// X is the operand, left side, object or receiver; Y the right side
	// or index.
	X *ExprRec
	Y *ExprRec

	Args     []*ExprRec
	TypeArgs []uint32
	Target   uint32
	Fields   []LitFieldRec
}

// LitFieldRec is one struct literal field.
type LitFieldRec struct {
	Name  string
	Value *ExprRec
}

// StmtRec is the flattened statement record.
type StmtRec struct {
	Kind uint8

	Name string
	Type uint32
	Mut  bool

	// E1 is the let value, assign target, condition, discriminant or
	// return value; E2 the assign value.
	E1 *ExprRec
	E2 *ExprRec

	Body []StmtRec
	Else []StmtRec
	Init *StmtRec
	Post *StmtRec
	Arms []ArmRec
}

// ArmRec is one match arm.
type ArmRec struct {
	Wildcard bool
	Value    int64
	Tag      string
	Body     []StmtRec
}
