package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// NamedID indexes a named type declaration (struct or enum) in the interner.
type NamedID uint32

// NoNamedID marks the absence of a named declaration.
const NoNamedID NamedID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindNamed
	KindRef
	KindParam
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindNamed:
		return "named"
	case KindRef:
		return "reference"
	case KindParam:
		return "param"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID   // referent for KindRef
	Mutable bool     // for KindRef: &mut vs &
	Named   NamedID  // declaration for KindNamed
	Args    []TypeID // generic arguments for KindNamed
	Ordinal uint32   // position for KindParam
	Name    string   // parameter name for KindParam
}

// Field is a named struct field.
type Field struct {
	Name string
	Type TypeID
}

// Variant is an enum variant with an integer discriminant tag.
type Variant struct {
	Name    string
	Tag     int64
	Payload []TypeID
}

// NamedKind distinguishes struct and enum declarations.
type NamedKind uint8

const (
	NamedStruct NamedKind = iota
	NamedEnum
)

// NamedInfo is the declaration record behind a KindNamed type.
type NamedInfo struct {
	ID         NamedID
	Kind       NamedKind
	Name       string
	TypeParams []string
	Fields     []Field   // structs
	Variants   []Variant // enums

	// CopyOnPass marks value types: passing by value never moves them.
	CopyOnPass bool
}
