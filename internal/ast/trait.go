package ast

import (
	"starling/internal/source"
	"starling/internal/types"
)

// TraitID indexes a trait definition within its module (1-based).
type TraitID uint32

// NoTraitID marks the absence of a trait.
const NoTraitID TraitID = 0

// SelfOrdinal is the reserved generic-parameter ordinal standing for the
// implementing type inside trait method signatures.
const SelfOrdinal uint32 = 1<<31 - 1

// SelfType interns the Self placeholder.
func SelfType(in *types.Interner) types.TypeID {
	return in.MakeParam(SelfOrdinal, "Self")
}

// MethodSig is a required method signature inside a trait definition.
// Parameter and result types may mention the Self placeholder.
type MethodSig struct {
	Name   string
	Params []types.TypeID
	Result types.TypeID
	Span   source.Span
}

// Axiom is a quantified logical property attached to a trait. The
// middle-end records axioms as formula sources; only the external
// verifier consumes them.
type Axiom struct {
	Name    string
	Formula *Expr
	Span    source.Span
}

// TraitDef is a trait definition.
type TraitDef struct {
	ID      TraitID
	Name    string
	Methods []MethodSig
	Axioms  []Axiom
	Span    source.Span
}

// Method returns the required signature named name, or nil.
func (t *TraitDef) Method(name string) *MethodSig {
	if t == nil {
		return nil
	}
	for i := range t.Methods {
		if t.Methods[i].Name == name {
			return &t.Methods[i]
		}
	}
	return nil
}

// ImplBlock implements a trait (or free methods) for a target type.
type ImplBlock struct {
	Trait      TraitID // NoTraitID for inherent impls
	Target     types.TypeID
	TypeParams []TypeParam
	Methods    []*Func
	Span       source.Span
}

// Method returns the implemented method named name, or nil.
func (im *ImplBlock) Method(name string) *Func {
	if im == nil {
		return nil
	}
	for _, m := range im.Methods {
		if m != nil && m.Name == name {
			return m
		}
	}
	return nil
}
