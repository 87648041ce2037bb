package ast

import (
	"starling/internal/source"
	"starling/internal/types"
)

// PassMode describes how a parameter takes its argument.
type PassMode uint8

const (
	// PassOwned takes ownership of the argument.
	PassOwned PassMode = iota
	// PassRef borrows the argument immutably.
	PassRef
	// PassRefMut borrows the argument mutably.
	PassRefMut
)

func (m PassMode) String() string {
	switch m {
	case PassOwned:
		return "owned"
	case PassRef:
		return "&"
	case PassRefMut:
		return "&mut"
	default:
		return "?"
	}
}

// Param represents a function parameter.
type Param struct {
	Name string
	Type types.TypeID
	Mode PassMode
	Span source.Span
}

// TypeParam represents a generic type parameter with its trait bounds.
type TypeParam struct {
	Name   string
	Bounds []TraitID
	Span   source.Span
}

// ContractKind distinguishes precondition and postcondition clauses.
type ContractKind uint8

const (
	ContractRequires ContractKind = iota
	ContractEnsures
)

// ContractClause is a requires/ensures assertion carried on a function.
// The middle-end only records these; discharging is the external
// verifier's job.
type ContractClause struct {
	Kind ContractKind
	Expr *Expr
	Span source.Span
}

// OutlivesClause declares a structural lifetime relation between two
// borrowed parameters (or a parameter and the return value, named
// "return"). Checked syntactically only.
type OutlivesClause struct {
	Longer  string
	Shorter string
	Span    source.Span
}

// Func is a resolved function definition.
type Func struct {
	Name       string
	Span       source.Span
	Params     []Param
	Result     types.TypeID
	TypeParams []TypeParam
	Body       []Stmt

	Requires []ContractClause
	Ensures  []ContractClause
	Outlives []OutlivesClause
}

// IsGeneric reports whether the function declares type parameters.
func (f *Func) IsGeneric() bool {
	return f != nil && len(f.TypeParams) > 0
}
