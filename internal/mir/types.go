package mir

import (
	"starling/internal/source"
	"starling/internal/types"
)

type FuncID int32
type BlockID int32
type LocalID int32

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
	NoLocalID LocalID = -1
)

// Local is one storage slot in a function frame. Pre-monomorphization the
// type may still mention generic parameters.
type Local struct {
	Name    string
	Type    types.TypeID
	Mutable bool
	Span    source.Span
}

// PlaceProjKind enumerates place projection kinds.
type PlaceProjKind uint8

const (
	PlaceProjField PlaceProjKind = iota
	PlaceProjIndex
	PlaceProjDeref
)

// PlaceProj is a single projection step applied to a place.
type PlaceProj struct {
	Kind PlaceProjKind

	FieldName  string
	FieldIdx   int
	IndexLocal LocalID
}

// Place is an addressable storage location: a local plus projections.
type Place struct {
	Local LocalID
	Proj  []PlaceProj
}

func (p Place) IsValid() bool {
	return p.Local != NoLocalID
}

// Root returns the place's base local.
func (p Place) Root() LocalID {
	return p.Local
}
