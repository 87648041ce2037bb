package diag

import (
	"fmt"
)

// Code identifies a diagnostic kind. Ranges are reserved per phase so codes
// stay stable as phases grow.
type Code uint16

const (
	UnknownCode Code = 0

	// Structural errors found during lowering (4xxx).
	StructInfo                Code = 4000
	StructBreakOutsideLoop    Code = 4001
	StructContinueOutsideLoop Code = 4002
	StructNonExhaustiveMatch  Code = 4003
	StructUnreachableCode     Code = 4004

	// Ownership and borrow errors (5xxx).
	OwnInfo                Code = 5000
	OwnUseAfterMove        Code = 5001
	OwnBorrowConflict      Code = 5002
	OwnUseUninitialized    Code = 5003
	OwnAssignImmutable     Code = 5004
	OwnMoveBorrowed        Code = 5005
	OwnBadOutlivesClause   Code = 5006
	OwnMoveThroughBorrow   Code = 5007
	OwnFieldOfMoved        Code = 5008
	OwnMovedInBranch       Code = 5009

	// Generic resolution and monomorphization errors (6xxx).
	GenInfo                      Code = 6000
	GenTraitNotImplemented       Code = 6001
	GenUnresolvedParameter       Code = 6002
	GenInstantiationCycle        Code = 6003
	GenArgumentCountMismatch     Code = 6004
	GenAmbiguousMethod           Code = 6005
	GenUnknownMethod             Code = 6006
	GenImplMissingMethod         Code = 6007
	GenImplSignatureMismatch     Code = 6008
)

func (c Code) String() string {
	return fmt.Sprintf("STL%04d", uint16(c))
}
