package ast

import (
	"starling/internal/source"
	"starling/internal/types"
)

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	// StmtLet represents variable declaration (let x = ...).
	StmtLet StmtKind = iota
	// StmtAssign represents assignment (lhs = rhs).
	StmtAssign
	// StmtExpr represents an expression statement.
	StmtExpr
	// StmtIf represents if/else.
	StmtIf
	// StmtWhile represents a while loop.
	StmtWhile
	// StmtFor represents a classic for loop; lowering desugars it to while.
	StmtFor
	// StmtMatch represents a match over an integer-like discriminant.
	StmtMatch
	// StmtReturn represents a return statement.
	StmtReturn
	// StmtBreak represents a break statement.
	StmtBreak
	// StmtContinue represents a continue statement.
	StmtContinue
	// StmtBlock represents a nested block.
	StmtBlock
)

func (k StmtKind) String() string {
	switch k {
	case StmtLet:
		return "Let"
	case StmtAssign:
		return "Assign"
	case StmtExpr:
		return "Expr"
	case StmtIf:
		return "If"
	case StmtWhile:
		return "While"
	case StmtFor:
		return "For"
	case StmtMatch:
		return "Match"
	case StmtReturn:
		return "Return"
	case StmtBreak:
		return "Break"
	case StmtContinue:
		return "Continue"
	case StmtBlock:
		return "Block"
	default:
		return "Unknown"
	}
}

// Stmt represents one statement.
type Stmt struct {
	Kind StmtKind
	Span source.Span
	Data StmtData
}

// StmtData is the interface for statement-specific payloads.
type StmtData interface {
	stmtData()
}

// LetData holds data for StmtLet.
type LetData struct {
	Name  string
	Type  types.TypeID
	IsMut bool
	Value *Expr // nil leaves the binding uninitialized
}

// AssignData holds data for StmtAssign. Target must be a place expression
// (local reference, field or index chain).
type AssignData struct {
	Target *Expr
	Value  *Expr
}

// ExprStmtData holds data for StmtExpr.
type ExprStmtData struct {
	Expr *Expr
}

// IfData holds data for StmtIf.
type IfData struct {
	Cond *Expr
	Then []Stmt
	Else []Stmt // nil when there is no else branch
}

// WhileData holds data for StmtWhile.
type WhileData struct {
	Cond *Expr
	Body []Stmt
}

// ForData holds data for StmtFor.
type ForData struct {
	Init *Stmt // nil allowed
	Cond *Expr // nil means always true
	Post *Stmt // nil allowed
	Body []Stmt
}

// MatchArm is one arm of a match statement. A wildcard arm matches any
// remaining discriminant value.
type MatchArm struct {
	Wildcard bool
	Value    int64
	Tag      string // variant name when matching an enum, for messages
	Body     []Stmt
	Span     source.Span
}

// MatchData holds data for StmtMatch.
type MatchData struct {
	Disc *Expr
	Arms []MatchArm
}

// ReturnData holds data for StmtReturn.
type ReturnData struct {
	Value *Expr // nil for bare return
}

// BreakData holds data for StmtBreak.
type BreakData struct{}

// ContinueData holds data for StmtContinue.
type ContinueData struct{}

// BlockData holds data for StmtBlock.
type BlockData struct {
	Body []Stmt
}

func (LetData) stmtData()      {}
func (AssignData) stmtData()   {}
func (ExprStmtData) stmtData() {}
func (IfData) stmtData()       {}
func (WhileData) stmtData()    {}
func (ForData) stmtData()      {}
func (MatchData) stmtData()    {}
func (ReturnData) stmtData()   {}
func (BreakData) stmtData()    {}
func (ContinueData) stmtData() {}
func (BlockData) stmtData()    {}
