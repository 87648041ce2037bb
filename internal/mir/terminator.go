package mir

import "starling/internal/types"

type TermKind uint8

const (
	TermNone TermKind = iota
	TermGoto
	TermSwitchInt
	TermReturn
	TermCall
	TermUnreachable
)

// Terminator is the single control-transfer operation ending a block.
type Terminator struct {
	Kind TermKind

	Goto        GotoTerm
	SwitchInt   SwitchIntTerm
	Return      ReturnTerm
	Call        CallTerm
	Unreachable struct{}
}

type GotoTerm struct {
	Target BlockID
}

// SwitchIntCase routes one discriminant value to a target block.
type SwitchIntCase struct {
	Value  int64
	Target BlockID
}

// SwitchIntTerm dispatches on an integer-like operand. Booleans use the
// two-way form: case 0 -> false edge, default -> true edge.
type SwitchIntTerm struct {
	Disc    Operand
	Cases   []SwitchIntCase
	Default BlockID
}

type ReturnTerm struct {
	HasValue bool
	Value    Operand
}

// FuncRef names a callee. TypeArgs carries explicit generic arguments
// until monomorphization rewrites the reference to a concrete instance.
// Method calls whose receiver type is still a generic parameter keep
// Method/RecvType set; monomorphization resolves them against the impl
// registry once the receiver type is concrete.
type FuncRef struct {
	Name     string
	Method   string
	RecvType types.TypeID
	TypeArgs []types.TypeID
}

// IsPendingDispatch reports whether the callee still awaits method
// resolution at monomorphization time.
func (r FuncRef) IsPendingDispatch() bool {
	return r.Method != "" && r.Name == ""
}

// CallTerm transfers to a callee and resumes at Next once it returns.
type CallTerm struct {
	Callee FuncRef
	Args   []Operand
	HasDst bool
	Dst    Place
	Next   BlockID
}

// Successors appends every outgoing edge of t to dst and returns it.
func (t *Terminator) Successors(dst []BlockID) []BlockID {
	switch t.Kind {
	case TermGoto:
		dst = append(dst, t.Goto.Target)
	case TermSwitchInt:
		for _, c := range t.SwitchInt.Cases {
			dst = append(dst, c.Target)
		}
		dst = append(dst, t.SwitchInt.Default)
	case TermCall:
		dst = append(dst, t.Call.Next)
	}
	return dst
}
