// Package sema implements the flow-sensitive ownership and borrow
// verifier. It runs one ordered walk per function over the resolved AST,
// tracking a state machine per binding, and reports violations through
// the diagnostic channel; it never mutates the tree.
package sema

import (
	"starling/internal/source"
	"starling/internal/types"
)

// StateKind enumerates the per-binding ownership states.
type StateKind uint8

const (
	// StateUninitialized marks a declared binding with no value yet.
	StateUninitialized StateKind = iota
	// StateOwned marks a binding holding its value.
	StateOwned
	// StateMovedOut marks a binding whose value was transferred away.
	StateMovedOut
	// StateSharedBorrowed marks a binding with live shared borrows.
	StateSharedBorrowed
	// StateMutablyBorrowed marks a binding with a live exclusive borrow.
	StateMutablyBorrowed
)

func (k StateKind) String() string {
	switch k {
	case StateUninitialized:
		return "uninitialized"
	case StateOwned:
		return "owned"
	case StateMovedOut:
		return "moved out"
	case StateSharedBorrowed:
		return "shared borrowed"
	case StateMutablyBorrowed:
		return "mutably borrowed"
	default:
		return "?"
	}
}

// bindingState is the verifier's per-binding record at the current
// program point.
type bindingState struct {
	Kind        StateKind
	SharedCount int
	Mutable     bool
	Type        types.TypeID
	// CondMove marks a MovedOut state reached on some but not all paths.
	CondMove bool
	// MovedAt points at the call that consumed the value.
	MovedAt source.Span
	// BorrowedAt points at the operation that created the live borrow.
	BorrowedAt source.Span
	DeclaredAt source.Span
}

// env maps binding names to their current state. Branch walks copy it and
// the join merges conservatively.
type env map[string]*bindingState

func (e env) clone() env {
	out := make(env, len(e))
	for name, st := range e {
		cp := *st
		out[name] = &cp
	}
	return out
}

// mergeInto folds the post-states of branch walks back into the join
// point. The policy is deliberately conservative: a binding moved in at
// least one branch stays moved afterwards, which is sound but may
// over-reject.
func mergeInto(base env, branches ...env) {
	for name, st := range base {
		movedIn := 0
		var movedState *bindingState
		initialized := st.Kind != StateUninitialized
		for _, br := range branches {
			sb, ok := br[name]
			if !ok {
				continue
			}
			if sb.Kind == StateMovedOut {
				movedIn++
				if movedState == nil {
					movedState = sb
				}
			}
			if sb.Kind != StateUninitialized {
				initialized = true
			}
		}
		switch {
		case movedIn > 0:
			cond := movedState.CondMove || movedIn < len(branches)
			*st = *movedState
			st.CondMove = cond
		case !initialized:
			st.Kind = StateUninitialized
		default:
			st.Kind = StateOwned
			st.SharedCount = 0
		}
	}
}
