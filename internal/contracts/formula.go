// Package contracts renders requires/ensures clauses and trait axioms
// into logical formula records for the external SMT-based verifier. The
// middle-end records formulas and the verification strategy chosen per
// instantiation; it never discharges anything itself.
package contracts

import (
	"fmt"
	"strings"

	"starling/internal/ast"
	"starling/internal/source"
)

// FormulaKind distinguishes the origin of a formula.
type FormulaKind uint8

const (
	// FormulaRequires is a function precondition.
	FormulaRequires FormulaKind = iota
	// FormulaEnsures is a function postcondition.
	FormulaEnsures
	// FormulaAxiom is a quantified property attached to a trait.
	FormulaAxiom
)

func (k FormulaKind) String() string {
	switch k {
	case FormulaRequires:
		return "requires"
	case FormulaEnsures:
		return "ensures"
	case FormulaAxiom:
		return "axiom"
	default:
		return "?"
	}
}

// Formula is one logical clause in the verifier's input language,
// serialized to a stable s-expression text form.
type Formula struct {
	Kind FormulaKind
	// Owner is the function (or trait) the clause is attached to.
	Owner string
	Text  string
	Span  source.Span
}

// Render serializes a clause expression. Unsupported constructs degrade
// to an opaque atom rather than failing the build: the verifier treats
// those clauses as unprovable, not the compiler as broken.
func Render(e *ast.Expr) string {
	if e == nil {
		return "true"
	}
	switch e.Kind {
	case ast.ExprIntLit:
		return fmt.Sprintf("%d", e.Data.(ast.IntLitData).Value)
	case ast.ExprBoolLit:
		return fmt.Sprintf("%t", e.Data.(ast.BoolLitData).Value)
	case ast.ExprFloatLit:
		return fmt.Sprintf("%g", e.Data.(ast.FloatLitData).Value)
	case ast.ExprStringLit:
		return fmt.Sprintf("%q", e.Data.(ast.StringLitData).Value)
	case ast.ExprLocalRef:
		return e.Data.(ast.LocalRefData).Name
	case ast.ExprField:
		data := e.Data.(ast.FieldData)
		return fmt.Sprintf("(field %s %s)", Render(data.Object), data.Name)
	case ast.ExprUnary:
		data := e.Data.(ast.UnaryData)
		return fmt.Sprintf("(%s %s)", unaryAtom(data.Op), Render(data.Operand))
	case ast.ExprBinary:
		data := e.Data.(ast.BinaryData)
		return fmt.Sprintf("(%s %s %s)", binaryAtom(data.Op), Render(data.Left), Render(data.Right))
	case ast.ExprCall:
		data := e.Data.(ast.CallData)
		var b strings.Builder
		fmt.Fprintf(&b, "(%s", data.Callee)
		for _, a := range data.Args {
			b.WriteByte(' ')
			b.WriteString(Render(a))
		}
		b.WriteByte(')')
		return b.String()
	default:
		return "opaque"
	}
}

func unaryAtom(op ast.UnaryOp) string {
	switch op {
	case ast.UnaryNeg:
		return "-"
	case ast.UnaryNot:
		return "not"
	default:
		return "?"
	}
}

func binaryAtom(op ast.BinaryOp) string {
	switch op {
	case ast.BinaryAdd:
		return "+"
	case ast.BinarySub:
		return "-"
	case ast.BinaryMul:
		return "*"
	case ast.BinaryDiv:
		return "div"
	case ast.BinaryRem:
		return "mod"
	case ast.BinaryEq:
		return "="
	case ast.BinaryNe:
		return "distinct"
	case ast.BinaryLt:
		return "<"
	case ast.BinaryLe:
		return "<="
	case ast.BinaryGt:
		return ">"
	case ast.BinaryGe:
		return ">="
	case ast.BinaryAnd:
		return "and"
	case ast.BinaryOr:
		return "or"
	default:
		return "?"
	}
}
