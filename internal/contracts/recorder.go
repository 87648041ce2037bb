package contracts

import (
	"sort"
	"sync"

	"starling/internal/ast"
)

// Strategy names how the external verifier will treat one generic
// instantiation's trait axioms. The middle-end records the choice, it
// does not act on it.
type Strategy uint8

const (
	// StrategyNone applies when no bound carries axioms.
	StrategyNone Strategy = iota
	// StrategyReuseGenericProof reuses the abstract proof of the generic
	// body for any type satisfying the bound.
	StrategyReuseGenericProof
	// StrategyReverifyConcrete re-verifies the concrete instantiation.
	StrategyReverifyConcrete
)

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyReuseGenericProof:
		return "reuse-generic-proof"
	case StrategyReverifyConcrete:
		return "reverify-concrete"
	default:
		return "?"
	}
}

// InstantiationRecord pairs a monomorphized instance with its chosen
// verification strategy.
type InstantiationRecord struct {
	Instance string
	Generic  string
	Strategy Strategy
}

// Recorder collects formulas per function plus per-instantiation
// strategy records. It is shared across parallel per-function work, so
// all mutation is synchronized.
type Recorder struct {
	mu       sync.Mutex
	formulas map[string][]Formula
	insts    []InstantiationRecord
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{formulas: make(map[string][]Formula)}
}

// RecordFunc captures the requires/ensures clauses of fn under name.
func (rec *Recorder) RecordFunc(name string, fn *ast.Func) {
	if rec == nil || fn == nil {
		return
	}
	var fs []Formula
	for _, cl := range fn.Requires {
		fs = append(fs, Formula{Kind: FormulaRequires, Owner: name, Text: Render(cl.Expr), Span: cl.Span})
	}
	for _, cl := range fn.Ensures {
		fs = append(fs, Formula{Kind: FormulaEnsures, Owner: name, Text: Render(cl.Expr), Span: cl.Span})
	}
	if len(fs) == 0 {
		return
	}
	rec.mu.Lock()
	rec.formulas[name] = append(rec.formulas[name], fs...)
	rec.mu.Unlock()
}

// RecordAxioms captures a trait's axioms.
func (rec *Recorder) RecordAxioms(tr *ast.TraitDef) {
	if rec == nil || tr == nil || len(tr.Axioms) == 0 {
		return
	}
	fs := make([]Formula, 0, len(tr.Axioms))
	for _, ax := range tr.Axioms {
		fs = append(fs, Formula{Kind: FormulaAxiom, Owner: tr.Name, Text: Render(ax.Formula), Span: ax.Span})
	}
	rec.mu.Lock()
	rec.formulas[tr.Name] = append(rec.formulas[tr.Name], fs...)
	rec.mu.Unlock()
}

// RecordInstantiation notes the verification strategy for one instance.
func (rec *Recorder) RecordInstantiation(instance, generic string, s Strategy) {
	if rec == nil {
		return
	}
	rec.mu.Lock()
	rec.insts = append(rec.insts, InstantiationRecord{Instance: instance, Generic: generic, Strategy: s})
	rec.mu.Unlock()
}

// Formulas returns the clauses recorded for owner.
func (rec *Recorder) Formulas(owner string) []Formula {
	if rec == nil {
		return nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]Formula(nil), rec.formulas[owner]...)
}

// Instantiations returns every strategy record, sorted by instance name.
func (rec *Recorder) Instantiations() []InstantiationRecord {
	if rec == nil {
		return nil
	}
	rec.mu.Lock()
	out := append([]InstantiationRecord(nil), rec.insts...)
	rec.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out
}
