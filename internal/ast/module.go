// Package ast defines the resolved input tree the middle-end consumes.
// Identifiers are already bound and primitive literal types are already
// known; lexing, parsing and name resolution happen upstream.
package ast

// Module is one compilation unit: functions, trait definitions and impl
// blocks, with names already resolved to indices.
type Module struct {
	Name   string
	Funcs  []*Func
	Traits []*TraitDef
	Impls  []*ImplBlock

	funcByName map[string]*Func
}

// FuncByName returns the function declared under name, or nil.
func (m *Module) FuncByName(name string) *Func {
	if m == nil {
		return nil
	}
	if m.funcByName == nil {
		m.funcByName = make(map[string]*Func, len(m.Funcs))
		for _, f := range m.Funcs {
			if f != nil {
				m.funcByName[f.Name] = f
			}
		}
	}
	return m.funcByName[name]
}

// AddFunc appends fn and keeps the name index coherent.
func (m *Module) AddFunc(fn *Func) {
	if m == nil || fn == nil {
		return
	}
	m.Funcs = append(m.Funcs, fn)
	if m.funcByName != nil {
		m.funcByName[fn.Name] = fn
	}
}

// Trait returns the trait definition for id, or nil.
func (m *Module) Trait(id TraitID) *TraitDef {
	if m == nil || id == NoTraitID || int(id) > len(m.Traits) {
		return nil
	}
	return m.Traits[id-1]
}
