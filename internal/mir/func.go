package mir

import (
	"starling/internal/ast"
	"starling/internal/source"
	"starling/internal/types"
)

// Param records the pass mode of an ordinal parameter local. Parameter
// locals occupy the first ParamCount slots of Locals.
type Param struct {
	Local LocalID
	Mode  ast.PassMode
}

// Func is one lowered function body: a flat, index-addressed block arena.
// Blocks reference successors by id, never by pointer.
type Func struct {
	ID   FuncID
	Name string
	Span source.Span

	Result types.TypeID

	// TypeArgs is empty for plain functions, and holds the concrete
	// argument tuple on monomorphized instances.
	TypeArgs []types.TypeID
	// TypeParamNames survives from the generic template for messages.
	TypeParamNames []string

	Params     []Param
	ParamCount int
	Locals     []Local
	Blocks     []Block
	Entry      BlockID
}

// IsGeneric reports whether the body still abstracts over type parameters.
func (f *Func) IsGeneric() bool {
	return f != nil && len(f.TypeParamNames) > 0 && len(f.TypeArgs) == 0
}

// Block returns the block with the given id, or nil.
func (f *Func) Block(id BlockID) *Block {
	if f == nil || id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return &f.Blocks[id]
}

// LocalType returns the declared type of a local, or NoTypeID.
func (f *Func) LocalType(id LocalID) types.TypeID {
	if f == nil || id < 0 || int(id) >= len(f.Locals) {
		return types.NoTypeID
	}
	return f.Locals[id].Type
}

// Module is a set of lowered functions addressed by id and by name.
type Module struct {
	Funcs      map[FuncID]*Func
	FuncByName map[string]FuncID
}

// NewModule creates an empty MIR module.
func NewModule() *Module {
	return &Module{
		Funcs:      make(map[FuncID]*Func),
		FuncByName: make(map[string]FuncID),
	}
}

// Add registers f under its name.
func (m *Module) Add(f *Func) {
	if m == nil || f == nil {
		return
	}
	m.Funcs[f.ID] = f
	m.FuncByName[f.Name] = f.ID
}

// ByName returns the function registered under name, or nil.
func (m *Module) ByName(name string) *Func {
	id, ok := m.FuncByName[name]
	if !ok {
		return nil
	}
	return m.Funcs[id]
}
