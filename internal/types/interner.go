package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Unit    TypeID
	Bool    TypeID
	Int     TypeID
	Uint    TypeID
	Float   TypeID
	String  TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	named    []NamedInfo
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Mutable bool
	Named   NamedID
	Ordinal uint32
	// Extra flattens non-comparable parts (generic args, param name).
	Extra string
}

func keyOf(t Type) typeKey {
	k := typeKey{
		Kind:    t.Kind,
		Elem:    t.Elem,
		Mutable: t.Mutable,
		Named:   t.Named,
		Ordinal: t.Ordinal,
	}
	switch t.Kind {
	case KindNamed:
		k.Extra = argsKey(t.Args)
	case KindParam:
		k.Extra = t.Name
	}
	return k
}

func argsKey(args []TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return b.String()
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 64),
	}
	in.named = append(in.named, NamedInfo{}) // reserve 0 as invalid sentinel
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Uint = in.Intern(Type{Kind: KindUint})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := keyOf(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("types: len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[keyOf(t)] = id
	return id
}

// Len reports the number of interned descriptors, including the
// reserved invalid slot. Valid TypeIDs are 1..Len()-1.
func (in *Interner) Len() int {
	return len(in.types)
}

// NamedLen reports the number of named declarations, including the
// reserved invalid slot. Valid NamedIDs are 1..NamedLen()-1.
func (in *Interner) NamedLen() int {
	return len(in.named)
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return t
}

// MakeRef interns a shared or mutable reference to elem.
func (in *Interner) MakeRef(elem TypeID, mutable bool) TypeID {
	return in.Intern(Type{Kind: KindRef, Elem: elem, Mutable: mutable})
}

// MakeParam interns a generic parameter occurrence.
func (in *Interner) MakeParam(ordinal uint32, name string) TypeID {
	return in.Intern(Type{Kind: KindParam, Ordinal: ordinal, Name: name})
}

// AddNamed registers a struct or enum declaration and returns its NamedID.
func (in *Interner) AddNamed(info NamedInfo) NamedID {
	n, err := safecast.Conv[uint32](len(in.named))
	if err != nil {
		panic(fmt.Errorf("types: len(named) overflow: %w", err))
	}
	id := NamedID(n)
	info.ID = id
	in.named = append(in.named, info)
	return id
}

// Named returns the declaration record for id, or nil.
func (in *Interner) Named(id NamedID) *NamedInfo {
	if id == NoNamedID || int(id) >= len(in.named) {
		return nil
	}
	return &in.named[id]
}

// MakeNamed interns an instance of a named declaration with the given
// generic arguments (nil for non-generic declarations).
func (in *Interner) MakeNamed(id NamedID, args []TypeID) TypeID {
	return in.Intern(Type{Kind: KindNamed, Named: id, Args: args})
}
