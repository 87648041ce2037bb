package types

import (
	"errors"
	"testing"
)

func TestBuiltinIDsAreStable(t *testing.T) {
	a := NewInterner()
	b := NewInterner()
	if a.Builtins() != b.Builtins() {
		t.Fatalf("builtin ids differ between interners: %+v vs %+v", a.Builtins(), b.Builtins())
	}
	bi := a.Builtins()
	if bi.Invalid != NoTypeID {
		t.Fatalf("Invalid = %d, want %d", bi.Invalid, NoTypeID)
	}
	for _, id := range []TypeID{bi.Unit, bi.Bool, bi.Int, bi.Uint, bi.Float, bi.String} {
		if id == NoTypeID {
			t.Fatalf("builtin interned as NoTypeID: %+v", bi)
		}
	}
	// Re-interning a builtin descriptor must not grow the table.
	n := a.Len()
	if got := a.Intern(Type{Kind: KindInt}); got != bi.Int {
		t.Fatalf("re-intern Int = %d, want %d", got, bi.Int)
	}
	if a.Len() != n {
		t.Fatalf("Len grew from %d to %d on re-intern", n, a.Len())
	}
}

func TestInternIsStructural(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()

	r1 := in.MakeRef(bi.Int, false)
	r2 := in.MakeRef(bi.Int, false)
	if r1 != r2 {
		t.Fatalf("identical refs interned to %d and %d", r1, r2)
	}
	if rm := in.MakeRef(bi.Int, true); rm == r1 {
		t.Fatalf("&Int and &mut Int share TypeID %d", rm)
	}

	p1 := in.MakeParam(0, "T")
	p2 := in.MakeParam(0, "T")
	if p1 != p2 {
		t.Fatalf("identical params interned to %d and %d", p1, p2)
	}
	if other := in.MakeParam(1, "U"); other == p1 {
		t.Fatalf("distinct params share TypeID %d", other)
	}
}

func TestInternRejectsInvalidKind(t *testing.T) {
	in := NewInterner()
	if got := in.Intern(Type{Kind: KindInvalid}); got != NoTypeID {
		t.Fatalf("Intern(KindInvalid) = %d, want NoTypeID", got)
	}
}

func TestMakeNamedDistinguishesArgs(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()
	box := in.AddNamed(NamedInfo{
		Kind:       NamedStruct,
		Name:       "Box",
		TypeParams: []string{"T"},
		Fields:     []Field{{Name: "value", Type: in.MakeParam(0, "T")}},
	})

	boxInt := in.MakeNamed(box, []TypeID{bi.Int})
	boxBool := in.MakeNamed(box, []TypeID{bi.Bool})
	if boxInt == boxBool {
		t.Fatalf("Box<Int> and Box<Bool> share TypeID %d", boxInt)
	}
	if again := in.MakeNamed(box, []TypeID{bi.Int}); again != boxInt {
		t.Fatalf("Box<Int> re-interned to %d, want %d", again, boxInt)
	}
}

func TestLookupBoundaries(t *testing.T) {
	in := NewInterner()
	if _, ok := in.Lookup(NoTypeID); ok {
		t.Fatal("Lookup(NoTypeID) succeeded")
	}
	if _, ok := in.Lookup(TypeID(in.Len())); ok {
		t.Fatal("Lookup past end succeeded")
	}
	if tt, ok := in.Lookup(in.Builtins().Unit); !ok || tt.Kind != KindUnit {
		t.Fatalf("Lookup(Unit) = %+v, %v", tt, ok)
	}
}

func TestSubstituteReplacesParams(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()
	tp := in.MakeParam(0, "T")

	got, err := in.Substitute(tp, []TypeID{bi.Int})
	if err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	if got != bi.Int {
		t.Fatalf("Substitute(T, [Int]) = %s, want Int", in.String(got))
	}

	// Nested through a reference.
	ref := in.MakeRef(tp, true)
	got, err = in.Substitute(ref, []TypeID{bi.Int})
	if err != nil {
		t.Fatalf("Substitute ref: %v", err)
	}
	if want := in.MakeRef(bi.Int, true); got != want {
		t.Fatalf("Substitute(&mut T) = %s, want &mut Int", in.String(got))
	}

	// Nested through named type arguments.
	box := in.AddNamed(NamedInfo{Kind: NamedStruct, Name: "Box", TypeParams: []string{"T"}})
	boxT := in.MakeNamed(box, []TypeID{tp})
	got, err = in.Substitute(boxT, []TypeID{bi.Bool})
	if err != nil {
		t.Fatalf("Substitute named: %v", err)
	}
	if want := in.MakeNamed(box, []TypeID{bi.Bool}); got != want {
		t.Fatalf("Substitute(Box<T>) = %s, want Box<Bool>", in.String(got))
	}
}

func TestSubstituteLeavesGroundTypesAlone(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()
	ref := in.MakeRef(bi.String, false)
	got, err := in.Substitute(ref, nil)
	if err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	if got != ref {
		t.Fatalf("Substitute(&String) = %d, want same id %d", got, ref)
	}
}

func TestSubstituteUnresolvedParam(t *testing.T) {
	in := NewInterner()
	tp := in.MakeParam(1, "U")
	_, err := in.Substitute(tp, []TypeID{in.Builtins().Int})
	var unresolved *ErrUnresolvedParam
	if !errors.As(err, &unresolved) {
		t.Fatalf("Substitute short args = %v, want ErrUnresolvedParam", err)
	}
	if unresolved.Name != "U" || unresolved.Ordinal != 1 {
		t.Fatalf("unexpected error payload: %+v", unresolved)
	}
}

func TestContainsParams(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()
	tp := in.MakeParam(0, "T")
	box := in.AddNamed(NamedInfo{Kind: NamedStruct, Name: "Box", TypeParams: []string{"T"}})

	cases := []struct {
		name string
		id   TypeID
		want bool
	}{
		{"param", tp, true},
		{"ref to param", in.MakeRef(tp, false), true},
		{"named with param arg", in.MakeNamed(box, []TypeID{tp}), true},
		{"named with ground arg", in.MakeNamed(box, []TypeID{bi.Int}), false},
		{"builtin", bi.Int, false},
	}
	for _, tc := range cases {
		if got := in.ContainsParams(tc.id); got != tc.want {
			t.Errorf("%s: ContainsParams = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsCopyOnPass(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()
	point := in.AddNamed(NamedInfo{Kind: NamedStruct, Name: "Point", CopyOnPass: true})
	buf := in.AddNamed(NamedInfo{Kind: NamedStruct, Name: "Buf"})

	if !in.IsCopyOnPass(bi.Int) || !in.IsCopyOnPass(bi.Bool) || !in.IsCopyOnPass(bi.Unit) {
		t.Fatal("primitives must copy on pass")
	}
	if in.IsCopyOnPass(bi.String) {
		t.Fatal("String must move on pass")
	}
	if !in.IsCopyOnPass(in.MakeRef(bi.String, false)) {
		t.Fatal("references must copy on pass")
	}
	if !in.IsCopyOnPass(in.MakeNamed(point, nil)) {
		t.Fatal("CopyOnPass struct must copy")
	}
	if in.IsCopyOnPass(in.MakeNamed(buf, nil)) {
		t.Fatal("plain struct must move")
	}
}

func TestIsIntegerLike(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()
	color := in.AddNamed(NamedInfo{
		Kind:     NamedEnum,
		Name:     "Color",
		Variants: []Variant{{Name: "Red", Tag: 0}, {Name: "Green", Tag: 1}},
	})
	point := in.AddNamed(NamedInfo{Kind: NamedStruct, Name: "Point"})

	if !in.IsIntegerLike(bi.Int) || !in.IsIntegerLike(bi.Uint) || !in.IsIntegerLike(bi.Bool) {
		t.Fatal("Int/Uint/Bool are switchable")
	}
	if in.IsIntegerLike(bi.Float) || in.IsIntegerLike(bi.String) {
		t.Fatal("Float/String are not switchable")
	}
	if !in.IsIntegerLike(in.MakeNamed(color, nil)) {
		t.Fatal("enums are switchable")
	}
	if in.IsIntegerLike(in.MakeNamed(point, nil)) {
		t.Fatal("structs are not switchable")
	}
}

func TestStringRendering(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()
	box := in.AddNamed(NamedInfo{Kind: NamedStruct, Name: "Box", TypeParams: []string{"T"}})

	cases := []struct {
		id   TypeID
		want string
	}{
		{bi.Int, "Int"},
		{in.MakeRef(bi.String, false), "&String"},
		{in.MakeRef(bi.Int, true), "&mut Int"},
		{in.MakeParam(0, "T"), "T"},
		{in.MakeNamed(box, nil), "Box"},
		{in.MakeNamed(box, []TypeID{bi.Int}), "Box<Int>"},
		{in.MakeNamed(box, []TypeID{in.MakeRef(bi.Int, false)}), "Box<&Int>"},
		{NoTypeID, "<invalid>"},
	}
	for _, tc := range cases {
		if got := in.String(tc.id); got != tc.want {
			t.Errorf("String(%d) = %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestMangledName(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()
	box := in.AddNamed(NamedInfo{Kind: NamedStruct, Name: "Box", TypeParams: []string{"T"}})

	cases := []struct {
		args []TypeID
		want string
	}{
		{nil, "first"},
		{[]TypeID{bi.Int}, "first_Int"},
		{[]TypeID{bi.Int, bi.Bool}, "first_Int_Bool"},
		{[]TypeID{in.MakeRef(bi.Int, false)}, "first_ref_Int"},
		{[]TypeID{in.MakeRef(bi.Int, true)}, "first_refmut_Int"},
		{[]TypeID{in.MakeNamed(box, []TypeID{bi.Int})}, "first_Box_Int"},
	}
	for _, tc := range cases {
		if got := in.MangledName("first", tc.args); got != tc.want {
			t.Errorf("MangledName(first, %v) = %q, want %q", tc.args, got, tc.want)
		}
	}
}
