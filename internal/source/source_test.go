package source

import "testing"

func TestPositionResolvesLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("main.stl", []byte("let x = 1\nlet y = 2\n\nuse(y)\n"))

	cases := []struct {
		offset uint32
		want   LineCol
	}{
		{0, LineCol{Line: 1, Col: 1}},
		{8, LineCol{Line: 1, Col: 9}},
		{10, LineCol{Line: 2, Col: 1}},
		{18, LineCol{Line: 2, Col: 9}},
		{20, LineCol{Line: 3, Col: 1}},
		{21, LineCol{Line: 4, Col: 1}},
		{25, LineCol{Line: 4, Col: 5}},
	}
	for _, tc := range cases {
		if got := fs.Position(id, tc.offset); got != tc.want {
			t.Errorf("Position(%d) = %+v, want %+v", tc.offset, got, tc.want)
		}
	}
}

func TestPositionUnknownFile(t *testing.T) {
	fs := NewFileSet()
	if got := fs.Position(FileID(7), 99); got != (LineCol{Line: 1, Col: 1}) {
		t.Fatalf("Position on missing file = %+v", got)
	}
}

func TestLookupNormalizesPaths(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("pkg/sub/../main.stl", []byte("x"))
	got, ok := fs.Lookup("pkg/main.stl")
	if !ok || got != id {
		t.Fatalf("Lookup normalized path = %d, %v", got, ok)
	}
	if _, ok := fs.Lookup("pkg/other.stl"); ok {
		t.Fatal("Lookup found a file that was never added")
	}
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	fs := NewFileSet()
	a := fs.AddVirtual("a.stl", []byte("a"))
	b := fs.AddVirtual("b.stl", []byte("b"))
	if a == b {
		t.Fatalf("distinct files share FileID %d", a)
	}
	if fs.Len() != 2 {
		t.Fatalf("Len = %d, want 2", fs.Len())
	}
	f := fs.Get(b)
	if f == nil || f.Path != "b.stl" || f.Flags&FileVirtual == 0 {
		t.Fatalf("Get(b) = %+v", f)
	}
	if fs.Get(FileID(2)) != nil {
		t.Fatal("Get past end returned a file")
	}
}

func TestContentHashDiffers(t *testing.T) {
	fs := NewFileSet()
	a := fs.AddVirtual("a.stl", []byte("let x = 1\n"))
	b := fs.AddVirtual("b.stl", []byte("let x = 2\n"))
	if fs.Get(a).Hash == fs.Get(b).Hash {
		t.Fatal("distinct contents share a hash")
	}
}

func TestSpanCover(t *testing.T) {
	s := Span{File: 1, Start: 10, End: 14}
	got := s.Cover(Span{File: 1, Start: 4, End: 12})
	if got != (Span{File: 1, Start: 4, End: 14}) {
		t.Fatalf("Cover = %+v", got)
	}
	got = s.Cover(Span{File: 2, Start: 0, End: 100})
	if got != s {
		t.Fatalf("Cover across files = %+v, want unchanged", got)
	}
	if !(Span{File: 1, Start: 3, End: 3}).Empty() {
		t.Fatal("zero-length span not Empty")
	}
	if (Span{Start: 3, End: 9}).Len() != 6 {
		t.Fatal("Len mismatch")
	}
}
