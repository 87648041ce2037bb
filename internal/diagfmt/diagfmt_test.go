package diagfmt

import (
	"encoding/json"
	"strings"
	"testing"

	"starling/internal/diag"
	"starling/internal/source"
)

func sampleBag(fs *source.FileSet) *diag.Bag {
	id := fs.AddVirtual("main.stl", []byte("let x = take(s)\nuse(s)\n"))
	bag := diag.NewBag(8)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.OwnUseAfterMove,
		Message:  "use of moved value s",
		Primary:  source.Span{File: id, Start: 20, End: 21},
		Notes: []diag.Note{
			{Span: source.Span{File: id, Start: 13, End: 14}, Msg: "value moved here"},
		},
	})
	bag.Add(diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.StructUnreachableCode,
		Message:  "unreachable statement",
		Primary:  source.Span{File: id, Start: 16, End: 22},
	})
	return bag
}

func TestPrettyResolvesPositions(t *testing.T) {
	fs := source.NewFileSet()
	bag := sampleBag(fs)

	var b strings.Builder
	Pretty(&b, bag, fs, PrettyOpts{ShowNotes: true})
	out := b.String()

	if !strings.Contains(out, "main.stl:2:5: ERROR STL5001: use of moved value s") {
		t.Fatalf("primary line missing or wrong:\n%s", out)
	}
	if !strings.Contains(out, "main.stl:1:14: note: value moved here") {
		t.Fatalf("note line missing:\n%s", out)
	}
}

func TestPrettyWithoutFileSet(t *testing.T) {
	fs := source.NewFileSet()
	bag := sampleBag(fs)

	var b strings.Builder
	Pretty(&b, bag, nil, PrettyOpts{})
	out := b.String()

	if !strings.Contains(out, "<input>: ERROR STL5001") {
		t.Fatalf("placeholder location missing:\n%s", out)
	}
	if strings.Contains(out, "note:") {
		t.Fatalf("notes rendered without ShowNotes:\n%s", out)
	}
}

func TestWriteJSON(t *testing.T) {
	fs := source.NewFileSet()
	bag := sampleBag(fs)

	var b strings.Builder
	if err := WriteJSON(&b, bag, fs, JSONOpts{IncludePositions: true}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var out Output
	if err := json.Unmarshal([]byte(b.String()), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("count = %d, diagnostics = %d, want 2", out.Count, len(out.Diagnostics))
	}
	first := out.Diagnostics[0]
	if first.Code != "STL5001" || first.Location.Line != 2 || first.Location.Col != 5 {
		t.Fatalf("first diagnostic = %+v", first)
	}
	if len(first.Notes) != 1 || first.Notes[0].Location.Line != 1 {
		t.Fatalf("notes = %+v", first.Notes)
	}
}
