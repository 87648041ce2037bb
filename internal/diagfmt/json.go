package diagfmt

import (
	"encoding/json"
	"io"

	"starling/internal/diag"
	"starling/internal/source"
)

// LocationJSON is a resolved span.
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	Line      uint32 `json:"line,omitempty"`
	Col       uint32 `json:"col,omitempty"`
}

// NoteJSON is one attached note.
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON is one rendered diagnostic.
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// Output is the document root.
type Output struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

// WriteJSON renders the bag as an indented JSON document.
func WriteJSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	out := Output{Diagnostics: make([]DiagnosticJSON, 0, bag.Len()), Count: bag.Len()}
	for _, d := range bag.Items() {
		rec := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.String(),
			Message:  d.Message,
			Location: jsonLocation(fs, d.Primary, opts),
		}
		for _, n := range d.Notes {
			rec.Notes = append(rec.Notes, NoteJSON{Message: n.Msg, Location: jsonLocation(fs, n.Span, opts)})
		}
		out.Diagnostics = append(out.Diagnostics, rec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func jsonLocation(fs *source.FileSet, span source.Span, opts JSONOpts) LocationJSON {
	loc := LocationJSON{File: "<input>", StartByte: span.Start, EndByte: span.End}
	if fs == nil {
		return loc
	}
	f := fs.Get(span.File)
	if f == nil {
		return loc
	}
	loc.File = f.Path
	if opts.IncludePositions {
		pos := fs.Position(span.File, span.Start)
		loc.Line = pos.Line
		loc.Col = pos.Col
	}
	return loc
}
