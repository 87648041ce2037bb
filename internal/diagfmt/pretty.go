package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"starling/internal/diag"
	"starling/internal/source"
)

// Pretty writes one line per diagnostic:
//
//	<path>:<line>:<col>: <severity> <code>: <message>
//
// followed by indented notes when ShowNotes is set. Call bag.Sort()
// first for deterministic order. fs may be nil; locations then render
// as "<input>".
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			location(fs, d.Primary),
			severityLabel(d.Severity, opts.Color),
			d.Code, d.Message)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s: note: %s\n", location(fs, n.Span), n.Msg)
		}
	}
}

func location(fs *source.FileSet, span source.Span) string {
	if fs == nil {
		return "<input>"
	}
	f := fs.Get(span.File)
	if f == nil {
		return "<input>"
	}
	pos := fs.Position(span.File, span.Start)
	return fmt.Sprintf("%s:%d:%d", f.Path, pos.Line, pos.Col)
}

func severityLabel(s diag.Severity, colored bool) string {
	if !colored {
		return s.String()
	}
	switch s {
	case diag.SevError:
		return color.New(color.FgRed, color.Bold).Sprint(s.String())
	case diag.SevWarning:
		return color.New(color.FgYellow).Sprint(s.String())
	default:
		return color.New(color.FgCyan).Sprint(s.String())
	}
}
