// Package diagfmt renders accumulated diagnostics for the CLI: a
// human-readable text form and a machine-readable JSON form.
package diagfmt

// PrettyOpts configures the text renderer.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
}

// JSONOpts configures the JSON renderer.
type JSONOpts struct {
	// IncludePositions resolves byte offsets to line/column pairs. Needs
	// a file set; decoded artifact modules carry no spans, so positions
	// stay zero for them either way.
	IncludePositions bool
}
