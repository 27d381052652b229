// Package patch models line-indexed edit directives and applies them to
// text. Every directive addresses a line by its position in the ORIGINAL
// text; the engine resolves those positions against the shifting working
// copy, so producers never have to reason about how earlier edits move
// later lines.
package patch

import "fmt"

// Op is the kind of edit a directive performs. The string values double
// as the wire tags and are case-sensitive.
type Op string

const (
	// OpReplace substitutes the referenced line with the directive
	// content. Content holding embedded newlines expands to that many
	// lines.
	OpReplace Op = "Replace"

	// OpDelete removes the referenced line. Content is ignored.
	OpDelete Op = "Delete"

	// OpInsertAfter inserts the directive content as new lines
	// immediately after the referenced line.
	OpInsertAfter Op = "InsertAfter"
)

func knownOp(op Op) bool {
	switch op {
	case OpReplace, OpDelete, OpInsertAfter:
		return true
	}
	return false
}

// Directive is a single edit against one original line.
type Directive struct {
	// Line is the 1-indexed position in the original text. It is never
	// reinterpreted against intermediate states.
	Line int

	Op Op

	// Content is the replacement or inserted text. It may contain "\n"
	// to produce multiple lines, carries no trailing newline, and is
	// ignored for Delete.
	Content string
}

// check validates what can be known without the original text.
func (d Directive) check() error {
	if !knownOp(d.Op) {
		return fmt.Errorf("unknown operation %q: %w", string(d.Op), ErrMalformedDirective)
	}
	if d.Line < 1 {
		return fmt.Errorf("line %d (references are 1-indexed): %w", d.Line, ErrInvalidLineReference)
	}
	return nil
}

// Patch is an ordered set of directives plus the producer's free-text
// explanation. Directive order only matters for same-line inserts, which
// apply in the order given.
type Patch struct {
	Directives  []Directive
	Explanation string
}

// IsEmpty reports whether the patch would change nothing.
func (p Patch) IsEmpty() bool {
	return len(p.Directives) == 0
}
