package patch

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// VerifierFunc judges a candidate result before the engine accepts it.
// Returning false rejects the patch and keeps the original text. The
// engine itself never inspects the text's language; syntax checks and
// the like live behind this seam.
type VerifierFunc func(text string) bool

// Engine applies patches. The zero value is ready to use; set Verifier
// to gate results. Engines hold no per-call state and are safe for
// concurrent use.
type Engine struct {
	Verifier VerifierFunc
}

// Validate checks a whole patch against the original text without
// touching it: per-directive well-formedness, line ranges, and the
// conflict rules. Conflicts come back as a *ConflictError listing every
// clash at once. A nil return guarantees Apply will not reject the
// patch for anything but verification.
func Validate(original string, p Patch) error {
	for _, d := range p.Directives {
		if err := d.check(); err != nil {
			return err
		}
	}

	lines, _, _ := splitLines(original)
	for _, d := range p.Directives {
		if d.Line > len(lines) {
			return fmt.Errorf("%s at line %d (original has %d): %w", d.Op, d.Line, len(lines), ErrLineOutOfRange)
		}
	}

	if conflicts := findConflicts(p.Directives); len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

// findConflicts applies the coexistence rules per original line: at most
// one of Replace/Delete, and Delete excludes InsertAfter. Any number of
// InsertAfter directives may share a line, and Replace pairs with
// InsertAfter (the insert lands after the replacement).
func findConflicts(dirs []Directive) []Conflict {
	type lineOps struct {
		mutations int // Replace + Delete count
		deletes   int
		inserts   int
		ops       []Op
	}

	byLine := make(map[int]*lineOps)
	var order []int
	for _, d := range dirs {
		lo := byLine[d.Line]
		if lo == nil {
			lo = &lineOps{}
			byLine[d.Line] = lo
			order = append(order, d.Line)
		}
		lo.ops = append(lo.ops, d.Op)
		switch d.Op {
		case OpReplace:
			lo.mutations++
		case OpDelete:
			lo.mutations++
			lo.deletes++
		case OpInsertAfter:
			lo.inserts++
		}
	}

	var conflicts []Conflict
	sort.Ints(order)
	for _, line := range order {
		lo := byLine[line]
		if lo.mutations > 1 || (lo.deletes > 0 && lo.inserts > 0) {
			conflicts = append(conflicts, Conflict{Line: line, Ops: lo.ops})
		}
	}
	return conflicts
}

// Apply validates p, applies it to original, and returns the result. On
// any error the original text comes back unchanged; an empty patch
// returns it byte for byte. The verifier, when set, runs exactly once
// on the candidate result.
func (e *Engine) Apply(original string, p Patch) (string, error) {
	if err := Validate(original, p); err != nil {
		return original, err
	}
	if p.IsEmpty() {
		return original, nil
	}

	lines, eol, trailing := splitLines(original)
	patched, err := applyDirectives(lines, p.Directives)
	if err != nil {
		return original, err
	}

	candidate := joinLines(patched, eol, trailing)
	if e.Verifier != nil && !e.Verifier(candidate) {
		return original, fmt.Errorf("candidate rejected by verifier: %w", ErrVerificationFailed)
	}
	return candidate, nil
}

// applyDirectives runs the directives ascending by original line,
// tracking the cumulative drift earlier edits introduced so each
// original reference lands on the right physical line. On ties,
// Delete and Replace go before InsertAfter (the insert attaches to the
// line's final content); same-kind ties keep input order.
func applyDirectives(lines []string, dirs []Directive) ([]string, error) {
	sorted := make([]Directive, len(dirs))
	copy(sorted, dirs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return opRank(sorted[i].Op) < opRank(sorted[j].Op)
	})

	out := slices.Clone(lines)
	offset := 0
	for _, d := range sorted {
		pos := d.Line - 1 + offset
		switch d.Op {
		case OpReplace:
			if pos < 0 || pos >= len(out) {
				return nil, applyRangeError(d, pos, len(out))
			}
			content := contentLines(d.Content)
			out = slices.Replace(out, pos, pos+1, content...)
			offset += len(content) - 1
		case OpDelete:
			if pos < 0 || pos >= len(out) {
				return nil, applyRangeError(d, pos, len(out))
			}
			out = slices.Delete(out, pos, pos+1)
			offset--
		case OpInsertAfter:
			at := pos + 1
			if at < 0 || at > len(out) {
				return nil, applyRangeError(d, pos, len(out))
			}
			content := contentLines(d.Content)
			out = slices.Insert(out, at, content...)
			offset += len(content)
		}
	}
	return out, nil
}

func opRank(op Op) int {
	if op == OpInsertAfter {
		return 1
	}
	return 0
}

func applyRangeError(d Directive, pos, n int) error {
	return fmt.Errorf("%s at line %d resolved to position %d of %d: %w", d.Op, d.Line, pos+1, n, ErrApplyOutOfRange)
}

// contentLines splits directive content into the lines it contributes.
// Content uses "\n" internally regardless of the target's convention.
func contentLines(content string) []string {
	return strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
}

// splitLines breaks text into lines, remembering the line-break
// convention and whether the text ends with a terminator so joinLines
// can reproduce both. Empty text has zero lines.
func splitLines(text string) (lines []string, eol string, trailing bool) {
	eol = "\n"
	if text == "" {
		return nil, eol, false
	}
	if i := strings.Index(text, "\n"); i > 0 && text[i-1] == '\r' {
		eol = "\r\n"
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	trailing = strings.HasSuffix(normalized, "\n")
	if trailing {
		normalized = normalized[:len(normalized)-1]
	}
	return strings.Split(normalized, "\n"), eol, trailing
}

func joinLines(lines []string, eol string, trailing bool) string {
	if len(lines) == 0 {
		return ""
	}
	joined := strings.Join(lines, eol)
	if trailing {
		joined += eol
	}
	return joined
}
