// Package diffview computes and renders the line diff between a file
// and its patched candidate, so every change is visible before it
// reaches disk.
package diffview

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineKind classifies a diff line.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

// Line is one row of a hunk. OldNum/NewNum are 1-indexed positions in
// the respective texts; 0 means the line does not exist on that side.
type Line struct {
	OldNum  int
	NewNum  int
	Kind    LineKind
	Content string
}

// Hunk is a run of changed lines with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

const contextLines = 3

// Compute returns the hunks between two texts, empty when they match.
// The diff runs in line mode so edits never split mid-line.
func Compute(oldText, newText string) []Hunk {
	if oldText == newText {
		return nil
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	return group(toLines(diffs), contextLines)
}

func toLines(diffs []diffmatchpatch.Diff) []Line {
	var out []Line
	oldNum, newNum := 0, 0
	for _, d := range diffs {
		for _, content := range splitDiffText(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldNum++
				newNum++
				out = append(out, Line{OldNum: oldNum, NewNum: newNum, Kind: LineContext, Content: content})
			case diffmatchpatch.DiffDelete:
				oldNum++
				out = append(out, Line{OldNum: oldNum, Kind: LineRemoved, Content: content})
			case diffmatchpatch.DiffInsert:
				newNum++
				out = append(out, Line{NewNum: newNum, Kind: LineAdded, Content: content})
			}
		}
	}
	return out
}

func splitDiffText(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	return lines
}

// group collects changed lines into hunks, merging changes whose
// context windows touch.
func group(lines []Line, context int) []Hunk {
	var hunks []Hunk
	i := 0
	for i < len(lines) {
		if lines[i].Kind == LineContext {
			i++
			continue
		}

		start := max(i-context, 0)
		lastChange := i
		j := i + 1
		for j < len(lines) {
			if lines[j].Kind != LineContext {
				lastChange = j
				j++
				continue
			}
			// a context run longer than two windows separates hunks
			run := 0
			for j+run < len(lines) && lines[j+run].Kind == LineContext {
				run++
			}
			if j+run == len(lines) || run > context*2 {
				break
			}
			j += run
		}

		end := min(lastChange+context, len(lines)-1)
		hunks = append(hunks, makeHunk(lines[start:end+1]))
		i = end + 1
	}
	return hunks
}

func makeHunk(lines []Line) Hunk {
	h := Hunk{Lines: append([]Line(nil), lines...)}
	for _, ln := range lines {
		if ln.Kind != LineAdded {
			h.OldCount++
		}
		if ln.Kind != LineRemoved {
			h.NewCount++
		}
		if h.OldStart == 0 && ln.OldNum > 0 {
			h.OldStart = ln.OldNum
		}
		if h.NewStart == 0 && ln.NewNum > 0 {
			h.NewStart = ln.NewNum
		}
	}
	return h
}

// Stats totals the added and removed lines across hunks.
func Stats(hunks []Hunk) (added, removed int) {
	for _, h := range hunks {
		for _, ln := range h.Lines {
			switch ln.Kind {
			case LineAdded:
				added++
			case LineRemoved:
				removed++
			}
		}
	}
	return added, removed
}
