package diffview

import (
	"strings"
	"testing"
)

func TestComputeIdenticalTextsHaveNoHunks(t *testing.T) {
	if hunks := Compute("a\nb\n", "a\nb\n"); len(hunks) != 0 {
		t.Errorf("got %d hunks for identical texts", len(hunks))
	}
}

func TestComputeSingleLineChange(t *testing.T) {
	oldText := "one\ntwo\nthree\n"
	newText := "one\nTWO\nthree\n"

	hunks := Compute(oldText, newText)
	if len(hunks) != 1 {
		t.Fatalf("got %d hunks, want 1", len(hunks))
	}

	var removed, added []string
	for _, ln := range hunks[0].Lines {
		switch ln.Kind {
		case LineRemoved:
			removed = append(removed, ln.Content)
		case LineAdded:
			added = append(added, ln.Content)
		}
	}
	if len(removed) != 1 || removed[0] != "two" {
		t.Errorf("removed = %v, want [two]", removed)
	}
	if len(added) != 1 || added[0] != "TWO" {
		t.Errorf("added = %v, want [TWO]", added)
	}
}

func TestComputeNumbersLinesPerSide(t *testing.T) {
	oldText := "a\nb\nc\n"
	newText := "a\nc\n"

	hunks := Compute(oldText, newText)
	if len(hunks) != 1 {
		t.Fatalf("got %d hunks, want 1", len(hunks))
	}
	for _, ln := range hunks[0].Lines {
		switch ln.Kind {
		case LineRemoved:
			if ln.Content == "b" && ln.OldNum != 2 {
				t.Errorf("removed b at old line %d, want 2", ln.OldNum)
			}
			if ln.NewNum != 0 {
				t.Errorf("removed line has NewNum %d, want 0", ln.NewNum)
			}
		case LineContext:
			if ln.OldNum == 0 || ln.NewNum == 0 {
				t.Errorf("context line missing a number: %+v", ln)
			}
		}
	}
}

func TestComputeDistantChangesSplitIntoHunks(t *testing.T) {
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = "ctx"
	}
	oldText := strings.Join(lines, "\n") + "\n"

	changed := append([]string(nil), lines...)
	changed[0] = "FIRST"
	changed[29] = "LAST"
	newText := strings.Join(changed, "\n") + "\n"

	hunks := Compute(oldText, newText)
	if len(hunks) != 2 {
		t.Fatalf("got %d hunks, want 2", len(hunks))
	}
	if hunks[0].NewStart != 1 {
		t.Errorf("first hunk NewStart = %d, want 1", hunks[0].NewStart)
	}
	if len(hunks[0].Lines) > 2+2*contextLines {
		t.Errorf("first hunk too wide: %d lines", len(hunks[0].Lines))
	}
}

func TestComputeInsertionOnly(t *testing.T) {
	hunks := Compute("a\nb\n", "a\nmid\nb\n")
	if len(hunks) != 1 {
		t.Fatalf("got %d hunks, want 1", len(hunks))
	}
	added, removed := Stats(hunks)
	if added != 1 || removed != 0 {
		t.Errorf("stats = +%d -%d, want +1 -0", added, removed)
	}
}

func TestRenderMarksLines(t *testing.T) {
	hunks := Compute("keep\ndrop\n", "keep\nadd\n")
	out := Render(hunks)

	if !strings.Contains(out, "@@") {
		t.Error("render is missing the hunk header")
	}
	if !strings.Contains(out, "- drop") {
		t.Errorf("render is missing the removal: %q", out)
	}
	if !strings.Contains(out, "+ add") {
		t.Errorf("render is missing the addition: %q", out)
	}
}

func TestRenderNote(t *testing.T) {
	if RenderNote("") != "" {
		t.Error("empty explanation should render empty")
	}
	out := RenderNote("fixed the loop\nrenamed x")
	if !strings.Contains(out, "fixed the loop") || !strings.Contains(out, "renamed x") {
		t.Errorf("note lost content: %q", out)
	}
}
