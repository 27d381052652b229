package patch

import (
	"errors"
	"strings"
	"testing"
)

const sample = "alpha\nbravo\ncharlie\ndelta\n"

func TestApplySingleReplace(t *testing.T) {
	e := &Engine{}
	got, err := e.Apply(sample, Patch{Directives: []Directive{
		{Line: 2, Op: OpReplace, Content: "BRAVO"},
	}})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	want := "alpha\nBRAVO\ncharlie\ndelta\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyEmptyPatchIsByteForByteNoOp(t *testing.T) {
	e := &Engine{Verifier: func(string) bool {
		t.Error("verifier ran on an empty patch")
		return true
	}}

	inputs := []string{"", "one line no terminator", "a\r\nb\r\n", "mixed\nendings\r\nhere"}
	for _, in := range inputs {
		got, err := e.Apply(in, Patch{})
		if err != nil {
			t.Fatalf("Apply(%q) returned error: %v", in, err)
		}
		if got != in {
			t.Errorf("Apply(%q) = %q, want identical text", in, got)
		}
	}
}

func TestApplyIdenticalReplaceIsIdempotent(t *testing.T) {
	e := &Engine{}
	p := Patch{Directives: []Directive{{Line: 3, Op: OpReplace, Content: "charlie"}}}

	got, err := e.Apply(sample, p)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if got != sample {
		t.Errorf("replacing a line with itself changed the text: %q", got)
	}
}

func TestApplyDeleteShiftsLaterReferences(t *testing.T) {
	e := &Engine{}
	got, err := e.Apply(sample, Patch{Directives: []Directive{
		{Line: 1, Op: OpDelete},
		{Line: 4, Op: OpReplace, Content: "DELTA"},
	}})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	want := "bravo\ncharlie\nDELTA\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyInsertAfterAccumulatesOffset(t *testing.T) {
	e := &Engine{}
	got, err := e.Apply(sample, Patch{Directives: []Directive{
		{Line: 1, Op: OpInsertAfter, Content: "one\ntwo"},
		{Line: 3, Op: OpReplace, Content: "CHARLIE"},
		{Line: 4, Op: OpInsertAfter, Content: "tail"},
	}})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	want := "alpha\none\ntwo\nbravo\nCHARLIE\ndelta\ntail\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyMultiLineReplaceKeepsLaterReferencesValid(t *testing.T) {
	e := &Engine{}
	got, err := e.Apply(sample, Patch{Directives: []Directive{
		{Line: 1, Op: OpReplace, Content: "a1\na2\na3"},
		{Line: 4, Op: OpDelete},
	}})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	want := "a1\na2\na3\nbravo\ncharlie\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplySameLineReplaceThenInsert(t *testing.T) {
	e := &Engine{}
	got, err := e.Apply("only\n", Patch{Directives: []Directive{
		{Line: 1, Op: OpInsertAfter, Content: "after"},
		{Line: 1, Op: OpReplace, Content: "ONLY"},
	}})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	// the insert lands after the replacement regardless of input order
	want := "ONLY\nafter\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplySameLineInsertsKeepInputOrder(t *testing.T) {
	e := &Engine{}
	got, err := e.Apply("top\n", Patch{Directives: []Directive{
		{Line: 1, Op: OpInsertAfter, Content: "first"},
		{Line: 1, Op: OpInsertAfter, Content: "second"},
	}})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	want := "top\nfirst\nsecond\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyInsertAtEndOfFile(t *testing.T) {
	e := &Engine{}
	got, err := e.Apply(sample, Patch{Directives: []Directive{
		{Line: 4, Op: OpInsertAfter, Content: "echo"},
	}})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	want := sample + "echo\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyPreservesLineBreakConvention(t *testing.T) {
	t.Run("crlf", func(t *testing.T) {
		e := &Engine{}
		got, err := e.Apply("a\r\nb\r\n", Patch{Directives: []Directive{
			{Line: 2, Op: OpReplace, Content: "B1\nB2"},
		}})
		if err != nil {
			t.Fatalf("Apply returned error: %v", err)
		}
		want := "a\r\nB1\r\nB2\r\n"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("no trailing terminator", func(t *testing.T) {
		e := &Engine{}
		got, err := e.Apply("a\nb", Patch{Directives: []Directive{
			{Line: 1, Op: OpDelete},
		}})
		if err != nil {
			t.Fatalf("Apply returned error: %v", err)
		}
		if got != "b" {
			t.Errorf("got %q, want %q", got, "b")
		}
	})

	t.Run("deleting every line yields empty text", func(t *testing.T) {
		e := &Engine{}
		got, err := e.Apply("a\nb\n", Patch{Directives: []Directive{
			{Line: 1, Op: OpDelete},
			{Line: 2, Op: OpDelete},
		}})
		if err != nil {
			t.Fatalf("Apply returned error: %v", err)
		}
		if got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}

func TestValidateRejectsConflicts(t *testing.T) {
	conflicting := []struct {
		name string
		dirs []Directive
	}{
		{"two replaces on one line", []Directive{
			{Line: 2, Op: OpReplace, Content: "x"},
			{Line: 2, Op: OpReplace, Content: "y"},
		}},
		{"replace and delete on one line", []Directive{
			{Line: 2, Op: OpReplace, Content: "x"},
			{Line: 2, Op: OpDelete},
		}},
		{"two deletes on one line", []Directive{
			{Line: 3, Op: OpDelete},
			{Line: 3, Op: OpDelete},
		}},
		{"delete and insert-after on one line", []Directive{
			{Line: 1, Op: OpDelete},
			{Line: 1, Op: OpInsertAfter, Content: "x"},
		}},
	}
	for _, tc := range conflicting {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(sample, Patch{Directives: tc.dirs})
			if !errors.Is(err, ErrConflictingDirectives) {
				t.Fatalf("error = %v, want ErrConflictingDirectives", err)
			}
			var ce *ConflictError
			if !errors.As(err, &ce) {
				t.Fatalf("error is not a *ConflictError: %v", err)
			}
			if len(ce.Conflicts) != 1 || ce.Conflicts[0].Line != tc.dirs[0].Line {
				t.Errorf("conflicts = %+v, want one at line %d", ce.Conflicts, tc.dirs[0].Line)
			}

			e := &Engine{}
			got, applyErr := e.Apply(sample, Patch{Directives: tc.dirs})
			if !errors.Is(applyErr, ErrConflictingDirectives) {
				t.Errorf("Apply error = %v, want ErrConflictingDirectives", applyErr)
			}
			if got != sample {
				t.Errorf("Apply modified the text on a conflicting patch: %q", got)
			}
		})
	}

	compatible := []struct {
		name string
		dirs []Directive
	}{
		{"replace and insert-after on one line", []Directive{
			{Line: 2, Op: OpReplace, Content: "x"},
			{Line: 2, Op: OpInsertAfter, Content: "y"},
		}},
		{"two inserts on one line", []Directive{
			{Line: 2, Op: OpInsertAfter, Content: "x"},
			{Line: 2, Op: OpInsertAfter, Content: "y"},
		}},
		{"mutations on distinct lines", []Directive{
			{Line: 1, Op: OpDelete},
			{Line: 2, Op: OpDelete},
		}},
	}
	for _, tc := range compatible {
		t.Run(tc.name+" is allowed", func(t *testing.T) {
			if err := Validate(sample, Patch{Directives: tc.dirs}); err != nil {
				t.Errorf("Validate returned %v, want nil", err)
			}
		})
	}

	t.Run("reports every conflicting line at once", func(t *testing.T) {
		err := Validate(sample, Patch{Directives: []Directive{
			{Line: 1, Op: OpDelete},
			{Line: 1, Op: OpDelete},
			{Line: 3, Op: OpReplace, Content: "x"},
			{Line: 3, Op: OpDelete},
		}})
		var ce *ConflictError
		if !errors.As(err, &ce) {
			t.Fatalf("error = %v, want *ConflictError", err)
		}
		if len(ce.Conflicts) != 2 {
			t.Fatalf("got %d conflicts, want 2: %+v", len(ce.Conflicts), ce.Conflicts)
		}
		if ce.Conflicts[0].Line != 1 || ce.Conflicts[1].Line != 3 {
			t.Errorf("conflict lines = %d, %d; want 1, 3", ce.Conflicts[0].Line, ce.Conflicts[1].Line)
		}
	})
}

func TestValidateRejectsOutOfRangeLines(t *testing.T) {
	t.Run("beyond the last line", func(t *testing.T) {
		err := Validate(sample, Patch{Directives: []Directive{
			{Line: 5, Op: OpInsertAfter, Content: "x"},
		}})
		if !errors.Is(err, ErrLineOutOfRange) {
			t.Errorf("error = %v, want ErrLineOutOfRange", err)
		}
	})

	t.Run("any reference into empty text", func(t *testing.T) {
		err := Validate("", Patch{Directives: []Directive{
			{Line: 1, Op: OpReplace, Content: "x"},
		}})
		if !errors.Is(err, ErrLineOutOfRange) {
			t.Errorf("error = %v, want ErrLineOutOfRange", err)
		}
	})

	t.Run("apply leaves the original untouched", func(t *testing.T) {
		e := &Engine{}
		got, err := e.Apply(sample, Patch{Directives: []Directive{
			{Line: 99, Op: OpDelete},
		}})
		if !errors.Is(err, ErrLineOutOfRange) {
			t.Fatalf("error = %v, want ErrLineOutOfRange", err)
		}
		if got != sample {
			t.Errorf("original was modified on a rejected patch: %q", got)
		}
	})
}

func TestApplyOutOfRangePositionAbortsRawApplication(t *testing.T) {
	// applyDirectives trusts its caller to have validated; feeding it an
	// unvalidated out-of-range directive must fail cleanly, not panic.
	_, err := applyDirectives([]string{"solo"}, []Directive{
		{Line: 5, Op: OpDelete},
	})
	if !errors.Is(err, ErrApplyOutOfRange) {
		t.Errorf("error = %v, want ErrApplyOutOfRange", err)
	}
}

func TestApplyVerifier(t *testing.T) {
	t.Run("accepting verifier passes the result through", func(t *testing.T) {
		calls := 0
		e := &Engine{Verifier: func(text string) bool {
			calls++
			return strings.Contains(text, "BRAVO")
		}}
		got, err := e.Apply(sample, Patch{Directives: []Directive{
			{Line: 2, Op: OpReplace, Content: "BRAVO"},
		}})
		if err != nil {
			t.Fatalf("Apply returned error: %v", err)
		}
		if calls != 1 {
			t.Errorf("verifier ran %d times, want 1", calls)
		}
		if !strings.Contains(got, "BRAVO") {
			t.Errorf("result lost the edit: %q", got)
		}
	})

	t.Run("rejecting verifier keeps the original", func(t *testing.T) {
		e := &Engine{Verifier: func(string) bool { return false }}
		got, err := e.Apply(sample, Patch{Directives: []Directive{
			{Line: 2, Op: OpDelete},
		}})
		if !errors.Is(err, ErrVerificationFailed) {
			t.Fatalf("error = %v, want ErrVerificationFailed", err)
		}
		if got != sample {
			t.Errorf("rejected apply leaked changes: %q", got)
		}
	})
}

func TestApplyWireDocumentEndToEnd(t *testing.T) {
	doc := []byte(`[
		{"explanation": "rename and trim"},
		{"operation": "Replace", "line": 1, "content": "ALPHA"},
		{"operation": "Delete", "line": 3},
		{"operation": "InsertAfter", "line": 4, "content": "echo\nfoxtrot"}
	]`)
	p, err := ParsePatch(doc)
	if err != nil {
		t.Fatalf("ParsePatch returned error: %v", err)
	}

	e := &Engine{}
	got, err := e.Apply(sample, p)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	want := "ALPHA\nbravo\ndelta\necho\nfoxtrot\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if p.Explanation != "rename and trim" {
		t.Errorf("Explanation = %q", p.Explanation)
	}
}
