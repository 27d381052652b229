package patch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// record is one element of the wire format: a JSON array whose elements
// are either edit directives or explanation-only entries.
//
//	{"operation": "Replace", "line": 12, "content": "x = 1"}
//	{"explanation": "the loop index was off by one"}
//
// Pointer fields distinguish a missing key from a present-but-empty one.
type record struct {
	Operation   *string `json:"operation"`
	Line        *int    `json:"line"`
	Content     *string `json:"content"`
	Explanation *string `json:"explanation"`
}

// ParsePatch decodes the wire form of a patch. A record carrying an
// "operation" key is a directive; a record carrying only "explanation"
// passes through as commentary; anything else is malformed. Multiple
// explanation records concatenate in order.
func ParsePatch(data []byte) (Patch, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Patch{}, fmt.Errorf("patch must be a JSON array: %v: %w", err, ErrMalformedDirective)
	}

	var p Patch
	var explanations []string
	for i, msg := range raw {
		var rec record
		if err := json.Unmarshal(msg, &rec); err != nil {
			return Patch{}, fmt.Errorf("record %d: %v: %w", i, err, ErrMalformedDirective)
		}

		switch {
		case rec.Operation != nil:
			d, err := decodeDirective(rec)
			if err != nil {
				return Patch{}, fmt.Errorf("record %d: %w", i, err)
			}
			p.Directives = append(p.Directives, d)
		case rec.Explanation != nil:
			explanations = append(explanations, *rec.Explanation)
		default:
			return Patch{}, fmt.Errorf("record %d carries neither operation nor explanation: %w", i, ErrMalformedDirective)
		}
	}

	p.Explanation = strings.Join(explanations, "\n")
	return p, nil
}

func decodeDirective(rec record) (Directive, error) {
	op := Op(*rec.Operation)
	if !knownOp(op) {
		return Directive{}, fmt.Errorf("unknown operation %q: %w", *rec.Operation, ErrMalformedDirective)
	}
	if rec.Line == nil {
		return Directive{}, fmt.Errorf("%s without a line: %w", op, ErrMalformedDirective)
	}

	d := Directive{Line: *rec.Line, Op: op}
	switch op {
	case OpReplace, OpInsertAfter:
		if rec.Content == nil {
			return Directive{}, fmt.Errorf("%s at line %d without content: %w", op, d.Line, ErrMalformedDirective)
		}
		d.Content = *rec.Content
	case OpDelete:
		// content, if present, is ignored
	}

	if err := d.check(); err != nil {
		return Directive{}, err
	}
	return d, nil
}
