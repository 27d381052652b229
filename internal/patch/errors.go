package patch

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for every way a patch can be rejected. Callers match
// with errors.Is; wrapped messages carry the line and operation involved.
var (
	// ErrMalformedDirective reports a record whose operation tag is not
	// one of the known kinds, or which is missing a required field.
	ErrMalformedDirective = errors.New("malformed directive")

	// ErrInvalidLineReference reports a line number below 1. References
	// are 1-indexed positions in the original text.
	ErrInvalidLineReference = errors.New("invalid line reference")

	// ErrLineOutOfRange reports a line number beyond the end of the
	// original text.
	ErrLineOutOfRange = errors.New("line out of range")

	// ErrConflictingDirectives reports two or more directives that
	// cannot both take effect. The returned error is a *ConflictError.
	ErrConflictingDirectives = errors.New("conflicting directives")

	// ErrApplyOutOfRange reports a directive whose adjusted position
	// fell outside the working text during application. Validation makes
	// this unreachable for patches that passed Validate.
	ErrApplyOutOfRange = errors.New("apply position out of range")

	// ErrVerificationFailed reports a candidate result rejected by the
	// engine's verifier. The original text is returned unchanged.
	ErrVerificationFailed = errors.New("verification failed")
)

// Conflict names one original line targeted by directives that cannot
// coexist, with the clashing operation kinds in input order.
type Conflict struct {
	Line int
	Ops  []Op
}

func (c Conflict) String() string {
	kinds := make([]string, len(c.Ops))
	for i, op := range c.Ops {
		kinds[i] = string(op)
	}
	return fmt.Sprintf("line %d: %s", c.Line, strings.Join(kinds, " vs "))
}

// ConflictError carries every conflict found in a patch so callers can
// report all of them at once instead of fixing one per attempt.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%v: %s", ErrConflictingDirectives, strings.Join(parts, "; "))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflictingDirectives
}
