// Package fixer drives the repair loop: run the script, ask the oracle
// for a patch when it crashes, preview and apply the patch, run again.
package fixer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/eriksjaastad/mend-go/internal/diffview"
	"github.com/eriksjaastad/mend-go/internal/logger"
	"github.com/eriksjaastad/mend-go/internal/oracle"
	"github.com/eriksjaastad/mend-go/internal/patch"
	"github.com/eriksjaastad/mend-go/internal/runner"
	"github.com/eriksjaastad/mend-go/internal/sandbox"
)

// ErrRejected means the user declined the proposed change at the
// confirmation gate.
var ErrRejected = errors.New("change rejected")

// ScriptRunner runs the target script.
type ScriptRunner interface {
	Run(ctx context.Context, script string, args []string) (runner.Result, error)
}

// PatchOracle proposes candidate patches for a failure.
type PatchOracle interface {
	SuggestN(ctx context.Context, req oracle.Request, n int) ([]patch.Patch, error)
}

// Options tunes the loop.
type Options struct {
	// MaxAttempts is how many patches may be applied before giving up.
	MaxAttempts int
	// Candidates is how many patches to sample per failure.
	Candidates int
	// Confirm gates every write behind ConfirmFunc.
	Confirm bool
}

// Fixer wires the loop's collaborators together.
type Fixer struct {
	Runner  ScriptRunner
	Oracle  PatchOracle
	Sandbox *sandbox.Sandbox
	Options Options

	// ConfirmFunc is asked before each write when Options.Confirm is
	// set. Nil approves everything.
	ConfirmFunc func() bool

	// Output receives the change previews. Defaults to stdout.
	Output io.Writer
}

// Input names the script to mend.
type Input struct {
	Script string
	Args   []string
}

// Outcome summarizes a loop run.
type Outcome struct {
	// Fixed is true when the script finally exited zero.
	Fixed bool
	// Attempts is the number of patches applied.
	Attempts int
	// LastResult is the final script run.
	LastResult runner.Result
}

func (f *Fixer) out() io.Writer {
	if f.Output != nil {
		return f.Output
	}
	return os.Stdout
}

// Run executes the repair loop until the script succeeds, the attempt
// budget runs out, or the user rejects a change. The script file on
// disk always holds either its original content or a verified patched
// version; the first write leaves a .bak sibling behind.
func (f *Fixer) Run(ctx context.Context, in Input) (Outcome, error) {
	maxAttempts := f.Options.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	candidates := f.Options.Candidates
	if candidates <= 0 {
		candidates = 1
	}

	engine := &patch.Engine{Verifier: runner.SyntaxVerifier(in.Script)}
	var outcome Outcome

	for attempt := 0; ; attempt++ {
		res, err := f.Runner.Run(ctx, in.Script, in.Args)
		if err != nil {
			return outcome, err
		}
		outcome.LastResult = res

		if res.Success() {
			outcome.Fixed = true
			logger.Info("script ran clean", "script", in.Script, "patches_applied", outcome.Attempts)
			return outcome, nil
		}
		if attempt >= maxAttempts {
			return outcome, fmt.Errorf("%s still failing after %d patch attempts", in.Script, maxAttempts)
		}

		attemptID := uuid.New().String()
		log := logger.With("attempt_id", attemptID, "script", in.Script)
		log.Info("script failed", "exit_code", res.ExitCode, "timed_out", res.TimedOut)

		source, err := f.Sandbox.SafeRead(in.Script)
		if err != nil {
			return outcome, err
		}

		req := oracle.Request{
			Script:  in.Script,
			Source:  string(source),
			Args:    in.Args,
			Failure: res.Output,
		}
		proposals, err := f.Oracle.SuggestN(ctx, req, candidates)
		if err != nil {
			return outcome, fmt.Errorf("attempt %d: %w", attempt+1, err)
		}

		applied := false
		for i, p := range proposals {
			patched, err := engine.Apply(string(source), p)
			if err != nil {
				log.Warn("candidate rejected", "candidate", i+1, "reason", err.Error())
				continue
			}
			if patched == string(source) {
				log.Warn("candidate changed nothing", "candidate", i+1)
				continue
			}

			hunks := diffview.Compute(string(source), patched)
			fmt.Fprint(f.out(), diffview.RenderNote(p.Explanation))
			fmt.Fprint(f.out(), diffview.Render(hunks))

			if f.Options.Confirm && f.ConfirmFunc != nil && !f.ConfirmFunc() {
				log.Info("change rejected by user", "candidate", i+1)
				return outcome, ErrRejected
			}

			if !f.Sandbox.HasBackup(in.Script) {
				if _, err := f.Sandbox.Backup(in.Script); err != nil {
					return outcome, err
				}
			}
			if err := f.Sandbox.SafeWrite(in.Script, []byte(patched)); err != nil {
				return outcome, err
			}

			outcome.Attempts++
			applied = true
			log.Info("patch applied", "candidate", i+1, "directives", len(p.Directives))
			break
		}

		if !applied {
			return outcome, fmt.Errorf("attempt %d: no candidate patch could be applied", attempt+1)
		}
	}
}
