// Package runner executes target scripts and reports how they exited.
// A crashing script is a normal result here, not an error; the fix loop
// feeds its output back to the oracle.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"
)

type interpreter struct {
	bin   string
	check []string // flags for a parse-only syntax check
}

var interpreters = map[string]interpreter{
	".py":  {bin: "python3", check: []string{"-m", "py_compile"}},
	".js":  {bin: "node", check: []string{"--check"}},
	".mjs": {bin: "node", check: []string{"--check"}},
}

// Result captures one script run.
type Result struct {
	// Output is stdout and stderr interleaved, the way a terminal
	// would have shown them.
	Output   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Success reports whether the script ran to completion and exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Runner executes scripts with an optional per-run timeout.
type Runner struct {
	Timeout time.Duration
}

func New(timeout time.Duration) *Runner {
	return &Runner{Timeout: timeout}
}

// Run executes the script with its interpreter. A non-zero exit comes
// back as a Result, not an error; errors mean the script could not be
// started at all.
func (r *Runner) Run(ctx context.Context, script string, args []string) (Result, error) {
	interp, err := interpreterFor(script)
	if err != nil {
		return Result{}, err
	}
	if _, err := exec.LookPath(interp.bin); err != nil {
		return Result{}, fmt.Errorf("%s not found in PATH: %w", interp.bin, err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, interp.bin, append([]string{script}, args...)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	runErr := cmd.Run()
	result := Result{
		Output:   out.String(),
		Duration: time.Since(start),
		TimedOut: ctx.Err() == context.DeadlineExceeded,
	}

	switch e := runErr.(type) {
	case nil:
		result.ExitCode = 0
	case *exec.ExitError:
		result.ExitCode = e.ExitCode()
	default:
		return Result{}, fmt.Errorf("running %s: %w", script, runErr)
	}
	return result, nil
}

func interpreterFor(script string) (interpreter, error) {
	ext := filepath.Ext(script)
	interp, ok := interpreters[ext]
	if !ok {
		return interpreter{}, fmt.Errorf("unsupported script type %q (known: .py, .js, .mjs)", ext)
	}
	return interp, nil
}
