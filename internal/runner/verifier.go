package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/eriksjaastad/mend-go/internal/logger"
	"github.com/eriksjaastad/mend-go/internal/patch"
)

const checkTimeout = 15 * time.Second

// SyntaxVerifier returns a verifier that accepts candidate text only if
// the script's interpreter can still parse it. The candidate is checked
// in a scratch directory so the real file is never touched. Returns nil
// when no syntax checker is available for the script kind; the engine
// treats a nil verifier as no gate.
func SyntaxVerifier(script string) patch.VerifierFunc {
	interp, err := interpreterFor(script)
	if err != nil {
		return nil
	}
	if _, err := exec.LookPath(interp.bin); err != nil {
		logger.Debug("syntax checker unavailable", "bin", interp.bin)
		return nil
	}

	ext := filepath.Ext(script)
	return func(text string) bool {
		dir, err := os.MkdirTemp("", "mend-check-*")
		if err != nil {
			return false
		}
		defer os.RemoveAll(dir)

		candidate := filepath.Join(dir, "candidate"+ext)
		if err := os.WriteFile(candidate, []byte(text), 0600); err != nil {
			return false
		}

		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, interp.bin, append(append([]string{}, interp.check...), candidate)...)
		if err := cmd.Run(); err != nil {
			logger.Debug("candidate failed syntax check", "script", script, "error", err.Error())
			return false
		}
		return true
	}
}
