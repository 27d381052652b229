package mcptools

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/eriksjaastad/mend-go/internal/config"
	"github.com/eriksjaastad/mend-go/internal/fixer"
	"github.com/eriksjaastad/mend-go/internal/oracle"
	"github.com/eriksjaastad/mend-go/internal/runner"
	"github.com/eriksjaastad/mend-go/internal/sandbox"
)

func stringArgs(raw interface{}) []string {
	items, _ := raw.([]interface{})
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func runScript(ctx context.Context, cfg *config.Config, path string, args []string, timeoutSecs float64) map[string]interface{} {
	timeout, err := cfg.RunTimeout()
	if err != nil {
		return errorMap(err)
	}
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs * float64(time.Second))
	}

	res, err := runner.New(timeout).Run(ctx, path, args)
	if err != nil {
		return errorMap(err)
	}

	return map[string]interface{}{
		"success":     res.Success(),
		"exit_code":   res.ExitCode,
		"timed_out":   res.TimedOut,
		"output":      res.Output,
		"duration_ms": res.Duration.Milliseconds(),
	}
}

func fixScript(ctx context.Context, sb *sandbox.Sandbox, cfg *config.Config, path string, args []string, maxAttempts, candidates int) map[string]interface{} {
	timeout, err := cfg.RunTimeout()
	if err != nil {
		return errorMap(err)
	}
	client, err := oracle.NewClient(cfg.OracleOptions())
	if err != nil {
		return errorMap(err)
	}

	var preview bytes.Buffer
	f := &fixer.Fixer{
		Runner:  runner.New(timeout),
		Oracle:  oracle.New(client, cfg.Oracle.MaxRetries),
		Sandbox: sb,
		Options: fixer.Options{
			MaxAttempts: maxAttempts,
			Candidates:  candidates,
		},
		Output: &preview,
	}

	outcome, err := f.Run(ctx, fixer.Input{Script: path, Args: args})
	result := map[string]interface{}{
		"success":  outcome.Fixed,
		"fixed":    outcome.Fixed,
		"attempts": outcome.Attempts,
		"output":   outcome.LastResult.Output,
		"changes":  preview.String(),
	}
	if err != nil {
		result["error"] = err.Error()
	}
	return result
}

func revertScript(sb *sandbox.Sandbox, path string) map[string]interface{} {
	if !sb.HasBackup(path) {
		return errorMap(fmt.Errorf("no backup for %s", path))
	}
	if err := sb.Restore(path); err != nil {
		return errorMap(err)
	}

	return map[string]interface{}{
		"success":       true,
		"restored_from": path + sandbox.BackupSuffix,
	}
}

func RegisterScriptTools(s *server.MCPServer, sb *sandbox.Sandbox, cfg *config.Config) {
	// script_run
	s.AddTool(mcp.NewTool("script_run",
		mcp.WithDescription("Run a script and report its outcome without judging it"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Script to run")),
		mcp.WithArray("args", mcp.Description("Arguments passed to the script")),
		mcp.WithNumber("timeout_seconds", mcp.Description("Kill the script after this many seconds (default: from config)")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		path, _ := args["path"].(string)
		timeoutSecs, _ := args["timeout_seconds"].(float64)

		return mcp.NewToolResultStructuredOnly(runScript(ctx, cfg, path, stringArgs(args["args"]), timeoutSecs)), nil
	})

	// script_fix
	s.AddTool(mcp.NewTool("script_fix",
		mcp.WithDescription("Run a script and patch it until it exits zero or the attempt budget runs out"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Script to mend")),
		mcp.WithArray("args", mcp.Description("Arguments passed to the script")),
		mcp.WithNumber("max_attempts", mcp.Description("Patch attempts before giving up (default: from config)")),
		mcp.WithNumber("candidates", mcp.Description("Candidate patches per failure (default: from config)")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		path, _ := args["path"].(string)

		maxAttempts := cfg.Fixer.MaxAttempts
		if v, ok := args["max_attempts"].(float64); ok && v > 0 {
			maxAttempts = int(v)
		}
		candidates := cfg.Fixer.Candidates
		if v, ok := args["candidates"].(float64); ok && v > 0 {
			candidates = int(v)
		}

		return mcp.NewToolResultStructuredOnly(fixScript(ctx, sb, cfg, path, stringArgs(args["args"]), maxAttempts, candidates)), nil
	})

	// script_revert
	s.AddTool(mcp.NewTool("script_revert",
		mcp.WithDescription("Restore a script from the .bak sibling left by earlier patches"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Script to restore")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		path, _ := args["path"].(string)

		return mcp.NewToolResultStructuredOnly(revertScript(sb, path)), nil
	})
}
