// Package mcptools exposes the patch engine and the repair loop as MCP
// tools so agent callers can drive them over stdio.
package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/eriksjaastad/mend-go/internal/diffview"
	"github.com/eriksjaastad/mend-go/internal/patch"
	"github.com/eriksjaastad/mend-go/internal/runner"
	"github.com/eriksjaastad/mend-go/internal/sandbox"
)

func errorMap(err error) map[string]interface{} {
	return map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	}
}

// Tool implementations, kept apart from the MCP plumbing for testing.

func applyPatch(sb *sandbox.Sandbox, path, patchJSON string, verify bool) map[string]interface{} {
	source, err := sb.SafeRead(path)
	if err != nil {
		return errorMap(err)
	}
	p, err := patch.ParsePatch([]byte(patchJSON))
	if err != nil {
		return errorMap(err)
	}

	engine := &patch.Engine{}
	if verify {
		engine.Verifier = runner.SyntaxVerifier(path)
	}
	patched, err := engine.Apply(string(source), p)
	if err != nil {
		return errorMap(err)
	}

	if patched == string(source) {
		return map[string]interface{}{
			"success": true,
			"changed": false,
		}
	}

	if !sb.HasBackup(path) {
		if _, err := sb.Backup(path); err != nil {
			return errorMap(err)
		}
	}
	if err := sb.SafeWrite(path, []byte(patched)); err != nil {
		return errorMap(err)
	}

	added, removed := diffview.Stats(diffview.Compute(string(source), patched))
	return map[string]interface{}{
		"success":    true,
		"changed":    true,
		"directives": len(p.Directives),
		"added":      added,
		"removed":    removed,
		"backup":     path + sandbox.BackupSuffix,
	}
}

func previewPatch(sb *sandbox.Sandbox, path, patchJSON string) map[string]interface{} {
	source, err := sb.SafeRead(path)
	if err != nil {
		return errorMap(err)
	}
	p, err := patch.ParsePatch([]byte(patchJSON))
	if err != nil {
		return errorMap(err)
	}

	engine := &patch.Engine{}
	patched, err := engine.Apply(string(source), p)
	if err != nil {
		return errorMap(err)
	}

	hunks := diffview.Compute(string(source), patched)
	added, removed := diffview.Stats(hunks)
	return map[string]interface{}{
		"success": true,
		"changed": patched != string(source),
		"diff":    diffview.Render(hunks),
		"note":    p.Explanation,
		"added":   added,
		"removed": removed,
	}
}

func RegisterPatchTools(s *server.MCPServer, sb *sandbox.Sandbox) {
	// patch_apply
	s.AddTool(mcp.NewTool("patch_apply",
		mcp.WithDescription("Apply a JSON edit list to a file on disk, keeping a .bak sibling of the original"),
		mcp.WithString("path", mcp.Required(), mcp.Description("File to patch")),
		mcp.WithString("patch", mcp.Required(), mcp.Description("JSON array of edit directives")),
		mcp.WithBoolean("verify", mcp.Description("Syntax-check the patched file before writing (default: true)")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		path, _ := args["path"].(string)
		patchJSON, _ := args["patch"].(string)
		verify, ok := args["verify"].(bool)
		if !ok {
			verify = true
		}

		return mcp.NewToolResultStructuredOnly(applyPatch(sb, path, patchJSON, verify)), nil
	})

	// patch_preview
	s.AddTool(mcp.NewTool("patch_preview",
		mcp.WithDescription("Show what a JSON edit list would change, without touching the file"),
		mcp.WithString("path", mcp.Required(), mcp.Description("File the patch targets")),
		mcp.WithString("patch", mcp.Required(), mcp.Description("JSON array of edit directives")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		path, _ := args["path"].(string)
		patchJSON, _ := args["patch"].(string)

		return mcp.NewToolResultStructuredOnly(previewPatch(sb, path, patchJSON)), nil
	})
}
