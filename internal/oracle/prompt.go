package oracle

import (
	"fmt"
	"strings"
)

// SystemPrompt states the contract the model must follow. The reply
// format mirrors what ParsePatch accepts, so a compliant reply needs no
// cleanup at all.
const SystemPrompt = `You are an automated code repair assistant. You receive a script that crashed, its source with line numbers, and the failure output. Your job is to propose the minimal edits that make the script run correctly.

Respond ONLY with a JSON array. Each element is one of:
  {"explanation": "short human-readable reason for the fix"}
  {"operation": "Replace", "line": <number>, "content": "<new line>"}
  {"operation": "Delete", "line": <number>}
  {"operation": "InsertAfter", "line": <number>, "content": "<new line(s)>"}

Rules:
- "line" always refers to the line numbers shown in the source listing. Never renumber for your own earlier edits.
- Operation names are exactly Replace, Delete, InsertAfter.
- "content" must not include the line-number prefix. Use \n inside content for multiple lines and keep the original indentation style.
- Do not emit two Replace or Delete operations for the same line, or a Delete together with an InsertAfter on the same line.
- No prose, no markdown, no code fences outside the JSON array.`

const userTemplate = `The script below exited with an error.

Script: {{SCRIPT}}
Arguments: {{ARGS}}

Source with line numbers:
{{SOURCE}}

Failure output:
{{FAILURE}}

Reply with the JSON edit list.`

const restateTemplate = `Your previous reply could not be used: {{REASON}}

Restate the complete edit list as pure JSON: a single array of operation and explanation records, nothing else.`

// Request carries everything the oracle needs to reason about one
// failure.
type Request struct {
	Script  string
	Source  string
	Args    []string
	Failure string
}

// BuildUserPrompt renders the failure report the model sees.
func BuildUserPrompt(req Request) string {
	args := "(none)"
	if len(req.Args) > 0 {
		args = strings.Join(req.Args, " ")
	}

	prompt := strings.ReplaceAll(userTemplate, "{{SCRIPT}}", req.Script)
	prompt = strings.ReplaceAll(prompt, "{{ARGS}}", args)
	prompt = strings.ReplaceAll(prompt, "{{SOURCE}}", NumberLines(req.Source))
	prompt = strings.ReplaceAll(prompt, "{{FAILURE}}", strings.TrimSpace(req.Failure))
	return prompt
}

func buildRestatePrompt(reason error) string {
	return strings.ReplaceAll(restateTemplate, "{{REASON}}", reason.Error())
}

// NumberLines prefixes each line with its 1-indexed position, the
// numbering every directive's line field refers back to.
func NumberLines(source string) string {
	if source == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(source, "\n"), "\n")
	var sb strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb, "%d: %s\n", i+1, line)
	}
	return sb.String()
}
