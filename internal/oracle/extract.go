package oracle

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/eriksjaastad/mend-go/internal/patch"
)

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\n?(.*?)\n?```")

// ExtractPatch pulls the edit list out of a model reply. Models rarely
// obey the pure-JSON instruction perfectly, so the strategies go from
// strict to forgiving:
//
//  1. a fenced ```json block
//  2. the whole reply as a JSON array
//  3. the span from the first "[" to the last "]"
func ExtractPatch(reply string) (patch.Patch, error) {
	if match := jsonBlockRegex.FindStringSubmatch(reply); len(match) >= 2 {
		if p, err := patch.ParsePatch([]byte(match[1])); err == nil {
			return p, nil
		}
	}

	trimmed := strings.TrimSpace(reply)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		if p, err := patch.ParsePatch([]byte(trimmed)); err == nil {
			return p, nil
		}
	}

	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start >= 0 && end > start {
		p, err := patch.ParsePatch([]byte(reply[start : end+1]))
		if err == nil {
			return p, nil
		}
		return patch.Patch{}, fmt.Errorf("reply contains a JSON array that is not a valid edit list: %w", err)
	}

	return patch.Patch{}, fmt.Errorf("reply contains no JSON edit list: %w", patch.ErrMalformedDirective)
}
