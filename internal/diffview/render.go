package diffview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")).Bold(true)
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#60a5fa")).Italic(true)
)

// Render formats hunks for the terminal, additions green and removals
// red. Styling degrades to plain text when the output is not a color
// terminal.
func Render(hunks []Hunk) string {
	var sb strings.Builder
	for _, h := range hunks {
		sb.WriteString(hunkStyle.Render(fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)))
		sb.WriteByte('\n')
		for _, ln := range h.Lines {
			switch ln.Kind {
			case LineAdded:
				sb.WriteString(addedStyle.Render("+ " + ln.Content))
			case LineRemoved:
				sb.WriteString(removedStyle.Render("- " + ln.Content))
			default:
				sb.WriteString("  " + ln.Content)
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// RenderNote formats the oracle's explanation above a diff.
func RenderNote(explanation string) string {
	if explanation == "" {
		return ""
	}
	var sb strings.Builder
	for _, line := range strings.Split(explanation, "\n") {
		sb.WriteString(noteStyle.Render("» " + line))
		sb.WriteByte('\n')
	}
	return sb.String()
}
