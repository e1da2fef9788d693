// Package util holds display helpers for rendering team state in a terminal.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// TruncateString shortens s to maxLen runes. It ignores escape codes and
// display width, so use it only for plain output.
func TruncateString(s string, maxLen int) string {
	if maxLen <= len(Ellipsis) {
		return Ellipsis
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-len(Ellipsis)]) + Ellipsis
}

// TruncateANSI shortens s to maxWidth terminal columns, keeping escape
// sequences intact and counting wide characters by their display width.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= len(Ellipsis) {
		return Ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// the tail counts toward maxWidth
	return ansi.Truncate(s, maxWidth, Ellipsis)
}

// SingleLine collapses every run of whitespace, newlines included, into one
// space so multi-line message bodies fit a table cell.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Cell prepares free text for a fixed-width table column.
func Cell(s string, width int) string {
	if width <= 0 {
		return SingleLine(s)
	}
	return TruncateANSI(SingleLine(s), width)
}

// ShortID returns the random suffix of a generated identifier of the form
// prefix_timestamp_suffix, or id unchanged when it has no such suffix.
func ShortID(id string) string {
	i := strings.LastIndexByte(id, '_')
	if i < 0 || i == len(id)-1 || strings.Count(id, "_") < 2 {
		return id
	}
	return id[i+1:]
}
