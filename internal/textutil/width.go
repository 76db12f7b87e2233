package textutil

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Truncate shortens s to at most width terminal cells, marking the cut with
// an ellipsis. Wide characters are never split.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// PadRight truncates s to width cells and pads it with spaces to exactly
// width cells.
func PadRight(s string, width int) string {
	return runewidth.FillRight(Truncate(s, width), width)
}

// OneLine collapses all whitespace runs, including newlines, to single spaces
// so a message renders on one row.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
