// Package textutil lays out text in terminal columns, counting display width
// rather than bytes so accented culture strings align.
package textutil

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// Width returns the number of terminal columns s occupies.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

// StyledWidth is Width for strings that carry ANSI styling.
func StyledWidth(s string) int {
	return lipgloss.Width(s)
}

// Truncate shortens s to at most maxWidth columns, ending in Ellipsis when
// anything was cut.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if Width(s) <= maxWidth {
		return s
	}
	avail := maxWidth - Width(Ellipsis)
	if avail < 0 {
		return Ellipsis
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if used+w > avail {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + Ellipsis
}

// PadRight pads s with spaces to width columns, truncating if wider.
func PadRight(s string, width int) string {
	if Width(s) >= width {
		return Truncate(s, width)
	}
	return runewidth.FillRight(s, width)
}

// PadLeft right-aligns s in width columns, truncating if wider.
func PadLeft(s string, width int) string {
	if Width(s) >= width {
		return Truncate(s, width)
	}
	return runewidth.FillLeft(s, width)
}

// Row joins cells padded to widths with two spaces between columns. The last
// cell is not padded. Missing widths leave cells as they are.
func Row(cells []string, widths []int) string {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		if i < len(widths) && i < len(cells)-1 {
			c = PadRight(c, widths[i])
		}
		b.WriteString(c)
	}
	return b.String()
}

// ColumnWidths returns, per column, the widest cell across rows, capped at
// max (no cap when max <= 0).
func ColumnWidths(rows [][]string, max int) []int {
	var widths []int
	for _, r := range rows {
		for i, c := range r {
			for len(widths) <= i {
				widths = append(widths, 0)
			}
			if w := Width(c); w > widths[i] {
				widths[i] = w
			}
		}
	}
	if max > 0 {
		for i := range widths {
			if widths[i] > max {
				widths[i] = max
			}
		}
	}
	return widths
}
