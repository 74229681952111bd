package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a single column for TableGrid. Width is the visual
// width of the cell content, excluding separators.
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

const tableGridLeftOffset = 2

var (
	gridLineStyle = lipgloss.NewStyle().
			Foreground(borderColor)

	gridActiveRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#d7d9da")).
				Background(lipgloss.Color("#1f2530")).
				Bold(true)
)

// TableGrid renders a header, a rule and rows with rounded-border glyphs as
// separators. activeRow highlights one row; pass -1 for none. The last column
// absorbs whatever width is left over so every line is tableWidth wide.
func TableGrid(columns []TableColumn, rows [][]string, tableWidth, activeRow int) string {
	if tableWidth <= 0 {
		return ""
	}
	if len(columns) == 0 {
		return padRight("", tableWidth)
	}

	border := lipgloss.RoundedBorder()
	cols := fitGridColumns(columns, lipgloss.Width(border.Left), tableWidth)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}

	out := make([]string, 0, len(rows)+2)
	out = append(out, renderGridRow(cols, header, border.Left, tableWidth, boxLabelStyle))
	out = append(out, renderGridRule(cols, border.Middle, border.Top, tableWidth))
	for i, row := range rows {
		style := lipgloss.NewStyle()
		if i == activeRow {
			style = gridActiveRowStyle
		}
		out = append(out, renderGridRow(cols, row, border.Left, tableWidth, style))
	}
	return strings.Join(out, "\n")
}

func fitGridColumns(columns []TableColumn, sepWidth, tableWidth int) []TableColumn {
	fitted := make([]TableColumn, len(columns))
	copy(fitted, columns)

	available := max(tableWidth-tableGridLeftOffset, len(fitted))
	used := max(len(fitted)-1, 0) * max(sepWidth, 1)
	for i := range fitted {
		fitted[i].Width = max(fitted[i].Width, 1)
		used += fitted[i].Width
	}
	last := &fitted[len(fitted)-1]
	last.Width = max(last.Width+available-used, 1)
	return fitted
}

func renderGridRow(columns []TableColumn, cells []string, sep string, tableWidth int, style lipgloss.Style) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", tableGridLeftOffset))
	for i, col := range columns {
		if i > 0 {
			b.WriteString(gridLineStyle.Inline(true).Render(sep))
		}
		text := ""
		if i < len(cells) {
			text = cells[i]
		}
		b.WriteString(style.Inline(true).Render(renderGridCell(text, col.Width, col.Align)))
	}
	return padRight(b.String(), tableWidth)
}

func renderGridRule(columns []TableColumn, cross, horiz string, tableWidth int) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = strings.Repeat(horiz, col.Width)
	}
	line := strings.Repeat(" ", tableGridLeftOffset) + strings.Join(parts, cross)
	return gridLineStyle.Inline(true).Render(padRight(line, tableWidth))
}

func renderGridCell(text string, width int, align lipgloss.Position) string {
	clamped := ClampTextWidth(text, width)
	pad := width - lipgloss.Width(clamped)
	if pad <= 0 {
		return clamped
	}
	switch align {
	case lipgloss.Right:
		return strings.Repeat(" ", pad) + clamped
	case lipgloss.Center:
		left := pad / 2
		return strings.Repeat(" ", left) + clamped + strings.Repeat(" ", pad-left)
	default:
		return clamped + strings.Repeat(" ", pad)
	}
}
