// Package components holds the lipgloss building blocks shared by the gate
// views, the shell, and the built-in pages.
package components

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

var (
	borderColor       = lipgloss.Color("#273540")
	activeBorderColor = lipgloss.Color("#ec4899")

	boxBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(1, 2)

	boxBorderActive = boxBorder.BorderForeground(activeBorderColor)

	boxHeaderStyle = lipgloss.NewStyle().
			Foreground(activeBorderColor).
			Bold(true)

	boxValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d7d9da"))

	boxLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#436b77")).
			Bold(true)

	errorBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7a2f3a")).
			Padding(1, 2)

	errorHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e06c75")).
				Bold(true)

	errorBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d6b5b5"))
)

// boxWidth is ~70% of the terminal, clamped to [40, 80].
func boxWidth(width int) int {
	if width <= 0 {
		return 0
	}
	return min(max(width*70/100, 40), 80)
}

func safeBoxWidth(width int) int {
	w := boxWidth(width)
	if width > 0 && w > width {
		return width
	}
	return w
}

// BoxContentWidth returns the inner content width excluding border and padding.
func BoxContentWidth(width int) int {
	w := safeBoxWidth(width)
	if w <= 0 {
		return 0
	}
	// Border adds 2, padding adds 4.
	return max(w-6, 0)
}

// ClampTextWidth flattens text to one line and truncates it to width cells.
func ClampTextWidth(text string, width int) string {
	cleaned := SanitizeOneLine(text)
	if width <= 0 || lipgloss.Width(cleaned) <= width {
		return cleaned
	}
	return truncateRunes(cleaned, width)
}

// ErrorBox renders a red bordered box for errors.
func ErrorBox(title, message string, width int) string {
	header := ""
	if title != "" {
		header = errorHeaderStyle.Render(title) + "\n\n"
	}
	body := errorBodyStyle.Render(SanitizeText(message))
	return errorBorder.Width(safeBoxWidth(width)).Render(header + body)
}

// TitledBox renders a box with the title set into its top border.
func TitledBox(title, content string, width int) string {
	return titledBox(title, content, width, boxBorder, borderColor)
}

// ActiveTitledBox is TitledBox with the highlighted border.
func ActiveTitledBox(title, content string, width int) string {
	return titledBox(title, content, width, boxBorderActive, activeBorderColor)
}

func titledBox(title, content string, width int, style lipgloss.Style, color lipgloss.Color) string {
	boxed := style.Width(safeBoxWidth(width)).Render(content)
	if title == "" {
		return boxed
	}
	lines := strings.Split(boxed, "\n")
	lineWidth := lipgloss.Width(lines[0])
	if lineWidth < 4 {
		return boxed
	}

	border := lipgloss.RoundedBorder()
	middle := lineWidth - 2
	label := fmt.Sprintf(" [ %s ] ", SanitizeOneLine(title))
	if lipgloss.Width(label) > middle {
		label = truncateRunes(label, middle)
	}
	left := max((middle-lipgloss.Width(label))/2, 0)
	right := max(middle-lipgloss.Width(label)-left, 0)

	edge := lipgloss.NewStyle().Foreground(color)
	lines[0] = edge.Render(border.TopLeft+strings.Repeat(border.Top, left)) +
		boxHeaderStyle.Render(label) +
		edge.Render(strings.Repeat(border.Top, right)+border.TopRight)
	return strings.Join(lines, "\n")
}

// TableRow is a single row in a key-value table.
type TableRow struct {
	Label string
	Value string
}

// Table renders aligned label/value rows inside a titled box.
func Table(title string, rows []TableRow, width int) string {
	if len(rows) == 0 {
		return ""
	}

	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(SanitizeOneLine(r.Label)))
	}
	labelWidth = min(labelWidth, 24)

	contentWidth := BoxContentWidth(width)
	if contentWidth <= 0 {
		contentWidth = labelWidth + 40
	}
	if labelWidth > contentWidth/2 {
		labelWidth = max(contentWidth/2, 4)
	}
	valueWidth := max(contentWidth-labelWidth-2, 4)

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		label := boxLabelStyle.Render(padRight(ClampTextWidth(r.Label, labelWidth), labelWidth))
		lines = append(lines, label+"  "+boxValueStyle.Render(ClampTextWidth(r.Value, valueWidth)))
	}
	return TitledBox(title, strings.Join(lines, "\n"), width)
}

// Indent adds left padding to every line of a multi-line string.
func Indent(s string, spaces int) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}

// CenterBlock shifts every non-empty line right by the same amount so the
// widest line sits in the middle of width.
func CenterBlock(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	widest := 0
	for _, line := range lines {
		widest = max(widest, lipgloss.Width(line))
	}
	pad := (width - widest) / 2
	if widest == 0 || pad <= 0 {
		return s
	}
	prefix := strings.Repeat(" ", pad)
	for i := range lines {
		if lines[i] != "" {
			lines[i] = prefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
