package components

import "github.com/charmbracelet/lipgloss"

var dialogStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(borderColor).
	Padding(1, 2).
	Width(44)

// ConfirmDialog renders a yes/no confirmation.
func ConfirmDialog(title, message string) string {
	header := boxHeaderStyle.Render(SanitizeOneLine(title))
	body := hintDescStyle.Render(SanitizeText(message))
	hint := hintDescStyle.Render("\ny: confirm | n: cancel")
	return dialogStyle.Render(header + "\n\n" + body + hint)
}
