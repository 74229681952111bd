package components

import "github.com/charmbracelet/lipgloss"

var (
	hintDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ba0bf"))
	keyCapStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#16161d")).
			Background(lipgloss.Color("#888ba4")).
			Bold(true).
			Padding(0, 1)
	segmentStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(borderColor).
			Padding(0, 1).
			MarginRight(1)
)

// KeyHint is one entry of the status bar, like {"←/→", "Switch page"}.
type KeyHint struct {
	Key  string
	Desc string
}

func (h KeyHint) String() string {
	return hintDescStyle.Render(h.Desc+" ") + keyCapStyle.Render(h.Key)
}

// StatusBar renders hints as boxed segments, wrapped to width and centered.
func StatusBar(hints []KeyHint, width int) string {
	segments := make([]string, 0, len(hints))
	for _, h := range hints {
		segments = append(segments, segmentStyle.Render(h.String()))
	}
	if len(segments) == 0 {
		return ""
	}
	if width <= 0 {
		return lipgloss.JoinHorizontal(lipgloss.Top, segments...)
	}

	rows := wrapSegments(segments, width)
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, rows...))
}

func wrapSegments(segments []string, width int) []string {
	var rows []string
	var current []string
	used := 0
	for _, seg := range segments {
		w := lipgloss.Width(seg)
		if used > 0 && used+w > width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
			current, used = nil, 0
		}
		current = append(current, seg)
		used += w
	}
	if len(current) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
	}
	return rows
}
