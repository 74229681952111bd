package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const bannerArt = `
 ┏━╸┏━┓┏━┓┏━╸╻  ┏━┓╻ ╻┏━┓╻ ╻╺┳╸
 ┃  ┃ ┃┣┳┛┣╸ ┃  ┣━┫┗┳┛┃ ┃┃ ┃ ┃
 ┗━╸┗━┛╹┗╸┗━╸┗━╸╹ ╹ ╹ ┗━┛┗━┛ ╹ `

const bannerSubtitle = "Entry gate • Tabbed shell"

// RenderBanner returns the styled banner with its subtitle centered beneath.
func RenderBanner() string {
	lines := strings.Split(strings.TrimPrefix(bannerArt, "\n"), "\n")

	maxWidth := lipgloss.Width(bannerSubtitle)
	for _, line := range lines {
		if w := lipgloss.Width(line); w > maxWidth {
			maxWidth = w
		}
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(BannerStyle.Render(line))
		b.WriteString("\n")
	}

	subtitle := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Width(maxWidth).
		Align(lipgloss.Center).
		Render(bannerSubtitle)
	underline := lipgloss.NewStyle().
		Foreground(ColorBorder).
		Width(maxWidth).
		Align(lipgloss.Center).
		Render(strings.Repeat("─", lipgloss.Width(bannerSubtitle)))

	return "\n" + b.String() + "\n" + subtitle + "\n" + underline + "\n"
}
