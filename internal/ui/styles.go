package ui

import "github.com/charmbracelet/lipgloss"

// --- Theme Colors ---

var (
	ColorPrimary   = lipgloss.Color("#ec4899") // pink
	ColorSecondary = lipgloss.Color("#436b77") // teal
	ColorText      = lipgloss.Color("#d7d9da") // main text
	ColorMuted     = lipgloss.Color("#9ba0bf") // muted text
	ColorSuccess   = lipgloss.Color("#3f866b") // green
	ColorError     = lipgloss.Color("#e06c75") // red
	ColorWarning   = lipgloss.Color("#c78854") // warning
	ColorBorder    = lipgloss.Color("#273540") // border
)

// --- Reusable Styles ---

var (
	BannerStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	TabActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(ColorPrimary).
			Bold(true).
			Padding(0, 2)

	TabInactiveStyle = lipgloss.NewStyle().
				Foreground(ColorMuted).
				Padding(0, 2)

	TabBarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5a2b45")).
			Padding(0, 1)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	NormalStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true).
			PaddingBottom(1)
)
