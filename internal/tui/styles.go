package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#7aa2f7")
	colorMuted  = lipgloss.Color("#6c7086")
	colorGood   = lipgloss.Color("#a6e3a1")
	colorBad    = lipgloss.Color("#f38ba8")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	cursorStyle   = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(colorGood)
	errorStyle    = lipgloss.NewStyle().Foreground(colorBad)
	activeTab     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Underline(true)
	inactiveTab   = lipgloss.NewStyle().Foreground(colorMuted)
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
)

func checkbox(on bool) string {
	if on {
		return selectedStyle.Render("[x]")
	}
	return "[ ]"
}
