package cli

import "github.com/charmbracelet/lipgloss"

var (
	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	routeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)
