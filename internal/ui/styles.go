package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// Palette used by the CLI output.
var (
	colorAccent  = lipgloss.Color("#06B6D4")
	colorMuted   = lipgloss.Color("#6C7086")
	colorSuccess = lipgloss.Color("#A6E3A1")
	colorWarning = lipgloss.Color("#F9E2AF")
	colorError   = lipgloss.Color("#F38BA8")
)

// Styles for CLI output. lipgloss drops colors when stdout is not a terminal.
var (
	Title   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	Muted   = lipgloss.NewStyle().Foreground(colorMuted)
	Success = lipgloss.NewStyle().Foreground(colorSuccess)
	Warning = lipgloss.NewStyle().Foreground(colorWarning)
	Error   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
)

// SiteCount renders "site: N" with a color for zero and non-zero counts.
func SiteCount(site string, n int) string {
	style := Success
	if n == 0 {
		style = Muted
	}
	return style.Render(site) + ": " + style.Render(strconv.Itoa(n))
}
