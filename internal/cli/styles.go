package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles for CLI output (matching TUI theme)
var (
	primary   = lipgloss.Color("#f7c0af") // orangish/peach
	secondary = lipgloss.Color("#3ccad7") // cyan
	success   = lipgloss.Color("#87bf47") // green
	errorCol  = lipgloss.Color("#bf5d47") // red
	muted     = lipgloss.Color("#7f7f7f") // gray

	labelStyle       = lipgloss.NewStyle().Foreground(primary).Bold(true)
	valueStyle       = lipgloss.NewStyle().Foreground(secondary)
	mutedStyle       = lipgloss.NewStyle().Foreground(muted)
	successStyle     = lipgloss.NewStyle().Foreground(success)
	errorStyle       = lipgloss.NewStyle().Foreground(errorCol)
	bracketStyle     = lipgloss.NewStyle().Foreground(muted)
	veryMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5f5f5f"))
	veryMutedBracket = lipgloss.NewStyle().Foreground(lipgloss.Color("#4f4f4f"))

	separatorLine = strings.Repeat("─", 48)

	// ANSI color codes for streaming (to avoid lipgloss breaking lines)
	responseColorStart = "\033[38;5;252m" // light gray
	colorReset         = "\033[0m"
)
