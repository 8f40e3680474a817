package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	contextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")).Italic(true)
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	missingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	frameStyle    = lipgloss.NewStyle().Padding(1, 2)
)
