package tui

import "github.com/charmbracelet/lipgloss"

const (
	IconCheck = "✔"
	IconCross = "✘"
	IconDot   = "•"
)

// maxLogLines bounds the activity log kept in memory.
const maxLogLines = 200

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sideStyle     = lipgloss.NewStyle().Bold(true).MarginTop(1)
	moduleStyle   = lipgloss.NewStyle().PaddingLeft(2)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	logPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			MarginTop(1)
)
