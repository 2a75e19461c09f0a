package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors - TXray terminal aesthetic. Brand colors from the web client:
// #00FFCC (signal teal), #7000FF (deep purple).
var (
	colorBrand    = lipgloss.Color("#00FFCC") // Signal teal
	colorAccent   = lipgloss.Color("#7000FF") // Deep purple
	colorAccentHi = lipgloss.Color("#9D4DFF") // Lighter purple for text on dark

	// Role colors
	colorUser      = lipgloss.Color("#9D4DFF") // Operator commands
	colorAssistant = lipgloss.Color("#00FFCC") // Agent responses

	// Semantic colors
	colorError   = lipgloss.Color("#FF3366")
	colorWarning = lipgloss.Color("#FFCC00")
	colorSuccess = lipgloss.Color("#00FF66")
	colorMuted   = lipgloss.Color("#555577")

	colorBorder   = lipgloss.Color("#2A2A55")
	colorBorderHi = lipgloss.Color("#00AA99")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand).
			MarginBottom(1)

	// Sidebar - conversation list
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(colorBorder).
			PaddingRight(1)

	convItemStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	convItemSelectedStyle = lipgloss.NewStyle().
				Foreground(colorBrand).
				Bold(true).
				Padding(0, 1)

	convMetaStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 2)

	// Message pane
	userHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorUser)

	assistantHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorAssistant)

	messageBodyStyle = lipgloss.NewStyle().
				PaddingLeft(2)

	errorTextStyle = lipgloss.NewStyle().
			Foreground(colorError)

	// Pipeline steps
	stepDoneStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	stepActiveStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	stepPendingStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	stepDetailStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	reportStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorderHi).
			Padding(0, 1)

	reportLabelStyle = lipgloss.NewStyle().
				Foreground(colorBrand).
				Bold(true)

	// Input line
	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(colorBorder)

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(colorBrand).
				Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	statusErrStyle = lipgloss.NewStyle().
			Foreground(colorError)

	// Payment overlay
	paymentBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorAccentHi).
			Padding(1, 2)

	paymentLabelStyle = lipgloss.NewStyle().
				Foreground(colorAccentHi).
				Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)
