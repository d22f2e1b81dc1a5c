// Package style provides the shared colors, icons and lipgloss styles of the tend CLI.
package style

import "github.com/charmbracelet/lipgloss"

// Brand colors.
var (
	Moss   = lipgloss.Color("#4D7C0F")
	Slate  = lipgloss.Color("#667085")
	Ink    = lipgloss.Color("#0B0F19")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Dot     = "●"
	Circle  = "○"
)

// Text styles used by CLI renderers.
var (
	Title   = lipgloss.NewStyle().Bold(true).Foreground(Moss)
	Label   = lipgloss.NewStyle().Foreground(Slate)
	Healthy = lipgloss.NewStyle().Foreground(Green)
	Failing = lipgloss.NewStyle().Foreground(Red)
	Notice  = lipgloss.NewStyle().Foreground(Yellow)
)
