package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha, the subset the shell uses.
const (
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorLavender lipgloss.Color = "#b4befe"

	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay0 lipgloss.Color = "#6c7086"
	colorSurface1 lipgloss.Color = "#45475a"
	colorSurface0 lipgloss.Color = "#313244"
)

const (
	colorAccent  = colorMauve
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	brandStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(colorSubtext0)
	activeTabStyle = tabStyle.
			Foreground(colorText).
			Background(colorSurface0).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Padding(0, 1)

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	subtleStyle   = lipgloss.NewStyle().Foreground(colorOverlay0)
	labelStyle    = lipgloss.NewStyle().Foreground(colorSubtext0)
	selectedStyle = lipgloss.NewStyle().Foreground(colorFocus).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle     = lipgloss.NewStyle().Foreground(colorWarning)
	errStyle      = lipgloss.NewStyle().Foreground(colorError)
	infoStyle     = lipgloss.NewStyle().Foreground(colorInfo)
	badgeStyle    = lipgloss.NewStyle().Foreground(colorPeach).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(colorOverlay0)
)

// statusStyle colors a connector or run status.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "connected", "passed", "low":
		return okStyle
	case "syncing", "running", "retrying", "queued", "medium":
		return warnStyle
	case "expired", "failed", "high":
		return errStyle
	}
	return subtleStyle
}
