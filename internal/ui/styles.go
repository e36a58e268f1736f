package ui

import "github.com/charmbracelet/lipgloss"

// Synthwave palette.
var (
	colorPink   = lipgloss.Color("#ff2e97")
	colorCyan   = lipgloss.Color("#00f0ff")
	colorGreen  = lipgloss.Color("#39ff14")
	colorBorder = lipgloss.Color("#3d1a78")
	colorMuted  = lipgloss.Color("#6b5b95")
	colorText   = lipgloss.Color("#f0f0f0")

	chartColors = []lipgloss.Color{
		"#ff2e97", // hot pink
		"#00f0ff", // cyan
		"#9d4edd", // purple
		"#f72585", // magenta
		"#4cc9f0", // light blue
		"#7209b7", // deep violet
	}
)

var (
	markerStyle      = lipgloss.NewStyle().Foreground(colorPink)
	dividerStyle     = lipgloss.NewStyle().Foreground(colorBorder)
	priceStyle       = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	mutedStyle       = lipgloss.NewStyle().Foreground(colorMuted)
	positiveStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	negativeStyle    = lipgloss.NewStyle().Foreground(colorPink)
	keyStyle         = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	pageStyle        = lipgloss.NewStyle().Foreground(colorPink)
	statusStyle      = lipgloss.NewStyle().Foreground(colorCyan)
	staleStyle       = lipgloss.NewStyle().Foreground(colorPink).Bold(true)
	placeholderStyle = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	statusBarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)
)
