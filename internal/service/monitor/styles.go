package monitor

import (
	"github.com/charmbracelet/lipgloss"

	domain "github.com/oshokin/siren-guard/internal/domain/siren"
)

// Palette.
var (
	colorOK      = lipgloss.Color("#00CC33")
	colorDim     = lipgloss.Color("#5F5F5F")
	colorWarning = lipgloss.Color("#FFCC00")
	colorAlert   = lipgloss.Color("#FF8800")
	colorDanger  = lipgloss.Color("#FF3300")
	colorBorder  = lipgloss.Color("#00AA22")
)

// Pre-built styles.
var (
	styleTitle = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(colorOK).
			Bold(true).
			Padding(0, 1)

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorDim).
			Width(14)

	styleValue = lipgloss.NewStyle().
			Bold(true)

	styleOverride = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	styleError = lipgloss.NewStyle().
			Foreground(colorDanger)

	styleHelp = lipgloss.NewStyle().
			Foreground(colorDim)
)

// levelStyle colours a level name by severity. Unparsable names are dimmed.
func levelStyle(name string) lipgloss.Style {
	style := styleValue

	level, err := domain.ParseLevel(name)
	if err != nil {
		return style.Foreground(colorDim)
	}

	switch level {
	case domain.LevelDanger:
		return style.Foreground(colorDanger)
	case domain.LevelAlert:
		return style.Foreground(colorAlert)
	case domain.LevelWarning:
		return style.Foreground(colorWarning)
	default:
		return style.Foreground(colorOK)
	}
}
