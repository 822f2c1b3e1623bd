package styles

import "github.com/charmbracelet/lipgloss"

// categoryColors follows the bootstrap contextual classes used by the pages.
var categoryColors = map[string]lipgloss.Color{
	"primary":   lipgloss.Color("33"),
	"secondary": lipgloss.Color("245"),
	"success":   lipgloss.Color("35"),
	"danger":    lipgloss.Color("160"),
	"warning":   lipgloss.Color("214"),
	"info":      lipgloss.Color("39"),
	"light":     lipgloss.Color("252"),
	"dark":      lipgloss.Color("238"),
}

// CategoryColor falls back to the primary color for unknown categories.
func CategoryColor(category string) lipgloss.Color {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return categoryColors["primary"]
}

func AlertStyle(category string, width int) lipgloss.Style {
	color := CategoryColor(category)
	return lipgloss.NewStyle().
		Foreground(color).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(color).
		Padding(0, 1).
		Width(max(width-2, 10))
}

func ModalStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(max(width-8, 20))
}

func ModalTitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("141")).
		MarginBottom(1)
}

func ButtonStyle(category string) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("255")).
		Background(CategoryColor(category)).
		Padding(0, 2).
		MarginRight(2)
}

func PanelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(max(width-4, 10))
}

func StatusStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Background(lipgloss.Color("235")).
		Padding(0, 1).
		Width(width)
}

func ConnectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("35")).
		Bold(true)
}

func DisconnectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("160")).
		Bold(true)
}

func HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Padding(0, 1)
}
