package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Rorical/wireui/internal/models"
	"github.com/Rorical/wireui/ui/styles"
)

func RenderConfirm(confirm models.ConfirmView, width int) string {
	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.ButtonStyle(confirm.Category).Render("y Confirm"),
		styles.ButtonStyle("secondary").Render("n Dismiss"),
	)
	body := lipgloss.JoinVertical(lipgloss.Left, confirm.Message, "", buttons)
	return styles.ModalStyle(width).Render(body)
}

// RenderInfo draws the info dialog around an already rendered body.
func RenderInfo(title, body string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle().Render(title),
		body,
	)
	return styles.ModalStyle(width).Render(content)
}
