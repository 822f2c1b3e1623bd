package components

import (
	"fmt"
	"strings"

	"github.com/Rorical/wireui/ui/styles"
)

func RenderStatus(status string, connected bool, inFlight int, loadingDots int, width int) string {
	statusStyle := styles.StatusStyle(width)

	indicator := styles.DisconnectedStyle().Render("●")
	if connected {
		indicator = styles.ConnectedStyle().Render("●")
	}

	statusContent := indicator + " " + status
	switch {
	case inFlight > 0 && connected:
		statusContent += fmt.Sprintf(" · %d pending", inFlight)
		statusContent += strings.Repeat(".", loadingDots)
	case inFlight > 0:
		statusContent += fmt.Sprintf(" · %d unanswered", inFlight)
	}

	return statusStyle.Render(statusContent)
}
