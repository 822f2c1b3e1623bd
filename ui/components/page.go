package components

import (
	"github.com/Rorical/wireui/internal/models"
	"github.com/Rorical/wireui/internal/utils"
	"github.com/Rorical/wireui/ui/styles"
)

// RenderFlash draws the banner, or nothing when there is none.
func RenderFlash(flash *models.FlashView, width int) string {
	if flash == nil {
		return ""
	}
	return styles.AlertStyle(flash.Category, width).Render(flash.Text+"  ✕") + "\n"
}

// RenderPanel draws the main panel markup inside a bordered box.
func RenderPanel(markup string, width int) string {
	content := utils.RenderMarkup(markup)
	if content == "" {
		content = "(empty, press r to load)"
	}
	return styles.PanelStyle(width).Render(content)
}
