package update

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/wireui/internal/dom"
	"github.com/Rorical/wireui/internal/models"
)

// Stats reports how many requests are waiting for a reply.
type Stats interface {
	Len() int
}

// HandleUpdate applies every message that is not a key press.
func HandleUpdate(appModel *models.AppModel, msg tea.Msg, doc *dom.Document, stats Stats) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		HandleWindowSizeMsg(appModel, msg)
		return nil
	case TickMsg:
		return HandleTickMsg(appModel, stats)
	case DocumentChangedMsg:
		SyncDocument(appModel, doc)
		return nil
	case DisconnectedMsg:
		HandleDisconnect(appModel, msg)
		return nil
	}
	return nil
}
