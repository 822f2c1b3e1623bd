package update

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/wireui/internal/dom"
	"github.com/Rorical/wireui/internal/models"
)

// Action is what a key press asks the application to do.
type Action int

const (
	ActionNone Action = iota
	ActionConfirm
	ActionDismiss
	ActionCloseInfo
	ActionClearFlash
	ActionReload
	ActionAskQuit
	ActionQuit
	ActionScroll
)

// ResolveKey maps a key press to an action. An open confirmation takes
// every key except ctrl+c; an open info dialog takes close and scrolling.
func ResolveKey(appModel *models.AppModel, keys KeyMap, keyMsg tea.KeyMsg) Action {
	if key.Matches(keyMsg, keys.ForceQuit) {
		return ActionQuit
	}

	switch {
	case appModel.Confirm.Visible:
		switch {
		case key.Matches(keyMsg, keys.Confirm):
			return ActionConfirm
		case key.Matches(keyMsg, keys.Dismiss):
			return ActionDismiss
		}
		return ActionNone
	case appModel.Info.Visible:
		switch {
		case key.Matches(keyMsg, keys.Close):
			return ActionCloseInfo
		case key.Matches(keyMsg, keys.ScrollUp, keys.ScrollDown):
			return ActionScroll
		}
		return ActionNone
	}

	switch {
	case key.Matches(keyMsg, keys.ClearFlash):
		return ActionClearFlash
	case key.Matches(keyMsg, keys.Reload):
		return ActionReload
	case key.Matches(keyMsg, keys.Quit):
		return ActionAskQuit
	case key.Matches(keyMsg, keys.ScrollUp, keys.ScrollDown):
		return ActionScroll
	}
	return ActionNone
}

// DocumentChangedMsg tells the UI to read the document again
type DocumentChangedMsg struct{}

// ChangeNotifier coalesces document mutations into DocumentChangedMsg.
// Notify never blocks, so it is safe to call from the UI goroutine.
type ChangeNotifier struct {
	ch chan struct{}
}

func NewChangeNotifier() *ChangeNotifier {
	return &ChangeNotifier{ch: make(chan struct{}, 1)}
}

func (n *ChangeNotifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Listen waits for the next change; re-issue it after every message.
func (n *ChangeNotifier) Listen() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return DocumentChangedMsg{}
	}
}

// DisconnectedMsg reports the end of the socket read loop
type DisconnectedMsg struct {
	Err error
}

func ListenForDisconnect(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return DisconnectedMsg{Err: <-done}
	}
}

// SyncDocument copies what the terminal shows out of the document.
func SyncDocument(appModel *models.AppModel, doc *dom.Document) {
	if alert, ok := dom.FindAlert(doc.MustElement(dom.FlashContainerID).InnerHTML()); ok {
		appModel.Flash = &models.FlashView{Category: alert.Category, Text: alert.Text}
	} else {
		appModel.Flash = nil
	}

	category, _ := doc.MustElement(dom.ConfirmButtonID).ClassWithPrefix("btn-")
	appModel.Confirm = models.ConfirmView{
		Visible:  doc.MustElement(dom.ConfirmModalID).Visible(),
		Message:  doc.MustElement(dom.ConfirmTextID).Text(),
		Category: category,
	}

	body := doc.MustElement(dom.InfoBodyID)
	appModel.Info = models.InfoView{
		Visible:    doc.MustElement(dom.InfoModalID).Visible(),
		Title:      doc.MustElement(dom.InfoTitleID).Text(),
		Text:       doc.MustElement(dom.InfoTextID).Text(),
		Markup:     body.InnerHTML(),
		ShowMarkup: !body.Hidden(),
	}

	appModel.Panel = doc.MustElement(dom.PanelID).InnerHTML()
}

func HandleDisconnect(appModel *models.AppModel, msg DisconnectedMsg) {
	appModel.Connected = false
	if msg.Err != nil {
		appModel.Status = fmt.Sprintf("Disconnected: %v", msg.Err)
		return
	}
	appModel.Status = "Disconnected"
}

type TickMsg time.Time

func TickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func HandleWindowSizeMsg(appModel *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
}

func HandleTickMsg(appModel *models.AppModel, stats Stats) tea.Cmd {
	if stats != nil {
		appModel.InFlight = stats.Len()
	}
	// no replies arrive after a disconnect
	appModel.Loading = appModel.Connected && appModel.InFlight > 0
	if appModel.Loading {
		appModel.LoadingDots = (appModel.LoadingDots + 1) % 4
	} else {
		appModel.LoadingDots = 0
	}
	return TickCmd()
}
