package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/wireui/internal/config"
	"github.com/Rorical/wireui/internal/core"
	"github.com/Rorical/wireui/internal/dom"
	"github.com/Rorical/wireui/internal/models"
	"github.com/Rorical/wireui/internal/presenter"
	"github.com/Rorical/wireui/internal/update"
	"github.com/Rorical/wireui/internal/utils"
	"github.com/Rorical/wireui/ui/components"
	"github.com/Rorical/wireui/ui/styles"
)

const quitPrompt = "Disconnect and quit?"

type AppModel struct {
	appModel models.AppModel
	keys     update.KeyMap
	help     help.Model
	panel    viewport.Model
	info     viewport.Model

	doc       *dom.Document
	presenter *presenter.Presenter
	stats     update.Stats
	notifier  *update.ChangeNotifier
	runDone   <-chan error
	panelKey  string

	quit *core.Pending[bool]
}

func newAppModel(doc *dom.Document, pres *presenter.Presenter, stats update.Stats,
	notifier *update.ChangeNotifier, runDone <-chan error, cfg *config.Config) *AppModel {
	m := &AppModel{
		appModel: models.AppModel{
			Status:    "Connected to " + cfg.GetURL(),
			Connected: true,
		},
		keys:      update.DefaultKeyMap(),
		help:      help.New(),
		panel:     viewport.New(0, 0),
		info:      viewport.New(0, 0),
		doc:       doc,
		presenter: pres,
		stats:     stats,
		notifier:  notifier,
		runDone:   runDone,
		panelKey:  cfg.GetPanelKey(),
	}
	update.SyncDocument(&m.appModel, doc)
	return m
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		update.TickCmd(),
		m.notifier.Listen(),
		update.ListenForDisconnect(m.runDone),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case update.DocumentChangedMsg:
		update.HandleUpdate(&m.appModel, msg, m.doc, m.stats)
		m.refresh()
		return m, tea.Batch(m.notifier.Listen(), m.checkQuit())
	case tea.WindowSizeMsg:
		update.HandleUpdate(&m.appModel, msg, m.doc, m.stats)
		m.resize()
		m.refresh()
		return m, nil
	}

	cmd := update.HandleUpdate(&m.appModel, msg, m.doc, m.stats)
	return m, cmd
}

func (m *AppModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd

	switch update.ResolveKey(&m.appModel, m.keys, msg) {
	case update.ActionQuit:
		return tea.Quit
	case update.ActionConfirm:
		m.doc.MustElement(dom.ConfirmButtonID).Click()
	case update.ActionDismiss:
		m.doc.MustElement(dom.DismissButtonID).Click()
	case update.ActionCloseInfo:
		m.presenter.CloseInfo()
	case update.ActionClearFlash:
		m.presenter.DismissFlash()
	case update.ActionReload:
		m.presenter.HTMLInject(m.panelKey, m.doc.MustElement(dom.PanelID))
	case update.ActionAskQuit:
		outcome, err := m.presenter.ConfirmDialog(quitPrompt, "danger")
		if err != nil {
			m.appModel.Status = "Error: " + err.Error()
			break
		}
		m.quit = outcome
	case update.ActionScroll:
		if m.appModel.Info.Visible {
			m.info, cmd = m.info.Update(msg)
		} else {
			m.panel, cmd = m.panel.Update(msg)
		}
		return cmd
	case update.ActionNone:
		return nil
	}

	update.SyncDocument(&m.appModel, m.doc)
	m.refresh()
	return m.checkQuit()
}

// checkQuit quits once the quit confirmation resolved true.
func (m *AppModel) checkQuit() tea.Cmd {
	if m.quit == nil || !m.quit.Settled() {
		return nil
	}
	confirmed, _ := m.quit.Await(context.Background())
	m.quit = nil
	if confirmed {
		return tea.Quit
	}
	return nil
}

func (m *AppModel) resize() {
	w, h := m.appModel.Width, m.appModel.Height
	m.panel.Width = w
	m.panel.Height = max(h-4, 3)
	m.info.Width = max(w-14, 10)
	m.info.Height = max(h-14, 3)
	m.help.Width = w
}

func (m *AppModel) refresh() {
	m.panel.SetContent(components.RenderPanel(m.appModel.Panel, m.appModel.Width))

	info := m.appModel.Info
	if info.ShowMarkup {
		m.info.SetContent(utils.RenderMarkup(info.Markup))
	} else {
		m.info.SetContent(info.Text)
	}
}

func (m *AppModel) View() string {
	var b strings.Builder
	width := m.appModel.Width

	b.WriteString(components.RenderFlash(m.appModel.Flash, width))

	switch {
	case m.appModel.Confirm.Visible:
		b.WriteString(components.RenderConfirm(m.appModel.Confirm, width))
	case m.appModel.Info.Visible:
		b.WriteString(components.RenderInfo(m.appModel.Info.Title, m.info.View(), width))
	default:
		b.WriteString(m.panel.View())
	}
	b.WriteString("\n")

	bindings := m.keys.ShortHelp()
	if m.appModel.ModalOpen() {
		bindings = m.keys.DialogHelp(m.appModel.Confirm.Visible)
	}
	b.WriteString(styles.HelpStyle().Render(m.help.ShortHelpView(bindings)))
	b.WriteString("\n")
	b.WriteString(components.RenderStatus(m.statusLine(), m.appModel.Connected,
		m.appModel.InFlight, m.appModel.LoadingDots, width))

	return b.String()
}

func (m *AppModel) statusLine() string {
	if m.appModel.Connected {
		return fmt.Sprintf("%s · panel %q", m.appModel.Status, m.panelKey)
	}
	return m.appModel.Status
}
