package app

import (
	"io"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/wireui/internal/config"
	"github.com/Rorical/wireui/internal/core"
	"github.com/Rorical/wireui/internal/dom"
	"github.com/Rorical/wireui/internal/eventbus"
	"github.com/Rorical/wireui/internal/presenter"
	"github.com/Rorical/wireui/internal/update"
)

type harness struct {
	pipe  *eventbus.Pipe
	doc   *dom.Document
	pres  *presenter.Presenter
	model *AppModel
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipe := eventbus.NewPipe()
	c := core.NewCorrelator(pipe, quiet)
	doc := dom.New(disabledScripts{logger: quiet})
	notifier := update.NewChangeNotifier()
	doc.OnChange(notifier.Notify)
	pres := presenter.New(doc, c, quiet)

	m := newAppModel(doc, pres, c, notifier, make(chan error), &config.Config{})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return &harness{pipe: pipe, doc: doc, pres: pres, model: m}
}

func (h *harness) press(t *testing.T, msg tea.KeyMsg) tea.Cmd {
	t.Helper()
	_, cmd := h.model.Update(msg)
	return cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestQuitAsksForConfirmation(t *testing.T) {
	h := newHarness(t)

	assert.False(t, isQuit(h.press(t, key("q"))))
	assert.True(t, h.model.appModel.Confirm.Visible)
	assert.Equal(t, quitPrompt, h.model.appModel.Confirm.Message)
	assert.Contains(t, h.model.View(), quitPrompt)

	assert.True(t, isQuit(h.press(t, key("y"))))
	assert.False(t, h.model.appModel.Confirm.Visible)
}

func TestQuitDismissed(t *testing.T) {
	h := newHarness(t)

	h.press(t, key("q"))
	assert.False(t, isQuit(h.press(t, tea.KeyMsg{Type: tea.KeyEsc})))
	assert.False(t, h.model.appModel.Confirm.Visible)
	assert.Nil(t, h.model.quit)
	assert.Equal(t, presenter.ConfirmResolved, h.pres.ConfirmState())
}

func TestQuitWhileAnotherConfirmationIsPending(t *testing.T) {
	h := newHarness(t)
	outcome, err := h.pres.ConfirmDialog("Delete?", "danger")
	require.NoError(t, err)

	// the dialog owns the keyboard, so q is ignored rather than rejected
	h.model.Update(update.DocumentChangedMsg{})
	assert.Nil(t, h.press(t, key("q")))

	h.press(t, key("y"))
	assert.True(t, outcome.Settled())
	assert.Nil(t, h.model.quit)
}

func TestForceQuit(t *testing.T) {
	h := newHarness(t)
	assert.True(t, isQuit(h.press(t, tea.KeyMsg{Type: tea.KeyCtrlC})))
}

func TestReloadInjectsPanel(t *testing.T) {
	h := newHarness(t)

	h.press(t, key("r"))
	reqs := h.pipe.TakeRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "html", reqs[0].Event)
	var panelKey string
	require.NoError(t, reqs[0].Decode(&panelKey))
	assert.Equal(t, config.DefaultPanelKey, panelKey)

	require.NoError(t, reqs[0].Reply("<h2>Dashboard</h2><p>all good</p>"))
	h.model.Update(update.DocumentChangedMsg{})

	assert.Equal(t, "<h2>Dashboard</h2><p>all good</p>", h.model.appModel.Panel)
	view := h.model.View()
	assert.Contains(t, view, "Dashboard")
	assert.Contains(t, view, "all good")
}

func TestFlashAndInfo(t *testing.T) {
	h := newHarness(t)

	h.pres.Flash("Saved", "success")
	h.pres.ShowInfo("Socket Error", "db down", "")
	h.model.Update(update.DocumentChangedMsg{})

	view := h.model.View()
	assert.Contains(t, view, "Saved")
	assert.Contains(t, view, "Socket Error")
	assert.Contains(t, view, "db down")

	h.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, h.model.appModel.Info.Visible)

	h.press(t, key("x"))
	assert.Nil(t, h.model.appModel.Flash)
	assert.NotContains(t, h.model.View(), "Saved")
}
