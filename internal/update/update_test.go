package update

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/wireui/internal/core"
	"github.com/Rorical/wireui/internal/dom"
	"github.com/Rorical/wireui/internal/eventbus"
	"github.com/Rorical/wireui/internal/models"
	"github.com/Rorical/wireui/internal/presenter"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestResolveKey(t *testing.T) {
	keys := DefaultKeyMap()
	idle := &models.AppModel{}
	confirming := &models.AppModel{Confirm: models.ConfirmView{Visible: true}}
	informing := &models.AppModel{Info: models.InfoView{Visible: true}}

	tests := []struct {
		name  string
		model *models.AppModel
		key   tea.KeyMsg
		want  Action
	}{
		{"reload", idle, runes("r"), ActionReload},
		{"clear flash", idle, runes("x"), ActionClearFlash},
		{"ask quit", idle, runes("q"), ActionAskQuit},
		{"ctrl+c", idle, tea.KeyMsg{Type: tea.KeyCtrlC}, ActionQuit},
		{"scroll", idle, tea.KeyMsg{Type: tea.KeyDown}, ActionScroll},
		{"y without dialog", idle, runes("y"), ActionNone},
		{"confirm y", confirming, runes("y"), ActionConfirm},
		{"confirm enter", confirming, tea.KeyMsg{Type: tea.KeyEnter}, ActionConfirm},
		{"dismiss n", confirming, runes("n"), ActionDismiss},
		{"dismiss esc", confirming, tea.KeyMsg{Type: tea.KeyEsc}, ActionDismiss},
		{"q while confirming", confirming, runes("q"), ActionNone},
		{"ctrl+c while confirming", confirming, tea.KeyMsg{Type: tea.KeyCtrlC}, ActionQuit},
		{"close info", informing, tea.KeyMsg{Type: tea.KeyEsc}, ActionCloseInfo},
		{"scroll info", informing, runes("j"), ActionScroll},
		{"reload blocked by info", informing, runes("r"), ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveKey(tt.model, keys, tt.key))
		})
	}
}

func TestSyncDocument(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	doc := dom.New(nil)
	p := presenter.New(doc, core.NewCorrelator(eventbus.NewPipe(), quiet), quiet)

	var m models.AppModel
	SyncDocument(&m, doc)
	assert.Nil(t, m.Flash)
	assert.False(t, m.ModalOpen())

	p.Flash("Saved", "success")
	_, err := p.ConfirmDialog("Delete?\nReally.", "danger")
	require.NoError(t, err)
	p.ShowInfo("About", "", "<b>x</b>")
	doc.MustElement(dom.PanelID).SetInnerHTML("<p>panel</p>")

	SyncDocument(&m, doc)
	require.NotNil(t, m.Flash)
	assert.Equal(t, models.FlashView{Category: "success", Text: "Saved"}, *m.Flash)
	assert.Equal(t, models.ConfirmView{Visible: true, Message: "Delete?\nReally.", Category: "danger"}, m.Confirm)
	assert.True(t, m.Info.Visible)
	assert.True(t, m.Info.ShowMarkup)
	assert.Equal(t, "About", m.Info.Title)
	assert.Equal(t, "<b>x</b>", m.Info.Markup)
	assert.Equal(t, "<p>panel</p>", m.Panel)
	assert.True(t, m.ModalOpen())
}

func TestChangeNotifierCoalesces(t *testing.T) {
	n := NewChangeNotifier()
	n.Notify()
	n.Notify()
	n.Notify()

	assert.Equal(t, DocumentChangedMsg{}, n.Listen()())

	got := make(chan tea.Msg, 1)
	go func() { got <- n.Listen()() }()
	select {
	case <-got:
		t.Fatal("notifications were not coalesced")
	case <-time.After(50 * time.Millisecond):
	}
	n.Notify()
	select {
	case msg := <-got:
		assert.Equal(t, DocumentChangedMsg{}, msg)
	case <-time.After(time.Second):
		t.Fatal("listener not woken")
	}
}

type fixedStats int

func (s fixedStats) Len() int { return int(s) }

func TestHandleUpdate(t *testing.T) {
	var m models.AppModel
	doc := dom.New(nil)

	HandleUpdate(&m, tea.WindowSizeMsg{Width: 80, Height: 24}, doc, nil)
	assert.Equal(t, 80, m.Width)
	assert.Equal(t, 24, m.Height)

	m.Connected = true
	assert.NotNil(t, HandleUpdate(&m, TickMsg(time.Now()), doc, fixedStats(2)))
	assert.Equal(t, 2, m.InFlight)
	assert.True(t, m.Loading)
	assert.Equal(t, 1, m.LoadingDots)

	HandleUpdate(&m, TickMsg(time.Now()), doc, fixedStats(0))
	assert.False(t, m.Loading)
	assert.Equal(t, 0, m.LoadingDots)

	HandleUpdate(&m, DisconnectedMsg{Err: errors.New("eof")}, doc, nil)
	assert.False(t, m.Connected)
	assert.Equal(t, "Disconnected: eof", m.Status)

	// requests left behind by the disconnect stay counted but stop animating
	HandleUpdate(&m, TickMsg(time.Now()), doc, fixedStats(3))
	assert.Equal(t, 3, m.InFlight)
	assert.False(t, m.Loading)
	assert.Equal(t, 0, m.LoadingDots)

	done := make(chan error, 1)
	done <- nil
	assert.Equal(t, DisconnectedMsg{}, ListenForDisconnect(done)())
}
