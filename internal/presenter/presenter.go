// Package presenter renders flashes and dialogs into the document and
// injects server-provided markup.
package presenter

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Rorical/wireui/internal/core"
	"github.com/Rorical/wireui/internal/dom"
)

// ErrConfirmPending is returned when a confirmation is requested while
// another one is still waiting for the user.
var ErrConfirmPending = errors.New("a confirmation is already pending")

// Fetcher resolves markup fragments and translations through the server.
type Fetcher interface {
	core.Translator
	FetchHTML(key string) *core.Pending[string]
}

// ConfirmState is the lifecycle of the confirmation dialog.
type ConfirmState int

const (
	ConfirmIdle ConfirmState = iota
	ConfirmPending
	ConfirmResolved
)

func (s ConfirmState) String() string {
	switch s {
	case ConfirmIdle:
		return "idle"
	case ConfirmPending:
		return "pending"
	case ConfirmResolved:
		return "resolved"
	}
	return fmt.Sprintf("ConfirmState(%d)", int(s))
}

type Presenter struct {
	doc     *dom.Document
	fetcher Fetcher
	logger  *slog.Logger

	confirmMu sync.Mutex
	confirm   confirmation
}

// confirmation is the dialog's owned state; listeners are only attached
// while state is ConfirmPending.
type confirmation struct {
	state     ConfirmState
	outcome   *core.Pending[bool]
	onConfirm dom.ListenerID
	onDismiss dom.ListenerID
}

func New(doc *dom.Document, fetcher Fetcher, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{doc: doc, fetcher: fetcher, logger: logger}
}

// Flash replaces whatever banner is showing with one dismissible alert.
// message is inserted as markup; callers must sanitize untrusted text.
func (p *Presenter) Flash(message, category string) {
	p.doc.MustElement(dom.FlashContainerID).SetInnerHTML(fmt.Sprintf(`
    <div class="alert alert-%s alert-dismissible fade show" role="alert">
      %s
      <button type="button" class="btn-close" data-bs-dismiss="alert" aria-label="Close"></button>
    </div>
    `, category, message))
}

// DismissFlash clears the flash container.
func (p *Presenter) DismissFlash() {
	p.doc.MustElement(dom.FlashContainerID).SetInnerHTML("")
}

// ConfirmDialog shows message and settles true on the confirm action or
// false on the dismiss action. While one confirmation is pending further
// requests fail with ErrConfirmPending and leave the dialog untouched.
func (p *Presenter) ConfirmDialog(message, category string) (*core.Pending[bool], error) {
	p.confirmMu.Lock()
	defer p.confirmMu.Unlock()

	if p.confirm.state == ConfirmPending {
		return nil, ErrConfirmPending
	}

	confirmBtn := p.doc.MustElement(dom.ConfirmButtonID)
	dismissBtn := p.doc.MustElement(dom.DismissButtonID)

	p.doc.MustElement(dom.ConfirmTextID).SetInnerHTML(strings.ReplaceAll(message, "\n", "<br>"))
	confirmBtn.SetClassName("btn btn-" + category)

	outcome := core.NewPending[bool]()
	p.confirm = confirmation{
		state:     ConfirmPending,
		outcome:   outcome,
		onConfirm: confirmBtn.AddListener("click", func() { p.resolveConfirm(outcome, true) }),
		onDismiss: dismissBtn.AddListener("click", func() { p.resolveConfirm(outcome, false) }),
	}

	p.doc.MustElement(dom.ConfirmModalID).Show()
	return outcome, nil
}

func (p *Presenter) resolveConfirm(outcome *core.Pending[bool], confirmed bool) {
	p.confirmMu.Lock()
	if p.confirm.state != ConfirmPending || p.confirm.outcome != outcome {
		p.confirmMu.Unlock()
		return
	}
	p.doc.MustElement(dom.ConfirmButtonID).RemoveListener("click", p.confirm.onConfirm)
	p.doc.MustElement(dom.DismissButtonID).RemoveListener("click", p.confirm.onDismiss)
	p.confirm = confirmation{state: ConfirmResolved}
	p.confirmMu.Unlock()

	p.doc.MustElement(dom.ConfirmModalID).Hide()
	outcome.Resolve(confirmed)
}

// ConfirmState reports where the confirmation dialog is in its lifecycle.
func (p *Presenter) ConfirmState() ConfirmState {
	p.confirmMu.Lock()
	defer p.confirmMu.Unlock()
	return p.confirm.state
}

// ShowInfo opens the info dialog with either plain text or markup. A
// non-empty message wins; otherwise markup is injected, even when empty.
func (p *Presenter) ShowInfo(title, message, markup string) {
	p.doc.MustElement(dom.InfoTitleID).SetText(title)

	text := p.doc.MustElement(dom.InfoTextID)
	body := p.doc.MustElement(dom.InfoBodyID)
	if message != "" {
		body.AddClass(dom.HiddenClass)
		text.RemoveClass(dom.HiddenClass)
		text.SetText(message)
	} else {
		text.AddClass(dom.HiddenClass)
		body.RemoveClass(dom.HiddenClass)
		body.SetInnerHTML(markup)
	}
	p.doc.MustElement(dom.InfoModalID).Show()
}

// CloseInfo hides the info dialog.
func (p *Presenter) CloseInfo() {
	p.doc.MustElement(dom.InfoModalID).Hide()
}

type fetched struct {
	markup string
	err    error
}

// HTMLInject fetches the fragment for key into target and executes its
// scripts. It returns immediately; fetch and render failures are logged
// under the same translated label and may leave target partially updated.
func (p *Presenter) HTMLInject(key string, target *dom.Element) {
	handle := core.Safe(p.fetcher, p.logger, false, func(res fetched) error {
		if res.err != nil {
			return fmt.Errorf("markup fetch failed for %q: %w", key, res.err)
		}
		return p.inject(res.markup, target)
	})
	p.fetcher.FetchHTML(key).Then(func(markup string, err error) {
		_ = handle(fetched{markup: markup, err: err})
	})
}

func (p *Presenter) inject(markup string, target *dom.Element) error {
	target.SetInnerHTML(markup)

	cleaned, scripts, err := dom.ExtractScripts(markup)
	if err != nil {
		return err
	}

	var errs []error
	for _, s := range scripts {
		if err := p.doc.AppendScript(s); err != nil {
			errs = append(errs, err)
		}
	}
	if len(scripts) > 0 {
		target.SetInnerHTML(cleaned)
	}
	return errors.Join(errs...)
}
