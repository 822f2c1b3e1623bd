// Package dom is the in-process page the presenter mutates and the terminal
// UI renders: elements with stable IDs, class lists, inner markup,
// visibility, click listeners and script execution.
package dom

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
)

// Stable element IDs of the page layout.
const (
	FlashContainerID = "flashContainer"

	ConfirmModalID  = "confirmModal"
	ConfirmTextID   = "dialogConfirmText"
	ConfirmButtonID = "dialogConfirmBtn"
	DismissButtonID = "dialogDismissBtn"

	InfoModalID = "infoModal"
	InfoTitleID = "infoModalTitle"
	InfoTextID  = "infoModalText"
	InfoBodyID  = "infoModalBody"

	PanelID = "mainPanel"
)

// HiddenClass hides a region, as in the bootstrap markup the pages use.
const HiddenClass = "d-none"

var ErrNoScriptRunner = errors.New("no script runner configured")

// Script is an executable script element: external when Src is set,
// inline otherwise.
type Script struct {
	Src  string
	Text string
}

func (s Script) String() string {
	if s.Src != "" {
		return "script[src=" + s.Src + "]"
	}
	return fmt.Sprintf("script[inline %d bytes]", len(s.Text))
}

// ScriptRunner executes scripts appended to the document.
type ScriptRunner interface {
	Run(s Script) error
}

// ListenerID identifies one attached listener.
type ListenerID uint64

// Document owns every element. Methods are safe for concurrent use;
// listeners and change hooks run without the document lock held.
type Document struct {
	mu           sync.RWMutex
	elements     map[string]*Element
	scripts      []Script
	runner       ScriptRunner
	nextListener ListenerID
	onChange     []func()
}

// New returns a document with the standard layout: a flash container, the
// confirm and info modals (hidden) and the main panel.
func New(runner ScriptRunner) *Document {
	d := &Document{
		elements: make(map[string]*Element),
		runner:   runner,
	}
	for _, id := range []string{
		FlashContainerID,
		ConfirmTextID, ConfirmButtonID, DismissButtonID,
		InfoTitleID, InfoTextID, InfoBodyID,
		PanelID,
	} {
		d.create(id, true)
	}
	d.create(ConfirmModalID, false)
	d.create(InfoModalID, false)
	d.elements[ConfirmButtonID].classes = []string{"btn", "btn-primary"}
	d.elements[DismissButtonID].classes = []string{"btn", "btn-secondary"}
	return d
}

func (d *Document) create(id string, visible bool) *Element {
	el := &Element{id: id, doc: d, visible: visible}
	d.elements[id] = el
	return el
}

// GetElementByID returns nil for unknown IDs.
func (d *Document) GetElementByID(id string) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.elements[id]
}

// MustElement panics for unknown IDs; the layout is fixed at construction.
func (d *Document) MustElement(id string) *Element {
	el := d.GetElementByID(id)
	if el == nil {
		panic("dom: no element " + id)
	}
	return el
}

// AppendScript adds a script to the document body and executes it.
func (d *Document) AppendScript(s Script) error {
	d.mu.Lock()
	d.scripts = append(d.scripts, s)
	runner := d.runner
	d.mu.Unlock()
	d.changed()

	if runner == nil {
		return ErrNoScriptRunner
	}
	if err := runner.Run(s); err != nil {
		return fmt.Errorf("run %s: %w", s, err)
	}
	return nil
}

// Scripts lists every script appended so far.
func (d *Document) Scripts() []Script {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Script, len(d.scripts))
	copy(out, d.scripts)
	return out
}

// OnChange registers fn to run after every mutation.
func (d *Document) OnChange(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = append(d.onChange, fn)
}

func (d *Document) changed() {
	d.mu.RLock()
	hooks := make([]func(), len(d.onChange))
	copy(hooks, d.onChange)
	d.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

// Element is one addressable node of the page.
type Element struct {
	id  string
	doc *Document

	// guarded by doc.mu
	classes   []string
	markup    string
	visible   bool
	listeners map[string]map[ListenerID]func()
}

func (e *Element) ID() string { return e.id }

// SetText replaces the contents with escaped text.
func (e *Element) SetText(text string) {
	e.SetInnerHTML(html.EscapeString(text))
}

// SetInnerHTML replaces the contents with raw markup. Nothing is sanitized
// and embedded scripts do not run.
func (e *Element) SetInnerHTML(markup string) {
	e.doc.mu.Lock()
	e.markup = markup
	e.doc.mu.Unlock()
	e.doc.changed()
}

func (e *Element) InnerHTML() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.markup
}

// Text is the text content of the inner markup.
func (e *Element) Text() string {
	return TextContent(e.InnerHTML())
}

// SetClassName replaces the class list with the space separated names.
func (e *Element) SetClassName(name string) {
	e.doc.mu.Lock()
	e.classes = strings.Fields(name)
	e.doc.mu.Unlock()
	e.doc.changed()
}

func (e *Element) ClassName() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return strings.Join(e.classes, " ")
}

func (e *Element) AddClass(name string) {
	e.doc.mu.Lock()
	if !e.hasClassLocked(name) {
		e.classes = append(e.classes, name)
	}
	e.doc.mu.Unlock()
	e.doc.changed()
}

func (e *Element) RemoveClass(name string) {
	e.doc.mu.Lock()
	kept := e.classes[:0]
	for _, c := range e.classes {
		if c != name {
			kept = append(kept, c)
		}
	}
	e.classes = kept
	e.doc.mu.Unlock()
	e.doc.changed()
}

func (e *Element) HasClass(name string) bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.hasClassLocked(name)
}

func (e *Element) hasClassLocked(name string) bool {
	for _, c := range e.classes {
		if c == name {
			return true
		}
	}
	return false
}

// ClassWithPrefix returns the suffix of the first class starting with
// prefix, e.g. "danger" for prefix "btn-" on "btn btn-danger".
func (e *Element) ClassWithPrefix(prefix string) (string, bool) {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	for _, c := range e.classes {
		if strings.HasPrefix(c, prefix) && len(c) > len(prefix) {
			return c[len(prefix):], true
		}
	}
	return "", false
}

// Hidden reports whether the region carries the hidden class.
func (e *Element) Hidden() bool {
	return e.HasClass(HiddenClass)
}

// Show makes a modal visible.
func (e *Element) Show() {
	e.setVisible(true)
}

// Hide closes a modal.
func (e *Element) Hide() {
	e.setVisible(false)
}

func (e *Element) setVisible(v bool) {
	e.doc.mu.Lock()
	e.visible = v
	e.doc.mu.Unlock()
	e.doc.changed()
}

func (e *Element) Visible() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.visible
}

// AddListener attaches fn to event and returns the handle to remove it.
func (e *Element) AddListener(event string, fn func()) ListenerID {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[string]map[ListenerID]func())
	}
	if e.listeners[event] == nil {
		e.listeners[event] = make(map[ListenerID]func())
	}
	e.doc.nextListener++
	id := e.doc.nextListener
	e.listeners[event][id] = fn
	return id
}

func (e *Element) RemoveListener(event string, id ListenerID) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	delete(e.listeners[event], id)
}

// Listeners counts the listeners attached for event.
func (e *Element) Listeners(event string) int {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return len(e.listeners[event])
}

// Dispatch runs the listeners attached for event in attach order.
func (e *Element) Dispatch(event string) {
	e.doc.mu.RLock()
	ids := make([]ListenerID, 0, len(e.listeners[event]))
	for id := range e.listeners[event] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(), len(ids))
	for i, id := range ids {
		fns[i] = e.listeners[event][id]
	}
	e.doc.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func (e *Element) Click() {
	e.Dispatch("click")
}
