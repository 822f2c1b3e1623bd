package models

// FlashView is the banner currently in the flash container
type FlashView struct {
	Category string
	Text     string
}

// ConfirmView mirrors the confirmation modal
type ConfirmView struct {
	Visible  bool
	Message  string // text with <br> turned back into newlines
	Category string // confirm button style
}

// InfoView mirrors the info modal; exactly one of Text or Markup is shown
type InfoView struct {
	Visible    bool
	Title      string
	Text       string
	Markup     string
	ShowMarkup bool
}

// AppModel represents the UI state read back from the document
type AppModel struct {
	Flash       *FlashView
	Confirm     ConfirmView
	Info        InfoView
	Panel       string // main panel markup
	Status      string // Status bar text
	Connected   bool
	InFlight    int // requests waiting for a reply
	Loading     bool
	LoadingDots int // Animation counter for loading dots
	Width       int // Terminal width
	Height      int // Terminal height
}

// ModalOpen reports whether a dialog currently owns the keyboard.
func (m *AppModel) ModalOpen() bool {
	return m.Confirm.Visible || m.Info.Visible
}
