// Package dispatcher routes unsolicited server pushes to the presenter.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Rorical/wireui/internal/core"
	"github.com/Rorical/wireui/internal/eventbus"
)

const (
	EventFlash = "flash"
	EventError = "error"
)

// Message keys of the error report dialog.
const (
	ErrorTitleKey   = "Socket Error"
	ErrorMessageKey = "There was an error while executing this event.\n"
	ErrorLabelKey   = "Error Message:"
)

// Notifier is the part of the presenter the reactor drives.
type Notifier interface {
	Flash(message, category string)
	ShowInfo(title, message, markup string)
}

// FlashPayload is the body of a flash push.
type FlashPayload struct {
	Message  string `json:"msg"`
	Category string `json:"cat"`
}

// Reactor subscribes to flash and error pushes and turns them into UI.
type Reactor struct {
	channel    eventbus.Subscriber
	notifier   Notifier
	translator core.Translator
	logger     *slog.Logger
}

func NewReactor(channel eventbus.Subscriber, notifier Notifier, translator core.Translator, logger *slog.Logger) *Reactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reactor{
		channel:    channel,
		notifier:   notifier,
		translator: translator,
		logger:     logger,
	}
}

// Subscription is the reactor's pair of live handlers.
type Subscription struct {
	subs   []eventbus.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

// Close removes both handlers, abandons error reports still waiting for
// translations and waits for them to return.
func (s *Subscription) Close() {
	s.once.Do(func() {
		for _, sub := range s.subs {
			sub.Unsubscribe()
		}
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
		s.wg.Wait()
	})
}

// Start installs the flash and error handlers.
func (r *Reactor) Start() *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{ctx: ctx, cancel: cancel}

	onFlash := core.Safe(r.translator, r.logger, false, r.handleFlash)
	onError := core.Safe(r.translator, r.logger, false, func(data json.RawMessage) error {
		return r.handleError(s, data)
	})
	s.subs = append(s.subs,
		r.channel.On(EventFlash, onFlash),
		r.channel.On(EventError, onError),
	)
	return s
}

func (r *Reactor) handleFlash(data json.RawMessage) error {
	var p FlashPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode flash payload: %w", err)
	}
	r.notifier.Flash(p.Message, p.Category)
	return nil
}

func (r *Reactor) handleError(s *Subscription, data json.RawMessage) error {
	message := errorText(data)
	r.logger.Error("server reported error", "message", message)

	report := core.Safe(r.translator, r.logger, false, func(message string) error {
		return r.report(s.ctx, message)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = report(message)
	}()
	return nil
}

// report runs off the dispatch goroutine: the translations it awaits are
// delivered by that goroutine.
func (r *Reactor) report(ctx context.Context, message string) error {
	keys := []string{ErrorTitleKey, ErrorMessageKey, ErrorLabelKey}
	texts := make([]string, len(keys))
	for i, key := range keys {
		text, err := r.translator.Translate(key).Await(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			r.logger.Warn("translation failed, using key", "key", key, "error", err)
			text = key
		}
		texts[i] = text
	}
	if ctx.Err() != nil {
		return nil
	}

	title, errMsg, label := texts[0], texts[1], texts[2]
	r.notifier.ShowInfo(title, fmt.Sprintf("%s%s \"%s\".", errMsg, label, message), "")
	return nil
}

// errorText accepts a JSON string or, failing that, the raw payload.
func errorText(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}
