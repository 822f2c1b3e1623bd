package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rorical/wireui/internal/eventbus"
)

var (
	ErrUnknownKind    = errors.New("unknown request kind")
	ErrInvalidPayload = errors.New("invalid request payload")
)

// Kind names a server-resolved lookup. The value is the event name on the wire.
type Kind string

const (
	KindTranslate       Kind = "_"
	KindTranslatePlural Kind = "_n"
	KindHTML            Kind = "html"
)

func (k Kind) Valid() bool {
	switch k {
	case KindTranslate, KindTranslatePlural, KindHTML:
		return true
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case KindTranslate:
		return "translate"
	case KindTranslatePlural:
		return "translate-plural"
	case KindHTML:
		return "html"
	}
	return "unknown(" + string(k) + ")"
}

// PluralPayload is the wire shape of a plural-form lookup.
type PluralPayload struct {
	Singular string `json:"s"`
	Plural   string `json:"p"`
	Count    int    `json:"n"`
}

// PendingRequest is one in-flight lookup. Key is the client-side
// correlation key; the transport pairs the reply with its own ack id.
type PendingRequest struct {
	Key     string
	Kind    Kind
	Payload any
	Issued  time.Time

	result *Pending[json.RawMessage]
}

// Result settles with the server's reply, verbatim.
func (r *PendingRequest) Result() *Pending[json.RawMessage] {
	return r.result
}

// Correlator turns emit-with-ack into one settle-once outcome per request.
// It never times out, retries or reorders.
type Correlator struct {
	channel eventbus.Emitter
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]*PendingRequest
}

func NewCorrelator(channel eventbus.Emitter, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		channel:  channel,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[string]*PendingRequest),
	}
}

// Request emits one lookup of the given kind. The returned request settles
// when its reply arrives, or immediately with an error if the emit fails.
func (c *Correlator) Request(kind Kind, payload any) (*PendingRequest, error) {
	if err := validatePayload(kind, payload); err != nil {
		return nil, err
	}

	req := &PendingRequest{
		Key:     uuid.NewString(),
		Kind:    kind,
		Payload: payload,
		Issued:  c.now(),
		result:  NewPending[json.RawMessage](),
	}

	c.mu.Lock()
	c.inflight[req.Key] = req
	c.mu.Unlock()

	err := c.channel.Emit(string(kind), payload, func(data json.RawMessage) error {
		c.settle(req.Key, data)
		return nil
	})
	if err != nil {
		c.forget(req.Key)
		req.result.Reject(fmt.Errorf("send %s request: %w", kind, err))
		c.logger.Warn("request not sent", "kind", kind.String(), "key", req.Key, "error", err)
		return req, nil
	}

	c.logger.Debug("request sent", "kind", kind.String(), "key", req.Key)
	return req, nil
}

func (c *Correlator) settle(key string, data json.RawMessage) {
	req := c.forget(key)
	if req == nil {
		c.logger.Debug("duplicate reply ignored", "key", key)
		return
	}
	req.result.Resolve(data)
	c.logger.Debug("request resolved", "kind", req.Kind.String(), "key", key,
		"elapsed", c.now().Sub(req.Issued))
}

func (c *Correlator) forget(key string) *PendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.inflight[key]
	if !ok {
		return nil
	}
	delete(c.inflight, key)
	return req
}

// Len is the number of requests still waiting for a reply.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// InFlight lists unresolved requests, oldest first.
func (c *Correlator) InFlight() []PendingRequest {
	c.mu.Lock()
	out := make([]PendingRequest, 0, len(c.inflight))
	for _, req := range c.inflight {
		out = append(out, *req)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Issued.Before(out[j].Issued) })
	return out
}

// Translate resolves a single message key.
func (c *Correlator) Translate(key string) *Pending[string] {
	return c.requestString(KindTranslate, key)
}

// TranslatePlural resolves the plural form matching count.
func (c *Correlator) TranslatePlural(singular, plural string, count int) *Pending[string] {
	return c.requestString(KindTranslatePlural, PluralPayload{Singular: singular, Plural: plural, Count: count})
}

// FetchHTML resolves a markup fragment by key.
func (c *Correlator) FetchHTML(key string) *Pending[string] {
	return c.requestString(KindHTML, key)
}

func (c *Correlator) requestString(kind Kind, payload any) *Pending[string] {
	req, err := c.Request(kind, payload)
	if err != nil {
		return Rejected[string](err)
	}

	out := NewPending[string]()
	req.Result().Then(func(data json.RawMessage, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		s, err := decodeString(data)
		if err != nil {
			out.Reject(fmt.Errorf("%s reply: %w", kind, err))
			return
		}
		out.Resolve(s)
	})
	return out
}

// decodeString accepts a JSON string or null.
func decodeString(data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}

func validatePayload(kind Kind, payload any) error {
	switch kind {
	case KindTranslate, KindHTML:
		if _, ok := payload.(string); !ok {
			return fmt.Errorf("%w: %s wants a string key, got %T", ErrInvalidPayload, kind, payload)
		}
	case KindTranslatePlural:
		switch payload.(type) {
		case PluralPayload, *PluralPayload:
		default:
			return fmt.Errorf("%w: %s wants a PluralPayload, got %T", ErrInvalidPayload, kind, payload)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	return nil
}
