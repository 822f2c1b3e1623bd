// Package devserver is a development peer for the terminal client. It speaks
// the frame protocol over a websocket, answers lookups from a catalog and
// lets flash and error pushes be triggered over HTTP.
package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Rorical/wireui/internal/eventbus"
)

const writeTimeout = 10 * time.Second

var ErrNoClients = errors.New("no connected clients")

type Server struct {
	catalog  *Catalog
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(frame eventbus.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(frame)
}

func NewServer(catalog *Catalog, logger *slog.Logger) *Server {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		catalog: catalog,
		logger:  logger,
		clients: make(map[string]*client),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "OK")
	}).Methods("GET")
	r.HandleFunc("/ws", s.handleSocket).Methods("GET")
	r.HandleFunc("/flash", s.handleFlash).Methods("POST")
	r.HandleFunc("/error", s.handleError).Methods("POST")
	r.HandleFunc("/static/{name}", s.handleStatic).Methods("GET")
	return r
}

// Clients is the number of connected sockets.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast pushes an unsolicited event to every connected client and
// returns how many received it.
func (s *Server) Broadcast(event string, data any) (int, error) {
	raw, err := eventbus.EncodePayload(data)
	if err != nil {
		return 0, err
	}
	frame := eventbus.Frame{Type: eventbus.FrameEvent, Event: event, Data: raw}

	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		return 0, ErrNoClients
	}

	sent := 0
	var errs []error
	for _, c := range targets {
		if err := c.send(frame); err != nil {
			errs = append(errs, fmt.Errorf("client %s: %w", c.id, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{id: uuid.NewString(), conn: conn}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Info("client connected", "client", c.id, "remote", r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		_ = conn.Close()
		s.logger.Info("client disconnected", "client", c.id)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read failed", "client", c.id, "error", err)
			}
			return
		}
		frame, err := eventbus.DecodeFrame(raw)
		if err != nil {
			s.logger.Warn("bad frame", "client", c.id, "error", err)
			continue
		}
		s.handleFrame(c, frame)
	}
}

func (s *Server) handleFrame(c *client, frame eventbus.Frame) {
	if frame.Type != eventbus.FrameEvent {
		s.logger.Debug("ignoring frame", "client", c.id, "type", frame.Type)
		return
	}

	reply, err := s.answer(c, frame.Event, frame.Data)
	if err != nil {
		s.logger.Warn("lookup failed", "client", c.id, "event", frame.Event, "error", err)
		s.push(c, "error", err.Error())
	}
	if frame.ID == 0 {
		return
	}

	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Error("encode reply", "error", err)
		return
	}
	ack := eventbus.Frame{Type: eventbus.FrameAck, ID: frame.ID, Data: data}
	if err := c.send(ack); err != nil {
		s.logger.Warn("ack failed", "client", c.id, "id", frame.ID, "error", err)
	}
}

// answer resolves one lookup. A nil reply is sent as null.
func (s *Server) answer(c *client, event string, data json.RawMessage) (any, error) {
	switch event {
	case "_":
		var key string
		if err := json.Unmarshal(data, &key); err != nil {
			return nil, fmt.Errorf("translate payload: %w", err)
		}
		return s.catalog.Translate(key), nil
	case "_n":
		var p struct {
			S string `json:"s"`
			P string `json:"p"`
			N int    `json:"n"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("plural payload: %w", err)
		}
		return s.catalog.TranslatePlural(p.S, p.P, p.N), nil
	case "html":
		var key string
		if err := json.Unmarshal(data, &key); err != nil {
			return nil, fmt.Errorf("html payload: %w", err)
		}
		markup, ok := s.catalog.Fragment(key)
		if !ok {
			return "", fmt.Errorf("unknown fragment %q", key)
		}
		return markup, nil
	}
	return nil, fmt.Errorf("unknown event %q", event)
}

func (s *Server) push(c *client, event string, data any) {
	raw, err := eventbus.EncodePayload(data)
	if err != nil {
		return
	}
	if err := c.send(eventbus.Frame{Type: eventbus.FrameEvent, Event: event, Data: raw}); err != nil {
		s.logger.Warn("push failed", "client", c.id, "event", event, "error", err)
	}
}

type flashRequest struct {
	Message  string `json:"msg"`
	Category string `json:"cat"`
}

type errorRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleFlash(w http.ResponseWriter, r *http.Request) {
	var req flashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Category == "" {
		req.Category = "info"
	}
	s.respondBroadcast(w, "flash", req)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	var req errorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.respondBroadcast(w, "error", req.Message)
}

func (s *Server) respondBroadcast(w http.ResponseWriter, event string, data any) {
	sent, err := s.Broadcast(event, data)
	if errors.Is(err, ErrNoClients) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.logger.Warn("broadcast incomplete", "event", event, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]int{"clients": sent})
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	src, ok := s.catalog.Static[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/javascript")
	_, _ = w.Write([]byte(src))
}
