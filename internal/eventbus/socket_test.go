package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoPeer acks every event with "echo:<payload>" and pushes a flash first.
func echoPeer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		flash, _ := json.Marshal(map[string]string{"msg": "welcome", "cat": "info"})
		if err := conn.WriteJSON(Frame{Type: FrameEvent, Event: "flash", Data: flash}); err != nil {
			return
		}

		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.ID == 0 {
				continue
			}
			var s string
			_ = json.Unmarshal(f.Data, &s)
			reply, _ := json.Marshal("echo:" + s)
			if err := conn.WriteJSON(Frame{Type: FrameAck, ID: f.ID, Data: reply}); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSocketRoundTrip(t *testing.T) {
	srv := echoPeer(t)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sock, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)

	flashes := make(chan string, 1)
	sock.On("flash", func(data json.RawMessage) error {
		var p struct {
			Msg string `json:"msg"`
		}
		assert.NoError(t, json.Unmarshal(data, &p))
		flashes <- p.Msg
		return nil
	})

	runDone := make(chan error, 1)
	go func() { runDone <- sock.Run(ctx) }()

	select {
	case msg := <-flashes:
		assert.Equal(t, "welcome", msg)
	case <-ctx.Done():
		t.Fatal("flash push never arrived")
	}

	replies := make(chan string, 2)
	for _, key := range []string{"one", "two"} {
		require.NoError(t, sock.Emit("_", key, func(data json.RawMessage) error {
			var s string
			assert.NoError(t, json.Unmarshal(data, &s))
			replies <- s
			return nil
		}))
	}

	got := map[string]bool{}
	for range 2 {
		select {
		case r := <-replies:
			got[r] = true
		case <-ctx.Done():
			t.Fatal("ack never arrived")
		}
	}
	assert.Equal(t, map[string]bool{"echo:one": true, "echo:two": true}, got)
	assert.Equal(t, 0, sock.Pending())

	cancel()
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.ErrorIs(t, sock.Emit("_", "late", nil), ErrClosed)
}

// reorderingPeer holds the first n acked events, then acks them in reverse
// order, repeats the first ack and pushes "done".
func reorderingPeer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var held []Frame
		for len(held) < n {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.ID != 0 {
				held = append(held, f)
			}
		}

		ack := func(f Frame) error {
			var s string
			_ = json.Unmarshal(f.Data, &s)
			reply, _ := json.Marshal("echo:" + s)
			return conn.WriteJSON(Frame{Type: FrameAck, ID: f.ID, Data: reply})
		}
		for i := len(held) - 1; i >= 0; i-- {
			if err := ack(held[i]); err != nil {
				return
			}
		}
		if err := ack(held[0]); err != nil {
			return
		}
		if err := conn.WriteJSON(Frame{Type: FrameEvent, Event: "done"}); err != nil {
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestSocketOutOfOrderAndDuplicateAcks(t *testing.T) {
	keys := []string{"one", "two", "three"}
	srv := reorderingPeer(t, len(keys))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sock, err := Dial(ctx, wsURL(srv), testLogger())
	require.NoError(t, err)

	done := make(chan struct{})
	sock.On("done", func(json.RawMessage) error {
		close(done)
		return nil
	})

	runDone := make(chan error, 1)
	go func() { runDone <- sock.Run(ctx) }()

	// acks and the done push are dispatched on the Run goroutine, so the
	// counters are settled once done is closed
	received := make([][]string, len(keys))
	for i, key := range keys {
		require.NoError(t, sock.Emit("_", key, func(data json.RawMessage) error {
			var s string
			if err := json.Unmarshal(data, &s); err != nil {
				return err
			}
			received[i] = append(received[i], s)
			return nil
		}))
	}

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("peer never finished acking")
	}

	for i, key := range keys {
		assert.Equal(t, []string{"echo:" + key}, received[i], "callback for %q", key)
	}
	assert.Equal(t, 0, sock.Pending())

	cancel()
	<-runDone
}

func TestSocketEmitFailsFastOnceBreakerOpens(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.UnderlyingConn().Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sock, err := Dial(ctx, wsURL(srv), testLogger())
	require.NoError(t, err)
	defer sock.Close()

	var reported []DispatchError
	sock.SetErrorCallback(func(e DispatchError) { reported = append(reported, e) })

	var writeFailures int
	require.Eventually(t, func() bool {
		err := sock.Emit("_", "ping", func(json.RawMessage) error { return nil })
		switch {
		case err == nil:
			return false
		case errors.Is(err, ErrCircuitOpen):
			return true
		default:
			writeFailures++
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, writeFailures, 5, "breaker opens after repeated write failures")
	assert.Equal(t, CircuitOpen, sock.breaker.State())
	assert.Equal(t, 0, sock.Pending(), "failed emits leave no ack behind")
	assert.ErrorIs(t, sock.Emit("_", "again", nil), ErrCircuitOpen)

	require.NotEmpty(t, reported)
	assert.ErrorIs(t, reported[len(reported)-1], ErrCircuitOpen)
}

func TestSocketDispatchReportsHandlerErrors(t *testing.T) {
	s := &Socket{acks: map[uint64]AckFunc{}, breaker: NewCircuitBreaker(1, time.Second)}
	s.logger = testLogger()

	var reported []DispatchError
	s.SetErrorCallback(func(e DispatchError) { reported = append(reported, e) })

	s.On("error", func(json.RawMessage) error { return assert.AnError })
	s.dispatch(Frame{Type: FrameEvent, Event: "error", Data: json.RawMessage(`"x"`)})
	s.dispatch(Frame{Type: FrameAck, ID: 42})
	s.dispatch(Frame{Type: "bogus"})

	require.Len(t, reported, 2)
	assert.Equal(t, "handle", reported[0].Operation)
	assert.ErrorIs(t, reported[0], assert.AnError)
	assert.Equal(t, "decode", reported[1].Operation)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
