package devserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/wireui/internal/core"
	"github.com/Rorical/wireui/internal/eventbus"
)

const testCatalog = `
translations:
  "Socket Error": "Socketfehler"
  "file": "Datei"
  "files": "Dateien"
fragments:
  index: "<p>hi</p><script>window.x=1</script>"
static:
  app.js: "window.app = true"
`

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	catalog, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	s := NewServer(catalog, quiet())
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

// connect dials the server and runs the socket read loop until the test ends.
func connect(t *testing.T, ts *httptest.Server) (*eventbus.Socket, *core.Correlator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	sock, err := eventbus.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", quiet())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sock.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return sock, core.NewCorrelator(sock, quiet())
}

func await(t *testing.T, p *core.Pending[string]) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := p.Await(ctx)
	require.NoError(t, err)
	return v
}

func TestLookups(t *testing.T) {
	_, ts := newTestServer(t)
	_, c := connect(t, ts)

	assert.Equal(t, "Socketfehler", await(t, c.Translate("Socket Error")))
	assert.Equal(t, "untranslated", await(t, c.Translate("untranslated")))
	assert.Equal(t, "Datei", await(t, c.TranslatePlural("file", "files", 1)))
	assert.Equal(t, "Dateien", await(t, c.TranslatePlural("file", "files", 3)))
	assert.Equal(t, "<p>hi</p><script>window.x=1</script>", await(t, c.FetchHTML("index")))
	assert.Equal(t, 0, c.Len())
}

func TestUnknownFragmentRepliesEmptyAndPushesError(t *testing.T) {
	_, ts := newTestServer(t)
	sock, c := connect(t, ts)

	pushed := make(chan string, 1)
	sock.On("error", func(data json.RawMessage) error {
		var msg string
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		pushed <- msg
		return nil
	})

	assert.Equal(t, "", await(t, c.FetchHTML("nope")))
	select {
	case msg := <-pushed:
		assert.Contains(t, msg, `unknown fragment "nope"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no error push")
	}
}

func TestFlashBroadcast(t *testing.T) {
	s, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/flash", "application/json", strings.NewReader(`{"msg":"Saved","cat":"success"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "nobody is connected yet")

	sock, _ := connect(t, ts)
	got := make(chan json.RawMessage, 1)
	sock.On("flash", func(data json.RawMessage) error {
		got <- data
		return nil
	})
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err = http.Post(ts.URL+"/flash", "application/json", strings.NewReader(`{"msg":"Saved","cat":"success"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case data := <-got:
		assert.JSONEq(t, `{"msg":"Saved","cat":"success"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("no flash push")
	}
}

func TestErrorBroadcast(t *testing.T) {
	s, ts := newTestServer(t)
	sock, _ := connect(t, ts)
	got := make(chan json.RawMessage, 1)
	sock.On("error", func(data json.RawMessage) error {
		got <- data
		return nil
	})
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(ts.URL+"/error", "application/json", strings.NewReader(`{"message":"db down"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case data := <-got:
		assert.JSONEq(t, `"db down"`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("no error push")
	}

	resp, err = http.Post(ts.URL+"/error", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndStatic(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK\n", string(body))

	resp, err = http.Get(ts.URL + "/static/app.js")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "window.app = true", string(body))

	resp, err = http.Get(ts.URL + "/static/missing.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	_, ok := c.Fragment("index")
	assert.True(t, ok)
	assert.Equal(t, core.SafeFailureKey, c.Translate(core.SafeFailureKey))
	assert.Contains(t, c.Static, "clock.js")
}

func TestParseCatalogRejectsGarbage(t *testing.T) {
	_, err := ParseCatalog([]byte("translations: [unclosed"))
	assert.Error(t, err)

	c, err := ParseCatalog([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, "k", c.Translate("k"))
}
