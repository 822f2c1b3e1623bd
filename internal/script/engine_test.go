package script

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/wireui/internal/dom"
)

type mapLoader map[string]string

func (m mapLoader) Load(src string) (string, error) {
	s, ok := m[src]
	if !ok {
		return "", errors.New("not found")
	}
	return s, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngineRunsInlineScripts(t *testing.T) {
	e := NewEngine(nil, quietLogger())

	require.NoError(t, e.Run(dom.Script{Text: "window.x = 1"}))
	v, err := e.Eval("x")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	require.NoError(t, e.Run(dom.Script{Text: "window.x += 41"}))
	v, err = e.Eval("window.x")
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
}

func TestEngineReportsScriptErrors(t *testing.T) {
	e := NewEngine(nil, quietLogger())
	assert.Error(t, e.Run(dom.Script{Text: "window.("}))
	assert.Error(t, e.Run(dom.Script{Text: "throw new Error('nope')"}))
}

func TestEngineExternalScripts(t *testing.T) {
	e := NewEngine(mapLoader{"/static/a.js": "window.loaded = 'yes'"}, quietLogger())
	require.NoError(t, e.Run(dom.Script{Src: "/static/a.js"}))
	v, err := e.Eval("loaded")
	require.NoError(t, err)
	assert.Equal(t, "yes", v)

	assert.Error(t, e.Run(dom.Script{Src: "/static/missing.js"}))

	bare := NewEngine(nil, quietLogger())
	assert.ErrorIs(t, bare.Run(dom.Script{Src: "/static/a.js"}), ErrNoLoader)
}

func TestEngineConsoleGoesToLog(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(nil, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, e.Run(dom.Script{Text: "console.error('bad', 7)"}))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), `msg="bad 7"`)
}

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/static/app.js" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("window.app = true"))
	}))
	defer srv.Close()

	l, err := NewHTTPLoader(srv.URL + "/")
	require.NoError(t, err)

	src, err := l.Load("/static/app.js")
	require.NoError(t, err)
	assert.Equal(t, "window.app = true", src)

	_, err = l.Load("/static/nope.js")
	assert.Error(t, err)
}

func TestBaseFromSocketURL(t *testing.T) {
	base, err := BaseFromSocketURL("wss://example.com:8443/ws?token=x")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com:8443/", base)

	base, err = BaseFromSocketURL("ws://localhost:8080/ws")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/", base)
}
