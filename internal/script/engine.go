package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/Rorical/wireui/internal/dom"
)

var ErrNoLoader = errors.New("external script without a loader")

// Loader fetches the source of an external script.
type Loader interface {
	Load(src string) (string, error)
}

// Engine runs page scripts in one shared JavaScript runtime. The global
// object doubles as window, so state set by one script is visible to the
// next. Runs are serialized.
type Engine struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	loader Loader
	logger *slog.Logger
}

func NewEngine(loader Loader, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{vm: goja.New(), loader: loader, logger: logger}
	_ = e.vm.Set("window", e.vm.GlobalObject())

	console := e.vm.NewObject()
	_ = console.Set("log", e.consoleFunc(slog.LevelInfo))
	_ = console.Set("info", e.consoleFunc(slog.LevelInfo))
	_ = console.Set("warn", e.consoleFunc(slog.LevelWarn))
	_ = console.Set("error", e.consoleFunc(slog.LevelError))
	_ = e.vm.Set("console", console)
	return e
}

func (e *Engine) consoleFunc(level slog.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		e.logger.Log(context.Background(), level, strings.Join(parts, " "), "source", "script")
		return goja.Undefined()
	}
}

// Run implements dom.ScriptRunner.
func (e *Engine) Run(s dom.Script) error {
	name, code := "inline", s.Text
	if s.Src != "" {
		if e.loader == nil {
			return ErrNoLoader
		}
		src, err := e.loader.Load(s.Src)
		if err != nil {
			return fmt.Errorf("load %s: %w", s.Src, err)
		}
		name, code = s.Src, src
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.vm.RunScript(name, code); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}
	e.logger.Debug("script executed", "script", s.String())
	return nil
}

// Eval evaluates an expression and exports its value to Go.
func (e *Engine) Eval(expr string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, err := e.vm.RunString(expr)
	if err != nil {
		return nil, err
	}
	return v.Export(), nil
}

// HTTPLoader fetches external scripts relative to a base URL.
type HTTPLoader struct {
	Base   *url.URL
	Client *http.Client
}

func NewHTTPLoader(base string) (*HTTPLoader, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse script base %q: %w", base, err)
	}
	return &HTTPLoader{Base: u, Client: &http.Client{Timeout: 15 * time.Second}}, nil
}

func (l *HTTPLoader) Load(src string) (string, error) {
	ref, err := url.Parse(src)
	if err != nil {
		return "", err
	}
	target := l.Base.ResolveReference(ref)

	resp, err := l.Client.Get(target.String())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %s", target, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// BaseFromSocketURL maps ws(s)://host/ws to http(s)://host/.
func BaseFromSocketURL(socketURL string) (string, error) {
	u, err := url.Parse(socketURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = "/"
	u.RawQuery = ""
	return u.String(), nil
}
