package app

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/wireui/internal/config"
	"github.com/Rorical/wireui/internal/core"
	"github.com/Rorical/wireui/internal/dispatcher"
	"github.com/Rorical/wireui/internal/dom"
	"github.com/Rorical/wireui/internal/eventbus"
	"github.com/Rorical/wireui/internal/presenter"
	"github.com/Rorical/wireui/internal/script"
	"github.com/Rorical/wireui/internal/update"
)

// Application manages the complete application lifecycle
type Application struct {
	config       *config.Config
	logger       *slog.Logger
	channel      *eventbus.Socket
	correlator   *core.Correlator
	document     *dom.Document
	presenter    *presenter.Presenter
	reactor      *dispatcher.Reactor
	subscription *dispatcher.Subscription
	model        *AppModel

	ctx     context.Context
	cancel  context.CancelFunc
	runDone chan error
}

func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.IsValid() {
		return nil, fmt.Errorf("profile %q has no server url", cfg.ActiveProfile)
	}

	ctx, cancel := context.WithCancel(context.Background())

	socket, err := eventbus.Dial(ctx, cfg.GetURL(), logger)
	if err != nil {
		cancel()
		return nil, err
	}
	socket.SetErrorCallback(func(e eventbus.DispatchError) {
		logger.Warn("channel error", "operation", e.Operation, "event", e.Event, "error", e.Err)
	})

	runner, err := newScriptRunner(cfg, logger)
	if err != nil {
		cancel()
		_ = socket.Close()
		return nil, err
	}

	correlator := core.NewCorrelator(socket, logger)
	doc := dom.New(runner)
	notifier := update.NewChangeNotifier()
	doc.OnChange(notifier.Notify)

	pres := presenter.New(doc, correlator, logger)
	runDone := make(chan error, 1)

	return &Application{
		config:     cfg,
		logger:     logger,
		channel:    socket,
		correlator: correlator,
		document:   doc,
		presenter:  pres,
		reactor:    dispatcher.NewReactor(socket, pres, correlator, logger),
		model:      newAppModel(doc, pres, correlator, notifier, runDone, cfg),
		ctx:        ctx,
		cancel:     cancel,
		runDone:    runDone,
	}, nil
}

func newScriptRunner(cfg *config.Config, logger *slog.Logger) (dom.ScriptRunner, error) {
	if !cfg.ScriptsEnabled() {
		return disabledScripts{logger: logger}, nil
	}
	base, err := script.BaseFromSocketURL(cfg.GetURL())
	if err != nil {
		return nil, fmt.Errorf("derive script base: %w", err)
	}
	loader, err := script.NewHTTPLoader(base)
	if err != nil {
		return nil, err
	}
	return script.NewEngine(loader, logger), nil
}

// disabledScripts records scripts without running them.
type disabledScripts struct {
	logger *slog.Logger
}

func (d disabledScripts) Run(s dom.Script) error {
	d.logger.Debug("script execution disabled", "script", s.String())
	return nil
}

func (app *Application) Start() error {
	app.subscription = app.reactor.Start()
	go func() {
		app.runDone <- app.channel.Run(app.ctx)
	}()

	app.presenter.HTMLInject(app.config.GetPanelKey(), app.document.MustElement(dom.PanelID))

	p := tea.NewProgram(app.model, tea.WithAltScreen())
	_, err := p.Run()

	return err
}

func (app *Application) Stop() {
	if app.subscription != nil {
		app.subscription.Close()
	}
	app.cancel()
	if err := app.channel.Close(); err != nil {
		app.logger.Debug("close channel", "error", err)
	}
}
