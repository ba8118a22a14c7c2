// Package app wires configuration, storage, the 1Shot client and the
// Telegram runtime into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/m3rciful/tokenbot/core/bootstrap"
	coreconfig "github.com/m3rciful/tokenbot/core/config"
	"github.com/m3rciful/tokenbot/core/httpserver"
	"github.com/m3rciful/tokenbot/core/inbox"
	"github.com/m3rciful/tokenbot/core/logger"
	tg "github.com/m3rciful/tokenbot/core/telegram"
	"github.com/m3rciful/tokenbot/core/telegram/middleware"
	"github.com/m3rciful/tokenbot/core/telegram/router"
	"github.com/m3rciful/tokenbot/core/telegram/sender"
	"github.com/m3rciful/tokenbot/core/telegram/ui"
	"github.com/m3rciful/tokenbot/internal/chats"
	"github.com/m3rciful/tokenbot/internal/deploy"
	"github.com/m3rciful/tokenbot/internal/oneshot"
	"github.com/m3rciful/tokenbot/internal/store"
	"github.com/m3rciful/tokenbot/internal/webhook"

	tele "gopkg.in/telebot.v4"
)

// Texts for updates nothing else handles.
const (
	TextUnknown         = "Send /start to open the menu."
	TextUnknownMedia    = "I was not expecting a file right now. Send /start to open the menu."
	TextUnknownCallback = "This button is no longer active"
	TextRateLimited     = "Slow down a little, please."
)

// OneShot is the 1Shot API surface the bot uses.
type OneShot interface {
	deploy.API
	webhook.KeySource
}

// Deps are the external collaborators of an App.
type Deps struct {
	Bot   *tele.Bot
	API   OneShot
	Store store.Store
}

// App owns every long-lived component of the bot.
type App struct {
	cfg   *coreconfig.Config
	infra *bootstrap.Result
	bot   *tele.Bot
	api   OneShot
	store store.Store

	registry   *tg.Registry
	queue      *inbox.Queue
	dispatcher *sender.Dispatcher
	deployer   *deploy.Deployer
	handlers   *deploy.Handlers
	tracker    *chats.Tracker
	correlator *webhook.Correlator
	server     *httpserver.Server
}

// Bootstrap prepares infrastructure, connects to 1Shot and provisions the
// deployer method. It fails when no funded escrow wallet exists.
func Bootstrap(ctx context.Context, cfg *coreconfig.Config) (*App, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg,
		Migrations: bootstrap.Migrations{FS: store.Migrations, Dir: store.MigrationsDir},
	})
	if err != nil {
		return nil, err
	}

	client, err := oneshot.NewClient(oneshot.Credentials{
		APIKey:     cfg.OneShot.APIKey,
		APISecret:  cfg.OneShot.APISecret,
		BusinessID: cfg.OneShot.BusinessID,
	},
		oneshot.WithBaseURL(cfg.OneShot.BaseURL),
		oneshot.WithHTTPClient(tg.BuildHTTPClient(tg.ClientOptions{ResponseTimeout: 15 * time.Second})),
	)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	bot, err := tg.NewBot(cfg)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	var st store.Store = store.NewMemory()
	if infra.DB != nil {
		st = store.NewSQL(infra.DB)
	}

	a, err := New(cfg, Deps{Bot: bot, API: client, Store: st})
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	a.infra = infra

	if err := a.Provision(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// New assembles an App around deps without touching the network.
func New(cfg *coreconfig.Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config provided")
	}
	if deps.Bot == nil || deps.API == nil {
		return nil, errors.New("app: bot and 1Shot API are required")
	}
	st := deps.Store
	if st == nil {
		st = store.NewMemory()
	}

	// one worker keeps replies in the order handlers produced them
	dispatcher := sender.NewDispatcher(sender.Options{Workers: 1, MaxRetries: 2})

	a := &App{
		cfg:        cfg,
		bot:        deps.Bot,
		api:        deps.API,
		store:      st,
		registry:   tg.NewRegistry(),
		queue:      inbox.New(cfg.Queue.Size),
		dispatcher: dispatcher,
	}

	a.deployer = deploy.NewDeployer(a.api, a.store, deploy.DeployerConfig{
		ChainID:    cfg.OneShot.ChainID,
		MethodName: cfg.OneShot.MethodName,
	})
	a.handlers = deploy.NewHandlers(deploy.NewEngine(nil, a.deployer))
	if err := a.handlers.Register(a.registry); err != nil {
		return nil, fmt.Errorf("app: register deploy handlers: %w", err)
	}

	a.tracker = chats.NewTracker(a.bot, a.store)
	if err := a.tracker.Register(a.registry); err != nil {
		return nil, fmt.Errorf("app: register chat tracker: %w", err)
	}

	notifier := webhook.NewTelegramNotifier(a.bot, a.dispatcher, cfg.OneShot.ExplorerURL)
	a.correlator = webhook.NewCorrelator(cfg.OneShot.SuccessEvent, notifier, a.store)

	a.server = httpserver.New(httpserver.Options{Addr: cfg.ListenAddr()})
	a.mountRoutes(a.server.Echo())
	return a, nil
}

// Provision checks the escrow wallet and makes sure the deployer method
// exists, pinning its id for submissions.
func (a *App) Provision(ctx context.Context) error {
	method, err := deploy.Provision(ctx, a.api, deploy.ProvisionConfig{
		ChainID:          a.cfg.OneShot.ChainID,
		ContractAddress:  a.cfg.OneShot.DeployerContract,
		MethodName:       a.cfg.OneShot.MethodName,
		CallbackURL:      a.cfg.OneShotCallbackURL(),
		MinWalletBalance: a.cfg.OneShot.MinWalletBalance,
	})
	if err != nil {
		return fmt.Errorf("app: provision: %w", err)
	}
	a.deployer.UseMethod(method.ID)
	return nil
}

func (a *App) mountRoutes(e *echo.Echo) {
	e.POST("/telegram", echo.WrapHandler(tg.WebhookHandler(a.bot, a.cfg.Webhook.SecretToken)))
	e.POST("/1shot",
		webhook.Handler(webhook.NewVerifier(a.api), a.acceptEvent),
		webhook.RateLimit(a.cfg.HTTP.WebhookRPS, a.cfg.HTTP.WebhookBurst),
	)
}

// acceptEvent queues an authenticated event behind pending Telegram updates.
func (a *App) acceptEvent(ctx context.Context, ev webhook.Event) error {
	return a.queue.Enqueue(ctx, "webhook."+ev.EventName, func(ctx context.Context) error {
		return a.correlator.Route(ctx, ev)
	})
}

// Server exposes the HTTP surface.
func (a *App) Server() *httpserver.Server {
	return a.server
}

// TelegramRunOptions assembles middlewares, routes and services for RunTelegram.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	hints := ui.Hints{
		Text:     TextUnknown,
		Media:    TextUnknownMedia,
		Callback: TextUnknownCallback,
	}
	a.registry.SetCallbackNotFound(hints.UnknownCallback())

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound: hints.UnknownCallback(),
	}))
	routes = append(routes, router.TextRoutes(a.handlers, a.registry, router.TextOptions{
		UnknownText:  hints.UnknownText(),
		UnknownMedia: hints.UnknownMedia(),
		MediaGate:    middleware.State(a.handlers, string(deploy.StateImage)),
	})...)
	routes = append(routes, a.tracker.Route())

	onLimited := func(c tele.Context) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: TextRateLimited})
		}
		return nil
	}

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Bot:         a.bot,
		Dispatcher:  a.dispatcher,
		Middlewares: tg.DefaultMiddlewares(a.cfg, a.queue, onLimited),
		Routes:      routes,
		Services: []tg.Service{
			{Name: "inbox", Run: a.queue.Run},
			{Name: "http", Run: a.server.Run},
		},
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			logger.LogEvent(ctx, logger.L, slog.LevelInfo, "app.routes",
				slog.Int("routes", len(routes)),
				slog.Int("callbacks", len(rt.Registry.ListCallbacks())),
				slog.String("listen", a.cfg.ListenAddr()),
				slog.Bool("trace", logger.TraceEnabled()),
			)
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			logger.LogEvent(ctx, logger.L, slog.LevelInfo, "app.stats",
				slog.Uint64("inbox_processed", a.queue.Processed()),
				slog.Int("inbox_pending", a.queue.Depth()),
				slog.Uint64("send_errors", rt.Dispatcher.ErrorCount()),
			)
			return nil
		},
	}, nil
}

// Close stops the outbound sender and releases the database connection.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	a.dispatcher.Close()
	return a.infra.Close()
}
