package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	coreconfig "github.com/m3rciful/tokenbot/core/config"
	"github.com/m3rciful/tokenbot/core/logger"
	tghelpers "github.com/m3rciful/tokenbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/tokenbot/core/telegram/sender"

	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v4"
	"log/slog"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// Service is a long-running component started next to the bot, such as the
// HTTP server or the update queue consumer. Run must return once ctx is done.
type Service struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry
	// Bot is used as is when set; otherwise RunTelegram builds one with NewBot.
	Bot *tele.Bot

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route
	Services    []Service

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// NewBot builds a bot for cfg. Handlers run synchronously: ordering is
// provided by the update queue, not by telebot goroutines.
func NewBot(cfg *coreconfig.Config) (*tele.Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram: nil config provided")
	}
	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			PublicURL:   cfg.TelegramWebhookURL(),
			SecretToken: cfg.Webhook.SecretToken,
		},
	})

	clientOpts := ClientOptions{}
	if _, ok := poller.(*tele.LongPoller); ok {
		clientOpts.ResponseTimeout = longPollTimeout(cfg.Telegram.LongPollTimeoutSeconds) + defaultResponseTimeout
		clientOpts.Timeout = clientOpts.ResponseTimeout + defaultClientTimeout
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:       cfg.Telegram.Token,
		Poller:      poller,
		Client:      BuildHTTPClient(clientOpts),
		Synchronous: true,
		OnError:     logBotError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}

func logBotError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.TG.LogAttrs(ctx, slog.LevelError, "bot error",
		slog.String("event", "tg.error"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

// RunTelegram composes and runs a Telegram bot and its services until the
// provided context is done or one of them fails.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}

	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	buildStart := time.Now()
	bot := opts.Bot
	if bot == nil {
		var err error
		if bot, err = NewBot(cfg); err != nil {
			return err
		}
	}
	buildTook := time.Since(buildStart)

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	useHelperDispatcher := !opts.DisableHelperDispatcher
	if useHelperDispatcher {
		tghelpers.SetDispatcher(dispatcher)
	}
	release := func() {
		dispatcher.Close()
		if useHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	rt := Runtime{
		Bot:        bot,
		Dispatcher: dispatcher,
		Registry:   reg,
	}

	switch p := bot.Poller.(type) {
	case *tele.Webhook:
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Bool("secret_token", p.SecretToken != ""),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	case *tele.LongPoller:
		logger.TG.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
		if !opts.DisableWebhookCleanup {
			if err := bot.RemoveWebhook(false); err != nil {
				logger.TG.Warn("failed to delete webhook",
					slog.String("event", "delete_webhook"),
					slog.String("mode", coreconfig.RunModeLongpoll),
					slog.String("err", err.Error()),
				)
			} else {
				logger.TG.Info("webhook deleted",
					slog.String("event", "delete_webhook"),
					slog.String("mode", coreconfig.RunModeLongpoll),
				)
			}
		}
	}

	for _, mw := range opts.Middlewares {
		if mw.Use == nil {
			continue
		}
		bot.Use(mw.Use)
	}

	for _, route := range opts.Routes {
		if route.Endpoint == nil || route.Handler == nil {
			continue
		}
		bot.Handle(route.Endpoint, route.Handler)
	}

	SetupCommands(bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range opts.Services {
		if svc.Run == nil {
			continue
		}
		g.Go(func() error {
			if err := svc.Run(gctx); err != nil {
				logger.TG.LogAttrs(gctx, slog.LevelError, "service failed",
					slog.String("event", "service"),
					slog.String("name", svc.Name),
					slog.String("err", err.Error()),
				)
				return fmt.Errorf("%s: %w", svc.Name, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		runDone := make(chan struct{})
		go func() {
			bot.Start()
			close(runDone)
		}()
		select {
		case <-gctx.Done():
			bot.Stop()
			<-runDone
			return nil
		case <-runDone:
			return errors.New("telegram: bot stopped unexpectedly")
		}
	})

	runErr := g.Wait()

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}

	release()

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
