package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/terarelay/terarelay/internal/config"
	"github.com/terarelay/terarelay/internal/handlers"
	"github.com/terarelay/terarelay/internal/healthcheck"
	pollchecker "github.com/terarelay/terarelay/internal/healthcheck/checkers/poll"
	telegramchecker "github.com/terarelay/terarelay/internal/healthcheck/checkers/telegram"
	"github.com/terarelay/terarelay/internal/logger"
	"github.com/terarelay/terarelay/internal/metrics"
	"github.com/terarelay/terarelay/internal/poller"
	"github.com/terarelay/terarelay/internal/relay"
	"github.com/terarelay/terarelay/internal/resolver"
	"github.com/terarelay/terarelay/internal/server"
	"github.com/terarelay/terarelay/internal/telegram"
	"github.com/terarelay/terarelay/internal/version"
	"github.com/terarelay/terarelay/internal/webhook"
)

func runServe(cfg config.Config) error {
	app := fx.New(appOptions(cfg))
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func appOptions(cfg config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			provideLogger,
			provideHTTPClient,
			provideTelegramClient,
			provideResolver,
			providePipeline,
			provideRegistry,
			provideHealthCheckers,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideMetricsHandler),
			provideServer,
		),
		modeOptions(cfg.Telegram.Mode),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	)
}

// modeOptions wires the intake for the configured mode: the webhook route
// in push mode, the getUpdates loop in poll mode.
func modeOptions(mode string) fx.Option {
	if mode == config.ModePoll {
		return fx.Options(
			fx.Provide(providePoller),
			fx.Invoke(startPoller),
		)
	}
	return fx.Provide(provideServerHandler(webhook.NewServerHandler))
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

// The long poll and large downloads need a client without an overall
// timeout; per-call limits come from contexts.
func provideHTTPClient() *http.Client {
	return &http.Client{}
}

func provideTelegramClient(log *slog.Logger, cfg config.Config, client *http.Client) *telegram.Client {
	return telegram.NewClient(log, cfg.Telegram, client)
}

func provideResolver(log *slog.Logger, cfg config.Config, client *http.Client) *resolver.Client {
	return resolver.NewClient(log, cfg.Resolver, client)
}

func providePipeline(log *slog.Logger, cfg config.Config, tg *telegram.Client, res *resolver.Client) *relay.Pipeline {
	p := relay.NewPipeline(log, tg, res, relay.Options{
		Trigger:                cfg.Resolver.Trigger,
		ConfirmOnUploadFailure: cfg.Relay.ConfirmOnUploadFailure,
	})
	if cfg.Metrics.Enabled {
		p.SetHooks(metrics.RelayHooks())
	}
	return p
}

func providePoller(log *slog.Logger, cfg config.Config, tg *telegram.Client, pipeline *relay.Pipeline) *poller.Poller {
	p := poller.New(log, cfg.Telegram, tg, pipeline)
	if cfg.Metrics.Enabled {
		p.SetHooks(metrics.PollerHooks())
	}
	return p
}

func provideRegistry() (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return reg, nil
}

type healthParams struct {
	fx.In
	Logger *slog.Logger
	Config config.Config
	Poller *poller.Poller `optional:"true"`
}

func provideHealthCheckers(params healthParams) []healthcheck.Checker {
	checkers := []healthcheck.Checker{telegramchecker.NewChecker(params.Config.Telegram)}
	if params.Poller != nil {
		checkers = append(checkers, pollchecker.NewChecker(params.Logger, params.Poller))
	}
	return checkers
}

func providePingHandler(log *slog.Logger, checkers []healthcheck.Checker) *handlers.PingHandler {
	return handlers.NewPingHandler(log, checkers...)
}

func provideMetricsHandler(cfg config.Config, reg *prometheus.Registry) *handlers.MetricsHandler {
	return handlers.NewMetricsHandler(cfg, reg)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.ListenAddr(), params.ServerHandlers...)
}

func startPoller(lc fx.Lifecycle, p *poller.Poller) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { p.Start(context.Background()); return nil },
		OnStop:  func(ctx context.Context) error { return p.Stop(ctx) },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	logger.Info("starting terarelay",
		slog.String("version", version.GetInfo()),
		slog.String("mode", cfg.Telegram.Mode),
		slog.String("addr", cfg.Server.ListenAddr()),
	)
	if !cfg.Telegram.HasToken() {
		logger.Warn("TELEGRAM_BOT_TOKEN is not set; Bot API calls will fail")
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
