package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadrelay/leadrelay/internal/config"
	"github.com/leadrelay/leadrelay/internal/db"
	"github.com/leadrelay/leadrelay/internal/dispatch"
	"github.com/leadrelay/leadrelay/internal/handlers"
	"github.com/leadrelay/leadrelay/internal/leads"
	"github.com/leadrelay/leadrelay/internal/logger"
	"github.com/leadrelay/leadrelay/internal/messaging"
	"github.com/leadrelay/leadrelay/internal/messaging/telegram"
	"github.com/leadrelay/leadrelay/internal/server"
	"github.com/leadrelay/leadrelay/internal/sessions"
	"github.com/leadrelay/leadrelay/internal/version"
)

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,

			fx.Annotate(sessions.NewService, fx.As(new(sessions.Store))),
			fx.Annotate(leads.NewService, fx.As(new(leads.Reporter))),
			provideDialer,
			provideDispatchService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewDispatchHandler),

			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideDialer(log *slog.Logger, cfg config.Config) messaging.Dialer {
	return telegram.NewDialer(log, cfg.Telegram)
}

func provideDispatchService(log *slog.Logger, cfg config.Config, sessionStore sessions.Store, leadStore leads.Reporter, dialer messaging.Dialer) *dispatch.Service {
	return dispatch.NewService(log, cfg.Dispatch, sessionStore, leadStore, dialer)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting leadrelay %s\n", version.GetInfo())

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
