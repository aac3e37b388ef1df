package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	httphandler "github.com/vncsmyrnk/planner/internal/adapters/handler/http"
	"github.com/vncsmyrnk/planner/internal/adapters/handler/telegram"
	"github.com/vncsmyrnk/planner/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/planner/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/planner/internal/config"
	"github.com/vncsmyrnk/planner/internal/core/ports"
	"github.com/vncsmyrnk/planner/internal/core/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	plannings := services.NewPlanningService(store)
	options := services.NewOptionService(store)
	voters := services.NewVoterService(store)

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}
	bot.Debug = cfg.Telegram.Debug
	logger.Info("authorized on telegram", "bot", bot.Self.UserName)

	handler := telegram.NewHandler(bot, bot.Self.UserName, plannings, options, logger.With("component", "telegram"))
	dispatcher := telegram.NewDispatcher(handler, cfg.Telegram.SessionIdleTimeout, logger.With("component", "dispatcher"))

	var webhook *httphandler.WebhookHandler
	if err := configureUpdates(bot, cfg.Telegram); err != nil {
		return err
	}
	if cfg.Telegram.Mode == config.ModeWebhook {
		webhook = httphandler.NewWebhookHandler(dispatcher, cfg.Telegram.WebhookSecret, logger.With("component", "webhook"))
	}

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: httphandler.NewHandler(
			httphandler.NewPlanningHandler(plannings, options, logger.With("component", "http")),
			httphandler.NewVoterHandler(voters, logger.With("component", "http")),
			webhook,
		),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("gracefully shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Telegram.Mode == config.ModePolling {
		g.Go(func() error {
			return telegram.Poll(gctx, bot, dispatcher, logger.With("component", "poller"))
		})
	}

	return g.Wait()
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == config.FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// configureUpdates registers the webhook in webhook mode and removes any
// leftover webhook in polling mode, since Telegram refuses long polling
// while one is set.
func configureUpdates(bot *tgbotapi.BotAPI, cfg config.TelegramConfig) error {
	if cfg.Mode == config.ModeWebhook {
		if _, err := bot.MakeRequest("setWebhook", webhookParams(cfg)); err != nil {
			return fmt.Errorf("failed to register webhook: %w", err)
		}
		return nil
	}

	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to remove webhook: %w", err)
	}
	return nil
}

// webhookParams builds the setWebhook call by hand since WebhookConfig has
// no secret_token field.
func webhookParams(cfg config.TelegramConfig) tgbotapi.Params {
	params := make(tgbotapi.Params)
	params["url"] = cfg.WebhookURL
	params.AddNonEmpty("secret_token", cfg.WebhookSecret)
	return params
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (ports.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if cfg.PoolSize > 0 {
			db.SetMaxOpenConns(cfg.PoolSize)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to reach database: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("postgres store ready")
		return postgres.NewStore(db), func() { db.Close() }, nil

	case config.DriverSQLite:
		pool, err := sqlite.OpenPool(sqlite.PoolConfig{
			Path:     cfg.SQLitePath,
			PoolSize: cfg.PoolSize,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlite.NewStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, func() { pool.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}
