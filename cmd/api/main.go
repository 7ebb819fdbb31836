package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	backend "github.com/reviewcash/backend"
	"github.com/reviewcash/backend/internal/botfront"
	"github.com/reviewcash/backend/internal/config"
	"github.com/reviewcash/backend/internal/engine"
	"github.com/reviewcash/backend/internal/handlers"
	"github.com/reviewcash/backend/internal/ident"
	"github.com/reviewcash/backend/internal/models"
	"github.com/reviewcash/backend/internal/notify"
	"github.com/reviewcash/backend/internal/ratelimit"
	"github.com/reviewcash/backend/internal/realtime"
	"github.com/reviewcash/backend/internal/repository"
	"github.com/reviewcash/backend/internal/router"
	"github.com/reviewcash/backend/internal/token"
	"github.com/reviewcash/backend/internal/webapp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		slog.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("connected to PostgreSQL")

	migrationsFS, err := fs.Sub(backend.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("load embedded migrations failed", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("create river migrator failed", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("river migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("river migrations applied")

	userRepo := repository.NewUserRepo(pool)
	topupRepo := repository.NewTopupRepo(pool)
	withdrawRepo := repository.NewWithdrawRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	submissionRepo := repository.NewSubmissionRepo(pool)
	adminRepo := repository.NewAdminRepo(pool)

	tokens := token.NewService([]byte(cfg.TokenSecret), cfg.TokenTTL, cfg)

	tgBot, err := bot.New(cfg.BotToken)
	if err != nil {
		slog.Error("create telegram bot failed", "error", err)
		os.Exit(1)
	}

	// Alert insert func is set after the River client exists (breaks the
	// engine -> worker -> client -> engine init cycle).
	var insertMu sync.Mutex
	var insertFn engine.InsertAdminAlertTxFunc
	insertAlert := func(ctx context.Context, tx pgx.Tx, args notify.AdminAlertArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	sendAlert := func(ctx context.Context, chatID int64, text string) error {
		_, err := tgBot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
		return err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewAdminAlertWorker(cfg.AdminIDs, adminRepo, sendAlert, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 4},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("create river client failed", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args notify.AdminAlertArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	hub := realtime.NewHub(logger)

	eng := &engine.Engine{
		Pool:        pool,
		Users:       userRepo,
		Topups:      topupRepo,
		Withdraws:   withdrawRepo,
		Tasks:       taskRepo,
		Submissions: submissionRepo,
		Limiter: ratelimit.NewPolicy(map[string]time.Duration{
			models.PlatformGoogle: cfg.CooldownGoogle,
			models.PlatformYandex: cfg.CooldownYandex,
			models.PlatformTwoGis: cfg.CooldownTwoGis,
		}),
		IDs:         ident.New(),
		Notifier:    hub,
		InsertAlert: insertAlert,
		Logger:      logger,
		MinTopup:    cfg.MinTopup,
		MinWithdraw: cfg.MinWithdraw,
		Banks:       cfg.Banks,
	}

	publicHandler := &handlers.PublicHandler{
		Tasks:       taskRepo,
		Submissions: submissionRepo,
		Logger:      logger,
	}
	adminHandler := &handlers.AdminHandler{
		Engine:      eng,
		Topups:      topupRepo,
		Withdraws:   withdrawRepo,
		Submissions: submissionRepo,
		Tasks:       taskRepo,
		Moderators:  adminRepo,
		Sessions:    hub,
		Logger:      logger,
	}
	webAppHandler := &webapp.Handler{
		Engine: eng,
		Tasks:  taskRepo,
		Logger: logger,
	}
	wsHandler := realtime.NewWSHandler(hub, tokens, logger)

	apiRouter := router.New(publicHandler, webAppHandler, adminHandler, wsHandler, tokens)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.WebAppURL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (delivers admin alerts)
	go func() {
		if err := riverClient.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("river client stopped", "error", err)
		}
	}()

	// Bot commands
	front := botfront.New(tgBot, cfg, tokens, adminRepo, logger)
	front.Register()
	go tgBot.Start(ctx)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: corsHandler}

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	slog.Info("starting HTTP server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
