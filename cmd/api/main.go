package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/gemforge/backend/internal/auth"
	"github.com/gemforge/backend/internal/config"
	"github.com/gemforge/backend/internal/dashboard"
	"github.com/gemforge/backend/internal/execution"
	"github.com/gemforge/backend/internal/handlers"
	"github.com/gemforge/backend/internal/jobs"
	"github.com/gemforge/backend/internal/ledger"
	"github.com/gemforge/backend/internal/middleware"
	"github.com/gemforge/backend/internal/payments"
	"github.com/gemforge/backend/internal/repository"
	"github.com/gemforge/backend/internal/router"
	"github.com/gemforge/backend/internal/services"
	"github.com/gemforge/backend/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		slog.Error("Schema migrations failed", "dir", cfg.MigrationsDir, "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, token cache will fall through to JWT verification", "addr", cfg.RedisAddr, "error", err)
		}
	}

	// Repositories
	accountRepo := repository.NewAccountRepo(pool)
	imageRepo := repository.NewImageRepo(pool)
	paymentRepo := repository.NewPaymentRepo(pool)
	jobsRepo := jobs.NewRepository(pool)

	// Ledger
	ledgerRepo := ledger.NewRepository(pool)
	ledgerSvc := ledger.NewService(ledgerRepo, jobsRepo)

	// Jobs: insert func is set after River client is created (breaks init cycle)
	var insertMu sync.Mutex
	var insertFn jobs.InsertRenderTxFunc
	insertRender := func(ctx context.Context, tx pgx.Tx, args execution.RenderJobArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			return errors.New("river insert not wired")
		}
		return fn(ctx, tx, args)
	}
	jobsSvc := jobs.NewService(jobsRepo, imageRepo, ledgerSvc, insertRender, logger)

	// Render worker (implements JobService via jobsSvc)
	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewRenderWorker(jobsSvc, cfg.GeneratorURL, cfg.GeneratorAPIKey, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args execution.RenderJobArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	validator, err := jobs.NewValidator()
	if err != nil {
		slog.Error("Failed to compile job schemas", "error", err)
		os.Exit(1)
	}

	// Auth
	authSvc := auth.NewService(accountRepo, cfg.JWTSecret)
	tokenCache := auth.NewTokenCache(authSvc, rdb, cfg.TokenCacheTTL, logger)

	// Payments are disabled unless all PayOS credentials are configured.
	var linkProvider payments.LinkProvider
	if cfg.PaymentsEnabled() {
		linkProvider = payments.NewPayOSClient(cfg.PayOSBaseURL, cfg.PayOSClientID, cfg.PayOSAPIKey, cfg.PayOSChecksumKey)
	} else {
		slog.Warn("PayOS credentials not set, payment routes will answer 503")
	}
	paymentSvc := payments.NewService(paymentRepo, linkProvider, ledgerSvc, cfg.PaymentReturnURL, cfg.PaymentCancelURL, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	go limiter.Run(ctx)

	api := router.New(router.Handlers{
		Auth:      auth.NewHandler(authSvc, logger),
		Dashboard: dashboard.NewHandler(accountRepo, ledgerSvc, imageRepo, logger),
		Jobs:      &handlers.JobHandler{Jobs: jobsSvc, Validator: validator, Logger: logger},
		Rewards: &handlers.RewardHandler{
			CheckIns: services.NewCheckInService(accountRepo, ledgerSvc, cfg.CheckInLocation, logger),
			Shares:   services.NewShareService(imageRepo, accountRepo, ledgerSvc),
			Logger:   logger,
		},
		Admin:    &handlers.AdminHandler{Admin: services.NewAdminService(accountRepo, ledgerSvc, logger), Logger: logger},
		Payments: &handlers.PaymentHandler{Payments: paymentSvc, Logger: logger},
	}, router.Middleware{
		Auth:      middleware.BearerAuth(tokenCache),
		Admin:     middleware.RequireAdmin(accountRepo, logger),
		RateLimit: limiter.Middleware,
	})

	mux := http.NewServeMux()
	registerOpsRoutes(mux, pool)
	mux.Handle("/", middleware.Metrics(api))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}).Handler(mux)

	// Start River client (processes jobs)
	if err := riverClient.Start(ctx); err != nil {
		slog.Error("River client failed to start", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown", "error", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River stop", "error", err)
	}
}

// runMigrations applies the embedded schema, or the SQL files in dir when set.
// golang-migrate's pgx v5 driver registers the pgx5:// scheme.
func runMigrations(databaseURL, dir string) error {
	dsn := databaseURL
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			dsn = "pgx5://" + strings.TrimPrefix(dsn, prefix)
			break
		}
	}
	var m *migrate.Migrate
	if dir != "" {
		var err error
		if m, err = migrate.New("file://"+dir, dsn); err != nil {
			return err
		}
	} else {
		src, err := iofs.New(migrations.FS, ".")
		if err != nil {
			return err
		}
		if m, err = migrate.NewWithSourceInstance("iofs", src, dsn); err != nil {
			return err
		}
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	slog.Info("Schema migrations applied", "override_dir", dir)
	return nil
}
