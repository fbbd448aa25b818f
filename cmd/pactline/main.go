package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/pactline/pactline/internal/app"
	"github.com/pactline/pactline/internal/audit"
	"github.com/pactline/pactline/internal/auth"
	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/companies"
	"github.com/pactline/pactline/internal/contracts"
	"github.com/pactline/pactline/internal/observability"
	"github.com/pactline/pactline/internal/platform/cache"
	"github.com/pactline/pactline/internal/platform/db"
	"github.com/pactline/pactline/internal/shared"
	"github.com/pactline/pactline/internal/users"
	"github.com/pactline/pactline/internal/workspaces"
	"github.com/pactline/pactline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "pactline_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	companiesRepo := companies.NewRepository(dbpool)
	workspacesRepo := workspaces.NewRepository(dbpool)
	contractsRepo := contracts.NewRepository(dbpool)
	usersRepo := users.NewRepository(dbpool)

	engine := authz.NewEngine(companiesRepo, workspacesRepo, contractsRepo, contractsRepo, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	auditService := audit.NewService(audit.NewRepository(dbpool))

	authRepo := auth.NewRepository(dbpool, usersRepo)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, engine, sessionManager)

	companiesHandler := companies.NewHandler(logger, companies.NewService(companiesRepo, engine))
	workspacesHandler := workspaces.NewHandler(logger, workspaces.NewService(workspacesRepo, engine))
	contractsHandler := contracts.NewHandler(logger, contracts.NewService(contractsRepo, engine, auditService, jobClient, metrics, logger))
	usersHandler := users.NewHandler(logger, users.NewService(usersRepo, engine))
	auditHandler := audit.NewHandler(logger, auditService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		ActorLoader:       auth.ActorLoader(logger, usersRepo, workspacesRepo),
		AuthHandler:       authHandler,
		CompaniesHandler:  companiesHandler,
		WorkspacesHandler: workspacesHandler,
		ContractsHandler:  contractsHandler,
		UsersHandler:      usersHandler,
		AuditHandler:      auditHandler,
		JobsHandler:       jobsHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
