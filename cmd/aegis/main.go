package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/aegis-hr/aegis-identity/internal/app"
	"github.com/aegis-hr/aegis-identity/internal/approval"
	"github.com/aegis-hr/aegis-identity/internal/audit"
	"github.com/aegis-hr/aegis-identity/internal/auth"
	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/observability"
	"github.com/aegis-hr/aegis-identity/internal/platform/cache"
	"github.com/aegis-hr/aegis-identity/internal/platform/db"
	"github.com/aegis-hr/aegis-identity/internal/principals"
	"github.com/aegis-hr/aegis-identity/internal/tenants"
	"github.com/aegis-hr/aegis-identity/internal/token"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, tenant cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	tokens, err := token.NewService(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenTTL)
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	recorder := audit.NewQueueRecorder(asynqClient, logger)

	identityRepo := identity.NewRepository(pool)
	tenantRepo := tenants.NewRepository(pool)
	resolver := tenants.NewResolver(tenantRepo, redisClient, cfg.TenantCacheTTL, logger)

	tenantService := tenants.NewService(tenantRepo, resolver, recorder)
	tenantHandler := tenants.NewHandler(logger, tenantService)

	authService := auth.NewService(identityRepo, resolver, tokens, recorder)
	authHandler := auth.NewHandler(logger, authService, metrics)

	approvalRepo := approval.NewRepository(pool)
	notifier := approval.NewQueueNotifier(asynqClient, logger)
	approvalService := approval.NewService(approvalRepo, recorder, notifier).
		WithSubjectEmailLookup(func(ctx context.Context, id uuid.UUID) (string, error) {
			principal, err := identityRepo.GetPrincipal(ctx, id)
			if err != nil {
				return "", err
			}
			return principal.Email, nil
		})
	approvalHandler := approval.NewHandler(logger, approvalService, metrics)

	principalService := principals.NewService(identityRepo, recorder)
	principalHandler := principals.NewHandler(logger, principalService)

	auditService := audit.NewService(audit.NewStore(pool))
	auditHandler := audit.NewHandler(logger, auditService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Tokens:            tokens,
		AuthHandler:       authHandler,
		ApprovalHandler:   approvalHandler,
		TenantsHandler:    tenantHandler,
		PrincipalsHandler: principalHandler,
		AuditHandler:      auditHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
