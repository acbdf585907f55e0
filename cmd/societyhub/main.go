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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/societyhub/societyhub/internal/app"
	"github.com/societyhub/societyhub/internal/auth"
	"github.com/societyhub/societyhub/internal/authz"
	"github.com/societyhub/societyhub/internal/bootstrap"
	"github.com/societyhub/societyhub/internal/events"
	"github.com/societyhub/societyhub/internal/membership"
	"github.com/societyhub/societyhub/internal/notifications"
	"github.com/societyhub/societyhub/internal/observability"
	"github.com/societyhub/societyhub/internal/payments"
	"github.com/societyhub/societyhub/internal/roles"
	"github.com/societyhub/societyhub/internal/shared"
	"github.com/societyhub/societyhub/internal/users"
	"github.com/societyhub/societyhub/jobs"
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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "societyhub_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	metrics := observability.NewMetrics()

	resolver := roles.NewResolver(roles.ResolverConfig{
		Cache:  roles.NewCache(),
		Store:  roles.NewPGStore(dbpool),
		Local:  roles.NewFallbackStore(redisClient),
		Logger: logger,
		Observe: func(source roles.Source) {
			metrics.ObserveRoleResolution(string(source))
		},
	})
	guard := authz.NewGuard(resolver)
	authzMiddleware := authz.Middleware{Guard: guard, Logger: logger}

	hub := auth.NewHub()
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, hub)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	boot := bootstrap.New(bootstrap.Config{
		Resolver: resolver,
		Provider: bootstrap.ProviderFunc(func(ctx context.Context, sess *bootstrap.Session) error {
			if sess != nil {
				hub.Publish(auth.Event{Kind: auth.EventSignedOut, UserID: sess.UserID})
			}
			return nil
		}),
		Logger: logger,
	})
	bootMiddleware := &bootstrap.Middleware{Boot: boot, Sessions: sessionManager, Logger: logger}

	listener := bootstrap.NewListener(hub, boot, resolver, logger)
	go func() {
		if err := listener.Run(ctx); err != nil && err != context.Canceled {
			logger.Warn("auth listener stopped", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, resolver, auditLogger)
	usersHandler := users.NewHandler(logger, usersService, authzMiddleware)

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

	feed := notifications.NewFeed(redisClient)
	notificationsRepo := notifications.NewRepository(dbpool)
	notificationsService := notifications.NewService(notificationsRepo, feed, jobClient, usersService, logger)
	notificationsHandler := notifications.NewHandler(logger, notificationsService, feed, jobClient, authzMiddleware)

	membershipRepo := membership.NewRepository(dbpool)
	membershipService := membership.NewService(membershipRepo, notificationsService, auditLogger, logger)
	membershipHandler := membership.NewHandler(logger, membershipService, authzMiddleware)

	eventsRepo := events.NewRepository(dbpool)
	eventsHandler := events.NewHandler(logger, eventsRepo, authzMiddleware)

	paymentsRepo := payments.NewRepository(dbpool)
	paymentsHandler := payments.NewHandler(logger, paymentsRepo, authzMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		Bootstrap:            bootMiddleware,
		AuthHandler:          authHandler,
		UsersHandler:         usersHandler,
		MembershipHandler:    membershipHandler,
		EventsHandler:        eventsHandler,
		PaymentsHandler:      paymentsHandler,
		NotificationsHandler: notificationsHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
