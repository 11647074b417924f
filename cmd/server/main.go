package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/application/account"
	"github.com/pocketbook/backend/internal/application/express"
	"github.com/pocketbook/backend/internal/bootstrap"
	"github.com/pocketbook/backend/internal/infrastructure/auth"
	"github.com/pocketbook/backend/internal/infrastructure/config"
	"github.com/pocketbook/backend/internal/infrastructure/logger"
	"github.com/pocketbook/backend/internal/infrastructure/telemetry"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
	"github.com/pocketbook/backend/internal/interfaces/http/handler"
	"github.com/pocketbook/backend/internal/interfaces/http/middleware"
	"github.com/pocketbook/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tc := cfg.Telemetry
	tel, err := telemetry.Setup(ctx, telemetry.Settings{
		Config: telemetry.Config{
			Enabled:           tc.Enabled,
			CollectorEndpoint: tc.CollectorEndpoint,
			Insecure:          tc.Insecure,
			SamplingRatio:     tc.SamplingRatio,
			ServiceName:       tc.ServiceName,
			ServiceVersion:    version,
		},
		Logs: tc.LogsEnabled,
		Profiling: telemetry.ProfilerConfig{
			Enabled:         tc.ProfilingServer != "",
			ServerAddress:   tc.ProfilingServer,
			ApplicationName: tc.ServiceName,
		},
	}, log)
	if err != nil {
		log.Fatal("Failed to start telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	if level, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		log = tel.Logs.Bridge(log, level)
	}

	log.Info("Starting pocketbook",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("telemetry", tc.Enabled),
	)

	backend, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open backend", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Error closing backend", zap.Error(err))
		}
	}()

	registry := backend.Registry()
	defer registry.Close()

	var tokens *auth.TokenService
	if cfg.JWT.Secret != "" {
		tokens = auth.NewTokenService(cfg.JWT)
	} else {
		log.Warn("jwt.secret is empty; bearer tokens are disabled")
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// RequestID, Tracing, Recovery, Logger, Security headers, BodyLimit
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: tc.ServiceName,
		Enabled:     tc.Enabled,
	})...)
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var guestLimiter *middleware.RateLimiter
	if cfg.Guest.RateLimit > 0 {
		guestLimiter = middleware.NewRateLimiter(cfg.Guest.RateLimit, cfg.Guest.RateWindow)
		defer guestLimiter.Close()
	}

	var db handler.Pinger
	if backend.DB != nil {
		db = backend.DB
	}

	presenter := dto.Presenter{Currency: backend.Currency}
	base := handler.NewWorkspaceHandler(registry, presenter)
	streamer := handler.Streamer{Heartbeat: cfg.HTTP.SSEHeartbeat}

	router.NewRouter(engine, router.WithAuth(middleware.Session(middleware.SessionConfig{
		Tokens:            tokens,
		Revocations:       backend.Revocations,
		AllowUserIDHeader: !cfg.App.IsProduction(),
		Logger:            log,
	}))).
		Register(handler.NewSystemHandler(cfg.App.Name, version, db)).
		Register(handler.NewGuestHandler(backend.Blobs, cfg.Guest.BlobKey, presenter,
			express.WithStamper(backend.Stamper), express.WithLogger(log)).Limit(guestLimiter)).
		RegisterProtected(handler.NewAccountHandler(account.NewService(backend.Store, backend.Dispatcher, log), registry, tokens, backend.Revocations)).
		RegisterProtected(handler.NewBudgetHandler(base, streamer)).
		RegisterProtected(handler.NewBalanceHandler(base, streamer)).
		RegisterProtected(handler.NewExpressHandler(base, streamer)).
		RegisterProtected(handler.NewReceiptHandler(base, streamer)).
		RegisterProtected(handler.NewChecklistHandler(base, streamer)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}
