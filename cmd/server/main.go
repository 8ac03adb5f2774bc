// @title                       Relay API
// @version                     1.0
// @description                 Token-gated user API and real-time broadcast chat.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cattlecloud.net/go/scope"
	"github.com/rs/zerolog"

	"github.com/relaychat/relay-api/internal/api"
	"github.com/relaychat/relay-api/internal/api/handler"
	"github.com/relaychat/relay-api/internal/core/ports"
	"github.com/relaychat/relay-api/internal/core/service"
	"github.com/relaychat/relay-api/internal/infrastructure/db/memory"
	mongostore "github.com/relaychat/relay-api/internal/infrastructure/db/mongo"
	redisstore "github.com/relaychat/relay-api/internal/infrastructure/db/redis"
	"github.com/relaychat/relay-api/internal/infrastructure/hub"
	"github.com/relaychat/relay-api/internal/infrastructure/ws"
	"github.com/relaychat/relay-api/internal/pkg/config"
	"github.com/relaychat/relay-api/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: "relay-api",
	})
	log := logger.Component("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	tokens, err := service.NewJWTService(cfg.Secret(), cfg.TokenTTL)
	if err != nil {
		return err
	}

	checks := make(map[string]handler.PingFunc)

	var users ports.UserRepository
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			if err := mongostore.Disconnect(client, cfg.ShutdownTimeout); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect failed")
			}
		}()

		repo := mongostore.NewUserRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		users = repo
		checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	default:
		log.Warn().Msg("using in-memory user store; accounts are lost on restart")
		users = memory.NewUserRepository()
	}

	var throttle ports.LoginThrottle
	if cfg.Throttle.MaxFailures > 0 {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		throttle = redisstore.NewLoginThrottle(rdb, cfg.Throttle.MaxFailures, cfg.Throttle.Window)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Each constructor tags its own component.
	base := logger.Get()
	registry := hub.NewRegistry(base)
	authService := service.NewAuthService(users, service.NewBcryptHasher(cfg.BcryptCost), tokens, throttle, base)
	chatService := service.NewChatService(registry, base)

	e := api.NewRouter(api.Dependencies{
		Auth:    authService,
		Chat:    chatService,
		Checks:  checks,
		Members: registry.Len,
		ChatOptions: handler.ChatOptions{
			Session: ws.Options{
				MaxMessageBytes: cfg.Chat.MaxMessageBytes,
				SendBuffer:      cfg.Chat.SendBuffer,
				RateBurst:       cfg.Chat.RateBurst,
				RateInterval:    cfg.Chat.RateInterval,
			},
			AllowedOrigins: cfg.Chat.AllowedOrigins,
			RequireToken:   cfg.Chat.RequireToken,
		},
		Log: logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := scope.TTL(cfg.ShutdownTimeout)
	defer cancel()

	// Hijacked websockets are invisible to http.Server.Shutdown.
	registry.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
