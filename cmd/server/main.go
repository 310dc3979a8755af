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

	"github.com/rs/zerolog"

	"github.com/JosueBrenes/VolunChain-Backend/internal/adapters/http/handlers"
	"github.com/JosueBrenes/VolunChain-Backend/internal/adapters/http/router"
	"github.com/JosueBrenes/VolunChain-Backend/internal/adapters/storage/memory"
	"github.com/JosueBrenes/VolunChain-Backend/internal/adapters/storage/postgres"
	redisstorage "github.com/JosueBrenes/VolunChain-Backend/internal/adapters/storage/redis"
	"github.com/JosueBrenes/VolunChain-Backend/internal/adapters/token"
	"github.com/JosueBrenes/VolunChain-Backend/internal/config"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/services"
	"github.com/JosueBrenes/VolunChain-Backend/internal/logger"
)

const janitorInterval = time.Minute

type counterBackend interface {
	ports.CounterStore
	handlers.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := initStorage(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init storage")
	}
	defer closeStorage()

	users, usersPinger, closeUsers, err := initUsers(ctx, cfg.Users, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init user repository")
	}
	defer closeUsers()

	jwt, err := token.NewJWT(cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token verifier")
	}

	limiter, err := services.NewRateLimiterService(storage, services.Config{
		DefaultRule: cfg.RateLimiter.DefaultRule,
		ScopeRules:  cfg.RateLimiter.ScopeRules(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create limiter")
	}

	auth, err := services.NewAuthService(jwt, users)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create auth service")
	}

	health := map[string]handlers.Pinger{"counterStore": storage}
	if usersPinger != nil {
		health["users"] = usersPinger
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router.New(router.Deps{
			Limiter:     limiter,
			Auth:        auth,
			RouteLimits: cfg.RateLimiter.Routes,
			Health:      health,
			Logger:      log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("storage", cfg.Storage.Type).
			Str("users", cfg.Users.Type).
			Int("routeLimits", len(cfg.RateLimiter.Routes)).
			Msg("server listening")
		err := srv.ListenAndServe()
		if err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func initStorage(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (counterBackend, func(), error) {
	switch cfg.Type {
	case "redis":
		redisCfg := redisstorage.Config{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		storage, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return storage, func() {
			if err := storage.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close redis storage")
			}
		}, nil
	case "memory":
		log.Warn().Msg("using in-memory counter store; limits are not shared across replicas")
		storage := memory.NewCounterStore(nil)
		storage.StartJanitor(ctx, janitorInterval)
		return storage, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func initUsers(ctx context.Context, cfg config.UsersConfig, log zerolog.Logger) (ports.UserRepository, handlers.Pinger, func(), error) {
	switch cfg.Type {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewUserRepository(pool), pool, pool.Close, nil
	case "memory":
		log.Warn().Int("seeded", len(cfg.Seed)).Msg("using in-memory user repository")
		return memory.NewUserRepository(cfg.Seed...), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported user store type: %s", cfg.Type)
	}
}
