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

	"canteen-service/cache"
	"canteen-service/config"
	"canteen-service/consumers"
	"canteen-service/database"
	"canteen-service/rabbitmq"
	"canteen-service/routes"
	"canteen-service/services"

	"github.com/gin-gonic/gin"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(); err != nil {
		slog.Error("canteen service stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load(".env")
	if cfg.AuthEnabled && cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when AUTH_ENABLED is true")
	}
	if !cfg.AuthEnabled {
		slog.Warn("order endpoints accept unauthenticated requests", "hint", "set AUTH_ENABLED=true and JWT_SECRET")
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	var catalogCache cache.CatalogCache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			slog.Warn("catalog cache disabled", "error", err)
		} else {
			defer client.Close()
			catalogCache = cache.NewRedisCache(client, cfg.CatalogTTL)
		}
	}

	var publisher services.EventPublisher
	var rmq *rabbitmq.RabbitMQ
	if cfg.RabbitMQURL != "" {
		rmq, err = rabbitmq.NewRabbitMQ(cfg)
		if err != nil {
			return err
		}
		defer rmq.Close()

		if err := rmq.SetupQueues(); err != nil {
			return err
		}
		publisher = rmq
	}

	orders := services.NewOrderService(db, publisher, services.OrderOptions{
		ItemConcurrency:      cfg.ItemConcurrency,
		EnforceCatalogTotals: cfg.EnforceCatalogTotals,
		PendingTimeout:       cfg.PendingTimeout,
	})
	catalog := services.NewCatalogService(db, catalogCache)

	if rmq != nil {
		ch, err := rmq.Conn.Channel()
		if err != nil {
			return err
		}
		defer ch.Close()
		if err := consumers.NewOrderConsumer(orders).Start(ctx, ch, cfg); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := routes.NewRouter(routes.Deps{
		DB:             db,
		Orders:         orders,
		Catalog:        catalog,
		JWTSecret:      cfg.JWTSecret,
		AuthEnabled:    cfg.AuthEnabled,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("canteen service starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
