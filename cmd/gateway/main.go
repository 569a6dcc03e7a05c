/**
 * @description
 * This is the main entry point for the gateway service. It wires together the
 * configuration, the bank registry and client directory, the transfer saga
 * coordinator, and the HTTP server. Redis (rate limiting) and RabbitMQ
 * (transfer lifecycle events) are optional infrastructure: when either is
 * unreachable at startup the gateway degrades gracefully and keeps serving.
 */

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Vinit2244/Strife/internal/config"
	"github.com/Vinit2244/Strife/internal/gateway/api"
	"github.com/Vinit2244/Strife/internal/gateway/app"
	"github.com/Vinit2244/Strife/internal/transfer"
	"github.com/Vinit2244/Strife/pkg/bankclient"
	"github.com/Vinit2244/Strife/pkg/rabbitmq"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("component", "gateway"))

	cfg, err := config.LoadGatewayConfig(".")
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		logger.Fatal("jwt secret must be configured", zap.String("env", "JWT_SECRET"))
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		logger.Fatal("internal api key must be configured", zap.String("env", "INTERNAL_API_KEY"))
	}
	if strings.TrimSpace(cfg.AdminPassword) == "" {
		logger.Fatal("admin password must be configured", zap.String("env", "ADMIN_PASSWORD"))
	}

	logger.Info("starting gateway service", zap.String("port", cfg.ServerPort))

	// Transfer lifecycle events go to RabbitMQ when a broker is configured.
	var producer rabbitmq.Publisher = &rabbitmq.NopPublisher{}
	if strings.TrimSpace(cfg.RabbitMQURL) != "" {
		eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq producer unavailable, transfer events disabled", zap.Error(err))
		} else {
			producer = eventProducer
			defer eventProducer.Close()
			logger.Info("rabbitmq producer connected")
		}
	}

	// Rate limiting runs on Redis when configured.
	var limiter app.RateLimiter = app.NopRateLimiter{}
	if cfg.RedisURL != "" {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			logger.Warn("redis url parse failed, rate limiting disabled", zap.Error(parseErr))
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			pingErr := redisClient.Ping(pingCtx).Err()
			cancelPing()
			if pingErr != nil {
				logger.Warn("redis ping failed, rate limiting disabled", zap.Error(pingErr))
				redisClient.Close()
			} else {
				defer redisClient.Close()
				limiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix, cfg.RateLimitPerMinute, time.Minute)
				logger.Info("redis connected", zap.Int("rate_limit_per_minute", cfg.RateLimitPerMinute))
			}
		}
	}

	coordinator := transfer.NewCoordinator(logger, producer, cfg.TransferEventExchange)
	dial := func(baseURL string) app.BankConn {
		return bankclient.NewClient(baseURL, cfg.InternalAPIKey)
	}
	service := app.NewService(logger, app.Config{
		JWTSecret:     cfg.JWTSecret,
		TokenTTL:      time.Duration(cfg.TokenTTLHours) * time.Hour,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
	}, dial, coordinator)

	handlers := api.NewGatewayHandlers(service, logger)
	router := api.GatewayRoutes(handlers, service, limiter, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()
	logger.Info("server listening", zap.String("addr", server.Addr))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown started")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
