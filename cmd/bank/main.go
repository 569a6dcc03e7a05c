/**
 * @description
 * This is the main entry point for a bank service instance. It is responsible
 * for initializing all components: configuration, the in-memory ledger, the
 * application service, and the HTTP server. After the server is up, the bank
 * registers itself with the gateway in the background; the gateway may come up
 * later, so registration retries until it succeeds.
 */

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Vinit2244/Strife/internal/bank/api"
	"github.com/Vinit2244/Strife/internal/bank/app"
	"github.com/Vinit2244/Strife/internal/config"
	"github.com/Vinit2244/Strife/internal/ledger"
	"github.com/Vinit2244/Strife/pkg/gatewayclient"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("component", "bank"))

	cfg, err := config.LoadBankConfig(".")
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		logger.Fatal("internal api key must be configured", zap.String("env", "INTERNAL_API_KEY"))
	}

	logger.Info("starting bank service", zap.String("port", cfg.ServerPort))

	service := app.NewService(logger, ledger.New())
	handlers := api.NewBankHandlers(service, logger)
	router := api.BankRoutes(handlers, cfg.InternalAPIKey)

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

	// Register with the gateway in the background so a late gateway does not
	// block local startup.
	registerCtx, cancelRegister := context.WithCancel(context.Background())
	defer cancelRegister()
	go func() {
		port, err := strconv.Atoi(cfg.ServerPort)
		if err != nil {
			logger.Error("invalid bank port, skipping gateway registration", zap.String("port", cfg.ServerPort))
			return
		}
		gateway := gatewayclient.NewClient(cfg.GatewayURL)
		if err := service.RegisterWithGateway(registerCtx, gateway, cfg.AdvertisedHost, port); err != nil {
			logger.Error("gateway registration abandoned", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown started")
	cancelRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
