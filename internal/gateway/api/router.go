/**
 * @description
 * This file sets up the HTTP router for the gateway service. Authentication,
 * bank registration and client registration are open endpoints; everything
 * else requires a valid session token.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Vinit2244/Strife/internal/gateway/app"
)

// GatewayRoutes creates and returns a new router for the gateway service.
func GatewayRoutes(h *GatewayHandlers, service *app.Service, limiter app.RateLimiter, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(CallerIPMiddleware)
	r.Use(RateLimitMiddleware(limiter, logger))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Post("/auth", h.AuthenticateHandler)
	r.Post("/banks/register", h.RegisterBankHandler)
	r.Post("/clients/register", h.RegisterClientHandler)

	// Session-holders only.
	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(service))

		r.Post("/balance", h.CheckBalanceHandler)
		r.Post("/transfer", h.TransferAmountHandler)
		r.Post("/transactions", h.TransactionHistoryHandler)
		r.Post("/admin/clients", h.AdminCreateClientHandler)
		r.Post("/admin/balance", h.AdminAddBalanceHandler)
	})

	return r
}
