/**
 * @description
 * This file sets up the HTTP router for the bank service. Every endpoint sits
 * behind the internal-key check: only the gateway may talk to a bank directly.
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
)

// BankRoutes creates and returns a new router for the bank service.
func BankRoutes(h *BankHandlers, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalAPIKey))
		r.Use(CallMetaMiddleware)

		r.Post("/internal/clients", h.CreateNewClientHandler)
		r.Post("/internal/clients/verify", h.VerifyClientInfoHandler)
		r.Post("/internal/clients/exists", h.CheckClientExistHandler)
		r.Post("/internal/balance", h.FetchBalanceHandler)
		r.Post("/internal/balance/add", h.AddBalanceHandler)
		r.Post("/internal/credit", h.CreditHandler)
		r.Post("/internal/debit", h.DebitHandler)
		r.Post("/internal/transactions", h.GetTransactionsHandler)
	})

	return r
}
