/**
 * @description
 * This file contains the bank's HTTP middleware: the shared-secret check on the
 * gateway-to-bank channel and the binding of per-call metadata headers into a
 * typed CallMeta carried on the request context.
 */

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Vinit2244/Strife/internal/domain"
)

type callMetaContextKey struct{}

// InternalAuthMiddleware rejects requests that do not carry the shared internal
// API key. Only the gateway holds the key.
func InternalAuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(apiKey) == "" {
				http.Error(w, "internal API key is not configured", http.StatusInternalServerError)
				return
			}
			if r.Header.Get(domain.HeaderInternalKey) != apiKey {
				http.Error(w, "invalid internal API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CallMetaMiddleware binds the metadata headers into a typed CallMeta on the
// request context. Absent headers bind to zero values; handlers that need a
// field enforce its presence themselves.
func CallMetaMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := domain.CallMeta{
			Authorization: r.Header.Get(domain.HeaderAuthorization),
			CallerIP:      r.Header.Get(domain.HeaderCallerIP),
		}
		if raw := r.Header.Get(domain.HeaderClaimedAmount); raw != "" {
			// A malformed claim binds as zero and fails the comparison against
			// any non-zero body amount.
			meta.AmountClaimed = true
			if amount, err := decimal.NewFromString(raw); err == nil {
				meta.ClaimedAmount = amount
			}
		}
		ctx := context.WithValue(r.Context(), callMetaContextKey{}, meta)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCallMeta retrieves the bound CallMeta from the request context.
func GetCallMeta(ctx context.Context) domain.CallMeta {
	meta, _ := ctx.Value(callMetaContextKey{}).(domain.CallMeta)
	return meta
}
