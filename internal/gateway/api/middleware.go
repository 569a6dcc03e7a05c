/**
 * @description
 * This file contains custom middleware for the gateway router: session token
 * validation, caller IP binding, and per-caller rate limiting.
 *
 * The caller's IP is taken from the X-Caller-IP header when present (the CLI
 * sets it) and falls back to the connection's remote address. A session token
 * presented from a different IP than it was issued to is rejected.
 */

package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Vinit2244/Strife/internal/domain"
	"github.com/Vinit2244/Strife/internal/gateway/app"
)

type sessionContextKey struct{}
type callerIPContextKey struct{}

func callerIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(domain.HeaderCallerIP)); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeEnvelope(w http.ResponseWriter, status int, env domain.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// CallerIPMiddleware binds the caller's IP into the request context.
func CallerIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), callerIPContextKey{}, callerIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCallerIP retrieves the bound caller IP from the request context.
func GetCallerIP(ctx context.Context) string {
	ip, _ := ctx.Value(callerIPContextKey{}).(string)
	return ip
}

// SessionMiddleware validates the bearer token and binds the decoded session
// into the request context.
func SessionMiddleware(service *app.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get(domain.HeaderAuthorization)
			if authHeader == "" {
				writeEnvelope(w, http.StatusUnauthorized, domain.Failure("Authorization header required"))
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeEnvelope(w, http.StatusUnauthorized, domain.Failure("Invalid Authorization header format"))
				return
			}

			session, err := service.ParseToken(tokenString, GetCallerIP(r.Context()))
			if err != nil {
				writeEnvelope(w, http.StatusUnauthorized, domain.Failure("Invalid or expired session"))
				return
			}
			ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the authenticated session from the request context.
func GetSession(ctx context.Context) (*app.Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*app.Session)
	return session, ok
}

// RateLimitMiddleware counts one request per caller and rejects the overflow.
// A limiter error admits the request; limiting is protective, not load-bearing.
func RateLimitMiddleware(limiter app.RateLimiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := GetCallerIP(r.Context())
			if session, ok := GetSession(r.Context()); ok {
				subject = session.Username
			}

			_, retryAfter, err := limiter.Consume(r.Context(), "api", subject)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeEnvelope(w, http.StatusTooManyRequests, domain.Failure("Too many requests, slow down"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
