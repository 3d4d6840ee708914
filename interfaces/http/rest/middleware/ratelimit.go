package middleware

import (
	"net/http"

	"prefill/pkg/auth"
	pkgerrors "prefill/pkg/errors"

	"go.uber.org/zap"
)

// RateLimit rejects requests once the client IP exhausts its budget.
// Limiter errors let the request through.
func RateLimit(limiter auth.RateLimiter, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)

			allowed, err := limiter.Allow(r.Context(), clientIP)
			if err != nil {
				logger.Error("Rate limiter error", zap.Error(err))
			} else if !allowed {
				logger.Warn("Rate limit exceeded",
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)
				errs.HandleStatus(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
