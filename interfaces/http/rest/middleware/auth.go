package middleware

import (
	"errors"
	"net/http"
	"strings"

	"prefill/pkg/auth"
	pkgerrors "prefill/pkg/errors"

	"go.uber.org/zap"
)

// Headers the Lambda entrypoint sets from the API Gateway JWT authorizer
const (
	HeaderGatewayAuthorized = "X-API-Gateway-Authorized"
	HeaderUserID            = "X-User-ID"
	HeaderTenantID          = "X-Tenant-ID"
	HeaderUserEmail         = "X-User-Email"
	HeaderUserRoles         = "X-User-Roles"
)

// Authenticate validates bearer tokens with the given validator. A nil
// validator disables authentication, which is only allowed outside production.
func Authenticate(validator *auth.JWTValidator, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Missing authentication token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", getClientIP(r)),
					zap.String("path", r.URL.Path),
				)

				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Token has expired"))
				case errors.Is(err, auth.ErrInvalidSignature):
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Invalid token signature"))
				default:
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Invalid token"))
				}
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID:   claims.UserID,
				TenantID: claims.TenantID,
				Email:    claims.Email,
				Roles:    claims.Roles,
			})

			logger.Debug("Request authenticated",
				zap.String("user_id", claims.UserID),
				zap.String("tenant_id", claims.TenantID),
				zap.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateForLambda trusts the caller headers the Lambda entrypoint derives
// from the API Gateway authorizer. Requests without them are rejected.
func AuthenticateForLambda(errs *pkgerrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(HeaderGatewayAuthorized) != "true" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Request not authorized by API Gateway"))
				return
			}

			userID := r.Header.Get(HeaderUserID)
			if userID == "" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Missing user context from API Gateway"))
				return
			}

			roles := []string{"authenticated"}
			if v := r.Header.Get(HeaderUserRoles); v != "" {
				roles = strings.Split(v, ",")
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID:   userID,
				TenantID: r.Header.Get(HeaderTenantID),
				Email:    r.Header.Get(HeaderUserEmail),
				Roles:    roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads the token from the Authorization header or the auth cookie
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return authHeader
	}

	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// getClientIP extracts the client IP address
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
