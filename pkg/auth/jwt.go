package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken     = errors.New("missing token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrNoUserContext    = errors.New("no user in context")
)

// JWTConfig configures token validation
type JWTConfig struct {
	SigningMethod string
	SecretKey     string
	Issuer        string
	Audience      []string
}

// Claims are the claims the API reads from a bearer token. UserID shadows the
// registered "sub" claim.
type Claims struct {
	UserID   string   `json:"sub"`
	TenantID string   `json:"tenant_id"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator validates HMAC signed tokens
type JWTValidator struct {
	config JWTConfig
	parser *jwt.Parser
}

// NewJWTValidator creates a validator. Only HMAC signing methods are supported.
func NewJWTValidator(cfg JWTConfig) (*JWTValidator, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("jwt secret key is required")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = jwt.SigningMethodHS256.Alg()
	}
	if _, ok := jwt.GetSigningMethod(cfg.SigningMethod).(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{cfg.SigningMethod}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	for _, aud := range cfg.Audience {
		opts = append(opts, jwt.WithAudience(aud))
	}

	return &JWTValidator{config: cfg, parser: jwt.NewParser(opts...)}, nil
}

// ValidateToken parses and verifies a token
func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(v.config.SecretKey), nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return claims, nil
}

// IssueToken signs a token for the given claims. It is used by tests and local tooling.
func (v *JWTValidator) IssueToken(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if v.config.Issuer != "" {
		claims.Issuer = v.config.Issuer
	}
	if len(v.config.Audience) > 0 {
		claims.Audience = v.config.Audience
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(v.config.SigningMethod), claims)
	return token.SignedString([]byte(v.config.SecretKey))
}

// UserContext is the authenticated caller attached to a request
type UserContext struct {
	UserID   string
	TenantID string
	Email    string
	Roles    []string
}

type userContextKey struct{}

// SetUserInContext attaches the caller to a context
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUserFromContext returns the caller attached by the auth middleware
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey{}).(*UserContext)
	if !ok || user == nil {
		return nil, ErrNoUserContext
	}
	return user, nil
}
