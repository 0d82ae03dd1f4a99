package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Context keys the middleware sets for downstream handlers.
const (
	ContextKeyAPIKey      = "api_key"
	ContextKeyAccessLevel = "access_level"
)

// MiddlewareOption configures the auth middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	disabled bool
	issuer   *TokenIssuer
	skipper  func(c echo.Context) bool
}

// WithDisabled grants admin to every request. Development only.
func WithDisabled(disabled bool) MiddlewareOption {
	return func(cfg *middlewareConfig) { cfg.disabled = disabled }
}

// WithTokenIssuer lets bearer JWTs from the issuer authenticate alongside
// API keys.
func WithTokenIssuer(issuer *TokenIssuer) MiddlewareOption {
	return func(cfg *middlewareConfig) { cfg.issuer = issuer }
}

// WithSkipper exempts matching requests (health probes, metrics).
func WithSkipper(skipper func(c echo.Context) bool) MiddlewareOption {
	return func(cfg *middlewareConfig) { cfg.skipper = skipper }
}

// Middleware authenticates requests via the X-API-Key header, an api_key
// query parameter, or an Authorization bearer value (raw key or JWT).
func Middleware(manager *Manager, opts ...MiddlewareOption) echo.MiddlewareFunc {
	cfg := &middlewareConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.skipper != nil && cfg.skipper(c) {
				return next(c)
			}
			if cfg.disabled {
				c.Set(ContextKeyAccessLevel, LevelAdmin)
				return next(c)
			}

			raw := extractCredential(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing API key")
			}

			// Bearer JWTs carry the level in their claims.
			if cfg.issuer != nil && !strings.HasPrefix(raw, keyPrefix) {
				if claims, err := cfg.issuer.ParseToken(raw); err == nil {
					c.Set(ContextKeyAccessLevel, claims.Level)
					return next(c)
				}
			}

			key, err := manager.ValidateKey(c.Request().Context(), raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid API key")
			}
			c.Set(ContextKeyAPIKey, key)
			c.Set(ContextKeyAccessLevel, key.Level)
			return next(c)
		}
	}
}

func extractCredential(c echo.Context) string {
	if v := c.Request().Header.Get("X-API-Key"); v != "" {
		return v
	}
	if authz := c.Request().Header.Get(echo.HeaderAuthorization); authz != "" {
		if strings.HasPrefix(authz, "Bearer ") {
			return strings.TrimPrefix(authz, "Bearer ")
		}
	}
	return c.QueryParam("api_key")
}

// RequireLevel rejects requests whose credential does not cover the
// required access level. Must run after Middleware.
func RequireLevel(required AccessLevel) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			level, ok := c.Get(ContextKeyAccessLevel).(AccessLevel)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if !level.Allows(required) {
				return echo.NewHTTPError(http.StatusForbidden,
					"requires "+string(required)+" access")
			}
			return next(c)
		}
	}
}
