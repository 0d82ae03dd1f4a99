package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthflow/rxguard/internal/platform/auth"
)

// AuditEntry captures who called which part of the validation API, from
// where, and with what outcome.
type AuditEntry struct {
	Timestamp   time.Time
	RequestID   string
	KeyID       string
	KeyName     string
	AccessLevel string
	Action      string // read, create, update, delete
	Resource    string
	Path        string
	Method      string
	IPAddress   string
	UserAgent   string
	StatusCode  int
}

// AuditRecorder persists audit entries. The middleware falls back to
// structured logging when no recorder is provided, so the access trail
// survives even without a database.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit returns middleware that records every call under /api/v1/ after the
// handler runs, so the response status is part of the entry. Credential
// identity comes from the auth middleware's context keys.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				Action:     httpMethodToAction(req.Method),
				Resource:   extractResource(path),
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			if key, ok := c.Get(auth.ContextKeyAPIKey).(*auth.APIKey); ok && key != nil {
				entry.KeyID = key.ID
				entry.KeyName = key.Name
			}
			if level, ok := c.Get(auth.ContextKeyAccessLevel).(auth.AccessLevel); ok {
				entry.AccessLevel = level.String()
			}

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "api_access").
				Str("request_id", entry.RequestID).
				Str("key_id", entry.KeyID).
				Str("key_name", entry.KeyName).
				Str("access_level", entry.AccessLevel).
				Str("action", entry.Action).
				Str("resource", entry.Resource).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("api_access")

			return err
		}
	}
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractResource returns the first path segment after /api/v1/, e.g.
// "validate" for /api/v1/validate/prescription.
func extractResource(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}
