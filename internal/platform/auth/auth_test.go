package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func newTestManager() *Manager {
	return NewManager(NewInMemoryStore(), "master-key-123")
}

// ===================== Key lifecycle =====================

func TestGenerateAndValidateKey(t *testing.T) {
	m := newTestManager()

	key, raw, err := m.GenerateKey(context.Background(), "pharmacy-a", LevelStandard, 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(raw, keyPrefix) {
		t.Errorf("raw key missing prefix: %s", raw)
	}
	if key.KeyHash == raw {
		t.Error("raw key stored instead of hash")
	}

	got, err := m.ValidateKey(context.Background(), raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.ID != key.ID || got.Level != LevelStandard {
		t.Errorf("validated wrong key: %+v", got)
	}
	if got.LastUsedAt == nil {
		t.Error("expected last_used_at set on validation")
	}
}

func TestValidateKeyRejectsUnknownAndRevoked(t *testing.T) {
	m := newTestManager()

	if _, err := m.ValidateKey(context.Background(), "rxg_nope"); err != ErrInvalidKey {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}

	key, raw, _ := m.GenerateKey(context.Background(), "temp", LevelFull, 0)
	if err := m.RevokeKey(context.Background(), key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := m.ValidateKey(context.Background(), raw); err != ErrKeyRevoked {
		t.Errorf("expected ErrKeyRevoked, got %v", err)
	}
}

func TestValidateKeyExpiry(t *testing.T) {
	m := newTestManager()
	key, raw, _ := m.GenerateKey(context.Background(), "shortlived", LevelReadonly, time.Nanosecond)
	time.Sleep(2 * time.Millisecond)
	if _, err := m.ValidateKey(context.Background(), raw); err != ErrKeyExpired {
		t.Errorf("expected ErrKeyExpired for %s, got %v", key.ID, err)
	}
}

func TestMasterKeyIsAdmin(t *testing.T) {
	m := newTestManager()
	key, err := m.ValidateKey(context.Background(), "master-key-123")
	if err != nil {
		t.Fatalf("master key rejected: %v", err)
	}
	if key.Level != LevelAdmin {
		t.Errorf("expected admin level, got %s", key.Level)
	}
}

func TestRotateKeyInvalidatesOldMaterial(t *testing.T) {
	m := newTestManager()
	key, oldRaw, _ := m.GenerateKey(context.Background(), "rotate-me", LevelFull, 0)

	rotated, newRaw, err := m.RotateKey(context.Background(), key.ID)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.ID != key.ID {
		t.Errorf("rotation changed the id")
	}
	if newRaw == oldRaw {
		t.Error("rotation returned the same material")
	}
	if _, err := m.ValidateKey(context.Background(), oldRaw); err == nil {
		t.Error("old material still validates after rotation")
	}
	if _, err := m.ValidateKey(context.Background(), newRaw); err != nil {
		t.Errorf("new material rejected: %v", err)
	}
}

// ===================== Access levels =====================

func TestAccessLevelOrdering(t *testing.T) {
	cases := []struct {
		have, need AccessLevel
		want       bool
	}{
		{LevelAdmin, LevelAdmin, true},
		{LevelAdmin, LevelReadonly, true},
		{LevelFull, LevelAdmin, false},
		{LevelStandard, LevelStandard, true},
		{LevelReadonly, LevelStandard, false},
	}
	for _, tc := range cases {
		if got := tc.have.Allows(tc.need); got != tc.want {
			t.Errorf("%s allows %s: got %v, want %v", tc.have, tc.need, got, tc.want)
		}
	}
}

func TestParseAccessLevel(t *testing.T) {
	if _, err := ParseAccessLevel("root"); err == nil {
		t.Error("expected error for unknown level")
	}
	level, err := ParseAccessLevel(" Admin ")
	if err != nil || level != LevelAdmin {
		t.Errorf("expected admin, got %v %v", level, err)
	}
}

// ===================== Middleware =====================

func callThrough(t *testing.T, mw echo.MiddlewareFunc, decorate func(*http.Request)) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return handler(c)
}

func TestMiddlewareHeaderAndBearer(t *testing.T) {
	m := newTestManager()
	_, raw, _ := m.GenerateKey(context.Background(), "k", LevelStandard, 0)
	mw := Middleware(m)

	if err := callThrough(t, mw, func(r *http.Request) {
		r.Header.Set("X-API-Key", raw)
	}); err != nil {
		t.Errorf("header auth failed: %v", err)
	}
	if err := callThrough(t, mw, func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
	}); err != nil {
		t.Errorf("bearer auth failed: %v", err)
	}
	err := callThrough(t, mw, nil)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %v", err)
	}
}

func TestMiddlewareDisabledGrantsAdmin(t *testing.T) {
	m := newTestManager()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	var got AccessLevel
	handler := Middleware(m, WithDisabled(true))(func(c echo.Context) error {
		got, _ = c.Get(ContextKeyAccessLevel).(AccessLevel)
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatalf("disabled middleware errored: %v", err)
	}
	if got != LevelAdmin {
		t.Errorf("expected admin in disabled mode, got %s", got)
	}
}

func TestMiddlewareJWT(t *testing.T) {
	m := newTestManager()
	issuer := NewTokenIssuer("jwt-secret", time.Hour)
	token, err := issuer.IssueToken("integration-1", LevelFull)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	mw := Middleware(m, WithTokenIssuer(issuer))
	if err := callThrough(t, mw, func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}); err != nil {
		t.Errorf("jwt auth failed: %v", err)
	}

	wrong := NewTokenIssuer("other-secret", time.Hour)
	bad, _ := wrong.IssueToken("x", LevelAdmin)
	err = callThrough(t, mw, func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+bad)
	})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong-secret token, got %v", err)
	}
}

func TestRequireLevel(t *testing.T) {
	e := echo.New()

	run := func(level interface{}) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		if level != nil {
			c.Set(ContextKeyAccessLevel, level)
		}
		handler := RequireLevel(LevelAdmin)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		return handler(c)
	}

	if err := run(LevelAdmin); err != nil {
		t.Errorf("admin rejected: %v", err)
	}
	err := run(LevelStandard)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403 for standard, got %v", err)
	}
	err = run(nil)
	he, ok = err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 unauthenticated, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, err := issuer.IssueToken("svc-1", LevelReadonly)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "svc-1" || claims.Level != LevelReadonly {
		t.Errorf("unexpected claims: %+v", claims)
	}
}
