package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler exposes API-key management. Mount it behind RequireLevel(admin).
type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/api-keys", h.CreateKey)
	g.GET("/api-keys", h.ListKeys)
	g.DELETE("/api-keys/:id", h.RevokeKey)
	g.POST("/api-keys/:id/rotate", h.RotateKey)
}

type createKeyRequest struct {
	Name        string `json:"name" validate:"required"`
	AccessLevel string `json:"access_level"`
	TTLHours    int    `json:"ttl_hours"`
}

type createKeyResponse struct {
	*APIKey
	Key string `json:"key"` // returned exactly once
}

func (h *Handler) CreateKey(c echo.Context) error {
	var req createKeyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	level := LevelStandard
	if req.AccessLevel != "" {
		parsed, err := ParseAccessLevel(req.AccessLevel)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		level = parsed
	}
	key, raw, err := h.manager.GenerateKey(c.Request().Context(), req.Name, level,
		time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, createKeyResponse{APIKey: key, Key: raw})
}

func (h *Handler) ListKeys(c echo.Context) error {
	keys, err := h.manager.ListKeys(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"api_keys": keys,
		"total":    len(keys),
	})
}

func (h *Handler) RevokeKey(c echo.Context) error {
	if err := h.manager.RevokeKey(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "api key not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RotateKey(c echo.Context) error {
	key, raw, err := h.manager.RotateKey(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "api key not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, createKeyResponse{APIKey: key, Key: raw})
}
