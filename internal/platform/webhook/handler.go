package webhook

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler exposes subscription management and the delivery history over
// echo routes.
type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/webhooks", h.Register)
	g.GET("/webhooks", h.List)
	g.GET("/webhooks/deliveries", h.DeliveryHistory)
	g.GET("/webhooks/:id", h.Get)
	g.PUT("/webhooks/:id", h.Update)
	g.DELETE("/webhooks/:id", h.Delete)
	g.POST("/webhooks/:id/test", h.Test)
}

type registerRequest struct {
	Name              string            `json:"name" validate:"required"`
	URL               string            `json:"url" validate:"required,url"`
	Secret            string            `json:"secret"`
	Events            []string          `json:"events"`
	RetryCount        int               `json:"retry_count"`
	RetryDelaySeconds int               `json:"retry_delay_seconds"`
	Headers           map[string]string `json:"headers"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sub, err := h.manager.Register(c.Request().Context(), &Subscription{
		Name:              req.Name,
		URL:               req.URL,
		Secret:            req.Secret,
		Events:            req.Events,
		RetryCount:        req.RetryCount,
		RetryDelaySeconds: req.RetryDelaySeconds,
		Headers:           req.Headers,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sub)
}

func (h *Handler) List(c echo.Context) error {
	subs, err := h.manager.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// Secrets stay server-side.
	for _, sub := range subs {
		sub.Secret = ""
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"webhooks": subs,
		"total":    len(subs),
	})
}

func (h *Handler) Get(c echo.Context) error {
	sub, err := h.manager.store.GetSubscription(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "webhook not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	sub.Secret = ""
	return c.JSON(http.StatusOK, sub)
}

func (h *Handler) Update(c echo.Context) error {
	var patch SubscriptionPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sub, err := h.manager.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "webhook not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sub.Secret = ""
	return c.JSON(http.StatusOK, sub)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.manager.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "webhook not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Test(c echo.Context) error {
	record, err := h.manager.Test(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "webhook not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, record)
}

func (h *Handler) DeliveryHistory(c echo.Context) error {
	filter := DeliveryFilter{
		SubscriptionID: c.QueryParam("webhook_id"),
		Event:          c.QueryParam("event"),
	}
	if s := c.QueryParam("status"); s != "" {
		status, err := ParseDeliveryStatus(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		filter.Status = status
	}
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	records, err := h.manager.DeliveryHistory(c.Request().Context(), filter, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"deliveries": records,
		"total":      len(records),
	})
}
