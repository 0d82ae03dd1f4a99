package audit

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/healthflow/rxguard/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit/logs", h.ListLogs)
}

var validStatuses = map[string]bool{
	"valid":   true,
	"warning": true,
	"blocked": true,
}

func (h *Handler) ListLogs(c echo.Context) error {
	q := Query{
		PharmacyID:   c.QueryParam("pharmacy_id"),
		PrescriberID: c.QueryParam("prescriber_id"),
		Status:       c.QueryParam("status"),
	}
	if q.Status != "" && !validStatuses[q.Status] {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be valid, warning, or blocked")
	}
	var err error
	if q.From, err = parseTimeParam(c.QueryParam("from")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be RFC 3339")
	}
	if q.To, err = parseTimeParam(c.QueryParam("to")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be RFC 3339")
	}

	params := pagination.FromContext(c)
	entries, total, err := h.svc.List(c.Request().Context(), q, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, params.Limit, params.Offset))
}

func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
