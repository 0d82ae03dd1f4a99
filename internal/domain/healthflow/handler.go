package healthflow

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/healthflow/rxguard/internal/domain/ddi"
	"github.com/healthflow/rxguard/internal/domain/validation"
	"github.com/healthflow/rxguard/internal/platform/webhook"
)

const maxBatchSize = 100

// Handler exposes the exchange endpoints. hooks may be nil.
type Handler struct {
	svc   *Service
	hooks *webhook.Manager
}

func NewHandler(svc *Service, hooks *webhook.Manager) *Handler {
	return &Handler{svc: svc, hooks: hooks}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/healthflow/validate", h.Validate)
	g.POST("/healthflow/validate/batch", h.ValidateBatch)
	g.GET("/healthflow/status", h.Status)
}

func (h *Handler) Validate(c echo.Context) error {
	var hf Prescription
	if err := c.Bind(&hf); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&hf); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, p, err := h.svc.ValidateSingle(c.Request().Context(), &hf)
	if err != nil {
		return mapError(err)
	}
	h.dispatchAlerts(p, result.Result)
	return c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	Prescriptions []*Prescription `json:"prescriptions" validate:"required,min=1"`
}

func (h *Handler) ValidateBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Prescriptions) > maxBatchSize {
		return echo.NewHTTPError(http.StatusBadRequest, "batch size exceeds 100 prescriptions")
	}

	batch, err := h.svc.ValidateBatch(c.Request().Context(), req.Prescriptions)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, batch)
}

func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"integration":        "healthflow",
		"enrichment_enabled": h.svc.Enabled(),
		"webhooks_enabled":   h.hooks != nil,
		"max_batch_size":     maxBatchSize,
		"validation_codes":   []string{CodeApproved, CodeWithWarnings, CodeReview},
	})
}

// dispatchAlerts mirrors the validation transport: a blocked verdict fires
// the alert webhooks on a detached context.
func (h *Handler) dispatchAlerts(p *validation.Prescription, result *validation.ValidationResult) {
	if h.hooks == nil || result.Status() != validation.StatusBlocked {
		return
	}
	reasons := result.BlockReasons()
	majors := make([]ddi.DrugInteraction, 0, len(result.Interactions))
	for _, in := range result.Interactions {
		if in.Severity == ddi.SeverityMajor {
			majors = append(majors, in)
		}
	}
	prescriptionID := result.PrescriptionID
	pharmacyID := p.PharmacyID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		h.hooks.BlockedPrescriptionAlert(ctx, prescriptionID, pharmacyID, reasons)
		for _, in := range majors {
			h.hooks.MajorInteractionAlert(ctx, prescriptionID,
				in.Drug1Name, in.Drug2Name, in.Mechanism, in.Management)
		}
	}()
}

func mapError(err error) error {
	switch {
	case errors.Is(err, validation.ErrCatalogNotLoaded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database_not_loaded")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
