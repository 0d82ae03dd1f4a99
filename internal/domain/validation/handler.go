package validation

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/healthflow/rxguard/internal/domain/clinical"
	"github.com/healthflow/rxguard/internal/domain/ddi"
	"github.com/healthflow/rxguard/internal/domain/medication"
	"github.com/healthflow/rxguard/internal/platform/telemetry"
	"github.com/healthflow/rxguard/internal/platform/webhook"
)

// Auditor receives completed validations for the audit trail. p is nil for
// quick checks that never carried a full prescription.
type Auditor interface {
	RecordValidation(ctx context.Context, p *Prescription, result *ValidationResult)
}

// Handler binds the validation engine to the transport. Event dispatch is
// its job, not the pipeline's: after a blocked verdict it fires the alert
// webhooks off the request path.
type Handler struct {
	svc     *Service
	hooks   *webhook.Manager
	metrics *telemetry.Metrics
	auditor Auditor

	ddiRules    int
	dosingRules int
}

// WithAuditor attaches an audit trail sink.
func (h *Handler) WithAuditor(a Auditor) *Handler {
	h.auditor = a
	return h
}

// NewHandler wires the engine to its transport collaborators. hooks and
// metrics may be nil; the handler degrades to validation-only.
func NewHandler(svc *Service, hooks *webhook.Manager, metrics *telemetry.Metrics, ddiRules, dosingRules int) *Handler {
	return &Handler{svc: svc, hooks: hooks, metrics: metrics, ddiRules: ddiRules, dosingRules: dosingRules}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/validate/prescription", h.ValidatePrescription)
	api.POST("/validate/quick", h.ValidateQuick)
	api.GET("/validate/interaction", h.ValidateInteraction)
	api.GET("/statistics", h.Statistics)
}

// RegisterHealth mounts the unauthenticated health probe.
func (h *Handler) RegisterHealth(e *echo.Echo) {
	e.GET("/health", h.Health)
}

func (h *Handler) Health(c echo.Context) error {
	status := "ok"
	if !h.svc.Catalog().Loaded() {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":             status,
		"medications_loaded": h.svc.Catalog().Count(),
		"version":            Version,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) ValidatePrescription(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.Validate(&p)
	if err != nil {
		return mapServiceError(err)
	}
	h.record(result)
	if h.auditor != nil {
		h.auditor.RecordValidation(c.Request().Context(), &p, result)
	}
	h.dispatchAlerts(&p, result)
	return c.JSON(http.StatusOK, result)
}

type quickRequest struct {
	MedicationIDs []int                    `json:"medication_ids" validate:"required,min=1"`
	Patient       *clinical.PatientContext `json:"patient"`
}

func (h *Handler) ValidateQuick(c echo.Context) error {
	var req quickRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.ValidateList(req.MedicationIDs, req.Patient)
	if err != nil {
		return mapServiceError(err)
	}
	h.record(result)
	if h.auditor != nil {
		h.auditor.RecordValidation(c.Request().Context(), nil, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ValidateInteraction(c echo.Context) error {
	id1, err1 := strconv.Atoi(c.QueryParam("medication1_id"))
	id2, err2 := strconv.Atoi(c.QueryParam("medication2_id"))
	if err1 != nil || err2 != nil {
		return echo.NewHTTPError(http.StatusBadRequest,
			"medication1_id and medication2_id must be integers")
	}
	interactions, err := h.svc.ValidatePair(id1, id2)
	if err != nil {
		return mapServiceError(err)
	}
	if interactions == nil {
		interactions = []ddi.DrugInteraction{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"interactions": interactions,
		"total":        len(interactions),
	})
}

func (h *Handler) Statistics(c echo.Context) error {
	if !h.svc.Catalog().Loaded() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database_not_loaded")
	}
	features := map[string]interface{}{
		"ddi_rules":        h.ddiRules,
		"dosing_rules":     h.dosingRules,
		"ensemble_enabled": h.svc.Ensemble() != nil,
		"webhooks_enabled": h.hooks != nil,
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"catalog":  h.svc.Catalog().Statistics(),
		"features": features,
		"version":  Version,
	})
}

// dispatchAlerts fires the blocked-prescription and major-interaction
// events. Delivery runs on its own goroutine with a fresh context: the HTTP
// response must not wait on subscriber retries, and the request context
// dies with the response.
func (h *Handler) dispatchAlerts(p *Prescription, result *ValidationResult) {
	if h.hooks == nil || result.Status() != StatusBlocked {
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
		records := h.hooks.BlockedPrescriptionAlert(ctx, prescriptionID, pharmacyID, reasons)
		for _, in := range majors {
			records = append(records, h.hooks.MajorInteractionAlert(ctx,
				prescriptionID, in.Drug1Name, in.Drug2Name, in.Mechanism, in.Management)...)
		}
		if h.metrics != nil {
			for _, rec := range records {
				h.metrics.RecordWebhookDelivery(string(rec.Status))
			}
		}
	}()
}

func (h *Handler) record(result *ValidationResult) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordValidation(string(result.Status()),
		time.Duration(result.ValidationTimeMs*float64(time.Millisecond)))
	for _, in := range result.Interactions {
		h.metrics.RecordInteraction(string(in.Severity))
	}
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, ErrCatalogNotLoaded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database_not_loaded")
	case errors.Is(err, ErrNilPrescription):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, medication.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
