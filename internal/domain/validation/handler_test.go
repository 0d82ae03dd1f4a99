package validation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthflow/rxguard/internal/domain/ddi"
	"github.com/healthflow/rxguard/internal/domain/dosing"
	"github.com/healthflow/rxguard/internal/domain/medication"
	"github.com/healthflow/rxguard/internal/platform/webhook"
)

type echoValidator struct{ v *validator.Validate }

func (ev *echoValidator) Validate(i interface{}) error { return ev.v.Struct(i) }

func newHandlerFixture(t *testing.T, hooks *webhook.Manager) (*Handler, *echo.Echo) {
	t.Helper()
	svc := newTestService(t)
	h := NewHandler(svc, hooks, nil, 30, 19)
	e := echo.New()
	e.Validator = &echoValidator{v: validator.New()}
	return h, e
}

func TestHandler_ValidatePrescription(t *testing.T) {
	h, e := newHandlerFixture(t, nil)

	body := `{"id":"RX-1","patient":{"age":75,"sex":"M"},"items":[{"medication_id":1},{"medication_id":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.ValidatePrescription(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.IsValid {
		t.Error("warfarin + aspirin must not validate")
	}
	if !result.HasMajorInteractions {
		t.Error("expected has_major_interactions on the wire")
	}
	if result.PrescriptionID != "RX-1" {
		t.Errorf("expected prescription id RX-1, got %s", result.PrescriptionID)
	}
}

func TestHandler_ValidatePrescriptionRejectsBadEnum(t *testing.T) {
	h, e := newHandlerFixture(t, nil)

	body := `{"patient":{"renal_impairment":"terrible"},"items":[]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.ValidatePrescription(e.NewContext(req, rec))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown renal stage, got %v", err)
	}
}

func TestHandler_ValidateQuick(t *testing.T) {
	h, e := newHandlerFixture(t, nil)

	body := `{"medication_ids":[5],"patient":{"gfr":20}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.ValidateQuick(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	var result ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.IsValid || len(result.DosingAdjustments) != 1 {
		t.Errorf("expected contraindicated metformin adjustment, got %+v", result)
	}
}

func TestHandler_ValidateQuickRequiresIDs(t *testing.T) {
	h, e := newHandlerFixture(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.ValidateQuick(e.NewContext(req, rec))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty id list, got %v", err)
	}
}

func TestHandler_ValidateInteraction(t *testing.T) {
	h, e := newHandlerFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/?medication1_id=3&medication2_id=4", nil)
	rec := httptest.NewRecorder()
	if err := h.ValidateInteraction(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	var resp struct {
		Interactions []ddi.DrugInteraction `json:"interactions"`
		Total        int                   `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Interactions[0].InteractionType != "digoxin-amiodarone" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandler_HealthDegradedBeforeLoad(t *testing.T) {
	svc := NewService(medication.NewCatalog(),
		ddi.NewDetector(zerolog.Nop()),
		dosing.NewDetector(zerolog.Nop()),
		zerolog.Nop())
	h := NewHandler(svc, nil, nil, 30, 19)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := h.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("health: %v", err)
	}
	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "degraded" {
		t.Errorf("expected degraded before load, got %v", resp["status"])
	}

	// Queries degrade to 503 database_not_loaded.
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	err := h.ValidatePrescription(e.NewContext(req, rec))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before load, got %v", err)
	}
}

func TestHandler_Statistics(t *testing.T) {
	h, e := newHandlerFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := h.Statistics(e.NewContext(req, rec)); err != nil {
		t.Fatalf("statistics: %v", err)
	}
	var resp struct {
		Catalog  medication.Statistics  `json:"catalog"`
		Features map[string]interface{} `json:"features"`
		Version  string                 `json:"version"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Catalog.TotalMedications != 9 {
		t.Errorf("expected 9 medications, got %d", resp.Catalog.TotalMedications)
	}
	if resp.Version != Version {
		t.Errorf("expected engine version, got %s", resp.Version)
	}
}

func TestHandler_BlockedVerdictFiresWebhooks(t *testing.T) {
	received := make(chan string, 8)
	subscriber := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("X-Webhook-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer subscriber.Close()

	hooks := webhook.NewManager(webhook.NewInMemoryStore(), zerolog.Nop())
	if _, err := hooks.Register(context.Background(), &webhook.Subscription{
		Name: "t", URL: subscriber.URL, Secret: "s",
		Events: []string{webhook.EventWildcard}, RetryCount: 1,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	h, e := newHandlerFixture(t, hooks)
	body := `{"id":"RX-B","pharmacy_id":"PH-1","items":[{"medication_id":1},{"medication_id":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.ValidatePrescription(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	events := make(map[string]int)
	timeout := time.After(5 * time.Second)
	// One blocked alert plus one per major interaction (two fire here:
	// warfarin-aspirin and warfarin-nsaid).
	for i := 0; i < 3; i++ {
		select {
		case ev := <-received:
			events[ev]++
		case <-timeout:
			t.Fatalf("timed out waiting for webhook deliveries, got %v", events)
		}
	}
	if events[webhook.EventPrescriptionBlocked] != 1 {
		t.Errorf("expected 1 blocked alert, got %v", events)
	}
	if events[webhook.EventInteractionMajor] != 2 {
		t.Errorf("expected 2 major-interaction alerts, got %v", events)
	}
}
