package webhook

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultRetryCount        = 3
	defaultRetryDelaySeconds = 60
	deliveryTimeout          = 30 * time.Second
	maxResponseBodyChars     = 500
)

// successCodes are the HTTP statuses that count as a delivered webhook.
var successCodes = map[int]bool{200: true, 201: true, 202: true, 204: true}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient overrides the delivery HTTP client. Tests use this to drop
// the 30-second timeout.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) { m.httpClient = c }
}

// WithDeliveryTimeout sets the per-attempt delivery timeout. Non-positive
// values keep the 30-second default.
func WithDeliveryTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.httpClient.Timeout = d
		}
	}
}

// Manager owns the subscription store and performs event fan-out. A single
// Manager serves concurrent triggers; all shared state lives behind the
// store's locks.
type Manager struct {
	store      Store
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewManager(store Store, logger zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		httpClient: &http.Client{Timeout: deliveryTimeout},
		logger:     logger,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Store exposes the underlying store for history queries.
func (m *Manager) Store() Store { return m.store }

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// Register validates and persists a subscription. An empty secret is
// replaced with a cryptographically random one; retry knobs default to
// 3 attempts 60 seconds apart; empty events default to the wildcard.
// A zero-second delay (back-to-back retries) can only be set explicitly
// through Update, never at registration.
func (m *Manager) Register(ctx context.Context, sub *Subscription) (*Subscription, error) {
	if err := validateURL(sub.URL); err != nil {
		return nil, err
	}
	if sub.ID == "" {
		sub.ID = newSubscriptionID()
	}
	if sub.Secret == "" {
		secret, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
		sub.Secret = secret
	}
	if len(sub.Events) == 0 {
		sub.Events = []string{EventWildcard}
	}
	if sub.RetryCount <= 0 {
		sub.RetryCount = defaultRetryCount
	}
	if sub.RetryDelaySeconds <= 0 {
		sub.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	sub.Active = true
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	if err := m.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	m.logger.Info().Str("subscription_id", sub.ID).Str("url", sub.URL).
		Strs("events", sub.Events).Msg("webhook subscription registered")
	return sub, nil
}

// Update applies a patch to an existing subscription.
func (m *Manager) Update(ctx context.Context, id string, patch SubscriptionPatch) (*Subscription, error) {
	sub, err := m.store.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		sub.Name = *patch.Name
	}
	if patch.URL != nil {
		if err := validateURL(*patch.URL); err != nil {
			return nil, err
		}
		sub.URL = *patch.URL
	}
	if patch.Secret != nil {
		sub.Secret = *patch.Secret
	}
	if len(patch.Events) > 0 {
		sub.Events = patch.Events
	}
	if patch.Active != nil {
		sub.Active = *patch.Active
	}
	if patch.RetryCount != nil && *patch.RetryCount > 0 {
		sub.RetryCount = *patch.RetryCount
	}
	if patch.RetryDelaySeconds != nil && *patch.RetryDelaySeconds >= 0 {
		sub.RetryDelaySeconds = *patch.RetryDelaySeconds
	}
	if patch.Headers != nil {
		sub.Headers = *patch.Headers
	}
	if sub.Active && sub.Secret == "" {
		return nil, fmt.Errorf("active subscription requires a secret")
	}
	sub.UpdatedAt = time.Now()
	if err := m.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Delete removes a subscription.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.DeleteSubscription(ctx, id)
}

// List returns all subscriptions in registration order.
func (m *Manager) List(ctx context.Context) ([]*Subscription, error) {
	return m.store.ListSubscriptions(ctx)
}

// DeliveryHistory queries recorded deliveries, newest first.
func (m *Manager) DeliveryHistory(ctx context.Context, filter DeliveryFilter, limit int) ([]*DeliveryRecord, error) {
	return m.store.ListDeliveries(ctx, filter, limit)
}

// Trigger fans the event out to every active subscription whose event list
// matches. Deliveries run concurrently; the call returns when every
// subscriber has reached a final state. Record order follows subscription
// registration order.
func (m *Manager) Trigger(ctx context.Context, event string, data interface{}) []*DeliveryRecord {
	subs, err := m.store.ListSubscriptions(ctx)
	if err != nil {
		m.logger.Error().Err(err).Str("event", event).Msg("listing subscriptions failed")
		return nil
	}

	var matching []*Subscription
	for _, sub := range subs {
		if sub.Active && sub.Matches(event) {
			matching = append(matching, sub)
		}
	}
	if len(matching) == 0 {
		return nil
	}

	records := make([]*DeliveryRecord, len(matching))
	var wg sync.WaitGroup
	for i, sub := range matching {
		wg.Add(1)
		go func(i int, sub *Subscription) {
			defer wg.Done()
			records[i] = m.deliver(ctx, sub, event, data)
		}(i, sub)
	}
	wg.Wait()
	return records
}

// deliver runs the bounded retry loop for one subscriber and records the
// outcome. The inter-attempt sleep is context-aware and never runs after
// the final attempt.
func (m *Manager) deliver(ctx context.Context, sub *Subscription, event string, data interface{}) *DeliveryRecord {
	now := time.Now()
	deliveryID := fmt.Sprintf("del-%d-%s", now.UnixNano(), sub.ID)
	envelope := NewEnvelope(event, deliveryID, data, now)

	record := &DeliveryRecord{
		ID:             deliveryID,
		SubscriptionID: sub.ID,
		Event:          event,
		Status:         StatusPending,
		CreatedAt:      now,
	}

	body, err := envelope.Serialize()
	if err != nil {
		record.Status = StatusFailed
		record.Error = err.Error()
		m.store.RecordDelivery(ctx, record)
		return record
	}
	record.Payload = body
	signature := SignPayload(body, sub.Secret)

	for attempt := 1; attempt <= sub.RetryCount; attempt++ {
		record.Attempts = attempt
		record.LastAttemptAt = time.Now()

		code, respBody, err := m.post(ctx, sub, event, deliveryID, signature, body)
		record.ResponseCode = code
		record.ResponseBody = respBody
		if err != nil {
			record.Error = err.Error()
		} else {
			record.Error = ""
		}

		if err == nil && successCodes[code] {
			record.Status = StatusDelivered
			break
		}

		if attempt == sub.RetryCount {
			record.Status = StatusFailed
			break
		}
		record.Status = StatusRetrying
		m.logger.Warn().Str("delivery_id", deliveryID).Int("attempt", attempt).
			Int("status_code", code).Msg("webhook delivery attempt failed, retrying")
		if !sleepContext(ctx, time.Duration(sub.RetryDelaySeconds)*time.Second) {
			record.Status = StatusFailed
			record.Error = ctx.Err().Error()
			break
		}
	}

	m.store.RecordDelivery(ctx, record)
	m.logger.Info().Str("delivery_id", deliveryID).Str("event", event).
		Str("status", string(record.Status)).Int("attempts", record.Attempts).
		Msg("webhook delivery finished")
	return record
}

func (m *Manager) post(ctx context.Context, sub *Subscription, event, deliveryID, signature string, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Delivery", deliveryID)
	for k, v := range sub.Headers {
		req.Header.Set(k, v)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyChars))
	return resp.StatusCode, string(respBody), nil
}

// sleepContext waits for the delay or the context, whichever ends first.
// Returns false when the context won.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Test sends a synthetic event to one subscription, bypassing event
// filtering, and returns the delivery record.
func (m *Manager) Test(ctx context.Context, id string) (*DeliveryRecord, error) {
	sub, err := m.store.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"test":    true,
		"message": "RxGuard webhook test event",
	}
	return m.deliver(ctx, sub, "webhook.test", payload), nil
}

// BlockedPrescriptionAlert fires the prescription.blocked event with the
// well-known payload shape downstream pharmacy systems consume.
func (m *Manager) BlockedPrescriptionAlert(ctx context.Context, prescriptionID, pharmacyID string, reasons []string) []*DeliveryRecord {
	payload := map[string]interface{}{
		"prescription_id": prescriptionID,
		"pharmacy_id":     pharmacyID,
		"reasons":         reasons,
		"severity":        "critical",
		"action_required": "Review prescription before dispensing",
	}
	return m.Trigger(ctx, EventPrescriptionBlocked, payload)
}

// MajorInteractionAlert fires the interaction.major event for one detected
// major drug-drug interaction.
func (m *Manager) MajorInteractionAlert(ctx context.Context, prescriptionID, drug1, drug2, mechanism, management string) []*DeliveryRecord {
	payload := map[string]interface{}{
		"prescription_id": prescriptionID,
		"drug1":           drug1,
		"drug2":           drug2,
		"severity":        "major",
		"mechanism":       mechanism,
		"management":      management,
	}
	return m.Trigger(ctx, EventInteractionMajor, payload)
}

func newSubscriptionID() string {
	return "wh-" + uuid.New().String()
}
