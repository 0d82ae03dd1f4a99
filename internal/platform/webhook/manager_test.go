package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(NewInMemoryStore(), zerolog.Nop(),
		WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
}

func registerTestSubscription(t *testing.T, m *Manager, url string, events ...string) *Subscription {
	t.Helper()
	sub, err := m.Register(context.Background(), &Subscription{
		Name:       "test",
		URL:        url,
		Secret:     "test-secret",
		Events:     events,
		RetryCount: 3,
	})
	if err != nil {
		t.Fatalf("register subscription: %v", err)
	}
	// Retries in tests must not pace a minute apart; back-to-back is only
	// settable through an explicit patch.
	zero := 0
	sub, err = m.Update(context.Background(), sub.ID, SubscriptionPatch{RetryDelaySeconds: &zero})
	if err != nil {
		t.Fatalf("zero retry delay: %v", err)
	}
	return sub
}

// ===================== Signing =====================

func TestSignatureRoundTrip(t *testing.T) {
	env := NewEnvelope("prescription.blocked", "del-1-wh-a",
		map[string]interface{}{"prescription_id": "RX-1", "reasons": []string{"major interaction"}},
		time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	body, err := env.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	again, err := env.Serialize()
	if err != nil {
		t.Fatalf("serialize twice: %v", err)
	}
	if string(body) != string(again) {
		t.Fatalf("canonical serialization is not stable:\n%s\n%s", body, again)
	}

	sig := SignPayload(body, "secret-1")
	if !VerifySignature(body, "secret-1", sig) {
		t.Error("signature did not verify against the signed bytes")
	}
	if VerifySignature(body, "secret-2", sig) {
		t.Error("signature verified under the wrong secret")
	}
	if VerifySignature(append(body, ' '), "secret-1", sig) {
		t.Error("signature verified over modified bytes")
	}
}

func TestEnvelopeSerializeSortsKeys(t *testing.T) {
	env := NewEnvelope("x.y", "del-1", map[string]interface{}{"zeta": 1, "alpha": 2}, time.Now())
	body, err := env.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	var decoded struct {
		Data map[string]int `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("canonical output is not valid JSON: %v", err)
	}
	if decoded.Data["alpha"] != 2 || decoded.Data["zeta"] != 1 {
		t.Errorf("unexpected data after canonicalization: %+v", decoded.Data)
	}
}

// ===================== Delivery =====================

func TestTriggerDeliversSignedEnvelope(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newTestManager(t)
	sub := registerTestSubscription(t, m, srv.URL, EventPrescriptionBlocked)

	records := m.Trigger(context.Background(), EventPrescriptionBlocked,
		map[string]interface{}{"prescription_id": "RX-9"})
	if len(records) != 1 {
		t.Fatalf("expected 1 delivery record, got %d", len(records))
	}
	rec := records[0]
	if rec.Status != StatusDelivered {
		t.Errorf("expected delivered, got %s (error %q)", rec.Status, rec.Error)
	}
	if rec.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", rec.Attempts)
	}

	if gotHeaders.Get("X-Webhook-Event") != EventPrescriptionBlocked {
		t.Errorf("missing event header, got %q", gotHeaders.Get("X-Webhook-Event"))
	}
	if gotHeaders.Get("X-Webhook-Delivery") != rec.ID {
		t.Errorf("delivery header %q does not match record id %q",
			gotHeaders.Get("X-Webhook-Delivery"), rec.ID)
	}
	sig := gotHeaders.Get("X-Webhook-Signature")
	if !VerifySignature(gotBody, sub.Secret, sig) {
		t.Error("receiver-side signature verification failed")
	}

	var env struct {
		Event      string `json:"event"`
		DeliveryID string `json:"delivery_id"`
	}
	if err := json.Unmarshal(gotBody, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Event != EventPrescriptionBlocked || env.DeliveryID != rec.ID {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestTriggerRetriesUntilSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newTestManager(t)
	registerTestSubscription(t, m, srv.URL, EventWildcard)

	records := m.Trigger(context.Background(), "test.event", map[string]string{"k": "v"})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected exactly 3 attempts on the wire, got %d", got)
	}
	if records[0].Attempts != 3 {
		t.Errorf("expected 3 recorded attempts, got %d", records[0].Attempts)
	}
	if records[0].Status != StatusDelivered {
		t.Errorf("expected delivered after third attempt, got %s", records[0].Status)
	}
}

func TestTriggerFailsAfterRetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := newTestManager(t)
	registerTestSubscription(t, m, srv.URL, EventWildcard)

	records := m.Trigger(context.Background(), "test.event", nil)
	if records[0].Status != StatusFailed {
		t.Errorf("expected failed, got %s", records[0].Status)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if records[0].ResponseCode != http.StatusInternalServerError {
		t.Errorf("expected last response code 500, got %d", records[0].ResponseCode)
	}
}

func TestRetryCountOneMeansSingleAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := newTestManager(t)
	sub, err := m.Register(context.Background(), &Subscription{
		Name: "once", URL: srv.URL, Secret: "s",
		Events: []string{EventWildcard}, RetryCount: 1, RetryDelaySeconds: 60,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	start := time.Now()
	records := m.Trigger(context.Background(), "test.event", nil)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("single-attempt delivery slept after the final attempt (%v)", elapsed)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
	if records[0].Status != StatusFailed {
		t.Errorf("expected failed, got %s", records[0].Status)
	}
	if records[0].SubscriptionID != sub.ID {
		t.Errorf("record bound to wrong subscription: %s", records[0].SubscriptionID)
	}
}

func TestRetryDelayPacesAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := newTestManager(t)
	sub := registerTestSubscription(t, m, srv.URL, EventWildcard)
	one, two := 1, 2
	if _, err := m.Update(context.Background(), sub.ID, SubscriptionPatch{
		RetryCount: &two, RetryDelaySeconds: &one,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	start := time.Now()
	m.Trigger(context.Background(), "test.event", nil)
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("two attempts with a 1s delay finished in %v, retries are not paced", elapsed)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestWithDeliveryTimeout(t *testing.T) {
	m := NewManager(NewInMemoryStore(), zerolog.Nop(), WithDeliveryTimeout(5*time.Second))
	if m.httpClient.Timeout != 5*time.Second {
		t.Errorf("expected 5s delivery timeout, got %v", m.httpClient.Timeout)
	}
	m = NewManager(NewInMemoryStore(), zerolog.Nop(), WithDeliveryTimeout(0))
	if m.httpClient.Timeout != deliveryTimeout {
		t.Errorf("expected default timeout preserved, got %v", m.httpClient.Timeout)
	}
}

func TestTriggerSkipsNonMatchingAndInactive(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newTestManager(t)
	registerTestSubscription(t, m, srv.URL, EventInteractionMajor)
	inactive := registerTestSubscription(t, m, srv.URL, EventWildcard)
	off := false
	if _, err := m.Update(context.Background(), inactive.ID, SubscriptionPatch{Active: &off}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	records := m.Trigger(context.Background(), EventPrescriptionBlocked, nil)
	if len(records) != 0 {
		t.Fatalf("expected no deliveries, got %d", len(records))
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("server was called for a non-matching event")
	}
}

func TestResponseBodyTruncated(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write(long)
	}))
	defer srv.Close()

	m := newTestManager(t)
	registerTestSubscription(t, m, srv.URL, EventWildcard)

	records := m.Trigger(context.Background(), "test.event", nil)
	if len(records[0].ResponseBody) != maxResponseBodyChars {
		t.Errorf("expected response body truncated to %d chars, got %d",
			maxResponseBodyChars, len(records[0].ResponseBody))
	}
}

// ===================== History & helpers =====================

func TestDeliveryHistoryFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newTestManager(t)
	sub := registerTestSubscription(t, m, srv.URL, EventWildcard)

	m.BlockedPrescriptionAlert(context.Background(), "RX-1", "PH-1", []string{"major interaction"})
	m.MajorInteractionAlert(context.Background(), "RX-1", "Marevan", "Aspocid",
		"additive anticoagulation", "avoid combination")

	all, err := m.DeliveryHistory(context.Background(), DeliveryFilter{}, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(all))
	}
	// Newest first.
	if all[0].Event != EventInteractionMajor || all[1].Event != EventPrescriptionBlocked {
		t.Errorf("unexpected order: %s, %s", all[0].Event, all[1].Event)
	}

	blocked, _ := m.DeliveryHistory(context.Background(),
		DeliveryFilter{Event: EventPrescriptionBlocked}, 0)
	if len(blocked) != 1 || blocked[0].SubscriptionID != sub.ID {
		t.Errorf("event filter failed: %+v", blocked)
	}

	delivered, _ := m.DeliveryHistory(context.Background(),
		DeliveryFilter{Status: StatusDelivered}, 1)
	if len(delivered) != 1 {
		t.Errorf("expected limit to cap results, got %d", len(delivered))
	}
}

func TestRegisterDefaults(t *testing.T) {
	m := newTestManager(t)
	sub, err := m.Register(context.Background(), &Subscription{Name: "d", URL: "https://example.com/hook"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sub.Secret == "" {
		t.Error("expected a generated secret")
	}
	if sub.RetryCount != defaultRetryCount {
		t.Errorf("expected default retry count %d, got %d", defaultRetryCount, sub.RetryCount)
	}
	if sub.RetryDelaySeconds != defaultRetryDelaySeconds {
		// An omitted delay must pace retries a minute apart, not fire them
		// back-to-back.
		t.Errorf("expected default retry delay %d, got %d", defaultRetryDelaySeconds, sub.RetryDelaySeconds)
	}
	if len(sub.Events) != 1 || sub.Events[0] != EventWildcard {
		t.Errorf("expected wildcard default, got %v", sub.Events)
	}
	if !sub.Active {
		t.Error("expected new subscription active")
	}
}

func TestRegisterRejectsBadURL(t *testing.T) {
	m := newTestManager(t)
	for _, url := range []string{"", "ftp://example.com", "not a url at all\x00"} {
		if _, err := m.Register(context.Background(), &Subscription{Name: "x", URL: url}); err == nil {
			t.Errorf("expected error for url %q", url)
		}
	}
}

func TestUpdateAndDelete(t *testing.T) {
	m := newTestManager(t)
	sub := registerTestSubscription(t, m, "https://example.com/hook", EventWildcard)

	name := "renamed"
	retries := 5
	updated, err := m.Update(context.Background(), sub.ID, SubscriptionPatch{
		Name: &name, RetryCount: &retries, Events: []string{EventDosingAlert},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "renamed" || updated.RetryCount != 5 {
		t.Errorf("patch not applied: %+v", updated)
	}
	if len(updated.Events) != 1 || updated.Events[0] != EventDosingAlert {
		t.Errorf("events not replaced: %v", updated.Events)
	}

	if err := m.Delete(context.Background(), sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Delete(context.Background(), sub.ID); err == nil {
		t.Error("expected not-found on double delete")
	}
	if _, err := m.Update(context.Background(), "missing", SubscriptionPatch{}); err == nil {
		t.Error("expected not-found updating a missing subscription")
	}
}
