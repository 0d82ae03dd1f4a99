// Package webhook delivers validation alerts to registered subscribers.
// Payloads are wrapped in a canonical-JSON envelope, signed with HMAC-SHA256,
// and POSTed with bounded retries; every attempt sequence is recorded in a
// queryable delivery history.
package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Well-known event names. Trigger also accepts caller-defined names, which
// test events use.
const (
	EventPrescriptionBlocked     = "prescription.blocked"
	EventPrescriptionWarning     = "prescription.warning"
	EventInteractionMajor        = "interaction.major"
	EventContraindicationFound   = "contraindication.detected"
	EventDosingAlert             = "dosing.alert"
	EventSystemHealth            = "system.health"
)

// EventWildcard subscribes to every event.
const EventWildcard = "*"

// DeliveryStatus is the closed set of delivery states.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
	StatusRetrying  DeliveryStatus = "retrying"
)

var deliveryStatuses = map[DeliveryStatus]bool{
	StatusPending: true, StatusDelivered: true, StatusFailed: true, StatusRetrying: true,
}

// ParseDeliveryStatus maps a wire token to a DeliveryStatus; unknown tokens
// are an error.
func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	token := DeliveryStatus(strings.ToLower(strings.TrimSpace(s)))
	if !deliveryStatuses[token] {
		return "", fmt.Errorf("unknown delivery status %q", s)
	}
	return token, nil
}

func (s DeliveryStatus) String() string { return string(s) }

// Subscription is one registered webhook destination.
type Subscription struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	URL               string            `json:"url"`
	Secret            string            `json:"secret,omitempty"`
	Events            []string          `json:"events"`
	Active            bool              `json:"active"`
	RetryCount        int               `json:"retry_count"`
	RetryDelaySeconds int               `json:"retry_delay_seconds"`
	Headers           map[string]string `json:"headers,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Matches reports whether the subscription wants the event, either by exact
// name or through the wildcard.
func (s *Subscription) Matches(event string) bool {
	for _, e := range s.Events {
		if e == event || e == EventWildcard {
			return true
		}
	}
	return false
}

// SubscriptionPatch carries the updatable fields of a subscription. Nil
// fields are left unchanged.
type SubscriptionPatch struct {
	Name              *string            `json:"name,omitempty"`
	URL               *string            `json:"url,omitempty"`
	Secret            *string            `json:"secret,omitempty"`
	Events            []string           `json:"events,omitempty"`
	Active            *bool              `json:"active,omitempty"`
	RetryCount        *int               `json:"retry_count,omitempty"`
	RetryDelaySeconds *int               `json:"retry_delay_seconds,omitempty"`
	Headers           *map[string]string `json:"headers,omitempty"`
}

// DeliveryRecord is the outcome of delivering one event to one subscriber,
// across all retry attempts.
type DeliveryRecord struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	Event          string          `json:"event"`
	Payload        json.RawMessage `json:"payload"`
	Status         DeliveryStatus  `json:"status"`
	Attempts       int             `json:"attempts"`
	LastAttemptAt  time.Time       `json:"last_attempt_at"`
	ResponseCode   int             `json:"response_code,omitempty"`
	ResponseBody   string          `json:"response_body,omitempty"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// DeliveryFilter narrows a delivery-history query. Zero values match
// everything.
type DeliveryFilter struct {
	SubscriptionID string
	Event          string
	Status         DeliveryStatus
}

func (f DeliveryFilter) matches(d *DeliveryRecord) bool {
	if f.SubscriptionID != "" && d.SubscriptionID != f.SubscriptionID {
		return false
	}
	if f.Event != "" && d.Event != f.Event {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	return true
}
