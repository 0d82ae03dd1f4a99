package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
)

// Envelope is the wire wrapper every delivery carries. Serialization goes
// through RFC 8785 canonicalization so the signed bytes are stable across
// processes and re-marshals.
type Envelope struct {
	Event      string      `json:"event"`
	Timestamp  string      `json:"timestamp"`
	DeliveryID string      `json:"delivery_id"`
	Data       interface{} `json:"data"`
}

// NewEnvelope wraps a payload for delivery.
func NewEnvelope(event, deliveryID string, data interface{}, at time.Time) Envelope {
	return Envelope{
		Event:      event,
		Timestamp:  at.UTC().Format(time.RFC3339),
		DeliveryID: deliveryID,
		Data:       data,
	}
}

// Serialize renders the envelope as canonical JSON (sorted keys, fixed
// number formatting). Signing and transmission both use these exact bytes.
func (e Envelope) Serialize() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize envelope: %w", err)
	}
	return canonical, nil
}

// SignPayload computes the hex HMAC-SHA256 of the payload under the secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether the signature matches the payload under
// the secret. Comparison is constant-time.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
