package audit

import (
	"time"
)

// Entry is one validation recorded in the trail. The trail stores verdict
// metadata only, never the clinical payload itself.
type Entry struct {
	ID                    string    `json:"id"`
	PrescriptionID        string    `json:"prescription_id"`
	Status                string    `json:"status"`
	PharmacyID            string    `json:"pharmacy_id,omitempty"`
	PrescriberID          string    `json:"prescriber_id,omitempty"`
	MedicationCount       int       `json:"medication_count"`
	InteractionCount      int       `json:"interaction_count"`
	ContraindicationCount int       `json:"contraindication_count"`
	IsValid               bool      `json:"is_valid"`
	ValidationTimeMs      float64   `json:"validation_time_ms"`
	CreatedAt             time.Time `json:"created_at"`
}

// Query filters the trail. Zero values mean "any".
type Query struct {
	PharmacyID   string
	PrescriberID string
	Status       string
	From         *time.Time
	To           *time.Time
}

func (q Query) matches(e *Entry) bool {
	if q.PharmacyID != "" && e.PharmacyID != q.PharmacyID {
		return false
	}
	if q.PrescriberID != "" && e.PrescriberID != q.PrescriberID {
		return false
	}
	if q.Status != "" && e.Status != q.Status {
		return false
	}
	if q.From != nil && e.CreatedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && e.CreatedAt.After(*q.To) {
		return false
	}
	return true
}
