// Package validation orchestrates the prescription checks: it resolves items
// against the catalog, runs the interaction and dose-adjustment detectors,
// applies patient-context contraindications, and folds everything into one
// ValidationResult with a fixed validity rule.
package validation

import (
	"time"

	"github.com/healthflow/rxguard/internal/domain/clinical"
	"github.com/healthflow/rxguard/internal/domain/ddi"
	"github.com/healthflow/rxguard/internal/domain/dosing"
)

// PrescriptionItem is one line of a prescription. Only the medication id is
// required; dose and frequency are free text from the prescriber.
type PrescriptionItem struct {
	MedicationID int    `json:"medication_id"`
	Dose         string `json:"dose,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Route        string `json:"route,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Prescription is the validation input. An empty item list is legal and
// validates as "valid, zero medications".
type Prescription struct {
	ID           string                   `json:"id,omitempty"`
	Patient      *clinical.PatientContext `json:"patient,omitempty"`
	Items        []PrescriptionItem       `json:"items"`
	PrescriberID string                   `json:"prescriber_id,omitempty"`
	PharmacyID   string                   `json:"pharmacy_id,omitempty"`
}

// Status is the derived downstream verdict. It is computed from the result,
// never stored.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusBlocked Status = "blocked"
)

// ValidationResult is the per-request verdict. It owns copies of every
// interaction and adjustment, so it can cross goroutine boundaries after the
// request ends.
type ValidationResult struct {
	IsValid              bool                      `json:"is_valid"`
	PrescriptionID       string                    `json:"prescription_id,omitempty"`
	MedicationsValidated int                       `json:"medications_validated"`
	HasMajorInteractions bool                      `json:"has_major_interactions"`
	Interactions         []ddi.DrugInteraction     `json:"interactions"`
	DosingAdjustments    []dosing.DosingAdjustment `json:"dosing_adjustments"`
	Contraindications    []string                  `json:"contraindications"`
	Warnings             []string                  `json:"warnings"`
	Recommendations      []string                  `json:"recommendations"`
	ValidationTimeMs     float64                   `json:"validation_time_ms"`
	ValidatedAt          time.Time                 `json:"validated_at"`
}

// HasContraindicatedDose reports whether any adjustment forbids the drug
// outright.
func (r *ValidationResult) HasContraindicatedDose() bool {
	for _, adj := range r.DosingAdjustments {
		if adj.Contraindicated {
			return true
		}
	}
	return false
}

// Status derives the downstream verdict: blocked on any hard stop, warning
// when something needs attention, valid otherwise.
func (r *ValidationResult) Status() Status {
	if r.HasMajorInteractions || r.HasContraindicatedDose() || len(r.Contraindications) > 0 {
		return StatusBlocked
	}
	if len(r.Interactions) > 0 || len(r.DosingAdjustments) > 0 {
		return StatusWarning
	}
	return StatusValid
}

// BlockReasons lists why a blocked prescription is blocked, for alert
// payloads.
func (r *ValidationResult) BlockReasons() []string {
	var reasons []string
	for _, in := range r.Interactions {
		if in.Severity == ddi.SeverityMajor {
			reasons = append(reasons, "Major interaction: "+in.Drug1Name+" + "+in.Drug2Name)
		}
	}
	for _, adj := range r.DosingAdjustments {
		if adj.Contraindicated {
			reasons = append(reasons, "Contraindicated dose: "+adj.MedicationName+" ("+adj.ImpairmentLevel+" "+adj.ImpairmentType+" impairment)")
		}
	}
	reasons = append(reasons, r.Contraindications...)
	return reasons
}
