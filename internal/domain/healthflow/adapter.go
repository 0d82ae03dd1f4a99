// Package healthflow adapts the national e-prescription exchange format to
// the validation engine. HealthFlow submits prescriptions in its own shape
// and expects coded verdicts back; everything clinical happens in the
// validation package.
package healthflow

import (
	"fmt"
	"strings"

	"github.com/healthflow/rxguard/internal/domain/clinical"
	"github.com/healthflow/rxguard/internal/domain/validation"
)

// Validation codes HealthFlow expects on the wire.
const (
	CodeApproved     = "APPROVED"
	CodeWithWarnings = "APPROVED_WITH_WARNINGS"
	CodeReview       = "REVIEW_REQUIRED"
)

// Patient is the HealthFlow patient block.
type Patient struct {
	NationalID string   `json:"national_id"`
	Age        *int     `json:"age,omitempty"`
	Sex        string   `json:"sex,omitempty"`
	WeightKg   *float64 `json:"weight_kg,omitempty"`
	Creatinine *float64 `json:"creatinine,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
	IsPregnant bool     `json:"is_pregnant,omitempty"`
}

// Medication is one line of a HealthFlow prescription.
type Medication struct {
	MedicationID int    `json:"medication_id"`
	Name         string `json:"name,omitempty"`
	Dose         string `json:"dose,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Route        string `json:"route,omitempty"`
}

// Prescription is the HealthFlow submission envelope.
type Prescription struct {
	PrescriptionID string       `json:"prescription_id" validate:"required"`
	Patient        Patient      `json:"patient"`
	Medications    []Medication `json:"medications" validate:"required,min=1"`
	Prescriber     struct {
		License string `json:"license,omitempty"`
	} `json:"prescriber"`
	Pharmacy struct {
		Code string `json:"code,omitempty"`
	} `json:"pharmacy"`
}

// Result pairs the engine's verdict with the HealthFlow validation code.
type Result struct {
	PrescriptionID string                       `json:"prescription_id"`
	ValidationCode string                       `json:"validation_code"`
	Result         *validation.ValidationResult `json:"result"`
}

// ToPrescription converts the exchange format to the engine's shape.
func (p *Prescription) ToPrescription() (*validation.Prescription, error) {
	sex := strings.ToUpper(strings.TrimSpace(p.Patient.Sex))
	if sex != "" && sex != "M" && sex != "F" {
		return nil, fmt.Errorf("unknown patient sex %q", p.Patient.Sex)
	}

	patient := &clinical.PatientContext{
		Age:             p.Patient.Age,
		Sex:             clinical.Sex(sex),
		WeightKg:        p.Patient.WeightKg,
		SerumCreatinine: p.Patient.Creatinine,
		Conditions:      p.Patient.Conditions,
		IsPregnant:      p.Patient.IsPregnant,
	}

	items := make([]validation.PrescriptionItem, 0, len(p.Medications))
	for _, m := range p.Medications {
		items = append(items, validation.PrescriptionItem{
			MedicationID: m.MedicationID,
			Dose:         m.Dose,
			Frequency:    m.Frequency,
			Duration:     m.Duration,
			Route:        m.Route,
		})
	}

	return &validation.Prescription{
		ID:           p.PrescriptionID,
		Patient:      patient,
		Items:        items,
		PrescriberID: p.Prescriber.License,
		PharmacyID:   p.Pharmacy.Code,
	}, nil
}

// ValidationCode maps the engine verdict to the HealthFlow code set.
func ValidationCode(status validation.Status) string {
	switch status {
	case validation.StatusValid:
		return CodeApproved
	case validation.StatusWarning:
		return CodeWithWarnings
	default:
		return CodeReview
	}
}
