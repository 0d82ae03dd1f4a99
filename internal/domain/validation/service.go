package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthflow/rxguard/internal/domain/clinical"
	"github.com/healthflow/rxguard/internal/domain/ddi"
	"github.com/healthflow/rxguard/internal/domain/dosing"
	"github.com/healthflow/rxguard/internal/domain/medication"
)

// Version identifies the engine build reported by /health and /statistics.
const Version = "2.1.0"

var (
	ErrCatalogNotLoaded = errors.New("catalog not loaded")
	ErrNilPrescription  = errors.New("prescription is required")
)

// Service is the validation engine. It owns the catalog and both detectors;
// construct one per process and share it across request handlers. Validate
// is a pure function of its inputs: no I/O, no side effects, no webhook
// calls.
type Service struct {
	catalog  *medication.Catalog
	ddi      *ddi.Detector
	ensemble *ddi.Ensemble
	dosing   *dosing.Detector
	logger   zerolog.Logger
}

func NewService(catalog *medication.Catalog, ddiDetector *ddi.Detector, dosingDetector *dosing.Detector, logger zerolog.Logger) *Service {
	return &Service{
		catalog: catalog,
		ddi:     ddiDetector,
		dosing:  dosingDetector,
		logger:  logger,
	}
}

// WithEnsemble attaches the advisory embedding-based predictor. Rule-base
// results stay authoritative; the ensemble only adds review-flagged
// predictions to handlers that ask for them.
func (s *Service) WithEnsemble(e *ddi.Ensemble) *Service {
	s.ensemble = e
	return s
}

// Catalog exposes the engine's catalog to the transport layer.
func (s *Service) Catalog() *medication.Catalog { return s.catalog }

// Ensemble returns the attached predictor, or nil.
func (s *Service) Ensemble() *ddi.Ensemble { return s.ensemble }

// Validate runs the full pipeline. Unknown medication ids degrade to
// warnings; the only hard failures are a nil prescription and an unloaded
// catalog.
func (s *Service) Validate(p *Prescription) (*ValidationResult, error) {
	if p == nil {
		return nil, ErrNilPrescription
	}
	if !s.catalog.Loaded() {
		return nil, ErrCatalogNotLoaded
	}
	start := time.Now()

	result := &ValidationResult{
		PrescriptionID:    p.ID,
		Interactions:      []ddi.DrugInteraction{},
		DosingAdjustments: []dosing.DosingAdjustment{},
		Contraindications: []string{},
		Warnings:          []string{},
		Recommendations:   []string{},
	}

	// 1. Resolve items. Unknown ids are recorded, never fatal.
	meds := make([]*medication.Medication, 0, len(p.Items))
	for _, item := range p.Items {
		m, err := s.catalog.Get(item.MedicationID)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Medication ID %d not found in database", item.MedicationID))
			continue
		}
		meds = append(meds, m)
	}
	result.MedicationsValidated = len(meds)

	// 2. Drug-drug interactions.
	result.Interactions = append(result.Interactions, s.ddi.CheckPrescription(meds)...)

	// 3. Renal dose adjustments.
	result.DosingAdjustments = append(result.DosingAdjustments,
		s.dosing.CheckPrescription(meds, p.Patient)...)

	// 4. Patient-context contraindications.
	if p.Patient != nil && p.Patient.IsPregnant {
		result.Contraindications = append(result.Contraindications,
			pregnancyContraindications(meds)...)
	}
	result.Contraindications = append(result.Contraindications,
		conditionContraindications(meds, p.Patient)...)

	// 5. Warnings.
	result.Warnings = append(result.Warnings, s.composeWarnings(meds, p.Patient, result)...)

	// 6. Recommendations.
	result.Recommendations = append(result.Recommendations, composeRecommendations(result)...)

	// 7. Verdict.
	for _, in := range result.Interactions {
		if in.Severity == ddi.SeverityMajor {
			result.HasMajorInteractions = true
			break
		}
	}
	result.IsValid = !result.HasMajorInteractions &&
		!result.HasContraindicatedDose() &&
		len(result.Contraindications) == 0

	result.ValidatedAt = time.Now()
	result.ValidationTimeMs = float64(time.Since(start).Microseconds()) / 1000.0

	s.logger.Info().
		Str("prescription_id", p.ID).
		Int("medications", result.MedicationsValidated).
		Int("interactions", len(result.Interactions)).
		Int("adjustments", len(result.DosingAdjustments)).
		Bool("is_valid", result.IsValid).
		Str("status", string(result.Status())).
		Msg("prescription validated")
	return result, nil
}

func (s *Service) composeWarnings(meds []*medication.Medication, patient *clinical.PatientContext, r *ValidationResult) []string {
	var warnings []string

	for _, m := range meds {
		if s.catalog.IsHighAlert(m.ID) {
			warnings = append(warnings,
				fmt.Sprintf("HIGH-ALERT: %s requires additional verification", m.CommercialName))
		}
	}

	major, moderate := 0, 0
	for _, in := range r.Interactions {
		switch in.Severity {
		case ddi.SeverityMajor:
			major++
		case ddi.SeverityModerate:
			moderate++
		}
	}
	if major > 0 {
		warnings = append(warnings, fmt.Sprintf("%d major drug interaction(s) detected", major))
	}
	if moderate > 0 {
		warnings = append(warnings, fmt.Sprintf("%d moderate drug interaction(s) detected", moderate))
	}

	contraindicated, adjusted := 0, 0
	for _, adj := range r.DosingAdjustments {
		if adj.Contraindicated {
			contraindicated++
		} else {
			adjusted++
		}
	}
	if contraindicated > 0 {
		warnings = append(warnings,
			fmt.Sprintf("%d medication(s) contraindicated for this patient's organ function", contraindicated))
	}
	if adjusted > 0 {
		warnings = append(warnings,
			fmt.Sprintf("%d medication(s) need dose adjustment", adjusted))
	}

	if patient.IsElderly() {
		warnings = append(warnings,
			fmt.Sprintf("Elderly patient (age %d): review doses and anticholinergic burden", *patient.Age))
	}
	if patient.IsPediatric() {
		warnings = append(warnings,
			fmt.Sprintf("Pediatric patient (age %d): verify weight-based dosing", *patient.Age))
	}
	return warnings
}

func composeRecommendations(r *ValidationResult) []string {
	var recs []string
	for _, in := range r.Interactions {
		recs = append(recs, fmt.Sprintf("For %s + %s: %s", in.Drug1Name, in.Drug2Name, in.Management))
	}
	for _, adj := range r.DosingAdjustments {
		prefix := "ADJUST"
		if adj.Contraindicated {
			prefix = "AVOID"
		}
		recs = append(recs, fmt.Sprintf("%s: %s - %s", prefix, adj.MedicationName, adj.AdjustedDose))
		if adj.MonitoringRequired && len(adj.MonitoringParameters) > 0 {
			recs = append(recs, fmt.Sprintf("MONITOR: %s - %s", adj.MedicationName,
				strings.Join(adj.MonitoringParameters, ", ")))
		}
	}
	return recs
}

// ValidatePair checks two medications against the interaction rule base.
// The result is order-insensitive.
func (s *Service) ValidatePair(id1, id2 int) ([]ddi.DrugInteraction, error) {
	if !s.catalog.Loaded() {
		return nil, ErrCatalogNotLoaded
	}
	m1, err := s.catalog.Get(id1)
	if err != nil {
		return nil, fmt.Errorf("medication %d: %w", id1, err)
	}
	m2, err := s.catalog.Get(id2)
	if err != nil {
		return nil, fmt.Errorf("medication %d: %w", id2, err)
	}
	return s.ddi.CheckPair(m1, m2), nil
}

// ValidateList builds a synthetic prescription with blank dose and frequency
// and forwards to Validate, for quick checks without a full prescription.
func (s *Service) ValidateList(ids []int, patient *clinical.PatientContext) (*ValidationResult, error) {
	items := make([]PrescriptionItem, len(ids))
	for i, id := range ids {
		items[i] = PrescriptionItem{MedicationID: id}
	}
	return s.Validate(&Prescription{
		ID:      fmt.Sprintf("quick-%d", time.Now().UnixNano()),
		Patient: patient,
		Items:   items,
	})
}
