package healthflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthflow/rxguard/internal/domain/clinical"
	"github.com/healthflow/rxguard/internal/domain/validation"
)

// Service runs HealthFlow submissions through the validation engine,
// optionally enriching sparse patient blocks from the registry first.
type Service struct {
	engine *validation.Service
	client *Client // nil when no registry is configured
	logger zerolog.Logger
}

func NewService(engine *validation.Service, client *Client, logger zerolog.Logger) *Service {
	return &Service{engine: engine, client: client, logger: logger}
}

// Enabled reports whether registry enrichment is configured.
func (s *Service) Enabled() bool { return s.client != nil }

// ValidateSingle converts, enriches, and validates one submission.
func (s *Service) ValidateSingle(ctx context.Context, hf *Prescription) (*Result, *validation.Prescription, error) {
	p, err := hf.ToPrescription()
	if err != nil {
		return nil, nil, err
	}
	s.enrich(ctx, hf.Patient.NationalID, p.Patient)

	result, err := s.engine.Validate(p)
	if err != nil {
		return nil, nil, err
	}
	return &Result{
		PrescriptionID: hf.PrescriptionID,
		ValidationCode: ValidationCode(result.Status()),
		Result:         result,
	}, p, nil
}

// BatchResult is the response for a batch submission.
type BatchResult struct {
	BatchID          string    `json:"batch_id"`
	Total            int       `json:"total"`
	Approved         int       `json:"approved"`
	WithWarnings     int       `json:"with_warnings"`
	ReviewRequired   int       `json:"review_required"`
	Results          []*Result `json:"results"`
	Errors           []string  `json:"errors,omitempty"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// ValidateBatch runs each submission in order. A malformed entry becomes an
// error line; it never aborts the rest of the batch.
func (s *Service) ValidateBatch(ctx context.Context, prescriptions []*Prescription) (*BatchResult, error) {
	start := time.Now()
	batch := &BatchResult{
		BatchID: "batch-" + start.UTC().Format("20060102150405"),
		Total:   len(prescriptions),
	}

	for i, hf := range prescriptions {
		res, _, err := s.ValidateSingle(ctx, hf)
		if err != nil {
			batch.Errors = append(batch.Errors,
				fmt.Sprintf("prescription %d (%s): %v", i+1, hf.PrescriptionID, err))
			continue
		}
		batch.Results = append(batch.Results, res)
		switch res.ValidationCode {
		case CodeApproved:
			batch.Approved++
		case CodeWithWarnings:
			batch.WithWarnings++
		default:
			batch.ReviewRequired++
		}
	}

	batch.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	batch.ProcessedAt = time.Now().UTC()
	return batch, nil
}

// enrich fills fields the submission left empty from the registry. Registry
// failure is logged and ignored; the caller-supplied context stands.
func (s *Service) enrich(ctx context.Context, nationalID string, patient *clinical.PatientContext) {
	if s.client == nil || nationalID == "" || patient == nil {
		return
	}
	fetched, err := s.client.PatientContext(ctx, nationalID)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("national_id", nationalID).
			Msg("patient context enrichment failed, using submitted context")
		return
	}

	if patient.Age == nil {
		patient.Age = fetched.Age
	}
	if patient.WeightKg == nil {
		patient.WeightKg = fetched.WeightKg
	}
	if patient.HeightCm == nil {
		patient.HeightCm = fetched.HeightCm
	}
	if !patient.Sex.Known() {
		patient.Sex = fetched.Sex
	}
	if patient.SerumCreatinine == nil {
		patient.SerumCreatinine = fetched.SerumCreatinine
	}
	if patient.GFR == nil {
		patient.GFR = fetched.GFR
	}
	if patient.RenalImpairment == "" {
		patient.RenalImpairment = fetched.RenalImpairment
	}
	if patient.HepaticImpairment == "" {
		patient.HepaticImpairment = fetched.HepaticImpairment
	}
	if len(patient.Conditions) == 0 {
		patient.Conditions = fetched.Conditions
	}
	if len(patient.Allergies) == 0 {
		patient.Allergies = fetched.Allergies
	}
	if len(patient.CurrentMedications) == 0 {
		patient.CurrentMedications = fetched.CurrentMedications
	}
	if !patient.IsPregnant {
		patient.IsPregnant = fetched.IsPregnant
	}
}
