// Package audit keeps the validation trail: which prescriptions were
// checked, with what verdict, for which pharmacy and prescriber. Entries
// carry counts and timings only; medication lists and patient context never
// enter the trail.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthflow/rxguard/internal/domain/validation"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// RecordValidation implements validation.Auditor. Recording is best effort:
// a trail failure is logged, never surfaced to the caller.
func (s *Service) RecordValidation(ctx context.Context, p *validation.Prescription, result *validation.ValidationResult) {
	entry := &Entry{
		ID:                    uuid.New().String(),
		PrescriptionID:        result.PrescriptionID,
		Status:                string(result.Status()),
		MedicationCount:       result.MedicationsValidated,
		InteractionCount:      len(result.Interactions),
		ContraindicationCount: len(result.Contraindications),
		IsValid:               result.IsValid,
		ValidationTimeMs:      result.ValidationTimeMs,
		CreatedAt:             time.Now().UTC(),
	}
	if p != nil {
		entry.PharmacyID = p.PharmacyID
		entry.PrescriberID = p.PrescriberID
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("prescription_id", entry.PrescriptionID).
			Msg("failed to record validation in audit trail")
	}
}

// List returns matching trail entries, newest first.
func (s *Service) List(ctx context.Context, q Query, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, q, limit, offset)
}
