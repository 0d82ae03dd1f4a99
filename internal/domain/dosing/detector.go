package dosing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/healthflow/rxguard/internal/domain/clinical"
	"github.com/healthflow/rxguard/internal/domain/medication"
)

// Detector evaluates prescriptions against the renal dosing table. Rule
// tables are fixed at construction; a single Detector serves concurrent
// requests.
type Detector struct {
	rules    map[string]map[clinical.RenalImpairment]renalRule
	keyOrder []string
	logger   zerolog.Logger
}

func NewDetector(logger zerolog.Logger) *Detector {
	d := &Detector{
		rules:    renalRules,
		keyOrder: renalKeyOrder,
		logger:   logger,
	}
	d.logger.Info().Int("drug_rules", len(d.rules)).Msg("dosing detector initialized")
	return d
}

// RuleCount reports the number of drugs in the renal dosing table.
func (d *Detector) RuleCount() int { return len(d.rules) }

// PatientGFR returns the patient's GFR: the explicit value when present,
// otherwise Cockcroft-Gault when age, weight, creatinine, and sex allow it.
// A non-positive explicit or computed value counts as unknown. The context
// is never mutated.
func (d *Detector) PatientGFR(p *clinical.PatientContext) (float64, bool) {
	if p == nil {
		return 0, false
	}
	if p.GFR != nil && *p.GFR > 0 {
		return *p.GFR, true
	}
	if p.Age != nil && p.WeightKg != nil && p.SerumCreatinine != nil && p.Sex.Known() {
		crcl := CockcroftGault(*p.Age, *p.WeightKg, *p.SerumCreatinine, p.Sex.Female())
		if crcl > 0 {
			return crcl, true
		}
	}
	return 0, false
}

// ClassifyStatus resolves the patient's renal stage. An explicitly declared
// non-normal stage wins; otherwise the stage follows the known or derived
// GFR; otherwise normal.
func (d *Detector) ClassifyStatus(p *clinical.PatientContext) clinical.RenalImpairment {
	if p == nil {
		return clinical.RenalNormal
	}
	if level := p.RenalLevel(); level != clinical.RenalNormal {
		return level
	}
	if gfr, ok := d.PatientGFR(p); ok {
		return ClassifyRenal(gfr)
	}
	return clinical.RenalNormal
}

// RenalAdjustment returns the renal dose adjustment for one medication, or
// nil when the patient is normal, the drug has no rule, or the rule has no
// entry for the patient's stage.
func (d *Detector) RenalAdjustment(med *medication.Medication, p *clinical.PatientContext) *DosingAdjustment {
	status := d.ClassifyStatus(p)
	if status == clinical.RenalNormal {
		return nil
	}

	key := d.findDrugKey(med)
	if key == "" {
		return nil
	}
	rule, ok := d.rules[key][status]
	if !ok {
		return nil
	}

	var gfrRange string
	if gfr, known := d.PatientGFR(p); known {
		gfrRange = fmt.Sprintf("GFR: %.0f mL/min", gfr)
	}

	return &DosingAdjustment{
		MedicationID:         med.ID,
		MedicationName:       med.CommercialName,
		StandardDose:         "See package insert",
		AdjustedDose:         rule.dose,
		AdjustmentReason:     rule.notes,
		ImpairmentType:       "renal",
		ImpairmentLevel:      string(status),
		GFRRange:             gfrRange,
		MonitoringRequired:   true,
		MonitoringParameters: monitoring(key),
		Contraindicated:      isContraindicated(rule),
		Source:               ruleSource,
	}
}

// findDrugKey resolves a medication to a rule key: commercial name first,
// then generic name, then the nsaid class fallback over both.
func (d *Detector) findDrugKey(med *medication.Medication) string {
	names := []string{strings.ToLower(med.CommercialName)}
	if med.GenericName != "" {
		names = append(names, strings.ToLower(med.GenericName))
	}

	for _, n := range names {
		for _, key := range d.keyOrder {
			if strings.Contains(n, key) {
				return key
			}
		}
	}
	for _, n := range names {
		for _, member := range nsaidMembers {
			if strings.Contains(n, member) {
				return "nsaid"
			}
		}
	}
	return ""
}

func isContraindicated(r renalRule) bool {
	text := strings.ToLower(r.dose + " " + r.notes)
	return strings.Contains(text, "contraindicated") || strings.Contains(text, "avoid")
}

// monitoring returns an owned copy of the follow-up parameters for a drug.
func monitoring(key string) []string {
	params, ok := monitoringParams[key]
	if !ok {
		params = defaultMonitoring
	}
	return append([]string(nil), params...)
}

// CheckPrescription evaluates every medication against the patient context.
// Contraindicated adjustments sort first; insertion order holds otherwise.
func (d *Detector) CheckPrescription(meds []*medication.Medication, p *clinical.PatientContext) []DosingAdjustment {
	var adjustments []DosingAdjustment
	for _, med := range meds {
		if adj := d.RenalAdjustment(med, p); adj != nil {
			adjustments = append(adjustments, *adj)
		}
	}
	sort.SliceStable(adjustments, func(i, j int) bool {
		return adjustments[i].Contraindicated && !adjustments[j].Contraindicated
	})
	return adjustments
}
