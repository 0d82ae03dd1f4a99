// Package dosing computes renal dose adjustments. A fixed per-drug rule
// table maps (drug key, renal stage) to adjusted dose text; GFR is taken
// from the patient context or derived with Cockcroft-Gault when the inputs
// allow it. Hepatic adjustments have no rule base yet; the Child-Pugh
// calculator and the impairment-type field keep the door open.
package dosing

// DosingAdjustment is one dose recommendation for a medication under the
// patient's organ function. MonitoringParameters is always an owned copy,
// never a rule-table slice.
type DosingAdjustment struct {
	MedicationID         int      `json:"medication_id"`
	MedicationName       string   `json:"medication_name"`
	StandardDose         string   `json:"standard_dose"`
	AdjustedDose         string   `json:"adjusted_dose"`
	AdjustmentReason     string   `json:"adjustment_reason"`
	ImpairmentType       string   `json:"impairment_type"` // "renal" or "hepatic"
	ImpairmentLevel      string   `json:"impairment_level"`
	GFRRange             string   `json:"gfr_range,omitempty"`
	MonitoringRequired   bool     `json:"monitoring_required"`
	MonitoringParameters []string `json:"monitoring_parameters"`
	Contraindicated      bool     `json:"contraindicated"`
	Source               string   `json:"source"`
}
