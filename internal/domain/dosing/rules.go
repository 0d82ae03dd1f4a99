package dosing

import "github.com/healthflow/rxguard/internal/domain/clinical"

const ruleSource = "Egyptian National Formulary / Renal Drug Handbook"

// renalRule is one (dose text, notes) cell of the renal dosing table.
type renalRule struct {
	dose  string
	notes string
}

// renalKeyOrder fixes the scan order for substring key matching, so a name
// containing two keys always resolves the same way.
var renalKeyOrder = []string{
	"amoxicillin", "ciprofloxacin", "levofloxacin", "gentamicin", "vancomycin",
	"metronidazole", "atenolol", "digoxin", "lisinopril", "spironolactone",
	"morphine", "gabapentin", "nsaid", "metformin", "glyburide", "sitagliptin",
	"enoxaparin", "rivaroxaban", "dabigatran",
}

// renalRules maps drug key and renal stage to the adjustment. A missing cell
// means no adjustment at that stage.
var renalRules = map[string]map[clinical.RenalImpairment]renalRule{
	// Antibiotics
	"amoxicillin": {
		clinical.RenalModerate: {"250-500mg q12h", "Extend interval"},
		clinical.RenalSevere:   {"250-500mg q24h", "Once daily dosing"},
		clinical.RenalESRD:     {"250-500mg q24h + post-HD dose", "Dialyzable - give after HD"},
	},
	"ciprofloxacin": {
		clinical.RenalModerate: {"250-500mg q12h", "Reduce dose or extend interval"},
		clinical.RenalSevere:   {"250-500mg q18-24h", "Significant reduction needed"},
		clinical.RenalESRD:     {"250-500mg q24h", "Give after dialysis"},
	},
	"levofloxacin": {
		clinical.RenalModerate: {"250-500mg q24h", "Standard interval, may reduce dose"},
		clinical.RenalSevere:   {"250mg q24-48h", "Reduce dose and extend interval"},
		clinical.RenalESRD:     {"250mg q48h", "Post-dialysis dosing"},
	},
	"gentamicin": {
		clinical.RenalMild:     {"Use traditional dosing with monitoring", "Monitor levels closely"},
		clinical.RenalModerate: {"Extend interval to q24-36h", "TDM required"},
		clinical.RenalSevere:   {"Extend interval to q48h", "TDM required - nephrotoxic"},
		clinical.RenalESRD:     {"Re-dose based on levels after HD", "TDM required"},
	},
	"vancomycin": {
		clinical.RenalMild:     {"15-20mg/kg q12h", "Monitor trough levels"},
		clinical.RenalModerate: {"15-20mg/kg q24-48h", "TDM required"},
		clinical.RenalSevere:   {"15-20mg/kg q48-72h", "TDM required"},
		clinical.RenalESRD:     {"15-25mg/kg loading, then based on levels", "Give after HD"},
	},
	"metronidazole": {
		clinical.RenalSevere: {"Reduce dose by 50%", "Active metabolite accumulates"},
		clinical.RenalESRD:   {"Reduce dose by 50%", "Not dialyzable"},
	},

	// Cardiovascular
	"atenolol": {
		clinical.RenalModerate: {"25-50mg daily", "Reduce dose"},
		clinical.RenalSevere:   {"25mg daily or every other day", "Significant reduction"},
		clinical.RenalESRD:     {"25-50mg after HD", "Dialyzable"},
	},
	"digoxin": {
		clinical.RenalMild:     {"0.125-0.25mg daily", "Monitor levels"},
		clinical.RenalModerate: {"0.0625-0.125mg daily", "Reduce dose significantly"},
		clinical.RenalSevere:   {"0.0625mg daily or every other day", "High toxicity risk"},
		clinical.RenalESRD:     {"0.0625mg 3x/week", "Not dialyzable - very careful dosing"},
	},
	"lisinopril": {
		clinical.RenalModerate: {"Start 2.5-5mg daily", "Titrate carefully"},
		clinical.RenalSevere:   {"Start 2.5mg daily", "May accumulate - watch K+"},
		clinical.RenalESRD:     {"Start 2.5mg daily", "Dialyzable"},
	},
	"spironolactone": {
		clinical.RenalModerate: {"Use with caution - monitor K+", "Risk of hyperkalemia"},
		clinical.RenalSevere:   {"Avoid if possible", "High hyperkalemia risk"},
		clinical.RenalESRD:     {"Contraindicated", "Severe hyperkalemia risk"},
	},

	// Pain
	"morphine": {
		clinical.RenalModerate: {"Reduce dose by 25-50%", "Active metabolite accumulates"},
		clinical.RenalSevere:   {"Reduce dose by 50-75%", "Use with extreme caution"},
		clinical.RenalESRD:     {"Avoid - use fentanyl or hydromorphone", "Metabolite causes toxicity"},
	},
	"gabapentin": {
		clinical.RenalMild:     {"300-600mg TID", "May need adjustment"},
		clinical.RenalModerate: {"200-300mg BID", "Reduce dose"},
		clinical.RenalSevere:   {"100-300mg daily", "Significant reduction"},
		clinical.RenalESRD:     {"100-300mg post-HD", "Give after dialysis"},
	},
	"nsaid": {
		clinical.RenalMild:     {"Use lowest effective dose for shortest duration", "Monitor renal function"},
		clinical.RenalModerate: {"Avoid if possible", "May worsen renal function"},
		clinical.RenalSevere:   {"Contraindicated", "High risk of AKI"},
		clinical.RenalESRD:     {"Contraindicated", "No renal benefit, cardiovascular risk remains"},
	},

	// Diabetes
	"metformin": {
		clinical.RenalMild:     {"No adjustment needed", "Monitor renal function"},
		clinical.RenalModerate: {"Max 1000mg daily if GFR 30-45", "Do not start if GFR <45"},
		clinical.RenalSevere:   {"Contraindicated", "Lactic acidosis risk"},
		clinical.RenalESRD:     {"Contraindicated", "Lactic acidosis risk"},
	},
	"glyburide": {
		clinical.RenalModerate: {"Avoid - use glipizide instead", "Active metabolites accumulate"},
		clinical.RenalSevere:   {"Contraindicated", "Prolonged hypoglycemia risk"},
		clinical.RenalESRD:     {"Contraindicated", "Use insulin"},
	},
	"sitagliptin": {
		clinical.RenalModerate: {"50mg daily", "Reduce from 100mg"},
		clinical.RenalSevere:   {"25mg daily", "Further reduction"},
		clinical.RenalESRD:     {"25mg daily", "Can be given regardless of HD timing"},
	},

	// Anticoagulants
	"enoxaparin": {
		clinical.RenalSevere: {"1mg/kg once daily for treatment", "Reduce prophylaxis to 30mg daily"},
		clinical.RenalESRD:   {"Avoid - use UFH", "Unpredictable accumulation"},
	},
	"rivaroxaban": {
		clinical.RenalModerate: {"15mg daily for AF if GFR 15-50", "Reduce dose"},
		clinical.RenalSevere:   {"Avoid if GFR <15", "Limited data"},
		clinical.RenalESRD:     {"Not recommended", "No data on HD patients"},
	},
	"dabigatran": {
		clinical.RenalModerate: {"110mg BID if GFR 30-50", "Reduce dose"},
		clinical.RenalSevere:   {"Contraindicated", "GFR <30"},
		clinical.RenalESRD:     {"Contraindicated", "No data"},
	},
}

// nsaidMembers resolves the class key; any medication whose name contains
// one of these falls under the "nsaid" row.
var nsaidMembers = []string{
	"ibuprofen", "diclofenac", "naproxen", "brufen", "cataflam", "voltaren",
}

// monitoringParams lists drug-specific follow-up labs. Drugs without an
// entry get defaultMonitoring.
var monitoringParams = map[string][]string{
	"gentamicin":     {"Trough and peak levels", "Serum creatinine", "Audiometry if prolonged use"},
	"vancomycin":     {"Trough levels", "Serum creatinine", "CBC"},
	"digoxin":        {"Digoxin level", "Potassium", "ECG"},
	"metformin":      {"Lactic acid if symptomatic", "Serum creatinine", "B12 annually"},
	"enoxaparin":     {"Anti-Xa levels if monitoring needed", "Platelets", "Signs of bleeding"},
	"spironolactone": {"Potassium", "Sodium", "Serum creatinine"},
	"lisinopril":     {"Potassium", "Serum creatinine", "Blood pressure"},
}

var defaultMonitoring = []string{"Serum creatinine", "Electrolytes"}
