package validation

import (
	"fmt"
	"strings"

	"github.com/healthflow/rxguard/internal/domain/clinical"
	"github.com/healthflow/rxguard/internal/domain/ddi"
	"github.com/healthflow/rxguard/internal/domain/medication"
)

// pregnancyAvoid lists the identifiers contraindicated in pregnancy. Entries
// are either plain substrings of the drug name or therapeutic-class slugs
// resolved through the ddi classifier.
var pregnancyAvoid = []string{
	"methotrexate", "warfarin", "isotretinoin", "thalidomide", "misoprostol",
	"finasteride", "statin", "ace_inhibitor", "tetracycline", "fluoroquinolone",
}

// conditionAvoid maps an active patient condition to the drug identifiers it
// forbids. The lists are closed; extend the table, not the matching.
var conditionAvoid = map[string][]string{
	"asthma":            {"beta_blocker", "aspirin", "nsaid"},
	"heart_failure":     {"nsaid", "thiazolidinedione", "verapamil", "diltiazem"},
	"peptic_ulcer":      {"nsaid", "aspirin", "corticosteroid"},
	"gout":              {"thiazide", "loop_diuretic", "aspirin"},
	"myasthenia_gravis": {"aminoglycoside", "fluoroquinolone", "beta_blocker"},
}

// classMembers resolves the class slugs the ddi classifier does not carry.
// Membership is substring-based, same as everywhere else in the rule layer.
var classMembers = map[string][]string{
	"beta_blocker": {
		"propranolol", "atenolol", "bisoprolol", "metoprolol", "carvedilol",
		"nebivolol", "concor", "inderal",
	},
	"thiazolidinedione": {"pioglitazone", "rosiglitazone", "actos"},
	"corticosteroid": {
		"prednisolone", "prednisone", "dexamethasone", "hydrocortisone",
		"methylprednisolone", "betamethasone",
	},
	"thiazide":       {"hydrochlorothiazide", "chlorthalidone", "indapamide"},
	"loop_diuretic":  {"furosemide", "lasix", "bumetanide", "torsemide"},
	"aminoglycoside": {"gentamicin", "amikacin", "tobramycin", "streptomycin", "neomycin"},
}

// matchesIdentifier reports whether the medication matches one forbidden
// identifier: a ddi class slug, a local class slug, or a plain substring of
// the commercial or generic name.
func matchesIdentifier(m *medication.Medication, identifier string) bool {
	name := strings.ToLower(m.CommercialName)
	generic := strings.ToLower(m.GenericName)

	if members, ok := classMembers[identifier]; ok {
		for _, member := range members {
			if strings.Contains(name, member) || (generic != "" && strings.Contains(generic, member)) {
				return true
			}
		}
		return false
	}

	// "statin" piggybacks on the ddi classifier's statin class.
	slug := identifier
	if slug == "statin" || slug == "ace_inhibitor" || slug == "fluoroquinolone" || slug == "nsaid" {
		for _, c := range ddi.Classes(m.CommercialName) {
			if c == slug {
				return true
			}
		}
		if generic != "" {
			for _, c := range ddi.Classes(generic) {
				if c == slug {
					return true
				}
			}
		}
		return false
	}

	return strings.Contains(name, identifier) || (generic != "" && strings.Contains(generic, identifier))
}

// pregnancyContraindications returns one entry per pregnancy-unsafe
// medication.
func pregnancyContraindications(meds []*medication.Medication) []string {
	var out []string
	for _, m := range meds {
		for _, identifier := range pregnancyAvoid {
			if matchesIdentifier(m, identifier) {
				out = append(out, fmt.Sprintf("%s: Contraindicated in pregnancy", m.CommercialName))
				break
			}
		}
	}
	return out
}

// conditionContraindications checks each active condition against its
// forbidden list. Condition tokens are normalized to snake_case so
// "Heart Failure" and "heart_failure" both match.
func conditionContraindications(meds []*medication.Medication, patient *clinical.PatientContext) []string {
	if patient == nil {
		return nil
	}
	var out []string
	for _, condition := range patient.Conditions {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(condition)), " ", "_")
		forbidden, ok := conditionAvoid[key]
		if !ok {
			continue
		}
		for _, m := range meds {
			for _, identifier := range forbidden {
				if matchesIdentifier(m, identifier) {
					out = append(out, fmt.Sprintf("%s: Caution/Contraindicated with %s", m.CommercialName, condition))
					break
				}
			}
		}
	}
	return out
}
