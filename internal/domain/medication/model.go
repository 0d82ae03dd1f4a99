package medication

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DosageForm is the closed set of pharmaceutical forms the catalog recognises.
type DosageForm string

const (
	FormTablet      DosageForm = "tablet"
	FormCapsule     DosageForm = "capsule"
	FormSyrup       DosageForm = "syrup"
	FormInjection   DosageForm = "injection"
	FormAmpoule     DosageForm = "ampoule"
	FormCream       DosageForm = "cream"
	FormGel         DosageForm = "gel"
	FormOintment    DosageForm = "ointment"
	FormDrop        DosageForm = "drop"
	FormSuspension  DosageForm = "suspension"
	FormSolution    DosageForm = "solution"
	FormSuppository DosageForm = "suppository"
	FormInhaler     DosageForm = "inhaler"
	FormPatch       DosageForm = "patch"
	FormPowder      DosageForm = "powder"
	FormOther       DosageForm = "other"
)

var dosageForms = map[DosageForm]bool{
	FormTablet: true, FormCapsule: true, FormSyrup: true, FormInjection: true,
	FormAmpoule: true, FormCream: true, FormGel: true, FormOintment: true,
	FormDrop: true, FormSuspension: true, FormSolution: true, FormSuppository: true,
	FormInhaler: true, FormPatch: true, FormPowder: true, FormOther: true,
}

// ParseDosageForm maps a wire token to a DosageForm. Unknown tokens are an
// error so malformed input surfaces as invalid-argument at the API boundary.
func ParseDosageForm(s string) (DosageForm, error) {
	f := DosageForm(strings.ToLower(strings.TrimSpace(s)))
	if !dosageForms[f] {
		return "", fmt.Errorf("unknown dosage form %q", s)
	}
	return f, nil
}

func (f DosageForm) String() string { return string(f) }

func (f *DosageForm) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDosageForm(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Medication is one entry of the drug catalog. Entries are built at load time
// and never mutated while a validation request is in flight.
type Medication struct {
	ID                int        `json:"id"`
	CommercialName    string     `json:"commercial_name"`
	GenericName       string     `json:"generic_name,omitempty"`
	ArabicName        string     `json:"arabic_name,omitempty"`
	ActiveIngredients []string   `json:"active_ingredients,omitempty"`
	Strength          string     `json:"strength,omitempty"`
	StrengthValue     float64    `json:"strength_value,omitempty"`
	StrengthUnit      string     `json:"strength_unit,omitempty"`
	DosageForm        DosageForm `json:"dosage_form"`
	PackageSize       string     `json:"package_size,omitempty"`
	Manufacturer      string     `json:"manufacturer,omitempty"`
	ATCCode           string     `json:"atc_code,omitempty"`
	EDARegistration   string     `json:"eda_registration,omitempty"`
	IsOTC             bool       `json:"is_otc"`
	IsControlled      bool       `json:"is_controlled"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ---------------------------------------------------------------------------
// Commercial-name parsing
// ---------------------------------------------------------------------------

var (
	strengthPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(mg|g|ml|mcg|µg|iu|%)`)

	packagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*/\s*(Tab|Cap|Amp|Sach)`),
		regexp.MustCompile(`(?i)(\d+)\s*ml\s*(Syrup|Susp|Drop|Solution)?`),
		regexp.MustCompile(`(?i)(\d+)\s*gm?\s*(Cream|Gel|Oint)`),
	}

	// Ordered: first match wins. Ampoule is checked before Injection so that
	// "Amp" rows do not fall through to the broader Inj/Vial pattern.
	formPatterns = []struct {
		re   *regexp.Regexp
		form DosageForm
	}{
		{regexp.MustCompile(`(?i)\bTab\b|\bTablet\b|F\.C\.Tab`), FormTablet},
		{regexp.MustCompile(`(?i)\bCap\b|\bCapsule\b`), FormCapsule},
		{regexp.MustCompile(`(?i)\bSyrup\b|\bSyr\b`), FormSyrup},
		{regexp.MustCompile(`(?i)\bAmp\b|\bAmpoule\b`), FormAmpoule},
		{regexp.MustCompile(`(?i)\bInj\b|\bInjection\b|\bVial\b`), FormInjection},
		{regexp.MustCompile(`(?i)\bCream\b|\bCrm\b`), FormCream},
		{regexp.MustCompile(`(?i)\bGel\b|\bEmulgel\b`), FormGel},
		{regexp.MustCompile(`(?i)\bOint\b|\bOintment\b`), FormOintment},
		{regexp.MustCompile(`(?i)\bDrop\b`), FormDrop},
		{regexp.MustCompile(`(?i)\bSusp\b|\bSuspension\b`), FormSuspension},
		{regexp.MustCompile(`(?i)\bSolution\b|\bSol\b`), FormSolution},
		{regexp.MustCompile(`(?i)\bSupp\b|\bSuppository\b`), FormSuppository},
		{regexp.MustCompile(`(?i)\bInhaler\b|\bMDI\b|\bDiskus\b|\bTurbuhaler\b`), FormInhaler},
		{regexp.MustCompile(`(?i)\bPatch\b`), FormPatch},
		{regexp.MustCompile(`(?i)\bPowder\b|\bSach\b`), FormPowder},
	}

	punctPattern  = regexp.MustCompile(`[^\w\s]`)
	suffixPattern = regexp.MustCompile(`\b(mg|gm|ml|tab|cap|syrup|amp|cream|gel|oint)\b`)
	digitPattern  = regexp.MustCompile(`\d+`)
	parenPattern  = regexp.MustCompile(`\(([^)]+)\)`)
)

// FromCommercialName builds a Medication from a raw vendor row, parsing
// strength, package size, and dosage form out of the commercial name. The
// generic name and ingredients stay empty; the catalog fills those while
// indexing.
func FromCommercialName(id int, name string) *Medication {
	now := time.Now()
	m := &Medication{
		ID:             id,
		CommercialName: name,
		DosageForm:     FormOther,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if match := strengthPattern.FindStringSubmatch(name); match != nil {
		if v, err := strconv.ParseFloat(match[1], 64); err == nil {
			m.StrengthValue = v
			m.StrengthUnit = strings.ToLower(match[2])
			m.Strength = match[0]
		}
	}
	for _, p := range packagePatterns {
		if match := p.FindString(name); match != "" {
			m.PackageSize = match
			break
		}
	}
	m.DosageForm = DetectDosageForm(name)
	return m
}

// DetectDosageForm scans the fixed pattern list; the first match wins and an
// unmatched name maps to FormOther.
func DetectDosageForm(name string) DosageForm {
	for _, fp := range formPatterns {
		if fp.re.MatchString(name) {
			return fp.form
		}
	}
	return FormOther
}

// NormalizeName lowers the name, strips punctuation, removes dose and form
// suffixes plus digit runs, and collapses whitespace. Index keys and the DDI
// identity layer both use this form.
func NormalizeName(name string) string {
	n := strings.ToLower(name)
	n = punctPattern.ReplaceAllString(n, "")
	n = suffixPattern.ReplaceAllString(n, "")
	n = digitPattern.ReplaceAllString(n, "")
	return strings.Join(strings.Fields(n), " ")
}
