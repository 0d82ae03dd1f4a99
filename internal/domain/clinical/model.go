// Package clinical defines the patient-side value objects carried with a
// prescription: demographics, renal and hepatic status, and the flags the
// validation pipeline keys on. All of it is plain data; the calculators and
// detectors live in the dosing and ddi packages.
package clinical

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Sex is the biological sex used by the GFR formulas. Empty means
// unspecified, which blocks GFR derivation.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// Female matches case-insensitively; upstream systems send both "f" and "F".
func (s Sex) Female() bool { return strings.EqualFold(string(s), "F") }

// Known reports whether a usable value was supplied.
func (s Sex) Known() bool {
	return strings.EqualFold(string(s), "M") || strings.EqualFold(string(s), "F")
}

// ---------------------------------------------------------------------------
// Renal impairment
// ---------------------------------------------------------------------------

// RenalImpairment is the closed set of renal function stages keyed by the
// dose-adjustment table.
type RenalImpairment string

const (
	RenalNormal   RenalImpairment = "normal"
	RenalMild     RenalImpairment = "mild"
	RenalModerate RenalImpairment = "moderate"
	RenalSevere   RenalImpairment = "severe"
	RenalESRD     RenalImpairment = "esrd"
)

var renalLevels = map[RenalImpairment]bool{
	RenalNormal: true, RenalMild: true, RenalModerate: true,
	RenalSevere: true, RenalESRD: true,
}

// ParseRenalImpairment maps a wire token to a stage. An absent or empty token
// means normal; anything outside the closed set is an error.
func ParseRenalImpairment(s string) (RenalImpairment, error) {
	token := RenalImpairment(strings.ToLower(strings.TrimSpace(s)))
	if token == "" {
		return RenalNormal, nil
	}
	if !renalLevels[token] {
		return "", fmt.Errorf("unknown renal impairment %q", s)
	}
	return token, nil
}

func (r RenalImpairment) String() string { return string(r) }

func (r *RenalImpairment) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRenalImpairment(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ---------------------------------------------------------------------------
// Hepatic impairment
// ---------------------------------------------------------------------------

// HepaticImpairment is the Child-Pugh class of the patient.
type HepaticImpairment string

const (
	HepaticNone   HepaticImpairment = "none"
	HepaticChildA HepaticImpairment = "child_pugh_a"
	HepaticChildB HepaticImpairment = "child_pugh_b"
	HepaticChildC HepaticImpairment = "child_pugh_c"
)

var hepaticLevels = map[HepaticImpairment]bool{
	HepaticNone: true, HepaticChildA: true, HepaticChildB: true, HepaticChildC: true,
}

// ParseHepaticImpairment maps a wire token to a class. An absent or empty
// token means none; anything outside the closed set is an error.
func ParseHepaticImpairment(s string) (HepaticImpairment, error) {
	token := HepaticImpairment(strings.ToLower(strings.TrimSpace(s)))
	if token == "" {
		return HepaticNone, nil
	}
	if !hepaticLevels[token] {
		return "", fmt.Errorf("unknown hepatic impairment %q", s)
	}
	return token, nil
}

func (h HepaticImpairment) String() string { return string(h) }

func (h *HepaticImpairment) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseHepaticImpairment(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ---------------------------------------------------------------------------
// Patient context
// ---------------------------------------------------------------------------

// PatientContext carries everything the validators may personalize on.
// Numeric fields are pointers because zero is a meaningful value for none of
// them; absence is what disables a check.
type PatientContext struct {
	Age                *int              `json:"age,omitempty"`
	WeightKg           *float64          `json:"weight_kg,omitempty"`
	HeightCm           *float64          `json:"height_cm,omitempty"`
	Sex                Sex               `json:"sex,omitempty"`
	SerumCreatinine    *float64          `json:"serum_creatinine,omitempty"`
	GFR                *float64          `json:"gfr,omitempty"`
	RenalImpairment    RenalImpairment   `json:"renal_impairment,omitempty"`
	HepaticImpairment  HepaticImpairment `json:"hepatic_impairment,omitempty"`
	ChildPughScore     *int              `json:"child_pugh_score,omitempty"`
	Allergies          []string          `json:"allergies,omitempty"`
	Conditions         []string          `json:"conditions,omitempty"`
	CurrentMedications []int             `json:"current_medications,omitempty"`
	IsPregnant         bool              `json:"is_pregnant,omitempty"`
	IsBreastfeeding    bool              `json:"is_breastfeeding,omitempty"`
}

// RenalLevel canonicalizes the zero value to normal.
func (p *PatientContext) RenalLevel() RenalImpairment {
	if p == nil || p.RenalImpairment == "" {
		return RenalNormal
	}
	return p.RenalImpairment
}

// HepaticLevel canonicalizes the zero value to none.
func (p *PatientContext) HepaticLevel() HepaticImpairment {
	if p == nil || p.HepaticImpairment == "" {
		return HepaticNone
	}
	return p.HepaticImpairment
}

// IsElderly reports age 65 or above.
func (p *PatientContext) IsElderly() bool {
	return p != nil && p.Age != nil && *p.Age >= 65
}

// IsPediatric reports age under 18.
func (p *PatientContext) IsPediatric() bool {
	return p != nil && p.Age != nil && *p.Age < 18
}
