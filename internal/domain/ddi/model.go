// Package ddi detects drug-drug interactions. A fixed rule base covers the
// critical pairs; an auxiliary ensemble predictor scores pairs the rules do
// not know, flagged for pharmacist review.
package ddi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity is the closed set of interaction severities, ordered from most to
// least actionable.
type Severity string

const (
	SeverityMajor    Severity = "major"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
	SeverityUnknown  Severity = "unknown"
)

var severityRank = map[Severity]int{
	SeverityMajor:    0,
	SeverityModerate: 1,
	SeverityMinor:    2,
	SeverityUnknown:  3,
}

// ParseSeverity maps a wire token to a Severity. Unknown tokens are an error;
// the literal token "unknown" is valid.
func ParseSeverity(s string) (Severity, error) {
	token := Severity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := severityRank[token]; !ok {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return token, nil
}

func (s Severity) String() string { return string(s) }

// Rank orders severities for sorting; major sorts first.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return severityRank[SeverityUnknown]
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// DrugInteraction is one detected interaction between two prescription
// medications. Values are self-contained copies; they never alias rule-table
// rows.
type DrugInteraction struct {
	Drug1ID         int       `json:"drug1_id"`
	Drug2ID         int       `json:"drug2_id"`
	Drug1Name       string    `json:"drug1_name"`
	Drug2Name       string    `json:"drug2_name"`
	Severity        Severity  `json:"severity"`
	InteractionType string    `json:"interaction_type"`
	Mechanism       string    `json:"mechanism"`
	ClinicalEffect  string    `json:"clinical_effect,omitempty"`
	Management      string    `json:"management"`
	EvidenceLevel   int       `json:"evidence_level"` // 1=label, 2=study, 3=case report, 4=theoretical
	Source          string    `json:"source"`
	CreatedAt       time.Time `json:"created_at"`
}

// Summary aggregates a detection pass for dashboards and logs.
type Summary struct {
	Total          int            `json:"total"`
	BySeverity     map[string]int `json:"by_severity"`
	RequiresAction bool           `json:"requires_action"`
	Interactions   []SummaryEntry `json:"interactions"`
}

// SummaryEntry is the compact per-interaction line inside a Summary.
type SummaryEntry struct {
	Drugs      string   `json:"drugs"`
	Severity   Severity `json:"severity"`
	Mechanism  string   `json:"mechanism"`
	Management string   `json:"management"`
}
