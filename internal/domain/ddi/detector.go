package ddi

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthflow/rxguard/internal/domain/medication"
)

// Detector matches prescription medications against the critical rule base.
// Rule tables are built once at construction and never mutated, so a single
// Detector serves concurrent requests.
type Detector struct {
	rules  []Rule
	index  map[rulePair][]int
	logger zerolog.Logger
}

func NewDetector(logger zerolog.Logger) *Detector {
	d := &Detector{
		rules:  criticalRules,
		index:  buildRuleIndex(criticalRules),
		logger: logger,
	}
	d.logger.Info().Int("rules", len(d.rules)).Msg("ddi detector initialized")
	return d
}

// RuleCount reports the size of the loaded rule base.
func (d *Detector) RuleCount() int { return len(d.rules) }

// identifiers collects every identity a medication can match rules under:
// normalized commercial name, generic name, lowercased ingredients, and
// class slugs. Order is deterministic and duplicates are dropped.
func identifiers(m *medication.Medication) []string {
	var ids []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			ids = append(ids, s)
		}
	}

	add(normalizeDrugName(m.CommercialName))
	add(strings.ToLower(m.GenericName))
	for _, ing := range m.ActiveIngredients {
		add(strings.ToLower(ing))
	}
	classSource := m.GenericName
	if classSource == "" {
		classSource = m.CommercialName
	}
	for _, slug := range Classes(classSource) {
		add(slug)
	}
	return ids
}

// CheckPair returns the interactions between two medications. The result is
// the same set whichever way the arguments are ordered; a rule reachable
// through several identifier paths is emitted once.
func (d *Detector) CheckPair(med1, med2 *medication.Medication) []DrugInteraction {
	ids1 := identifiers(med1)
	ids2 := identifiers(med2)

	now := time.Now()
	var out []DrugInteraction
	matched := make(map[int]bool)
	for _, id1 := range ids1 {
		for _, id2 := range ids2 {
			for _, ruleIdx := range d.index[rulePair{id1, id2}] {
				if matched[ruleIdx] {
					continue
				}
				matched[ruleIdx] = true
				r := d.rules[ruleIdx]
				out = append(out, DrugInteraction{
					Drug1ID:         med1.ID,
					Drug2ID:         med2.ID,
					Drug1Name:       med1.CommercialName,
					Drug2Name:       med2.CommercialName,
					Severity:        r.Severity,
					InteractionType: r.Slug(),
					Mechanism:       r.Mechanism,
					Management:      r.Management,
					EvidenceLevel:   1,
					Source:          ruleSource,
					CreatedAt:       now,
				})
			}
		}
	}
	return out
}

// CheckPrescription checks every unordered pair of medications. Output order
// is deterministic: major, moderate, minor, unknown, and insertion order
// within the same severity.
func (d *Detector) CheckPrescription(meds []*medication.Medication) []DrugInteraction {
	var all []DrugInteraction
	for i := 0; i < len(meds); i++ {
		for j := i + 1; j < len(meds); j++ {
			all = append(all, d.CheckPair(meds[i], meds[j])...)
		}
	}
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].Severity.Rank() < all[b].Severity.Rank()
	})
	return all
}

// Summarize aggregates a detection pass.
func (d *Detector) Summarize(interactions []DrugInteraction) Summary {
	s := Summary{
		Total:      len(interactions),
		BySeverity: map[string]int{"major": 0, "moderate": 0, "minor": 0, "unknown": 0},
	}
	for _, in := range interactions {
		s.BySeverity[string(in.Severity)]++
		if in.Severity == SeverityMajor {
			s.RequiresAction = true
		}
		s.Interactions = append(s.Interactions, SummaryEntry{
			Drugs:      in.Drug1Name + " + " + in.Drug2Name,
			Severity:   in.Severity,
			Mechanism:  in.Mechanism,
			Management: in.Management,
		})
	}
	return s
}
