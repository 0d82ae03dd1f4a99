package ddi

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/healthflow/rxguard/internal/domain/medication"
)

func newTestDetector() *Detector {
	return NewDetector(zerolog.Nop())
}

func med(id int, commercial, generic string) *medication.Medication {
	return &medication.Medication{
		ID:             id,
		CommercialName: commercial,
		GenericName:    generic,
	}
}

func interactionTypes(ins []DrugInteraction) []string {
	var types []string
	for _, in := range ins {
		types = append(types, in.InteractionType)
	}
	return types
}

func TestCheckPair_GenericAndClassMatch(t *testing.T) {
	d := newTestDetector()
	warfarin := med(1, "Marevan 5 mg Tab", "warfarin")
	aspirin := med(2, "Aspocid 75 mg Tab", "aspirin")

	got := d.CheckPair(warfarin, aspirin)
	want := []string{"warfarin-aspirin", "warfarin-nsaid"}
	if !reflect.DeepEqual(interactionTypes(got), want) {
		t.Fatalf("interaction types = %v, want %v", interactionTypes(got), want)
	}
	for _, in := range got {
		if in.Severity != SeverityMajor {
			t.Errorf("%s severity = %q, want %q", in.InteractionType, in.Severity, SeverityMajor)
		}
		if in.Drug1Name != "Marevan 5 mg Tab" || in.Drug2Name != "Aspocid 75 mg Tab" {
			t.Errorf("%s carries drug names %q/%q", in.InteractionType, in.Drug1Name, in.Drug2Name)
		}
		if in.EvidenceLevel != 1 {
			t.Errorf("%s evidence level = %d, want 1", in.InteractionType, in.EvidenceLevel)
		}
		if in.Mechanism == "" || in.Management == "" || in.Source == "" {
			t.Errorf("%s is missing mechanism, management, or source", in.InteractionType)
		}
	}
}

func TestCheckPair_SingleEmissionPerRule(t *testing.T) {
	d := newTestDetector()
	warfarin := med(1, "Marevan 5 mg Tab", "warfarin")
	brufen := med(2, "Brufen 400 mg 30/Tab", "ibuprofen")

	got := d.CheckPair(warfarin, brufen)
	if len(got) != 1 {
		t.Fatalf("got %d interactions, want 1: %v", len(got), interactionTypes(got))
	}
	if got[0].InteractionType != "warfarin-nsaid" {
		t.Errorf("interaction type = %q, want %q", got[0].InteractionType, "warfarin-nsaid")
	}

	counts := make(map[string]int)
	for _, in := range got {
		counts[in.InteractionType]++
	}
	for typ, n := range counts {
		if n != 1 {
			t.Errorf("interaction %q emitted %d times, want 1", typ, n)
		}
	}
}

func TestCheckPair_Symmetric(t *testing.T) {
	d := newTestDetector()
	warfarin := med(1, "Marevan 5 mg Tab", "warfarin")
	aspirin := med(2, "Aspocid 75 mg Tab", "aspirin")

	ab := d.CheckPair(warfarin, aspirin)
	ba := d.CheckPair(aspirin, warfarin)
	if len(ab) != len(ba) {
		t.Fatalf("asymmetric result: %d vs %d interactions", len(ab), len(ba))
	}

	setOf := func(ins []DrugInteraction) map[string]bool {
		s := make(map[string]bool)
		for _, in := range ins {
			s[in.InteractionType] = true
		}
		return s
	}
	if !reflect.DeepEqual(setOf(ab), setOf(ba)) {
		t.Errorf("interaction sets differ: %v vs %v", setOf(ab), setOf(ba))
	}
	if ba[0].Drug1Name != "Aspocid 75 mg Tab" {
		t.Errorf("drug names should follow argument order, got %q first", ba[0].Drug1Name)
	}
}

func TestCheckPair_ClassMeetsGeneric(t *testing.T) {
	d := newTestDetector()
	lisinopril := med(1, "Zestril 10 mg Tab", "lisinopril")
	spironolactone := med(2, "Aldactone 25 mg Tab", "spironolactone")

	got := d.CheckPair(lisinopril, spironolactone)
	if len(got) != 1 {
		t.Fatalf("got %d interactions, want 1: %v", len(got), interactionTypes(got))
	}
	if got[0].InteractionType != "ace_inhibitor-spironolactone" {
		t.Errorf("interaction type = %q, want %q", got[0].InteractionType, "ace_inhibitor-spironolactone")
	}
	if got[0].Severity != SeverityModerate {
		t.Errorf("severity = %q, want %q", got[0].Severity, SeverityModerate)
	}
}

func TestCheckPair_NoInteraction(t *testing.T) {
	d := newTestDetector()
	paracetamol := med(1, "Panadol 500 mg 20/Tab", "paracetamol")
	omeprazole := med(2, "Gastrazole 20 mg Cap", "omeprazole")

	if got := d.CheckPair(paracetamol, omeprazole); len(got) != 0 {
		t.Errorf("got %d interactions, want none: %v", len(got), interactionTypes(got))
	}
}

func TestCheckPrescription_SeverityOrdering(t *testing.T) {
	d := newTestDetector()
	meds := []*medication.Medication{
		med(1, "Zestril 10 mg Tab", "lisinopril"),
		med(2, "Aldactone 25 mg Tab", "spironolactone"),
		med(3, "Marevan 5 mg Tab", "warfarin"),
		med(4, "Aspocid 75 mg Tab", "aspirin"),
	}

	got := d.CheckPrescription(meds)
	want := []string{"warfarin-aspirin", "warfarin-nsaid", "ace_inhibitor-spironolactone"}
	if !reflect.DeepEqual(interactionTypes(got), want) {
		t.Fatalf("interaction order = %v, want %v", interactionTypes(got), want)
	}
	if got[0].Severity != SeverityMajor || got[2].Severity != SeverityModerate {
		t.Errorf("severities not ordered: %v", got)
	}
}

func TestCheckPrescription_Empty(t *testing.T) {
	d := newTestDetector()
	if got := d.CheckPrescription(nil); len(got) != 0 {
		t.Errorf("got %d interactions for empty prescription", len(got))
	}
	single := []*medication.Medication{med(1, "Marevan 5 mg Tab", "warfarin")}
	if got := d.CheckPrescription(single); len(got) != 0 {
		t.Errorf("got %d interactions for single medication", len(got))
	}
}

func TestSummarize(t *testing.T) {
	d := newTestDetector()
	meds := []*medication.Medication{
		med(1, "Marevan 5 mg Tab", "warfarin"),
		med(2, "Aspocid 75 mg Tab", "aspirin"),
		med(3, "Aldactone 25 mg Tab", "spironolactone"),
		med(4, "Zestril 10 mg Tab", "lisinopril"),
	}

	s := d.Summarize(d.CheckPrescription(meds))
	if s.Total != 3 {
		t.Fatalf("total = %d, want 3", s.Total)
	}
	if s.BySeverity["major"] != 2 || s.BySeverity["moderate"] != 1 {
		t.Errorf("by_severity = %v, want 2 major and 1 moderate", s.BySeverity)
	}
	if !s.RequiresAction {
		t.Error("major interaction should set requires_action")
	}
	if len(s.Interactions) != 3 {
		t.Fatalf("summary entries = %d, want 3", len(s.Interactions))
	}
	if s.Interactions[0].Drugs != "Marevan 5 mg Tab + Aspocid 75 mg Tab" {
		t.Errorf("drugs line = %q", s.Interactions[0].Drugs)
	}
}

func TestSummarize_Empty(t *testing.T) {
	d := newTestDetector()
	s := d.Summarize(nil)
	if s.Total != 0 || s.RequiresAction {
		t.Errorf("empty summary = %+v", s)
	}
	if s.BySeverity["major"] != 0 {
		t.Errorf("by_severity should be zeroed, got %v", s.BySeverity)
	}
}
