package medication

import (
	"errors"
	"testing"
)

func newTestCatalog() *Catalog {
	c := NewCatalog()
	rows := []struct {
		id   int
		name string
	}{
		{1, "Panadol 500 mg 20/Tab"},
		{2, "Panadol Extra 24/Tab"},
		{3, "Brufen 400 mg 30/Tab"},
		{4, "Glucophage 850 mg Tab"},
		{5, "Marevan (Warfarin) 5 mg Tab"},
		{6, "Lasix 40 mg Tab"},
	}
	for _, row := range rows {
		c.Put(FromCommercialName(row.id, row.name))
	}
	return c
}

func TestCatalog_Get(t *testing.T) {
	c := newTestCatalog()

	m, err := c.Get(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.CommercialName != "Panadol 500 mg 20/Tab" {
		t.Errorf("unexpected medication: %s", m.CommercialName)
	}
	if m.GenericName != "paracetamol" {
		t.Errorf("expected generic paracetamol, got %q", m.GenericName)
	}

	if _, err := c.Get(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalog_GetMany(t *testing.T) {
	c := newTestCatalog()

	meds := c.GetMany([]int{3, 99, 1})
	if len(meds) != 2 {
		t.Fatalf("expected 2 medications, got %d", len(meds))
	}
	if meds[0].ID != 3 || meds[1].ID != 1 {
		t.Errorf("expected order [3 1], got [%d %d]", meds[0].ID, meds[1].ID)
	}
}

func TestCatalog_Search_CommercialNameFirst(t *testing.T) {
	c := newTestCatalog()

	results := c.Search("panadol", 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 1 || results[1].ID != 2 {
		t.Errorf("expected ids [1 2], got [%d %d]", results[0].ID, results[1].ID)
	}
}

func TestCatalog_Search_ByGeneric(t *testing.T) {
	c := newTestCatalog()

	results := c.Search("paracetamol", 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	results = c.Search("metformin", 10)
	if len(results) != 1 || results[0].ID != 4 {
		t.Fatalf("expected glucophage for metformin, got %v", results)
	}
}

func TestCatalog_Search_Reflexive(t *testing.T) {
	// Searching a medication's own commercial name always returns it.
	c := newTestCatalog()
	for _, id := range []int{1, 2, 3, 4, 5, 6} {
		m, _ := c.Get(id)
		found := false
		for _, r := range c.Search(m.CommercialName, 10) {
			if r.ID == id {
				found = true
			}
		}
		if !found {
			t.Errorf("search %q did not return medication %d", m.CommercialName, id)
		}
	}
}

func TestCatalog_Search_Limit(t *testing.T) {
	c := newTestCatalog()

	results := c.Search("tab", 2)
	if len(results) != 2 {
		t.Errorf("expected limit 2, got %d results", len(results))
	}
}

func TestCatalog_Search_NoMatch(t *testing.T) {
	c := newTestCatalog()

	if results := c.Search("xyzzy", 10); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestCatalog_IsHighAlert(t *testing.T) {
	c := newTestCatalog()

	if !c.IsHighAlert(5) {
		t.Error("warfarin should be high-alert")
	}
	if c.IsHighAlert(1) {
		t.Error("paracetamol should not be high-alert")
	}
	if c.IsHighAlert(99) {
		t.Error("unknown id should not be high-alert")
	}
}

func TestCatalog_Similar(t *testing.T) {
	c := newTestCatalog()

	similar := c.Similar(1)
	if len(similar) != 1 || similar[0].ID != 2 {
		t.Fatalf("expected [2], got %v", similar)
	}

	if similar := c.Similar(6); len(similar) != 0 {
		t.Errorf("expected no similar medications for lasix, got %d", len(similar))
	}
	if similar := c.Similar(99); similar != nil {
		t.Errorf("expected nil for unknown id, got %v", similar)
	}
}

func TestCatalog_PutReplace(t *testing.T) {
	c := newTestCatalog()

	c.Put(FromCommercialName(1, "Panadol Advance 24/Tab"))

	if c.Count() != 6 {
		t.Errorf("expected count 6 after replace, got %d", c.Count())
	}
	m, err := c.Get(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.CommercialName != "Panadol Advance 24/Tab" {
		t.Errorf("expected replaced name, got %s", m.CommercialName)
	}
	// The old row's index entries are gone.
	if results := c.Search("500", 10); len(results) != 0 {
		t.Errorf("stale index entry survived replace: %v", results)
	}
}

func TestCatalog_Statistics(t *testing.T) {
	c := newTestCatalog()

	stats := c.Statistics()
	if stats.TotalMedications != 6 {
		t.Errorf("TotalMedications = %d, want 6", stats.TotalMedications)
	}
	if stats.HighAlertCount != 1 {
		t.Errorf("HighAlertCount = %d, want 1", stats.HighAlertCount)
	}
	if stats.WithGenericMapping != 6 {
		t.Errorf("WithGenericMapping = %d, want 6", stats.WithGenericMapping)
	}
	if stats.DosageFormCounts["tablet"] != 6 {
		t.Errorf("tablet count = %d, want 6", stats.DosageFormCounts["tablet"])
	}
}

func TestCatalog_Loaded(t *testing.T) {
	c := NewCatalog()
	if c.Loaded() {
		t.Error("new catalog should not report loaded")
	}
	c.MarkLoaded()
	if !c.Loaded() {
		t.Error("catalog should report loaded after MarkLoaded")
	}
}

func TestExtractGenericName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"brand table", "Panadol 500 mg", "paracetamol"},
		{"brand table combination", "Augmentin 1 g Vial", "amoxicillin/clavulanate"},
		{"parenthesized fallback", "Marevan (Warfarin) 5 mg", "warfarin"},
		{"numeric parenthetical ignored", "Somedrug (500)", ""},
		{"no match", "Obscurol Forte", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractGenericName(tt.input); got != tt.want {
				t.Errorf("ExtractGenericName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractIngredients(t *testing.T) {
	ings := ExtractIngredients("Augmentin 1 g Vial")
	if len(ings) != 2 || ings[0] != "amoxicillin" || ings[1] != "clavulanate" {
		t.Errorf("expected combination split, got %v", ings)
	}

	ings = ExtractIngredients("Panadol Extra")
	if len(ings) != 1 || ings[0] != "paracetamol" {
		t.Errorf("expected [paracetamol], got %v", ings)
	}

	if ings := ExtractIngredients("Obscurol Forte"); len(ings) != 0 {
		t.Errorf("expected no ingredients, got %v", ings)
	}
}
