// Package medication holds the drug catalog: the indexed, read-mostly set of
// medications that every validation request resolves against. The catalog is
// loaded once at startup (or through the admin path) and is safe for
// concurrent readers.
package medication

import (
	"errors"
	"strings"
	"sync"
)

var (
	ErrNotFound         = errors.New("medication not found")
	ErrCatalogNotLoaded = errors.New("catalog not loaded")
)

// brandGenerics maps Egyptian-market brand names to generic names. Lookup is
// substring-based over the lowercased commercial name; order matters because
// the first hit wins.
var brandGenerics = []struct {
	brand   string
	generic string
}{
	{"panadol", "paracetamol"},
	{"cataflam", "diclofenac"},
	{"augmentin", "amoxicillin/clavulanate"},
	{"flagyl", "metronidazole"},
	{"voltaren", "diclofenac"},
	{"aspocid", "aspirin"},
	{"brufen", "ibuprofen"},
	{"amoxil", "amoxicillin"},
	{"zithromax", "azithromycin"},
	{"glucophage", "metformin"},
	{"lasix", "furosemide"},
	{"lipitor", "atorvastatin"},
	{"nexium", "esomeprazole"},
	{"januvia", "sitagliptin"},
	{"janumet", "sitagliptin/metformin"},
	{"concor", "bisoprolol"},
	{"plavix", "clopidogrel"},
	{"coversyl", "perindopril"},
	{"adalat", "nifedipine"},
	{"lanoxin", "digoxin"},
	{"synthroid", "levothyroxine"},
	{"eltroxin", "levothyroxine"},
	{"ventolin", "salbutamol"},
	{"seretide", "fluticasone/salmeterol"},
	{"symbicort", "budesonide/formoterol"},
	{"klacid", "clarithromycin"},
	{"ciprobay", "ciprofloxacin"},
	{"tavanic", "levofloxacin"},
	{"zocor", "simvastatin"},
	{"crestor", "rosuvastatin"},
	{"cordarone", "amiodarone"},
	{"zestril", "lisinopril"},
	{"tritace", "ramipril"},
	{"aldactone", "spironolactone"},
	{"cipralex", "escitalopram"},
	{"prozac", "fluoxetine"},
	{"xanax", "alprazolam"},
	{"tegretol", "carbamazepine"},
	{"neurontin", "gabapentin"},
	{"amaryl", "glimepiride"},
	{"daonil", "glyburide"},
	{"diflucan", "fluconazole"},
	{"sporanox", "itraconazole"},
	{"motilium", "domperidone"},
}

// highAlertDrugs require extra verification before dispensing. Substring
// match over the commercial and generic names.
var highAlertDrugs = []string{
	"warfarin", "heparin", "insulin", "digoxin", "methotrexate",
	"chemotherapy", "opioid", "morphine", "fentanyl", "potassium",
	"magnesium sulfate", "epinephrine", "norepinephrine", "dopamine",
	"amiodarone", "lidocaine", "propofol", "ketamine", "rocuronium",
}

// ExtractGenericName resolves a commercial name to a generic via the brand
// table, falling back to a parenthesized non-numeric token in the name
// (e.g. "Advil (Ibuprofen)"). Empty string when nothing matches.
func ExtractGenericName(commercialName string) string {
	lower := strings.ToLower(commercialName)
	for _, bg := range brandGenerics {
		if strings.Contains(lower, bg.brand) {
			return bg.generic
		}
	}
	if match := parenPattern.FindStringSubmatch(commercialName); match != nil {
		token := strings.TrimSpace(match[1])
		if token != "" && !isAllDigits(token) {
			return strings.ToLower(token)
		}
	}
	return ""
}

// ExtractIngredients derives active ingredients from the brand table,
// splitting combination generics of the form "a/b" into both components.
func ExtractIngredients(commercialName string) []string {
	lower := strings.ToLower(commercialName)
	var ingredients []string
	for _, bg := range brandGenerics {
		if strings.Contains(lower, bg.brand) {
			if strings.Contains(bg.generic, "/") {
				ingredients = append(ingredients, strings.Split(bg.generic, "/")...)
			} else {
				ingredients = append(ingredients, bg.generic)
			}
		}
	}
	return ingredients
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// Statistics summarises catalog contents.
type Statistics struct {
	TotalMedications   int            `json:"total_medications"`
	UniqueGenerics     int            `json:"unique_generics"`
	UniqueIngredients  int            `json:"unique_ingredients"`
	HighAlertCount     int            `json:"high_alert_count"`
	DosageFormCounts   map[string]int `json:"dosage_form_distribution"`
	WithGenericMapping int            `json:"with_generic_mapping"`
}

// Catalog is a thread-safe, indexed medication store. A single writer loads
// rows; any number of readers may query concurrently.
type Catalog struct {
	mu          sync.RWMutex
	medications map[int]*Medication
	// insertion order of ids, for deterministic iteration
	order           []int
	nameIndex       map[string][]int
	genericIndex    map[string][]int
	ingredientIndex map[string][]int
	// key insertion order, so index scans are deterministic too
	genericKeys    []string
	ingredientKeys []string
	loaded         bool
}

func NewCatalog() *Catalog {
	return &Catalog{
		medications:     make(map[int]*Medication),
		nameIndex:       make(map[string][]int),
		genericIndex:    make(map[string][]int),
		ingredientIndex: make(map[string][]int),
	}
}

// Put inserts or replaces a medication and rebuilds its index entries. A
// replaced row is de-indexed first, which keeps repeated loads idempotent.
func (c *Catalog) Put(m *Medication) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(m)
	c.loaded = true
}

func (c *Catalog) put(m *Medication) {
	if old, ok := c.medications[m.ID]; ok {
		c.deindex(old)
	} else {
		c.order = append(c.order, m.ID)
	}
	c.medications[m.ID] = m
	c.index(m)
}

func (c *Catalog) index(m *Medication) {
	nameKey := NormalizeName(m.CommercialName)
	c.nameIndex[nameKey] = appendUnique(c.nameIndex[nameKey], m.ID)

	if g := ExtractGenericName(m.CommercialName); g != "" {
		m.GenericName = g
	}
	if m.GenericName != "" {
		m.GenericName = strings.ToLower(m.GenericName)
		key := m.GenericName
		if _, seen := c.genericIndex[key]; !seen {
			c.genericKeys = append(c.genericKeys, key)
		}
		c.genericIndex[key] = appendUnique(c.genericIndex[key], m.ID)
	}

	if ings := ExtractIngredients(m.CommercialName); len(ings) > 0 {
		m.ActiveIngredients = ings
	}
	for i, ing := range m.ActiveIngredients {
		key := strings.ToLower(ing)
		m.ActiveIngredients[i] = key
		if _, seen := c.ingredientIndex[key]; !seen {
			c.ingredientKeys = append(c.ingredientKeys, key)
		}
		c.ingredientIndex[key] = appendUnique(c.ingredientIndex[key], m.ID)
	}
}

func (c *Catalog) deindex(m *Medication) {
	nameKey := NormalizeName(m.CommercialName)
	c.nameIndex[nameKey] = removeID(c.nameIndex[nameKey], m.ID)
	if m.GenericName != "" {
		key := strings.ToLower(m.GenericName)
		c.genericIndex[key] = removeID(c.genericIndex[key], m.ID)
	}
	for _, ing := range m.ActiveIngredients {
		key := strings.ToLower(ing)
		c.ingredientIndex[key] = removeID(c.ingredientIndex[key], m.ID)
	}
}

func appendUnique(ids []int, id int) []int {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []int, id int) []int {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// MarkLoaded records that a load pass finished, even an empty one.
func (c *Catalog) MarkLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
}

// Loaded reports whether any load has completed.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Count returns the number of medications in the catalog.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.medications)
}

// Get returns the medication with the given id.
func (c *Catalog) Get(id int) (*Medication, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.medications[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

// GetMany returns the medications for the given ids, preserving order and
// dropping unknown ids.
func (c *Catalog) GetMany(ids []int) []*Medication {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Medication, 0, len(ids))
	for _, id := range ids {
		if m, ok := c.medications[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Search returns up to limit medications, ranked by commercial-name match
// first, then generic-index match, then ingredient-index match, deduplicated
// by id.
func (c *Catalog) Search(query string, limit int) []*Medication {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var results []*Medication
	seen := make(map[int]bool)

	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			results = append(results, c.medications[id])
		}
	}

	for _, id := range c.order {
		if strings.Contains(strings.ToLower(c.medications[id].CommercialName), q) {
			add(id)
		}
	}
	for _, key := range c.genericKeys {
		if strings.Contains(key, q) {
			for _, id := range c.genericIndex[key] {
				add(id)
			}
		}
	}
	for _, key := range c.ingredientKeys {
		if strings.Contains(key, q) {
			for _, id := range c.ingredientIndex[key] {
				add(id)
			}
		}
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// IsHighAlert reports whether the medication matches the high-alert list by
// commercial or generic name. Unknown ids report false.
func (c *Catalog) IsHighAlert(id int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isHighAlertLocked(id)
}

// Similar returns other medications sharing the same generic name.
func (c *Catalog) Similar(id int) []*Medication {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.medications[id]
	if !ok || m.GenericName == "" {
		return nil
	}
	var out []*Medication
	for _, otherID := range c.genericIndex[strings.ToLower(m.GenericName)] {
		if otherID != id {
			out = append(out, c.medications[otherID])
		}
	}
	return out
}

// Statistics computes summary counts over the catalog.
func (c *Catalog) Statistics() Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Statistics{
		TotalMedications:  len(c.medications),
		UniqueGenerics:    len(c.genericKeys),
		UniqueIngredients: len(c.ingredientKeys),
		DosageFormCounts:  make(map[string]int),
	}
	for _, m := range c.medications {
		stats.DosageFormCounts[string(m.DosageForm)]++
		if m.GenericName != "" {
			stats.WithGenericMapping++
		}
	}
	for _, id := range c.order {
		if c.isHighAlertLocked(id) {
			stats.HighAlertCount++
		}
	}
	return stats
}

func (c *Catalog) isHighAlertLocked(id int) bool {
	m := c.medications[id]
	if m == nil {
		return false
	}
	nameLower := strings.ToLower(m.CommercialName)
	for _, drug := range highAlertDrugs {
		if strings.Contains(nameLower, drug) {
			return true
		}
	}
	if m.GenericName != "" {
		genericLower := strings.ToLower(m.GenericName)
		for _, drug := range highAlertDrugs {
			if strings.Contains(genericLower, drug) {
				return true
			}
		}
	}
	return false
}
