package ddi

import (
	"regexp"
	"strings"
)

// classOrder fixes iteration order over drugClasses so identifier sets come
// out deterministic.
var classOrder = []string{
	"ace_inhibitor", "arb", "nsaid", "ssri", "opioid", "benzodiazepine",
	"statin", "fluoroquinolone", "maoi", "sulfonylurea", "potassium", "diuretic",
}

// drugClasses maps a therapeutic-class slug to member substrings. Membership
// is substring-based over the generic or commercial name; the nsaid class
// deliberately carries Egyptian brand names (brufen, cataflam, voltaren).
var drugClasses = map[string][]string{
	"ace_inhibitor": {
		"lisinopril", "enalapril", "ramipril", "captopril", "perindopril",
		"quinapril", "benazepril", "fosinopril", "moexipril", "trandolapril",
	},
	"arb": {
		"losartan", "valsartan", "irbesartan", "candesartan", "olmesartan",
		"telmisartan", "eprosartan", "azilsartan",
	},
	"nsaid": {
		"ibuprofen", "diclofenac", "naproxen", "indomethacin", "piroxicam",
		"meloxicam", "celecoxib", "ketoprofen", "aspirin", "ketorolac",
		"brufen", "cataflam", "voltaren",
	},
	"ssri": {
		"fluoxetine", "sertraline", "paroxetine", "citalopram", "escitalopram",
		"fluvoxamine",
	},
	"opioid": {
		"morphine", "codeine", "tramadol", "fentanyl", "oxycodone",
		"hydrocodone", "hydromorphone", "meperidine", "methadone",
	},
	"benzodiazepine": {
		"diazepam", "lorazepam", "alprazolam", "clonazepam", "midazolam",
		"temazepam", "oxazepam", "chlordiazepoxide",
	},
	"statin": {
		"simvastatin", "atorvastatin", "rosuvastatin", "pravastatin",
		"lovastatin", "fluvastatin", "pitavastatin",
	},
	"fluoroquinolone": {
		"ciprofloxacin", "levofloxacin", "moxifloxacin", "ofloxacin",
		"norfloxacin", "gatifloxacin",
	},
	"maoi": {
		"phenelzine", "tranylcypromine", "isocarboxazid", "selegiline",
		"rasagiline",
	},
	"sulfonylurea": {
		"glipizide", "glyburide", "glimepiride", "glibenclamide", "gliclazide",
	},
	"potassium": {
		"potassium chloride", "potassium citrate", "potassium", "k-dur",
		"slow-k", "kay ciel",
	},
	"diuretic": {
		"furosemide", "hydrochlorothiazide", "chlorthalidone", "bumetanide",
		"torsemide", "metolazone", "lasix",
	},
}

// Classes returns the therapeutic-class slugs whose member substrings occur
// in the drug name, in the fixed class order.
func Classes(drugName string) []string {
	lower := strings.ToLower(drugName)
	var classes []string
	for _, slug := range classOrder {
		for _, member := range drugClasses[slug] {
			if strings.Contains(lower, member) {
				classes = append(classes, slug)
				break
			}
		}
	}
	return classes
}

var (
	doseTokenPattern  = regexp.MustCompile(`(?i)\d+\s*(mg|g|ml|mcg|µg|%)`)
	countTokenPattern = regexp.MustCompile(`(?i)\d+\s*/\s*(Tab|Cap|Amp|Sach)`)
	formTokenPattern  = regexp.MustCompile(`(?i)\b(Tab|Cap|Syrup|Amp|Cream|Gel|Oint|F\.C\.Tab)\b`)
)

// normalizeDrugName strips dose, count, and form tokens for rule matching.
// Looser than medication.NormalizeName: punctuation and standalone digits
// survive, matching how rule identifiers were authored.
func normalizeDrugName(name string) string {
	n := doseTokenPattern.ReplaceAllString(name, "")
	n = countTokenPattern.ReplaceAllString(n, "")
	n = formTokenPattern.ReplaceAllString(n, "")
	return strings.Join(strings.Fields(strings.ToLower(n)), " ")
}
