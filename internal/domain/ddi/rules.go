package ddi

// Rule is one row of the critical-interaction base. Drug1/Drug2 are either
// generic drug names or therapeutic-class slugs from the classifier.
type Rule struct {
	Drug1      string
	Drug2      string
	Severity   Severity
	Mechanism  string
	Management string
}

// Slug returns the canonical "drug1-drug2" tag for the rule.
func (r Rule) Slug() string { return r.Drug1 + "-" + r.Drug2 }

const ruleSource = "HealthFlow DDI Rules v1.0"

// criticalRules is the curated high-risk subset. Pairs are matched
// symmetrically; keep each pair listed once.
var criticalRules = []Rule{
	// Anticoagulants
	{"warfarin", "aspirin", SeverityMajor,
		"Increased bleeding risk due to combined antiplatelet and anticoagulant effects",
		"Avoid combination or monitor INR closely. Consider PPI for GI protection."},
	{"warfarin", "nsaid", SeverityMajor,
		"NSAIDs inhibit platelet function and may cause GI bleeding",
		"Avoid NSAIDs if possible. If necessary, use lowest dose for shortest duration."},
	{"warfarin", "metronidazole", SeverityModerate,
		"Metronidazole inhibits warfarin metabolism (CYP2C9)",
		"Monitor INR closely. May need warfarin dose reduction."},
	{"warfarin", "fluconazole", SeverityMajor,
		"Fluconazole inhibits CYP2C9 and CYP3A4, increasing warfarin effect",
		"Reduce warfarin dose by 25-50%. Monitor INR frequently."},
	{"warfarin", "amiodarone", SeverityMajor,
		"Amiodarone inhibits warfarin metabolism",
		"Reduce warfarin dose by 30-50%. Monitor INR weekly for 6 weeks."},

	// ACE inhibitors and potassium
	{"ace_inhibitor", "potassium", SeverityMajor,
		"Risk of severe hyperkalemia",
		"Monitor serum potassium closely. Avoid potassium supplements unless hypokalemic."},
	{"ace_inhibitor", "spironolactone", SeverityModerate,
		"Additive hyperkalemia risk",
		"Monitor potassium, especially in renal impairment."},

	// QT prolongation
	{"amiodarone", "fluoroquinolone", SeverityMajor,
		"Additive QT prolongation risk - risk of torsades de pointes",
		"Avoid combination. If unavoidable, monitor QTc and electrolytes."},
	{"clarithromycin", "domperidone", SeverityMajor,
		"QT prolongation risk",
		"Avoid combination. Use alternative antiemetic."},
	{"erythromycin", "cisapride", SeverityMajor,
		"Severe QT prolongation - fatal arrhythmias reported",
		"Contraindicated combination."},

	// Serotonin syndrome
	{"ssri", "tramadol", SeverityMajor,
		"Serotonin syndrome risk due to combined serotonergic activity",
		"Avoid combination or monitor for serotonin syndrome symptoms."},
	{"ssri", "maoi", SeverityMajor,
		"Life-threatening serotonin syndrome",
		"Contraindicated. Require 2-week washout between medications."},
	{"ssri", "linezolid", SeverityMajor,
		"Linezolid has MAO inhibitor activity - serotonin syndrome risk",
		"Avoid if possible. If necessary, monitor closely for 2 weeks."},

	// Metformin and iodinated contrast
	{"metformin", "iodinated_contrast", SeverityMajor,
		"Risk of lactic acidosis",
		"Hold metformin 48h before and after contrast. Resume after renal function confirmed stable."},

	// Digoxin
	{"digoxin", "amiodarone", SeverityMajor,
		"Amiodarone increases digoxin levels by 70-100%",
		"Reduce digoxin dose by 50%. Monitor levels."},
	{"digoxin", "verapamil", SeverityMajor,
		"Verapamil increases digoxin levels and has additive AV node effects",
		"Reduce digoxin dose. Monitor for bradycardia."},
	{"digoxin", "clarithromycin", SeverityModerate,
		"Macrolides increase digoxin levels via P-glycoprotein inhibition",
		"Monitor digoxin levels and for toxicity signs."},

	// Statins
	{"simvastatin", "clarithromycin", SeverityMajor,
		"Risk of rhabdomyolysis due to CYP3A4 inhibition",
		"Use alternative statin (pravastatin, rosuvastatin) or antibiotic."},
	{"simvastatin", "itraconazole", SeverityMajor,
		"Severe myopathy risk",
		"Contraindicated combination."},
	{"atorvastatin", "clarithromycin", SeverityModerate,
		"Increased statin exposure",
		"Limit atorvastatin to 20mg daily. Monitor for myopathy."},

	// Theophylline
	{"theophylline", "ciprofloxacin", SeverityMajor,
		"Ciprofloxacin inhibits theophylline metabolism",
		"Reduce theophylline dose by 30-50%. Monitor levels."},
	{"theophylline", "erythromycin", SeverityModerate,
		"Macrolides increase theophylline levels",
		"Monitor theophylline levels."},

	// Lithium
	{"lithium", "nsaid", SeverityMajor,
		"NSAIDs reduce lithium clearance, causing toxicity",
		"Avoid if possible. If necessary, monitor lithium levels closely."},
	{"lithium", "ace_inhibitor", SeverityMajor,
		"ACE inhibitors reduce lithium clearance",
		"Monitor lithium levels. May need dose reduction."},
	{"lithium", "diuretic", SeverityModerate,
		"Thiazides and loop diuretics can increase lithium levels",
		"Monitor lithium levels, especially when initiating diuretic."},

	// Methotrexate
	{"methotrexate", "nsaid", SeverityMajor,
		"NSAIDs reduce methotrexate clearance, increasing toxicity",
		"Avoid combination with high-dose MTX. Monitor with low-dose."},
	{"methotrexate", "trimethoprim", SeverityMajor,
		"Additive antifolate effects and reduced MTX clearance",
		"Avoid combination if possible. Monitor blood counts."},

	// Opioids
	{"opioid", "benzodiazepine", SeverityMajor,
		"Additive CNS and respiratory depression",
		"Avoid combination if possible. Use lowest effective doses. Monitor closely."},
	{"opioid", "maoi", SeverityMajor,
		"Risk of serotonin syndrome and respiratory depression",
		"Avoid meperidine. Use other opioids with extreme caution."},

	// Antidiabetics
	{"sulfonylurea", "fluconazole", SeverityModerate,
		"Fluconazole inhibits sulfonylurea metabolism - hypoglycemia risk",
		"Monitor blood glucose closely. May need sulfonylurea dose reduction."},
}

type rulePair struct {
	a, b string
}

// buildRuleIndex indexes rules under both orderings of the pair. Values are
// indices into the rule slice so the detector can collapse a rule matched
// through several identifier paths to one emission.
func buildRuleIndex(rules []Rule) map[rulePair][]int {
	index := make(map[rulePair][]int, len(rules)*2)
	for i, r := range rules {
		index[rulePair{r.Drug1, r.Drug2}] = append(index[rulePair{r.Drug1, r.Drug2}], i)
		if r.Drug1 != r.Drug2 {
			index[rulePair{r.Drug2, r.Drug1}] = append(index[rulePair{r.Drug2, r.Drug1}], i)
		}
	}
	return index
}
