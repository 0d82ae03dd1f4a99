package ddi

// Knowledge is one curated interaction with evidence metadata, richer than a
// Rule: it carries effect prose, onset, documentation grade, and a calibrated
// confidence used by the ensemble predictor.
type Knowledge struct {
	Drug1         string
	Drug2         string
	Severity      Severity
	Mechanism     string
	Effect        string
	Management    string
	EvidenceLevel string // established, probable, suspected, possible
	Frequency     string // frequent, infrequent, rare
	Onset         string // rapid, delayed
	Documentation string // excellent, good, fair, poor
	Confidence    float64
}

// knowledgeBase is ordered so partial-match scans are deterministic.
var knowledgeBase = []Knowledge{
	// Anticoagulants
	{"warfarin", "aspirin", SeverityMajor,
		"Additive anticoagulant effects + GI mucosal damage",
		"Increased bleeding risk, especially GI hemorrhage",
		"Avoid combination if possible. If necessary, use lowest aspirin dose (≤100mg), monitor INR closely, consider PPI",
		"established", "frequent", "delayed", "excellent", 0.98},
	{"warfarin", "ibuprofen", SeverityMajor,
		"NSAIDs inhibit platelet function and damage GI mucosa; may displace warfarin from protein binding",
		"2-3x increased risk of GI bleeding",
		"Avoid NSAIDs. Use acetaminophen for pain. If NSAID necessary, use shortest duration with PPI",
		"established", "frequent", "rapid", "excellent", 0.97},
	{"warfarin", "metronidazole", SeverityMajor,
		"Metronidazole inhibits CYP2C9-mediated warfarin metabolism",
		"INR increase of 50-100%, bleeding risk",
		"Reduce warfarin dose by 25-50%, monitor INR every 2-3 days during treatment",
		"established", "frequent", "delayed", "excellent", 0.95},
	{"warfarin", "fluconazole", SeverityMajor,
		"Fluconazole is potent CYP2C9 inhibitor",
		"INR may increase 2-3 fold",
		"Reduce warfarin by 50% when starting fluconazole, monitor INR frequently",
		"established", "frequent", "delayed", "excellent", 0.96},
	{"warfarin", "amiodarone", SeverityMajor,
		"Amiodarone inhibits CYP2C9, CYP3A4, and P-glycoprotein",
		"INR increase 30-50%, effect persists weeks after amiodarone discontinued",
		"Reduce warfarin by 30-50%, monitor INR weekly for 6-8 weeks",
		"established", "frequent", "delayed", "excellent", 0.97},

	// Cardiac glycosides
	{"digoxin", "amiodarone", SeverityMajor,
		"Amiodarone inhibits P-glycoprotein efflux of digoxin, reduces renal and nonrenal clearance",
		"Digoxin levels increase 70-100%",
		"Reduce digoxin dose by 50% when starting amiodarone, monitor levels",
		"established", "frequent", "delayed", "excellent", 0.96},
	{"digoxin", "verapamil", SeverityMajor,
		"Verapamil inhibits P-glycoprotein and reduces digoxin renal clearance",
		"Digoxin levels increase 50-75%",
		"Reduce digoxin dose by 33-50%, monitor levels and for bradycardia",
		"established", "frequent", "delayed", "excellent", 0.94},
	{"digoxin", "clarithromycin", SeverityMajor,
		"Clarithromycin inhibits P-glycoprotein and gut bacteria that inactivate digoxin",
		"Digoxin levels may double",
		"Use azithromycin as alternative, or reduce digoxin and monitor",
		"established", "frequent", "delayed", "good", 0.92},

	// QT prolongation
	{"amiodarone", "ciprofloxacin", SeverityMajor,
		"Additive QT prolongation",
		"Increased risk of torsades de pointes, sudden cardiac death",
		"Avoid combination. Use alternative antibiotic (e.g., amoxicillin). If unavoidable, monitor ECG",
		"established", "infrequent", "rapid", "good", 0.93},
	{"amiodarone", "levofloxacin", SeverityMajor,
		"Additive QT prolongation",
		"Torsades de pointes risk",
		"Avoid combination, use non-fluoroquinolone antibiotic",
		"established", "infrequent", "rapid", "good", 0.93},
	{"clarithromycin", "domperidone", SeverityMajor,
		"Both prolong QT; clarithromycin increases domperidone levels via CYP3A4 inhibition",
		"Significant QT prolongation, arrhythmia risk",
		"Contraindicated combination. Use metoclopramide or alternative antibiotic",
		"established", "infrequent", "rapid", "good", 0.91},

	// Serotonin syndrome
	{"escitalopram", "tramadol", SeverityMajor,
		"Both increase serotonergic activity",
		"Serotonin syndrome: hyperthermia, rigidity, myoclonus, autonomic instability",
		"Use alternative analgesic. If combination necessary, use lowest doses and monitor for serotonin syndrome",
		"established", "infrequent", "rapid", "good", 0.92},
	{"fluoxetine", "tramadol", SeverityMajor,
		"Serotonergic synergism; fluoxetine also inhibits tramadol metabolism",
		"Serotonin syndrome, seizure risk increased",
		"Avoid combination. Use non-serotonergic analgesics",
		"established", "infrequent", "rapid", "good", 0.93},
	{"sertraline", "linezolid", SeverityMajor,
		"Linezolid is reversible MAO inhibitor",
		"Severe serotonin syndrome",
		"Contraindicated. Stop SSRI 2 weeks before linezolid or use alternative antibiotic",
		"established", "frequent", "rapid", "excellent", 0.96},

	// Statins
	{"simvastatin", "clarithromycin", SeverityMajor,
		"Clarithromycin inhibits CYP3A4, dramatically increasing statin exposure",
		"10-fold increase in simvastatin levels, rhabdomyolysis risk",
		"Contraindicated. Hold simvastatin during clarithromycin course, or use pravastatin/rosuvastatin",
		"established", "infrequent", "delayed", "excellent", 0.95},
	{"simvastatin", "itraconazole", SeverityMajor,
		"Itraconazole potent CYP3A4 inhibitor",
		"Massive increase in statin levels, rhabdomyolysis",
		"Contraindicated combination",
		"established", "infrequent", "delayed", "excellent", 0.96},
	{"atorvastatin", "clarithromycin", SeverityModerate,
		"CYP3A4 inhibition",
		"Increased atorvastatin levels, myopathy risk",
		"Limit atorvastatin to 20mg during clarithromycin, or use azithromycin",
		"established", "infrequent", "delayed", "good", 0.89},

	// ACE inhibitors
	{"lisinopril", "spironolactone", SeverityMajor,
		"Both cause potassium retention",
		"Hyperkalemia, especially in renal impairment or diabetes",
		"Monitor potassium within 1 week, then regularly. Avoid in CKD stage 4-5",
		"established", "frequent", "delayed", "excellent", 0.94},
	{"lisinopril", "potassium", SeverityMajor,
		"ACE inhibitors reduce aldosterone, decreasing potassium excretion",
		"Hyperkalemia",
		"Avoid potassium supplements unless documented hypokalemia. Monitor closely",
		"established", "frequent", "delayed", "excellent", 0.93},

	// Metformin
	{"metformin", "contrast", SeverityMajor,
		"Contrast may cause acute kidney injury, impairing metformin clearance",
		"Lactic acidosis",
		"Hold metformin day of and 48h after contrast. Resume after confirming stable renal function",
		"established", "rare", "delayed", "excellent", 0.95},

	// Lithium
	{"lithium", "ibuprofen", SeverityMajor,
		"NSAIDs reduce lithium renal clearance via prostaglandin inhibition",
		"Lithium levels increase 15-50%, toxicity risk",
		"Avoid NSAIDs. Use acetaminophen. If NSAID necessary, reduce lithium dose and monitor levels",
		"established", "frequent", "delayed", "excellent", 0.94},
	{"lithium", "lisinopril", SeverityMajor,
		"ACE inhibitors reduce lithium clearance",
		"Lithium toxicity",
		"Monitor lithium levels closely when starting/stopping ACE inhibitor",
		"established", "frequent", "delayed", "good", 0.91},

	// Theophylline
	{"theophylline", "ciprofloxacin", SeverityMajor,
		"Ciprofloxacin inhibits CYP1A2, main theophylline metabolizing enzyme",
		"Theophylline levels increase 15-90%, toxicity (seizures, arrhythmias)",
		"Reduce theophylline by 30-50%, monitor levels. Consider alternative antibiotic",
		"established", "frequent", "delayed", "excellent", 0.95},
	{"theophylline", "erythromycin", SeverityMajor,
		"Erythromycin inhibits CYP3A4 and CYP1A2",
		"Theophylline levels increase 25-50%",
		"Monitor theophylline levels, consider azithromycin as alternative",
		"established", "frequent", "delayed", "excellent", 0.93},

	// Opioids
	{"morphine", "diazepam", SeverityMajor,
		"Additive CNS and respiratory depression",
		"Enhanced sedation, respiratory depression, death",
		"Avoid combination if possible. If necessary, use lowest effective doses with monitoring",
		"established", "frequent", "rapid", "excellent", 0.96},
	{"fentanyl", "alprazolam", SeverityMajor,
		"Additive CNS and respiratory depression",
		"Profound sedation, respiratory depression, coma, death",
		"FDA black box warning. Avoid combination. If necessary, limit doses and duration",
		"established", "frequent", "rapid", "excellent", 0.97},

	// Diabetes
	{"glipizide", "fluconazole", SeverityMajor,
		"Fluconazole inhibits CYP2C9-mediated sulfonylurea metabolism",
		"Prolonged hypoglycemia",
		"Monitor blood glucose closely, consider 50% reduction in sulfonylurea",
		"established", "frequent", "delayed", "good", 0.91},
	{"metformin", "alcohol", SeverityModerate,
		"Alcohol potentiates metformin effect on lactate metabolism",
		"Increased lactic acidosis risk, hypoglycemia",
		"Limit alcohol consumption, avoid binge drinking",
		"probable", "infrequent", "rapid", "fair", 0.82},
}
