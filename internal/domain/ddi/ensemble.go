package ddi

import (
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// severityNone marks a pair the predictor considers non-interacting. It is
// not a wire Severity token; predictions carrying it are filtered before
// they reach callers of CheckMedications.
const severityNone = "none"

// Prediction is the combined verdict of the knowledge base and the embedding
// classifier for one drug pair. Severity fields are plain strings because the
// classifier emits "none" and "unknown" alongside the closed Severity set.
// All fields are copies; a Prediction never aliases the knowledge base.
type Prediction struct {
	Drug1 string `json:"drug1"`
	Drug2 string `json:"drug2"`

	RuleMatch      bool    `json:"rule_based_match"`
	RuleSeverity   string  `json:"rule_severity,omitempty"`
	RuleConfidence float64 `json:"rule_confidence"`

	MLProbability float64 `json:"ml_probability"`
	MLSeverity    string  `json:"ml_severity"`

	FinalSeverity   string  `json:"final_severity"`
	FinalConfidence float64 `json:"final_confidence"`

	Mechanism     string `json:"mechanism,omitempty"`
	Effect        string `json:"effect,omitempty"`
	Management    string `json:"management,omitempty"`
	EvidenceLevel string `json:"evidence_level,omitempty"`

	RequiresReview    bool `json:"requires_review"`
	IsNovelPrediction bool `json:"is_novel_prediction"`
}

// ---------------------------------------------------------------------------
// Drug embeddings
// ---------------------------------------------------------------------------

// drugEmbedding holds an 8-dimensional class vector for one generic drug.
// Dimension 0 scores anticoagulant activity, 4 cardiac, 6 CNS; the remaining
// dimensions shape class similarity only.
type drugEmbedding struct {
	name string
	vec  [8]float64
}

// drugEmbeddings is ordered so partial-match scans are deterministic.
var drugEmbeddings = []drugEmbedding{
	// Anticoagulants
	{"warfarin", [8]float64{0.9, 0.1, 0.2, 0.1, 0.8, 0.1, 0.1, 0.9}},
	{"heparin", [8]float64{0.85, 0.15, 0.25, 0.1, 0.75, 0.1, 0.15, 0.85}},
	{"rivaroxaban", [8]float64{0.88, 0.12, 0.22, 0.1, 0.78, 0.1, 0.12, 0.87}},

	// NSAIDs
	{"ibuprofen", [8]float64{0.1, 0.9, 0.8, 0.1, 0.3, 0.2, 0.7, 0.2}},
	{"aspirin", [8]float64{0.3, 0.85, 0.75, 0.1, 0.5, 0.2, 0.65, 0.3}},
	{"diclofenac", [8]float64{0.1, 0.88, 0.82, 0.1, 0.28, 0.2, 0.72, 0.18}},

	// Fluoroquinolones
	{"ciprofloxacin", [8]float64{0.2, 0.3, 0.1, 0.9, 0.2, 0.8, 0.3, 0.4}},
	{"levofloxacin", [8]float64{0.22, 0.28, 0.12, 0.88, 0.22, 0.78, 0.32, 0.38}},

	// Macrolides
	{"clarithromycin", [8]float64{0.15, 0.25, 0.15, 0.85, 0.15, 0.7, 0.4, 0.5}},
	{"erythromycin", [8]float64{0.17, 0.27, 0.17, 0.83, 0.17, 0.68, 0.42, 0.48}},
	{"azithromycin", [8]float64{0.14, 0.24, 0.14, 0.8, 0.14, 0.65, 0.38, 0.45}},

	// Antiarrhythmics
	{"amiodarone", [8]float64{0.7, 0.2, 0.1, 0.3, 0.9, 0.4, 0.2, 0.8}},
	{"digoxin", [8]float64{0.65, 0.15, 0.15, 0.25, 0.85, 0.35, 0.25, 0.75}},

	// SSRIs
	{"escitalopram", [8]float64{0.1, 0.1, 0.2, 0.2, 0.1, 0.3, 0.9, 0.3}},
	{"fluoxetine", [8]float64{0.12, 0.12, 0.22, 0.22, 0.12, 0.32, 0.88, 0.32}},
	{"sertraline", [8]float64{0.11, 0.11, 0.21, 0.21, 0.11, 0.31, 0.89, 0.31}},

	// Opioids
	{"tramadol", [8]float64{0.15, 0.2, 0.3, 0.1, 0.15, 0.2, 0.7, 0.6}},
	{"morphine", [8]float64{0.1, 0.15, 0.25, 0.1, 0.1, 0.15, 0.5, 0.85}},
	{"fentanyl", [8]float64{0.08, 0.12, 0.22, 0.08, 0.08, 0.12, 0.45, 0.9}},

	// Statins
	{"simvastatin", [8]float64{0.3, 0.4, 0.5, 0.6, 0.3, 0.5, 0.2, 0.3}},
	{"atorvastatin", [8]float64{0.32, 0.42, 0.48, 0.58, 0.32, 0.48, 0.22, 0.28}},

	// Benzodiazepines
	{"diazepam", [8]float64{0.1, 0.15, 0.2, 0.1, 0.1, 0.15, 0.6, 0.7}},
	{"alprazolam", [8]float64{0.12, 0.17, 0.22, 0.12, 0.12, 0.17, 0.62, 0.72}},
}

// drugAliases maps brand names, Egyptian market names included, onto the
// generic names the knowledge base and embeddings are keyed by.
var drugAliases = map[string]string{
	"panadol":    "paracetamol",
	"tylenol":    "paracetamol",
	"advil":      "ibuprofen",
	"brufen":     "ibuprofen",
	"motrin":     "ibuprofen",
	"voltaren":   "diclofenac",
	"cataflam":   "diclofenac",
	"coumadin":   "warfarin",
	"marevan":    "warfarin",
	"lanoxin":    "digoxin",
	"cordarone":  "amiodarone",
	"ciprobay":   "ciprofloxacin",
	"tavanic":    "levofloxacin",
	"klacid":     "clarithromycin",
	"biaxin":     "clarithromycin",
	"zithromax":  "azithromycin",
	"lipitor":    "atorvastatin",
	"zocor":      "simvastatin",
	"crestor":    "rosuvastatin",
	"cipralex":   "escitalopram",
	"lexapro":    "escitalopram",
	"prozac":     "fluoxetine",
	"zoloft":     "sertraline",
	"xanax":      "alprazolam",
	"valium":     "diazepam",
	"glucophage": "metformin",
	"zestril":    "lisinopril",
	"prinivil":   "lisinopril",
	"aldactone":  "spironolactone",
}

// ---------------------------------------------------------------------------
// Ensemble predictor
// ---------------------------------------------------------------------------

// Ensemble scores drug pairs by combining the curated knowledge base with an
// embedding-similarity classifier. Its output is advisory: it attaches
// confidence and review flags but never replaces Detector as the source of
// DrugInteraction records.
type Ensemble struct {
	knowledge []Knowledge
	aliases   map[string]string
	logger    zerolog.Logger
}

func NewEnsemble(logger zerolog.Logger) *Ensemble {
	e := &Ensemble{
		knowledge: knowledgeBase,
		aliases:   drugAliases,
		logger:    logger.With().Str("component", "ddi-ensemble").Logger(),
	}
	e.logger.Info().
		Int("knowledge_entries", len(e.knowledge)).
		Int("embedded_drugs", len(drugEmbeddings)).
		Msg("ensemble predictor initialized")
	return e
}

// KnowledgeCount reports the number of curated knowledge base entries.
func (e *Ensemble) KnowledgeCount() int { return len(e.knowledge) }

func (e *Ensemble) normalize(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if generic, ok := e.aliases[lower]; ok {
		return generic
	}
	return lower
}

// lookupKnowledge tries exact pair matches in both orientations, then falls
// back to substring matching so "warfarin sodium" still finds "warfarin".
func (e *Ensemble) lookupKnowledge(drug1, drug2 string) *Knowledge {
	for i := range e.knowledge {
		k := &e.knowledge[i]
		if (k.Drug1 == drug1 && k.Drug2 == drug2) || (k.Drug1 == drug2 && k.Drug2 == drug1) {
			return k
		}
	}
	for i := range e.knowledge {
		k := &e.knowledge[i]
		if partialMatch(drug1, k.Drug1) && partialMatch(drug2, k.Drug2) {
			return k
		}
		if partialMatch(drug1, k.Drug2) && partialMatch(drug2, k.Drug1) {
			return k
		}
	}
	return nil
}

func partialMatch(name, known string) bool {
	return strings.Contains(name, known) || strings.Contains(known, name)
}

// embeddingFor resolves a drug name to its class vector, exact match first,
// substring match second.
func embeddingFor(drug string) ([8]float64, bool) {
	drug = strings.ToLower(drug)
	for _, d := range drugEmbeddings {
		if d.name == drug {
			return d.vec, true
		}
	}
	for _, d := range drugEmbeddings {
		if strings.Contains(drug, d.name) || strings.Contains(d.name, drug) {
			return d.vec, true
		}
	}
	return [8]float64{}, false
}

func cosine(a, b [8]float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// interactionProbability scores a pair from embeddings alone. Drugs without
// an embedding yield (0.5, "unknown"): the classifier refuses to rule an
// unrecognized drug in or out.
func interactionProbability(drug1, drug2 string) (float64, string) {
	e1, ok1 := embeddingFor(drug1)
	e2, ok2 := embeddingFor(drug2)
	if !ok1 || !ok2 {
		return 0.5, "unknown"
	}

	cosSim := cosine(e1, e2)

	bleedingRisk := (e1[0] + e2[0]) / 2
	qtRisk := (e1[4] + e2[4]) / 2
	cnsRisk := (e1[6] + e2[6]) / 2
	maxRisk := math.Max(bleedingRisk, math.Max(qtRisk, cnsRisk))

	// Same-class pairs escalate; unrelated classes discount the raw risk.
	var probability float64
	switch {
	case cosSim > 0.8:
		probability = math.Min(0.95, maxRisk+0.2)
	case cosSim > 0.5:
		probability = maxRisk
	default:
		probability = maxRisk * 0.7
	}

	switch {
	case probability > 0.8:
		return probability, SeverityMajor.String()
	case probability > 0.5:
		return probability, SeverityModerate.String()
	case probability > 0.3:
		return probability, SeverityMinor.String()
	default:
		return probability, severityNone
	}
}

// Predict scores one drug pair. A knowledge base hit always decides the final
// severity; the classifier alone can only propose novel interactions, at
// reduced confidence, and anything it proposes above 0.5 probability is
// flagged for pharmacist review.
func (e *Ensemble) Predict(drug1Name, drug2Name string) Prediction {
	drug1 := e.normalize(drug1Name)
	drug2 := e.normalize(drug2Name)

	kb := e.lookupKnowledge(drug1, drug2)
	mlProb, mlSeverity := interactionProbability(drug1, drug2)

	p := Prediction{
		Drug1:         drug1,
		Drug2:         drug2,
		MLProbability: mlProb,
		MLSeverity:    mlSeverity,
	}
	if kb != nil {
		p.RuleMatch = true
		p.RuleSeverity = kb.Severity.String()
		p.RuleConfidence = kb.Confidence
		p.Mechanism = kb.Mechanism
		p.Effect = kb.Effect
		p.Management = kb.Management
		p.EvidenceLevel = kb.EvidenceLevel
	}

	switch {
	case p.RuleMatch:
		p.FinalSeverity = p.RuleSeverity
		p.FinalConfidence = math.Max(p.RuleConfidence, mlProb)
	case mlProb > 0.7:
		p.FinalSeverity = mlSeverity
		p.FinalConfidence = mlProb * 0.8
		p.IsNovelPrediction = true
	case mlProb > 0.5:
		p.FinalSeverity = mlSeverity
		p.FinalConfidence = mlProb * 0.6
		p.IsNovelPrediction = true
	default:
		p.FinalSeverity = severityNone
		p.FinalConfidence = 1 - mlProb
	}
	p.RequiresReview = p.IsNovelPrediction && mlProb > 0.5

	return p
}

// CheckMedications scores every unordered pair, drops non-interacting pairs,
// and sorts major first, ties broken by descending confidence.
func (e *Ensemble) CheckMedications(names []string) []Prediction {
	var predictions []Prediction
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			p := e.Predict(names[i], names[j])
			if p.FinalSeverity == severityNone {
				continue
			}
			predictions = append(predictions, p)
		}
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		ri := Severity(predictions[i].FinalSeverity).Rank()
		rj := Severity(predictions[j].FinalSeverity).Rank()
		if ri != rj {
			return ri < rj
		}
		return predictions[i].FinalConfidence > predictions[j].FinalConfidence
	})
	return predictions
}
