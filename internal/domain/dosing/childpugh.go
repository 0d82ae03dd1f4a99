package dosing

import "github.com/healthflow/rxguard/internal/domain/clinical"

// Ascites and encephalopathy grades for Child-Pugh scoring.
const (
	AscitesNone           = "none"
	AscitesMild           = "mild"
	AscitesModerateSevere = "moderate_severe"

	EncephalopathyNone    = "none"
	EncephalopathyGrade12 = "grade_1_2"
	EncephalopathyGrade34 = "grade_3_4"
)

// ChildPugh scores hepatic impairment from the five standard parameters.
// Bilirubin is mg/dL, albumin g/dL. Each parameter contributes 1 to 3
// points; 5-6 is class A, 7-9 class B, 10-15 class C. Unrecognized ascites
// or encephalopathy grades score as the worst grade, matching how the
// scoring sheets treat "worse than listed".
func ChildPugh(bilirubin, albumin, inr float64, ascites, encephalopathy string) (int, clinical.HepaticImpairment) {
	score := 0

	switch {
	case bilirubin < 2:
		score++
	case bilirubin <= 3:
		score += 2
	default:
		score += 3
	}

	switch {
	case albumin > 3.5:
		score++
	case albumin >= 2.8:
		score += 2
	default:
		score += 3
	}

	switch {
	case inr < 1.7:
		score++
	case inr <= 2.3:
		score += 2
	default:
		score += 3
	}

	switch ascites {
	case AscitesNone:
		score++
	case AscitesMild:
		score += 2
	default:
		score += 3
	}

	switch encephalopathy {
	case EncephalopathyNone:
		score++
	case EncephalopathyGrade12:
		score += 2
	default:
		score += 3
	}

	switch {
	case score <= 6:
		return score, clinical.HepaticChildA
	case score <= 9:
		return score, clinical.HepaticChildB
	default:
		return score, clinical.HepaticChildC
	}
}
