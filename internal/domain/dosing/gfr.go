package dosing

import (
	"math"

	"github.com/healthflow/rxguard/internal/domain/clinical"
)

// CockcroftGault estimates creatinine clearance in mL/min. This is the
// formula drug dosing references assume. Returns 0 when creatinine is not
// positive.
func CockcroftGault(age int, weightKg, serumCreatinine float64, female bool) float64 {
	if serumCreatinine <= 0 {
		return 0
	}
	crcl := (float64(140-age) * weightKg) / (72 * serumCreatinine)
	if female {
		crcl *= 0.85
	}
	return round1(crcl)
}

// CKDEPI estimates eGFR in mL/min/1.73m² with the 2021 race-free CKD-EPI
// equation, for callers that prefer eGFR over creatinine clearance.
func CKDEPI(age int, serumCreatinine float64, female bool) float64 {
	kappa, alpha, femaleFactor := 0.9, -0.302, 1.0
	if female {
		kappa, alpha, femaleFactor = 0.7, -0.241, 1.012
	}

	scrKappa := serumCreatinine / kappa
	exp := alpha
	if scrKappa > 1 {
		exp = -1.200
	}
	egfr := 142 * math.Pow(scrKappa, exp) * math.Pow(0.9938, float64(age)) * femaleFactor
	return round1(egfr)
}

// ClassifyRenal maps a GFR to the renal stage. Boundaries are inclusive at
// the top of each stage: 90 is normal, 60-89 mild, 30-59 moderate, 15-29
// severe, below 15 esrd.
func ClassifyRenal(gfr float64) clinical.RenalImpairment {
	switch {
	case gfr >= 90:
		return clinical.RenalNormal
	case gfr >= 60:
		return clinical.RenalMild
	case gfr >= 30:
		return clinical.RenalModerate
	case gfr >= 15:
		return clinical.RenalSevere
	default:
		return clinical.RenalESRD
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
