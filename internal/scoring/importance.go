package scoring

import (
	"math"
	"strconv"

	"github.com/genome-trait-server/internal/domain"
)

// pValueCap bounds the statistical contribution so extreme p-values cannot
// dominate ordering.
const pValueCap = 50.0

// PValueScore converts a p-value string to its -log10 contribution, capped
// at 50. Non-numeric or non-positive values contribute zero, never an error.
func PValueScore(pValue string) float64 {
	if pValue == "" {
		return 0
	}
	p, err := strconv.ParseFloat(pValue, 64)
	if err != nil || p <= 0 {
		return 0
	}
	return math.Min(-math.Log10(p), pValueCap)
}

// ScoreImportance combines the statistical-significance contribution with
// the clinical-significance contribution into one ranking value. The result
// is always non-negative.
func ScoreImportance(pValue string, clinical *domain.ClinicalInfo) float64 {
	score := PValueScore(pValue)
	if clinical != nil && clinical.HasClinvar {
		score += float64(clinical.MaxSignificanceScore) * 2
	}
	return score
}
