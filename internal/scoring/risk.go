package scoring

import (
	"github.com/genome-trait-server/internal/domain"
)

// commonFrequencyThreshold marks a risk allele as too common in the
// population to be a meaningful differentiator.
const commonFrequencyThreshold = 0.8

// RiskInputs carries the per-association inputs to risk classification.
// Nil pointers take the documented defaults: importance 0, odds ratio 1.0,
// frequency 0, has-risk-allele false.
type RiskInputs struct {
	ImportanceScore     float64
	UserHasRiskAllele   *bool
	OddsRatio           *float64
	RiskAlleleFrequency *float64
}

// ClassifyRisk applies the risk-level rule ladder, first match wins.
func ClassifyRisk(in RiskInputs) domain.RiskLevel {
	importance := in.ImportanceScore
	hasRiskAllele := in.UserHasRiskAllele != nil && *in.UserHasRiskAllele
	oddsRatio := 1.0
	if in.OddsRatio != nil {
		oddsRatio = *in.OddsRatio
	}
	frequency := 0.0
	if in.RiskAlleleFrequency != nil {
		frequency = *in.RiskAlleleFrequency
	}
	common := frequency > commonFrequencyThreshold

	switch {
	case importance >= 30 && hasRiskAllele && oddsRatio >= 2.0 && !common:
		return domain.RiskVeryHigh
	case importance >= 30 && hasRiskAllele && oddsRatio >= 1.5 && !common:
		return domain.RiskHigh
	case importance >= 15 && hasRiskAllele && oddsRatio >= 2.0 && !common:
		return domain.RiskModerate
	case importance >= 30 && hasRiskAllele:
		if common {
			return domain.RiskSlight
		}
		return domain.RiskModerate
	case importance >= 15 && hasRiskAllele && oddsRatio >= 1.5:
		return domain.RiskSlight
	case importance >= 15 && hasRiskAllele:
		return domain.RiskSlight
	case !hasRiskAllele:
		return domain.RiskLower
	default:
		return domain.RiskUnknown
	}
}

// riskPriorities orders risk levels for sorting, ahead of importance score.
var riskPriorities = map[domain.RiskLevel]int{
	domain.RiskVeryHigh: 100,
	domain.RiskHigh:     90,
	domain.RiskModerate: 75,
	domain.RiskSlight:   55,
	domain.RiskLower:    1,
	domain.RiskUnknown:  0,
}

// RiskPriority returns the sort priority for a risk level.
func RiskPriority(level domain.RiskLevel) int {
	return riskPriorities[level]
}
