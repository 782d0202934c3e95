package scoring

import (
	"sort"
	"strings"

	"github.com/genome-trait-server/internal/domain"
)

// rankedScore pairs a clinical-database label with its numeric score.
// Tables are ordered most severe first; matching is longest case-insensitive
// substring, with table order breaking length ties.
type rankedScore struct {
	label string
	score int
}

// significanceScores ranks clinical-significance labels (higher = more
// clinically important).
var significanceScores = []rankedScore{
	{"Pathogenic/Established risk allele", 10},
	{"Pathogenic", 10},
	{"Pathogenic/Likely pathogenic", 9},
	{"Likely pathogenic", 8},
	{"risk factor", 7},
	{"drug response", 6},
	{"association", 5},
	{"Conflicting interpretations of pathogenicity", 4},
	{"Uncertain significance", 3},
	{"other", 2},
	{"not provided", 2},
	{"Likely benign", 1},
	{"Benign", 0},
}

// reviewStatusScores ranks review-status labels (higher = more reliable).
var reviewStatusScores = []rankedScore{
	{"practice guideline", 4},
	{"reviewed by expert panel", 4},
	{"criteria provided, multiple submitters, no conflicts", 3},
	{"criteria provided, conflicting interpretations", 2},
	{"criteria provided, single submitter", 2},
	{"no assertion criteria provided", 1},
	{"no assertion provided", 1},
}

// matchRanked finds the longest table label contained in raw
// (case-insensitive). Ties keep the earlier table entry.
func matchRanked(table []rankedScore, raw string) (string, int, bool) {
	lower := strings.ToLower(raw)
	bestLen := -1
	var bestLabel string
	var bestScore int
	for _, entry := range table {
		if len(entry.label) > bestLen && strings.Contains(lower, strings.ToLower(entry.label)) {
			bestLen = len(entry.label)
			bestLabel = entry.label
			bestScore = entry.score
		}
	}
	if bestLen < 0 {
		return "", 0, false
	}
	return bestLabel, bestScore, true
}

// ParseClinicalSignificance normalizes a free-text clinical-significance
// string and returns its score. Unmatched strings keep their raw form and
// score 0.
func ParseClinicalSignificance(raw string) (string, int) {
	if label, score, ok := matchRanked(significanceScores, raw); ok {
		return label, score
	}
	return raw, 0
}

// ReviewStatusScore scores a free-text review-status string 1-4; unmatched
// strings score 0.
func ReviewStatusScore(raw string) int {
	_, score, ok := matchRanked(reviewStatusScores, raw)
	if !ok {
		return 0
	}
	return score
}

// ScoreClinical normalizes and scores a variant's clinical submissions.
// Submissions are sorted descending by (significance score, review score)
// with a stable first-seen tie-break; submission 0 is the representative one.
func ScoreClinical(records []domain.ClinicalVariantRecord) domain.ClinicalInfo {
	if len(records) == 0 {
		return domain.ClinicalInfo{}
	}

	info := domain.ClinicalInfo{
		HasClinvar:  true,
		Submissions: make([]domain.ClinicalSubmission, 0, len(records)),
	}

	for _, rec := range records {
		if info.Gene == "" && rec.Gene != "" {
			info.Gene = rec.Gene
		}

		normalized, sigScore := ParseClinicalSignificance(rec.ClinicalSignificance)
		reviewScore := ReviewStatusScore(rec.ReviewStatus)

		info.Submissions = append(info.Submissions, domain.ClinicalSubmission{
			Accession:            rec.Accession,
			ClinicalSignificance: normalized,
			SignificanceScore:    sigScore,
			Condition:            rec.Condition,
			ReviewStatus:         rec.ReviewStatus,
			ReviewScore:          reviewScore,
			LastEvaluated:        rec.LastEvaluated,
			NumberSubmitters:     rec.NumberSubmitters,
		})

		if sigScore > info.MaxSignificanceScore {
			info.MaxSignificanceScore = sigScore
		}
		if reviewScore > info.MaxReviewScore {
			info.MaxReviewScore = reviewScore
		}
	}

	sort.SliceStable(info.Submissions, func(i, j int) bool {
		a, b := info.Submissions[i], info.Submissions[j]
		if a.SignificanceScore != b.SignificanceScore {
			return a.SignificanceScore > b.SignificanceScore
		}
		return a.ReviewScore > b.ReviewScore
	})

	info.SubmissionCount = len(info.Submissions)
	return info
}
