package category

import (
	"strings"
)

type keywordGroup struct {
	category string
	keywords []string
}

// keywordGroups buckets free-text trait names into coarse groups. First
// matching group wins. This is a display fallback only; the curated table
// in classifier.go always takes precedence for grouping.
var keywordGroups = []keywordGroup{
	{"Cancer", []string{"cancer", "tumor", "carcinoma", "melanoma", "leukemia", "lymphoma"}},
	{"Cardiovascular disease", []string{"heart", "cardiac", "cardiovascular", "coronary", "blood pressure", "hypertension"}},
	{"Lipid or lipoprotein measurement", []string{"cholesterol", "ldl", "hdl", "triglyceride", "lipid"}},
	{"Metabolic disorder", []string{"diabetes", "glucose", "insulin", "metabolic"}},
	{"Neurological disorder", []string{"alzheimer", "parkinson", "neurological", "brain", "cognitive", "dementia"}},
	{"Body measurement", []string{"height", "weight", "bmi", "body mass"}},
}

// CategorizeTrait buckets a trait name by keyword. Unmatched traits fall
// through to measurement/disease/other buckets.
func CategorizeTrait(trait string) string {
	lower := strings.ToLower(trait)

	for _, group := range keywordGroups {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.category
			}
		}
	}
	switch {
	case strings.Contains(lower, "measurement"):
		return "Other measurement"
	case strings.Contains(lower, "disease"), strings.Contains(lower, "disorder"):
		return "Other disease"
	default:
		return "Other trait"
	}
}
