package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genome-trait-server/internal/domain"
)

func TestParseClinicalSignificance(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantLabel  string
		wantScore  int
	}{
		{"Pathogenic", "Pathogenic", "Pathogenic", 10},
		{"Likely pathogenic", "Likely pathogenic", "Likely pathogenic", 8},
		{"Combined pathogenic", "Pathogenic/Likely pathogenic", "Pathogenic/Likely pathogenic", 9},
		{"Established risk allele", "Pathogenic/Established risk allele", "Pathogenic/Established risk allele", 10},
		{"Risk factor", "risk factor", "risk factor", 7},
		{"Drug response", "drug response", "drug response", 6},
		{"Association", "association", "association", 5},
		{"Conflicting", "Conflicting interpretations of pathogenicity", "Conflicting interpretations of pathogenicity", 4},
		{"Uncertain", "Uncertain significance", "Uncertain significance", 3},
		{"Other", "other", "other", 2},
		{"Not provided", "not provided", "not provided", 2},
		{"Likely benign", "Likely benign", "Likely benign", 1},
		{"Benign", "Benign", "Benign", 0},
		{"Case insensitive", "LIKELY PATHOGENIC", "Likely pathogenic", 8},
		{"Embedded", "Benign/Likely benign", "Likely benign", 1},
		{"Unmatched", "no classification yet", "no classification yet", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, score := ParseClinicalSignificance(tt.raw)
			assert.Equal(t, tt.wantLabel, label)
			assert.Equal(t, tt.wantScore, score)
		})
	}
}

func TestReviewStatusScore(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"Practice guideline", "practice guideline", 4},
		{"Expert panel", "reviewed by expert panel", 4},
		{"Multiple submitters", "criteria provided, multiple submitters, no conflicts", 3},
		{"Conflicting", "criteria provided, conflicting interpretations", 2},
		{"Single submitter", "criteria provided, single submitter", 2},
		{"No assertion criteria", "no assertion criteria provided", 1},
		{"No assertion", "no assertion provided", 1},
		{"Unmatched", "some new status", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReviewStatusScore(tt.raw))
		})
	}
}

func TestScoreClinical(t *testing.T) {
	records := []domain.ClinicalVariantRecord{
		{
			VariantID:            "rs429358",
			Gene:                 "APOE",
			Accession:            "RCV000019455",
			ClinicalSignificance: "Uncertain significance",
			Condition:            "Familial hypercholesterolemia",
			ReviewStatus:         "criteria provided, single submitter",
		},
		{
			VariantID:            "rs429358",
			Gene:                 "APOE",
			Accession:            "RCV000019456",
			ClinicalSignificance: "Likely pathogenic",
			Condition:            "Alzheimer disease 2",
			ReviewStatus:         "reviewed by expert panel",
			NumberSubmitters:     3,
		},
	}

	info := ScoreClinical(records)

	assert.True(t, info.HasClinvar)
	assert.Equal(t, "APOE", info.Gene)
	assert.Equal(t, 8, info.MaxSignificanceScore)
	assert.Equal(t, 4, info.MaxReviewScore)
	assert.Equal(t, 2, info.SubmissionCount)

	// The highest-scoring submission surfaces its condition first.
	require.Len(t, info.Submissions, 2)
	assert.Equal(t, "Alzheimer disease 2", info.Submissions[0].Condition)
	assert.Equal(t, 8, info.Submissions[0].SignificanceScore)
	assert.Equal(t, 4, info.Submissions[0].ReviewScore)
}

func TestScoreClinical_Empty(t *testing.T) {
	info := ScoreClinical(nil)
	assert.False(t, info.HasClinvar)
	assert.Equal(t, 0, info.MaxSignificanceScore)
	assert.Empty(t, info.Submissions)
}

func TestScoreClinical_StableTieBreak(t *testing.T) {
	records := []domain.ClinicalVariantRecord{
		{Accession: "RCV000000001", ClinicalSignificance: "Pathogenic", ReviewStatus: "practice guideline", Condition: "first"},
		{Accession: "RCV000000002", ClinicalSignificance: "Pathogenic", ReviewStatus: "practice guideline", Condition: "second"},
	}

	info := ScoreClinical(records)
	require.Len(t, info.Submissions, 2)
	assert.Equal(t, "first", info.Submissions[0].Condition)
}
