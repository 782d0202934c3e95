package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/genome-trait-server/internal/domain"
)

func TestPValueScore(t *testing.T) {
	tests := []struct {
		name   string
		pValue string
		want   float64
	}{
		{"Scientific notation", "1E-8", 8.0},
		{"Genome-wide significance", "5E-8", -math.Log10(5e-8)},
		{"Decimal", "0.001", 3.0},
		{"Capped", "1E-300", 50.0},
		{"Zero", "0", 0},
		{"Negative", "-0.5", 0},
		{"Empty", "", 0},
		{"Garbage", "NR", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PValueScore(tt.pValue), 1e-9)
		})
	}
}

func TestScoreImportance(t *testing.T) {
	// An association with p=1E-8 and no clinical data scores 8.
	score := ScoreImportance("1E-8", nil)
	assert.InDelta(t, 8.0, score, 1e-9)

	// Clinical significance adds twice the max significance score.
	clinical := &domain.ClinicalInfo{HasClinvar: true, MaxSignificanceScore: 8}
	score = ScoreImportance("1E-8", clinical)
	assert.InDelta(t, 24.0, score, 1e-9)

	// ClinicalInfo without any clinvar data contributes nothing.
	score = ScoreImportance("1E-8", &domain.ClinicalInfo{})
	assert.InDelta(t, 8.0, score, 1e-9)
}

func TestScoreImportance_NeverNegative(t *testing.T) {
	inputs := []string{"", "NR", "0", "-1", "1", "0.5", "1E-300"}
	for _, pValue := range inputs {
		assert.GreaterOrEqual(t, ScoreImportance(pValue, nil), 0.0, "p-value %q", pValue)
	}
}
