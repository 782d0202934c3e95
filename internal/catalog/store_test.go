package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genome-trait-server/internal/domain"
)

func TestAllelePairs(t *testing.T) {
	variants := []domain.UserVariant{
		{ID: "rs429358", Genotype: "AG"},
		{ID: "rs7412", Genotype: "TT"},
		{ID: "rs1801133", Genotype: "CT"},
	}

	rsids, alleles := allelePairs(variants)

	require.Len(t, rsids, 5)
	require.Len(t, alleles, 5)

	pairs := make(map[string]bool, len(rsids))
	for i := range rsids {
		pairs[pairKey(rsids[i], alleles[i])] = true
	}

	// Heterozygous genotypes contribute two pairs, homozygous one.
	assert.True(t, pairs["rs429358|A"])
	assert.True(t, pairs["rs429358|G"])
	assert.True(t, pairs["rs7412|T"])
	assert.True(t, pairs["rs1801133|C"])
	assert.True(t, pairs["rs1801133|T"])
}

func TestAllelePairs_DeduplicatesAcrossBatch(t *testing.T) {
	variants := []domain.UserVariant{
		{ID: "rs429358", Genotype: "AA"},
		{ID: "rs429358", Genotype: "AG"},
	}

	rsids, alleles := allelePairs(variants)

	require.Len(t, rsids, 2)
	assert.Equal(t, []string{"rs429358", "rs429358"}, rsids)
	assert.ElementsMatch(t, []string{"A", "G"}, alleles)
}

func TestAllelePairs_Empty(t *testing.T) {
	rsids, alleles := allelePairs(nil)
	assert.Empty(t, rsids)
	assert.Empty(t, alleles)
}

func TestParseEffectKind(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.EffectMeasureKind
	}{
		{"odds_ratio", domain.EffectOddsRatio},
		{"beta", domain.EffectBeta},
		{"", domain.EffectUnknown},
		{"hazard_ratio", domain.EffectUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseEffectKind(tt.raw))
	}
}
