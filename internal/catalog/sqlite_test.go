package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genome-trait-server/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "catalog.db"), Config{}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func seedSQLiteCatalog(t *testing.T, store *SQLiteStore) {
	t.Helper()

	associations := [][]string{
		{"rs429358", "Alzheimer's disease", "Neurological", "1E-20", "C", "odds_ratio", "3.68", "0.15", "GCST001", "19", "44908684"},
		{"rs429358", "Parental longevity", "Aging", "1E-15", "T", "beta", "0.4", "0.78", "GCST002", "19", "44908684"},
		{"rs7903146", "Type 2 diabetes", "Metabolic", "1E-30", "T", "odds_ratio", "1.4", "0.3", "GCST003", "10", "112998590"},
	}
	for _, a := range associations {
		_, err := store.db.Exec(`
			INSERT INTO gwas_associations
				(rsid, trait, trait_category, p_value, effect_allele, effect_type, effect_value,
				 risk_allele_frequency, reference_id, chromosome, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7], a[8], a[9], a[10])
		require.NoError(t, err)
	}

	_, err := store.db.Exec(`
		INSERT INTO clinvar_variants
			(rsid, gene, accession, clinical_significance, condition, review_status, number_submitters)
		VALUES ('rs429358', 'APOE', 'VCV000017864', 'Pathogenic', 'Alzheimer disease 2', 'reviewed by expert panel', 12)`)
	require.NoError(t, err)
}

func TestSQLiteStore_MatchAssociations(t *testing.T) {
	store := newTestSQLiteStore(t)
	seedSQLiteCatalog(t, store)

	variants := []domain.UserVariant{
		{ID: "rs429358", Genotype: "CT"},
		{ID: "rs7903146", Genotype: "CC"},
		{ID: "rs9999999", Genotype: "AA"},
	}

	matches, err := store.MatchAssociations(context.Background(), variants)
	require.NoError(t, err)

	// Both alleles of the heterozygous genotype match.
	require.Len(t, matches["rs429358"], 2)
	traits := []string{matches["rs429358"][0].Trait, matches["rs429358"][1].Trait}
	assert.Contains(t, traits, "Alzheimer's disease")
	assert.Contains(t, traits, "Parental longevity")
	assert.Equal(t, domain.EffectOddsRatio, matches["rs429358"][0].EffectMeasureKind)

	// CC carries no copy of the T effect allele.
	assert.NotContains(t, matches, "rs7903146")
	assert.NotContains(t, matches, "rs9999999")

	// Second round trip is served from the pair cache.
	again, err := store.MatchAssociations(context.Background(), variants)
	require.NoError(t, err)
	assert.Len(t, again["rs429358"], 2)
}

func TestSQLiteStore_MatchClinical(t *testing.T) {
	store := newTestSQLiteStore(t)
	seedSQLiteCatalog(t, store)

	matches, err := store.MatchClinical(context.Background(), []string{"rs429358", "rs7903146"})
	require.NoError(t, err)

	require.Len(t, matches["rs429358"], 1)
	assert.Equal(t, "Alzheimer disease 2", matches["rs429358"][0].Condition)
	assert.NotContains(t, matches, "rs7903146")
}

func TestSQLiteStore_EmptyBatch(t *testing.T) {
	store := newTestSQLiteStore(t)

	matches, err := store.MatchAssociations(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
