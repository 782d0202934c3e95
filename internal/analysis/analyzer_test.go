package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genome-trait-server/internal/domain"
)

// fakeStore mimics the catalog store's allele-aware matching against fixed
// in-memory fixtures.
type fakeStore struct {
	mu           sync.Mutex
	associations map[string][]domain.AssociationRecord
	clinical     map[string][]domain.ClinicalVariantRecord
	batchCalls   int
	failMatching bool
}

func (f *fakeStore) MatchAssociations(ctx context.Context, variants []domain.UserVariant) (map[string][]domain.AssociationRecord, error) {
	f.mu.Lock()
	f.batchCalls++
	fail := f.failMatching
	f.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("matching associations: %w: connection refused", domain.ErrCatalogUnavailable)
	}

	matches := make(map[string][]domain.AssociationRecord)
	for _, v := range variants {
		for _, rec := range f.associations[v.ID] {
			if strings.Contains(v.Genotype, rec.EffectAllele) {
				matches[v.ID] = append(matches[v.ID], rec)
			}
		}
	}
	return matches, nil
}

func (f *fakeStore) MatchClinical(ctx context.Context, ids []string) (map[string][]domain.ClinicalVariantRecord, error) {
	matches := make(map[string][]domain.ClinicalVariantRecord)
	for _, id := range ids {
		if records, ok := f.clinical[id]; ok {
			matches[id] = records
		}
	}
	return matches, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		associations: map[string][]domain.AssociationRecord{
			"rs429358": {
				{
					VariantID: "rs429358", Trait: "Alzheimer's disease",
					PValue: "1E-20", EffectAllele: "C",
					EffectMeasureKind: domain.EffectOddsRatio, EffectMeasureValue: "3.68",
					RiskAlleleFrequency: "0.15", ReferenceID: "19734903",
				},
				{
					VariantID: "rs429358", Trait: "Parental lifespan",
					PValue: "1E-15", EffectAllele: "C",
					EffectMeasureKind: domain.EffectBeta, EffectMeasureValue: "0.1",
					RiskAlleleFrequency: "0.15", ReferenceID: "31638909",
				},
			},
			"rs7903146": {
				{
					VariantID: "rs7903146", Trait: "Type 2 diabetes",
					PValue: "1E-30", EffectAllele: "T",
					EffectMeasureKind: domain.EffectOddsRatio, EffectMeasureValue: "1.4",
					RiskAlleleFrequency: "0.3", ReferenceID: "17463249",
				},
			},
			// Effect allele the test genotype does not carry.
			"rs1800795": {
				{
					VariantID: "rs1800795", Trait: "C-reactive protein",
					PValue: "1E-10", EffectAllele: "C",
					EffectMeasureKind: domain.EffectBeta, EffectMeasureValue: "0.2",
				},
			},
		},
		clinical: map[string][]domain.ClinicalVariantRecord{
			"rs429358": {
				{
					VariantID: "rs429358", Gene: "APOE", Accession: "RCV000019455",
					ClinicalSignificance: "Likely pathogenic",
					Condition:            "Alzheimer disease 2",
					ReviewStatus:         "reviewed by expert panel",
				},
				{
					VariantID: "rs429358", Gene: "APOE", Accession: "RCV000019456",
					ClinicalSignificance: "Uncertain significance",
					Condition:            "Familial hypercholesterolemia",
					ReviewStatus:         "criteria provided, single submitter",
				},
			},
		},
	}
}

const testFileContent = "# This data file generated by 23andMe at: 2023-01-01\n" +
	"# rsid\tchromosome\tposition\tgenotype\n" +
	"rs429358\t19\t44908684\tCT\n" +
	"rs7903146\t10\t112998590\tTT\n" +
	"rs7412\t19\t44908822\t--\n" +
	"rs1800795\t7\t22766645\tGG\n" +
	"rs9999999\t1\t12345\tAA\n"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestAnalyzer_Analyze(t *testing.T) {
	store := newFakeStore()
	analyzer := New(store, Config{}, testLogger())

	result, err := analyzer.Analyze(context.Background(), testFileContent, nil)
	require.NoError(t, err)

	// rs7412 is a no-call and never reaches matching.
	assert.Equal(t, 4, result.Summary.TotalVariants)
	assert.Equal(t, 2, result.Summary.MatchedVariants)
	assert.Equal(t, 3, result.Summary.TotalAssociations)
	assert.Equal(t, 1, result.Summary.ClinvarCount)

	// Dedup keeps one association per variant, the highest-importance one.
	require.Len(t, result.Associations, 2)
	byVariant := make(map[string]domain.ScoredAssociation)
	for _, assoc := range result.Associations {
		byVariant[assoc.VariantID] = assoc
	}

	apoe := byVariant["rs429358"]
	assert.Equal(t, "Alzheimer's disease", apoe.Trait)
	// min(-log10(1E-20), 50) + 2 * significance 8.
	assert.InDelta(t, 36.0, apoe.ImportanceScore, 1e-9)
	assert.Equal(t, domain.RiskVeryHigh, apoe.RiskLevel)
	require.NotNil(t, apoe.ClinvarSignificance)
	assert.Equal(t, 8, *apoe.ClinvarSignificance)
	require.NotNil(t, apoe.ClinvarCondition)
	assert.Equal(t, "Alzheimer disease 2", *apoe.ClinvarCondition)
	require.NotNil(t, apoe.UserHasRiskAllele)
	assert.True(t, *apoe.UserHasRiskAllele)
	require.NotNil(t, apoe.OddsRatio)
	assert.InDelta(t, 3.68, *apoe.OddsRatio, 1e-9)

	tcf7l2 := byVariant["rs7903146"]
	assert.Equal(t, "Type 2 diabetes", tcf7l2.Trait)
	assert.InDelta(t, 30.0, tcf7l2.ImportanceScore, 1e-9)
	assert.Equal(t, domain.RiskModerate, tcf7l2.RiskLevel)
	assert.Nil(t, tcf7l2.ClinvarSignificance)

	// Curated groups, equal size, sorted by name.
	require.Len(t, result.Groups, 2)
	assert.Equal(t, "Alzheimer", result.Groups[0].Category)
	assert.Equal(t, "T2D", result.Groups[1].Category)
}

func TestAnalyzer_BetaEffectLeavesOddsRatioUnset(t *testing.T) {
	store := newFakeStore()
	// Drop the odds-ratio row so the beta association survives dedup.
	store.associations["rs429358"] = store.associations["rs429358"][1:]
	analyzer := New(store, Config{}, testLogger())

	result, err := analyzer.Analyze(context.Background(), testFileContent, nil)
	require.NoError(t, err)

	var apoe *domain.ScoredAssociation
	for i := range result.Associations {
		if result.Associations[i].VariantID == "rs429358" {
			apoe = &result.Associations[i]
		}
	}
	require.NotNil(t, apoe)
	assert.Equal(t, "Parental lifespan", apoe.Trait)
	assert.Nil(t, apoe.OddsRatio)
	// importance 31, risk allele carried, default odds ratio 1.0, rare.
	assert.Equal(t, domain.RiskModerate, apoe.RiskLevel)
}

func TestAnalyzer_BatchingIsDeterministic(t *testing.T) {
	single := New(newFakeStore(), Config{BatchSize: 100, Workers: 1}, testLogger())
	batched := New(newFakeStore(), Config{BatchSize: 1, Workers: 3}, testLogger())

	want, err := single.Analyze(context.Background(), testFileContent, nil)
	require.NoError(t, err)

	got, err := batched.Analyze(context.Background(), testFileContent, nil)
	require.NoError(t, err)

	assert.Equal(t, want.Summary, got.Summary)
	assert.Equal(t, want.Associations, got.Associations)
	assert.Equal(t, want.Groups, got.Groups)
}

func TestAnalyzer_ReportsProgress(t *testing.T) {
	store := newFakeStore()
	analyzer := New(store, Config{BatchSize: 1, Workers: 2}, testLogger())

	var (
		calls int
		last  int
		total int
	)
	progress := func(status domain.AnalysisStatus, processed, totalBatches int) {
		assert.Equal(t, domain.StatusMatching, status)
		calls++
		last = processed
		total = totalBatches
	}

	_, err := analyzer.Analyze(context.Background(), testFileContent, progress)
	require.NoError(t, err)

	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, last)
	assert.Equal(t, 4, total)
}

func TestAnalyzer_StoreFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.failMatching = true
	analyzer := New(store, Config{}, testLogger())

	_, err := analyzer.Analyze(context.Background(), testFileContent, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestAnalyzer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	analyzer := New(newFakeStore(), Config{BatchSize: 1}, testLogger())
	_, err := analyzer.Analyze(ctx, testFileContent, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_UnsupportedFormat(t *testing.T) {
	analyzer := New(newFakeStore(), Config{}, testLogger())

	_, err := analyzer.Analyze(context.Background(), "name,value\nfoo,1\n", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedFormat))
}
