// Package catalog implements batched, allele-aware lookups against the
// association and clinical-variant catalogs.
package catalog

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/genome-trait-server/internal/domain"
)

// Store is the catalog lookup surface consumed by the analysis pipeline.
type Store interface {
	// MatchAssociations returns association records for the batch, grouped
	// by variant id. Variants with no match are absent from the map.
	MatchAssociations(ctx context.Context, variants []domain.UserVariant) (map[string][]domain.AssociationRecord, error)

	// MatchClinical returns clinical-variant records for the ids, grouped
	// by variant id.
	MatchClinical(ctx context.Context, ids []string) (map[string][]domain.ClinicalVariantRecord, error)
}

// Config holds catalog store tuning.
type Config struct {
	QueryTimeout time.Duration
	CacheSize    int
}

// PostgresStore matches user variants against the catalog tables. Matching
// is allele-aware: only rows whose effect allele appears in the user's
// genotype are returned, which bounds the result size for variants with
// many published associations.
type PostgresStore struct {
	pool    *pgxpool.Pool
	log     *logrus.Logger
	breaker *gobreaker.CircuitBreaker
	cache   *lru.Cache[string, []domain.AssociationRecord]
	timeout time.Duration
}

// NewPostgresStore creates a catalog store over a pgx pool. The circuit
// breaker fails fast during a store outage; retrying is the caller's
// responsibility, never the engine's.
func NewPostgresStore(pool *pgxpool.Pool, cfg Config, logger *logrus.Logger) (*PostgresStore, error) {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 65536
	}

	cache, err := lru.New[string, []domain.AssociationRecord](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating association cache: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "catalog",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Catalog circuit breaker state changed")
		},
	})

	return &PostgresStore{
		pool:    pool,
		log:     logger,
		breaker: breaker,
		cache:   cache,
		timeout: cfg.QueryTimeout,
	}, nil
}

// pairKey keys the per-(variant, allele) cache.
func pairKey(rsid, allele string) string {
	return rsid + "|" + allele
}

// allelePairs expands a batch of variants into deduplicated (rsid, allele)
// parallel slices suitable for a server-side unnest join.
func allelePairs(variants []domain.UserVariant) (rsids, alleles []string) {
	seen := make(map[string]bool, len(variants)*2)
	for _, v := range variants {
		for _, allele := range v.Alleles() {
			key := pairKey(v.ID, allele)
			if seen[key] {
				continue
			}
			seen[key] = true
			rsids = append(rsids, v.ID)
			alleles = append(alleles, allele)
		}
	}
	return rsids, alleles
}

const matchAssociationsQuery = `
	SELECT g.rsid, g.trait,
		   COALESCE(g.trait_category, ''),
		   COALESCE(g.p_value, ''),
		   COALESCE(g.effect_allele, ''),
		   COALESCE(g.effect_type, 'unknown'),
		   COALESCE(g.effect_value, ''),
		   COALESCE(g.risk_allele_frequency, ''),
		   COALESCE(g.study_description, ''),
		   COALESCE(g.reference_id, ''),
		   COALESCE(g.chromosome, ''),
		   COALESCE(g.position, ''),
		   COALESCE(g.mapped_gene, ''),
		   p.allele
	FROM gwas_associations g
	JOIN unnest($1::text[], $2::text[]) AS p(rsid, allele)
	  ON g.rsid = p.rsid AND g.effect_allele = p.allele`

// MatchAssociations performs one bulk join between the batch's deduplicated
// (rsid, allele) pairs and the catalog's (rsid, effect_allele) index. The
// staging set lives only inside the query's value list, so nothing is shared
// across concurrent runs and there is nothing to tear down.
func (s *PostgresStore) MatchAssociations(ctx context.Context, variants []domain.UserVariant) (map[string][]domain.AssociationRecord, error) {
	matches := make(map[string][]domain.AssociationRecord)
	if len(variants) == 0 {
		return matches, nil
	}

	rsids, alleles := allelePairs(variants)

	// Serve previously-seen pairs from the in-process cache; only miss
	// pairs go to the database.
	var missRsids, missAlleles []string
	for i := range rsids {
		if records, ok := s.cache.Get(pairKey(rsids[i], alleles[i])); ok {
			matches[rsids[i]] = append(matches[rsids[i]], records...)
			continue
		}
		missRsids = append(missRsids, rsids[i])
		missAlleles = append(missAlleles, alleles[i])
	}
	if len(missRsids) == 0 {
		return matches, nil
	}

	fetched, err := s.breaker.Execute(func() (interface{}, error) {
		queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		rows, err := s.pool.Query(queryCtx, matchAssociationsQuery, missRsids, missAlleles)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		byPair := make(map[string][]domain.AssociationRecord, len(missRsids))
		for rows.Next() {
			var rec domain.AssociationRecord
			var kind, allele string
			if err := rows.Scan(
				&rec.VariantID, &rec.Trait, &rec.TraitCategory, &rec.PValue,
				&rec.EffectAllele, &kind, &rec.EffectMeasureValue,
				&rec.RiskAlleleFrequency, &rec.StudyDescription, &rec.ReferenceID,
				&rec.Chromosome, &rec.Position, &rec.MappedGene, &allele,
			); err != nil {
				return nil, err
			}
			rec.EffectMeasureKind = parseEffectKind(kind)
			key := pairKey(rec.VariantID, allele)
			byPair[key] = append(byPair[key], rec)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return byPair, nil
	})
	if err != nil {
		s.log.WithError(err).Error("Association batch match failed")
		return nil, fmt.Errorf("matching associations: %w: %v", domain.ErrCatalogUnavailable, err)
	}

	byPair := fetched.(map[string][]domain.AssociationRecord)
	for i := range missRsids {
		key := pairKey(missRsids[i], missAlleles[i])
		records := byPair[key]
		s.cache.Add(key, records)
		if len(records) > 0 {
			matches[missRsids[i]] = append(matches[missRsids[i]], records...)
		}
	}

	s.log.WithFields(logrus.Fields{
		"batch_pairs": len(rsids),
		"cache_hits":  len(rsids) - len(missRsids),
		"matched":     len(matches),
	}).Debug("Association batch matched")

	return matches, nil
}

const matchClinicalQuery = `
	SELECT rsid,
		   COALESCE(gene, ''),
		   COALESCE(accession, ''),
		   COALESCE(clinical_significance, ''),
		   COALESCE(condition, ''),
		   COALESCE(review_status, ''),
		   COALESCE(last_evaluated, ''),
		   COALESCE(number_submitters, 0)
	FROM clinvar_variants
	WHERE rsid = ANY($1)`

// MatchClinical is a bulk containment lookup of clinical submissions by
// variant id list.
func (s *PostgresStore) MatchClinical(ctx context.Context, ids []string) (map[string][]domain.ClinicalVariantRecord, error) {
	matches := make(map[string][]domain.ClinicalVariantRecord)
	if len(ids) == 0 {
		return matches, nil
	}

	fetched, err := s.breaker.Execute(func() (interface{}, error) {
		queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		rows, err := s.pool.Query(queryCtx, matchClinicalQuery, ids)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		grouped := make(map[string][]domain.ClinicalVariantRecord)
		for rows.Next() {
			var rec domain.ClinicalVariantRecord
			if err := rows.Scan(
				&rec.VariantID, &rec.Gene, &rec.Accession,
				&rec.ClinicalSignificance, &rec.Condition, &rec.ReviewStatus,
				&rec.LastEvaluated, &rec.NumberSubmitters,
			); err != nil {
				return nil, err
			}
			grouped[rec.VariantID] = append(grouped[rec.VariantID], rec)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return grouped, nil
	})
	if err != nil {
		s.log.WithError(err).Error("Clinical batch match failed")
		return nil, fmt.Errorf("matching clinical variants: %w: %v", domain.ErrCatalogUnavailable, err)
	}

	return fetched.(map[string][]domain.ClinicalVariantRecord), nil
}

func parseEffectKind(kind string) domain.EffectMeasureKind {
	switch kind {
	case string(domain.EffectOddsRatio):
		return domain.EffectOddsRatio
	case string(domain.EffectBeta):
		return domain.EffectBeta
	default:
		return domain.EffectUnknown
	}
}
