package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/genome-trait-server/internal/domain"
)

// maxPairsPerQuery bounds the VALUES list so a batch never exceeds
// SQLite's bound-parameter limit.
const maxPairsPerQuery = 500

// SQLiteStore serves catalog lookups from an embedded SQLite database,
// backing the lite deployment mode. The database file ships with the
// catalog tables pre-loaded; the schema is created on open so a fresh
// file is usable for imports.
type SQLiteStore struct {
	db      *sql.DB
	log     *logrus.Logger
	cache   *lru.Cache[string, []domain.AssociationRecord]
	timeout time.Duration
}

// NewSQLiteStore opens the catalog database at dbPath.
func NewSQLiteStore(dbPath string, cfg Config, logger *logrus.Logger) (*SQLiteStore, error) {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 65536
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	if err := createCatalogSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}

	cache, err := lru.New[string, []domain.AssociationRecord](cfg.CacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating association cache: %w", err)
	}

	return &SQLiteStore{
		db:      db,
		log:     logger,
		cache:   cache,
		timeout: cfg.QueryTimeout,
	}, nil
}

func createCatalogSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS gwas_associations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rsid TEXT NOT NULL,
		trait TEXT NOT NULL,
		trait_category TEXT,
		p_value TEXT,
		effect_allele TEXT,
		effect_type TEXT,
		effect_value TEXT,
		risk_allele_frequency TEXT,
		study_description TEXT,
		reference_id TEXT,
		chromosome TEXT,
		position TEXT,
		mapped_gene TEXT,
		UNIQUE (rsid, trait, reference_id)
	);
	CREATE INDEX IF NOT EXISTS idx_gwas_associations_rsid_effect_allele
		ON gwas_associations (rsid, effect_allele);

	CREATE TABLE IF NOT EXISTS clinvar_variants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rsid TEXT NOT NULL,
		gene TEXT,
		accession TEXT NOT NULL,
		clinical_significance TEXT,
		condition TEXT,
		review_status TEXT,
		last_evaluated TEXT,
		number_submitters INTEGER,
		UNIQUE (rsid, accession)
	);
	CREATE INDEX IF NOT EXISTS idx_clinvar_variants_rsid ON clinvar_variants (rsid);
	`
	_, err := db.Exec(schema)
	return err
}

// MatchAssociations performs the same allele-aware pair join as the
// Postgres store, expressed as a row-value IN over a VALUES list.
func (s *SQLiteStore) MatchAssociations(ctx context.Context, variants []domain.UserVariant) (map[string][]domain.AssociationRecord, error) {
	matches := make(map[string][]domain.AssociationRecord)
	if len(variants) == 0 {
		return matches, nil
	}

	rsids, alleles := allelePairs(variants)

	var missRsids, missAlleles []string
	for i := range rsids {
		if records, ok := s.cache.Get(pairKey(rsids[i], alleles[i])); ok {
			matches[rsids[i]] = append(matches[rsids[i]], records...)
			continue
		}
		missRsids = append(missRsids, rsids[i])
		missAlleles = append(missAlleles, alleles[i])
	}

	for start := 0; start < len(missRsids); start += maxPairsPerQuery {
		end := start + maxPairsPerQuery
		if end > len(missRsids) {
			end = len(missRsids)
		}
		if err := s.matchPairChunk(ctx, missRsids[start:end], missAlleles[start:end], matches); err != nil {
			s.log.WithError(err).Error("Association batch match failed")
			return nil, fmt.Errorf("matching associations: %w: %v", domain.ErrCatalogUnavailable, err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"batch_pairs": len(rsids),
		"cache_hits":  len(rsids) - len(missRsids),
		"matched":     len(matches),
	}).Debug("Association batch matched")

	return matches, nil
}

func (s *SQLiteStore) matchPairChunk(ctx context.Context, rsids, alleles []string, matches map[string][]domain.AssociationRecord) error {
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	values := make([]string, len(rsids))
	args := make([]interface{}, 0, len(rsids)*2)
	for i := range rsids {
		values[i] = "(?, ?)"
		args = append(args, rsids[i], alleles[i])
	}

	query := `
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
			   COALESCE(g.mapped_gene, '')
		FROM gwas_associations g
		WHERE (g.rsid, g.effect_allele) IN (VALUES ` + strings.Join(values, ", ") + `)`

	rows, err := s.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	byPair := make(map[string][]domain.AssociationRecord, len(rsids))
	for rows.Next() {
		var rec domain.AssociationRecord
		var kind string
		if err := rows.Scan(
			&rec.VariantID, &rec.Trait, &rec.TraitCategory, &rec.PValue,
			&rec.EffectAllele, &kind, &rec.EffectMeasureValue,
			&rec.RiskAlleleFrequency, &rec.StudyDescription, &rec.ReferenceID,
			&rec.Chromosome, &rec.Position, &rec.MappedGene,
		); err != nil {
			return err
		}
		rec.EffectMeasureKind = parseEffectKind(kind)
		key := pairKey(rec.VariantID, rec.EffectAllele)
		byPair[key] = append(byPair[key], rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range rsids {
		key := pairKey(rsids[i], alleles[i])
		records := byPair[key]
		s.cache.Add(key, records)
		if len(records) > 0 {
			matches[rsids[i]] = append(matches[rsids[i]], records...)
		}
	}
	return nil
}

// MatchClinical looks up clinical submissions for the id list.
func (s *SQLiteStore) MatchClinical(ctx context.Context, ids []string) (map[string][]domain.ClinicalVariantRecord, error) {
	matches := make(map[string][]domain.ClinicalVariantRecord)
	if len(ids) == 0 {
		return matches, nil
	}

	for start := 0; start < len(ids); start += maxPairsPerQuery {
		end := start + maxPairsPerQuery
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.matchClinicalChunk(ctx, ids[start:end], matches); err != nil {
			s.log.WithError(err).Error("Clinical batch match failed")
			return nil, fmt.Errorf("matching clinical variants: %w: %v", domain.ErrCatalogUnavailable, err)
		}
	}
	return matches, nil
}

func (s *SQLiteStore) matchClinicalChunk(ctx context.Context, ids []string, matches map[string][]domain.ClinicalVariantRecord) error {
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT rsid,
			   COALESCE(gene, ''),
			   COALESCE(accession, ''),
			   COALESCE(clinical_significance, ''),
			   COALESCE(condition, ''),
			   COALESCE(review_status, ''),
			   COALESCE(last_evaluated, ''),
			   COALESCE(number_submitters, 0)
		FROM clinvar_variants
		WHERE rsid IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := s.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.ClinicalVariantRecord
		if err := rows.Scan(
			&rec.VariantID, &rec.Gene, &rec.Accession,
			&rec.ClinicalSignificance, &rec.Condition, &rec.ReviewStatus,
			&rec.LastEvaluated, &rec.NumberSubmitters,
		); err != nil {
			return err
		}
		matches[rec.VariantID] = append(matches[rec.VariantID], rec)
	}
	return rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
