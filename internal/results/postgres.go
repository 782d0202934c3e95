package results

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/genome-trait-server/internal/domain"
)

// PostgresStore persists analysis runs in PostgreSQL.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL-backed results store.
func NewPostgresStore(db *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: logger,
	}
}

// CreateAnalysis inserts a new analysis row in its initial state.
func (s *PostgresStore) CreateAnalysis(ctx context.Context, record *domain.AnalysisRecord) error {
	query := `
		INSERT INTO analyses (id, file_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())`

	_, err := s.db.Exec(ctx, query, record.ID, record.FileName, record.Status)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"analysis_id": record.ID,
			"error":       err,
		}).Error("Failed to create analysis")
		return fmt.Errorf("creating analysis: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"analysis_id": record.ID,
		"file_name":   record.FileName,
	}).Info("Analysis created")

	return nil
}

// UpdateStatus moves an analysis through its lifecycle.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status domain.AnalysisStatus, errorMessage string) error {
	query := `
		UPDATE analyses
		SET status = $2, error_message = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1`

	result, err := s.db.Exec(ctx, query, id, status, errorMessage)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"analysis_id": id,
			"status":      status,
			"error":       err,
		}).Error("Failed to update analysis status")
		return fmt.Errorf("updating analysis status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
	}

	return nil
}

// SaveResult writes a completed run in one transaction: the summary rollup
// on the analysis row plus the deduplicated, categorized associations.
// Uncategorized associations are counted in the summary but not persisted.
func (s *PostgresStore) SaveResult(ctx context.Context, id string, result *domain.AnalysisResult) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning result transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE analyses
		SET status = $2, total_variants = $3, matched_variants = $4,
			total_associations = $5, clinvar_count = $6, updated_at = NOW()
		WHERE id = $1`

	tag, err := tx.Exec(ctx, updateQuery, id, domain.StatusCompleted,
		result.Summary.TotalVariants, result.Summary.MatchedVariants,
		result.Summary.TotalAssociations, result.Summary.ClinvarCount)
	if err != nil {
		return fmt.Errorf("saving analysis summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
	}

	insertQuery := `
		INSERT INTO analysis_associations (
			analysis_id, rsid, genotype, chromosome, position, trait, p_value,
			importance_score, risk_allele, clinvar_condition, clinvar_significance,
			manual_category, trait_category, odds_ratio, risk_allele_frequency,
			study_description, reference_id, user_has_risk_allele, risk_level
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	batch := &pgx.Batch{}
	persisted := 0
	for _, group := range result.Groups {
		for _, assoc := range group.Associations {
			batch.Queue(insertQuery,
				id, assoc.VariantID, assoc.Genotype, assoc.Chromosome, assoc.Position,
				assoc.Trait, assoc.PValue, assoc.ImportanceScore, assoc.RiskAllele,
				assoc.ClinvarCondition, assoc.ClinvarSignificance, assoc.ManualCategory,
				assoc.TraitCategory, assoc.OddsRatio, assoc.RiskAlleleFrequency,
				assoc.StudyDescription, assoc.ReferenceID, assoc.UserHasRiskAllele,
				assoc.RiskLevel)
			persisted++
		}
	}

	if persisted > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < persisted; i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("saving association %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("closing association batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing result transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"analysis_id":  id,
		"associations": persisted,
		"categories":   len(result.Groups),
	}).Info("Analysis result saved")

	return nil
}

// GetAnalysis retrieves an analysis row; the summary pointer is nil until
// the run completes.
func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	query := `
		SELECT id, file_name, status, COALESCE(error_message, ''),
			   total_variants, matched_variants, total_associations, clinvar_count,
			   created_at, updated_at
		FROM analyses
		WHERE id = $1`

	var record domain.AnalysisRecord
	var totalVariants, matchedVariants, totalAssociations, clinvarCount *int

	err := s.db.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.FileName, &record.Status, &record.ErrorMessage,
		&totalVariants, &matchedVariants, &totalAssociations, &clinvarCount,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
		}
		s.log.WithFields(logrus.Fields{
			"analysis_id": id,
			"error":       err,
		}).Error("Failed to get analysis")
		return nil, fmt.Errorf("getting analysis: %w", err)
	}

	if totalVariants != nil {
		record.Summary = &domain.AnalysisSummary{
			TotalVariants:     *totalVariants,
			MatchedVariants:   intOrZero(matchedVariants),
			TotalAssociations: intOrZero(totalAssociations),
			ClinvarCount:      intOrZero(clinvarCount),
		}
	}

	return &record, nil
}

// ListCategories returns the analysis' curated categories ordered by
// member count descending, category name breaking ties.
func (s *PostgresStore) ListCategories(ctx context.Context, id string) ([]CategoryCount, error) {
	query := `
		SELECT manual_category, COUNT(*)
		FROM analysis_associations
		WHERE analysis_id = $1 AND manual_category IS NOT NULL
		GROUP BY manual_category
		ORDER BY COUNT(*) DESC, manual_category ASC`

	rows, err := s.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var counts []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", err)
	}

	return counts, nil
}

// GetCategoryPage pages one category's associations. The minImportance
// filter applies before counting, so TotalCount reflects the filtered set.
func (s *PostgresStore) GetCategoryPage(ctx context.Context, id, category string, offset, limit int, minImportance *float64) (*domain.CategoryPage, error) {
	if offset < 0 {
		return nil, fmt.Errorf("offset must be non-negative, got %d", offset)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	threshold := 0.0
	if minImportance != nil {
		threshold = *minImportance
	}

	countQuery := `
		SELECT COUNT(*)
		FROM analysis_associations
		WHERE analysis_id = $1 AND manual_category = $2 AND importance_score >= $3`

	var total int
	if err := s.db.QueryRow(ctx, countQuery, id, category, threshold).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting category associations: %w", err)
	}

	// A zero count is ambiguous: the category may not exist for this run,
	// or the filter may have excluded every member. Only the former is an
	// error.
	if total == 0 {
		existsQuery := `
			SELECT EXISTS (
				SELECT 1 FROM analysis_associations
				WHERE analysis_id = $1 AND manual_category = $2)`

		var exists bool
		if err := s.db.QueryRow(ctx, existsQuery, id, category).Scan(&exists); err != nil {
			return nil, fmt.Errorf("checking category existence: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("category %q: %w", category, domain.ErrNotFound)
		}
		return &domain.CategoryPage{
			Category: category,
			Offset:   offset,
			Limit:    limit,
			Items:    []domain.ScoredAssociation{},
		}, nil
	}

	pageQuery := `
		SELECT rsid, genotype, COALESCE(chromosome, ''), COALESCE(position, ''),
			   trait, COALESCE(p_value, ''), importance_score, COALESCE(risk_allele, ''),
			   clinvar_condition, clinvar_significance, manual_category, trait_category,
			   odds_ratio, risk_allele_frequency, COALESCE(study_description, ''),
			   COALESCE(reference_id, ''), user_has_risk_allele, risk_level
		FROM analysis_associations
		WHERE analysis_id = $1 AND manual_category = $2 AND importance_score >= $3
		ORDER BY ` + riskPriorityCase + ` DESC, importance_score DESC, rsid ASC
		LIMIT $4 OFFSET $5`

	rows, err := s.db.Query(ctx, pageQuery, id, category, threshold, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying category page: %w", err)
	}
	defer rows.Close()

	page := &domain.CategoryPage{
		Category:   category,
		Offset:     offset,
		Limit:      limit,
		TotalCount: total,
		Items:      []domain.ScoredAssociation{},
	}

	for rows.Next() {
		var assoc domain.ScoredAssociation
		if err := rows.Scan(
			&assoc.VariantID, &assoc.Genotype, &assoc.Chromosome, &assoc.Position,
			&assoc.Trait, &assoc.PValue, &assoc.ImportanceScore, &assoc.RiskAllele,
			&assoc.ClinvarCondition, &assoc.ClinvarSignificance, &assoc.ManualCategory,
			&assoc.TraitCategory, &assoc.OddsRatio, &assoc.RiskAlleleFrequency,
			&assoc.StudyDescription, &assoc.ReferenceID, &assoc.UserHasRiskAllele,
			&assoc.RiskLevel,
		); err != nil {
			return nil, fmt.Errorf("scanning association row: %w", err)
		}
		page.Items = append(page.Items, assoc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating association rows: %w", err)
	}

	return page, nil
}

// MarkStale flags runs stuck in a non-terminal state longer than maxAge as
// failed. Used by the worker on startup after an unclean shutdown.
func (s *PostgresStore) MarkStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	query := `
		UPDATE analyses
		SET status = $1, error_message = 'analysis abandoned after worker restart', updated_at = NOW()
		WHERE status IN ($2, $3) AND updated_at < NOW() - $4::interval`

	tag, err := s.db.Exec(ctx, query, domain.StatusError, domain.StatusParsing,
		domain.StatusMatching, fmt.Sprintf("%d seconds", int(maxAge.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("marking stale analyses: %w", err)
	}
	return tag.RowsAffected(), nil
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
