package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/genome-trait-server/internal/domain"
)

// SQLiteStore implements Store on an embedded SQLite database. It backs
// the lite deployment mode, which runs without PostgreSQL.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	log    *logrus.Logger
}

// NewSQLiteStore creates a new SQLite results store, creating the database
// file and schema if they don't exist.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for concurrent readers while the worker writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		log:    logger,
	}, nil
}

// newSQLiteStoreWithDB wires an existing handle, used by tests.
func newSQLiteStoreWithDB(db *sql.DB, logger *logrus.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, log: logger}
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'parsing',
		error_message TEXT,
		total_variants INTEGER,
		matched_variants INTEGER,
		total_associations INTEGER,
		clinvar_count INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS analysis_associations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
		rsid TEXT NOT NULL,
		genotype TEXT NOT NULL,
		chromosome TEXT,
		position TEXT,
		trait TEXT NOT NULL,
		p_value TEXT,
		importance_score REAL NOT NULL,
		risk_allele TEXT,
		clinvar_condition TEXT,
		clinvar_significance INTEGER,
		manual_category TEXT,
		trait_category TEXT,
		odds_ratio REAL,
		risk_allele_frequency REAL,
		study_description TEXT,
		reference_id TEXT,
		user_has_risk_allele INTEGER,
		risk_level TEXT NOT NULL DEFAULT 'unknown'
	);

	CREATE INDEX IF NOT EXISTS idx_assoc_analysis ON analysis_associations(analysis_id);
	CREATE INDEX IF NOT EXISTS idx_assoc_category ON analysis_associations(analysis_id, manual_category);
	`

	_, err := db.Exec(schema)
	return err
}

// CreateAnalysis inserts a new analysis row in its initial state.
func (s *SQLiteStore) CreateAnalysis(ctx context.Context, record *domain.AnalysisRecord) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, file_name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, record.ID, record.FileName, string(record.Status), now, now)
	if err != nil {
		return fmt.Errorf("creating analysis: %w", err)
	}
	return nil
}

// UpdateStatus moves an analysis through its lifecycle.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status domain.AnalysisStatus, errorMessage string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE analyses
		SET status = ?, error_message = NULLIF(?, ''), updated_at = ?
		WHERE id = ?
	`, string(status), errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating analysis status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
	}
	return nil
}

// SaveResult writes a completed run in one transaction.
func (s *SQLiteStore) SaveResult(ctx context.Context, id string, result *domain.AnalysisResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning result transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE analyses
		SET status = ?, total_variants = ?, matched_variants = ?,
			total_associations = ?, clinvar_count = ?, updated_at = ?
		WHERE id = ?
	`, string(domain.StatusCompleted),
		result.Summary.TotalVariants, result.Summary.MatchedVariants,
		result.Summary.TotalAssociations, result.Summary.ClinvarCount,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("saving analysis summary: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO analysis_associations (
			analysis_id, rsid, genotype, chromosome, position, trait, p_value,
			importance_score, risk_allele, clinvar_condition, clinvar_significance,
			manual_category, trait_category, odds_ratio, risk_allele_frequency,
			study_description, reference_id, user_has_risk_allele, risk_level
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing association insert: %w", err)
	}
	defer stmt.Close()

	persisted := 0
	for _, group := range result.Groups {
		for _, assoc := range group.Associations {
			_, err := stmt.ExecContext(ctx,
				id, assoc.VariantID, assoc.Genotype, assoc.Chromosome, assoc.Position,
				assoc.Trait, assoc.PValue, assoc.ImportanceScore, assoc.RiskAllele,
				assoc.ClinvarCondition, assoc.ClinvarSignificance, assoc.ManualCategory,
				assoc.TraitCategory, assoc.OddsRatio, assoc.RiskAlleleFrequency,
				assoc.StudyDescription, assoc.ReferenceID, boolToInt(assoc.UserHasRiskAllele),
				string(assoc.RiskLevel))
			if err != nil {
				return fmt.Errorf("saving association for %s: %w", assoc.VariantID, err)
			}
			persisted++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing result transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"analysis_id":  id,
		"associations": persisted,
	}).Info("Analysis result saved")

	return nil
}

// GetAnalysis retrieves an analysis row.
func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_name, status, COALESCE(error_message, ''),
			   total_variants, matched_variants, total_associations, clinvar_count,
			   created_at, updated_at
		FROM analyses
		WHERE id = ?
	`, id)

	var record domain.AnalysisRecord
	var status string
	var totalVariants, matchedVariants, totalAssociations, clinvarCount sql.NullInt64

	err := row.Scan(
		&record.ID, &record.FileName, &status, &record.ErrorMessage,
		&totalVariants, &matchedVariants, &totalAssociations, &clinvarCount,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting analysis: %w", err)
	}

	record.Status = domain.AnalysisStatus(status)
	if totalVariants.Valid {
		record.Summary = &domain.AnalysisSummary{
			TotalVariants:     int(totalVariants.Int64),
			MatchedVariants:   int(matchedVariants.Int64),
			TotalAssociations: int(totalAssociations.Int64),
			ClinvarCount:      int(clinvarCount.Int64),
		}
	}

	return &record, nil
}

// ListCategories returns curated categories ordered by member count.
func (s *SQLiteStore) ListCategories(ctx context.Context, id string) ([]CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT manual_category, COUNT(*)
		FROM analysis_associations
		WHERE analysis_id = ? AND manual_category IS NOT NULL
		GROUP BY manual_category
		ORDER BY COUNT(*) DESC, manual_category ASC
	`, id)
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
	return counts, rows.Err()
}

// GetCategoryPage pages one category's associations, filtering by minimum
// importance before counting.
func (s *SQLiteStore) GetCategoryPage(ctx context.Context, id, category string, offset, limit int, minImportance *float64) (*domain.CategoryPage, error) {
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

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM analysis_associations
		WHERE analysis_id = ? AND manual_category = ? AND importance_score >= ?
	`, id, category, threshold).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("counting category associations: %w", err)
	}

	// A zero count is ambiguous: the category may not exist for this run,
	// or the filter may have excluded every member. Only the former is an
	// error.
	if total == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM analysis_associations
				WHERE analysis_id = ? AND manual_category = ?)
		`, id, category).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("checking category existence: %w", err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("category %q: %w", category, domain.ErrNotFound)
		}
		return &domain.CategoryPage{
			Category: category,
			Offset:   offset,
			Limit:    limit,
			Items:    []domain.ScoredAssociation{},
		}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rsid, genotype, COALESCE(chromosome, ''), COALESCE(position, ''),
			   trait, COALESCE(p_value, ''), importance_score, COALESCE(risk_allele, ''),
			   clinvar_condition, clinvar_significance, manual_category, trait_category,
			   odds_ratio, risk_allele_frequency, COALESCE(study_description, ''),
			   COALESCE(reference_id, ''), user_has_risk_allele, risk_level
		FROM analysis_associations
		WHERE analysis_id = ? AND manual_category = ? AND importance_score >= ?
		ORDER BY `+riskPriorityCase+` DESC, importance_score DESC, rsid ASC
		LIMIT ? OFFSET ?
	`, id, category, threshold, limit, offset)
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
		assoc, err := scanAssociation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning association row: %w", err)
		}
		page.Items = append(page.Items, assoc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating association rows: %w", err)
	}

	return page, nil
}

// scanner is the shared surface of sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAssociation(s scanner) (domain.ScoredAssociation, error) {
	var assoc domain.ScoredAssociation
	var riskLevel string
	var hasRiskAllele sql.NullInt64

	err := s.Scan(
		&assoc.VariantID, &assoc.Genotype, &assoc.Chromosome, &assoc.Position,
		&assoc.Trait, &assoc.PValue, &assoc.ImportanceScore, &assoc.RiskAllele,
		&assoc.ClinvarCondition, &assoc.ClinvarSignificance, &assoc.ManualCategory,
		&assoc.TraitCategory, &assoc.OddsRatio, &assoc.RiskAlleleFrequency,
		&assoc.StudyDescription, &assoc.ReferenceID, &hasRiskAllele, &riskLevel,
	)
	if err != nil {
		return assoc, err
	}

	assoc.RiskLevel = domain.RiskLevel(riskLevel)
	if hasRiskAllele.Valid {
		has := hasRiskAllele.Int64 != 0
		assoc.UserHasRiskAllele = &has
	}
	return assoc, nil
}

func boolToInt(b *bool) interface{} {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
