// Package results persists finished analysis runs and serves the
// category-grouped, paginated views built from them.
package results

import (
	"context"

	"github.com/genome-trait-server/internal/domain"
)

// CategoryCount is one curated category and its deduplicated member count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Store is the persistence surface for analysis runs. Only the
// deduplicated, categorized subset of a run's associations is written;
// raw scored associations are never stored.
type Store interface {
	CreateAnalysis(ctx context.Context, record *domain.AnalysisRecord) error
	UpdateStatus(ctx context.Context, id string, status domain.AnalysisStatus, errorMessage string) error
	SaveResult(ctx context.Context, id string, result *domain.AnalysisResult) error
	GetAnalysis(ctx context.Context, id string) (*domain.AnalysisRecord, error)
	ListCategories(ctx context.Context, id string) ([]CategoryCount, error)
	GetCategoryPage(ctx context.Context, id, category string, offset, limit int, minImportance *float64) (*domain.CategoryPage, error)
}

// riskPriorityCase orders rows by risk tier inside SQL, mirroring the
// in-memory sort used during aggregation.
const riskPriorityCase = `
	CASE risk_level
		WHEN 'very_high' THEN 100
		WHEN 'high' THEN 90
		WHEN 'moderate' THEN 75
		WHEN 'slight' THEN 55
		WHEN 'lower' THEN 1
		ELSE 0
	END`
