package domain

import (
	"time"
)

// Core Enums and Types

// Format identifies the layout of an uploaded genotype file.
type Format string

const (
	Format23AndMe  Format = "23andme"
	FormatAncestry Format = "ancestry"
	FormatVCF      Format = "vcf"
	FormatUnknown  Format = "unknown"
)

// RiskLevel is the user-facing risk tier computed for a scored association.
type RiskLevel string

const (
	RiskVeryHigh RiskLevel = "very_high"
	RiskHigh     RiskLevel = "high"
	RiskModerate RiskLevel = "moderate"
	RiskSlight   RiskLevel = "slight"
	RiskLower    RiskLevel = "lower"
	RiskUnknown  RiskLevel = "unknown"
)

// AnalysisStatus tracks the lifecycle of a queued analysis run.
type AnalysisStatus string

const (
	StatusParsing   AnalysisStatus = "parsing"
	StatusMatching  AnalysisStatus = "matching"
	StatusCompleted AnalysisStatus = "completed"
	StatusError     AnalysisStatus = "error"
)

// EffectMeasureKind distinguishes odds-ratio effect sizes from beta coefficients.
type EffectMeasureKind string

const (
	EffectOddsRatio EffectMeasureKind = "odds_ratio"
	EffectBeta      EffectMeasureKind = "beta"
	EffectUnknown   EffectMeasureKind = "unknown"
)

// NoCallGenotype is the vendor sentinel for a position with no readable call.
const NoCallGenotype = "--"

// Parsed input

// UserVariant is one genotyped marker parsed from the uploaded file.
type UserVariant struct {
	ID         string `json:"rsid"`
	Chromosome string `json:"chromosome"`
	Position   string `json:"position"`
	Genotype   string `json:"genotype"`
}

// Alleles returns the distinct single-character alleles in the genotype.
func (v UserVariant) Alleles() []string {
	seen := make(map[rune]bool, 2)
	var alleles []string
	for _, r := range v.Genotype {
		if !seen[r] {
			seen[r] = true
			alleles = append(alleles, string(r))
		}
	}
	return alleles
}

// Catalog records (read-only, externally supplied)

// AssociationRecord is a published variant-trait association from the
// GWAS catalog. Uniqueness: (VariantID, Trait, ReferenceID).
type AssociationRecord struct {
	VariantID           string            `json:"rsid"`
	Trait               string            `json:"trait"`
	TraitCategory       string            `json:"trait_category,omitempty"`
	PValue              string            `json:"p_value,omitempty"`
	EffectAllele        string            `json:"effect_allele,omitempty"`
	EffectMeasureKind   EffectMeasureKind `json:"effect_measure_kind"`
	EffectMeasureValue  string            `json:"effect_measure_value,omitempty"`
	RiskAlleleFrequency string            `json:"risk_allele_frequency,omitempty"`
	StudyDescription    string            `json:"study_description,omitempty"`
	ReferenceID         string            `json:"reference_id,omitempty"`
	Chromosome          string            `json:"chromosome,omitempty"`
	Position            string            `json:"position,omitempty"`
	MappedGene          string            `json:"mapped_gene,omitempty"`
}

// ClinicalVariantRecord is one clinical database submission for a variant.
// Multiple records may exist per variant; uniqueness: (VariantID, Accession).
type ClinicalVariantRecord struct {
	VariantID            string `json:"rsid"`
	Gene                 string `json:"gene,omitempty"`
	Accession            string `json:"accession"`
	ClinicalSignificance string `json:"clinical_significance,omitempty"`
	Condition            string `json:"condition,omitempty"`
	ReviewStatus         string `json:"review_status,omitempty"`
	LastEvaluated        string `json:"last_evaluated,omitempty"`
	NumberSubmitters     int    `json:"number_submitters,omitempty"`
}

// Clinical scoring output

// ClinicalSubmission is a normalized, scored clinical submission.
type ClinicalSubmission struct {
	Accession            string `json:"accession"`
	ClinicalSignificance string `json:"clinical_significance"`
	SignificanceScore    int    `json:"significance_score"`
	Condition            string `json:"condition"`
	ReviewStatus         string `json:"review_status"`
	ReviewScore          int    `json:"review_score"`
	LastEvaluated        string `json:"last_evaluated"`
	NumberSubmitters     int    `json:"number_submitters"`
}

// ClinicalInfo rolls up all clinical submissions for one variant.
// Submissions are sorted descending by (SignificanceScore, ReviewScore);
// index 0 supplies the representative condition.
type ClinicalInfo struct {
	HasClinvar           bool                 `json:"has_clinvar"`
	Gene                 string               `json:"gene,omitempty"`
	MaxSignificanceScore int                  `json:"max_significance_score"`
	MaxReviewScore       int                  `json:"max_review_score"`
	SubmissionCount      int                  `json:"submission_count"`
	Submissions          []ClinicalSubmission `json:"submissions"`
}

// Derived results

// ScoredAssociation is a matched association enriched with scores and
// classification. It lives only for the duration of one analysis run;
// only the deduplicated, categorized subset is persisted.
type ScoredAssociation struct {
	VariantID           string    `json:"rsid"`
	Genotype            string    `json:"genotype"`
	Chromosome          string    `json:"chromosome"`
	Position            string    `json:"position"`
	Trait               string    `json:"trait"`
	PValue              string    `json:"p_value,omitempty"`
	ImportanceScore     float64   `json:"importance_score"`
	RiskAllele          string    `json:"risk_allele,omitempty"`
	ClinvarCondition    *string   `json:"clinvar_condition,omitempty"`
	ClinvarSignificance *int      `json:"clinvar_significance,omitempty"`
	ManualCategory      *string   `json:"manual_category,omitempty"`
	TraitCategory       *string   `json:"trait_category,omitempty"`
	OddsRatio           *float64  `json:"odds_ratio,omitempty"`
	RiskAlleleFrequency *float64  `json:"risk_allele_frequency,omitempty"`
	StudyDescription    string    `json:"study_description,omitempty"`
	ReferenceID         string    `json:"reference_id,omitempty"`
	UserHasRiskAllele   *bool     `json:"user_has_risk_allele,omitempty"`
	RiskLevel           RiskLevel `json:"risk_level"`
}

// AnalysisSummary is the per-run rollup of counts.
type AnalysisSummary struct {
	TotalVariants     int `json:"total_variants"`
	MatchedVariants   int `json:"matched_variants"`
	TotalAssociations int `json:"total_associations"`
	ClinvarCount      int `json:"clinvar_count"`
}

// CategoryGroup holds the deduplicated associations for one curated category,
// sorted by (risk priority, importance score) descending.
type CategoryGroup struct {
	Category     string              `json:"category"`
	Associations []ScoredAssociation `json:"associations"`
}

// AnalysisResult is the complete output of one analysis run.
type AnalysisResult struct {
	Summary      AnalysisSummary     `json:"summary"`
	Associations []ScoredAssociation `json:"associations"`
	Groups       []CategoryGroup     `json:"category_groups"`
}

// CategoryPage is one page of a category's filtered association list,
// consumed directly by the web layer.
type CategoryPage struct {
	Category   string              `json:"category"`
	Offset     int                 `json:"offset"`
	Limit      int                 `json:"limit"`
	TotalCount int                 `json:"total_count"`
	Items      []ScoredAssociation `json:"items"`
}

// AnalysisRecord is the persisted state of a queued or finished run.
type AnalysisRecord struct {
	ID           string           `json:"id"`
	FileName     string           `json:"file_name"`
	Status       AnalysisStatus   `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Summary      *AnalysisSummary `json:"summary,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
