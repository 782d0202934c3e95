// Package analysis drives the end-to-end pipeline for one genotype file:
// parse, batched catalog matching, scoring, classification, aggregation.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/genome-trait-server/internal/catalog"
	"github.com/genome-trait-server/internal/category"
	"github.com/genome-trait-server/internal/domain"
	"github.com/genome-trait-server/internal/genotype"
	"github.com/genome-trait-server/internal/scoring"
)

const (
	defaultBatchSize = 10000
	defaultWorkers   = 4
)

// Config holds pipeline tuning.
type Config struct {
	// BatchSize is the number of variants matched per catalog round trip.
	BatchSize int
	// Workers bounds the number of batches matched concurrently.
	Workers int
}

// Progress receives batch-completion notifications during a run. Calls are
// serialized; implementations need no locking.
type Progress func(status domain.AnalysisStatus, processedBatches, totalBatches int)

// Analyzer runs complete analyses against a catalog store.
type Analyzer struct {
	store     catalog.Store
	parser    *genotype.Parser
	log       *logrus.Logger
	batchSize int
	workers   int
}

// New creates an Analyzer. Zero config fields fall back to defaults.
func New(store catalog.Store, cfg Config, logger *logrus.Logger) *Analyzer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Analyzer{
		store:     store,
		parser:    genotype.NewParser(logger),
		log:       logger,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
	}
}

type batchStats struct {
	matchedVariants   int
	totalAssociations int
	clinvarVariants   int
}

// Analyze executes the full pipeline over raw file content. Batches run on
// a bounded worker pool; the merge is deterministic because batches are cut
// from the variant set sorted by id and concatenated in batch order. A
// store failure or caller cancellation aborts the run with no partial
// result.
func (a *Analyzer) Analyze(ctx context.Context, content string, progress Progress) (*domain.AnalysisResult, error) {
	parsed, err := a.parser.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing genotype file: %w", err)
	}

	ordered := make([]domain.UserVariant, 0, len(parsed))
	for _, v := range parsed {
		ordered = append(ordered, v)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	batches := chunkVariants(ordered, a.batchSize)
	results := make([][]domain.ScoredAssociation, len(batches))
	stats := make([]batchStats, len(batches))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		firstErr  error
		completed int
	)

	jobs := make(chan int)
	workers := a.workers
	if workers > len(batches) {
		workers = len(batches)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if runCtx.Err() != nil {
					return
				}
				scored, st, err := a.processBatch(runCtx, batches[idx])
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					mu.Unlock()
					return
				}
				results[idx] = scored
				stats[idx] = st
				completed++
				if progress != nil {
					progress(domain.StatusMatching, completed, len(batches))
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for idx := range batches {
		select {
		case jobs <- idx:
		case <-runCtx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := domain.AnalysisSummary{TotalVariants: len(parsed)}
	var allScored []domain.ScoredAssociation
	for i := range batches {
		allScored = append(allScored, results[i]...)
		summary.MatchedVariants += stats[i].matchedVariants
		summary.TotalAssociations += stats[i].totalAssociations
		summary.ClinvarCount += stats[i].clinvarVariants
	}

	deduped, groups := Aggregate(allScored)

	a.log.WithFields(logrus.Fields{
		"total_variants":     summary.TotalVariants,
		"matched_variants":   summary.MatchedVariants,
		"total_associations": summary.TotalAssociations,
		"clinvar_variants":   summary.ClinvarCount,
		"category_groups":    len(groups),
	}).Info("Analysis run completed")

	return &domain.AnalysisResult{
		Summary:      summary,
		Associations: deduped,
		Groups:       groups,
	}, nil
}

// processBatch matches one batch against both catalogs and scores every
// returned association. Variants inside a batch keep their sorted order.
func (a *Analyzer) processBatch(ctx context.Context, batch []domain.UserVariant) ([]domain.ScoredAssociation, batchStats, error) {
	var st batchStats

	matches, err := a.store.MatchAssociations(ctx, batch)
	if err != nil {
		return nil, st, err
	}

	matchedIDs := make([]string, 0, len(matches))
	for id := range matches {
		matchedIDs = append(matchedIDs, id)
	}
	sort.Strings(matchedIDs)

	clinical, err := a.store.MatchClinical(ctx, matchedIDs)
	if err != nil {
		return nil, st, err
	}

	var scored []domain.ScoredAssociation
	for _, variant := range batch {
		records := matches[variant.ID]
		if len(records) == 0 {
			continue
		}

		var info *domain.ClinicalInfo
		if submissions := clinical[variant.ID]; len(submissions) > 0 {
			scoredInfo := scoring.ScoreClinical(submissions)
			info = &scoredInfo
		}

		for _, rec := range records {
			scored = append(scored, scoreAssociation(variant, rec, info))
		}

		st.matchedVariants++
		st.totalAssociations += len(records)
		if info != nil && info.HasClinvar {
			st.clinvarVariants++
		}
	}

	return scored, st, nil
}

// scoreAssociation turns one matched catalog record into a fully scored,
// classified association for the user's variant.
func scoreAssociation(variant domain.UserVariant, rec domain.AssociationRecord, info *domain.ClinicalInfo) domain.ScoredAssociation {
	importance := scoring.ScoreImportance(rec.PValue, info)

	assoc := domain.ScoredAssociation{
		VariantID:        variant.ID,
		Genotype:         variant.Genotype,
		Chromosome:       variant.Chromosome,
		Position:         variant.Position,
		Trait:            rec.Trait,
		PValue:           rec.PValue,
		ImportanceScore:  importance,
		RiskAllele:       rec.EffectAllele,
		StudyDescription: rec.StudyDescription,
		ReferenceID:      rec.ReferenceID,
	}

	if info != nil && info.HasClinvar {
		sig := info.MaxSignificanceScore
		assoc.ClinvarSignificance = &sig
		if len(info.Submissions) > 0 && info.Submissions[0].Condition != "" {
			condition := info.Submissions[0].Condition
			assoc.ClinvarCondition = &condition
		}
	}

	if curated, ok := category.Classify(variant.ID, rec.Trait); ok {
		assoc.ManualCategory = &curated
	}

	// The free-text catalog category wins when present; the keyword
	// heuristic is only a fallback grouping.
	traitCategory := rec.TraitCategory
	if traitCategory == "" {
		traitCategory = category.CategorizeTrait(rec.Trait)
	}
	assoc.TraitCategory = &traitCategory

	if rec.EffectMeasureKind == domain.EffectOddsRatio {
		if or, err := strconv.ParseFloat(strings.TrimSpace(rec.EffectMeasureValue), 64); err == nil {
			assoc.OddsRatio = &or
		}
	}
	if freq, err := strconv.ParseFloat(strings.TrimSpace(rec.RiskAlleleFrequency), 64); err == nil {
		assoc.RiskAlleleFrequency = &freq
	}
	if rec.EffectAllele != "" {
		has := strings.Contains(variant.Genotype, rec.EffectAllele)
		assoc.UserHasRiskAllele = &has
	}

	assoc.RiskLevel = scoring.ClassifyRisk(scoring.RiskInputs{
		ImportanceScore:     assoc.ImportanceScore,
		UserHasRiskAllele:   assoc.UserHasRiskAllele,
		OddsRatio:           assoc.OddsRatio,
		RiskAlleleFrequency: assoc.RiskAlleleFrequency,
	})

	return assoc
}

func chunkVariants(variants []domain.UserVariant, size int) [][]domain.UserVariant {
	if len(variants) == 0 {
		return nil
	}
	batches := make([][]domain.UserVariant, 0, (len(variants)+size-1)/size)
	for start := 0; start < len(variants); start += size {
		end := start + size
		if end > len(variants) {
			end = len(variants)
		}
		batches = append(batches, variants[start:end])
	}
	return batches
}
