package analysis

import (
	"fmt"
	"sort"

	"github.com/genome-trait-server/internal/domain"
	"github.com/genome-trait-server/internal/scoring"
)

// Deduplicate keeps at most one association per variant id: the one with
// the strictly greater importance score. Ties keep the first seen, so the
// caller's input order is part of the contract. Output preserves first-seen
// variant order.
func Deduplicate(scored []domain.ScoredAssociation) []domain.ScoredAssociation {
	best := make(map[string]int, len(scored))
	deduped := make([]domain.ScoredAssociation, 0, len(scored))

	for _, assoc := range scored {
		idx, seen := best[assoc.VariantID]
		if !seen {
			best[assoc.VariantID] = len(deduped)
			deduped = append(deduped, assoc)
			continue
		}
		if assoc.ImportanceScore > deduped[idx].ImportanceScore {
			deduped[idx] = assoc
		}
	}

	return deduped
}

// GroupByCategory buckets deduplicated associations by curated category.
// Associations without a curated category are excluded. Within a group,
// associations sort descending by (risk priority, importance score); groups
// sort descending by member count, with category name as the tie-break so
// output order is stable across runs.
func GroupByCategory(deduped []domain.ScoredAssociation) []domain.CategoryGroup {
	buckets := make(map[string][]domain.ScoredAssociation)
	for _, assoc := range deduped {
		if assoc.ManualCategory == nil {
			continue
		}
		name := *assoc.ManualCategory
		buckets[name] = append(buckets[name], assoc)
	}

	groups := make([]domain.CategoryGroup, 0, len(buckets))
	for name, members := range buckets {
		sort.SliceStable(members, func(i, j int) bool {
			pi := scoring.RiskPriority(members[i].RiskLevel)
			pj := scoring.RiskPriority(members[j].RiskLevel)
			if pi != pj {
				return pi > pj
			}
			return members[i].ImportanceScore > members[j].ImportanceScore
		})
		groups = append(groups, domain.CategoryGroup{Category: name, Associations: members})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].Associations) != len(groups[j].Associations) {
			return len(groups[i].Associations) > len(groups[j].Associations)
		}
		return groups[i].Category < groups[j].Category
	})

	return groups
}

// Aggregate runs deduplication and category grouping over one run's scored
// associations. It is the only view external collaborators consume.
func Aggregate(scored []domain.ScoredAssociation) ([]domain.ScoredAssociation, []domain.CategoryGroup) {
	deduped := Deduplicate(scored)
	return deduped, GroupByCategory(deduped)
}

// Page slices one category's associations for browsing. The minImportance
// filter applies before counting and before slicing, so TotalCount always
// reflects the filtered set.
func Page(groups []domain.CategoryGroup, category string, offset, limit int, minImportance *float64) (*domain.CategoryPage, error) {
	if offset < 0 {
		return nil, fmt.Errorf("offset must be non-negative, got %d", offset)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	var members []domain.ScoredAssociation
	found := false
	for _, g := range groups {
		if g.Category == category {
			members = g.Associations
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("category %q: %w", category, domain.ErrNotFound)
	}

	filtered := members
	if minImportance != nil {
		filtered = make([]domain.ScoredAssociation, 0, len(members))
		for _, assoc := range members {
			if assoc.ImportanceScore >= *minImportance {
				filtered = append(filtered, assoc)
			}
		}
	}

	page := &domain.CategoryPage{
		Category:   category,
		Offset:     offset,
		Limit:      limit,
		TotalCount: len(filtered),
		Items:      []domain.ScoredAssociation{},
	}

	if offset < len(filtered) {
		end := offset + limit
		if end > len(filtered) {
			end = len(filtered)
		}
		page.Items = filtered[offset:end]
	}

	return page, nil
}
