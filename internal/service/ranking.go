package service

import (
	"sort"

	"github.com/lifescore-app/backend/internal/domain"
)

// rankPopulation assigns rank and percentile across the latest record per
// user. Rank is the 1-based position ordered by composite score descending;
// ties break by createdAt ascending, then by record ID, so the ordering is
// total and repeated runs over an unchanged population produce identical
// assignments. Percentile is the share of records with a strictly lower
// composite score, expressed 0-100.
func rankPopulation(records []domain.LifeScoreRecord) []domain.RankAssignment {
	total := len(records)
	if total == 0 {
		return nil
	}

	ordered := make([]domain.LifeScoreRecord, total)
	copy(ordered, records)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].CompositeScore != ordered[j].CompositeScore {
			return ordered[i].CompositeScore > ordered[j].CompositeScore
		}
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	assignments := make([]domain.RankAssignment, total)
	idx := 0
	for idx < total {
		next := idx
		for next < total && ordered[next].CompositeScore == ordered[idx].CompositeScore {
			next++
		}
		// Everything past the tie group scores strictly lower.
		percentile := float64(total-next) / float64(total) * 100
		for k := idx; k < next; k++ {
			assignments[k] = domain.RankAssignment{
				ScoreID:    ordered[k].ID,
				Rank:       k + 1,
				Percentile: percentile,
			}
		}
		idx = next
	}
	return assignments
}
