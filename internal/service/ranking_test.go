package service

import (
	"testing"
	"time"

	"github.com/lifescore-app/backend/internal/domain"
)

func TestRankPopulationOrdersByCompositeDescending(t *testing.T) {
	records := []domain.LifeScoreRecord{
		{ID: "LS-low", CompositeScore: 40},
		{ID: "LS-high", CompositeScore: 90},
		{ID: "LS-mid", CompositeScore: 60},
	}

	assignments := rankPopulation(records)
	if len(assignments) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(assignments))
	}

	byID := indexAssignments(assignments)
	if byID["LS-high"].Rank != 1 || byID["LS-mid"].Rank != 2 || byID["LS-low"].Rank != 3 {
		t.Errorf("unexpected ranks: %+v", byID)
	}
	if byID["LS-high"].Percentile != 100.0/3*2 {
		t.Errorf("expected top percentile %v, got %v", 100.0/3*2, byID["LS-high"].Percentile)
	}
	if byID["LS-low"].Percentile != 0 {
		t.Errorf("expected bottom percentile 0, got %v", byID["LS-low"].Percentile)
	}
}

func TestRankPopulationTieBreak(t *testing.T) {
	earlier := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	records := []domain.LifeScoreRecord{
		{ID: "LS-b", CompositeScore: 80, CreatedAt: later},
		{ID: "LS-a", CompositeScore: 80, CreatedAt: earlier},
		{ID: "LS-c", CompositeScore: 50, CreatedAt: earlier},
	}

	byID := indexAssignments(rankPopulation(records))

	// Older record wins the tie; both share the percentile of the group.
	if byID["LS-a"].Rank != 1 {
		t.Errorf("expected older tied record ranked 1, got %d", byID["LS-a"].Rank)
	}
	if byID["LS-b"].Rank != 2 {
		t.Errorf("expected newer tied record ranked 2, got %d", byID["LS-b"].Rank)
	}
	if byID["LS-a"].Percentile != byID["LS-b"].Percentile {
		t.Errorf("expected tied records to share a percentile")
	}
	// Only LS-c scores strictly lower than the tied pair.
	want := 100.0 / 3
	if byID["LS-a"].Percentile != want {
		t.Errorf("expected percentile %v, got %v", want, byID["LS-a"].Percentile)
	}
}

func TestRankPopulationIdempotent(t *testing.T) {
	records := []domain.LifeScoreRecord{
		{ID: "LS-1", CompositeScore: 75, CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "LS-2", CompositeScore: 75, CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "LS-3", CompositeScore: 30, CreatedAt: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)},
	}

	first := indexAssignments(rankPopulation(records))
	second := indexAssignments(rankPopulation(records))

	for id, a := range first {
		if second[id] != a {
			t.Errorf("assignment for %s changed between runs: %+v vs %+v", id, a, second[id])
		}
	}
}

func TestRankPopulationEmpty(t *testing.T) {
	if got := rankPopulation(nil); got != nil {
		t.Errorf("expected nil assignments for empty population, got %v", got)
	}
}

func indexAssignments(assignments []domain.RankAssignment) map[string]domain.RankAssignment {
	byID := make(map[string]domain.RankAssignment, len(assignments))
	for _, a := range assignments {
		byID[a.ScoreID] = a
	}
	return byID
}
