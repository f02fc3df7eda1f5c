package service

import (
	"testing"

	"github.com/lifescore-app/backend/internal/domain"
)

func history(scores ...float64) []domain.LifeScoreRecord {
	records := make([]domain.LifeScoreRecord, len(scores))
	for i, s := range scores {
		records[i] = domain.LifeScoreRecord{CompositeScore: s}
	}
	return records
}

func TestGrowthFromHistory(t *testing.T) {
	tests := []struct {
		name       string
		newestTo   []domain.LifeScoreRecord
		wantTrend  string
		wantTotal  float64
		wantPct    float64
		wantPoints int
	}{
		{
			name:       "improving",
			newestTo:   history(90, 80, 70),
			wantTrend:  domain.TrendImproving,
			wantTotal:  20,
			wantPct:    28.57,
			wantPoints: 3,
		},
		{
			name:       "declining",
			newestTo:   history(70, 80, 90),
			wantTrend:  domain.TrendDeclining,
			wantTotal:  -20,
			wantPct:    -22.22,
			wantPoints: 3,
		},
		{
			name:       "stable within threshold",
			newestTo:   history(95, 90),
			wantTrend:  domain.TrendStable,
			wantTotal:  5,
			wantPct:    5.56,
			wantPoints: 2,
		},
		{
			name:       "zero earliest skips percentage",
			newestTo:   history(40, 0),
			wantTrend:  domain.TrendImproving,
			wantTotal:  40,
			wantPct:    0,
			wantPoints: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := growthFromHistory(tc.newestTo)
			if got.Trend != tc.wantTrend {
				t.Errorf("trend: want %s, got %s", tc.wantTrend, got.Trend)
			}
			if got.TotalChange != tc.wantTotal {
				t.Errorf("total change: want %v, got %v", tc.wantTotal, got.TotalChange)
			}
			if got.PercentageChange != tc.wantPct {
				t.Errorf("percentage change: want %v, got %v", tc.wantPct, got.PercentageChange)
			}
			if got.DataPoints != tc.wantPoints {
				t.Errorf("data points: want %d, got %d", tc.wantPoints, got.DataPoints)
			}
		})
	}
}

func TestGrowthFromHistoryTooShort(t *testing.T) {
	got := growthFromHistory(history(55))
	if got.Trend != domain.TrendStable {
		t.Errorf("expected stable trend for single record, got %s", got.Trend)
	}
	if got.DataPoints != 1 {
		t.Errorf("expected 1 data point, got %d", got.DataPoints)
	}
	if got.TotalChange != 0 {
		t.Errorf("expected zero total change, got %v", got.TotalChange)
	}
}
