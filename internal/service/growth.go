package service

import (
	"math"

	"github.com/lifescore-app/backend/internal/domain"
)

// Trend thresholds in absolute composite points, not relative change.
const (
	trendImproveThreshold = 5.0
	trendDeclineThreshold = -5.0
)

// growthFromHistory derives growth metrics from a score history. The input
// must be ordered newest first; the repository guarantees that ordering and
// reversing it would invert every sign below.
func growthFromHistory(records []domain.LifeScoreRecord) domain.GrowthMetrics {
	if len(records) < 2 {
		return domain.GrowthMetrics{
			Trend:      domain.TrendStable,
			DataPoints: len(records),
		}
	}

	latest := records[0].CompositeScore
	earliest := records[len(records)-1].CompositeScore

	totalChange := latest - earliest
	percentageChange := 0.0
	if earliest > 0 {
		percentageChange = totalChange / earliest * 100
	}

	trend := domain.TrendStable
	switch {
	case totalChange > trendImproveThreshold:
		trend = domain.TrendImproving
	case totalChange < trendDeclineThreshold:
		trend = domain.TrendDeclining
	}

	return domain.GrowthMetrics{
		TotalChange:      round2(totalChange),
		PercentageChange: round2(percentageChange),
		Trend:            trend,
		LatestScore:      latest,
		EarliestScore:    earliest,
		DataPoints:       len(records),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
