package domain

import "time"

// Weights holds the fixed component weights applied when aggregating a
// composite LifeScore. The three values sum to exactly 1.0.
type Weights struct {
	Cognitive   float64 `json:"cognitive"`
	Portfolio   float64 `json:"portfolio"`
	Endorsement float64 `json:"endorsement"`
}

// ComponentValues carries the raw component scores that were available at
// calculation time. A nil entry means the owning subsystem had no data yet.
type ComponentValues struct {
	Cognitive   *float64 `json:"cognitive,omitempty"`
	Portfolio   *float64 `json:"portfolio,omitempty"`
	Endorsement *float64 `json:"endorsement,omitempty"`
}

// Contributions records each component's weighted share of the composite.
// Absent components contribute zero; their weight is not redistributed.
type Contributions struct {
	Cognitive   float64 `json:"cognitiveContribution"`
	Portfolio   float64 `json:"portfolioContribution"`
	Endorsement float64 `json:"endorsementContribution"`
}

// ScoreBreakdown is the audit trail attached to a LifeScoreRecord. It is
// written once at calculation time and never recomputed retroactively.
type ScoreBreakdown struct {
	Weights       Weights         `json:"weights"`
	Components    ComponentValues `json:"components"`
	Contributions Contributions   `json:"compositeCalculation"`
}

// LifeScoreRecord is an immutable snapshot of one composite calculation.
// Only Rank and Percentile may change after creation, and only through the
// bulk ranking rewrite.
type LifeScoreRecord struct {
	ID               string
	UserID           string
	CognitiveScore   *float64
	PortfolioScore   *float64
	EndorsementScore *float64
	CompositeScore   float64
	Breakdown        ScoreBreakdown
	Rank             *int
	Percentile       *float64
	CreatedAt        time.Time
}

// RankAssignment pairs a score record with its recomputed rank and
// percentile. Assignments are always applied across the whole population in
// a single write.
type RankAssignment struct {
	ScoreID    string
	Rank       int
	Percentile float64
}

// GrowthMetrics summarises the change across a user's score history.
type GrowthMetrics struct {
	TotalChange      float64 `json:"totalChange"`
	PercentageChange float64 `json:"percentageChange"`
	Trend            string  `json:"trend"`
	LatestScore      float64 `json:"latestScore"`
	EarliestScore    float64 `json:"earliestScore"`
	DataPoints       int     `json:"dataPoints"`
}

// Trend labels returned by the growth analyzer.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)
