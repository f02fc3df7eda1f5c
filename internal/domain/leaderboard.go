package domain

import "time"

// UserProfile holds the basic profile fields joined into leaderboard
// entries. Identity resolution itself lives outside this service.
type UserProfile struct {
	ID          string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// LeaderboardEntry is a read-only projection joining a user's latest
// LifeScoreRecord with profile fields. It is regenerated on read, never
// persisted.
type LeaderboardEntry struct {
	UserID           string
	DisplayName      string
	Email            string
	CompositeScore   float64
	CognitiveScore   *float64
	PortfolioScore   *float64
	EndorsementScore *float64
	Rank             int
	Percentile       float64
}
