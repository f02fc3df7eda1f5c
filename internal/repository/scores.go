package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lifescore-app/backend/internal/domain"
	"github.com/lifescore-app/backend/internal/graph"
)

// Component score kinds understood by LatestComponentScore.
const (
	ComponentCognitive = "cognitive"
	ComponentPortfolio = "portfolio"
)

// InsertLifeScore persists a new immutable score record attached to the
// user node. The user node is created on first contact so a calculation for
// a not-yet-profiled user still succeeds.
func (r *Repository) InsertLifeScore(ctx context.Context, rec domain.LifeScoreRecord) error {
	if rec.ID == "" {
		return errors.New("score id is required")
	}
	if rec.UserID == "" {
		return errors.New("user id is required")
	}

	breakdown, err := serializeBreakdown(rec.Breakdown)
	if err != nil {
		return fmt.Errorf("serialize breakdown: %w", err)
	}

	props := map[string]any{
		"userId":         rec.UserID,
		"compositeScore": rec.CompositeScore,
		"breakdownJson":  breakdown,
		"createdAt":      formatTime(rec.CreatedAt),
	}
	if rec.CognitiveScore != nil {
		props["cognitiveScore"] = *rec.CognitiveScore
	}
	if rec.PortfolioScore != nil {
		props["portfolioScore"] = *rec.PortfolioScore
	}
	if rec.EndorsementScore != nil {
		props["endorsementScore"] = *rec.EndorsementScore
	}

	params := map[string]any{
		"userId":  rec.UserID,
		"scoreId": rec.ID,
		"props":   props,
	}

	if _, err := r.client.ExecuteWrite(ctx, insertLifeScoreCypher, params); err != nil {
		return fmt.Errorf("insert lifescore for %s: %w", rec.UserID, err)
	}
	return nil
}

// LatestLifeScore returns the user's most recent score record, or nil when
// the user has no score yet.
func (r *Repository) LatestLifeScore(ctx context.Context, userID string) (*domain.LifeScoreRecord, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	res, err := r.client.ExecuteRead(ctx, latestLifeScoreCypher, map[string]any{
		"userId": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("latest lifescore query: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, nil
	}

	rec := rowToLifeScore(res.Records[0])
	return &rec, nil
}

// ScoreHistory returns up to limit records for the user, newest first. The
// ordering is part of the growth-analysis contract and must not change.
func (r *Repository) ScoreHistory(ctx context.Context, userID string, limit int) ([]domain.LifeScoreRecord, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	res, err := r.client.ExecuteRead(ctx, scoreHistoryCypher, map[string]any{
		"userId": userID,
		"limit":  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("score history query: %w", err)
	}

	records := make([]domain.LifeScoreRecord, 0, len(res.Records))
	for _, record := range res.Records {
		records = append(records, rowToLifeScore(record))
	}
	return records, nil
}

// LatestRecords returns the latest score record per user across the whole
// population, as input for a ranking recompute.
func (r *Repository) LatestRecords(ctx context.Context) ([]domain.LifeScoreRecord, error) {
	res, err := r.client.ExecuteRead(ctx, latestRecordsCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("latest records query: %w", err)
	}

	records := make([]domain.LifeScoreRecord, 0, len(res.Records))
	for _, record := range res.Records {
		records = append(records, rowToLifeScore(record))
	}
	return records, nil
}

// ApplyRankings rewrites rank and percentile for the given records in a
// single write query, so concurrent recomputes each leave a self-consistent
// assignment behind.
func (r *Repository) ApplyRankings(ctx context.Context, assignments []domain.RankAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, map[string]any{
			"scoreId":    a.ScoreID,
			"rank":       a.Rank,
			"percentile": a.Percentile,
		})
	}

	if _, err := r.client.ExecuteWrite(ctx, applyRankingsCypher, map[string]any{
		"assignments": rows,
	}); err != nil {
		return fmt.Errorf("apply rankings: %w", err)
	}
	return nil
}

// Leaderboard returns ranked entries joining each user's latest score with
// profile fields.
func (r *Repository) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	res, err := r.client.ExecuteRead(ctx, leaderboardCypher, map[string]any{
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res.Records))
	for _, record := range res.Records {
		entry := domain.LeaderboardEntry{
			UserID:           toString(record["userId"]),
			DisplayName:      toString(record["displayName"]),
			Email:            toString(record["email"]),
			CompositeScore:   toFloat64(record["compositeScore"]),
			CognitiveScore:   toFloatPtr(record["cognitiveScore"]),
			PortfolioScore:   toFloatPtr(record["portfolioScore"]),
			EndorsementScore: toFloatPtr(record["endorsementScore"]),
			Percentile:       toFloat64(record["percentile"]),
		}
		if rank := toIntPtr(record["rank"]); rank != nil {
			entry.Rank = *rank
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LatestComponentScore returns the newest component score of the given kind
// for a user, or nil when the owning subsystem has no data yet.
func (r *Repository) LatestComponentScore(ctx context.Context, kind, userID string) (*float64, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	res, err := r.client.ExecuteRead(ctx, latestComponentScoreCypher, map[string]any{
		"kind":   kind,
		"userId": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("latest %s score query: %w", kind, err)
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	return toFloatPtr(res.Records[0]["value"]), nil
}

// InsertComponentScore records a component score supplied by an external
// subsystem. Used by seeding; production subsystems write through their own
// pipelines.
func (r *Repository) InsertComponentScore(ctx context.Context, kind, userID string, value float64, createdAt time.Time) error {
	if userID == "" {
		return errors.New("user id is required")
	}

	if _, err := r.client.ExecuteWrite(ctx, insertComponentScoreCypher, map[string]any{
		"userId":    userID,
		"kind":      kind,
		"value":     value,
		"createdAt": formatTime(createdAt),
	}); err != nil {
		return fmt.Errorf("insert %s score for %s: %w", kind, userID, err)
	}
	return nil
}

func rowToLifeScore(record graph.Record) domain.LifeScoreRecord {
	rec := domain.LifeScoreRecord{
		ID:               toString(record["scoreId"]),
		UserID:           toString(record["userId"]),
		CognitiveScore:   toFloatPtr(record["cognitiveScore"]),
		PortfolioScore:   toFloatPtr(record["portfolioScore"]),
		EndorsementScore: toFloatPtr(record["endorsementScore"]),
		CompositeScore:   toFloat64(record["compositeScore"]),
		Breakdown:        deserializeBreakdown(toString(record["breakdownJson"])),
		Rank:             toIntPtr(record["rank"]),
		Percentile:       toFloatPtr(record["percentile"]),
		CreatedAt:        toTime(record["createdAt"]),
	}
	return rec
}

const insertLifeScoreCypher = `
MERGE (u:User {userId: $userId})
CREATE (s:LifeScore {scoreId: $scoreId})
SET s += $props
CREATE (u)-[:HAS_SCORE]->(s)
RETURN s.scoreId AS scoreId
`

const lifeScoreReturnClause = `
RETURN s.scoreId AS scoreId,
       s.userId AS userId,
       s.cognitiveScore AS cognitiveScore,
       s.portfolioScore AS portfolioScore,
       s.endorsementScore AS endorsementScore,
       s.compositeScore AS compositeScore,
       s.breakdownJson AS breakdownJson,
       s.rank AS rank,
       s.percentile AS percentile,
       s.createdAt AS createdAt
`

const latestLifeScoreCypher = `
MATCH (u:User {userId: $userId})-[:HAS_SCORE]->(s:LifeScore)
WITH s ORDER BY datetime(s.createdAt) DESC
LIMIT 1
` + lifeScoreReturnClause

const scoreHistoryCypher = `
MATCH (u:User {userId: $userId})-[:HAS_SCORE]->(s:LifeScore)
WITH s ORDER BY datetime(s.createdAt) DESC
LIMIT $limit
` + lifeScoreReturnClause

const latestRecordsCypher = `
MATCH (u:User)-[:HAS_SCORE]->(s:LifeScore)
WITH u, s ORDER BY datetime(s.createdAt) DESC
WITH u, head(collect(s)) AS s
` + lifeScoreReturnClause

const applyRankingsCypher = `
UNWIND $assignments AS a
MATCH (s:LifeScore {scoreId: a.scoreId})
SET s.rank = a.rank,
    s.percentile = a.percentile
RETURN count(s) AS updated
`

const leaderboardCypher = `
MATCH (u:User)-[:HAS_SCORE]->(s:LifeScore)
WITH u, s ORDER BY datetime(s.createdAt) DESC
WITH u, head(collect(s)) AS s
WITH u, s ORDER BY coalesce(s.rank, 2147483647) ASC, s.compositeScore DESC
LIMIT $limit
RETURN u.userId AS userId,
       u.displayName AS displayName,
       u.email AS email,
       s.compositeScore AS compositeScore,
       s.cognitiveScore AS cognitiveScore,
       s.portfolioScore AS portfolioScore,
       s.endorsementScore AS endorsementScore,
       s.rank AS rank,
       s.percentile AS percentile
`

const latestComponentScoreCypher = `
MATCH (u:User {userId: $userId})-[:HAS_COMPONENT_SCORE]->(c:ComponentScore {kind: $kind})
WITH c ORDER BY datetime(c.createdAt) DESC
LIMIT 1
RETURN c.value AS value
`

const insertComponentScoreCypher = `
MERGE (u:User {userId: $userId})
CREATE (c:ComponentScore {kind: $kind, value: $value, createdAt: $createdAt})
CREATE (u)-[:HAS_COMPONENT_SCORE]->(c)
RETURN c.value AS value
`
