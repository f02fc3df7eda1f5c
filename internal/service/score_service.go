package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lifescore-app/backend/internal/domain"
)

// Fixed component weights. They sum to exactly 1.0; the weight of a missing
// component is not redistributed to the remaining ones, so incomplete
// profiles score lower by design.
const (
	WeightCognitive   = 0.50
	WeightPortfolio   = 0.30
	WeightEndorsement = 0.20
)

// Component score kinds served by a ComponentSource.
const (
	ComponentCognitive = "cognitive"
	ComponentPortfolio = "portfolio"
)

// ScoreRepository is the storage contract required by the score service.
type ScoreRepository interface {
	InsertLifeScore(ctx context.Context, rec domain.LifeScoreRecord) error
	LatestLifeScore(ctx context.Context, userID string) (*domain.LifeScoreRecord, error)
	ScoreHistory(ctx context.Context, userID string, limit int) ([]domain.LifeScoreRecord, error)
	LatestRecords(ctx context.Context) ([]domain.LifeScoreRecord, error)
	ApplyRankings(ctx context.Context, assignments []domain.RankAssignment) error
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// ComponentSource supplies the latest scalar score for a user from an
// external scoring subsystem, or nil when it has no data yet.
type ComponentSource interface {
	LatestComponentScore(ctx context.Context, kind, userID string) (*float64, error)
}

// EndorsementReader provides the approved endorsement set used for the
// endorsement component.
type EndorsementReader interface {
	ApprovedEndorsements(ctx context.Context, userID string) ([]domain.Endorsement, error)
}

// ScoreService aggregates component scores into LifeScore records, keeps
// population rankings current, and serves history and leaderboard reads.
type ScoreService struct {
	repo         ScoreRepository
	components   ComponentSource
	endorsements EndorsementReader
	logger       *slog.Logger
	nowFn        func() time.Time
	newID        func() string
}

// History bundles a user's score records (newest first) with derived growth
// metrics.
type History struct {
	Records []domain.LifeScoreRecord
	Growth  domain.GrowthMetrics
}

// NewScoreService constructs a ScoreService.
func NewScoreService(repo ScoreRepository, components ComponentSource, endorsements EndorsementReader, logger *slog.Logger) *ScoreService {
	return &ScoreService{
		repo:         repo,
		components:   components,
		endorsements: endorsements,
		logger:       logger,
		nowFn:        time.Now,
		newID:        uuid.NewString,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *ScoreService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// WithIDGenerator overrides record ID generation (used primarily in tests).
func (s *ScoreService) WithIDGenerator(newID func() string) {
	if newID != nil {
		s.newID = newID
	}
}

// Calculate produces and persists a new LifeScore record from whatever
// component scores are currently available, then recomputes rankings across
// the whole population. An unreachable component source degrades to an
// absent component; if all three are absent the record is still created
// with a composite of zero.
func (s *ScoreService) Calculate(ctx context.Context, userID string) (domain.LifeScoreRecord, error) {
	if userID == "" {
		return domain.LifeScoreRecord{}, errors.New("user id is required")
	}

	s.logger.Info("calculating lifescore", "userId", userID)

	cognitive := s.componentScore(ctx, ComponentCognitive, userID)
	portfolio := s.componentScore(ctx, ComponentPortfolio, userID)
	endorsement := s.endorsementComponent(ctx, userID)

	rec := buildRecord(userID, cognitive, portfolio, endorsement)
	rec.ID = s.newID()
	rec.CreatedAt = s.nowFn().UTC()

	if err := s.repo.InsertLifeScore(ctx, rec); err != nil {
		return domain.LifeScoreRecord{}, err
	}

	if err := s.RecomputeRankings(ctx); err != nil {
		return domain.LifeScoreRecord{}, fmt.Errorf("recompute rankings: %w", err)
	}

	return rec, nil
}

// Latest returns the user's current LifeScore record.
func (s *ScoreService) Latest(ctx context.Context, userID string) (*domain.LifeScoreRecord, error) {
	rec, err := s.repo.LatestLifeScore(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("lifescore for user %s: %w", userID, ErrNotFound)
	}
	return rec, nil
}

// GetHistory returns up to limit records newest first together with growth
// metrics derived from them.
func (s *ScoreService) GetHistory(ctx context.Context, userID string, limit int) (History, error) {
	records, err := s.repo.ScoreHistory(ctx, userID, limit)
	if err != nil {
		return History{}, err
	}
	return History{
		Records: records,
		Growth:  growthFromHistory(records),
	}, nil
}

// Leaderboard returns up to limit ranked entries.
func (s *ScoreService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return s.repo.Leaderboard(ctx, limit)
}

// RecomputeRankings rewrites rank and percentile for every user's latest
// record. The assignment is total and idempotent; the write happens as a
// single query so concurrent recomputes never leave a partial result.
func (s *ScoreService) RecomputeRankings(ctx context.Context) error {
	records, err := s.repo.LatestRecords(ctx)
	if err != nil {
		return err
	}
	return s.repo.ApplyRankings(ctx, rankPopulation(records))
}

func (s *ScoreService) componentScore(ctx context.Context, kind, userID string) *float64 {
	value, err := s.components.LatestComponentScore(ctx, kind, userID)
	if err != nil {
		s.logger.Warn("component source unreachable, treating as absent",
			"kind", kind,
			"userId", userID,
			"error", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err),
		)
		return nil
	}
	return value
}

func (s *ScoreService) endorsementComponent(ctx context.Context, userID string) *float64 {
	approved, err := s.endorsements.ApprovedEndorsements(ctx, userID)
	if err != nil {
		s.logger.Warn("endorsement source unreachable, treating as absent",
			"userId", userID,
			"error", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err),
		)
		return nil
	}
	if len(approved) == 0 {
		return nil
	}
	score := EndorsementScore(approved)
	return &score
}

func buildRecord(userID string, cognitive, portfolio, endorsement *float64) domain.LifeScoreRecord {
	breakdown := domain.ScoreBreakdown{
		Weights: domain.Weights{
			Cognitive:   WeightCognitive,
			Portfolio:   WeightPortfolio,
			Endorsement: WeightEndorsement,
		},
	}

	composite := 0.0
	if cognitive != nil {
		breakdown.Components.Cognitive = cognitive
		breakdown.Contributions.Cognitive = *cognitive * WeightCognitive
		composite += breakdown.Contributions.Cognitive
	}
	if portfolio != nil {
		breakdown.Components.Portfolio = portfolio
		breakdown.Contributions.Portfolio = *portfolio * WeightPortfolio
		composite += breakdown.Contributions.Portfolio
	}
	if endorsement != nil {
		breakdown.Components.Endorsement = endorsement
		breakdown.Contributions.Endorsement = *endorsement * WeightEndorsement
		composite += breakdown.Contributions.Endorsement
	}

	return domain.LifeScoreRecord{
		UserID:           userID,
		CognitiveScore:   cognitive,
		PortfolioScore:   portfolio,
		EndorsementScore: endorsement,
		CompositeScore:   round2(composite),
		Breakdown:        breakdown,
	}
}
