package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/lifescore-app/backend/internal/domain"
)

type stubScoreRepo struct {
	inserted   []domain.LifeScoreRecord
	latest     *domain.LifeScoreRecord
	history    []domain.LifeScoreRecord
	population []domain.LifeScoreRecord
	applied    [][]domain.RankAssignment
	entries    []domain.LeaderboardEntry
	insertErr  error
	rankErr    error
}

func (s *stubScoreRepo) InsertLifeScore(ctx context.Context, rec domain.LifeScoreRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, rec)
	return nil
}

func (s *stubScoreRepo) LatestLifeScore(ctx context.Context, userID string) (*domain.LifeScoreRecord, error) {
	return s.latest, nil
}

func (s *stubScoreRepo) ScoreHistory(ctx context.Context, userID string, limit int) ([]domain.LifeScoreRecord, error) {
	return s.history, nil
}

func (s *stubScoreRepo) LatestRecords(ctx context.Context) ([]domain.LifeScoreRecord, error) {
	return s.population, nil
}

func (s *stubScoreRepo) ApplyRankings(ctx context.Context, assignments []domain.RankAssignment) error {
	if s.rankErr != nil {
		return s.rankErr
	}
	s.applied = append(s.applied, assignments)
	return nil
}

func (s *stubScoreRepo) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return s.entries, nil
}

type stubComponents struct {
	values map[string]*float64
	errs   map[string]error
}

func (s *stubComponents) LatestComponentScore(ctx context.Context, kind, userID string) (*float64, error) {
	if err := s.errs[kind]; err != nil {
		return nil, err
	}
	return s.values[kind], nil
}

type stubEndorsementReader struct {
	approved []domain.Endorsement
	err      error
}

func (s *stubEndorsementReader) ApprovedEndorsements(ctx context.Context, userID string) ([]domain.Endorsement, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.approved, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func floatPtr(v float64) *float64 { return &v }

func newTestScoreService(repo *stubScoreRepo, components *stubComponents, endorsements *stubEndorsementReader) *ScoreService {
	if components == nil {
		components = &stubComponents{}
	}
	if endorsements == nil {
		endorsements = &stubEndorsementReader{}
	}
	svc := NewScoreService(repo, components, endorsements, testLogger())
	svc.WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	counter := 0
	svc.WithIDGenerator(func() string {
		counter++
		return "LS-" + string(rune('0'+counter))
	})
	return svc
}

func TestScoreService_CalculateSingleComponent(t *testing.T) {
	repo := &stubScoreRepo{}
	components := &stubComponents{values: map[string]*float64{
		ComponentCognitive: floatPtr(80),
	}}
	svc := newTestScoreService(repo, components, nil)

	rec, err := svc.Calculate(context.Background(), "USR-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.CompositeScore != 40.00 {
		t.Errorf("expected composite 40.00, got %v", rec.CompositeScore)
	}
	if rec.CognitiveScore == nil || *rec.CognitiveScore != 80 {
		t.Errorf("expected cognitive 80, got %v", rec.CognitiveScore)
	}
	if rec.PortfolioScore != nil || rec.EndorsementScore != nil {
		t.Errorf("expected absent portfolio and endorsement components")
	}
	if rec.Breakdown.Contributions.Cognitive != 40 {
		t.Errorf("expected cognitive contribution 40, got %v", rec.Breakdown.Contributions.Cognitive)
	}
	if rec.Breakdown.Weights.Cognitive != WeightCognitive {
		t.Errorf("expected weight %v preserved in breakdown, got %v", WeightCognitive, rec.Breakdown.Weights.Cognitive)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 record persisted, got %d", len(repo.inserted))
	}
}

func TestScoreService_CalculateAllComponents(t *testing.T) {
	repo := &stubScoreRepo{}
	components := &stubComponents{values: map[string]*float64{
		ComponentCognitive: floatPtr(80),
		ComponentPortfolio: floatPtr(60),
	}}
	endorsements := &stubEndorsementReader{approved: []domain.Endorsement{
		{Status: domain.EndorsementApproved, Weight: 4.5},
		{Status: domain.EndorsementApproved, Weight: 4.5},
	}}
	svc := newTestScoreService(repo, components, endorsements)

	rec, err := svc.Calculate(context.Background(), "USR-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 80*0.5 + 60*0.3 + 90*0.2 = 40 + 18 + 18
	if rec.CompositeScore != 76.00 {
		t.Errorf("expected composite 76.00, got %v", rec.CompositeScore)
	}
	if rec.EndorsementScore == nil || *rec.EndorsementScore != 90 {
		t.Errorf("expected endorsement component 90, got %v", rec.EndorsementScore)
	}
}

func TestScoreService_CalculateAllAbsent(t *testing.T) {
	repo := &stubScoreRepo{}
	svc := newTestScoreService(repo, nil, nil)

	rec, err := svc.Calculate(context.Background(), "USR-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.CompositeScore != 0.00 {
		t.Errorf("expected composite 0.00, got %v", rec.CompositeScore)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected record persisted even with no components, got %d", len(repo.inserted))
	}
}

func TestScoreService_CalculateDegradesOnComponentError(t *testing.T) {
	repo := &stubScoreRepo{}
	components := &stubComponents{
		values: map[string]*float64{ComponentPortfolio: floatPtr(90)},
		errs:   map[string]error{ComponentCognitive: errors.New("timeout")},
	}
	svc := newTestScoreService(repo, components, nil)

	rec, err := svc.Calculate(context.Background(), "USR-1")
	if err != nil {
		t.Fatalf("expected degraded calculation to succeed, got %v", err)
	}

	if rec.CognitiveScore != nil {
		t.Errorf("expected unreachable cognitive source treated as absent")
	}
	if rec.CompositeScore != 27.00 {
		t.Errorf("expected composite 27.00, got %v", rec.CompositeScore)
	}
}

func TestScoreService_CalculateRecomputesRankings(t *testing.T) {
	repo := &stubScoreRepo{
		population: []domain.LifeScoreRecord{
			{ID: "LS-a", CompositeScore: 70},
			{ID: "LS-b", CompositeScore: 50},
		},
	}
	svc := newTestScoreService(repo, nil, nil)

	if _, err := svc.Calculate(context.Background(), "USR-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(repo.applied) != 1 {
		t.Fatalf("expected exactly one ranking rewrite, got %d", len(repo.applied))
	}
	if len(repo.applied[0]) != 2 {
		t.Fatalf("expected assignments for the whole population, got %d", len(repo.applied[0]))
	}
}

func TestScoreService_CalculateFailsWhenRankingFails(t *testing.T) {
	repo := &stubScoreRepo{rankErr: errors.New("deadlock")}
	svc := newTestScoreService(repo, nil, nil)

	if _, err := svc.Calculate(context.Background(), "USR-1"); err == nil {
		t.Fatalf("expected error when ranking rewrite fails")
	}
}

func TestScoreService_LatestNotFound(t *testing.T) {
	repo := &stubScoreRepo{}
	svc := newTestScoreService(repo, nil, nil)

	_, err := svc.Latest(context.Background(), "USR-404")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScoreService_GetHistoryDerivesGrowth(t *testing.T) {
	repo := &stubScoreRepo{
		history: []domain.LifeScoreRecord{
			{ID: "LS-3", CompositeScore: 90},
			{ID: "LS-2", CompositeScore: 80},
			{ID: "LS-1", CompositeScore: 70},
		},
	}
	svc := newTestScoreService(repo, nil, nil)

	history, err := svc.GetHistory(context.Background(), "USR-1", 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(history.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(history.Records))
	}
	if history.Growth.Trend != domain.TrendImproving {
		t.Errorf("expected improving trend, got %s", history.Growth.Trend)
	}
	if history.Growth.TotalChange != 20 {
		t.Errorf("expected total change 20, got %v", history.Growth.TotalChange)
	}
}
