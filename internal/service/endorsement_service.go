package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lifescore-app/backend/internal/domain"
)

const (
	defaultEndorsementWeight = 1.0

	// Each approved endorsement contributes weight x factor points, capped
	// at 100. Ten plain approvals max out the component.
	endorsementScoreFactor = 10.0
)

// EndorsementRepository is the storage contract required by the endorsement
// service.
type EndorsementRepository interface {
	InsertEndorsement(ctx context.Context, e domain.Endorsement) error
	EndorsementByID(ctx context.Context, endorsementID string) (*domain.Endorsement, error)
	ListEndorsements(ctx context.Context, subjectUserID, status string, limit int) ([]domain.Endorsement, error)
	UpdateEndorsementStatus(ctx context.Context, endorsementID string, status domain.EndorsementStatus, weight float64, updatedAt time.Time) (*domain.Endorsement, error)
	DeleteEndorsement(ctx context.Context, endorsementID string) error
}

// EndorsementService manages the endorsement lifecycle: creation by peers,
// moderation by moderators, and deletion by the endorser or a moderator.
type EndorsementService struct {
	repo   EndorsementRepository
	logger *slog.Logger
	nowFn  func() time.Time
	newID  func() string
}

// NewEndorsementService constructs an EndorsementService.
func NewEndorsementService(repo EndorsementRepository, logger *slog.Logger) *EndorsementService {
	return &EndorsementService{
		repo:   repo,
		logger: logger,
		nowFn:  time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *EndorsementService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// WithIDGenerator overrides endorsement ID generation (used primarily in
// tests).
func (s *EndorsementService) WithIDGenerator(newID func() string) {
	if newID != nil {
		s.newID = newID
	}
}

// Create records a new pending endorsement from the acting user about the
// subject. Self-endorsement is rejected.
func (s *EndorsementService) Create(ctx context.Context, actor Actor, subjectUserID, skill, message string) (*domain.Endorsement, error) {
	if actor.UserID == "" {
		return nil, fmt.Errorf("endorser identity is required: %w", ErrUnauthorized)
	}
	if subjectUserID == "" {
		return nil, fmt.Errorf("subject user id is required: %w", ErrInvalidOperation)
	}
	if skill == "" {
		return nil, fmt.Errorf("skill is required: %w", ErrInvalidOperation)
	}
	if subjectUserID == actor.UserID {
		return nil, fmt.Errorf("self-endorsement is not allowed: %w", ErrInvalidOperation)
	}

	now := s.nowFn().UTC()
	endorsement := domain.Endorsement{
		ID:             s.newID(),
		SubjectUserID:  subjectUserID,
		EndorserUserID: actor.UserID,
		Skill:          skill,
		Message:        message,
		Status:         domain.EndorsementPending,
		Weight:         defaultEndorsementWeight,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.InsertEndorsement(ctx, endorsement); err != nil {
		return nil, err
	}

	s.logger.Info("endorsement created",
		"endorsementId", endorsement.ID,
		"subjectUserId", subjectUserID,
		"endorserUserId", actor.UserID,
		"skill", skill,
	)
	return &endorsement, nil
}

// Get returns an endorsement visible to the actor: the subject, the
// endorser, or a moderator. Hidden endorsements report as not found so the
// response does not leak their existence.
func (s *EndorsementService) Get(ctx context.Context, actor Actor, endorsementID string) (*domain.Endorsement, error) {
	existing, err := s.repo.EndorsementByID(ctx, endorsementID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("endorsement %s: %w", endorsementID, ErrNotFound)
	}
	if actor.UserID != existing.SubjectUserID && actor.UserID != existing.EndorserUserID && !actor.Moderator() {
		return nil, fmt.Errorf("endorsement %s: %w", endorsementID, ErrNotFound)
	}
	return existing, nil
}

// List returns endorsements received by a subject, newest first, optionally
// filtered by status.
func (s *EndorsementService) List(ctx context.Context, subjectUserID string, status domain.EndorsementStatus, limit int) ([]domain.Endorsement, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, ErrInvalidOperation)
	}
	return s.repo.ListEndorsements(ctx, subjectUserID, string(status), limit)
}

// UpdateStatus transitions a pending endorsement to approved or rejected.
// The transition happens exactly once; moderators only. A weight, when
// supplied, replaces the stored one.
func (s *EndorsementService) UpdateStatus(ctx context.Context, actor Actor, endorsementID string, status domain.EndorsementStatus, weight *float64) (*domain.Endorsement, error) {
	if !actor.Moderator() {
		return nil, fmt.Errorf("endorsement moderation requires a moderator role: %w", ErrUnauthorized)
	}
	if status != domain.EndorsementApproved && status != domain.EndorsementRejected {
		return nil, fmt.Errorf("cannot set endorsement status to %q: %w", status, ErrInvalidOperation)
	}

	existing, err := s.repo.EndorsementByID(ctx, endorsementID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("endorsement %s: %w", endorsementID, ErrNotFound)
	}
	if existing.Status != domain.EndorsementPending {
		return nil, fmt.Errorf("endorsement %s already %s: %w", endorsementID, existing.Status, ErrInvalidOperation)
	}

	newWeight := existing.Weight
	if weight != nil {
		if *weight <= 0 {
			return nil, fmt.Errorf("endorsement weight must be positive: %w", ErrInvalidOperation)
		}
		newWeight = *weight
	}

	updated, err := s.repo.UpdateEndorsementStatus(ctx, endorsementID, status, newWeight, s.nowFn().UTC())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("endorsement %s: %w", endorsementID, ErrNotFound)
	}

	s.logger.Info("endorsement moderated",
		"endorsementId", endorsementID,
		"status", status,
		"moderatorId", actor.UserID,
	)
	return updated, nil
}

// Delete removes an endorsement. Permitted for the endorser who wrote it or
// a moderator.
func (s *EndorsementService) Delete(ctx context.Context, actor Actor, endorsementID string) error {
	existing, err := s.repo.EndorsementByID(ctx, endorsementID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("endorsement %s: %w", endorsementID, ErrNotFound)
	}
	if actor.UserID != existing.EndorserUserID && !actor.Moderator() {
		return fmt.Errorf("only the endorser or a moderator may delete an endorsement: %w", ErrUnauthorized)
	}
	return s.repo.DeleteEndorsement(ctx, endorsementID)
}

// EndorsementScore reduces a set of endorsements to a single scalar in
// [0,100]. Only approved endorsements count; the result grows with both the
// number of approvals and their weights, and is zero for an empty set.
func EndorsementScore(endorsements []domain.Endorsement) float64 {
	total := 0.0
	for _, e := range endorsements {
		if e.Status != domain.EndorsementApproved {
			continue
		}
		weight := e.Weight
		if weight <= 0 {
			weight = defaultEndorsementWeight
		}
		total += weight * endorsementScoreFactor
	}
	if total > 100 {
		return 100
	}
	return round2(total)
}
