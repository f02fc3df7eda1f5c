package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lifescore-app/backend/internal/domain"
)

type stubEndorsementRepo struct {
	inserted  []domain.Endorsement
	existing  *domain.Endorsement
	updated   *domain.Endorsement
	deleted   []string
	listed    []domain.Endorsement
	insertErr error
}

func (s *stubEndorsementRepo) InsertEndorsement(ctx context.Context, e domain.Endorsement) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, e)
	return nil
}

func (s *stubEndorsementRepo) EndorsementByID(ctx context.Context, endorsementID string) (*domain.Endorsement, error) {
	return s.existing, nil
}

func (s *stubEndorsementRepo) ListEndorsements(ctx context.Context, subjectUserID, status string, limit int) ([]domain.Endorsement, error) {
	return s.listed, nil
}

func (s *stubEndorsementRepo) UpdateEndorsementStatus(ctx context.Context, endorsementID string, status domain.EndorsementStatus, weight float64, updatedAt time.Time) (*domain.Endorsement, error) {
	if s.updated != nil {
		return s.updated, nil
	}
	if s.existing == nil {
		return nil, nil
	}
	copied := *s.existing
	copied.Status = status
	copied.Weight = weight
	copied.UpdatedAt = updatedAt
	return &copied, nil
}

func (s *stubEndorsementRepo) DeleteEndorsement(ctx context.Context, endorsementID string) error {
	s.deleted = append(s.deleted, endorsementID)
	return nil
}

func newTestEndorsementService(repo *stubEndorsementRepo) *EndorsementService {
	svc := NewEndorsementService(repo, testLogger())
	svc.WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	svc.WithIDGenerator(func() string { return "END-1" })
	return svc
}

func TestEndorsementService_Create(t *testing.T) {
	repo := &stubEndorsementRepo{}
	svc := newTestEndorsementService(repo)

	endorser := Actor{UserID: "USR-2", Role: RoleUser}
	endorsement, err := svc.Create(context.Background(), endorser, "USR-1", "Leadership", "solid")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if endorsement.Status != domain.EndorsementPending {
		t.Errorf("expected pending status, got %s", endorsement.Status)
	}
	if endorsement.Weight != 1.0 {
		t.Errorf("expected default weight 1.0, got %v", endorsement.Weight)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 endorsement persisted, got %d", len(repo.inserted))
	}
}

func TestEndorsementService_CreateRejectsSelfEndorsement(t *testing.T) {
	svc := newTestEndorsementService(&stubEndorsementRepo{})

	_, err := svc.Create(context.Background(), Actor{UserID: "USR-1", Role: RoleUser}, "USR-1", "Leadership", "")
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for self-endorsement, got %v", err)
	}
}

func TestEndorsementService_CreateRequiresIdentity(t *testing.T) {
	svc := newTestEndorsementService(&stubEndorsementRepo{})

	_, err := svc.Create(context.Background(), Actor{}, "USR-1", "Leadership", "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for anonymous endorser, got %v", err)
	}
}

func TestEndorsementService_UpdateStatusRequiresModerator(t *testing.T) {
	repo := &stubEndorsementRepo{
		existing: &domain.Endorsement{ID: "END-1", Status: domain.EndorsementPending},
	}
	svc := newTestEndorsementService(repo)

	_, err := svc.UpdateStatus(context.Background(), Actor{UserID: "USR-2", Role: RoleUser}, "END-1", domain.EndorsementApproved, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-moderator, got %v", err)
	}
}

func TestEndorsementService_UpdateStatusApproves(t *testing.T) {
	repo := &stubEndorsementRepo{
		existing: &domain.Endorsement{ID: "END-1", Status: domain.EndorsementPending, Weight: 1.0},
	}
	svc := newTestEndorsementService(repo)

	weight := 2.5
	updated, err := svc.UpdateStatus(context.Background(), Actor{UserID: "MOD-1", Role: RoleModerator}, "END-1", domain.EndorsementApproved, &weight)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Status != domain.EndorsementApproved {
		t.Errorf("expected approved, got %s", updated.Status)
	}
	if updated.Weight != 2.5 {
		t.Errorf("expected weight 2.5, got %v", updated.Weight)
	}
}

func TestEndorsementService_UpdateStatusOnlyOnce(t *testing.T) {
	repo := &stubEndorsementRepo{
		existing: &domain.Endorsement{ID: "END-1", Status: domain.EndorsementApproved},
	}
	svc := newTestEndorsementService(repo)

	_, err := svc.UpdateStatus(context.Background(), Actor{UserID: "MOD-1", Role: RoleModerator}, "END-1", domain.EndorsementRejected, nil)
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for already-moderated endorsement, got %v", err)
	}
}

func TestEndorsementService_UpdateStatusRejectsPendingTarget(t *testing.T) {
	repo := &stubEndorsementRepo{
		existing: &domain.Endorsement{ID: "END-1", Status: domain.EndorsementPending},
	}
	svc := newTestEndorsementService(repo)

	_, err := svc.UpdateStatus(context.Background(), Actor{UserID: "MOD-1", Role: RoleModerator}, "END-1", domain.EndorsementPending, nil)
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for pending target status, got %v", err)
	}
}

func TestEndorsementService_UpdateStatusRejectsNonPositiveWeight(t *testing.T) {
	repo := &stubEndorsementRepo{
		existing: &domain.Endorsement{ID: "END-1", Status: domain.EndorsementPending},
	}
	svc := newTestEndorsementService(repo)

	weight := 0.0
	_, err := svc.UpdateStatus(context.Background(), Actor{UserID: "MOD-1", Role: RoleModerator}, "END-1", domain.EndorsementApproved, &weight)
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for zero weight, got %v", err)
	}
}

func TestEndorsementService_DeleteAuthorization(t *testing.T) {
	repo := &stubEndorsementRepo{
		existing: &domain.Endorsement{ID: "END-1", EndorserUserID: "USR-2", SubjectUserID: "USR-1"},
	}
	svc := newTestEndorsementService(repo)

	// The subject cannot delete endorsements about them.
	err := svc.Delete(context.Background(), Actor{UserID: "USR-1", Role: RoleUser}, "END-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for subject delete, got %v", err)
	}

	if err := svc.Delete(context.Background(), Actor{UserID: "USR-2", Role: RoleUser}, "END-1"); err != nil {
		t.Fatalf("expected endorser delete to succeed, got %v", err)
	}
	if err := svc.Delete(context.Background(), Actor{UserID: "MOD-1", Role: RoleModerator}, "END-1"); err != nil {
		t.Fatalf("expected moderator delete to succeed, got %v", err)
	}
	if len(repo.deleted) != 2 {
		t.Errorf("expected 2 deletions, got %d", len(repo.deleted))
	}
}

func TestEndorsementService_GetHiddenFromThirdParties(t *testing.T) {
	repo := &stubEndorsementRepo{
		existing: &domain.Endorsement{ID: "END-1", EndorserUserID: "USR-2", SubjectUserID: "USR-1"},
	}
	svc := newTestEndorsementService(repo)

	_, err := svc.Get(context.Background(), Actor{UserID: "USR-9", Role: RoleUser}, "END-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unrelated user, got %v", err)
	}

	if _, err := svc.Get(context.Background(), Actor{UserID: "USR-1", Role: RoleUser}, "END-1"); err != nil {
		t.Fatalf("expected subject to see the endorsement, got %v", err)
	}
}

func TestEndorsementScore(t *testing.T) {
	approved := func(weight float64) domain.Endorsement {
		return domain.Endorsement{Status: domain.EndorsementApproved, Weight: weight}
	}

	if got := EndorsementScore(nil); got != 0 {
		t.Errorf("expected 0 for empty set, got %v", got)
	}

	got := EndorsementScore([]domain.Endorsement{approved(1), approved(2.5)})
	if got != 35 {
		t.Errorf("expected 35, got %v", got)
	}

	// Pending and rejected endorsements never count.
	got = EndorsementScore([]domain.Endorsement{
		approved(1),
		{Status: domain.EndorsementPending, Weight: 5},
		{Status: domain.EndorsementRejected, Weight: 5},
	})
	if got != 10 {
		t.Errorf("expected 10, got %v", got)
	}

	many := make([]domain.Endorsement, 20)
	for i := range many {
		many[i] = approved(1)
	}
	if got := EndorsementScore(many); got != 100 {
		t.Errorf("expected cap at 100, got %v", got)
	}
}
