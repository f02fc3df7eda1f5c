package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lifescore-app/backend/internal/domain"
)

// SeedModeratorID is the synthetic actor used to approve generated
// endorsements during seeding.
const SeedModeratorID = "seed-moderator"

// SeedEndorsement describes a generated endorsement for a seed user.
type SeedEndorsement struct {
	EndorserUserID string  `json:"endorserUserId"`
	Skill          string  `json:"skill"`
	Message        string  `json:"message,omitempty"`
	Weight         float64 `json:"weight"`
	Approved       bool    `json:"approved"`
}

// SeedUser bundles everything required to stand up one user: profile,
// externally sourced component scores, and incoming endorsements.
type SeedUser struct {
	Profile      domain.UserProfile `json:"profile"`
	Cognitive    *float64           `json:"cognitiveScore,omitempty"`
	Portfolio    *float64           `json:"portfolioScore,omitempty"`
	Endorsements []SeedEndorsement  `json:"endorsements,omitempty"`
}

// SeedStore is the storage surface the seeder writes through directly,
// bypassing the services for the data that production receives from
// external subsystems.
type SeedStore interface {
	UpsertProfile(ctx context.Context, profile domain.UserProfile) error
	InsertComponentScore(ctx context.Context, kind, userID string, value float64, createdAt time.Time) error
}

// SeedError accumulates per-user failures so a bad record does not abort
// the whole run.
type SeedError struct {
	Errors []error
}

func (e *SeedError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *SeedError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *SeedError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Seeder loads generated users concurrently: profile and component scores
// first, then endorsements through the moderation flow, then a score
// calculation per user. Rankings settle with the final calculation, so the
// interleaving across workers does not matter.
type Seeder struct {
	store        SeedStore
	scores       *ScoreService
	endorsements *EndorsementService
	workers      int
}

// NewSeeder creates a Seeder with the provided concurrency.
func NewSeeder(store SeedStore, scores *ScoreService, endorsements *EndorsementService, workers int) *Seeder {
	if workers <= 0 {
		workers = 4
	}
	return &Seeder{
		store:        store,
		scores:       scores,
		endorsements: endorsements,
		workers:      workers,
	}
}

// Seed runs the full load in three phases. Profiles land before
// endorsements so endorser references resolve to real users, and
// calculations run last so every composite sees the approved endorsements.
func (s *Seeder) Seed(ctx context.Context, users []SeedUser) error {
	if err := s.run(ctx, len(users), func(idx int) error {
		return s.seedBase(ctx, users[idx])
	}); err != nil {
		return err
	}
	if err := s.run(ctx, len(users), func(idx int) error {
		return s.seedEndorsements(ctx, users[idx])
	}); err != nil {
		return err
	}
	return s.run(ctx, len(users), func(idx int) error {
		_, err := s.scores.Calculate(ctx, users[idx].Profile.ID)
		return err
	})
}

func (s *Seeder) seedBase(ctx context.Context, user SeedUser) error {
	if err := s.store.UpsertProfile(ctx, user.Profile); err != nil {
		return err
	}
	now := time.Now().UTC()
	if user.Cognitive != nil {
		if err := s.store.InsertComponentScore(ctx, ComponentCognitive, user.Profile.ID, *user.Cognitive, now); err != nil {
			return err
		}
	}
	if user.Portfolio != nil {
		if err := s.store.InsertComponentScore(ctx, ComponentPortfolio, user.Profile.ID, *user.Portfolio, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedEndorsements(ctx context.Context, user SeedUser) error {
	moderator := Actor{UserID: SeedModeratorID, Role: RoleModerator}
	for _, e := range user.Endorsements {
		endorser := Actor{UserID: e.EndorserUserID, Role: RoleUser}
		created, err := s.endorsements.Create(ctx, endorser, user.Profile.ID, e.Skill, e.Message)
		if err != nil {
			return err
		}
		if !e.Approved {
			continue
		}
		weight := e.Weight
		if weight <= 0 {
			weight = defaultEndorsementWeight
		}
		if _, err := s.endorsements.UpdateStatus(ctx, moderator, created.ID, domain.EndorsementApproved, &weight); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var seedErr SeedError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		seedErr.append(err)
	}
	return seedErr.asError()
}
