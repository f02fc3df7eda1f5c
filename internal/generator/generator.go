package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/lifescore-app/backend/internal/domain"
	"github.com/lifescore-app/backend/internal/service"
)

// Dataset contains the generated seed users.
type Dataset struct {
	Users []service.SeedUser `json:"users"`
}

// Generator produces synthetic users with component scores and incoming
// endorsements, shaped for the seeding pipeline.
type Generator struct {
	cfg           Config
	rand          *rand.Rand
	nameFragments nameFragments
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	if cfg.NumUsers <= 0 {
		cfg.NumUsers = DefaultConfig().NumUsers
	}
	if cfg.EndorsementsPerUser < 0 {
		cfg.EndorsementsPerUser = DefaultConfig().EndorsementsPerUser
	}
	if cfg.ApprovalRate <= 0 || cfg.ApprovalRate > 1 {
		cfg.ApprovalRate = DefaultConfig().ApprovalRate
	}
	if cfg.MissingScoreChance < 0 || cfg.MissingScoreChance >= 1 {
		cfg.MissingScoreChance = DefaultConfig().MissingScoreChance
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:           cfg,
		rand:          rand.New(rand.NewSource(cfg.Seed)),
		nameFragments: defaultNameFragments(),
	}
}

// Generate synthesises seed users. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	users := make([]service.SeedUser, g.cfg.NumUsers)
	now := time.Now().UTC()

	for i := 0; i < g.cfg.NumUsers; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		userID := fmt.Sprintf("USR-%06d", i+1)
		createdAt := now.Add(-time.Duration(g.rand.Intn(365*24)) * time.Hour)
		name := g.randomFullName()

		users[i] = service.SeedUser{
			Profile: domain.UserProfile{
				ID:          userID,
				DisplayName: name,
				Email:       g.randomEmail(name),
				CreatedAt:   createdAt,
				UpdatedAt:   createdAt,
			},
			Cognitive: g.maybeScore(),
			Portfolio: g.maybeScore(),
		}
	}

	for i := range users {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		users[i].Endorsements = g.randomEndorsements(users, i)
	}

	return Dataset{Users: users}, nil
}

// maybeScore returns nil for a fraction of users so the dataset exercises
// the partial-component paths of the aggregator.
func (g *Generator) maybeScore() *float64 {
	if g.rand.Float64() < g.cfg.MissingScoreChance {
		return nil
	}
	v := float64(g.rand.Intn(10001)) / 100
	return &v
}

func (g *Generator) randomEndorsements(users []service.SeedUser, subjectIdx int) []service.SeedEndorsement {
	if len(users) < 2 || g.cfg.EndorsementsPerUser == 0 {
		return nil
	}
	count := g.rand.Intn(g.cfg.EndorsementsPerUser + 1)
	endorsements := make([]service.SeedEndorsement, 0, count)
	for i := 0; i < count; i++ {
		endorserIdx := g.rand.Intn(len(users))
		if endorserIdx == subjectIdx {
			endorserIdx = (endorserIdx + 1) % len(users)
		}
		endorsements = append(endorsements, service.SeedEndorsement{
			EndorserUserID: users[endorserIdx].Profile.ID,
			Skill:          g.randomSkill(),
			Message:        g.randomMessage(),
			Weight:         0.5 + g.rand.Float64()*1.5,
			Approved:       g.rand.Float64() < g.cfg.ApprovalRate,
		})
	}
	return endorsements
}

func (g *Generator) randomFullName() string {
	return fmt.Sprintf("%s %s", g.nameFragments.first[g.rand.Intn(len(g.nameFragments.first))],
		g.nameFragments.last[g.rand.Intn(len(g.nameFragments.last))])
}

func (g *Generator) randomEmail(name string) string {
	host := g.nameFragments.domains[g.rand.Intn(len(g.nameFragments.domains))]
	return fmt.Sprintf("%s.%s@%s", g.nameFragments.first[g.rand.Intn(len(g.nameFragments.first))],
		g.nameFragments.last[g.rand.Intn(len(g.nameFragments.last))], host)
}

func (g *Generator) randomSkill() string {
	return g.nameFragments.skills[g.rand.Intn(len(g.nameFragments.skills))]
}

func (g *Generator) randomMessage() string {
	return g.nameFragments.messages[g.rand.Intn(len(g.nameFragments.messages))]
}

type nameFragments struct {
	first    []string
	last     []string
	domains  []string
	skills   []string
	messages []string
}

func defaultNameFragments() nameFragments {
	return nameFragments{
		first:    []string{"Jane", "John", "Alex", "Priya", "Liu", "Maria", "Omar", "Sofia", "Noah", "Emma", "Lucas", "Mia", "Ava", "Ethan", "Zara"},
		last:     []string{"Doe", "Smith", "Chen", "Patel", "Garcia", "Khan", "Kim", "Ivanov", "Nguyen", "Silva", "Brown", "Lee"},
		domains:  []string{"example.com", "mail.com", "lifescore.app", "inbox.net", "verified.org"},
		skills:   []string{"Leadership", "Communication", "Problem Solving", "Mentorship", "Reliability", "Creativity", "Teamwork", "Financial Literacy"},
		messages: []string{"Great collaborator", "Consistently delivers", "Helped me grow", "Trustworthy and sharp", "Goes above and beyond", ""},
	}
}
