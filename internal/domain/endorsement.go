package domain

import "time"

// EndorsementStatus tracks the moderation state of an endorsement.
type EndorsementStatus string

const (
	EndorsementPending  EndorsementStatus = "pending"
	EndorsementApproved EndorsementStatus = "approved"
	EndorsementRejected EndorsementStatus = "rejected"
)

// Valid reports whether the status is one of the known states.
func (s EndorsementStatus) Valid() bool {
	switch s {
	case EndorsementPending, EndorsementApproved, EndorsementRejected:
		return true
	}
	return false
}

// Endorsement is a skill attestation from one user about another. Stored as
// an ENDORSED edge between the endorser and the subject.
type Endorsement struct {
	ID             string
	SubjectUserID  string
	EndorserUserID string
	Skill          string
	Message        string
	Status         EndorsementStatus
	Weight         float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
