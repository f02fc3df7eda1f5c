package domain

import "time"

// CertificateStatus is the lifecycle state of an issued certificate.
// Transitions are valid -> revoked (explicit, irreversible) and
// valid -> expired (derived from expires_at at verification time).
type CertificateStatus string

const (
	CertificateValid   CertificateStatus = "valid"
	CertificateRevoked CertificateStatus = "revoked"
	CertificateExpired CertificateStatus = "expired"
)

// CertificateMetadata is the audit snapshot copied from the backing
// LifeScoreRecord at issuance. Later changes to the live score never alter
// it.
type CertificateMetadata struct {
	CognitiveScore   *float64 `json:"cognitiveScore,omitempty"`
	PortfolioScore   *float64 `json:"portfolioScore,omitempty"`
	EndorsementScore *float64 `json:"endorsementScore,omitempty"`
	Rank             *int     `json:"rank,omitempty"`
	Percentile       *float64 `json:"percentile,omitempty"`
	IssuedBy         string   `json:"issuedBy"`
	Version          string   `json:"version"`
}

// Certificate is a tamper-evident attestation of a composite score at a
// point in time. CertificateHash is the sole identifier used for public
// verification and is immutable after issuance.
type Certificate struct {
	ID               string
	UserID           string
	LifeScoreID      string
	CertificateHash  string
	Score            float64
	IssuedAt         time.Time
	ExpiresAt        *time.Time
	Status           CertificateStatus
	Metadata         CertificateMetadata
	BlockchainTxHash string
	CreatedAt        time.Time
}

// VerificationResult is the structured outcome of a public verification.
// Absence of a certificate and an invalid certificate share the same shape,
// differing only in message.
type VerificationResult struct {
	Valid       bool
	Certificate *Certificate
	Message     string
}
