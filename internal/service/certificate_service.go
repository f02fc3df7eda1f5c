package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lifescore-app/backend/internal/domain"
)

const (
	// DefaultCertificateValidity is applied when no validity window is
	// configured.
	DefaultCertificateValidity = 365 * 24 * time.Hour

	certificateIssuer  = "LifeScore Platform"
	certificateVersion = "1.0"
)

// CertificateRepository is the storage contract required by the certificate
// service.
type CertificateRepository interface {
	InsertCertificate(ctx context.Context, c domain.Certificate) error
	CertificateByID(ctx context.Context, certificateID string) (*domain.Certificate, error)
	CertificateByHash(ctx context.Context, certificateHash string) (*domain.Certificate, error)
	CertificatesForUser(ctx context.Context, userID string) ([]domain.Certificate, error)
	UpdateCertificateStatus(ctx context.Context, certificateID string, status domain.CertificateStatus) error
	SetBlockchainTxHash(ctx context.Context, certificateID, txHash string) error
}

// LatestScoreReader resolves a user's latest LifeScore record at issuance
// time.
type LatestScoreReader interface {
	LatestLifeScore(ctx context.Context, userID string) (*domain.LifeScoreRecord, error)
}

// CertificateService issues, verifies, and revokes score certificates.
type CertificateService struct {
	certs         CertificateRepository
	scores        LatestScoreReader
	logger        *slog.Logger
	validity      time.Duration
	publicBaseURL string
	nowFn         func() time.Time
	newID         func() string
}

// NewCertificateService constructs a CertificateService. A non-positive
// validity falls back to DefaultCertificateValidity.
func NewCertificateService(certs CertificateRepository, scores LatestScoreReader, logger *slog.Logger, validity time.Duration, publicBaseURL string) *CertificateService {
	if validity <= 0 {
		validity = DefaultCertificateValidity
	}
	return &CertificateService{
		certs:         certs,
		scores:        scores,
		logger:        logger,
		validity:      validity,
		publicBaseURL: publicBaseURL,
		nowFn:         time.Now,
		newID:         uuid.NewString,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *CertificateService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// WithIDGenerator overrides certificate ID generation (used primarily in
// tests).
func (s *CertificateService) WithIDGenerator(newID func() string) {
	if newID != nil {
		s.newID = newID
	}
}

// Issue creates a certificate from the user's latest LifeScore record. The
// record's breakdown, rank, and percentile are copied into the certificate
// metadata as an immutable snapshot; later recalculations never touch an
// issued certificate. Issuance is unrestricted: a user may hold several
// certificates for the same record, each independently revocable.
func (s *CertificateService) Issue(ctx context.Context, userID string) (*domain.Certificate, error) {
	rec, err := s.scores.LatestLifeScore(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("no lifescore for user %s: %w", userID, ErrNotFound)
	}

	issuedAt := s.nowFn().UTC()
	expiresAt := issuedAt.Add(s.validity)

	cert := domain.Certificate{
		ID:              s.newID(),
		UserID:          userID,
		LifeScoreID:     rec.ID,
		CertificateHash: CertificateHash(userID, rec.CompositeScore, issuedAt),
		Score:           rec.CompositeScore,
		IssuedAt:        issuedAt,
		ExpiresAt:       &expiresAt,
		Status:          domain.CertificateValid,
		Metadata: domain.CertificateMetadata{
			CognitiveScore:   rec.CognitiveScore,
			PortfolioScore:   rec.PortfolioScore,
			EndorsementScore: rec.EndorsementScore,
			Rank:             rec.Rank,
			Percentile:       rec.Percentile,
			IssuedBy:         certificateIssuer,
			Version:          certificateVersion,
		},
		CreatedAt: issuedAt,
	}

	if err := s.certs.InsertCertificate(ctx, cert); err != nil {
		return nil, err
	}

	s.logger.Info("certificate issued",
		"certificateId", cert.ID,
		"userId", userID,
		"score", cert.Score,
		"expiresAt", expiresAt,
	)
	return &cert, nil
}

// Get returns a certificate by its internal ID.
func (s *CertificateService) Get(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	cert, err := s.certs.CertificateByID(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, fmt.Errorf("certificate %s: %w", certificateID, ErrNotFound)
	}
	return cert, nil
}

// ListForUser returns all certificates held by a user, newest first.
func (s *CertificateService) ListForUser(ctx context.Context, userID string) ([]domain.Certificate, error) {
	return s.certs.CertificatesForUser(ctx, userID)
}

// Verify resolves a certificate from its public hash and reports its
// standing. Verification never fails on certificate state: an unknown hash,
// a revoked certificate, and an expired certificate all produce a normal
// structured result. Expiry is computed from expires_at at read time; a
// detected expiry is also persisted so the stored status converges.
func (s *CertificateService) Verify(ctx context.Context, certificateHash string) (domain.VerificationResult, error) {
	cert, err := s.certs.CertificateByHash(ctx, certificateHash)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	if cert == nil {
		return domain.VerificationResult{
			Valid:   false,
			Message: "Certificate not found",
		}, nil
	}

	if cert.Status == domain.CertificateRevoked {
		return domain.VerificationResult{
			Valid:       false,
			Certificate: cert,
			Message:     "Certificate has been revoked",
		}, nil
	}

	now := s.nowFn().UTC()
	if cert.Status == domain.CertificateExpired || (cert.ExpiresAt != nil && now.After(*cert.ExpiresAt)) {
		if cert.Status != domain.CertificateExpired {
			if err := s.certs.UpdateCertificateStatus(ctx, cert.ID, domain.CertificateExpired); err != nil {
				s.logger.Warn("failed to persist certificate expiry", "certificateId", cert.ID, "error", err)
			}
			cert.Status = domain.CertificateExpired
		}
		return domain.VerificationResult{
			Valid:       false,
			Certificate: cert,
			Message:     "Certificate has expired",
		}, nil
	}

	return domain.VerificationResult{
		Valid:       true,
		Certificate: cert,
		Message:     "Certificate is valid",
	}, nil
}

// Revoke invalidates a certificate ahead of its natural expiry. The
// transition is unconditional and irreversible.
func (s *CertificateService) Revoke(ctx context.Context, certificateID string) error {
	cert, err := s.certs.CertificateByID(ctx, certificateID)
	if err != nil {
		return err
	}
	if cert == nil {
		return fmt.Errorf("certificate %s: %w", certificateID, ErrNotFound)
	}

	if err := s.certs.UpdateCertificateStatus(ctx, certificateID, domain.CertificateRevoked); err != nil {
		return err
	}

	s.logger.Info("certificate revoked", "certificateId", certificateID, "userId", cert.UserID)
	return nil
}

// AttachBlockchainTx records the external anchoring transaction hash for a
// certificate. The anchoring itself happens outside this service.
func (s *CertificateService) AttachBlockchainTx(ctx context.Context, certificateID, txHash string) error {
	cert, err := s.certs.CertificateByID(ctx, certificateID)
	if err != nil {
		return err
	}
	if cert == nil {
		return fmt.Errorf("certificate %s: %w", certificateID, ErrNotFound)
	}
	return s.certs.SetBlockchainTxHash(ctx, certificateID, txHash)
}

// VerificationURL returns the public verification link for a certificate.
func (s *CertificateService) VerificationURL(certificateID string) string {
	return s.publicBaseURL + "/api/v1/certificate/verify/" + certificateID
}

// CertificateHash derives the deterministic public identifier for a
// certificate: an unkeyed SHA-256 digest over user, score, and issuance
// time. The digest detects tampering with the stored fields; it is not a
// forgery-proof signature, which is a deliberate part of the published
// contract.
func CertificateHash(userID string, score float64, issuedAt time.Time) string {
	payload := userID + ":" + strconv.FormatFloat(score, 'f', -1, 64) + ":" + issuedAt.UTC().Format(time.RFC3339Nano)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
