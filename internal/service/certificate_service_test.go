package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifescore-app/backend/internal/domain"
)

type stubCertRepo struct {
	inserted      []domain.Certificate
	byID          map[string]*domain.Certificate
	byHash        map[string]*domain.Certificate
	forUser       []domain.Certificate
	statusUpdates map[string]domain.CertificateStatus
	txHashes      map[string]string
	updateErr     error
}

func newStubCertRepo() *stubCertRepo {
	return &stubCertRepo{
		byID:          map[string]*domain.Certificate{},
		byHash:        map[string]*domain.Certificate{},
		statusUpdates: map[string]domain.CertificateStatus{},
		txHashes:      map[string]string{},
	}
}

func (s *stubCertRepo) InsertCertificate(ctx context.Context, c domain.Certificate) error {
	s.inserted = append(s.inserted, c)
	stored := c
	s.byID[c.ID] = &stored
	s.byHash[c.CertificateHash] = &stored
	return nil
}

func (s *stubCertRepo) CertificateByID(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	return s.byID[certificateID], nil
}

func (s *stubCertRepo) CertificateByHash(ctx context.Context, certificateHash string) (*domain.Certificate, error) {
	return s.byHash[certificateHash], nil
}

func (s *stubCertRepo) CertificatesForUser(ctx context.Context, userID string) ([]domain.Certificate, error) {
	return s.forUser, nil
}

func (s *stubCertRepo) UpdateCertificateStatus(ctx context.Context, certificateID string, status domain.CertificateStatus) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.statusUpdates[certificateID] = status
	if cert := s.byID[certificateID]; cert != nil {
		cert.Status = status
	}
	return nil
}

func (s *stubCertRepo) SetBlockchainTxHash(ctx context.Context, certificateID, txHash string) error {
	s.txHashes[certificateID] = txHash
	return nil
}

type stubLatestScore struct {
	record *domain.LifeScoreRecord
}

func (s *stubLatestScore) LatestLifeScore(ctx context.Context, userID string) (*domain.LifeScoreRecord, error) {
	return s.record, nil
}

func newTestCertificateService(certs *stubCertRepo, scores *stubLatestScore) *CertificateService {
	svc := NewCertificateService(certs, scores, testLogger(), 0, "https://lifescore.app")
	svc.WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	svc.WithIDGenerator(func() string { return "CERT-1" })
	return svc
}

func TestCertificateService_IssueRequiresScore(t *testing.T) {
	svc := newTestCertificateService(newStubCertRepo(), &stubLatestScore{})

	_, err := svc.Issue(context.Background(), "USR-404")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCertificateService_IssueSnapshotsScore(t *testing.T) {
	rank := 3
	percentile := 88.5
	scores := &stubLatestScore{record: &domain.LifeScoreRecord{
		ID:             "LS-1",
		UserID:         "USR-1",
		CognitiveScore: floatPtr(80),
		CompositeScore: 76.00,
		Rank:           &rank,
		Percentile:     &percentile,
	}}
	certs := newStubCertRepo()
	svc := newTestCertificateService(certs, scores)

	cert, err := svc.Issue(context.Background(), "USR-1")
	require.NoError(t, err)

	assert.Equal(t, "CERT-1", cert.ID)
	assert.Equal(t, "LS-1", cert.LifeScoreID)
	assert.Equal(t, 76.00, cert.Score)
	assert.Equal(t, domain.CertificateValid, cert.Status)
	assert.Equal(t, "LifeScore Platform", cert.Metadata.IssuedBy)
	assert.Equal(t, "1.0", cert.Metadata.Version)
	require.NotNil(t, cert.Metadata.Rank)
	assert.Equal(t, 3, *cert.Metadata.Rank)

	require.NotNil(t, cert.ExpiresAt)
	assert.Equal(t, cert.IssuedAt.Add(DefaultCertificateValidity), *cert.ExpiresAt)

	wantHash := CertificateHash("USR-1", 76.00, cert.IssuedAt)
	assert.Equal(t, wantHash, cert.CertificateHash)
	require.Len(t, certs.inserted, 1)
}

func TestCertificateService_VerifyRoundTrip(t *testing.T) {
	scores := &stubLatestScore{record: &domain.LifeScoreRecord{ID: "LS-1", CompositeScore: 50}}
	certs := newStubCertRepo()
	svc := newTestCertificateService(certs, scores)

	cert, err := svc.Issue(context.Background(), "USR-1")
	require.NoError(t, err)

	result, err := svc.Verify(context.Background(), cert.CertificateHash)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "Certificate is valid", result.Message)
	require.NotNil(t, result.Certificate)
	assert.Equal(t, cert.ID, result.Certificate.ID)
}

func TestCertificateService_VerifyUnknownHash(t *testing.T) {
	svc := newTestCertificateService(newStubCertRepo(), &stubLatestScore{})

	result, err := svc.Verify(context.Background(), "no-such-hash")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Nil(t, result.Certificate)
	assert.Equal(t, "Certificate not found", result.Message)
}

func TestCertificateService_VerifyRevoked(t *testing.T) {
	certs := newStubCertRepo()
	svc := newTestCertificateService(certs, &stubLatestScore{record: &domain.LifeScoreRecord{ID: "LS-1"}})

	cert, err := svc.Issue(context.Background(), "USR-1")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), cert.ID))

	result, err := svc.Verify(context.Background(), cert.CertificateHash)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Certificate has been revoked", result.Message)
}

func TestCertificateService_VerifyExpiryComputedAtReadTime(t *testing.T) {
	certs := newStubCertRepo()
	svc := newTestCertificateService(certs, &stubLatestScore{record: &domain.LifeScoreRecord{ID: "LS-1"}})

	cert, err := svc.Issue(context.Background(), "USR-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CertificateValid, cert.Status)

	// Move the clock past the expiry; the stored status still says valid.
	svc.WithClock(func() time.Time { return cert.ExpiresAt.Add(time.Hour) })

	result, err := svc.Verify(context.Background(), cert.CertificateHash)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Certificate has expired", result.Message)
	require.NotNil(t, result.Certificate)
	assert.Equal(t, domain.CertificateExpired, result.Certificate.Status)

	// The detected expiry is written back.
	assert.Equal(t, domain.CertificateExpired, certs.statusUpdates[cert.ID])
}

func TestCertificateService_VerifyExpirySurvivesPersistFailure(t *testing.T) {
	certs := newStubCertRepo()
	svc := newTestCertificateService(certs, &stubLatestScore{record: &domain.LifeScoreRecord{ID: "LS-1"}})

	cert, err := svc.Issue(context.Background(), "USR-1")
	require.NoError(t, err)

	certs.updateErr = context.DeadlineExceeded
	svc.WithClock(func() time.Time { return cert.ExpiresAt.Add(time.Hour) })

	result, err := svc.Verify(context.Background(), cert.CertificateHash)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Certificate has expired", result.Message)
}

func TestCertificateService_RevokeNotFound(t *testing.T) {
	svc := newTestCertificateService(newStubCertRepo(), &stubLatestScore{})

	err := svc.Revoke(context.Background(), "CERT-404")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCertificateService_AttachBlockchainTx(t *testing.T) {
	certs := newStubCertRepo()
	svc := newTestCertificateService(certs, &stubLatestScore{record: &domain.LifeScoreRecord{ID: "LS-1"}})

	cert, err := svc.Issue(context.Background(), "USR-1")
	require.NoError(t, err)

	require.NoError(t, svc.AttachBlockchainTx(context.Background(), cert.ID, "0xabc123"))
	assert.Equal(t, "0xabc123", certs.txHashes[cert.ID])

	err = svc.AttachBlockchainTx(context.Background(), "CERT-404", "0xabc123")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCertificateHashDeterministic(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first := CertificateHash("USR-1", 76.5, issuedAt)
	second := CertificateHash("USR-1", 76.5, issuedAt)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	assert.NotEqual(t, first, CertificateHash("USR-2", 76.5, issuedAt))
	assert.NotEqual(t, first, CertificateHash("USR-1", 76.51, issuedAt))
	assert.NotEqual(t, first, CertificateHash("USR-1", 76.5, issuedAt.Add(time.Nanosecond)))
}

func TestCertificateService_VerificationURL(t *testing.T) {
	svc := newTestCertificateService(newStubCertRepo(), &stubLatestScore{})
	assert.Equal(t, "https://lifescore.app/api/v1/certificate/verify/CERT-1", svc.VerificationURL("CERT-1"))
}
