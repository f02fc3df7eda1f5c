package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lifescore-app/backend/internal/domain"
	"github.com/lifescore-app/backend/internal/graph"
)

// InsertCertificate stores a freshly issued certificate, linked to the
// holder and, when the backing score still exists, to the attested record.
func (r *Repository) InsertCertificate(ctx context.Context, c domain.Certificate) error {
	if c.ID == "" {
		return errors.New("certificate id is required")
	}
	if c.UserID == "" {
		return errors.New("user id is required")
	}
	if c.CertificateHash == "" {
		return errors.New("certificate hash is required")
	}

	metadata, err := serializeMetadata(c.Metadata)
	if err != nil {
		return fmt.Errorf("serialize metadata: %w", err)
	}

	props := map[string]any{
		"userId":          c.UserID,
		"lifescoreId":     c.LifeScoreID,
		"certificateHash": c.CertificateHash,
		"score":           c.Score,
		"issuedAt":        formatTime(c.IssuedAt),
		"status":          string(c.Status),
		"metadataJson":    metadata,
		"createdAt":       formatTime(c.CreatedAt),
	}
	if c.ExpiresAt != nil {
		props["expiresAt"] = formatTime(*c.ExpiresAt)
	}
	if c.BlockchainTxHash != "" {
		props["blockchainTxHash"] = c.BlockchainTxHash
	}

	params := map[string]any{
		"certificateId": c.ID,
		"userId":        c.UserID,
		"lifescoreId":   c.LifeScoreID,
		"props":         props,
	}

	if _, err := r.client.ExecuteWrite(ctx, insertCertificateCypher, params); err != nil {
		return fmt.Errorf("insert certificate %s: %w", c.ID, err)
	}
	return nil
}

// CertificateByID returns a certificate, or nil when the id is unknown.
func (r *Repository) CertificateByID(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	if certificateID == "" {
		return nil, errors.New("certificate id is required")
	}
	return r.fetchCertificate(ctx, certificateByIDCypher, map[string]any{
		"certificateId": certificateID,
	})
}

// CertificateByHash resolves a certificate from its public hash, or nil
// when the hash is unknown.
func (r *Repository) CertificateByHash(ctx context.Context, certificateHash string) (*domain.Certificate, error) {
	if certificateHash == "" {
		return nil, errors.New("certificate hash is required")
	}
	return r.fetchCertificate(ctx, certificateByHashCypher, map[string]any{
		"certificateHash": certificateHash,
	})
}

// CertificatesForUser returns all certificates held by a user, newest
// issuance first.
func (r *Repository) CertificatesForUser(ctx context.Context, userID string) ([]domain.Certificate, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	res, err := r.client.ExecuteRead(ctx, certificatesForUserCypher, map[string]any{
		"userId": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("certificates for user query: %w", err)
	}

	certificates := make([]domain.Certificate, 0, len(res.Records))
	for _, record := range res.Records {
		certificates = append(certificates, rowToCertificate(record))
	}
	return certificates, nil
}

// UpdateCertificateStatus rewrites the stored status. Used for revocation
// and for persisting read-time expiry detection.
func (r *Repository) UpdateCertificateStatus(ctx context.Context, certificateID string, status domain.CertificateStatus) error {
	if certificateID == "" {
		return errors.New("certificate id is required")
	}

	if _, err := r.client.ExecuteWrite(ctx, updateCertificateStatusCypher, map[string]any{
		"certificateId": certificateID,
		"status":        string(status),
	}); err != nil {
		return fmt.Errorf("update certificate %s status: %w", certificateID, err)
	}
	return nil
}

// SetBlockchainTxHash records the external anchoring transaction for a
// certificate. The core stores the hash but never computes it.
func (r *Repository) SetBlockchainTxHash(ctx context.Context, certificateID, txHash string) error {
	if certificateID == "" {
		return errors.New("certificate id is required")
	}

	if _, err := r.client.ExecuteWrite(ctx, setBlockchainTxHashCypher, map[string]any{
		"certificateId": certificateID,
		"txHash":        txHash,
	}); err != nil {
		return fmt.Errorf("set blockchain tx hash for %s: %w", certificateID, err)
	}
	return nil
}

func (r *Repository) fetchCertificate(ctx context.Context, cypher string, params map[string]any) (*domain.Certificate, error) {
	res, err := r.client.ExecuteRead(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("certificate query: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, nil
	}

	cert := rowToCertificate(res.Records[0])
	return &cert, nil
}

func rowToCertificate(record graph.Record) domain.Certificate {
	return domain.Certificate{
		ID:               toString(record["certificateId"]),
		UserID:           toString(record["userId"]),
		LifeScoreID:      toString(record["lifescoreId"]),
		CertificateHash:  toString(record["certificateHash"]),
		Score:            toFloat64(record["score"]),
		IssuedAt:         toTime(record["issuedAt"]),
		ExpiresAt:        toTimePtr(record["expiresAt"]),
		Status:           domain.CertificateStatus(toString(record["status"])),
		Metadata:         deserializeMetadata(toString(record["metadataJson"])),
		BlockchainTxHash: toString(record["blockchainTxHash"]),
		CreatedAt:        toTime(record["createdAt"]),
	}
}

const insertCertificateCypher = `
MERGE (u:User {userId: $userId})
CREATE (c:Certificate {certificateId: $certificateId})
SET c += $props
CREATE (u)-[:HOLDS_CERTIFICATE]->(c)
WITH c
OPTIONAL MATCH (s:LifeScore {scoreId: $lifescoreId})
FOREACH (_ IN CASE WHEN s IS NULL THEN [] ELSE [1] END |
	CREATE (c)-[:ATTESTS]->(s)
)
RETURN c.certificateId AS certificateId
`

const certificateReturnClause = `
RETURN c.certificateId AS certificateId,
       c.userId AS userId,
       c.lifescoreId AS lifescoreId,
       c.certificateHash AS certificateHash,
       c.score AS score,
       c.issuedAt AS issuedAt,
       c.expiresAt AS expiresAt,
       c.status AS status,
       c.metadataJson AS metadataJson,
       c.blockchainTxHash AS blockchainTxHash,
       c.createdAt AS createdAt
`

const certificateByIDCypher = `
MATCH (c:Certificate {certificateId: $certificateId})
` + certificateReturnClause

const certificateByHashCypher = `
MATCH (c:Certificate {certificateHash: $certificateHash})
` + certificateReturnClause

const certificatesForUserCypher = `
MATCH (u:User {userId: $userId})-[:HOLDS_CERTIFICATE]->(c:Certificate)
WITH c ORDER BY datetime(c.issuedAt) DESC
` + certificateReturnClause

const updateCertificateStatusCypher = `
MATCH (c:Certificate {certificateId: $certificateId})
SET c.status = $status
RETURN c.certificateId AS certificateId
`

const setBlockchainTxHashCypher = `
MATCH (c:Certificate {certificateId: $certificateId})
SET c.blockchainTxHash = $txHash
RETURN c.certificateId AS certificateId
`
