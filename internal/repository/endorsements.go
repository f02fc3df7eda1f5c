package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lifescore-app/backend/internal/domain"
	"github.com/lifescore-app/backend/internal/graph"
)

// InsertEndorsement stores an endorsement as an ENDORSED edge from the
// endorser to the subject. Both user nodes are created on first contact.
func (r *Repository) InsertEndorsement(ctx context.Context, e domain.Endorsement) error {
	if e.ID == "" {
		return errors.New("endorsement id is required")
	}
	if e.SubjectUserID == "" || e.EndorserUserID == "" {
		return errors.New("subject and endorser user IDs are required")
	}

	params := map[string]any{
		"endorsementId": e.ID,
		"subjectId":     e.SubjectUserID,
		"endorserId":    e.EndorserUserID,
		"props": map[string]any{
			"skill":     e.Skill,
			"message":   e.Message,
			"status":    string(e.Status),
			"weight":    e.Weight,
			"createdAt": formatTime(e.CreatedAt),
			"updatedAt": formatTime(e.UpdatedAt),
		},
	}

	if _, err := r.client.ExecuteWrite(ctx, insertEndorsementCypher, params); err != nil {
		return fmt.Errorf("insert endorsement %s: %w", e.ID, err)
	}
	return nil
}

// EndorsementByID returns a single endorsement, or nil when no edge carries
// the given id.
func (r *Repository) EndorsementByID(ctx context.Context, endorsementID string) (*domain.Endorsement, error) {
	if endorsementID == "" {
		return nil, errors.New("endorsement id is required")
	}

	res, err := r.client.ExecuteRead(ctx, endorsementByIDCypher, map[string]any{
		"endorsementId": endorsementID,
	})
	if err != nil {
		return nil, fmt.Errorf("endorsement by id query: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, nil
	}

	e := rowToEndorsement(res.Records[0])
	return &e, nil
}

// ListEndorsements returns endorsements received by a subject, newest
// first, optionally filtered by status. An empty status matches all.
func (r *Repository) ListEndorsements(ctx context.Context, subjectUserID, status string, limit int) ([]domain.Endorsement, error) {
	if subjectUserID == "" {
		return nil, errors.New("subject user id is required")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	res, err := r.client.ExecuteRead(ctx, listEndorsementsCypher, map[string]any{
		"userId": subjectUserID,
		"status": status,
		"limit":  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list endorsements query: %w", err)
	}

	endorsements := make([]domain.Endorsement, 0, len(res.Records))
	for _, record := range res.Records {
		endorsements = append(endorsements, rowToEndorsement(record))
	}
	return endorsements, nil
}

// ApprovedEndorsements returns every approved endorsement for a subject,
// the input set for the endorsement score reduction.
func (r *Repository) ApprovedEndorsements(ctx context.Context, subjectUserID string) ([]domain.Endorsement, error) {
	return r.ListEndorsements(ctx, subjectUserID, string(domain.EndorsementApproved), 100)
}

// UpdateEndorsementStatus rewrites status and weight on the edge and
// returns the updated endorsement, or nil when no edge matched.
func (r *Repository) UpdateEndorsementStatus(ctx context.Context, endorsementID string, status domain.EndorsementStatus, weight float64, updatedAt time.Time) (*domain.Endorsement, error) {
	if endorsementID == "" {
		return nil, errors.New("endorsement id is required")
	}

	res, err := r.client.ExecuteWrite(ctx, updateEndorsementStatusCypher, map[string]any{
		"endorsementId": endorsementID,
		"status":        string(status),
		"weight":        weight,
		"updatedAt":     formatTime(updatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("update endorsement %s: %w", endorsementID, err)
	}
	if len(res.Records) == 0 {
		return nil, nil
	}

	e := rowToEndorsement(res.Records[0])
	return &e, nil
}

// DeleteEndorsement removes the edge.
func (r *Repository) DeleteEndorsement(ctx context.Context, endorsementID string) error {
	if endorsementID == "" {
		return errors.New("endorsement id is required")
	}

	if _, err := r.client.ExecuteWrite(ctx, deleteEndorsementCypher, map[string]any{
		"endorsementId": endorsementID,
	}); err != nil {
		return fmt.Errorf("delete endorsement %s: %w", endorsementID, err)
	}
	return nil
}

func rowToEndorsement(record graph.Record) domain.Endorsement {
	return domain.Endorsement{
		ID:             toString(record["endorsementId"]),
		SubjectUserID:  toString(record["subjectId"]),
		EndorserUserID: toString(record["endorserId"]),
		Skill:          toString(record["skill"]),
		Message:        toString(record["message"]),
		Status:         domain.EndorsementStatus(toString(record["status"])),
		Weight:         toFloat64(record["weight"]),
		CreatedAt:      toTime(record["createdAt"]),
		UpdatedAt:      toTime(record["updatedAt"]),
	}
}

const insertEndorsementCypher = `
MERGE (subject:User {userId: $subjectId})
MERGE (endorser:User {userId: $endorserId})
CREATE (endorser)-[e:ENDORSED {endorsementId: $endorsementId}]->(subject)
SET e += $props
RETURN e.endorsementId AS endorsementId
`

const endorsementReturnClause = `
RETURN e.endorsementId AS endorsementId,
       subject.userId AS subjectId,
       endorser.userId AS endorserId,
       e.skill AS skill,
       e.message AS message,
       e.status AS status,
       e.weight AS weight,
       e.createdAt AS createdAt,
       e.updatedAt AS updatedAt
`

const endorsementByIDCypher = `
MATCH (endorser:User)-[e:ENDORSED {endorsementId: $endorsementId}]->(subject:User)
` + endorsementReturnClause

const listEndorsementsCypher = `
MATCH (endorser:User)-[e:ENDORSED]->(subject:User {userId: $userId})
WHERE $status = "" OR e.status = $status
WITH endorser, e, subject ORDER BY datetime(e.createdAt) DESC
LIMIT $limit
` + endorsementReturnClause

const updateEndorsementStatusCypher = `
MATCH (endorser:User)-[e:ENDORSED {endorsementId: $endorsementId}]->(subject:User)
SET e.status = $status,
    e.weight = $weight,
    e.updatedAt = $updatedAt
` + endorsementReturnClause

const deleteEndorsementCypher = `
MATCH ()-[e:ENDORSED {endorsementId: $endorsementId}]->()
DELETE e
`
