package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lifescore-app/backend/internal/domain"
)

// UpsertProfile ensures a user node exists with the latest profile fields.
func (r *Repository) UpsertProfile(ctx context.Context, profile domain.UserProfile) error {
	if profile.ID == "" {
		return errors.New("user id is required")
	}

	params := map[string]any{
		"userId": profile.ID,
		"props": map[string]any{
			"displayName": profile.DisplayName,
			"email":       profile.Email,
			"updatedAt":   formatTime(profile.UpdatedAt),
		},
		"createdAt": formatTime(profile.CreatedAt),
	}

	if _, err := r.client.ExecuteWrite(ctx, upsertProfileCypher, params); err != nil {
		return fmt.Errorf("upsert profile %s: %w", profile.ID, err)
	}
	return nil
}

// ProfileByID returns a user profile, or nil when the user is unknown.
func (r *Repository) ProfileByID(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	res, err := r.client.ExecuteRead(ctx, profileByIDCypher, map[string]any{
		"userId": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("profile query: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, nil
	}

	record := res.Records[0]
	profile := domain.UserProfile{
		ID:          toString(record["userId"]),
		DisplayName: toString(record["displayName"]),
		Email:       toString(record["email"]),
		CreatedAt:   toTime(record["createdAt"]),
		UpdatedAt:   toTime(record["updatedAt"]),
	}
	return &profile, nil
}

const upsertProfileCypher = `
MERGE (u:User {userId: $userId})
ON CREATE SET u.createdAt = $createdAt
SET u += $props
RETURN u.userId AS userId
`

const profileByIDCypher = `
MATCH (u:User {userId: $userId})
RETURN u.userId AS userId,
       u.displayName AS displayName,
       u.email AS email,
       u.createdAt AS createdAt,
       u.updatedAt AS updatedAt
`
