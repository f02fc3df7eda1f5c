package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lifescore-app/backend/internal/domain"
	"github.com/lifescore-app/backend/internal/graph"
)

// Repository encapsulates graph persistence operations for scores,
// endorsements, certificates, and user profiles.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func serializeBreakdown(b domain.ScoreBreakdown) (string, error) {
	bytes, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func deserializeBreakdown(raw string) domain.ScoreBreakdown {
	var breakdown domain.ScoreBreakdown
	if raw == "" {
		return breakdown
	}
	_ = json.Unmarshal([]byte(raw), &breakdown)
	return breakdown
}

func serializeMetadata(m domain.CertificateMetadata) (string, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func deserializeMetadata(raw string) domain.CertificateMetadata {
	var metadata domain.CertificateMetadata
	if raw == "" {
		return metadata
	}
	_ = json.Unmarshal([]byte(raw), &metadata)
	return metadata
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toFloatPtr(val any) *float64 {
	switch val.(type) {
	case nil:
		return nil
	case string:
		return nil
	}
	f := toFloat64(val)
	return &f
}

func toIntPtr(val any) *int {
	switch v := val.(type) {
	case int64:
		i := int(v)
		return &i
	case int:
		return &v
	case float64:
		i := int(v)
		return &i
	}
	return nil
}

func toTime(val any) time.Time {
	if ts := toTimePtr(val); ts != nil {
		return *ts
	}
	return time.Time{}
}

func toTimePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case string:
		if v == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return &parsed
		}
	}
	return nil
}
