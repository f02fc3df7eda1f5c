package server

import (
	"context"
	"time"

	"github.com/lifescore-app/backend/internal/graph"
)

const probeTimeout = 5 * time.Second

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphHealthService reports readiness based on graph connectivity.
type GraphHealthService struct {
	Client graph.Client
}

// Probe checks graph connectivity. The check is bounded so a stalled driver
// cannot hang the health endpoint.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return s.Client.VerifyConnectivity(ctx)
}
