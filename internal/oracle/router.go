// File: internal/oracle/router.go
package oracle

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Router dispatches generation requests to the client registered for the
// request's tier. Unknown tiers fall back to the powerful model so a decision
// is never silently downgraded.
type Router struct {
	clients map[ModelTier]LLMClient
	logger  *zap.Logger
}

func NewRouter(clients map[ModelTier]LLMClient, logger *zap.Logger) (*Router, error) {
	if _, ok := clients[TierPowerful]; !ok {
		return nil, fmt.Errorf("router requires a client for the %q tier", TierPowerful)
	}
	return &Router{clients: clients, logger: logger.Named("oracle.router")}, nil
}

// Generate routes the request to the tier's client.
func (r *Router) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	client, ok := r.clients[req.Tier]
	if !ok {
		r.logger.Debug("No client for tier, using powerful", zap.String("tier", string(req.Tier)))
		client = r.clients[TierPowerful]
	}
	return client.Generate(ctx, req)
}
