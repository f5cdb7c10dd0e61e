// File: internal/oracle/factory.go
package oracle

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reasonos/websurfer/internal/config"
)

// NewFromConfig wires the configured provider into a ready Service. Both model
// tiers share one rate limiter so the combined request rate stays inside the
// provider quota.
func NewFromConfig(cfg config.OracleConfig, logger *zap.Logger) (*Service, error) {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	var clients map[ModelTier]LLMClient

	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		powerful, err := NewGeminiClient(cfg, cfg.Model, limiter, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		clients = map[ModelTier]LLMClient{TierPowerful: powerful}

		if cfg.FastModel != "" && cfg.FastModel != cfg.Model {
			fast, err := NewGeminiClient(cfg, cfg.FastModel, limiter, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create fast-tier gemini client: %w", err)
			}
			clients[TierFast] = fast
		}
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %q", cfg.Provider)
	}

	router, err := NewRouter(clients, logger)
	if err != nil {
		return nil, err
	}
	return NewService(router, cfg, logger), nil
}
