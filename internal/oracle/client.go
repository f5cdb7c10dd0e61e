// File: internal/oracle/client.go
package oracle

import "context"

// ModelTier selects which configured model serves a request.
type ModelTier string

const (
	// TierPowerful is the vision-capable model used for step decisions.
	TierPowerful ModelTier = "powerful"
	// TierFast is the cheaper model used for history condensation.
	TierFast ModelTier = "fast"
)

// GenerationRequest is one call to a reasoning backend.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	// ImagePNG, when set, is attached as an inline image part.
	ImagePNG []byte
	Tier     ModelTier
	// ForceJSONFormat asks the backend for a JSON-only response.
	ForceJSONFormat bool
	Temperature     float64
}

// LLMClient abstracts a reasoning backend. Implementations must respect the
// context deadline; the engine never blocks indefinitely on an oracle.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
