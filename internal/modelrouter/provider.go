package modelrouter

import "context"

// ProviderRequest is the single outbound call shape ModelRouter issues to
// whichever concrete LLM SDK backs it.
type ProviderRequest struct {
	Model             string
	Prompt            string
	SystemInstruction string
	ThinkingBudget    int
}

// ProviderResult is the raw token accounting a Provider call returns;
// Router turns this into a GenerationResult by attaching the model name
// and computed cost.
type ProviderResult struct {
	Text           string
	InputTokens    int64
	OutputTokens   int64
	ThinkingTokens int64
}

// Provider is the external collaborator used by ModelRouter — a single
// call into whatever wraps the real LLM SDK. Implementations classify
// failures using apperrors.Kind (InvalidInput, Transient, Timeout,
// Fatal, Integrity) so Router can apply the correct retry policy.
type Provider interface {
	Generate(ctx context.Context, req ProviderRequest) (ProviderResult, error)
}

// Embedder is the external collaborator used for ModelRouter.Embed. Kept
// distinct from Provider since an embedding endpoint is frequently a
// different service from the generation endpoint.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
