package modelrouter

import "time"

// Complexity is a discrete task tier mapping to a concrete model and
// price schedule.
type Complexity string

const (
	Simple    Complexity = "SIMPLE"
	Balanced  Complexity = "BALANCED"
	Complex   Complexity = "COMPLEX"
	Reasoning Complexity = "REASONING"
)

// ModelSpec binds a complexity tier to a concrete model and its
// per-million-token price schedule.
type ModelSpec struct {
	Model         string
	InPerMillion  float64
	OutPerMillion float64
}

// GenerationResult is ModelRouter's public result shape.
type GenerationResult struct {
	Text           string
	Model          string
	InputTokens    int64
	OutputTokens   int64
	ThinkingTokens int64
	Cost           float64
}

// cost implements §4.2's cost formula: input and thinking tokens are
// billed at the input rate, output tokens at the output rate.
func cost(spec ModelSpec, inputTokens, outputTokens, thinkingTokens int64) float64 {
	in := float64(inputTokens) * spec.InPerMillion / 1e6
	out := float64(outputTokens) * spec.OutPerMillion / 1e6
	think := float64(thinkingTokens) * spec.InPerMillion / 1e6
	return in + out + think
}

// GenOption configures a single Generate call.
type GenOption func(*genOptions)

type genOptions struct {
	thinkingBudget    int
	systemInstruction string
	timeout           time.Duration
}

// WithThinkingBudget sets a reasoning budget; honoured only for the
// REASONING tier, silently zeroed otherwise.
func WithThinkingBudget(n int) GenOption {
	return func(o *genOptions) { o.thinkingBudget = n }
}

// WithSystemInstruction sets a system prompt for the call.
func WithSystemInstruction(s string) GenOption {
	return func(o *genOptions) { o.systemInstruction = s }
}

// WithTimeout overrides the router's default per-call timeout. It is
// still clamped to the router's configured max timeout.
func WithTimeout(d time.Duration) GenOption {
	return func(o *genOptions) { o.timeout = d }
}
