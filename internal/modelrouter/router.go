// Package modelrouter maps a task complexity tier to a concrete model,
// executes a single generation call with a timeout, retries transient
// failures with exponential backoff, and opens a circuit breaker after
// repeated failures.
package modelrouter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"contractintel/internal/apperrors"
	"contractintel/internal/obs"
	"contractintel/internal/observability"
)

// Config carries the tier table and the timeout/retry/breaker tunables.
type Config struct {
	Tiers              map[Complexity]ModelSpec
	DefaultTimeout     time.Duration
	MaxTimeout         time.Duration
	MaxRetries         int
	BaseBackoff        time.Duration
	MaxBackoff         time.Duration
	BreakerFailMax     int
	BreakerResetAfter  time.Duration
	BreakerHalfOpenMax int
}

// Router implements the ModelRouter component.
type Router struct {
	provider Provider
	embedder Embedder
	cfg      Config
	breaker  *breaker
	clock    obs.Clock
	log      obs.Logger
	metrics  obs.Metrics
}

// Option configures a Router during construction.
type Option func(*Router)

func WithLogger(l obs.Logger) Option     { return func(r *Router) { r.log = l } }
func WithMetrics(m obs.Metrics) Option   { return func(r *Router) { r.metrics = m } }
func WithClock(c obs.Clock) Option       { return func(r *Router) { r.clock = c } }
func WithEmbedder(e Embedder) Option     { return func(r *Router) { r.embedder = e } }

// New constructs a Router around provider using cfg's tier table and
// retry/breaker tunables.
func New(provider Provider, cfg Config, opts ...Option) *Router {
	r := &Router{
		provider: provider,
		cfg:      cfg,
		clock:    obs.SystemClock{},
		log:      obs.NoopLogger{},
		metrics:  obs.NoopMetrics{},
	}
	for _, o := range opts {
		o(r)
	}
	r.breaker = newBreaker(cfg.BreakerFailMax, cfg.BreakerResetAfter, cfg.BreakerHalfOpenMax, r.clock, r.log)
	return r
}

// BreakerState exposes the breaker's current state, mostly for tests and
// health checks.
func (r *Router) BreakerState() State { return r.breaker.currentState() }

// Generate executes a single generation call for the given complexity
// tier, applying timeout, retry and circuit-breaker policy.
func (r *Router) Generate(ctx context.Context, prompt string, tier Complexity, opts ...GenOption) (GenerationResult, error) {
	spec, ok := r.cfg.Tiers[tier]
	if !ok {
		return GenerationResult{}, apperrors.New("modelrouter.generate", apperrors.KindInvalidInput,
			errors.New("unknown complexity tier: "+string(tier)))
	}

	o := genOptions{timeout: r.cfg.DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	thinkingBudget := o.thinkingBudget
	if tier != Reasoning {
		thinkingBudget = 0
	}

	timeout := o.timeout
	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}
	if timeout > r.cfg.MaxTimeout {
		timeout = r.cfg.MaxTimeout
	}

	if !r.breaker.allow() {
		r.metrics.IncCounter("router_breaker_rejections", map[string]string{"tier": string(tier)})
		return GenerationResult{}, apperrors.New("modelrouter.generate", apperrors.KindServiceUnavailable,
			errors.New("circuit breaker open"))
	}

	maxTries := r.cfg.MaxRetries + 1
	if maxTries < 1 {
		maxTries = 1
	}
	bo := newJitterBackoff(r.cfg.BaseBackoff, r.cfg.MaxBackoff)

	req := ProviderRequest{
		Model:             spec.Model,
		Prompt:            prompt,
		SystemInstruction: o.systemInstruction,
		ThinkingBudget:    thinkingBudget,
	}
	r.log.Debug("modelrouter.generate request", map[string]any{
		"tier": string(tier), "model": spec.Model, "request": redactedJSON(req),
	})

	result, err := backoff.Retry(ctx, func() (ProviderResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		res, callErr := r.provider.Generate(callCtx, req)
		if callErr == nil {
			return res, nil
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			callErr = apperrors.New("modelrouter.generate", apperrors.KindTimeout, callErr)
		}
		if !apperrors.Retryable(callErr) {
			return ProviderResult{}, backoff.Permanent(callErr)
		}
		return ProviderResult{}, callErr
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(maxTries)))

	if err != nil {
		r.breaker.recordFailure()
		r.metrics.IncCounter("router_generate_failures", map[string]string{
			"tier": string(tier), "kind": string(apperrors.KindOf(err)),
		})
		r.log.Error("modelrouter.generate failed", map[string]any{
			"tier": string(tier), "model": spec.Model, "kind": string(apperrors.KindOf(err)), "request": redactedJSON(req),
		})
		return GenerationResult{}, err
	}

	r.breaker.recordSuccess()
	genCost := cost(spec, result.InputTokens, result.OutputTokens, result.ThinkingTokens)
	r.metrics.IncCounter("router_generate_success", map[string]string{"tier": string(tier), "model": spec.Model})
	r.metrics.ObserveHistogram("router_generate_cost", genCost, map[string]string{"tier": string(tier), "model": spec.Model})
	r.log.Debug("modelrouter.generate response", map[string]any{
		"tier": string(tier), "model": spec.Model, "response": redactedJSON(result),
	})

	return GenerationResult{
		Text:           result.Text,
		Model:          spec.Model,
		InputTokens:    result.InputTokens,
		OutputTokens:   result.OutputTokens,
		ThinkingTokens: result.ThinkingTokens,
		Cost:           genCost,
	}, nil
}

// Embed delegates to the configured Embedder collaborator.
func (r *Router) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if r.embedder == nil {
		return nil, apperrors.New("modelrouter.embed", apperrors.KindFatal, errors.New("no embedder configured"))
	}
	return r.embedder.EmbedBatch(ctx, texts)
}

// redactedJSON marshals v and strips any key matching the common
// credential/secret names before it reaches a log line. Marshal failure
// degrades to an empty object rather than dropping the log entry.
func redactedJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(observability.RedactJSON(raw))
}
