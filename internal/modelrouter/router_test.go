package modelrouter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"contractintel/internal/apperrors"
	"contractintel/internal/obs"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func testConfig() Config {
	return Config{
		Tiers: map[Complexity]ModelSpec{
			Simple: {Model: "small-fast", InPerMillion: 1, OutPerMillion: 2},
		},
		DefaultTimeout:     time.Second,
		MaxTimeout:         time.Second,
		MaxRetries:         2,
		BaseBackoff:        time.Millisecond,
		MaxBackoff:         5 * time.Millisecond,
		BreakerFailMax:     3,
		BreakerResetAfter:  time.Second,
		BreakerHalfOpenMax: 1,
	}
}

func TestGenerateRetriesTransientThenSucceeds(t *testing.T) {
	provider := &FakeProvider{
		Faults: []Fault{
			Fail(apperrors.KindTransient),
			Fail(apperrors.KindTransient),
			OK(ProviderResult{Text: "done", InputTokens: 10, OutputTokens: 5}),
		},
	}
	router := New(provider, testConfig())

	res, err := router.Generate(context.Background(), "prompt", Simple)
	require.NoError(t, err)
	require.Equal(t, "done", res.Text)
	require.Equal(t, 3, provider.Calls())
	require.InDelta(t, 10*1/1e6+5*2/1e6, res.Cost, 1e-12)
}

func TestGenerateUnknownTierIsInvalidInput(t *testing.T) {
	router := New(&FakeProvider{}, testConfig())
	_, err := router.Generate(context.Background(), "p", Complexity("NOPE"))
	require.True(t, apperrors.Is(err, apperrors.KindInvalidInput))
}

func TestBreakerTripsAfterConsecutiveFailuresAndRecovers(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cfg := testConfig()
	cfg.MaxRetries = 0 // one attempt per call, so each call is one failure
	cfg.BreakerFailMax = 3
	cfg.BreakerResetAfter = time.Second

	provider := &FakeProvider{Faults: []Fault{
		Fail(apperrors.KindTransient),
		Fail(apperrors.KindTransient),
		Fail(apperrors.KindTransient),
	}}
	router := New(provider, cfg, WithClock(clock))

	for i := 0; i < 3; i++ {
		_, err := router.Generate(context.Background(), "p", Simple)
		require.Error(t, err)
	}
	require.Equal(t, Open, router.BreakerState())

	// Fourth call, still within reset_after: fails fast without calling the provider.
	callsBefore := provider.Calls()
	_, err := router.Generate(context.Background(), "p", Simple)
	require.True(t, apperrors.Is(err, apperrors.KindServiceUnavailable))
	require.Equal(t, callsBefore, provider.Calls())

	// Advance past reset_after: next call is admitted as a HalfOpen probe.
	clock.advance(1100 * time.Millisecond)
	provider.Faults = append(provider.Faults, OK(ProviderResult{Text: "recovered"}))
	res, err := router.Generate(context.Background(), "p", Simple)
	require.NoError(t, err)
	require.Equal(t, "recovered", res.Text)
	require.Equal(t, Closed, router.BreakerState())

	// Following call passes through normally.
	provider.Faults = append(provider.Faults, OK(ProviderResult{Text: "normal"}))
	res, err = router.Generate(context.Background(), "p", Simple)
	require.NoError(t, err)
	require.Equal(t, "normal", res.Text)
}

type recordingProvider struct{ last ProviderRequest }

func (p *recordingProvider) Generate(_ context.Context, req ProviderRequest) (ProviderResult, error) {
	p.last = req
	return ProviderResult{Text: "ok"}, nil
}

func TestGenerateThinkingBudgetZeroedOutsideReasoningTier(t *testing.T) {
	provider := &recordingProvider{}
	router := New(provider, testConfig())
	_, err := router.Generate(context.Background(), "p", Simple, WithThinkingBudget(500))
	require.NoError(t, err)
	require.Zero(t, provider.last.ThinkingBudget)
}

func TestEmbedDelegatesToEmbedder(t *testing.T) {
	router := New(&FakeProvider{}, testConfig(), WithEmbedder(&FakeEmbedder{Dim: 8}))
	vecs, err := router.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	require.Len(t, vecs[0], 8)
}

var _ obs.Clock = (*fakeClock)(nil)
