package costledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"contractintel/internal/obs"
)

// Config controls retention windows. Raw entries (the append-only audit
// list) expire after RawRetention; daily aggregates expire after
// AggRetention, which should be at least as long.
type Config struct {
	RawRetention time.Duration
	AggRetention time.Duration
}

// DefaultConfig returns the default retention: 7 days raw, 30 days
// aggregate.
func DefaultConfig() Config {
	return Config{RawRetention: 7 * 24 * time.Hour, AggRetention: 30 * 24 * time.Hour}
}

// Ledger records per-call cost entries and serves daily/ranged aggregates.
type Ledger struct {
	store Store
	cfg   Config
	log   obs.Logger

	dropped atomic.Int64
}

// Option configures a Ledger during construction.
type Option func(*Ledger)

// WithLogger sets a custom logger.
func WithLogger(l obs.Logger) Option { return func(ld *Ledger) { ld.log = l } }

// New constructs a Ledger backed by store.
func New(store Store, cfg Config, opts ...Option) *Ledger {
	ld := &Ledger{store: store, cfg: cfg, log: obs.NoopLogger{}}
	for _, o := range opts {
		o(ld)
	}
	return ld
}

// DroppedEntries returns the count of cost entries that failed to persist
// and were swallowed by a fail_silently=true caller.
func (l *Ledger) DroppedEntries() int64 { return l.dropped.Load() }

const (
	fieldTotalCalls     = "total_calls"
	fieldTotalCost      = "total_cost"
	fieldTotalInput     = "total_input_tokens"
	fieldTotalOutput    = "total_output_tokens"
	fieldTotalThinking  = "total_thinking_tokens"
	modelFieldPrefix    = "model:"
	modelCallsSuffix    = ":calls"
	modelCostSuffix     = ":cost"
	operationFieldPrefix = "op:"
	operationCallsSuffix = ":calls"
)

func dailyKey(d Day) string { return "cost:daily:" + d.String() }
func rawKey(d Day) string   { return "cost:raw:" + d.String() }

// Record appends a raw entry and atomically increments the per-day
// aggregate counters for entry.Day. On a backing-store failure, the
// dropped-entry counter is always incremented; the error is swallowed
// (nil returned) when failSilently is true, otherwise it is returned.
func (l *Ledger) Record(ctx context.Context, e CostEntry, failSilently bool) error {
	if err := l.record(ctx, e); err != nil {
		l.dropped.Add(1)
		l.log.Error("cost ledger record failed", map[string]any{
			"day": e.Day.String(), "model": e.Model, "operation": e.Operation, "error": err.Error(),
		})
		if failSilently {
			return nil
		}
		return err
	}
	return nil
}

func (l *Ledger) record(ctx context.Context, e CostEntry) error {
	key := dailyKey(e.Day)

	if err := l.store.IncrBy(ctx, key, fieldTotalCalls, 1); err != nil {
		return fmt.Errorf("incr total_calls: %w", err)
	}
	if err := l.store.IncrByFloat(ctx, key, fieldTotalCost, e.Cost); err != nil {
		return fmt.Errorf("incr total_cost: %w", err)
	}
	if err := l.store.IncrBy(ctx, key, fieldTotalInput, e.InputTokens); err != nil {
		return fmt.Errorf("incr total_input_tokens: %w", err)
	}
	if err := l.store.IncrBy(ctx, key, fieldTotalOutput, e.OutputTokens); err != nil {
		return fmt.Errorf("incr total_output_tokens: %w", err)
	}
	if err := l.store.IncrBy(ctx, key, fieldTotalThinking, e.ThinkingTokens); err != nil {
		return fmt.Errorf("incr total_thinking_tokens: %w", err)
	}
	if err := l.store.IncrBy(ctx, key, modelFieldPrefix+e.Model+modelCallsSuffix, 1); err != nil {
		return fmt.Errorf("incr model calls: %w", err)
	}
	if err := l.store.IncrByFloat(ctx, key, modelFieldPrefix+e.Model+modelCostSuffix, e.Cost); err != nil {
		return fmt.Errorf("incr model cost: %w", err)
	}
	if err := l.store.IncrBy(ctx, key, operationFieldPrefix+e.Operation+operationCallsSuffix, 1); err != nil {
		return fmt.Errorf("incr operation calls: %w", err)
	}
	if err := l.store.Expire(ctx, key, l.cfg.AggRetention); err != nil {
		return fmt.Errorf("expire aggregate: %w", err)
	}

	raw := rawEntryPayload(e)
	if err := l.store.PushRaw(ctx, rawKey(e.Day), raw, l.cfg.RawRetention); err != nil {
		return fmt.Errorf("push raw entry: %w", err)
	}
	return nil
}

func rawEntryPayload(e CostEntry) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%d|%s|%s",
		e.Day.String(), e.Model, e.Operation, e.InputTokens, e.OutputTokens, e.ThinkingTokens,
		strconv.FormatFloat(e.Cost, 'f', -1, 64), e.OccurredAt.UTC().Format(time.RFC3339Nano))
}

// Daily returns the aggregate for day. A day with no recorded entries
// returns a zeroed DailyCost.
func (l *Ledger) Daily(ctx context.Context, day Day) (DailyCost, error) {
	fields, err := l.store.HashGetAll(ctx, dailyKey(day))
	if err != nil {
		return DailyCost{}, fmt.Errorf("read daily aggregate: %w", err)
	}
	return parseDailyCost(fields), nil
}

// Range sums the per-day aggregates over [from, to] inclusive. When to is
// before from, the range is treated as the single day from.
func (l *Ledger) Range(ctx context.Context, from, to Day) (DailyCost, error) {
	if !to.After(from) && to != from {
		to = from
	}
	total := newDailyCost()
	for d := from; ; d = d.AddDays(1) {
		day, err := l.Daily(ctx, d)
		if err != nil {
			return DailyCost{}, err
		}
		total.merge(day)
		if d == to {
			break
		}
	}
	return total, nil
}

func parseDailyCost(fields map[string]string) DailyCost {
	d := newDailyCost()
	for field, raw := range fields {
		switch {
		case field == fieldTotalCalls:
			d.TotalCalls = parseInt(raw)
		case field == fieldTotalCost:
			d.TotalCost = parseFloat(raw)
		case field == fieldTotalInput:
			d.TotalInputTokens = parseInt(raw)
		case field == fieldTotalOutput:
			d.TotalOutputTokens = parseInt(raw)
		case field == fieldTotalThinking:
			d.TotalThinkingTokens = parseInt(raw)
		case strings.HasPrefix(field, modelFieldPrefix) && strings.HasSuffix(field, modelCallsSuffix):
			name := strings.TrimSuffix(strings.TrimPrefix(field, modelFieldPrefix), modelCallsSuffix)
			ma := d.ByModel[name]
			ma.Calls = parseInt(raw)
			d.ByModel[name] = ma
		case strings.HasPrefix(field, modelFieldPrefix) && strings.HasSuffix(field, modelCostSuffix):
			name := strings.TrimSuffix(strings.TrimPrefix(field, modelFieldPrefix), modelCostSuffix)
			ma := d.ByModel[name]
			ma.Cost = parseFloat(raw)
			d.ByModel[name] = ma
		case strings.HasPrefix(field, operationFieldPrefix) && strings.HasSuffix(field, operationCallsSuffix):
			name := strings.TrimSuffix(strings.TrimPrefix(field, operationFieldPrefix), operationCallsSuffix)
			oa := d.ByOperation[name]
			oa.Calls = parseInt(raw)
			d.ByOperation[name] = oa
		}
	}
	return d
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
