package pipeline

import (
	"context"
	"time"
)

// Deadline is a remaining-time budget threaded stage to stage: each
// stage derives its context from the same absolute instant rather than
// getting a fresh per-stage timeout.
type Deadline struct {
	at time.Time
}

// NewDeadline returns a Deadline budget-duration past now. A
// non-positive budget disables the deadline entirely (the zero value).
func NewDeadline(now time.Time, budget time.Duration) Deadline {
	if budget <= 0 {
		return Deadline{}
	}
	return Deadline{at: now.Add(budget)}
}

// Remaining reports the time left before the deadline relative to now.
// Zero when the deadline is disabled.
func (d Deadline) Remaining(now time.Time) time.Duration {
	if d.at.IsZero() {
		return 0
	}
	return d.at.Sub(now)
}

// Context derives a context bounded by the deadline's absolute instant.
// Returns ctx unchanged, with a no-op cancel, when the deadline is
// disabled.
func (d Deadline) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.at.IsZero() {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, d.at)
}
