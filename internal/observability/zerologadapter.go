package observability

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologAdapter adapts a *zerolog.Logger to the obs.Logger interface used
// by the pipeline, router and retrieval packages.
type ZerologAdapter struct {
	Logger *zerolog.Logger
}

// NewContextAdapter builds a ZerologAdapter enriched with trace/span IDs
// from ctx, via LoggerWithTrace.
func NewContextAdapter(ctx context.Context) ZerologAdapter {
	return ZerologAdapter{Logger: LoggerWithTrace(ctx)}
}

func (a ZerologAdapter) Info(msg string, fields map[string]any) {
	a.event(a.Logger.Info(), fields).Msg(msg)
}

func (a ZerologAdapter) Error(msg string, fields map[string]any) {
	a.event(a.Logger.Error(), fields).Msg(msg)
}

func (a ZerologAdapter) Debug(msg string, fields map[string]any) {
	a.event(a.Logger.Debug(), fields).Msg(msg)
}

func (a ZerologAdapter) event(e *zerolog.Event, fields map[string]any) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}
