package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// StaleMarker fails non-terminal analyses whose last update predates cutoff.
type StaleMarker interface {
	MarkStale(ctx context.Context, cutoff time.Time, msg string) (int64, error)
}

// StaleAnalysisSweeper periodically fails analyses that have been queued or
// processing for too long, so a crashed worker never leaves a client polling
// a permanently stuck row.
type StaleAnalysisSweeper struct {
	analyses         StaleMarker
	maxProcessingAge time.Duration
	interval         time.Duration
}

// NewStaleAnalysisSweeper constructs a sweeper; returns nil if analyses is nil.
func NewStaleAnalysisSweeper(analyses StaleMarker, maxProcessingAge, interval time.Duration) *StaleAnalysisSweeper {
	if analyses == nil {
		return nil
	}
	if maxProcessingAge <= 0 {
		maxProcessingAge = 3 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &StaleAnalysisSweeper{
		analyses:         analyses,
		maxProcessingAge: maxProcessingAge,
		interval:         interval,
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *StaleAnalysisSweeper) Run(ctx context.Context) {
	if s == nil || s.analyses == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("stale analysis sweeper stopping")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *StaleAnalysisSweeper) sweepOnce(ctx context.Context) {
	tracer := otel.Tracer("analyses.sweeper")
	ctx, span := tracer.Start(ctx, "StaleAnalysisSweeper.sweepOnce")
	defer span.End()

	cutoff := time.Now().UTC().Add(-s.maxProcessingAge)
	msg := fmt.Sprintf("timeout: analysis exceeded %v; marked as failed by sweeper", s.maxProcessingAge)
	marked, err := s.analyses.MarkStale(ctx, cutoff, msg)
	if err != nil {
		span.RecordError(err)
		slog.Error("stale analysis sweep failed", slog.Any("error", err))
		return
	}
	span.SetAttributes(attribute.Int64("analyses.marked_failed", marked))
	if marked > 0 {
		slog.Warn("stale analyses marked as failed", slog.Int64("count", marked))
	}
}
