package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

// StaleFailer marks long-running assessments as failed. postgres.AssessmentRepo implements it.
type StaleFailer interface {
	FailStale(ctx domain.Context, cutoff time.Time, msg string) (int64, error)
}

// StaleAssessmentSweeper fails assessments whose worker died mid-run so that
// clients polling GET /v1/assessments/{id} see a terminal status.
type StaleAssessmentSweeper struct {
	repo             StaleFailer
	maxProcessingAge time.Duration
	interval         time.Duration
	now              func() time.Time
}

// NewStaleAssessmentSweeper returns nil when repo is nil.
func NewStaleAssessmentSweeper(repo StaleFailer, maxProcessingAge, interval time.Duration) *StaleAssessmentSweeper {
	if repo == nil {
		return nil
	}
	if maxProcessingAge <= 0 {
		maxProcessingAge = 15 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &StaleAssessmentSweeper{repo: repo, maxProcessingAge: maxProcessingAge, interval: interval, now: time.Now}
}

// Run sweeps immediately and then on every interval until ctx is done.
func (s *StaleAssessmentSweeper) Run(ctx context.Context) {
	if s == nil || s.repo == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("stale assessment sweeper stopping")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *StaleAssessmentSweeper) sweepOnce(ctx context.Context) int64 {
	ctx, span := otel.Tracer("assessments.sweeper").Start(ctx, "StaleAssessmentSweeper.sweepOnce")
	defer span.End()
	span.SetAttributes(attribute.Float64("assessments.max_processing_age_seconds", s.maxProcessingAge.Seconds()))

	cutoff := s.now().Add(-s.maxProcessingAge).UTC()
	msg := fmt.Sprintf("assessment processing exceeded maximum age %v; marked failed by sweeper", s.maxProcessingAge)
	n, err := s.repo.FailStale(ctx, cutoff, msg)
	if err != nil {
		span.RecordError(err)
		slog.Error("stale assessment sweep failed", slog.Any("error", err))
		return 0
	}
	span.SetAttributes(attribute.Int64("assessments.marked_failed", n))
	if n > 0 {
		slog.Warn("stale assessments marked failed", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	}
	return n
}
