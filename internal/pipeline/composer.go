package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

const reportDateLayout = "2006-01-02"

// Composer renders the markdown report through one generation call.
type Composer struct {
	now func() time.Time
}

// NewComposer builds a Composer; a nil clock uses time.Now.
func NewComposer(now func() time.Time) *Composer {
	if now == nil {
		now = time.Now
	}
	return &Composer{now: now}
}

func (c *Composer) Name() string { return "report_generation" }

// Assess overwrites GeneratedReport. On failure the previous report is kept.
// Regenerations bypass the response cache so a rejected report is not served again.
func (c *Composer) Assess(ctx context.Context, st *domain.RunState, gen Generator) {
	defer func() {
		if r := recover(); r != nil {
			st.AddError(labelReport, fmt.Errorf("%v", r))
		}
	}()

	prompt := reportPrompt(st, c.now().Format(reportDateLayout))
	g := gen.Generate(ai.WithoutCache(ctx), prompt)
	if g.Err != nil {
		obsctx.LoggerFromContext(ctx).Warn("report generation failed",
			slog.String("candidate_id", st.CandidateID),
			slog.Any("error", g.Err))
		st.AddError(labelReport, g.Err)
		return
	}
	st.GeneratedReport = g.Text
}
