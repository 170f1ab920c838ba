package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/config"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

// StageID names a node of the assessment graph.
type StageID int

const (
	StagePreprocessing StageID = iota
	StageTechnical
	StageBehavioral
	StageExperience
	StageCultural
	StageScoring
	StageReportGeneration
	StageQualityAssurance
	StageFinalize
	StageEnd
)

var stageNames = [...]string{
	StagePreprocessing:    "preprocessing",
	StageTechnical:        "technical_assessment",
	StageBehavioral:       "behavioral_assessment",
	StageExperience:       "experience_assessment",
	StageCultural:         "cultural_assessment",
	StageScoring:          "scoring",
	StageReportGeneration: "report_generation",
	StageQualityAssurance: "quality_assurance",
	StageFinalize:         "finalize",
	StageEnd:              "end",
}

func (s StageID) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Controller defaults.
const (
	DefaultMaxRegenerationAttempts = 3
	DefaultStepLimit               = 15
)

// Next is the transition function. The only branch follows quality assurance:
// a failed audit with attempts left increments the counter and loops back to
// report generation.
func Next(st *domain.RunState, current StageID, maxAttempts int) StageID {
	switch current {
	case StagePreprocessing:
		return StageTechnical
	case StageTechnical:
		return StageBehavioral
	case StageBehavioral:
		return StageExperience
	case StageExperience:
		return StageCultural
	case StageCultural:
		return StageScoring
	case StageScoring:
		return StageReportGeneration
	case StageReportGeneration:
		return StageQualityAssurance
	case StageQualityAssurance:
		if !st.QualityCheckPassed && st.RegenerationAttempts < maxAttempts {
			st.RegenerationAttempts++
			return StageReportGeneration
		}
		return StageFinalize
	default:
		return StageEnd
	}
}

// Controller runs the stages in graph order for one request at a time.
// It holds no per-run state and is safe for concurrent use.
type Controller struct {
	gen           Generator
	validator     RecordValidator
	now           func() time.Time
	truncate      func(string) string
	maxAttempts   int
	stepLimit     int
	passThreshold float64
	scoreMax      float64
	tracer        trace.Tracer
	stages        map[StageID]Stage
}

// Option configures a Controller.
type Option func(*Controller)

// WithValidator checks stage records against their schemas before mapping.
func WithValidator(v RecordValidator) Option {
	return func(c *Controller) { c.validator = v }
}

// WithClock replaces time.Now for timestamps and the report date.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTruncate bounds transcript and resume text before they are prompted.
func WithTruncate(fn func(string) string) Option {
	return func(c *Controller) { c.truncate = fn }
}

// WithMaxAttempts caps report regenerations; negative values are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.maxAttempts = n
		}
	}
}

// WithStepLimit caps executed stages per run; non-positive values are ignored.
func WithStepLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.stepLimit = n
		}
	}
}

// WithAuditThresholds sets the quality pass threshold and the accepted stage score range.
func WithAuditThresholds(passThreshold, scoreMax float64) Option {
	return func(c *Controller) {
		c.passThreshold = passThreshold
		c.scoreMax = scoreMax
	}
}

// WithPipelineConfig applies the env-driven pipeline settings.
func WithPipelineConfig(pc config.PipelineConfig) Option {
	return func(c *Controller) {
		WithMaxAttempts(pc.MaxRegenerationAttempts)(c)
		WithStepLimit(pc.StepLimit)(c)
		WithAuditThresholds(pc.QAPassThreshold, pc.QAScoreMax)(c)
	}
}

// NewController wires the stages around gen.
func NewController(gen Generator, opts ...Option) *Controller {
	c := &Controller{
		gen:         gen,
		now:         time.Now,
		maxAttempts: DefaultMaxRegenerationAttempts,
		stepLimit:   DefaultStepLimit,
		tracer:      otel.Tracer("pipeline"),
	}
	for _, o := range opts {
		o(c)
	}
	c.stages = map[StageID]Stage{
		StagePreprocessing:    NewPreprocessor(c.validator, c.truncate),
		StageTechnical:        NewTechnicalAssessor(c.validator),
		StageBehavioral:       NewBehavioralAssessor(c.validator),
		StageExperience:       NewExperienceAssessor(c.validator),
		StageCultural:         NewCulturalAssessor(c.validator),
		StageScoring:          Scorer{},
		StageReportGeneration: NewComposer(c.now),
		StageQualityAssurance: NewAuditor(c.passThreshold, c.scoreMax),
	}
	return c
}

// Run executes one assessment. The returned state is never nil; the error is
// non-nil only when the step limit is exceeded.
func (c *Controller) Run(ctx context.Context, in Input) (*domain.RunState, error) {
	st := domain.NewRunState(in, c.now())
	log := obsctx.LoggerFromContext(ctx).With(slog.String("candidate_id", st.CandidateID))
	log.Info("assessment started")

	for id := StagePreprocessing; id != StageEnd; id = Next(st, id, c.maxAttempts) {
		if st.Steps >= c.stepLimit {
			log.Error("step limit exceeded", slog.Int("steps", st.Steps), slog.String("next_stage", id.String()))
			return st, fmt.Errorf("op=pipeline.run: next stage %s after %d steps: %w", id, st.Steps, domain.ErrStepLimit)
		}
		st.Steps++
		c.execute(ctx, st, id)
	}

	observability.ObserveAssessment(orZero(st.FinalScore), string(st.Decision), st.RegenerationAttempts)
	log.Info("assessment finished",
		slog.Float64("final_score", orZero(st.FinalScore)),
		slog.String("decision", string(st.Decision)),
		slog.Int("regeneration_attempts", st.RegenerationAttempts),
		slog.Int("processing_errors", len(st.ProcessingErrors)))
	return st, nil
}

// RunAssessment runs the pipeline and returns the outward result.
func (c *Controller) RunAssessment(ctx context.Context, in Input) (domain.AssessmentResult, error) {
	st, err := c.Run(ctx, in)
	return st.Result(), err
}

func (c *Controller) execute(ctx context.Context, st *domain.RunState, id StageID) {
	ctx, span := c.tracer.Start(ctx, "pipeline."+id.String())
	defer span.End()
	span.SetAttributes(
		attribute.String("candidate_id", st.CandidateID),
		attribute.Int("step", st.Steps),
		attribute.Int("regeneration_attempts", st.RegenerationAttempts),
	)

	start := time.Now()
	before := len(st.ProcessingErrors)
	if id == StageFinalize {
		end := c.now()
		st.ProcessingComplete = true
		st.ProcessingEndTime = &end
	} else if stage, ok := c.stages[id]; ok {
		stage.Assess(ctx, st, c.gen)
	}
	added := len(st.ProcessingErrors) - before

	observability.ObserveStage(id.String(), time.Since(start), added)
	if added > 0 {
		span.SetStatus(codes.Error, st.ProcessingErrors[len(st.ProcessingErrors)-1])
	}
}
