package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/schema"
	"github.com/fairyhunter13/ai-interview-assessor/internal/config"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

func newTestController(gen Generator, opts ...Option) *Controller {
	base := []Option{WithValidator(schema.MustNewValidator()), WithClock(fixedClock())}
	return NewController(gen, append(base, opts...)...)
}

func TestNext_LinearOrder(t *testing.T) {
	t.Parallel()

	st := &domain.RunState{}
	order := []StageID{
		StagePreprocessing, StageTechnical, StageBehavioral, StageExperience, StageCultural,
		StageScoring, StageReportGeneration, StageQualityAssurance,
	}
	for i := 0; i < len(order)-1; i++ {
		assert.Equal(t, order[i+1], Next(st, order[i], 3), order[i].String())
	}
	assert.Equal(t, StageEnd, Next(st, StageFinalize, 3))
	assert.Equal(t, StageEnd, Next(st, StageEnd, 3))
}

func TestNext_QualityBranch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		passed       bool
		attempts     int
		max          int
		want         StageID
		wantAttempts int
	}{
		{"passed finalizes", true, 0, 3, StageFinalize, 0},
		{"failed with attempts left regenerates", false, 0, 3, StageReportGeneration, 1},
		{"failed on last attempt regenerates", false, 2, 3, StageReportGeneration, 3},
		{"failed with no attempts left finalizes", false, 3, 3, StageFinalize, 3},
		{"zero max never regenerates", false, 0, 0, StageFinalize, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := &domain.RunState{QualityCheckPassed: tt.passed, RegenerationAttempts: tt.attempts}
			assert.Equal(t, tt.want, Next(st, StageQualityAssurance, tt.max))
			assert.Equal(t, tt.wantAttempts, st.RegenerationAttempts)
		})
	}
}

func TestStageID_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "quality_assurance", StageQualityAssurance.String())
	assert.Equal(t, "end", StageEnd.String())
	assert.Equal(t, "stage(42)", StageID(42).String())
}

func TestController_HappyPath(t *testing.T) {
	t.Parallel()

	gen := newScriptedGen(happyAnswers())
	c := newTestController(gen)

	res, err := c.RunAssessment(context.Background(), sampleRequest())
	require.NoError(t, err)

	require.NotNil(t, res.FinalScore)
	assert.InDelta(t, 78.0, *res.FinalScore, 1e-9)
	assert.Equal(t, domain.DecisionConditional, res.Decision)
	assert.Equal(t, 9.0, *res.TechnicalScore)
	assert.Equal(t, 8.0, *res.BehavioralScore)
	assert.Equal(t, 7.0, *res.ExperienceScore)
	assert.Equal(t, 6.0, *res.CulturalScore)
	assert.Equal(t, goodReport, res.GeneratedReport)
	assert.True(t, res.QualityCheckPassed)
	assert.True(t, res.ProcessingComplete)
	assert.Empty(t, res.ProcessingErrors)
	assert.Zero(t, res.RegenerationAttempts)
	require.NotNil(t, res.FinishedAt)
	assert.Equal(t, fixedClock()(), *res.FinishedAt)

	for _, k := range []string{kindResume, kindTechnical, kindBehavioral, kindExperience, kindCultural, kindReport} {
		assert.Equal(t, 1, gen.calls(k), k)
	}
}

func TestController_RunCountsSteps(t *testing.T) {
	t.Parallel()

	st, err := newTestController(newScriptedGen(happyAnswers())).Run(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 9, st.Steps)
	require.NotNil(t, st.StructuredTranscript)
	assert.Len(t, st.StructuredTranscript.CandidateResponses, 2)
	assert.Equal(t, []string{"Python", "SQL"}, st.ParsedResume.Skills)
}

func TestController_SelectedAtBoundary(t *testing.T) {
	t.Parallel()

	answers := happyAnswers()
	for _, k := range []string{kindTechnical, kindBehavioral, kindExperience, kindCultural} {
		answers[k] = text(`{"overall_score": 8.5}`)
	}
	answers[kindReport] = text(strings.Replace(goodReport, "CONDITIONAL", "SELECTED", 1))

	res, err := newTestController(newScriptedGen(answers)).RunAssessment(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.InDelta(t, 85.0, *res.FinalScore, 1e-9)
	assert.Equal(t, domain.DecisionSelected, res.Decision)
}

func TestController_EveryGenerationFails(t *testing.T) {
	t.Parallel()

	gen := newScriptedGen(nil)
	gen.fallback = ai.Generation{Err: errors.New("provider unavailable")}

	res, err := newTestController(gen).RunAssessment(context.Background(), sampleRequest())
	require.NoError(t, err)

	for _, s := range []*float64{res.TechnicalScore, res.BehavioralScore, res.ExperienceScore, res.CulturalScore} {
		require.NotNil(t, s)
		assert.Equal(t, 5.0, *s)
	}
	assert.InDelta(t, 50.0, *res.FinalScore, 1e-9)
	assert.Equal(t, domain.DecisionRejected, res.Decision)
	assert.Empty(t, res.GeneratedReport)
	assert.True(t, res.ProcessingComplete)
	assert.True(t, res.QualityCheckPassed)
	assert.Equal(t, []string{
		"Technical assessment: provider unavailable",
		"Behavioral assessment: provider unavailable",
		"Experience assessment: provider unavailable",
		"Cultural fit assessment: provider unavailable",
		"Report generation: provider unavailable",
	}, res.ProcessingErrors)
}

func TestController_RegenerationLoopIsBounded(t *testing.T) {
	t.Parallel()

	answers := happyAnswers()
	answers[kindReport] = text("# Report for [Candidate Name]")
	gen := newScriptedGen(answers)
	c := newTestController(gen, WithAuditThresholds(8, 100))

	st, err := c.Run(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, 3, st.RegenerationAttempts)
	assert.Equal(t, 4, gen.calls(kindReport))
	assert.Equal(t, 15, st.Steps)
	assert.False(t, st.QualityCheckPassed)
	assert.True(t, st.ProcessingComplete)
	assert.Equal(t, []string{
		IssueTemplateCompletion, IssueTemplateCompletion, IssueTemplateCompletion, IssueTemplateCompletion,
	}, st.ProcessingErrors)
}

func TestController_RegenerationStopsOncePassed(t *testing.T) {
	t.Parallel()

	var calls int
	var mu sync.Mutex
	gen := generatorFunc(func(ctx context.Context, prompt string) ai.Generation {
		if promptKind(prompt) != kindReport {
			return happyAnswers()[promptKind(prompt)]
		}
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return text("draft for [Candidate Name]")
		}
		return text(goodReport)
	})

	st, err := newTestController(gen, WithAuditThresholds(8, 100)).Run(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, st.RegenerationAttempts)
	assert.True(t, st.QualityCheckPassed)
	assert.Equal(t, goodReport, st.GeneratedReport)
	assert.Len(t, st.ProcessingErrors, 2)
}

func TestController_StepLimit(t *testing.T) {
	t.Parallel()

	gen := newScriptedGen(happyAnswers())
	st, err := newTestController(gen, WithStepLimit(5)).Run(context.Background(), sampleRequest())

	require.ErrorIs(t, err, domain.ErrStepLimit)
	require.NotNil(t, st)
	assert.Equal(t, 5, st.Steps)
	assert.False(t, st.ProcessingComplete)
	assert.Nil(t, st.FinalScore)
	assert.Zero(t, gen.calls(kindReport))

	res, err := newTestController(gen, WithStepLimit(5)).RunAssessment(context.Background(), sampleRequest())
	require.ErrorIs(t, err, domain.ErrStepLimit)
	assert.False(t, res.ProcessingComplete)
}

func TestController_StepLimitStopsRunawayRegeneration(t *testing.T) {
	t.Parallel()

	answers := happyAnswers()
	answers[kindReport] = text("# Report for [Candidate Name]")
	c := newTestController(newScriptedGen(answers),
		WithPipelineConfig(config.PipelineConfig{MaxRegenerationAttempts: 4, StepLimit: 15, QAPassThreshold: 8, QAScoreMax: 100}))

	st, err := c.Run(context.Background(), sampleRequest())
	require.ErrorIs(t, err, domain.ErrStepLimit)
	assert.Equal(t, 15, st.Steps)
}

func TestController_LongestPathFitsMinStepLimit(t *testing.T) {
	t.Parallel()

	for _, attempts := range []int{0, 1, 3, 5} {
		answers := happyAnswers()
		answers[kindReport] = text("# Report for [Candidate Name]")
		c := newTestController(newScriptedGen(answers), WithPipelineConfig(config.PipelineConfig{
			MaxRegenerationAttempts: attempts,
			StepLimit:               config.MinStepLimit(attempts),
			QAPassThreshold:         8,
			QAScoreMax:              100,
		}))

		st, err := c.Run(context.Background(), sampleRequest())
		require.NoError(t, err, "attempts=%d", attempts)
		assert.Equal(t, config.MinStepLimit(attempts), st.Steps)
		assert.Equal(t, attempts, st.RegenerationAttempts)
	}
}

func TestController_ZeroAttemptsNeverRegenerates(t *testing.T) {
	t.Parallel()

	answers := happyAnswers()
	answers[kindReport] = text("")
	gen := newScriptedGen(answers)

	st, err := newTestController(gen, WithMaxAttempts(0), WithAuditThresholds(8, 100)).Run(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls(kindReport))
	assert.Zero(t, st.RegenerationAttempts)
	assert.True(t, st.ProcessingComplete)
}

func TestController_CancelledContextStillCompletes(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := generatorFunc(func(ctx context.Context, _ string) ai.Generation {
		return ai.Generation{Err: ctx.Err()}
	})

	res, err := newTestController(gen).RunAssessment(ctx, sampleRequest())
	require.NoError(t, err)
	assert.True(t, res.ProcessingComplete)
	assert.Len(t, res.ProcessingErrors, 5)
	assert.Equal(t, domain.DecisionRejected, res.Decision)
}

func TestController_ConcurrentRunsShareNothing(t *testing.T) {
	t.Parallel()

	c := newTestController(newScriptedGen(happyAnswers()))
	var wg sync.WaitGroup
	results := make([]domain.AssessmentResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := sampleRequest()
			req.CandidateID = fmt.Sprintf("cand-%d", i)
			results[i], _ = c.RunAssessment(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("cand-%d", i), r.CandidateID)
		assert.InDelta(t, 78.0, *r.FinalScore, 1e-9)
		assert.Empty(t, r.ProcessingErrors)
	}
}

type generatorFunc func(ctx context.Context, prompt string) ai.Generation

func (f generatorFunc) Generate(ctx context.Context, prompt string) ai.Generation { return f(ctx, prompt) }
