package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

// Decision band lower bounds on the 0-100 scale.
const (
	selectedFloor    = 85.0
	conditionalFloor = 70.0
	underReviewFloor = 55.0
)

// Scorer combines the four stage scores into the final score and decision.
type Scorer struct{}

func (Scorer) Name() string { return "scoring" }

// Assess runs Score; the generator is unused.
func (s Scorer) Assess(ctx context.Context, st *domain.RunState, _ Generator) {
	s.Score(st)
	if st.FinalScore != nil {
		obsctx.LoggerFromContext(ctx).Info("final score computed",
			slog.String("candidate_id", st.CandidateID),
			slog.Float64("final_score", *st.FinalScore),
			slog.String("decision", string(st.Decision)))
	}
}

// Score sets FinalScore and Decision together. Missing stage scores count as 0.
func (Scorer) Score(st *domain.RunState) {
	defer func() {
		if r := recover(); r != nil {
			st.AddError(labelScoring, fmt.Errorf("%v", r))
		}
	}()

	final := WeightedScore(st.TechnicalScore, st.BehavioralScore, st.ExperienceScore, st.CulturalScore)
	decision := Decide(final)
	st.FinalScore = &final
	st.Decision = decision
}

// WeightedScore is round1((t*0.35 + b*0.25 + e*0.25 + c*0.15) * 10).
func WeightedScore(technical, behavioral, experience, cultural *float64) float64 {
	sum := orZero(technical)*weightTechnical +
		orZero(behavioral)*weightBehavioral +
		orZero(experience)*weightExperience +
		orZero(cultural)*weightCultural
	return round1(sum * 10)
}

// Decide maps a final score to its band.
func Decide(score float64) domain.Decision {
	switch {
	case score >= selectedFloor:
		return domain.DecisionSelected
	case score >= conditionalFloor:
		return domain.DecisionConditional
	case score >= underReviewFloor:
		return domain.DecisionUnderReview
	default:
		return domain.DecisionRejected
	}
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
