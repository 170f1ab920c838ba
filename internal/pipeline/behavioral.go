package pipeline

import (
	"context"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/schema"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

const partialLeadershipScore = 6.0

var (
	communicationText = newTextScore(`communication`)
	teamworkText      = newTextScore(`teamwork`)
)

// BehavioralAssessor scores behavioral competencies from all candidate responses.
type BehavioralAssessor struct {
	validator RecordValidator
}

func NewBehavioralAssessor(v RecordValidator) *BehavioralAssessor {
	return &BehavioralAssessor{validator: v}
}

func (a *BehavioralAssessor) Name() string { return "behavioral_assessment" }

func (a *BehavioralAssessor) Assess(ctx context.Context, st *domain.RunState, gen Generator) {
	stageSpec[domain.BehavioralAssessment]{
		name:       a.Name(),
		label:      labelBehavioral,
		schema:     schema.Behavioral,
		prompt:     behavioralPrompt,
		fromFields: behavioralFromFields,
		fromText:   behavioralFromText,
		neutral:    neutralBehavioral,
		store: func(st *domain.RunState, r domain.BehavioralAssessment) {
			st.Behavioral = &r
			st.BehavioralScore = &r.OverallScore
		},
	}.assess(ctx, st, gen, a.validator)
}

func behavioralFromFields(f map[string]any) domain.BehavioralAssessment {
	return domain.BehavioralAssessment{
		OverallScore:           numOr(f, "overall_score", partialScore),
		CommunicationClarity:   numOr(f, "communication_clarity", partialScore),
		LeadershipIndicators:   numOr(f, "leadership_indicators", partialLeadershipScore),
		TeamworkAbility:        numOr(f, "teamwork_ability", partialScore),
		ProblemSolvingApproach: numOr(f, "problem_solving_approach", partialScore),
		Evidence:               strList(f, "evidence", listOf(partialEvidence)),
		ImprovementAreas:       strList(f, "improvement_areas", listOf(partialDetails)),
	}
}

func behavioralFromText(text string) domain.BehavioralAssessment {
	overall := overallText.find(text, partialScore)
	return domain.BehavioralAssessment{
		OverallScore:           overall,
		CommunicationClarity:   communicationText.find(text, partialScore),
		LeadershipIndicators:   overall,
		TeamworkAbility:        teamworkText.find(text, partialScore),
		ProblemSolvingApproach: overall,
		Evidence:               listOf(textEvidence),
		ImprovementAreas:       listOf(textDetails),
	}
}

func neutralBehavioral() domain.BehavioralAssessment {
	return domain.BehavioralAssessment{
		OverallScore:           neutralScore,
		CommunicationClarity:   neutralScore,
		LeadershipIndicators:   neutralScore,
		TeamworkAbility:        neutralScore,
		ProblemSolvingApproach: neutralScore,
		Evidence:               []string{},
		ImprovementAreas:       []string{},
	}
}
