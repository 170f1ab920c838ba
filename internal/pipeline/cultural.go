package pipeline

import (
	"context"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/schema"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

var (
	valueAlignmentText = newTextScore(`value\s+alignment`)
	adaptabilityText   = newTextScore(`adaptability`)
)

// CulturalAssessor scores cultural fit against the organization named by the report template.
type CulturalAssessor struct {
	validator RecordValidator
}

func NewCulturalAssessor(v RecordValidator) *CulturalAssessor {
	return &CulturalAssessor{validator: v}
}

func (a *CulturalAssessor) Name() string { return "cultural_assessment" }

func (a *CulturalAssessor) Assess(ctx context.Context, st *domain.RunState, gen Generator) {
	stageSpec[domain.CulturalAssessment]{
		name:       a.Name(),
		label:      labelCultural,
		schema:     schema.Cultural,
		prompt:     culturalPrompt,
		fromFields: culturalFromFields,
		fromText:   culturalFromText,
		neutral:    neutralCultural,
		store: func(st *domain.RunState, r domain.CulturalAssessment) {
			st.Cultural = &r
			st.CulturalScore = &r.OverallScore
		},
	}.assess(ctx, st, gen, a.validator)
}

func culturalFromFields(f map[string]any) domain.CulturalAssessment {
	return domain.CulturalAssessment{
		OverallScore:                 numOr(f, "overall_score", partialScore),
		ValueAlignment:               numOr(f, "value_alignment", partialScore),
		Adaptability:                 numOr(f, "adaptability", partialScore),
		GrowthMindset:                numOr(f, "growth_mindset", partialScore),
		CulturalIntegrationPotential: numOr(f, "cultural_integration_potential", partialScore),
		Evidence:                     strList(f, "evidence", listOf(partialEvidence)),
		Recommendations:              strList(f, "recommendations", listOf(partialDetails)),
	}
}

func culturalFromText(text string) domain.CulturalAssessment {
	overall := overallText.find(text, partialScore)
	return domain.CulturalAssessment{
		OverallScore:                 overall,
		ValueAlignment:               valueAlignmentText.find(text, partialScore),
		Adaptability:                 adaptabilityText.find(text, partialScore),
		GrowthMindset:                overall,
		CulturalIntegrationPotential: overall,
		Evidence:                     listOf(textEvidence),
		Recommendations:              listOf(textDetails),
	}
}

func neutralCultural() domain.CulturalAssessment {
	return domain.CulturalAssessment{
		OverallScore:                 neutralScore,
		ValueAlignment:               neutralScore,
		Adaptability:                 neutralScore,
		GrowthMindset:                neutralScore,
		CulturalIntegrationPotential: neutralScore,
		Evidence:                     []string{},
		Recommendations:              []string{},
	}
}
