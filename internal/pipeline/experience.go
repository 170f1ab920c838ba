package pipeline

import (
	"context"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/schema"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

var (
	roleAlignmentText   = newTextScore(`role\s+alignment`)
	experienceDepthText = newTextScore(`experience\s+depth`)
)

// ExperienceAssessor scores how relevant past roles are to the position.
type ExperienceAssessor struct {
	validator RecordValidator
}

func NewExperienceAssessor(v RecordValidator) *ExperienceAssessor {
	return &ExperienceAssessor{validator: v}
}

func (a *ExperienceAssessor) Name() string { return "experience_assessment" }

func (a *ExperienceAssessor) Assess(ctx context.Context, st *domain.RunState, gen Generator) {
	stageSpec[domain.ExperienceAssessment]{
		name:       a.Name(),
		label:      labelExperience,
		schema:     schema.Experience,
		prompt:     experiencePrompt,
		fromFields: experienceFromFields,
		fromText:   experienceFromText,
		neutral:    neutralExperience,
		store: func(st *domain.RunState, r domain.ExperienceAssessment) {
			st.Experience = &r
			st.ExperienceScore = &r.OverallScore
		},
	}.assess(ctx, st, gen, a.validator)
}

func experienceFromFields(f map[string]any) domain.ExperienceAssessment {
	return domain.ExperienceAssessment{
		OverallScore:      numOr(f, "overall_score", partialScore),
		RoleAlignment:     numOr(f, "role_alignment", partialScore),
		ExperienceDepth:   numOr(f, "experience_depth", partialScore),
		CareerProgression: numOr(f, "career_progression", partialScore),
		RelevantProjects:  strList(f, "relevant_projects", listOf(partialDetails)),
		ExperienceGaps:    strList(f, "experience_gaps", listOf(partialDetails)),
		Evidence:          strList(f, "evidence", listOf(partialEvidence)),
	}
}

func experienceFromText(text string) domain.ExperienceAssessment {
	overall := overallText.find(text, partialScore)
	return domain.ExperienceAssessment{
		OverallScore:      overall,
		RoleAlignment:     roleAlignmentText.find(text, partialScore),
		ExperienceDepth:   experienceDepthText.find(text, partialScore),
		CareerProgression: overall,
		RelevantProjects:  listOf(textDetails),
		ExperienceGaps:    listOf(textDetails),
		Evidence:          listOf(textEvidence),
	}
}

func neutralExperience() domain.ExperienceAssessment {
	return domain.ExperienceAssessment{
		OverallScore:      neutralScore,
		RoleAlignment:     neutralScore,
		ExperienceDepth:   neutralScore,
		CareerProgression: neutralScore,
		RelevantProjects:  []string{},
		ExperienceGaps:    []string{},
		Evidence:          []string{},
	}
}
