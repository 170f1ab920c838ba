package pipeline

import (
	"context"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/schema"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

const partialTechnicalDetails = "Detailed parsing unavailable"

var (
	technicalDepthText = newTextScore(`technical\s+depth`)
	problemSolvingText = newTextScore(`problem\s+solving`)
)

// TechnicalAssessor scores technical skills against the required skills.
type TechnicalAssessor struct {
	validator RecordValidator
}

func NewTechnicalAssessor(v RecordValidator) *TechnicalAssessor {
	return &TechnicalAssessor{validator: v}
}

func (a *TechnicalAssessor) Name() string { return "technical_assessment" }

func (a *TechnicalAssessor) Assess(ctx context.Context, st *domain.RunState, gen Generator) {
	stageSpec[domain.TechnicalAssessment]{
		name:       a.Name(),
		label:      labelTechnical,
		schema:     schema.Technical,
		prompt:     technicalPrompt,
		fromFields: technicalFromFields,
		fromText:   technicalFromText,
		neutral:    neutralTechnical,
		store: func(st *domain.RunState, r domain.TechnicalAssessment) {
			st.Technical = &r
			st.TechnicalScore = &r.OverallScore
		},
	}.assess(ctx, st, gen, a.validator)
}

func technicalFromFields(f map[string]any) domain.TechnicalAssessment {
	overall := numOr(f, "overall_score", partialScore)
	skills, ok := skillMap(f, "skill_matches")
	if !ok {
		skills = map[string]float64{defaultSkillMatch: overall}
	}
	return domain.TechnicalAssessment{
		OverallScore:   overall,
		SkillMatches:   skills,
		TechnicalDepth: numOr(f, "technical_depth", partialScore),
		ProblemSolving: numOr(f, "problem_solving", partialScore),
		Evidence:       strList(f, "evidence", listOf(partialEvidence)),
		GapsIdentified: strList(f, "gaps_identified", listOf(partialTechnicalDetails)),
		Strengths:      strList(f, "strengths", listOf(partialTechnicalDetails)),
	}
}

func technicalFromText(text string) domain.TechnicalAssessment {
	overall := overallText.find(text, partialScore)
	return domain.TechnicalAssessment{
		OverallScore:   overall,
		SkillMatches:   map[string]float64{defaultSkillMatch: overall},
		TechnicalDepth: technicalDepthText.find(text, partialScore),
		ProblemSolving: problemSolvingText.find(text, partialScore),
		Evidence:       listOf(textEvidence),
		GapsIdentified: listOf(textDetails),
		Strengths:      listOf(textDetails),
	}
}

func neutralTechnical() domain.TechnicalAssessment {
	return domain.TechnicalAssessment{
		OverallScore:   neutralScore,
		SkillMatches:   map[string]float64{},
		TechnicalDepth: neutralScore,
		ProblemSolving: neutralScore,
		Evidence:       []string{},
		GapsIdentified: []string{},
		Strengths:      []string{},
	}
}
