package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

// Prompt kinds recognised by scriptedGen.
const (
	kindReport     = "report"
	kindResume     = "resume"
	kindTechnical  = "technical"
	kindBehavioral = "behavioral"
	kindExperience = "experience"
	kindCultural   = "cultural"
)

var promptMarkers = []struct{ kind, marker string }{
	{kindReport, "Generate a comprehensive interview assessment report"},
	{kindResume, "Parse the following resume text"},
	{kindTechnical, "Evaluate the candidate's technical skills"},
	{kindBehavioral, "Evaluate the candidate's behavioral competencies"},
	{kindExperience, "Evaluate the candidate's experience relevance"},
	{kindCultural, "Evaluate the candidate's cultural fit"},
}

func promptKind(prompt string) string {
	for _, m := range promptMarkers {
		if strings.Contains(prompt, m.marker) {
			return m.kind
		}
	}
	return ""
}

// scriptedGen answers by prompt kind and records every prompt it sees.
type scriptedGen struct {
	mu       sync.Mutex
	answers  map[string]ai.Generation
	fallback ai.Generation
	prompts  map[string][]string
}

func newScriptedGen(answers map[string]ai.Generation) *scriptedGen {
	return &scriptedGen{answers: answers, prompts: make(map[string][]string)}
}

func (g *scriptedGen) Generate(_ context.Context, prompt string) ai.Generation {
	kind := promptKind(prompt)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts[kind] = append(g.prompts[kind], prompt)
	if a, ok := g.answers[kind]; ok {
		return a
	}
	return g.fallback
}

func (g *scriptedGen) calls(kind string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts[kind])
}

func (g *scriptedGen) lastPrompt(kind string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.prompts[kind]
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func text(s string) ai.Generation { return ai.Generation{Text: s} }

func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func ptr[T any](v T) *T { return &v }

const sampleTranscript = `[00:00:01] Interviewer: Tell me about your Python experience.
[00:00:09] Candidate: I have worked with Python for five years on data pipelines.
Interviewer: How do you handle disagreements in a team?
User: I listen first and look for a compromise.
This line has no speaker tag: ignored
no colon here`

func sampleRequest() domain.AssessmentRequest {
	return domain.AssessmentRequest{
		CandidateID:   "cand-1",
		CandidateName: "Ada Lovelace",
		Transcript:    sampleTranscript,
		ResumeText:    "Ada Lovelace. Skills: Python, SQL.",
		JobDescription: domain.JobDescription{
			Title:       "Data Engineer",
			Description: "Build pipelines.",
			Aspects: []domain.Aspect{
				{Name: "Tech", FocusAreas: []string{"Python", "SQL"}},
				{Name: "Cloud", FocusAreas: []string{"AWS"}},
			},
		},
		ReportTemplate: domain.ReportTemplate{Name: "Acme Corp", Content: "# Report for [Candidate Name]\nDate: [Date]"},
	}
}

const (
	technicalJSON  = `{"overall_score": 9, "skill_matches": {"Python": 9, "SQL": 8}, "technical_depth": 8, "problem_solving": 9, "evidence": ["five years of Python"], "gaps_identified": ["AWS"], "strengths": ["pipelines"]}`
	behavioralJSON = "```json\n{\"overall_score\": 8, \"communication_clarity\": 8, \"leadership_indicators\": 7, \"teamwork_ability\": 9, \"problem_solving_approach\": 8, \"evidence\": [\"listens first\"], \"improvement_areas\": [\"delegation\"]}\n```"
	experienceJSON = `Here you go: {"overall_score": 7, "role_alignment": 8, "experience_depth": 7, "career_progression": 6, "relevant_projects": ["ETL"], "experience_gaps": [], "evidence": ["data pipelines"]} hope it helps`
	culturalJSON   = `{"overall_score": 6, "value_alignment": 6, "adaptability": 7, "growth_mindset": 6, "cultural_integration_potential": 6, "evidence": ["compromise"], "recommendations": ["mentoring"]}`
	resumeJSON     = `{"skills": ["Python", "SQL"], "experience": [{"role": "Engineer", "company": "Analytical Engines", "duration": "5 years", "responsibilities": ["pipelines"]}], "education": [{"degree": "BSc", "institution": "London", "year": 1835}], "certifications": [], "key_achievements": ["first program"]}`
	goodReport     = "# Report for Ada Lovelace\nDate: 2024-03-15\n\nAda Lovelace shows strong technical depth in Python and a collaborative working style. Final score 78/100, decision CONDITIONAL."
)

func happyAnswers() map[string]ai.Generation {
	return map[string]ai.Generation{
		kindResume:     text(resumeJSON),
		kindTechnical:  text(technicalJSON),
		kindBehavioral: text(behavioralJSON),
		kindExperience: text(experienceJSON),
		kindCultural:   text(culturalJSON),
		kindReport:     text(goodReport),
	}
}
