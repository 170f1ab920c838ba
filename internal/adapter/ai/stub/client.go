// Package stub provides a deterministic offline text generator for local runs and tests.
package stub

import (
	"regexp"
	"strings"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

var candidateNameLine = regexp.MustCompile(`(?m)^Candidate Name:\s*(.+)$`)

// Canned answers keyed by the instruction each pipeline prompt opens with.
var answers = []struct {
	marker string
	body   string
}{
	{"Parse the following resume text", `{"skills": ["Go", "SQL", "Kafka"], "experience": [{"role": "Backend Engineer", "company": "Example Ltd", "duration": "3 years", "responsibilities": ["Built data pipelines"]}], "education": [{"degree": "BSc Computer Science", "institution": "State University", "year": "2018"}], "certifications": [], "key_achievements": ["Cut batch runtime by half"]}`},
	{"Evaluate the candidate's technical skills", `{"overall_score": 8, "skill_matches": {"go": 8, "sql": 7}, "technical_depth": 8, "problem_solving": 7, "evidence": ["Explained partitioning trade-offs"], "gaps_identified": ["Limited frontend exposure"], "strengths": ["Distributed systems"]}`},
	{"Evaluate the candidate's behavioral competencies", `{"overall_score": 7, "communication_clarity": 8, "leadership_indicators": 6, "teamwork_ability": 7, "problem_solving_approach": 7, "evidence": ["Described resolving an on-call incident with peers"], "improvement_areas": ["Delegation"]}`},
	{"Evaluate the candidate's experience relevance", `{"overall_score": 7, "role_alignment": 8, "experience_depth": 7, "career_progression": 6, "relevant_projects": ["Streaming ingestion service"], "experience_gaps": ["No people management"], "evidence": ["Three years on backend data systems"]}`},
	{"Evaluate the candidate's cultural fit", `{"overall_score": 7, "value_alignment": 7, "adaptability": 8, "growth_mindset": 8, "cultural_integration_potential": 7, "evidence": ["Mentions learning from postmortems"], "recommendations": ["Pair with a senior mentor"]}`},
}

// Client returns fixed, well-formed answers without calling any model.
type Client struct{}

// New returns a stub client.
func New() *Client { return &Client{} }

// Generate answers stage prompts with canned JSON and report prompts with a short
// markdown report naming the candidate found in the prompt.
func (c *Client) Generate(ctx domain.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.Contains(prompt, "Generate a comprehensive interview assessment report") {
		return report(prompt), nil
	}
	for _, a := range answers {
		if strings.Contains(prompt, a.marker) {
			return a.body, nil
		}
	}
	return "{}", nil
}

func report(prompt string) string {
	name := "Candidate"
	if m := candidateNameLine.FindStringSubmatch(prompt); m != nil {
		name = strings.TrimSpace(m[1])
	}
	var b strings.Builder
	b.WriteString("# Interview Assessment: " + name + "\n\n")
	b.WriteString("## Summary\n\n")
	b.WriteString(name + " showed solid backend fundamentals and communicated trade-offs clearly. ")
	b.WriteString("Technical depth was the strongest area; leadership evidence was limited.\n\n")
	b.WriteString("## Recommendation\n\nProceed to the next round with a focus on system design ownership.\n")
	return b.String()
}
