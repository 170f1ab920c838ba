package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	"github.com/fairyhunter13/ai-interview-assessor/pkg/textx"
)

const defaultOrganization = "Professional Organization"

var (
	technicalKeywords  = []string{"python", "programming", "code", "algorithm", "technical", "software", "development"}
	experienceKeywords = []string{"experience", "worked", "project", "role", "responsibility", "achievement"}
)

// Report weights, as printed in the composer prompt.
const (
	weightTechnical  = 0.35
	weightBehavioral = 0.25
	weightExperience = 0.25
	weightCultural   = 0.15
)

func resumePrompt(resume string) string {
	return fmt.Sprintf(`Parse the following resume text and extract structured information:

Resume Text:
%s

Extract and return a JSON object with the following structure:
{
  "skills": ["skill1", "skill2"],
  "experience": [
    {"role": "Job Title", "company": "Company Name", "duration": "Years", "responsibilities": ["responsibility1"]}
  ],
  "education": [
    {"degree": "Degree Name", "institution": "School Name", "year": "Year"}
  ],
  "certifications": ["cert1"],
  "key_achievements": ["achievement1"]
}

Return only the JSON object, no additional text.`, resume)
}

func technicalPrompt(st *domain.RunState) string {
	req := jobRequirements(st)
	return fmt.Sprintf(`Evaluate the candidate's technical skills based on the following data:

Job Requirements:
Title: %s
Required Skills: %s

Candidate Resume Skills:
%s

Interview Technical Responses:
%s

Provide a detailed technical assessment with scores (1-10 scale):

1. Overall Technical Score (1-10)
2. Skill Match Analysis (for each required skill, rate 1-10)
3. Technical Depth (1-10)
4. Problem Solving Ability (1-10)
5. Evidence from transcript (specific quotes)
6. Identified skill gaps
7. Technical strengths

Return response in JSON format:
{
  "overall_score": 8.5,
  "skill_matches": {"Python": 9.0, "Finance": 6.0},
  "technical_depth": 7.5,
  "problem_solving": 8.0,
  "evidence": ["Quote from interview showing technical knowledge"],
  "gaps_identified": ["Missing skill 1", "Needs improvement in skill 2"],
  "strengths": ["Strong in skill 1", "Excellent problem-solving approach"]
}`,
		req.Title,
		strings.Join(req.RequiredSkills, ", "),
		strings.Join(parsedResume(st).Skills, ", "),
		strings.Join(textx.FilterContaining(candidateResponses(st), technicalKeywords), "\n"),
	)
}

func behavioralPrompt(st *domain.RunState) string {
	return fmt.Sprintf(`Evaluate the candidate's behavioral competencies based on their interview responses:

Job Title: %s

Candidate Responses:
%s

Assess the following behavioral competencies (1-10 scale):

1. Communication Clarity - How clearly does the candidate express ideas?
2. Leadership Indicators - Evidence of leadership potential or experience
3. Teamwork Ability - Collaboration and interpersonal skills
4. Problem-Solving Approach - Methodology and critical thinking
5. Overall Behavioral Score

Provide specific evidence from the responses and identify areas for improvement.

Return JSON format:
{
  "overall_score": 8.0,
  "communication_clarity": 8.5,
  "leadership_indicators": 7.0,
  "teamwork_ability": 8.0,
  "problem_solving_approach": 7.5,
  "evidence": ["Specific quotes showing behavioral competencies"],
  "improvement_areas": ["Areas needing development"]
}`,
		jobRequirements(st).Title,
		strings.Join(candidateResponses(st), "\n"),
	)
}

func experiencePrompt(st *domain.RunState) string {
	req := jobRequirements(st)
	return fmt.Sprintf(`Evaluate the candidate's experience relevance for the following role:

Job Title: %s
Job Description: %s
Required Skills: %s

Candidate Experience:
%s

Interview Experience Discussion:
%s

Assess the following (1-10 scale):
1. Role Alignment - How well previous roles align with current position
2. Experience Depth - Quality and depth of relevant experience
3. Career Progression - Growth pattern and advancement
4. Relevant Projects - Specific projects that match job requirements
5. Overall Experience Score

Identify experience gaps and provide evidence from transcript.

Return JSON format:
{
  "overall_score": 7.5,
  "role_alignment": 8.0,
  "experience_depth": 7.0,
  "career_progression": 8.0,
  "relevant_projects": ["Project 1", "Project 2"],
  "experience_gaps": ["Gap 1", "Gap 2"],
  "evidence": ["Quotes from interview about experience"]
}`,
		req.Title,
		req.Description,
		strings.Join(req.RequiredSkills, ", "),
		indentJSON(parsedResume(st).Experience),
		strings.Join(textx.FilterContaining(candidateResponses(st), experienceKeywords), "\n"),
	)
}

func culturalPrompt(st *domain.RunState) string {
	org := st.ReportTemplate.Name
	if strings.TrimSpace(org) == "" {
		org = defaultOrganization
	}
	return fmt.Sprintf(`Evaluate the candidate's cultural fit based on their interview responses:

Organization Context: %s
Job Role: %s

Candidate Responses:
%s

Assess cultural fit indicators (1-10 scale):
1. Value Alignment - Alignment with professional values and ethics
2. Adaptability - Ability to adapt to organizational changes
3. Growth Mindset - Learning orientation and development focus
4. Cultural Integration Potential - Likelihood of successful integration
5. Overall Cultural Fit Score

Consider evidence of:
- Professional attitude and work ethic
- Collaboration preferences
- Learning and development mindset
- Problem-solving approach
- Communication style

Return JSON format:
{
  "overall_score": 8.0,
  "value_alignment": 8.5,
  "adaptability": 7.5,
  "growth_mindset": 8.0,
  "cultural_integration_potential": 8.0,
  "evidence": ["Quotes showing cultural fit indicators"],
  "recommendations": ["Suggestions for cultural integration"]
}`,
		org,
		jobRequirements(st).Title,
		strings.Join(candidateResponses(st), "\n"),
	)
}

func reportPrompt(st *domain.RunState, date string) string {
	decision := "N/A"
	if st.Decision != "" {
		decision = st.Decision.Upper()
	}
	return fmt.Sprintf(`Generate a comprehensive interview assessment report using the following template and assessment data:

TEMPLATE STRUCTURE:
%s

ASSESSMENT DATA:
Candidate Name: %s
Position: %s
Interview Date: %s

DETAILED SCORES:
- Technical Skills: %s/10 (Weight: %s)
- Behavioral Competencies: %s/10 (Weight: %s)
- Experience Relevance: %s/10 (Weight: %s)
- Cultural Fit: %s/10 (Weight: %s)
- FINAL SCORE: %s/100
- DECISION: %s

EVIDENCE AND DETAILS:
Technical Assessment: %s
Behavioral Assessment: %s
Experience Assessment: %s
Cultural Assessment: %s

INSTRUCTIONS:
1. Follow the exact template structure and formatting
2. Replace ALL placeholder fields with actual data
3. Include specific evidence from assessments
4. Provide detailed justification for scores
5. Give actionable development recommendations
6. Ensure decision aligns with scoring logic

MANDATORY REPLACEMENTS:
- [Candidate Name] -> %s
- [Date] -> %s
- [Name] (interviewer) -> Interviewer
- Fill all scoring sections with actual numerical scores
- Include evidence quotes from interview transcript

Generate the complete report in markdown format.`,
		st.ReportTemplate.Content,
		st.CandidateName,
		jobRequirements(st).Title,
		date,
		scoreText(st.TechnicalScore), percent(weightTechnical),
		scoreText(st.BehavioralScore), percent(weightBehavioral),
		scoreText(st.ExperienceScore), percent(weightExperience),
		scoreText(st.CulturalScore), percent(weightCultural),
		scoreText(st.FinalScore),
		decision,
		indentJSON(st.Technical),
		indentJSON(st.Behavioral),
		indentJSON(st.Experience),
		indentJSON(st.Cultural),
		st.CandidateName,
		date,
	)
}

func scoreText(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func percent(w float64) string {
	return strconv.Itoa(int(w*100+0.5)) + "%"
}

// indentJSON renders v for a prompt; nil pointers render as null.
func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}

func jobRequirements(st *domain.RunState) domain.JobRequirements {
	if st.JobRequirements == nil {
		return domain.JobRequirements{}
	}
	return *st.JobRequirements
}

func parsedResume(st *domain.RunState) domain.ParsedResume {
	if st.ParsedResume == nil {
		return domain.EmptyResume()
	}
	return *st.ParsedResume
}

func candidateResponses(st *domain.RunState) []string {
	if st.StructuredTranscript == nil {
		return nil
	}
	return st.StructuredTranscript.CandidateResponses
}
