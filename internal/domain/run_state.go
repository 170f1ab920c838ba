package domain

import (
	"strings"
	"time"
)

// Decision is the hiring recommendation derived from the final score.
type Decision string

const (
	DecisionSelected    Decision = "SELECTED"
	DecisionConditional Decision = "CONDITIONAL"
	DecisionUnderReview Decision = "UNDER_REVIEW"
	DecisionRejected    Decision = "REJECTED"
)

// Valid reports whether d is one of the four decision bands.
func (d Decision) Valid() bool {
	switch d {
	case DecisionSelected, DecisionConditional, DecisionUnderReview, DecisionRejected:
		return true
	}
	return false
}

// Upper returns the display form used in prompts and statuses.
func (d Decision) Upper() string { return strings.ToUpper(string(d)) }

// Transcript speakers.
const (
	SpeakerInterviewer = "interviewer"
	SpeakerCandidate   = "candidate"
)

// TranscriptEntry is one attributed line of the interview.
type TranscriptEntry struct {
	Speaker   string `json:"speaker"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// StructuredTranscript is the parsed interview transcript.
type StructuredTranscript struct {
	Conversations        []TranscriptEntry `json:"conversations"`
	InterviewerQuestions []string          `json:"interviewer_questions"`
	CandidateResponses   []string          `json:"candidate_responses"`
}

type ResumeExperience struct {
	Role             string   `json:"role"`
	Company          string   `json:"company"`
	Duration         string   `json:"duration"`
	Responsibilities []string `json:"responsibilities"`
}

type ResumeEducation struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

// ParsedResume holds the structured fields extracted from the resume text.
type ParsedResume struct {
	Skills          []string           `json:"skills"`
	Experience      []ResumeExperience `json:"experience"`
	Education       []ResumeEducation  `json:"education"`
	Certifications  []string           `json:"certifications"`
	KeyAchievements []string           `json:"key_achievements"`
}

// EmptyResume is used whenever resume parsing yields nothing usable.
func EmptyResume() ParsedResume {
	return ParsedResume{
		Skills:          []string{},
		Experience:      []ResumeExperience{},
		Education:       []ResumeEducation{},
		Certifications:  []string{},
		KeyAchievements: []string{},
	}
}

// JobRequirements is the normalized view of the job description used by prompts.
type JobRequirements struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	RequiredSkills  []string `json:"required_skills"`
	SoftSkills      []string `json:"soft_skills"`
	ExperienceLevel string   `json:"experience_level"`
}

type TechnicalAssessment struct {
	OverallScore   float64            `json:"overall_score"`
	SkillMatches   map[string]float64 `json:"skill_matches"`
	TechnicalDepth float64            `json:"technical_depth"`
	ProblemSolving float64            `json:"problem_solving"`
	Evidence       []string           `json:"evidence"`
	GapsIdentified []string           `json:"gaps_identified"`
	Strengths      []string           `json:"strengths"`
}

type BehavioralAssessment struct {
	OverallScore           float64  `json:"overall_score"`
	CommunicationClarity   float64  `json:"communication_clarity"`
	LeadershipIndicators   float64  `json:"leadership_indicators"`
	TeamworkAbility        float64  `json:"teamwork_ability"`
	ProblemSolvingApproach float64  `json:"problem_solving_approach"`
	Evidence               []string `json:"evidence"`
	ImprovementAreas       []string `json:"improvement_areas"`
}

type ExperienceAssessment struct {
	OverallScore      float64  `json:"overall_score"`
	RoleAlignment     float64  `json:"role_alignment"`
	ExperienceDepth   float64  `json:"experience_depth"`
	CareerProgression float64  `json:"career_progression"`
	RelevantProjects  []string `json:"relevant_projects"`
	ExperienceGaps    []string `json:"experience_gaps"`
	Evidence          []string `json:"evidence"`
}

type CulturalAssessment struct {
	OverallScore                 float64  `json:"overall_score"`
	ValueAlignment               float64  `json:"value_alignment"`
	Adaptability                 float64  `json:"adaptability"`
	GrowthMindset                float64  `json:"growth_mindset"`
	CulturalIntegrationPotential float64  `json:"cultural_integration_potential"`
	Evidence                     []string `json:"evidence"`
	Recommendations              []string `json:"recommendations"`
}

// QualityCheck is the auditor's verdict on the current report.
type QualityCheck struct {
	TemplateCompletion      bool     `json:"template_completion"`
	ScoreConsistency        bool     `json:"score_consistency"`
	EvidenceValidation      bool     `json:"evidence_validation"`
	RecommendationAlignment bool     `json:"recommendation_alignment"`
	OverallQualityScore     float64  `json:"overall_quality_score"`
	IssuesFound             []string `json:"issues_found"`
	Passed                  bool     `json:"passed"`
}

// RunState is the single mutable record threaded through one pipeline run.
// A nil score or an empty Decision means the value has not been produced yet.
type RunState struct {
	CandidateID    string         `json:"candidate_id"`
	CandidateName  string         `json:"candidate_name"`
	JobID          *int64         `json:"job_id,omitempty"`
	RawTranscript  string         `json:"-"`
	ResumeText     string         `json:"-"`
	JobDescription JobDescription `json:"job_description"`
	ReportTemplate ReportTemplate `json:"report_template"`

	StructuredTranscript *StructuredTranscript `json:"structured_transcript,omitempty"`
	ParsedResume         *ParsedResume         `json:"parsed_resume,omitempty"`
	JobRequirements      *JobRequirements      `json:"job_requirements,omitempty"`

	Technical  *TechnicalAssessment  `json:"technical_assessment,omitempty"`
	Behavioral *BehavioralAssessment `json:"behavioral_assessment,omitempty"`
	Experience *ExperienceAssessment `json:"experience_assessment,omitempty"`
	Cultural   *CulturalAssessment   `json:"cultural_assessment,omitempty"`

	TechnicalScore  *float64 `json:"technical_score,omitempty"`
	BehavioralScore *float64 `json:"behavioral_score,omitempty"`
	ExperienceScore *float64 `json:"experience_score,omitempty"`
	CulturalScore   *float64 `json:"cultural_score,omitempty"`
	FinalScore      *float64 `json:"final_score,omitempty"`
	Decision        Decision `json:"decision,omitempty"`

	GeneratedReport      string        `json:"generated_report,omitempty"`
	RegenerationAttempts int           `json:"regeneration_attempts"`
	QualityCheckPassed   bool          `json:"quality_check_passed"`
	QualityCheck         *QualityCheck `json:"quality_check,omitempty"`

	ProcessingErrors    []string   `json:"processing_errors"`
	ProcessingComplete  bool       `json:"processing_complete"`
	ProcessingStartTime time.Time  `json:"processing_start_time"`
	ProcessingEndTime   *time.Time `json:"processing_end_time,omitempty"`
	Steps               int        `json:"steps"`
}

// NewRunState seeds a run from a request.
func NewRunState(req AssessmentRequest, now time.Time) *RunState {
	return &RunState{
		CandidateID:         req.CandidateID,
		CandidateName:       req.CandidateName,
		JobID:               req.JobID,
		RawTranscript:       req.Transcript,
		ResumeText:          req.ResumeText,
		JobDescription:      req.JobDescription,
		ReportTemplate:      req.ReportTemplate,
		ProcessingErrors:    []string{},
		ProcessingStartTime: now,
	}
}

// AddError appends a labelled processing error; the list only ever grows.
func (s *RunState) AddError(label string, err error) {
	s.ProcessingErrors = append(s.ProcessingErrors, label+": "+err.Error())
}

// StageScores returns the four stage scores in weight order; nil entries are missing.
func (s *RunState) StageScores() [4]*float64 {
	return [4]*float64{s.TechnicalScore, s.BehavioralScore, s.ExperienceScore, s.CulturalScore}
}

// AssessmentResult is the outward result of a finished run.
type AssessmentResult struct {
	CandidateID          string                `json:"candidate_id"`
	CandidateName        string                `json:"candidate_name"`
	TechnicalScore       *float64              `json:"technical_score"`
	BehavioralScore      *float64              `json:"behavioral_score"`
	ExperienceScore      *float64              `json:"experience_score"`
	CulturalScore        *float64              `json:"cultural_score"`
	FinalScore           *float64              `json:"final_score"`
	Decision             Decision              `json:"decision"`
	GeneratedReport      string                `json:"generated_report"`
	QualityCheckPassed   bool                  `json:"quality_check_passed"`
	QualityCheck         *QualityCheck         `json:"quality_check,omitempty"`
	ProcessingErrors     []string              `json:"processing_errors"`
	ProcessingComplete   bool                  `json:"processing_complete"`
	RegenerationAttempts int                   `json:"regeneration_attempts"`
	Technical            *TechnicalAssessment  `json:"technical_assessment,omitempty"`
	Behavioral           *BehavioralAssessment `json:"behavioral_assessment,omitempty"`
	Experience           *ExperienceAssessment `json:"experience_assessment,omitempty"`
	Cultural             *CulturalAssessment   `json:"cultural_assessment,omitempty"`
	StartedAt            time.Time             `json:"started_at"`
	FinishedAt           *time.Time            `json:"finished_at,omitempty"`
}

// Result projects the run state into its outward form.
func (s *RunState) Result() AssessmentResult {
	errs := make([]string, len(s.ProcessingErrors))
	copy(errs, s.ProcessingErrors)
	return AssessmentResult{
		CandidateID:          s.CandidateID,
		CandidateName:        s.CandidateName,
		TechnicalScore:       s.TechnicalScore,
		BehavioralScore:      s.BehavioralScore,
		ExperienceScore:      s.ExperienceScore,
		CulturalScore:        s.CulturalScore,
		FinalScore:           s.FinalScore,
		Decision:             s.Decision,
		GeneratedReport:      s.GeneratedReport,
		QualityCheckPassed:   s.QualityCheckPassed,
		QualityCheck:         s.QualityCheck,
		ProcessingErrors:     errs,
		ProcessingComplete:   s.ProcessingComplete,
		RegenerationAttempts: s.RegenerationAttempts,
		Technical:            s.Technical,
		Behavioral:           s.Behavioral,
		Experience:           s.Experience,
		Cultural:             s.Cultural,
		StartedAt:            s.ProcessingStartTime,
		FinishedAt:           s.ProcessingEndTime,
	}
}

// Scores returns the candidate profile projection: missing scores persist as 0
// and a missing decision as UNDER_REVIEW.
func (r AssessmentResult) Scores() CandidateScores {
	d := r.Decision
	if d == "" {
		d = DecisionUnderReview
	}
	return CandidateScores{
		TechnicalScore:   deref(r.TechnicalScore),
		BehavioralScore:  deref(r.BehavioralScore),
		ExperienceScore:  deref(r.ExperienceScore),
		CulturalFitScore: deref(r.CulturalScore),
		FinalScore:       deref(r.FinalScore),
		Decision:         d,
		Report:           r.GeneratedReport,
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
