package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrStepLimit         = errors.New("pipeline step limit exceeded")
	ErrInternal          = errors.New("internal error")
)

// AssessmentStatus is the lifecycle state of a persisted assessment.
type AssessmentStatus string

const (
	AssessmentQueued     AssessmentStatus = "queued"
	AssessmentProcessing AssessmentStatus = "processing"
	AssessmentCompleted  AssessmentStatus = "completed"
	AssessmentFailed     AssessmentStatus = "failed"
)

// Candidate status labels written to the candidate profile.
const (
	CandidateStatusGenerating = "Generating Report"
	candidateStatusComplete   = "Assessment Complete - "
)

// CandidateCompleteStatus returns the profile status written once a decision exists.
func CandidateCompleteStatus(d Decision) string {
	return candidateStatusComplete + string(d)
}

// Aspect is one evaluation area of a job description.
type Aspect struct {
	Name       string   `json:"name" yaml:"name"`
	FocusAreas []string `json:"focus_areas,omitempty" yaml:"focus_areas"`
}

// JobDescription describes the role a candidate is assessed against.
type JobDescription struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Aspects     []Aspect `json:"aspects,omitempty" yaml:"aspects"`
}

// ReportTemplate is the markdown layout the final report must follow.
type ReportTemplate struct {
	Name    string `json:"name,omitempty" yaml:"name"`
	Content string `json:"content" yaml:"content"`
}

// AssessmentRequest is everything needed to run one assessment.
type AssessmentRequest struct {
	CandidateID    string         `json:"candidate_id"`
	CandidateName  string         `json:"candidate_name"`
	JobID          *int64         `json:"job_id,omitempty"`
	Transcript     string         `json:"transcript"`
	ResumeText     string         `json:"resume_text,omitempty"`
	JobDescription JobDescription `json:"job_description"`
	ReportTemplate ReportTemplate `json:"report_template"`
}

// Assessment is the persisted record of one requested run.
type Assessment struct {
	ID            string
	CandidateID   string
	CandidateName string
	JobID         *int64
	Status        AssessmentStatus
	Error         string
	Request       AssessmentRequest
	Result        *AssessmentResult
	ReportPath    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CandidateScores is the subset of a result written back to the candidate profile.
type CandidateScores struct {
	TechnicalScore   float64
	BehavioralScore  float64
	ExperienceScore  float64
	CulturalFitScore float64
	FinalScore       float64
	Decision         Decision
	Report           string
}

// Repositories (ports)

type AssessmentRepository interface {
	Create(ctx Context, a Assessment) (string, error)
	UpdateStatus(ctx Context, id string, status AssessmentStatus, errMsg *string) error
	SaveResult(ctx Context, id string, res AssessmentResult, reportPath string) error
	Get(ctx Context, id string) (Assessment, error)
}

type CandidateRepository interface {
	UpdateStatus(ctx Context, candidateID, name, status string) error
	SaveScores(ctx Context, candidateID string, s CandidateScores) error
}

// ReportStore persists finished reports outside the database.
type ReportStore interface {
	Save(ctx Context, candidateID, report string, at time.Time) (string, error)
	Load(ctx Context, path string) (string, error)
}

// Queue (port)

type Queue interface {
	EnqueueAssessment(ctx Context, payload AssessmentTaskPayload) (string, error)
}

// TextGenerator (port) turns a prompt into model text.
type TextGenerator interface {
	Generate(ctx Context, prompt string) (string, error)
}

// AssessmentTaskPayload is the queued unit of work.
type AssessmentTaskPayload struct {
	AssessmentID string            `json:"assessment_id"`
	Request      AssessmentRequest `json:"request"`
}

// Context is an alias to keep ports readable; adapters pass context.Context through.
type Context = context.Context
