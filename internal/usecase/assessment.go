// Package usecase contains application business logic services.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

// Runner executes the assessment pipeline for one request.
type Runner interface {
	RunAssessment(ctx domain.Context, req domain.AssessmentRequest) (domain.AssessmentResult, error)
}

// AssessmentService submits assessments, runs them and persists their outputs.
type AssessmentService struct {
	Assessments domain.AssessmentRepository
	Candidates  domain.CandidateRepository
	Reports     domain.ReportStore
	Queue       domain.Queue
	Runner      Runner
	Now         func() time.Time
}

// NewAssessmentService constructs an AssessmentService with its dependencies.
func NewAssessmentService(a domain.AssessmentRepository, c domain.CandidateRepository, r domain.ReportStore, q domain.Queue, runner Runner) AssessmentService {
	return AssessmentService{Assessments: a, Candidates: c, Reports: r, Queue: q, Runner: runner, Now: func() time.Time { return time.Now().UTC() }}
}

// ValidateRequest checks the fields every pipeline run needs.
func ValidateRequest(req domain.AssessmentRequest) error {
	var missing []string
	if strings.TrimSpace(req.CandidateID) == "" {
		missing = append(missing, "candidate_id")
	}
	if strings.TrimSpace(req.CandidateName) == "" {
		missing = append(missing, "candidate_name")
	}
	if strings.TrimSpace(req.Transcript) == "" {
		missing = append(missing, "transcript")
	}
	if strings.TrimSpace(req.JobDescription.Title) == "" {
		missing = append(missing, "job_description.title")
	}
	if strings.TrimSpace(req.ReportTemplate.Content) == "" {
		missing = append(missing, "report_template.content")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidArgument, strings.Join(missing, ", "))
	}
	return nil
}

// Submit records a queued assessment and enqueues it for the worker.
func (s AssessmentService) Submit(ctx domain.Context, req domain.AssessmentRequest) (string, error) {
	if err := ValidateRequest(req); err != nil {
		return "", err
	}
	id, err := s.create(ctx, req, domain.AssessmentQueued)
	if err != nil {
		return "", err
	}
	if _, err := s.Queue.EnqueueAssessment(ctx, domain.AssessmentTaskPayload{AssessmentID: id, Request: req}); err != nil {
		_ = s.Assessments.UpdateStatus(ctx, id, domain.AssessmentFailed, ptr("enqueue failed"))
		return "", fmt.Errorf("op=assessment.submit: %w", err)
	}
	return id, nil
}

// RunSync records an assessment and runs it on the caller's goroutine.
func (s AssessmentService) RunSync(ctx domain.Context, req domain.AssessmentRequest) (string, domain.AssessmentResult, error) {
	if err := ValidateRequest(req); err != nil {
		return "", domain.AssessmentResult{}, err
	}
	id, err := s.create(ctx, req, domain.AssessmentProcessing)
	if err != nil {
		return "", domain.AssessmentResult{}, err
	}
	res, err := s.Execute(ctx, id, req)
	return id, res, err
}

// Execute runs the pipeline for a recorded assessment and persists the result,
// the report file and the candidate profile.
func (s AssessmentService) Execute(ctx domain.Context, id string, req domain.AssessmentRequest) (domain.AssessmentResult, error) {
	lg := obsctx.LoggerFromContext(ctx).With(slog.String("assessment_id", id), slog.String("candidate_id", req.CandidateID))

	if err := s.Assessments.UpdateStatus(ctx, id, domain.AssessmentProcessing, nil); err != nil {
		return domain.AssessmentResult{}, fmt.Errorf("op=assessment.execute: %w", err)
	}
	if err := s.Candidates.UpdateStatus(ctx, req.CandidateID, req.CandidateName, domain.CandidateStatusGenerating); err != nil {
		lg.Warn("candidate status update failed", slog.Any("error", err))
	}

	res, err := s.Runner.RunAssessment(ctx, req)
	if err != nil {
		lg.Error("assessment run failed", slog.Any("error", err))
		_ = s.Assessments.UpdateStatus(ctx, id, domain.AssessmentFailed, ptr(err.Error()))
		return res, err
	}

	var path string
	if res.GeneratedReport != "" && s.Reports != nil {
		path, err = s.Reports.Save(ctx, req.CandidateID, res.GeneratedReport, s.now())
		if err != nil {
			lg.Warn("report file not saved", slog.Any("error", err))
			path = ""
		}
	}
	if err := s.Assessments.SaveResult(ctx, id, res, path); err != nil {
		lg.Error("assessment result not saved", slog.Any("error", err))
		_ = s.Assessments.UpdateStatus(ctx, id, domain.AssessmentFailed, ptr("result not saved: "+err.Error()))
		return res, fmt.Errorf("op=assessment.execute: %w", err)
	}

	scores := res.Scores()
	if err := s.Candidates.SaveScores(ctx, req.CandidateID, scores); err != nil {
		lg.Warn("candidate scores not saved", slog.Any("error", err))
	}
	if err := s.Candidates.UpdateStatus(ctx, req.CandidateID, req.CandidateName, domain.CandidateCompleteStatus(scores.Decision)); err != nil {
		lg.Warn("candidate status update failed", slog.Any("error", err))
	}
	lg.Info("assessment persisted",
		slog.String("decision", string(scores.Decision)),
		slog.Float64("final_score", scores.FinalScore),
		slog.Int("processing_errors", len(res.ProcessingErrors)),
		slog.String("report_path", path))
	return res, nil
}

// Get returns the persisted assessment.
func (s AssessmentService) Get(ctx domain.Context, id string) (domain.Assessment, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Assessment{}, fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	return s.Assessments.Get(ctx, id)
}

// Report returns the markdown report of a completed assessment. The saved file
// is preferred; the copy stored with the result is used when it is unreadable.
func (s AssessmentService) Report(ctx domain.Context, id string) (string, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if a.Status != domain.AssessmentCompleted || a.Result == nil {
		return "", fmt.Errorf("%w: assessment %s is %s", domain.ErrConflict, id, a.Status)
	}
	if a.ReportPath != "" && s.Reports != nil {
		report, err := s.Reports.Load(ctx, a.ReportPath)
		if err == nil {
			return report, nil
		}
		obsctx.LoggerFromContext(ctx).Warn("report file unreadable, using stored copy",
			slog.String("assessment_id", id), slog.Any("error", err))
	}
	if a.Result.GeneratedReport == "" {
		return "", fmt.Errorf("%w: no report for assessment %s", domain.ErrNotFound, id)
	}
	return a.Result.GeneratedReport, nil
}

func (s AssessmentService) create(ctx domain.Context, req domain.AssessmentRequest, status domain.AssessmentStatus) (string, error) {
	now := s.now()
	id, err := s.Assessments.Create(ctx, domain.Assessment{
		CandidateID:   req.CandidateID,
		CandidateName: req.CandidateName,
		JobID:         req.JobID,
		Status:        status,
		Request:       req,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return "", fmt.Errorf("op=assessment.create: %w", err)
	}
	return id, nil
}

func (s AssessmentService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// IsRetryable reports whether a failed run is worth another attempt by the worker.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrStepLimit), errors.Is(err, domain.ErrSchemaInvalid):
		return false
	}
	return true
}

func ptr(s string) *string { return &s }
