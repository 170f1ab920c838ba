package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

// AssessmentRepo persists assessment runs: the request, the status and the final result.
type AssessmentRepo struct{ Pool PgxPool }

// NewAssessmentRepo constructs an AssessmentRepo with the given pool.
func NewAssessmentRepo(p PgxPool) *AssessmentRepo { return &AssessmentRepo{Pool: p} }

// Create inserts a new assessment and returns its id.
func (r *AssessmentRepo) Create(ctx domain.Context, a domain.Assessment) (string, error) {
	ctx, span := otel.Tracer("repo.assessments").Start(ctx, "assessments.Create")
	defer span.End()
	id := a.ID
	if id == "" {
		id = uuid.New().String()
	}
	req, err := json.Marshal(a.Request)
	if err != nil {
		return "", fmt.Errorf("op=assessment.create: %w", err)
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	q := `INSERT INTO assessments (id, candidate_id, candidate_name, job_id, status, error, request, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := r.Pool.Exec(ctx, q, id, a.CandidateID, a.CandidateName, a.JobID, string(a.Status), a.Error, req, a.CreatedAt, now); err != nil {
		return "", fmt.Errorf("op=assessment.create: %w", err)
	}
	return id, nil
}

// UpdateStatus updates an assessment's status and optional error message.
func (r *AssessmentRepo) UpdateStatus(ctx domain.Context, id string, status domain.AssessmentStatus, errMsg *string) error {
	ctx, span := otel.Tracer("repo.assessments").Start(ctx, "assessments.UpdateStatus")
	defer span.End()
	errVal := ""
	if errMsg != nil {
		errVal = *errMsg
	}
	tag, err := r.Pool.Exec(ctx, `UPDATE assessments SET status=$2, error=$3, updated_at=$4 WHERE id=$1`, id, string(status), errVal, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=assessment.update_status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=assessment.update_status: %w", domain.ErrNotFound)
	}
	return nil
}

// SaveResult stores the result JSON and report path and marks the assessment completed.
func (r *AssessmentRepo) SaveResult(ctx domain.Context, id string, res domain.AssessmentResult, reportPath string) error {
	ctx, span := otel.Tracer("repo.assessments").Start(ctx, "assessments.SaveResult")
	defer span.End()
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("op=assessment.save_result: %w", err)
	}
	q := `UPDATE assessments SET status=$2, error='', result=$3, report_path=$4, updated_at=$5 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, string(domain.AssessmentCompleted), b, reportPath, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=assessment.save_result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=assessment.save_result: %w", domain.ErrNotFound)
	}
	return nil
}

// Get loads an assessment by id.
func (r *AssessmentRepo) Get(ctx domain.Context, id string) (domain.Assessment, error) {
	ctx, span := otel.Tracer("repo.assessments").Start(ctx, "assessments.Get")
	defer span.End()
	q := `SELECT id, candidate_id, candidate_name, job_id, status, COALESCE(error,''), request, result, report_path, created_at, updated_at
	FROM assessments WHERE id=$1`
	var (
		a          domain.Assessment
		status     string
		reqJSON    []byte
		resultJSON []byte
	)
	err := r.Pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.CandidateID, &a.CandidateName, &a.JobID, &status, &a.Error,
		&reqJSON, &resultJSON, &a.ReportPath, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Assessment{}, fmt.Errorf("op=assessment.get: %w", domain.ErrNotFound)
		}
		return domain.Assessment{}, fmt.Errorf("op=assessment.get: %w", err)
	}
	a.Status = domain.AssessmentStatus(status)
	if err := json.Unmarshal(reqJSON, &a.Request); err != nil {
		return domain.Assessment{}, fmt.Errorf("op=assessment.get: request: %w", err)
	}
	if len(resultJSON) > 0 {
		var res domain.AssessmentResult
		if err := json.Unmarshal(resultJSON, &res); err != nil {
			return domain.Assessment{}, fmt.Errorf("op=assessment.get: result: %w", err)
		}
		a.Result = &res
	}
	return a, nil
}

// FailStale marks assessments stuck in processing since before cutoff as failed
// and returns how many were updated.
func (r *AssessmentRepo) FailStale(ctx domain.Context, cutoff time.Time, msg string) (int64, error) {
	ctx, span := otel.Tracer("repo.assessments").Start(ctx, "assessments.FailStale")
	defer span.End()
	q := `UPDATE assessments SET status=$1, error=$2, updated_at=$3 WHERE status=$4 AND updated_at < $5`
	tag, err := r.Pool.Exec(ctx, q, string(domain.AssessmentFailed), msg, time.Now().UTC(), string(domain.AssessmentProcessing), cutoff)
	if err != nil {
		return 0, fmt.Errorf("op=assessment.fail_stale: %w", err)
	}
	return tag.RowsAffected(), nil
}
