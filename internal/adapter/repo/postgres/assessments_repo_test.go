package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

func sampleRequest() domain.AssessmentRequest {
	return domain.AssessmentRequest{
		CandidateID:    "cand-1",
		CandidateName:  "Ada Lovelace",
		Transcript:     "Interviewer: hi",
		JobDescription: domain.JobDescription{Title: "Data Engineer"},
		ReportTemplate: domain.ReportTemplate{Content: "# [Candidate Name]"},
	}
}

func TestAssessmentRepo_Create(t *testing.T) {
	t.Parallel()

	p := &poolStub{}
	id, err := postgres.NewAssessmentRepo(p).Create(context.Background(), domain.Assessment{
		CandidateID: "cand-1", CandidateName: "Ada Lovelace", Status: domain.AssessmentQueued, Request: sampleRequest(),
	})
	require.NoError(t, err)
	assert.Len(t, id, 36)
	require.Len(t, p.args, 9)
	assert.Equal(t, id, p.args[0])
	assert.Equal(t, "queued", p.args[4])

	var req domain.AssessmentRequest
	require.NoError(t, json.Unmarshal(p.args[6].([]byte), &req))
	assert.Equal(t, sampleRequest(), req)
}

func TestAssessmentRepo_CreateKeepsGivenID(t *testing.T) {
	t.Parallel()

	id, err := postgres.NewAssessmentRepo(&poolStub{}).Create(context.Background(), domain.Assessment{ID: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)

	_, err = postgres.NewAssessmentRepo(&poolStub{execErr: errors.New("dup")}).Create(context.Background(), domain.Assessment{})
	assert.ErrorContains(t, err, "op=assessment.create")
}

func TestAssessmentRepo_UpdateStatus(t *testing.T) {
	t.Parallel()

	msg := "enqueue failed"
	p := &poolStub{tag: updated(1)}
	require.NoError(t, postgres.NewAssessmentRepo(p).UpdateStatus(context.Background(), "a", domain.AssessmentFailed, &msg))
	assert.Equal(t, "failed", p.args[1])
	assert.Equal(t, "enqueue failed", p.args[2])

	require.NoError(t, postgres.NewAssessmentRepo(p).UpdateStatus(context.Background(), "a", domain.AssessmentProcessing, nil))
	assert.Equal(t, "", p.args[2])

	err := postgres.NewAssessmentRepo(&poolStub{tag: updated(0)}).UpdateStatus(context.Background(), "x", domain.AssessmentFailed, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssessmentRepo_SaveResult(t *testing.T) {
	t.Parallel()

	fs := 78.0
	res := domain.AssessmentResult{CandidateID: "cand-1", FinalScore: &fs, Decision: domain.DecisionConditional}
	p := &poolStub{tag: updated(1)}
	require.NoError(t, postgres.NewAssessmentRepo(p).SaveResult(context.Background(), "a", res, "reports/r.md"))
	assert.Equal(t, "completed", p.args[1])
	assert.Equal(t, "reports/r.md", p.args[3])
	assert.Contains(t, string(p.args[2].([]byte)), `"decision":"CONDITIONAL"`)

	err := postgres.NewAssessmentRepo(&poolStub{tag: updated(0)}).SaveResult(context.Background(), "a", res, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = postgres.NewAssessmentRepo(&poolStub{execErr: errors.New("conn reset")}).SaveResult(context.Background(), "a", res, "")
	assert.ErrorContains(t, err, "op=assessment.save_result")
}

func TestAssessmentRepo_Get(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	reqJSON, _ := json.Marshal(sampleRequest())
	resJSON := []byte(`{"candidate_id":"cand-1","final_score":78,"decision":"CONDITIONAL","generated_report":"# Ada"}`)
	jobID := int64(7)

	p := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*string)) = "a"
		*(dest[1].(*string)) = "cand-1"
		*(dest[2].(*string)) = "Ada Lovelace"
		*(dest[3].(**int64)) = &jobID
		*(dest[4].(*string)) = "completed"
		*(dest[5].(*string)) = ""
		*(dest[6].(*[]byte)) = reqJSON
		*(dest[7].(*[]byte)) = resJSON
		*(dest[8].(*string)) = "reports/r.md"
		*(dest[9].(*time.Time)) = created
		*(dest[10].(*time.Time)) = created
		return nil
	}}}

	a, err := postgres.NewAssessmentRepo(p).Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.AssessmentCompleted, a.Status)
	assert.Equal(t, int64(7), *a.JobID)
	assert.Equal(t, sampleRequest(), a.Request)
	require.NotNil(t, a.Result)
	assert.Equal(t, domain.DecisionConditional, a.Result.Decision)
	assert.Equal(t, 78.0, *a.Result.FinalScore)
	assert.Equal(t, "reports/r.md", a.ReportPath)
}

func TestAssessmentRepo_GetPendingHasNoResult(t *testing.T) {
	t.Parallel()

	reqJSON, _ := json.Marshal(sampleRequest())
	p := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[4].(*string)) = "queued"
		*(dest[6].(*[]byte)) = reqJSON
		return nil
	}}}
	a, err := postgres.NewAssessmentRepo(p).Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Nil(t, a.Result)
	assert.Equal(t, domain.AssessmentQueued, a.Status)
}

func TestAssessmentRepo_GetErrors(t *testing.T) {
	t.Parallel()

	notFound := &poolStub{row: rowStub{scan: func(...any) error { return pgx.ErrNoRows }}}
	_, err := postgres.NewAssessmentRepo(notFound).Get(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	badJSON := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[6].(*[]byte)) = []byte("{")
		return nil
	}}}
	_, err = postgres.NewAssessmentRepo(badJSON).Get(context.Background(), "x")
	assert.ErrorContains(t, err, "op=assessment.get: request")
}

func TestAssessmentRepo_FailStale(t *testing.T) {
	t.Parallel()

	cutoff := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	p := &poolStub{tag: pgconn.NewCommandTag("UPDATE 3")}
	n, err := postgres.NewAssessmentRepo(p).FailStale(context.Background(), cutoff, "stale")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Contains(t, p.sql, "status=$4 AND updated_at < $5")
	assert.Equal(t, "failed", p.args[0])
	assert.Equal(t, "stale", p.args[1])
	assert.Equal(t, "processing", p.args[3])
	assert.Equal(t, cutoff, p.args[4])

	_, err = postgres.NewAssessmentRepo(&poolStub{execErr: errors.New("down")}).FailStale(context.Background(), cutoff, "stale")
	assert.ErrorContains(t, err, "op=assessment.fail_stale")
}
