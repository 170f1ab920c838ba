package usecase_test

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

type mockAssessments struct{ mock.Mock }

func (m *mockAssessments) Create(ctx domain.Context, a domain.Assessment) (string, error) {
	args := m.Called(ctx, a)
	return args.String(0), args.Error(1)
}

func (m *mockAssessments) UpdateStatus(ctx domain.Context, id string, status domain.AssessmentStatus, errMsg *string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

func (m *mockAssessments) SaveResult(ctx domain.Context, id string, res domain.AssessmentResult, reportPath string) error {
	return m.Called(ctx, id, res, reportPath).Error(0)
}

func (m *mockAssessments) Get(ctx domain.Context, id string) (domain.Assessment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Assessment), args.Error(1)
}

type mockCandidates struct{ mock.Mock }

func (m *mockCandidates) UpdateStatus(ctx domain.Context, candidateID, name, status string) error {
	return m.Called(ctx, candidateID, name, status).Error(0)
}

func (m *mockCandidates) SaveScores(ctx domain.Context, candidateID string, s domain.CandidateScores) error {
	return m.Called(ctx, candidateID, s).Error(0)
}

type mockReports struct{ mock.Mock }

func (m *mockReports) Save(ctx domain.Context, candidateID, report string, at time.Time) (string, error) {
	args := m.Called(ctx, candidateID, report, at)
	return args.String(0), args.Error(1)
}

func (m *mockReports) Load(ctx domain.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

type mockQueue struct{ mock.Mock }

func (m *mockQueue) EnqueueAssessment(ctx domain.Context, p domain.AssessmentTaskPayload) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type mockRunner struct{ mock.Mock }

func (m *mockRunner) RunAssessment(ctx domain.Context, req domain.AssessmentRequest) (domain.AssessmentResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.AssessmentResult), args.Error(1)
}
