package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

// Audit defaults.
const (
	DefaultPassThreshold = 4.0
	DefaultScoreMax      = 100.0

	checkPassPoints  = 8.0
	checkFailPoints  = 4.0
	minEvidenceChars = 100
)

// Audit issue strings.
const (
	IssueTemplateCompletion      = "Template completion check failed"
	IssueScoreConsistency        = "Score consistency check failed"
	IssueEvidenceValidation      = "Evidence validation check failed"
	IssueRecommendationAlignment = "Recommendation alignment check failed"
)

var templatePlaceholders = []string{"[Candidate Name]", "[Date]", "[Name]"}

// Auditor checks the generated report and the score/decision pair.
type Auditor struct {
	passThreshold float64
	scoreMax      float64
}

// NewAuditor builds an Auditor. Non-positive arguments select the defaults.
func NewAuditor(passThreshold, scoreMax float64) *Auditor {
	if passThreshold <= 0 {
		passThreshold = DefaultPassThreshold
	}
	if scoreMax <= 0 {
		scoreMax = DefaultScoreMax
	}
	return &Auditor{passThreshold: passThreshold, scoreMax: scoreMax}
}

func (a *Auditor) Name() string { return "quality_assurance" }

// Assess records the audit on the state. Issues are added to ProcessingErrors
// only when the audit fails.
func (a *Auditor) Assess(ctx context.Context, st *domain.RunState, _ Generator) {
	defer func() {
		if r := recover(); r != nil {
			st.QualityCheckPassed = false
			st.AddError(labelQuality, fmt.Errorf("%v", r))
		}
	}()

	qc := a.Audit(st)
	st.QualityCheck = &qc
	st.QualityCheckPassed = qc.Passed
	if !qc.Passed {
		obsctx.LoggerFromContext(ctx).Warn("quality check failed",
			slog.String("candidate_id", st.CandidateID),
			slog.Float64("quality_score", qc.OverallQualityScore),
			slog.Any("issues", qc.IssuesFound))
		st.ProcessingErrors = append(st.ProcessingErrors, qc.IssuesFound...)
	}
}

// Audit evaluates the four checks without modifying st.
func (a *Auditor) Audit(st *domain.RunState) domain.QualityCheck {
	qc := domain.QualityCheck{
		TemplateCompletion:      templateComplete(st.GeneratedReport, st.CandidateName),
		ScoreConsistency:        a.scoresConsistent(st),
		EvidenceValidation:      evidencePresent(st),
		RecommendationAlignment: recommendationAligned(st),
		IssuesFound:             []string{},
	}
	checks := []struct {
		ok    bool
		issue string
	}{
		{qc.TemplateCompletion, IssueTemplateCompletion},
		{qc.ScoreConsistency, IssueScoreConsistency},
		{qc.EvidenceValidation, IssueEvidenceValidation},
		{qc.RecommendationAlignment, IssueRecommendationAlignment},
	}
	var total float64
	for _, c := range checks {
		if c.ok {
			total += checkPassPoints
			continue
		}
		total += checkFailPoints
		qc.IssuesFound = append(qc.IssuesFound, c.issue)
	}
	qc.OverallQualityScore = total / float64(len(checks))
	qc.Passed = qc.OverallQualityScore >= a.passThreshold
	return qc
}

func templateComplete(report, name string) bool {
	if report == "" {
		return false
	}
	for _, p := range templatePlaceholders {
		if strings.Contains(report, p) {
			return false
		}
	}
	return strings.Contains(report, name)
}

func (a *Auditor) scoresConsistent(st *domain.RunState) bool {
	for _, s := range st.StageScores() {
		if s != nil && (*s < 0 || *s > a.scoreMax) {
			return false
		}
	}
	return true
}

func evidencePresent(st *domain.RunState) bool {
	if len(st.GeneratedReport) > minEvidenceChars {
		return true
	}
	for _, s := range st.StageScores() {
		if s != nil && *s > 0 {
			return true
		}
	}
	return false
}

// recommendationAligned treats a 0.0 final score as present: a run whose
// stages all scored zero still carries a REJECTED decision that matches it.
// Only a missing score or decision fails the check.
func recommendationAligned(st *domain.RunState) bool {
	if st.FinalScore == nil || st.Decision == "" {
		return false
	}
	return Decide(*st.FinalScore) == st.Decision
}
