package postgres

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

// CandidateRepo maintains the candidate profile: status line and latest scores.
type CandidateRepo struct{ Pool PgxPool }

// NewCandidateRepo constructs a CandidateRepo with the given pool.
func NewCandidateRepo(p PgxPool) *CandidateRepo { return &CandidateRepo{Pool: p} }

// UpdateStatus upserts the candidate and sets its status. An empty name keeps the stored one.
func (r *CandidateRepo) UpdateStatus(ctx domain.Context, candidateID, name, status string) error {
	ctx, span := otel.Tracer("repo.candidates").Start(ctx, "candidates.UpdateStatus")
	defer span.End()
	q := `INSERT INTO candidates (id, name, status, updated_at) VALUES ($1,$2,$3,$4)
	ON CONFLICT (id) DO UPDATE SET name=COALESCE(NULLIF(EXCLUDED.name,''), candidates.name), status=EXCLUDED.status, updated_at=EXCLUDED.updated_at`
	if _, err := r.Pool.Exec(ctx, q, candidateID, name, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=candidate.update_status: %w", err)
	}
	return nil
}

// SaveScores upserts the latest scores, decision and report.
func (r *CandidateRepo) SaveScores(ctx domain.Context, candidateID string, s domain.CandidateScores) error {
	ctx, span := otel.Tracer("repo.candidates").Start(ctx, "candidates.SaveScores")
	defer span.End()
	q := `INSERT INTO candidates (id, technical_score, behavioral_score, experience_score, cultural_fit_score, final_score, decision, report, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (id) DO UPDATE SET technical_score=EXCLUDED.technical_score, behavioral_score=EXCLUDED.behavioral_score,
	experience_score=EXCLUDED.experience_score, cultural_fit_score=EXCLUDED.cultural_fit_score, final_score=EXCLUDED.final_score,
	decision=EXCLUDED.decision, report=EXCLUDED.report, updated_at=EXCLUDED.updated_at`
	_, err := r.Pool.Exec(ctx, q, candidateID, s.TechnicalScore, s.BehavioralScore, s.ExperienceScore, s.CulturalFitScore,
		s.FinalScore, string(s.Decision), s.Report, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=candidate.save_scores: %w", err)
	}
	return nil
}
