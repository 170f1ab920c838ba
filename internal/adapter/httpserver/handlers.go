package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/reportstore"
	"github.com/fairyhunter13/ai-interview-assessor/internal/config"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	"github.com/fairyhunter13/ai-interview-assessor/pkg/textx"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

// AssessmentAPI is the use case surface the handlers drive.
type AssessmentAPI interface {
	Submit(ctx domain.Context, req domain.AssessmentRequest) (string, error)
	RunSync(ctx domain.Context, req domain.AssessmentRequest) (string, domain.AssessmentResult, error)
	Get(ctx domain.Context, id string) (domain.Assessment, error)
	Report(ctx domain.Context, id string) (string, error)
}

// Server aggregates handlers dependencies.
type Server struct {
	Cfg         config.Config
	Assessments AssessmentAPI
	DBCheck     func(ctx context.Context) error
	QueueCheck  func(ctx context.Context) error
	CacheCheck  func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, assessments AssessmentAPI, dbCheck, queueCheck, cacheCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Assessments: assessments, DBCheck: dbCheck, QueueCheck: queueCheck, CacheCheck: cacheCheck}
}

type aspectDTO struct {
	Name       string   `json:"name" validate:"required,max=200"`
	FocusAreas []string `json:"focus_areas" validate:"max=50,dive,max=300"`
}

type jobDescriptionDTO struct {
	Title       string      `json:"title" validate:"required,max=300"`
	Description string      `json:"description" validate:"max=20000"`
	Aspects     []aspectDTO `json:"aspects" validate:"max=20,dive"`
}

type reportTemplateDTO struct {
	Name    string `json:"name" validate:"max=200"`
	Content string `json:"content" validate:"required"`
}

type assessmentRequestDTO struct {
	CandidateID    string            `json:"candidate_id" validate:"required,max=128"`
	CandidateName  string            `json:"candidate_name" validate:"required,max=256"`
	JobID          *int64            `json:"job_id" validate:"omitempty,gt=0"`
	Transcript     string            `json:"transcript" validate:"required"`
	ResumeText     string            `json:"resume_text"`
	JobDescription jobDescriptionDTO `json:"job_description"`
	ReportTemplate reportTemplateDTO `json:"report_template"`
}

func (d assessmentRequestDTO) toDomain() domain.AssessmentRequest {
	aspects := make([]domain.Aspect, 0, len(d.JobDescription.Aspects))
	for _, a := range d.JobDescription.Aspects {
		aspects = append(aspects, domain.Aspect{Name: SanitizeString(a.Name), FocusAreas: a.FocusAreas})
	}
	return domain.AssessmentRequest{
		CandidateID:   SanitizeString(d.CandidateID),
		CandidateName: SanitizeString(d.CandidateName),
		JobID:         d.JobID,
		Transcript:    d.Transcript,
		ResumeText:    d.ResumeText,
		JobDescription: domain.JobDescription{
			Title:       SanitizeString(d.JobDescription.Title),
			Description: d.JobDescription.Description,
			Aspects:     aspects,
		},
		ReportTemplate: domain.ReportTemplate{Name: SanitizeString(d.ReportTemplate.Name), Content: d.ReportTemplate.Content},
	}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

// getValidator reports field errors under their json names.
func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New()
		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return vld
}

// decodeAssessment reads, validates and converts the request body. On failure
// the error response has already been written.
func (s *Server) decodeAssessment(w http.ResponseWriter, r *http.Request) (domain.AssessmentRequest, bool) {
	limit := s.Cfg.MaxRequestKB * 1024
	if limit <= 0 {
		limit = 1 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var dto assessmentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
				Code:    "PAYLOAD_TOO_LARGE",
				Message: "request body too large",
				Details: map[string]any{"max_bytes": tooLarge.Limit},
			}})
			return domain.AssessmentRequest{}, false
		}
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return domain.AssessmentRequest{}, false
	}
	if err := getValidator().Struct(dto); err != nil {
		verrs := map[string]string{}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				ns := fe.Namespace()
				if i := strings.IndexByte(ns, '.'); i >= 0 {
					ns = ns[i+1:]
				}
				verrs[ns] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return domain.AssessmentRequest{}, false
	}
	for field, text := range map[string]string{"transcript": dto.Transcript, "resume_text": dto.ResumeText} {
		if text != "" && !textx.IsPlainText([]byte(text)) {
			writeError(w, r, fmt.Errorf("%w: %s is not plain text", domain.ErrInvalidArgument, field),
				map[string]string{field: mimetype.Detect([]byte(text)).String()})
			return domain.AssessmentRequest{}, false
		}
	}
	return dto.toDomain(), true
}

// SubmitHandler records and enqueues an assessment.
func (s *Server) SubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.decodeAssessment(w, r)
		if !ok {
			return
		}
		id, err := s.Assessments.Submit(r.Context(), req)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		LoggerFrom(r).Info("assessment queued", "assessment_id", id, "candidate_id", req.CandidateID)
		w.Header().Set("Location", "/v1/assessments/"+id)
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": string(domain.AssessmentQueued)})
	}
}

// RunHandler runs an assessment on the request goroutine and returns its result.
func (s *Server) RunHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.decodeAssessment(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		if s.Cfg.SyncRunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.Cfg.SyncRunTimeout)
			defer cancel()
		}
		id, res, err := s.Assessments.RunSync(ctx, req)
		if id != "" {
			w.Header().Set("Location", "/v1/assessments/"+id)
		}
		if err != nil {
			var details any
			if id != "" {
				details = map[string]string{"id": id}
			}
			writeError(w, r, err, details)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// pathID extracts and validates the {id} route parameter.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if v := ValidateAssessmentID(id); !v.Valid {
		writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, v.Errors[0].Message), v.Errors)
		return "", false
	}
	return id, true
}

// GetHandler returns the assessment status and, once completed, its result.
func (s *Server) GetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a := r.Header.Get("Accept"); a != "" && a != "*/*" && !strings.Contains(a, "application/json") {
			writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a},
			}})
			return
		}
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		a, err := s.Assessments.Get(obsctx.ContextWithAssessmentID(r.Context(), id), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, BuildAssessmentEnvelope(a))
	}
}

// ReportHandler returns the generated report as markdown or, with ?format=html, as HTML.
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		format := r.URL.Query().Get("format")
		if v := ValidateReportFormat(format); !v.Valid {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, v.Errors[0].Message), v.Errors)
			return
		}
		report, err := s.Assessments.Report(obsctx.ContextWithAssessmentID(r.Context(), id), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if strings.EqualFold(format, "html") {
			body, err := reportstore.RenderHTML(report)
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprintf(w, "<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head><body>\n%s</body></html>\n",
				html.EscapeString("Assessment "+id), body)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report))
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler returns a readiness handler that probes the database, the queue and the cache.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"queue", s.QueueCheck},
			{"cache", s.CacheCheck},
		}
		checks := make([]check, 0, len(probes))
		ready := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				ready = false
				checks = append(checks, check{Name: p.name, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		st := http.StatusOK
		if !ready {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// BuildAssessmentEnvelope is the body of GET /v1/assessments/{id}.
func BuildAssessmentEnvelope(a domain.Assessment) map[string]any {
	m := map[string]any{
		"id":           a.ID,
		"status":       string(a.Status),
		"candidate_id": a.CandidateID,
		"created_at":   a.CreatedAt,
		"updated_at":   a.UpdatedAt,
	}
	if a.Error != "" {
		m["error"] = a.Error
	}
	if a.Status == domain.AssessmentCompleted && a.Result != nil {
		m["result"] = a.Result
	}
	return m
}
