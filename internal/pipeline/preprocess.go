package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/schema"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
	"github.com/fairyhunter13/ai-interview-assessor/pkg/textx"
)

const (
	markerInterviewer = "Interviewer:"
	markerUser        = "User:"
	markerCandidate   = "Candidate:"

	defaultExperienceLevel = "mid-level"
)

var (
	timestampPattern  = regexp.MustCompile(`\[(\d{2}:\d{2}:\d{2})\]`)
	defaultSoftSkills = []string{"communication", "teamwork", "problem-solving", "leadership"}
)

// Preprocessor derives the structured transcript, parsed resume and job
// requirements from the raw inputs.
type Preprocessor struct {
	validator RecordValidator
	truncate  func(string) string
}

// NewPreprocessor builds a Preprocessor. A nil truncate leaves text untouched.
func NewPreprocessor(v RecordValidator, truncate func(string) string) *Preprocessor {
	if truncate == nil {
		truncate = identity
	}
	return &Preprocessor{validator: v, truncate: truncate}
}

func identity(s string) string { return s }

func (p *Preprocessor) Name() string { return "preprocessing" }

// Assess fills the derived inputs. It performs at most one generation call,
// for the resume, and never fails the run.
func (p *Preprocessor) Assess(ctx context.Context, st *domain.RunState, gen Generator) {
	defer func() {
		if r := recover(); r != nil {
			st.AddError(labelPreprocessing, fmt.Errorf("%v", r))
		}
	}()

	transcript := ParseTranscript(p.truncate(st.RawTranscript))
	st.StructuredTranscript = &transcript

	resume := p.parseResume(ctx, st, gen)
	st.ParsedResume = &resume

	req := ExtractJobRequirements(st.JobDescription)
	st.JobRequirements = &req
}

// ParseTranscript splits a raw transcript into attributed entries. Only lines
// containing a colon are considered; anything not tagged as interviewer or
// candidate is dropped.
func ParseTranscript(raw string) domain.StructuredTranscript {
	out := domain.StructuredTranscript{
		Conversations:        []domain.TranscriptEntry{},
		InterviewerQuestions: []string{},
		CandidateResponses:   []string{},
	}
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		var ts string
		if m := timestampPattern.FindStringSubmatch(line); m != nil {
			ts = m[1]
		}
		switch {
		case strings.Contains(line, markerInterviewer):
			content := afterMarker(line, markerInterviewer)
			out.Conversations = append(out.Conversations, domain.TranscriptEntry{
				Speaker: domain.SpeakerInterviewer, Content: content, Timestamp: ts,
			})
			out.InterviewerQuestions = append(out.InterviewerQuestions, content)
		case strings.Contains(line, markerUser), strings.Contains(line, markerCandidate):
			marker := markerUser
			if !strings.Contains(line, markerUser) {
				marker = markerCandidate
			}
			content := afterMarker(line, marker)
			out.Conversations = append(out.Conversations, domain.TranscriptEntry{
				Speaker: domain.SpeakerCandidate, Content: content, Timestamp: ts,
			})
			out.CandidateResponses = append(out.CandidateResponses, content)
		}
	}
	return out
}

func afterMarker(line, marker string) string {
	_, rest, _ := strings.Cut(line, marker)
	return strings.TrimSpace(rest)
}

// ExtractJobRequirements flattens the job description into the view prompts use.
func ExtractJobRequirements(jd domain.JobDescription) domain.JobRequirements {
	skills := []string{}
	for _, a := range jd.Aspects {
		skills = append(skills, a.FocusAreas...)
	}
	soft := make([]string, len(defaultSoftSkills))
	copy(soft, defaultSoftSkills)
	return domain.JobRequirements{
		Title:           jd.Title,
		Description:     jd.Description,
		RequiredSkills:  skills,
		SoftSkills:      soft,
		ExperienceLevel: defaultExperienceLevel,
	}
}

func (p *Preprocessor) parseResume(ctx context.Context, st *domain.RunState, gen Generator) domain.ParsedResume {
	text := textx.SanitizeText(st.ResumeText)
	if text == "" {
		return domain.EmptyResume()
	}
	log := obsctx.LoggerFromContext(ctx).With(slog.String("candidate_id", st.CandidateID))

	g := gen.Generate(ctx, resumePrompt(p.truncate(text)))
	if g.Err != nil {
		log.Warn("resume parsing failed, using empty resume", slog.Any("error", g.Err))
		return domain.EmptyResume()
	}
	n := Normalize(g.Text)
	if n.Kind != Parsed {
		log.Warn("resume response was not a JSON object, using empty resume", slog.String("kind", n.Kind.String()))
		return domain.EmptyResume()
	}
	if p.validator != nil {
		if err := p.validator.Validate(schema.Resume, n.Fields); err != nil {
			log.Warn("resume response failed validation, using empty resume", slog.Any("error", err))
			return domain.EmptyResume()
		}
	}
	return resumeFromFields(n.Fields)
}

func resumeFromFields(f map[string]any) domain.ParsedResume {
	r := domain.EmptyResume()
	r.Skills = strList(f, "skills", r.Skills)
	r.Certifications = strList(f, "certifications", r.Certifications)
	r.KeyAchievements = strList(f, "key_achievements", r.KeyAchievements)
	for _, item := range objects(f["experience"]) {
		r.Experience = append(r.Experience, domain.ResumeExperience{
			Role:             str(item["role"]),
			Company:          str(item["company"]),
			Duration:         str(item["duration"]),
			Responsibilities: strList(item, "responsibilities", []string{}),
		})
	}
	for _, item := range objects(f["education"]) {
		r.Education = append(r.Education, domain.ResumeEducation{
			Degree:      str(item["degree"]),
			Institution: str(item["institution"]),
			Year:        str(item["year"]),
		})
	}
	return r
}
