package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

// Scores and list items used when a field cannot be taken from the answer.
const (
	neutralScore = 5.0
	partialScore = 7.0

	partialEvidence   = "Extracted from LLM response"
	partialDetails    = "Details unavailable"
	textEvidence      = "Parsed from text response"
	textDetails       = "Could not parse details from text"
	defaultSkillMatch = "python"
)

// stageSpec describes one assessment stage. assess drives the shared flow:
// prompt, generate, normalize, validate, map, store.
type stageSpec[R any] struct {
	name   string
	label  string
	schema string
	prompt func(*domain.RunState) string
	// fromFields maps a recovered object, applying partial defaults for absent fields.
	fromFields func(map[string]any) R
	// fromText is used when no object could be recovered.
	fromText func(string) R
	neutral  func() R
	store    func(*domain.RunState, R)
}

func (s stageSpec[R]) assess(ctx context.Context, st *domain.RunState, gen Generator, v RecordValidator) {
	stored := false
	save := func(r R) {
		s.store(st, r)
		stored = true
	}
	defer func() {
		if r := recover(); r != nil {
			if !stored {
				s.store(st, s.neutral())
			}
			st.AddError(s.label, fmt.Errorf("%v", r))
		}
	}()

	log := obsctx.LoggerFromContext(ctx).With(
		slog.String("stage", s.name),
		slog.String("candidate_id", st.CandidateID),
	)

	g := gen.Generate(ctx, s.prompt(st))
	if g.Err != nil {
		log.Warn("generation failed, using neutral record", slog.Any("error", g.Err))
		save(s.neutral())
		st.AddError(s.label, g.Err)
		return
	}

	n := Normalize(g.Text)
	switch n.Kind {
	case Parsed, ScrapedPartial:
		if v != nil {
			if err := v.Validate(s.schema, n.Fields); err != nil {
				log.Warn("record failed validation, using neutral record", slog.Any("error", err))
				save(s.neutral())
				st.AddError(s.label, err)
				return
			}
		}
		if n.Kind == ScrapedPartial {
			log.Info("record scraped from malformed JSON", slog.Int("fields", len(n.Fields)))
		}
		save(s.fromFields(n.Fields))
	default:
		log.Warn("no JSON object in answer, scoring from text")
		save(s.fromText(n.Text))
	}
}

// textScore finds the first number following a label in free text.
type textScore struct {
	re *regexp.Regexp
}

func newTextScore(label string) textScore {
	return textScore{re: regexp.MustCompile(`(?i)` + label + `[^:]*:?\s*(\d+(?:\.\d+)?)`)}
}

func (t textScore) find(text string, def float64) float64 {
	m := t.re.FindStringSubmatch(text)
	if m == nil {
		return def
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return def
	}
	return f
}

var overallText = newTextScore(`overall`)

func listOf(items ...string) []string { return items }
