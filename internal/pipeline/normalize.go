package pipeline

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ai-interview-assessor/pkg/textx"
)

// ParseKind tags how much structure Normalize recovered.
type ParseKind int

const (
	// Unparsed means no mapping could be recovered; Normalized.Text holds the raw answer.
	Unparsed ParseKind = iota
	// Parsed means a JSON object was decoded.
	Parsed
	// ScrapedPartial means fields were pulled out of malformed JSON with patterns.
	ScrapedPartial
)

func (k ParseKind) String() string {
	switch k {
	case Parsed:
		return "parsed"
	case ScrapedPartial:
		return "scraped_partial"
	default:
		return "unparsed"
	}
}

// Normalized is the tagged result of Normalize. Fields is set for Parsed and
// ScrapedPartial; Text always carries the raw model answer.
type Normalized struct {
	Kind   ParseKind
	Fields map[string]any
	Text   string
}

// Default list item when a scraped list has no quoted entries.
const scrapedListPlaceholder = "Extracted from text response"

var (
	fencedObject  = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	greedyObject  = regexp.MustCompile(`(?s)\{.*\}`)
	lineIndent    = regexp.MustCompile(`(?m)^\s+`)
	newlineIndent = regexp.MustCompile(`\n\s*`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	quotedItem    = regexp.MustCompile(`"([^"]*)"`)
	skillObject   = regexp.MustCompile(`(?i)"?skill_matches"?\s*:\s*\{([^}]*)\}`)
	skillPair     = regexp.MustCompile(`"([^"]+)"\s*:\s*([0-9.]+)`)
)

var numericFields = []string{
	"overall_score",
	"technical_depth",
	"problem_solving",
	"communication_clarity",
	"leadership_indicators",
	"teamwork_ability",
	"problem_solving_approach",
	"role_alignment",
	"experience_depth",
	"career_progression",
	"value_alignment",
	"adaptability",
	"growth_mindset",
	"cultural_integration_potential",
}

var listFields = []string{
	"evidence",
	"strengths",
	"gaps_identified",
	"improvement_areas",
	"relevant_projects",
	"experience_gaps",
	"recommendations",
}

type fieldPattern struct {
	name string
	re   *regexp.Regexp
}

var numericPatterns, listPatterns = compileFieldPatterns()

func compileFieldPatterns() (nums, lists []fieldPattern) {
	for _, f := range numericFields {
		nums = append(nums, fieldPattern{f, regexp.MustCompile(`(?i)"?` + f + `"?\s*:\s*([0-9.]+)`)})
	}
	for _, f := range listFields {
		lists = append(lists, fieldPattern{f, regexp.MustCompile(`(?is)"?` + f + `"?\s*:\s*\[(.*?)\]`)})
	}
	return nums, lists
}

// Normalize recovers a field mapping from a free-form model answer. It is total:
// any input yields a result, and every step is a bounded regexp or decode.
func Normalize(raw string) Normalized {
	candidate, ok := jsonCandidate(raw)
	if !ok {
		return Normalized{Kind: Unparsed, Text: raw}
	}

	cleaned := lineIndent.ReplaceAllString(textx.StripBOM(strings.TrimSpace(candidate)), "")
	if m, ok := decodeObject(cleaned); ok {
		return Normalized{Kind: Parsed, Fields: m, Text: raw}
	}

	collapsed := newlineIndent.ReplaceAllString(textx.StripBOM(candidate), " ")
	collapsed = trailingComma.ReplaceAllString(strings.TrimSpace(collapsed), "$1")
	if m, ok := decodeObject(collapsed); ok {
		return Normalized{Kind: Parsed, Fields: m, Text: raw}
	}

	if m := scrapeFields(raw); len(m) > 0 {
		return Normalized{Kind: ScrapedPartial, Fields: m, Text: raw}
	}
	return Normalized{Kind: Unparsed, Text: raw}
}

func jsonCandidate(raw string) (string, bool) {
	if m := fencedObject.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if s := greedyObject.FindString(raw); s != "" {
		return s, true
	}
	return "", false
}

func decodeObject(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func scrapeFields(text string) map[string]any {
	out := make(map[string]any)
	for _, p := range numericPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			out[p.name] = f
		}
	}
	for _, p := range listPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		items := quotedItem.FindAllStringSubmatch(m[1], -1)
		if len(items) == 0 {
			out[p.name] = []any{scrapedListPlaceholder}
			continue
		}
		list := make([]any, 0, len(items))
		for _, it := range items {
			list = append(list, it[1])
		}
		out[p.name] = list
	}
	if m := skillObject.FindStringSubmatch(text); m != nil {
		skills := make(map[string]any)
		for _, pair := range skillPair.FindAllStringSubmatch(m[1], -1) {
			if f, err := strconv.ParseFloat(pair[2], 64); err == nil {
				skills[pair[1]] = f
			}
		}
		if len(skills) > 0 {
			out["skill_matches"] = skills
		}
	}
	return out
}
