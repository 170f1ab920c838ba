// Package assessfile loads assessment inputs from local files.
//
// Job descriptions are YAML (or JSON) documents, report templates are either
// raw markdown or a YAML document with name/content, and transcripts and
// resumes are plain text. Paths are constrained to the working directory
// unless ASSESS_ALLOW_ABSPATHS=1.
package assessfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	"github.com/fairyhunter13/ai-interview-assessor/pkg/textx"
)

// Default input locations relative to the repository root.
const (
	DefaultJobPath      = "configs/assess/job_description.yaml"
	DefaultTemplatePath = "configs/assess/report_template.md"
)

// AllowAbsPathsEnv lifts the working directory constraint when set to "1".
const AllowAbsPathsEnv = "ASSESS_ALLOW_ABSPATHS"

// readFile resolves path against the working directory and reads it.
func readFile(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	abs = filepath.Clean(abs)
	wd = filepath.Clean(wd)
	if os.Getenv(AllowAbsPathsEnv) != "1" {
		if !strings.HasPrefix(abs, wd+string(os.PathSeparator)) && abs != wd {
			return nil, fmt.Errorf("%w: disallowed path: %s", domain.ErrInvalidArgument, abs)
		}
	}
	b, err := os.ReadFile(abs) //nolint:gosec // path constrained above
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: input file not found: %s", domain.ErrInvalidArgument, path)
		}
		return nil, err
	}
	return b, nil
}

// ReadText loads a transcript or resume. Binary files are rejected.
func ReadText(path string) (string, error) {
	b, err := readFile(path)
	if err != nil {
		return "", err
	}
	if !textx.IsPlainText(b) {
		return "", fmt.Errorf("%w: %s is %s, want text", domain.ErrInvalidArgument, path, mimetype.Detect(b).String())
	}
	return textx.StripBOM(string(b)), nil
}

type jobYAML struct {
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Aspects     []aspectDoc `yaml:"aspects"`
}

// aspectDoc accepts either a bare aspect name or a mapping with focus areas.
type aspectDoc struct {
	domain.Aspect
}

func (a *aspectDoc) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		a.Name = n.Value
		return nil
	}
	return n.Decode(&a.Aspect)
}

// LoadJobDescription parses a job description file. A plain list of strings
// is read as aspect names with the title taken from the file name.
func LoadJobDescription(path string) (domain.JobDescription, error) {
	b, err := readFile(path)
	if err != nil {
		return domain.JobDescription{}, err
	}
	var doc jobYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		var ls []string
		if err2 := yaml.Unmarshal(b, &ls); err2 != nil {
			return domain.JobDescription{}, fmt.Errorf("%w: yaml parse %s: %v", domain.ErrInvalidArgument, path, err)
		}
		doc = jobYAML{Title: titleFromPath(path)}
		for _, s := range ls {
			doc.Aspects = append(doc.Aspects, aspectDoc{domain.Aspect{Name: s}})
		}
	}
	jd := domain.JobDescription{
		Title:       strings.TrimSpace(doc.Title),
		Description: strings.TrimSpace(doc.Description),
	}
	if jd.Title == "" {
		return domain.JobDescription{}, fmt.Errorf("%w: no job title in %s", domain.ErrInvalidArgument, path)
	}
	seen := make(map[string]struct{}, len(doc.Aspects))
	for _, a := range doc.Aspects {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		jd.Aspects = append(jd.Aspects, domain.Aspect{Name: name, FocusAreas: trimAll(a.FocusAreas)})
	}
	return jd, nil
}

// LoadReportTemplate reads a markdown template as-is, or a YAML document with
// name and content keys.
func LoadReportTemplate(path string) (domain.ReportTemplate, error) {
	b, err := readFile(path)
	if err != nil {
		return domain.ReportTemplate{}, err
	}
	var tmpl domain.ReportTemplate
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		if err := yaml.Unmarshal(b, &tmpl); err != nil {
			return domain.ReportTemplate{}, fmt.Errorf("%w: yaml parse %s: %v", domain.ErrInvalidArgument, path, err)
		}
	default:
		tmpl = domain.ReportTemplate{Name: titleFromPath(path), Content: textx.StripBOM(string(b))}
	}
	if strings.TrimSpace(tmpl.Content) == "" {
		return domain.ReportTemplate{}, fmt.Errorf("%w: empty report template in %s", domain.ErrInvalidArgument, path)
	}
	return tmpl, nil
}

func titleFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(base))
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
