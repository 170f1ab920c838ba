package assessfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-assessor/internal/assessfile"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadJobDescription_Mapping(t *testing.T) {
	t.Setenv(assessfile.AllowAbsPathsEnv, "1")
	p := writeFile(t, "job.yaml", `
title: "Senior Backend Engineer"
description: "Owns payment services"
aspects:
  - Technical Skills
  - name: Leadership
    focus_areas: ["mentoring", " ", "ownership"]
  - name: technical skills
  - name: ""
`)

	jd, err := assessfile.LoadJobDescription(p)
	require.NoError(t, err)
	assert.Equal(t, "Senior Backend Engineer", jd.Title)
	assert.Equal(t, "Owns payment services", jd.Description)
	require.Len(t, jd.Aspects, 2)
	assert.Equal(t, domain.Aspect{Name: "Technical Skills"}, jd.Aspects[0])
	assert.Equal(t, domain.Aspect{Name: "Leadership", FocusAreas: []string{"mentoring", "ownership"}}, jd.Aspects[1])
}

func TestLoadJobDescription_JSON(t *testing.T) {
	t.Setenv(assessfile.AllowAbsPathsEnv, "1")
	p := writeFile(t, "job.json", `{"title":"Data Engineer","aspects":[{"name":"Pipelines"}]}`)

	jd, err := assessfile.LoadJobDescription(p)
	require.NoError(t, err)
	assert.Equal(t, "Data Engineer", jd.Title)
	require.Len(t, jd.Aspects, 1)
	assert.Equal(t, "Pipelines", jd.Aspects[0].Name)
}

func TestLoadJobDescription_ListFallback(t *testing.T) {
	t.Setenv(assessfile.AllowAbsPathsEnv, "1")
	p := writeFile(t, "platform_engineer.yaml", "- Kubernetes\n- Observability\n")

	jd, err := assessfile.LoadJobDescription(p)
	require.NoError(t, err)
	assert.Equal(t, "platform engineer", jd.Title)
	require.Len(t, jd.Aspects, 2)
	assert.Equal(t, "Observability", jd.Aspects[1].Name)
}

func TestLoadJobDescription_Errors(t *testing.T) {
	t.Setenv(assessfile.AllowAbsPathsEnv, "1")

	cases := map[string]string{
		"missing_title": "description: no title here\n",
		"bad_yaml":      "title: [unclosed\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			p := writeFile(t, "job.yaml", content)
			_, err := assessfile.LoadJobDescription(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}

	_, err := assessfile.LoadJobDescription(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file not found")
}

func TestLoadReportTemplate(t *testing.T) {
	t.Setenv(assessfile.AllowAbsPathsEnv, "1")

	md := writeFile(t, "acme-report.md", "\uFEFF# Candidate Report\n\n## Summary\n")
	tmpl, err := assessfile.LoadReportTemplate(md)
	require.NoError(t, err)
	assert.Equal(t, "acme report", tmpl.Name)
	assert.Equal(t, "# Candidate Report\n\n## Summary\n", tmpl.Content)

	y := writeFile(t, "tmpl.yaml", "name: Acme\ncontent: |\n  # Report\n")
	tmpl, err = assessfile.LoadReportTemplate(y)
	require.NoError(t, err)
	assert.Equal(t, "Acme", tmpl.Name)
	assert.Equal(t, "# Report\n", tmpl.Content)

	empty := writeFile(t, "empty.md", "   \n")
	_, err = assessfile.LoadReportTemplate(empty)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestReadText(t *testing.T) {
	t.Setenv(assessfile.AllowAbsPathsEnv, "1")

	p := writeFile(t, "transcript.txt", "Interviewer: Hello\nCandidate: Hi")
	text, err := assessfile.ReadText(p)
	require.NoError(t, err)
	assert.Equal(t, "Interviewer: Hello\nCandidate: Hi", text)

	pdf := writeFile(t, "resume.pdf", "%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj")
	_, err = assessfile.ReadText(pdf)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "application/pdf")
}

func TestReadText_PathOutsideWorkingDir(t *testing.T) {
	t.Setenv(assessfile.AllowAbsPathsEnv, "0")
	p := writeFile(t, "transcript.txt", "hello")

	_, err := assessfile.ReadText(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "disallowed path")
}

func TestDefaultFilesLoad(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	root := filepath.Join(wd, "..", "..")
	t.Setenv(assessfile.AllowAbsPathsEnv, "1")

	jd, err := assessfile.LoadJobDescription(filepath.Join(root, assessfile.DefaultJobPath))
	require.NoError(t, err)
	assert.NotEmpty(t, jd.Title)
	assert.NotEmpty(t, jd.Aspects)

	tmpl, err := assessfile.LoadReportTemplate(filepath.Join(root, assessfile.DefaultTemplatePath))
	require.NoError(t, err)
	assert.Contains(t, tmpl.Content, "#")
}
