package reportstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

var at = time.Date(2024, 3, 15, 10, 30, 5, 0, time.UTC)

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id, want string
	}{
		{"cand-1", "report_ai_cand-1_20240315_103005.md"},
		{"../../etc/passwd", "report_ai_.._.._etc_passwd_20240315_103005.md"},
		{"", "report_ai_unknown_20240315_103005.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.id, at), tt.id)
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "reports")
	s := NewFileStore(dir)

	path, err := s.Save(context.Background(), "cand-1", "# Ada Lovelace\n", at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_ai_cand-1_20240315_103005.md"), path)

	got, err := s.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Ada Lovelace\n", got)
}

func TestFileStore_LoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewFileStore(dir)

	_, err := s.Load(context.Background(), filepath.Join(dir, "missing.md"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	outside := filepath.Join(t.TempDir(), "secret.md")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))
	_, err = s.Load(context.Background(), outside)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = s.Load(context.Background(), filepath.Join(dir, "..", "x.md"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	out, err := RenderHTML("# Report for Ada\n\n| Area | Score |\n|---|---|\n| Technical | 9 |\n\n<script>alert(1)</script>\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Report for Ada</h1>")
	assert.Contains(t, out, "<table>")
	assert.NotContains(t, out, "<script>")
}
