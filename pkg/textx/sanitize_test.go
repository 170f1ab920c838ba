package textx

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello\nworld\t!", SanitizeText(" he\x00llo\nwo\x7frld\t! "))
}

func TestStripBOM(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `{"a":1}`, StripBOM("\uFEFF{\"a\":1}"))
	assert.Equal(t, "plain", StripBOM("plain"))
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, []byte(bom))
}

// Go rejects a literal byte order mark anywhere but the start of a source file.
func TestSourcesHaveNoLiteralBOM(t *testing.T) {
	t.Parallel()

	raw := []byte{0xEF, 0xBB, 0xBF}
	root := filepath.Join("..", "..")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), "_") {
			return filepath.SkipDir
		}
		if d.IsDir() || filepath.Ext(path) != ".go" {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		assert.False(t, bytes.Contains(b, raw), "%s contains a literal BOM; use \\uFEFF", path)
		return nil
	})
	require.NoError(t, err)
}

func TestFilterContaining(t *testing.T) {
	t.Parallel()

	items := []string{"I wrote Python code daily", "I like hiking", "Our ALGORITHM was greedy"}
	got := FilterContaining(items, []string{"python", "algorithm"})
	assert.Equal(t, []string{"I wrote Python code daily", "Our ALGORITHM was greedy"}, got)
	assert.Empty(t, FilterContaining(nil, []string{"x"}))
}

func TestIsPlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		want bool
	}{
		{"empty", nil, true},
		{"transcript", []byte("Interviewer: Tell me about yourself.\nCandidate: I build APIs.\n"), true},
		{"json", []byte(`{"title":"Engineer"}`), true},
		{"pdf", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"), false},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPlainText(tt.in))
		})
	}
}
