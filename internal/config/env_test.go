package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEnvParsesAssignments(t *testing.T) {
	path := writeEnvFile(t, `
# credentials for the hosted engines
OPENAI_API_KEY=sk-plain
export GOOGLE_SPEECH_API_KEY="quoted value"
MOCKVIEW_TOKEN='single quoted'
MOCKVIEW_MODEL_DIR = /tmp/models

this line is not an assignment
`)

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_SPEECH_API_KEY", "")
	t.Setenv("MOCKVIEW_TOKEN", "")
	t.Setenv("MOCKVIEW_MODEL_DIR", "")

	LoadEnv(path)

	require.Equal(t, "sk-plain", os.Getenv("OPENAI_API_KEY"))
	require.Equal(t, "quoted value", os.Getenv("GOOGLE_SPEECH_API_KEY"))
	require.Equal(t, "single quoted", os.Getenv("MOCKVIEW_TOKEN"))
	require.Equal(t, "/tmp/models", os.Getenv("MOCKVIEW_MODEL_DIR"))
}

func TestLoadEnvUnescapesDoubleQuotes(t *testing.T) {
	path := writeEnvFile(t, `MOCKVIEW_TOKEN="with \"inner\" quotes"`)

	t.Setenv("MOCKVIEW_TOKEN", "")
	LoadEnv(path)
	require.Equal(t, `with "inner" quotes`, os.Getenv("MOCKVIEW_TOKEN"))
}

func TestLoadEnvSkipsMissingFiles(t *testing.T) {
	t.Setenv("MOCKVIEW_TOKEN", "untouched")
	LoadEnv("", filepath.Join(t.TempDir(), "nope.env"), t.TempDir())
	require.Equal(t, "untouched", os.Getenv("MOCKVIEW_TOKEN"))
}

func TestUnquote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{`bare`, `bare`},
		{`"double"`, `double`},
		{`'single'`, `single`},
		{`"`, `"`},
		{`''`, ``},
		{`"a\\b"`, `a\b`},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, unquote(tt.input), "input %q", tt.input)
	}
}
