package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersFlagsAndSubcommands(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	require.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("json"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("no-progress"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("uploads-dir"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("env-file"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("language"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("model"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("translate"))
	require.Equal(t, "uploads", cmd.PersistentFlags().Lookup("uploads-dir").DefValue)
	require.Equal(t, "en", cmd.PersistentFlags().Lookup("language").DefValue)
	require.Equal(t, "medium", cmd.PersistentFlags().Lookup("model").DefValue)

	require.NotNil(t, cmd.Flags().Lookup("addr"))
	require.Equal(t, ":8000", cmd.Flags().Lookup("addr").DefValue)
	require.NotNil(t, cmd.Flags().Lookup("token"))
	require.NotNil(t, cmd.Flags().Lookup("origin"))
	require.Equal(t, "http://localhost:5173", cmd.Flags().Lookup("origin").DefValue)
}

func TestRootHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, out.String(), "transcribe")
	require.Contains(t, out.String(), "export")
	require.Contains(t, out.String(), "version")
}

func TestSubcommandHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "transcribe", args: []string{"transcribe", "--help"}, contains: "Transcribe the clips of an existing session folder"},
		{name: "export", args: []string{"export", "--help"}, contains: "Export a session's transcripts"},
		{name: "version", args: []string{"version", "--help"}, contains: "Print the version number"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewRootCmd()
			out := new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.NoError(t, err)
			require.Contains(t, out.String(), tt.contains)
		})
	}
}

func TestVersionCommandOutput(t *testing.T) {
	stdout, _, err := runCommand(t, []string{"version"})
	require.NoError(t, err)
	require.Contains(t, stdout, "mockviewd v")
}

func TestSanitizeLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"en", "en"},
		{" VI ", "vi"},
		{"", "auto"},
		{"  ", "auto"},
		{"Auto", "auto"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, sanitizeLanguage(tt.input), "input %q", tt.input)
	}
}

func TestDefaultToken(t *testing.T) {
	t.Setenv("MOCKVIEW_TOKEN", "")
	require.Equal(t, "12345", defaultToken())

	t.Setenv("MOCKVIEW_TOKEN", "s3cret")
	require.Equal(t, "s3cret", defaultToken())
}

func TestJoinIndices(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", joinIndices(nil))
	require.Equal(t, "Q2", joinIndices([]int{2}))
	require.Equal(t, "Q1, Q3, Q5", joinIndices([]int{1, 3, 5}))
}
