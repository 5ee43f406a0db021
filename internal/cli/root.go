package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/mockview/mockviewd/internal/config"
	"github.com/mockview/mockviewd/internal/logging"
	"github.com/mockview/mockviewd/internal/session"
	"github.com/mockview/mockviewd/internal/transcribe"
	"github.com/mockview/mockviewd/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool
	uploadsDir string
	envFile    string

	language  string
	modelSize string
	translate bool

	addr   string
	token  string
	origin string

	logger *zap.Logger

	// newSelectorFn is replaceable in tests to avoid probing real engines.
	newSelectorFn func() *transcribe.Selector
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		uploadsDir: "uploads",
		language:   "en",
		modelSize:  "medium",
		addr:       ":8000",
		origin:     "http://localhost:5173",
	}
	app.newSelectorFn = func() *transcribe.Selector {
		return transcribe.NewSelector(app.log(), transcribe.DefaultDescriptors())
	}

	cmd := &cobra.Command{
		Use:           "mockviewd",
		Short:         "Mock-interview recording server with background transcription",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			config.LoadDefaultEnv()
			config.LoadEnv(app.envFile)

			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			app.language = sanitizeLanguage(app.language)
			if app.token == "" {
				app.token = defaultToken()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindStorageFlags(cmd, app)
	bindTranscriptionFlags(cmd, app)
	bindServerFlags(cmd, app)

	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindStorageFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.uploadsDir, "uploads-dir", app.uploadsDir, "Directory where session folders are stored")
	cmd.PersistentFlags().StringVar(&app.envFile, "env-file", app.envFile, "Extra env file with engine credentials")
}

func bindTranscriptionFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.language, "language", app.language, "Language code (auto|en|vi|...) for transcription")
	cmd.PersistentFlags().StringVar(&app.modelSize, "model", app.modelSize, "Whisper model size (tiny|base|small|medium|large)")
	cmd.PersistentFlags().BoolVar(&app.translate, "translate", app.translate, "Translate transcripts to English when supported")
}

func bindServerFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.addr, "addr", app.addr, "HTTP listen address")
	cmd.Flags().StringVar(&app.token, "token", app.token, "Client auth token (default from MOCKVIEW_TOKEN)")
	cmd.Flags().StringVar(&app.origin, "origin", app.origin, "Allowed CORS origin for the browser client")
}

func (a *appState) newStore() *session.Store {
	return session.NewStore(a.uploadsDir, a.log())
}

func (a *appState) transcribeOptions() transcribe.Options {
	return transcribe.Options{
		Language:           a.language,
		TranslateToEnglish: a.translate,
		ModelSize:          a.modelSize,
	}
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func sanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return "auto"
	}
	return trimmed
}

func defaultToken() string {
	if token := strings.TrimSpace(os.Getenv("MOCKVIEW_TOKEN")); token != "" {
		return token
	}
	// demo token, matches the bundled browser client
	return "12345"
}
