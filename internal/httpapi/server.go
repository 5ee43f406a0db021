package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mockview/mockviewd/internal/jobs"
	"github.com/mockview/mockviewd/internal/session"
	"github.com/mockview/mockviewd/internal/transcribe"
	"go.uber.org/zap"
)

// Config carries the server's runtime settings.
type Config struct {
	Addr            string
	Token           string
	AllowedOrigin   string
	Language        string
	ModelSize       string
	Translate       bool
	ShutdownTimeout time.Duration
}

// Server wires the session store, job tracker, and transcription driver
// behind the HTTP API.
type Server struct {
	cfg      Config
	store    *session.Store
	tracker  *jobs.Tracker
	selector *transcribe.Selector
	driver   *transcribe.BatchDriver
	logger   *zap.Logger

	// transcribeFn runs the background batch for a finished session;
	// replaceable in tests.
	transcribeFn func(folder string, questionsCount int)
}

// New creates a server over the given collaborators.
func New(cfg Config, store *session.Store, tracker *jobs.Tracker, selector *transcribe.Selector, driver *transcribe.BatchDriver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		tracker:  tracker,
		selector: selector,
		driver:   driver,
		logger:   logger,
	}
	s.transcribeFn = s.transcribeInBackground
	return s
}

// Handler builds the route table. Method patterns require Go 1.22+.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/verify-token", s.handleVerifyToken)
	mux.HandleFunc("POST /api/session/start", s.handleSessionStart)
	mux.HandleFunc("POST /api/upload-one", s.handleUploadOne)
	mux.HandleFunc("POST /api/session/finish", s.handleSessionFinish)
	mux.HandleFunc("GET /api/transcription-status/{folder}", s.handleTranscriptionStatus)
	mux.HandleFunc("DELETE /api/transcription-status/{folder}", s.handleClearJob)
	mux.HandleFunc("GET /api/transcripts", s.handleListSessions)
	mux.HandleFunc("GET /api/transcripts/{folder}", s.handleGetTranscripts)
	mux.HandleFunc("GET /api/transcripts/{folder}/export", s.handleExportTranscripts)
	mux.HandleFunc("GET /api/transcripts/{folder}/{index}", s.handleGetTranscript)

	return s.withCORS(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// withCORS mirrors the fixed-origin CORS policy the browser client needs.
func (s *Server) withCORS(next http.Handler) http.Handler {
	origin := s.cfg.AllowedOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
