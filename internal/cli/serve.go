package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/mockview/mockviewd/internal/httpapi"
	"github.com/mockview/mockviewd/internal/jobs"
	"github.com/mockview/mockviewd/internal/transcribe"
	"go.uber.org/zap"
)

func (a *appState) runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := a.newStore()
	tracker := jobs.NewTracker(a.log())
	selector := a.newSelectorFn()
	driver := transcribe.NewBatchDriver(selector, a.log())

	if selector.Available() {
		a.log().Info("transcription ready", zap.String("engine", selector.EngineName()))
	} else {
		a.log().Warn("serving without transcription; finished sessions keep their clips only")
	}

	server := httpapi.New(httpapi.Config{
		Addr:          a.addr,
		Token:         a.token,
		AllowedOrigin: a.origin,
		Language:      a.language,
		ModelSize:     a.modelSize,
		Translate:     a.translate,
	}, store, tracker, selector, driver, a.log())

	return server.Run(ctx)
}
