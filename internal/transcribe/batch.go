package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// ErrNoEngineAvailable is the per-item error recorded when the selector
// could not bind any engine.
var ErrNoEngineAvailable = errors.New("no transcription engine available")

// BatchItem pairs a question index with the clip recorded for it.
type BatchItem struct {
	QuestionIndex int
	MediaPath     string
}

// ItemResult is the outcome for one batch item.
type ItemResult struct {
	Success    bool
	Transcript string
	Confidence float64
	Error      string
}

// ProgressFunc is invoked once per item, in item order, after the item has
// been resolved. Panics inside the callback are recovered and logged so a
// broken observer never aborts the batch.
type ProgressFunc func(questionIndex int, success bool, transcript, errText string)

// BatchDriver runs the bound engine over an ordered list of media items,
// strictly sequentially. One bad clip never aborts the rest of the batch:
// every failure is contained to its item's result.
type BatchDriver struct {
	selector *Selector
	logger   *zap.Logger

	stat     func(name string) (os.FileInfo, error)
	readFile func(name string) ([]byte, error)
}

// NewBatchDriver creates a driver bound to the given selector.
func NewBatchDriver(selector *Selector, logger *zap.Logger) *BatchDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchDriver{
		selector: selector,
		logger:   logger,
		stat:     os.Stat,
		readFile: os.ReadFile,
	}
}

// Run transcribes every item and returns a result per question index. The
// call blocks for the whole batch and is expected to run off the request
// path. There is no cancellation beyond ctx; a started batch works through
// its full item list.
func (d *BatchDriver) Run(ctx context.Context, items []BatchItem, opts Options, onProgress ProgressFunc) map[int]ItemResult {
	results := make(map[int]ItemResult, len(items))

	for _, item := range items {
		result := d.runItem(ctx, item, opts)
		results[item.QuestionIndex] = result

		if result.Success {
			d.logger.Info("question transcribed", zap.Int("question", item.QuestionIndex))
		} else {
			d.logger.Warn("question transcription failed",
				zap.Int("question", item.QuestionIndex),
				zap.String("error", result.Error))
		}

		d.notify(onProgress, item.QuestionIndex, result)
	}

	return results
}

func (d *BatchDriver) runItem(ctx context.Context, item BatchItem, opts Options) ItemResult {
	if _, err := d.stat(item.MediaPath); err != nil {
		return failedResult(fmt.Sprintf("media not found: %s", item.MediaPath))
	}

	media, err := d.readFile(item.MediaPath)
	if err != nil {
		return failedResult(fmt.Sprintf("read media: %v", err))
	}

	engine, ok := d.selector.Engine()
	if !ok {
		return failedResult(ErrNoEngineAvailable.Error())
	}

	transcription, err := engine.Transcribe(ctx, media, engine.Capabilities().Filter(opts))
	if err != nil {
		return failedResult(err.Error())
	}

	return ItemResult{
		Success:    true,
		Transcript: transcription.Text,
		Confidence: transcription.Confidence,
	}
}

func (d *BatchDriver) notify(onProgress ProgressFunc, questionIndex int, result ItemResult) {
	if onProgress == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("progress callback panicked",
				zap.Int("question", questionIndex),
				zap.Any("panic", r))
		}
	}()

	onProgress(questionIndex, result.Success, result.Transcript, result.Error)
}

func failedResult(errText string) ItemResult {
	return ItemResult{Success: false, Error: errText}
}
