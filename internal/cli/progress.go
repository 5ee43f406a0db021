package cli

import (
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// startBatchProgress renders a determinate bar over a batch of clips.
// The advance callback steps the bar once per item; finish is idempotent.
func startBatchProgress(enabled bool, total int, description string) (advance func(), finish func()) {
	if !enabled || total <= 0 {
		return func() {}, func() {}
	}

	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	var once sync.Once
	advance = func() { _ = bar.Add(1) }
	finish = func() {
		once.Do(func() { _ = bar.Finish() })
	}
	return advance, finish
}
