package cli

import (
	"fmt"
	"strings"

	"github.com/mockview/mockviewd/internal/jobs"
	"github.com/mockview/mockviewd/internal/transcribe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newTranscribeCmd re-runs transcription for a session folder that already
// holds uploaded clips, e.g. after a failed run or an engine upgrade.
func newTranscribeCmd(app *appState) *cobra.Command {
	var questions int

	cmd := &cobra.Command{
		Use:   "transcribe <folder>",
		Short: "Transcribe the clips of an existing session folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := args[0]
			store := app.newStore()

			count := questions
			if count <= 0 {
				meta, err := store.ReadMetadata(folder)
				if err != nil {
					return fmt.Errorf("read session %q: %w", folder, err)
				}
				count = meta.QuestionsCount
			}
			if count <= 0 {
				return fmt.Errorf("session %q has no recorded question count; pass --questions", folder)
			}

			selector := app.newSelectorFn()
			engine, ok := selector.Engine()
			if !ok {
				return transcribe.ErrNoEngineAvailable
			}
			app.log().Info("transcribing session",
				zap.String("folder", folder),
				zap.Int("questions", count),
				zap.String("engine", engine.Name()))

			tracker := jobs.NewTracker(app.log())
			tracker.CreateJob(folder, count)
			tracker.StartJob(folder)
			defer tracker.CompleteJob(folder)

			items := make([]transcribe.BatchItem, 0, count)
			for _, clip := range store.BatchItems(folder, count) {
				items = append(items, transcribe.BatchItem{
					QuestionIndex: clip.QuestionIndex,
					MediaPath:     clip.Path,
				})
			}

			advance, finish := startBatchProgress(app.progressEnabled(), count, "Transcribing")
			defer finish()

			onProgress := func(questionIndex int, success bool, transcript, errText string) {
				defer advance()
				if success {
					tracker.UpdateTask(folder, questionIndex, jobs.StatusSuccess, transcript, 0.95, "")
					if err := store.RecordTranscript(folder, questionIndex, transcript, 0.95); err != nil {
						app.log().Warn("persist transcript",
							zap.Int("question", questionIndex), zap.Error(err))
					}
					return
				}
				tracker.UpdateTask(folder, questionIndex, jobs.StatusFailed, "", 0, errText)
			}

			driver := transcribe.NewBatchDriver(selector, app.log())
			driver.Run(cmd.Context(), items, app.transcribeOptions(), onProgress)
			finish()

			snapshot, _ := tracker.Progress(folder)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Transcribed %d/%d questions", snapshot.SuccessCount, count)
			if snapshot.FailedCount > 0 {
				fmt.Fprintf(out, " (failed: %s)", joinIndices(snapshot.FailedIndices))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&questions, "questions", 0, "Question count override (default from session metadata)")
	return cmd
}

func joinIndices(indices []int) string {
	parts := make([]string, 0, len(indices))
	for _, index := range indices {
		parts = append(parts, fmt.Sprintf("Q%d", index))
	}
	return strings.Join(parts, ", ")
}
