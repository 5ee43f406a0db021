package httpapi

import (
	"context"

	"github.com/mockview/mockviewd/internal/jobs"
	"github.com/mockview/mockviewd/internal/transcribe"
	"go.uber.org/zap"
)

// Confidence recorded for successful transcripts; kept alongside the
// transcript in durable metadata.
const transcriptConfidence = 0.95

// transcribeInBackground runs the whole batch for a finished session. It
// must never leave the job stuck in processing: CompleteJob runs deferred,
// and a panic anywhere in the batch is recovered before that.
func (s *Server) transcribeInBackground(folder string, questionsCount int) {
	defer s.tracker.CompleteJob(folder)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("background transcription panicked",
				zap.String("folder", folder), zap.Any("panic", r))
		}
	}()

	s.tracker.CreateJob(folder, questionsCount)
	s.tracker.StartJob(folder)

	items := make([]transcribe.BatchItem, 0, questionsCount)
	for _, clip := range s.store.BatchItems(folder, questionsCount) {
		items = append(items, transcribe.BatchItem{
			QuestionIndex: clip.QuestionIndex,
			MediaPath:     clip.Path,
		})
	}

	opts := transcribe.Options{
		Language:           s.cfg.Language,
		TranslateToEnglish: s.cfg.Translate,
		ModelSize:          s.cfg.ModelSize,
	}

	onProgress := func(questionIndex int, success bool, transcript, errText string) {
		if success {
			s.tracker.UpdateTask(folder, questionIndex, jobs.StatusSuccess, transcript, transcriptConfidence, "")
			if err := s.store.RecordTranscript(folder, questionIndex, transcript, transcriptConfidence); err != nil {
				s.logger.Warn("persist transcript",
					zap.String("folder", folder),
					zap.Int("question", questionIndex),
					zap.Error(err))
			}
			return
		}
		s.tracker.UpdateTask(folder, questionIndex, jobs.StatusFailed, "", 0, errText)
	}

	s.logger.Info("starting background transcription",
		zap.String("folder", folder),
		zap.Int("questions", questionsCount),
		zap.String("engine", s.selector.EngineName()))

	s.driver.Run(context.Background(), items, opts, onProgress)
}
