package jobs

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tracker is the in-memory registry of transcription jobs, one per session
// folder. All mutation goes through the tracker so aggregate job status is
// recomputed consistently under one lock. State lives for the process
// lifetime only; there is no persistence or restart recovery.
type Tracker struct {
	mu     sync.Mutex
	jobs   map[string]*Job
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker creates an empty tracker. A nil logger disables diagnostics.
func NewTracker(logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		jobs:   make(map[string]*Job),
		logger: logger,
		now:    time.Now,
	}
}

// CreateJob registers a pending job with one task per question index,
// 1..questionsCount. Creation is idempotent: an existing job for the folder
// is returned unchanged and the questionsCount argument is ignored.
func (t *Tracker) CreateJob(folderID string, questionsCount int) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	if job, ok := t.jobs[folderID]; ok {
		return job.snapshot()
	}

	job := newJob(folderID, questionsCount, t.now().UTC())
	t.jobs[folderID] = job
	t.logger.Info("created transcription job",
		zap.String("folder", folderID),
		zap.Int("questions", questionsCount))
	return job.snapshot()
}

// StartJob marks the job as processing and stamps its start time once.
// Unknown folders are a logged no-op.
func (t *Tracker) StartJob(folderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[folderID]
	if !ok {
		t.logger.Warn("start requested for unknown job", zap.String("folder", folderID))
		return
	}

	job.Status = StatusProcessing
	if job.StartedAt == nil {
		now := t.now().UTC()
		job.StartedAt = &now
	}
	t.logger.Info("started transcription job", zap.String("folder", folderID))
}

// UpdateTask overwrites one task's status, transcript, confidence, and
// error text. Entering processing stamps the task start time once; entering
// a terminal state stamps its completion time. When the last task turns
// terminal the job is finalized by the zero-failed rule. Unknown folders or
// indices are a logged no-op: progress callbacks may race job lifecycle.
func (t *Tracker) UpdateTask(folderID string, questionIndex int, status Status, transcript string, confidence float64, errText string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[folderID]
	if !ok {
		t.logger.Warn("task update for unknown job",
			zap.String("folder", folderID),
			zap.Int("question", questionIndex))
		return
	}

	task, ok := job.Tasks[questionIndex]
	if !ok {
		t.logger.Warn("task update for unknown question index",
			zap.String("folder", folderID),
			zap.Int("question", questionIndex))
		return
	}

	task.Status = status
	task.Transcript = transcript
	task.Confidence = confidence
	task.Error = errText

	now := t.now().UTC()
	switch {
	case status == StatusProcessing && task.StartedAt == nil:
		task.StartedAt = &now
	case status.Terminal():
		task.CompletedAt = &now
	}

	if job.allTerminal() && job.Status != StatusSuccess {
		job.finalize(now)
		t.logger.Info("transcription job completed",
			zap.String("folder", folderID),
			zap.String("status", string(job.Status)))
	}
}

// CompleteJob force-finalizes a job even if tasks are still pending, so a
// failed batch run never leaves the job stuck in processing. Callers invoke
// it from a deferred cleanup path after the batch driver returns.
func (t *Tracker) CompleteJob(folderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[folderID]
	if !ok {
		t.logger.Warn("complete requested for unknown job", zap.String("folder", folderID))
		return
	}

	job.finalize(t.now().UTC())
	t.logger.Info("finalized transcription job",
		zap.String("folder", folderID),
		zap.String("status", string(job.Status)))
}

// Progress returns the snapshot for a folder, or false when no job exists.
func (t *Tracker) Progress(folderID string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[folderID]
	if !ok {
		return Snapshot{}, false
	}
	return job.snapshot(), true
}

// ClearJob removes a job from the registry. Subsequent Progress calls for
// the folder report absent.
func (t *Tracker) ClearJob(folderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.jobs[folderID]; !ok {
		return
	}
	delete(t.jobs, folderID)
	t.logger.Info("cleared transcription job", zap.String("folder", folderID))
}
