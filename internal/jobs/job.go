package jobs

import (
	"sort"
	"time"
)

// Status describes the lifecycle of a task or of its enclosing job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a status is final for the current job run.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Task is the transcription attempt for a single question clip.
type Task struct {
	QuestionIndex int
	Status        Status
	Transcript    string
	Confidence    float64
	Error         string
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// Job is the transcription run for one session folder. It owns one task
// per question index, pre-populated in pending state.
type Job struct {
	FolderID       string
	QuestionsCount int
	Status         Status
	Tasks          map[int]*Task
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

func newJob(folderID string, questionsCount int, createdAt time.Time) *Job {
	job := &Job{
		FolderID:       folderID,
		QuestionsCount: questionsCount,
		Status:         StatusPending,
		Tasks:          make(map[int]*Task, questionsCount),
		CreatedAt:      createdAt,
	}
	for i := 1; i <= questionsCount; i++ {
		job.Tasks[i] = &Task{QuestionIndex: i, Status: StatusPending}
	}
	return job
}

func (j *Job) completedCount() int {
	count := 0
	for _, task := range j.Tasks {
		if task.Status.Terminal() {
			count++
		}
	}
	return count
}

func (j *Job) successCount() int {
	count := 0
	for _, task := range j.Tasks {
		if task.Status == StatusSuccess {
			count++
		}
	}
	return count
}

func (j *Job) failedIndices() []int {
	indices := make([]int, 0)
	for index, task := range j.Tasks {
		if task.Status == StatusFailed {
			indices = append(indices, index)
		}
	}
	sort.Ints(indices)
	return indices
}

func (j *Job) allTerminal() bool {
	for _, task := range j.Tasks {
		if !task.Status.Terminal() {
			return false
		}
	}
	return true
}

// finalize applies the zero-failed rule: success when no task failed,
// failed otherwise, regardless of tasks still pending.
func (j *Job) finalize(now time.Time) {
	if len(j.failedIndices()) == 0 {
		j.Status = StatusSuccess
	} else {
		j.Status = StatusFailed
	}
	j.CompletedAt = &now
}
