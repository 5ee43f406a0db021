package jobs

import (
	"strconv"
	"time"
)

// TaskView is the read-only, serializable view of one task. The transcript
// is only exposed once the task succeeded.
type TaskView struct {
	QuestionIndex int     `json:"question_index"`
	Status        Status  `json:"status"`
	Transcript    string  `json:"transcript"`
	Confidence    float64 `json:"confidence"`
	Error         string  `json:"error"`
	StartedAt     string  `json:"started_at,omitempty"`
	CompletedAt   string  `json:"completed_at,omitempty"`
}

// Snapshot is the read-only progress view of a job handed to pollers.
// Concurrent batch progress makes it eventually consistent, never torn.
type Snapshot struct {
	FolderID       string              `json:"folder"`
	QuestionsCount int                 `json:"questions_count"`
	Status         Status              `json:"status"`
	Progress       [2]int              `json:"progress"`
	SuccessCount   int                 `json:"success_count"`
	FailedCount    int                 `json:"failed_count"`
	FailedIndices  []int               `json:"failed_indices"`
	Tasks          map[string]TaskView `json:"tasks"`
	CreatedAt      string              `json:"created_at"`
	StartedAt      string              `json:"started_at,omitempty"`
	CompletedAt    string              `json:"completed_at,omitempty"`
}

func (j *Job) snapshot() Snapshot {
	failed := j.failedIndices()

	tasks := make(map[string]TaskView, len(j.Tasks))
	for index, task := range j.Tasks {
		view := TaskView{
			QuestionIndex: task.QuestionIndex,
			Status:        task.Status,
			Confidence:    task.Confidence,
			Error:         task.Error,
			StartedAt:     formatTime(task.StartedAt),
			CompletedAt:   formatTime(task.CompletedAt),
		}
		if task.Status == StatusSuccess {
			view.Transcript = task.Transcript
		}
		tasks[strconv.Itoa(index)] = view
	}

	return Snapshot{
		FolderID:       j.FolderID,
		QuestionsCount: j.QuestionsCount,
		Status:         j.Status,
		Progress:       [2]int{j.completedCount(), j.QuestionsCount},
		SuccessCount:   j.successCount(),
		FailedCount:    len(failed),
		FailedIndices:  failed,
		Tasks:          tasks,
		CreatedAt:      j.CreatedAt.Format(time.RFC3339),
		StartedAt:      formatTime(j.StartedAt),
		CompletedAt:    formatTime(j.CompletedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
