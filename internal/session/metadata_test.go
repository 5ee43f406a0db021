package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordUploadTracksReceivedQuestions(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.EnsureFolder("f1", "Alice"))

	require.NoError(t, store.RecordUpload("f1", 1))
	require.NoError(t, store.RecordUpload("f1", 2))
	require.NoError(t, store.RecordUpload("f1", 1))

	meta, err := store.ReadMetadata("f1")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, meta.ReceivedQuestions)
	require.NotEmpty(t, meta.UploadedAt)
}

func TestRecordUploadWithoutMetadataIsNoOp(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.RecordUpload("ghost", 1))
}

func TestRecordTranscriptPersistsAndRendersFile(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.EnsureFolder("f1", "Alice"))
	require.NoError(t, store.RecordTranscript("f1", 1, "my answer", 0.95))

	meta, err := store.ReadMetadata("f1")
	require.NoError(t, err)
	require.Len(t, meta.Transcripts, 1)
	require.Equal(t, "my answer", meta.Transcripts["1"].Text)
	require.InDelta(t, 0.95, meta.Transcripts["1"].Confidence, 1e-9)

	rendered, err := os.ReadFile(filepath.Join(store.baseDir, "f1", "transcripts.txt"))
	require.NoError(t, err)
	require.Contains(t, string(rendered), "Interview Transcripts - Alice")
	require.Contains(t, string(rendered), "Question 1:")
	require.Contains(t, string(rendered), "my answer")
}

func TestFinalizeMetadataStampsFinish(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.EnsureFolder("f1", "Alice"))
	require.NoError(t, store.FinalizeMetadata("f1", 5))

	meta, err := store.ReadMetadata("f1")
	require.NoError(t, err)
	require.Equal(t, 5, meta.QuestionsCount)
	require.NotEmpty(t, meta.FinishedAt)
}

func TestReadMetadataMissingSession(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.ReadMetadata("ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListSessionsOnlyIncludesTranscribedNewestFirst(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir(), nil)
	older := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return older }
	require.NoError(t, store.EnsureFolder("old", "Alice"))
	require.NoError(t, store.RecordUpload("old", 1))
	require.NoError(t, store.RecordTranscript("old", 1, "first", 0.9))

	store.now = func() time.Time { return newer }
	require.NoError(t, store.EnsureFolder("new", "Bob"))
	require.NoError(t, store.RecordUpload("new", 1))
	require.NoError(t, store.RecordTranscript("new", 1, "second", 0.9))

	// a session without transcripts stays hidden
	require.NoError(t, store.EnsureFolder("empty", "Carol"))

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "new", sessions[0].Folder)
	require.Equal(t, "old", sessions[1].Folder)
	require.Equal(t, 1, sessions[0].TranscriptsCount)
}

func TestListSessionsMissingBaseDir(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "nope"), nil)
	sessions, err := store.ListSessions()
	require.NoError(t, err)
	require.Empty(t, sessions)
}
