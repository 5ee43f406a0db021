package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mockview/mockviewd/internal/jobs"
	"github.com/mockview/mockviewd/internal/session"
	"github.com/mockview/mockviewd/internal/transcribe"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testToken = "12345"

type fakeEngine struct {
	text string
}

func (e *fakeEngine) Name() string { return "Fake Engine" }

func (e *fakeEngine) Capabilities() transcribe.Capabilities {
	return transcribe.Capabilities{Language: true}
}

func (e *fakeEngine) Transcribe(context.Context, []byte, transcribe.Options) (transcribe.Transcription, error) {
	return transcribe.Transcription{Text: e.text, Confidence: 0.9}, nil
}

func engineSelector(engine transcribe.Engine) *transcribe.Selector {
	return transcribe.NewSelector(nil, []transcribe.Descriptor{{
		Name: engine.Name(),
		Load: func(*zap.Logger) (transcribe.Engine, error) {
			return engine, nil
		},
	}})
}

func newTestServer(t *testing.T, selector *transcribe.Selector) *Server {
	t.Helper()
	store := session.NewStore(t.TempDir(), nil)
	tracker := jobs.NewTracker(nil)
	driver := transcribe.NewBatchDriver(selector, nil)
	cfg := Config{
		Addr:          ":0",
		Token:         testToken,
		AllowedOrigin: "http://localhost:5173",
		Language:      "en",
	}
	return New(cfg, store, tracker, selector, driver, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return decoded
}

func startSession(t *testing.T, srv *Server, userName string) string {
	t.Helper()
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/session/start", map[string]any{
		"token":    testToken,
		"userName": userName,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	folder, ok := decodeBody(t, rec)["folder"].(string)
	require.True(t, ok)
	return folder
}

func uploadClip(t *testing.T, srv *Server, folder string, questionIndex int) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("token", testToken))
	require.NoError(t, writer.WriteField("folder", folder))
	require.NoError(t, writer.WriteField("questionIndex", fmt.Sprint(questionIndex)))
	part, err := writer.CreateFormFile("video", fmt.Sprintf("Q%d.webm", questionIndex))
	require.NoError(t, err)
	_, err = part.Write([]byte("fake webm bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-one", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestVerifyToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/verify-token", map[string]any{"token": testToken})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decodeBody(t, rec)["ok"])

	rec = doJSON(t, handler, http.MethodPost, "/api/verify-token", map[string]any{"token": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, false, body["ok"])
	require.Equal(t, "Invalid token", body["detail"])
}

func TestVerifyTokenRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	req := httptest.NewRequest(http.MethodPost, "/api/verify-token", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionStartCreatesFolder(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	folder := startSession(t, srv, "mai anh")
	require.True(t, strings.HasSuffix(folder, "_mai_anh"))

	meta, err := srv.store.ReadMetadata(folder)
	require.NoError(t, err)
	require.Equal(t, "mai_anh", meta.UserName)
}

func TestUploadOneSavesClipAndRecordsQuestion(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	folder := startSession(t, srv, "Alice")

	rec := uploadClip(t, srv, folder, 2)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Q2.webm", decodeBody(t, rec)["savedAs"])

	meta, err := srv.store.ReadMetadata(folder)
	require.NoError(t, err)
	require.Equal(t, []int{2}, meta.ReceivedQuestions)
}

func TestUploadOneUnknownFolder(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	rec := uploadClip(t, srv, "ghost", 1)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionFinishWithoutEngine(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	folder := startSession(t, srv, "Alice")

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/session/finish", map[string]any{
		"token":          testToken,
		"folder":         folder,
		"questionsCount": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, false, body["transcribing"])
	require.Equal(t, transcribe.ErrNoEngineAvailable.Error(), body["message"])
}

func TestSessionFinishStartsBackgroundTranscription(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, engineSelector(&fakeEngine{text: "answer"}))
	folder := startSession(t, srv, "Alice")

	var (
		mu     sync.Mutex
		called bool
		done   = make(chan struct{})
	)
	srv.transcribeFn = func(gotFolder string, questionsCount int) {
		mu.Lock()
		called = gotFolder == folder && questionsCount == 3
		mu.Unlock()
		close(done)
	}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/session/finish", map[string]any{
		"token":          testToken,
		"folder":         folder,
		"questionsCount": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["transcribing"])
	require.Equal(t, "Fake Engine", body["engine"])

	<-done
	mu.Lock()
	defer mu.Unlock()
	require.True(t, called)

	meta, err := srv.store.ReadMetadata(folder)
	require.NoError(t, err)
	require.Equal(t, 3, meta.QuestionsCount)
	require.NotEmpty(t, meta.FinishedAt)
}

func TestBackgroundTranscriptionUpdatesTrackerAndMetadata(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, engineSelector(&fakeEngine{text: "the answer"}))
	folder := startSession(t, srv, "Alice")

	rec := uploadClip(t, srv, folder, 1)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = uploadClip(t, srv, folder, 2)
	require.Equal(t, http.StatusOK, rec.Code)

	// run the batch synchronously so the test can assert on the outcome
	srv.transcribeInBackground(folder, 2)

	snapshot, ok := srv.tracker.Progress(folder)
	require.True(t, ok)
	require.Equal(t, jobs.StatusSuccess, snapshot.Status)
	require.Equal(t, [2]int{2, 2}, snapshot.Progress)
	require.Equal(t, 2, snapshot.SuccessCount)

	meta, err := srv.store.ReadMetadata(folder)
	require.NoError(t, err)
	require.Equal(t, "the answer", meta.Transcripts["1"].Text)
	require.Equal(t, "the answer", meta.Transcripts["2"].Text)
}

func TestBackgroundTranscriptionMarksMissingClipsFailed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, engineSelector(&fakeEngine{text: "ok"}))
	folder := startSession(t, srv, "Alice")

	rec := uploadClip(t, srv, folder, 1)
	require.Equal(t, http.StatusOK, rec.Code)

	srv.transcribeInBackground(folder, 2)

	snapshot, ok := srv.tracker.Progress(folder)
	require.True(t, ok)
	require.Equal(t, jobs.StatusFailed, snapshot.Status)
	require.Equal(t, 1, snapshot.SuccessCount)
	require.Equal(t, []int{2}, snapshot.FailedIndices)
}

func TestTranscriptionStatusEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/transcription-status/ghost", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	srv.tracker.CreateJob("f1", 2)
	srv.tracker.StartJob("f1")
	srv.tracker.UpdateTask("f1", 1, jobs.StatusSuccess, "hi", 0.95, "")

	rec = doJSON(t, handler, http.MethodGet, "/api/transcription-status/f1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "processing", body["status"])
	require.Equal(t, []any{float64(1), float64(2)}, body["progress"].([]any))
	require.Contains(t, body, "timestamps")

	tasks, ok := body["tasks"].(map[string]any)
	require.True(t, ok)
	task1, ok := tasks["1"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "hi", task1["transcript"])
}

func TestClearJobEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	handler := srv.Handler()

	srv.tracker.CreateJob("f1", 1)
	rec := doJSON(t, handler, http.MethodDelete, "/api/transcription-status/f1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, ok := srv.tracker.Progress("f1")
	require.False(t, ok)
}

func TestListSessionsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	require.NoError(t, srv.store.EnsureFolder("f1", "Alice"))
	require.NoError(t, srv.store.RecordTranscript("f1", 1, "hello", 0.9))

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/transcripts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, float64(1), body["totalSessions"])
}

func TestGetTranscriptsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	handler := srv.Handler()

	require.NoError(t, srv.store.EnsureFolder("f1", "Alice"))
	require.NoError(t, srv.store.RecordTranscript("f1", 1, "hello", 0.9))

	rec := doJSON(t, handler, http.MethodGet, "/api/transcripts/f1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "Alice", body["userName"])
	require.Equal(t, float64(1), body["transcriptsCount"])

	rec = doJSON(t, handler, http.MethodGet, "/api/transcripts/ghost", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSingleTranscriptEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	handler := srv.Handler()

	require.NoError(t, srv.store.EnsureFolder("f1", "Alice"))
	require.NoError(t, srv.store.RecordTranscript("f1", 2, "second", 0.9))

	rec := doJSON(t, handler, http.MethodGet, "/api/transcripts/f1/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, float64(2), body["questionIndex"])
	entry, ok := body["transcript"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "second", entry["text"])

	rec = doJSON(t, handler, http.MethodGet, "/api/transcripts/f1/1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/transcripts/f1/zero", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	handler := srv.Handler()

	require.NoError(t, srv.store.EnsureFolder("f1", "Alice"))
	require.NoError(t, srv.store.RecordTranscript("f1", 1, "hello", 0.9))

	rec := doJSON(t, handler, http.MethodGet, "/api/transcripts/f1/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "f1_transcripts.csv")

	rec = doJSON(t, handler, http.MethodGet, "/api/transcripts/f1/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/plain", rec.Header().Get("Content-Type"))

	rec = doJSON(t, handler, http.MethodGet, "/api/transcripts/f1/export?format=xml", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/transcripts/ghost/export", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, transcribe.NewSelector(nil, nil))
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/verify-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = doJSON(t, handler, http.MethodPost, "/api/verify-token", map[string]any{"token": testToken})
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
