package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/mockview/mockviewd/internal/session"
	"github.com/mockview/mockviewd/internal/transcribe"
	"go.uber.org/zap"
)

// maxUploadBytes caps one uploaded clip; interview answers are short.
const maxUploadBytes = 256 << 20

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]any{"ok": false, "detail": detail})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) checkToken(w http.ResponseWriter, token string) bool {
	if token != s.cfg.Token {
		s.writeError(w, http.StatusUnauthorized, "Invalid token")
		return false
	}
	return true
}

func (s *Server) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !s.checkToken(w, req.Token) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		UserName string `json:"userName"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !s.checkToken(w, req.Token) {
		return
	}

	folder := s.store.FolderName(req.UserName)
	if err := s.store.EnsureFolder(folder, session.SanitizeName(req.UserName)); err != nil {
		s.logger.Error("create session folder", zap.String("folder", folder), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not create session folder")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "folder": folder})
}

func (s *Server) handleUploadOne(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	if !s.checkToken(w, r.FormValue("token")) {
		return
	}

	folder := r.FormValue("folder")
	questionIndex, err := strconv.Atoi(r.FormValue("questionIndex"))
	if err != nil || questionIndex < 1 {
		s.writeError(w, http.StatusBadRequest, "questionIndex must be a positive integer")
		return
	}

	video, _, err := r.FormFile("video")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "video file is required")
		return
	}
	defer video.Close()

	content, err := io.ReadAll(video)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "could not read video upload")
		return
	}

	if _, err := s.store.SaveClip(folder, questionIndex, content); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Session folder not found")
			return
		}
		s.logger.Error("save clip", zap.String("folder", folder), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not save clip")
		return
	}

	if err := s.store.RecordUpload(folder, questionIndex); err != nil {
		s.logger.Warn("record upload", zap.String("folder", folder), zap.Error(err))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"savedAs": fmt.Sprintf("Q%d.webm", questionIndex),
	})
}

func (s *Server) handleSessionFinish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token          string `json:"token"`
		Folder         string `json:"folder"`
		QuestionsCount int    `json:"questionsCount"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !s.checkToken(w, req.Token) {
		return
	}
	if req.QuestionsCount < 0 {
		s.writeError(w, http.StatusBadRequest, "questionsCount must not be negative")
		return
	}

	if err := s.store.FinalizeMetadata(req.Folder, req.QuestionsCount); err != nil {
		s.logger.Warn("finalize metadata", zap.String("folder", req.Folder), zap.Error(err))
	}

	if !s.selector.Available() {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"ok":           true,
			"transcribing": false,
			"message":      transcribe.ErrNoEngineAvailable.Error(),
		})
		return
	}

	go s.transcribeFn(req.Folder, req.QuestionsCount)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"transcribing": true,
		"engine":       s.selector.EngineName(),
	})
}

func (s *Server) handleTranscriptionStatus(w http.ResponseWriter, r *http.Request) {
	folder := r.PathValue("folder")

	snapshot, ok := s.tracker.Progress(folder)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("No transcription job found for folder %q", folder))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":              true,
		"folder":          folder,
		"status":          snapshot.Status,
		"progress":        snapshot.Progress,
		"success_count":   snapshot.SuccessCount,
		"failed_count":    snapshot.FailedCount,
		"failed_indices":  snapshot.FailedIndices,
		"questions_count": snapshot.QuestionsCount,
		"tasks":           snapshot.Tasks,
		"timestamps": map[string]any{
			"created_at":   snapshot.CreatedAt,
			"started_at":   snapshot.StartedAt,
			"completed_at": snapshot.CompletedAt,
		},
	})
}

func (s *Server) handleClearJob(w http.ResponseWriter, r *http.Request) {
	folder := r.PathValue("folder")
	s.tracker.ClearJob(folder)
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "folder": folder})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions, err := s.store.ListSessions()
	if err != nil {
		s.logger.Error("list sessions", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not list sessions")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"sessions":      sessions,
		"totalSessions": len(sessions),
	})
}

func (s *Server) handleGetTranscripts(w http.ResponseWriter, r *http.Request) {
	folder := r.PathValue("folder")

	meta, err := s.store.ReadMetadata(folder)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Session %q not found", folder))
			return
		}
		s.logger.Error("read metadata", zap.String("folder", folder), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not read session metadata")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":                true,
		"folder":            folder,
		"userName":          meta.UserName,
		"uploadedAt":        meta.UploadedAt,
		"finishedAt":        meta.FinishedAt,
		"questionsCount":    meta.QuestionsCount,
		"receivedQuestions": meta.ReceivedQuestions,
		"transcripts":       meta.Transcripts,
		"transcriptsCount":  len(meta.Transcripts),
	})
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	folder := r.PathValue("folder")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 1 {
		s.writeError(w, http.StatusBadRequest, "question index must be a positive integer")
		return
	}

	meta, err := s.store.ReadMetadata(folder)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Session %q not found", folder))
			return
		}
		s.logger.Error("read metadata", zap.String("folder", folder), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not read session metadata")
		return
	}

	entry, ok := meta.Transcripts[strconv.Itoa(index)]
	if !ok {
		s.writeError(w, http.StatusNotFound,
			fmt.Sprintf("Transcript for question %d not found in session %q", index, folder))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"folder":        folder,
		"userName":      meta.UserName,
		"questionIndex": index,
		"transcript":    entry,
	})
}

func (s *Server) handleExportTranscripts(w http.ResponseWriter, r *http.Request) {
	folder := r.PathValue("folder")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "txt"
	}

	data, contentType, err := s.store.Export(folder, format)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filename := fmt.Sprintf("%s_transcripts.%s", folder, format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("write export", zap.String("folder", folder), zap.Error(err))
	}
}
