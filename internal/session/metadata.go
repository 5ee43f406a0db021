package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

const metadataFileName = "meta.json"

// TranscriptEntry is one question's persisted transcript.
type TranscriptEntry struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	CreatedAt  string  `json:"createdAt"`
}

// Metadata is the durable per-session record kept in meta.json.
type Metadata struct {
	UserName          string                     `json:"userName"`
	UploadedAt        string                     `json:"uploadedAt,omitempty"`
	FinishedAt        string                     `json:"finishedAt,omitempty"`
	TimeZone          string                     `json:"timeZone"`
	QuestionsCount    int                        `json:"questionsCount,omitempty"`
	ReceivedQuestions []int                      `json:"receivedQuestions"`
	Transcripts       map[string]TranscriptEntry `json:"transcripts,omitempty"`
}

func (s *Store) metadataPath(folder string) string {
	return filepath.Join(s.baseDir, folder, metadataFileName)
}

// ReadMetadata loads a session's metadata, reporting ErrNotFound when the
// session has no metadata file.
func (s *Store) ReadMetadata(folder string) (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readMetadata(folder)
}

func (s *Store) readMetadata(folder string) (Metadata, error) {
	content, err := os.ReadFile(s.metadataPath(folder))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Metadata{}, ErrNotFound
		}
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(content, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	return meta, nil
}

func (s *Store) writeMetadata(folder string, meta Metadata) error {
	content, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(folder), content, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// RecordUpload marks a question clip as received and refreshes the upload
// timestamp. Missing metadata is a logged no-op so a stray upload cannot
// fail the whole request.
func (s *Store) RecordUpload(folder string, questionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMetadata(folder)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("upload recorded for session without metadata", zap.String("folder", folder))
			return nil
		}
		return err
	}

	meta.UploadedAt = s.now().Format(time.RFC3339)
	if !containsInt(meta.ReceivedQuestions, questionIndex) {
		meta.ReceivedQuestions = append(meta.ReceivedQuestions, questionIndex)
	}
	return s.writeMetadata(folder, meta)
}

// RecordTranscript persists one question's transcript into the metadata and
// re-renders the human-readable transcripts.txt alongside the clips.
func (s *Store) RecordTranscript(folder string, questionIndex int, text string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMetadata(folder)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("transcript recorded for session without metadata", zap.String("folder", folder))
			return nil
		}
		return err
	}

	if meta.Transcripts == nil {
		meta.Transcripts = make(map[string]TranscriptEntry)
	}
	meta.Transcripts[fmt.Sprintf("%d", questionIndex)] = TranscriptEntry{
		Text:       text,
		Confidence: confidence,
		CreatedAt:  s.now().Format(time.RFC3339),
	}

	if err := s.writeMetadata(folder, meta); err != nil {
		return err
	}

	// Best effort: the metadata write is the source of truth.
	if err := s.renderTranscriptsFile(folder, meta); err != nil {
		s.logger.Warn("could not render transcripts.txt",
			zap.String("folder", folder), zap.Error(err))
	}
	return nil
}

// FinalizeMetadata stamps the finish time and the expected question count
// when the client ends the session. Missing metadata is a logged no-op.
func (s *Store) FinalizeMetadata(folder string, questionsCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMetadata(folder)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("finalize for session without metadata", zap.String("folder", folder))
			return nil
		}
		return err
	}

	meta.FinishedAt = s.now().Format(time.RFC3339)
	meta.QuestionsCount = questionsCount
	return s.writeMetadata(folder, meta)
}

// Info summarizes one session for listings.
type Info struct {
	Folder           string `json:"folder"`
	UserName         string `json:"userName"`
	TranscriptsCount int    `json:"transcriptsCount"`
	QuestionsCount   int    `json:"questionsCount"`
	UploadedAt       string `json:"uploadedAt,omitempty"`
	FinishedAt       string `json:"finishedAt,omitempty"`
}

// ListSessions returns every session that has transcripts, newest upload
// first. Unreadable folders are skipped.
func (s *Store) ListSessions() ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("read uploads directory: %w", err)
	}

	sessions := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.readMetadata(entry.Name())
		if err != nil {
			continue
		}
		if len(meta.Transcripts) == 0 {
			continue
		}
		sessions = append(sessions, Info{
			Folder:           entry.Name(),
			UserName:         meta.UserName,
			TranscriptsCount: len(meta.Transcripts),
			QuestionsCount:   meta.QuestionsCount,
			UploadedAt:       meta.UploadedAt,
			FinishedAt:       meta.FinishedAt,
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UploadedAt > sessions[j].UploadedAt
	})
	return sessions, nil
}

func containsInt(values []int, target int) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
