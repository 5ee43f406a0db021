package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a session folder or its metadata is missing.
var ErrNotFound = errors.New("session not found")

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeName replaces every character outside [A-Za-z0-9_-] so user input
// can never escape the uploads directory or break folder parsing.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// Store manages session folders under one uploads directory: clip files,
// per-session meta.json, and the rendered transcripts.txt. Metadata
// read-modify-write cycles are serialized by a store-wide mutex because
// upload handlers and the background transcription goroutine both write it.
type Store struct {
	mu      sync.Mutex
	baseDir string
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore creates a store rooted at baseDir. The directory is created on
// first use, not here.
func NewStore(baseDir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{baseDir: baseDir, logger: logger, now: time.Now}
}

// FolderName builds the timestamped session folder name for a user,
// DD_MM_YYYY_HH_MM_<sanitized-name>.
func (s *Store) FolderName(userName string) string {
	return s.now().Format("02_01_2006_15_04_") + SanitizeName(userName)
}

// FolderPath returns the absolute path of a session folder.
func (s *Store) FolderPath(folder string) string {
	return filepath.Join(s.baseDir, folder)
}

// ClipPath returns where the clip for a question index is stored.
func (s *Store) ClipPath(folder string, questionIndex int) string {
	return filepath.Join(s.baseDir, folder, fmt.Sprintf("Q%d.webm", questionIndex))
}

// EnsureFolder creates the session folder and seeds its metadata file.
func (s *Store) EnsureFolder(folder, userName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.FolderPath(folder)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create session folder %s: %w", path, err)
	}

	meta := Metadata{
		UserName:          userName,
		TimeZone:          s.now().Location().String(),
		ReceivedQuestions: []int{},
	}
	return s.writeMetadata(folder, meta)
}

// SaveClip persists an uploaded question clip as Q<i>.webm. The session
// folder must already exist.
func (s *Store) SaveClip(folder string, questionIndex int, content []byte) (string, error) {
	path := s.FolderPath(folder)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat session folder: %w", err)
	}

	clipPath := s.ClipPath(folder, questionIndex)
	if err := os.WriteFile(clipPath, content, 0o644); err != nil {
		return "", fmt.Errorf("write clip %s: %w", clipPath, err)
	}
	return clipPath, nil
}

// BatchItems lists the expected clip paths for a session in question order.
// Paths are returned regardless of existence; the batch driver reports
// missing clips per item.
func (s *Store) BatchItems(folder string, questionsCount int) []ClipRef {
	items := make([]ClipRef, 0, questionsCount)
	for i := 1; i <= questionsCount; i++ {
		items = append(items, ClipRef{QuestionIndex: i, Path: s.ClipPath(folder, i)})
	}
	return items
}

// ClipRef pairs a question index with its clip path on disk.
type ClipRef struct {
	QuestionIndex int
	Path          string
}
