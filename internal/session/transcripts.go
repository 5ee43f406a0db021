package session

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const transcriptsFileName = "transcripts.txt"

// ExportFormats lists the supported transcript export formats.
var ExportFormats = []string{"txt", "csv", "json"}

// sortedTranscriptIndices returns the transcript keys in question order.
func sortedTranscriptIndices(transcripts map[string]TranscriptEntry) []int {
	indices := make([]int, 0, len(transcripts))
	for key := range transcripts {
		if index, err := strconv.Atoi(key); err == nil {
			indices = append(indices, index)
		}
	}
	sort.Ints(indices)
	return indices
}

func (s *Store) renderTranscriptsFile(folder string, meta Metadata) error {
	if len(meta.Transcripts) == 0 {
		return nil
	}

	path := filepath.Join(s.baseDir, folder, transcriptsFileName)
	return os.WriteFile(path, renderTranscriptsText(folder, meta), 0o644)
}

func renderTranscriptsText(folder string, meta Metadata) []byte {
	divider := strings.Repeat("=", 60)
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Interview Transcripts - %s\n", meta.UserName)
	fmt.Fprintf(&buf, "Folder: %s\n", folder)
	fmt.Fprintf(&buf, "Date: %s\n", valueOr(meta.UploadedAt, "N/A"))
	fmt.Fprintf(&buf, "%s\n\n", divider)

	for _, index := range sortedTranscriptIndices(meta.Transcripts) {
		entry := meta.Transcripts[strconv.Itoa(index)]
		fmt.Fprintf(&buf, "Question %d:\n", index)
		fmt.Fprintf(&buf, "%s\n", strings.Repeat("-", 60))
		fmt.Fprintf(&buf, "%s\n", entry.Text)
		fmt.Fprintf(&buf, "\nConfidence: %.2f%%\n", entry.Confidence*100)
		fmt.Fprintf(&buf, "Created: %s\n", valueOr(entry.CreatedAt, "N/A"))
		fmt.Fprintf(&buf, "\n%s\n\n", divider)
	}

	return buf.Bytes()
}

func renderTranscriptsCSV(meta Metadata) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Question", "Transcript", "Confidence", "Created At"}); err != nil {
		return nil, err
	}
	for _, index := range sortedTranscriptIndices(meta.Transcripts) {
		entry := meta.Transcripts[strconv.Itoa(index)]
		record := []string{
			fmt.Sprintf("Q%d", index),
			entry.Text,
			fmt.Sprintf("%.2f%%", entry.Confidence*100),
			valueOr(entry.CreatedAt, "N/A"),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

func renderTranscriptsJSON(folder string, meta Metadata) ([]byte, error) {
	export := struct {
		UserName       string                     `json:"userName"`
		Folder         string                     `json:"folder"`
		UploadedAt     string                     `json:"uploadedAt,omitempty"`
		FinishedAt     string                     `json:"finishedAt,omitempty"`
		QuestionsCount int                        `json:"questionsCount"`
		Transcripts    map[string]TranscriptEntry `json:"transcripts"`
	}{
		UserName:       meta.UserName,
		Folder:         folder,
		UploadedAt:     meta.UploadedAt,
		FinishedAt:     meta.FinishedAt,
		QuestionsCount: meta.QuestionsCount,
		Transcripts:    make(map[string]TranscriptEntry, len(meta.Transcripts)),
	}
	for _, index := range sortedTranscriptIndices(meta.Transcripts) {
		export.Transcripts[fmt.Sprintf("Q%d", index)] = meta.Transcripts[strconv.Itoa(index)]
	}
	return json.MarshalIndent(export, "", "  ")
}

// Export renders a session's transcripts in the requested format and
// returns the payload with its media type.
func (s *Store) Export(folder, format string) ([]byte, string, error) {
	meta, err := s.ReadMetadata(folder)
	if err != nil {
		return nil, "", err
	}
	if len(meta.Transcripts) == 0 {
		return nil, "", fmt.Errorf("no transcripts found in session %q: %w", folder, ErrNotFound)
	}

	switch format {
	case "txt":
		return renderTranscriptsText(folder, meta), "text/plain", nil
	case "csv":
		data, err := renderTranscriptsCSV(meta)
		return data, "text/csv", err
	case "json":
		data, err := renderTranscriptsJSON(folder, meta)
		return data, "application/json", err
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
