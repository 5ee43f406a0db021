package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const openaiTranscriptionsURL = "https://api.openai.com/v1/audio/transcriptions"

// Confidence reported for OpenAI transcripts; the API does not return one.
const openaiConfidence = 0.9

// OpenAIEngine calls the hosted OpenAI audio transcription endpoint.
type OpenAIEngine struct {
	apiKey string
	model  string
	client *http.Client
	logger *zap.Logger
}

func loadOpenAIEngine(logger *zap.Logger) (Engine, error) {
	return NewOpenAIEngine(logger)
}

// NewOpenAIEngine requires OPENAI_API_KEY; without it the engine reports
// itself unavailable so the selector can try the next candidate.
func NewOpenAIEngine(logger *zap.Logger) (*OpenAIEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	if !ffmpegAvailable() {
		return nil, errors.New("ffmpeg not found in PATH")
	}

	return &OpenAIEngine{
		apiKey: apiKey,
		model:  "whisper-1",
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
	}, nil
}

func (e *OpenAIEngine) Name() string { return "OpenAI Whisper API" }

func (e *OpenAIEngine) Capabilities() Capabilities {
	return Capabilities{Language: true}
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, media []byte, opts Options) (Transcription, error) {
	audioPath, cleanup, err := extractAudio(ctx, media, formatMP3)
	if err != nil {
		return Transcription{}, err
	}
	defer cleanup()

	audio, err := os.Open(audioPath)
	if err != nil {
		return Transcription{}, fmt.Errorf("open extracted audio: %w", err)
	}
	defer audio.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", e.model); err != nil {
		return Transcription{}, err
	}
	if lang := strings.TrimSpace(opts.Language); lang != "" && lang != "auto" {
		if err := mw.WriteField("language", lang); err != nil {
			return Transcription{}, err
		}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return Transcription{}, err
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return Transcription{}, err
	}
	if err := mw.Close(); err != nil {
		return Transcription{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiTranscriptionsURL, &body)
	if err != nil {
		return Transcription{}, err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return Transcription{}, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Transcription{}, fmt.Errorf("openai http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Transcription{}, fmt.Errorf("decode openai response: %w", err)
	}

	return Transcription{
		Text:       strings.TrimSpace(parsed.Text),
		Confidence: openaiConfidence,
	}, nil
}
