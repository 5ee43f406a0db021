package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const googleRecognizeURL = "https://speech.googleapis.com/v1/speech:recognize"

// GoogleSpeechEngine calls the Google Speech-to-Text recognize endpoint.
type GoogleSpeechEngine struct {
	apiKey string
	client *http.Client
	logger *zap.Logger
}

func loadGoogleSpeechEngine(logger *zap.Logger) (Engine, error) {
	return NewGoogleSpeechEngine(logger)
}

// NewGoogleSpeechEngine requires GOOGLE_SPEECH_API_KEY; without it the
// engine reports itself unavailable.
func NewGoogleSpeechEngine(logger *zap.Logger) (*GoogleSpeechEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := strings.TrimSpace(os.Getenv("GOOGLE_SPEECH_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("GOOGLE_SPEECH_API_KEY not set")
	}
	if !ffmpegAvailable() {
		return nil, errors.New("ffmpeg not found in PATH")
	}

	return &GoogleSpeechEngine{
		apiKey: apiKey,
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
	}, nil
}

func (e *GoogleSpeechEngine) Name() string { return "Google Speech-to-Text" }

func (e *GoogleSpeechEngine) Capabilities() Capabilities {
	return Capabilities{Language: true}
}

type googleRecognizeRequest struct {
	Config googleRecognizeConfig `json:"config"`
	Audio  googleRecognizeAudio  `json:"audio"`
}

type googleRecognizeConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
}

type googleRecognizeAudio struct {
	Content string `json:"content"`
}

type googleRecognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

func (e *GoogleSpeechEngine) Transcribe(ctx context.Context, media []byte, opts Options) (Transcription, error) {
	audioPath, cleanup, err := extractAudio(ctx, media, formatFLAC)
	if err != nil {
		return Transcription{}, err
	}
	defer cleanup()

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return Transcription{}, fmt.Errorf("read extracted audio: %w", err)
	}

	lang := strings.TrimSpace(opts.Language)
	if lang == "" || lang == "auto" {
		lang = "en-US"
	}

	payload, err := json.Marshal(googleRecognizeRequest{
		Config: googleRecognizeConfig{
			Encoding:        "FLAC",
			SampleRateHertz: 16000,
			LanguageCode:    lang,
		},
		Audio: googleRecognizeAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	})
	if err != nil {
		return Transcription{}, err
	}

	endpoint := googleRecognizeURL + "?key=" + url.QueryEscape(e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Transcription{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Transcription{}, fmt.Errorf("google speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Transcription{}, fmt.Errorf("google speech http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed googleRecognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Transcription{}, fmt.Errorf("decode google speech response: %w", err)
	}

	var parts []string
	confidence := 0.0
	for _, result := range parsed.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		best := result.Alternatives[0]
		parts = append(parts, strings.TrimSpace(best.Transcript))
		if best.Confidence > confidence {
			confidence = best.Confidence
		}
	}

	return Transcription{
		Text:       strings.Join(parts, " "),
		Confidence: confidence,
	}, nil
}
