package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Confidence reported for local whisper transcripts. whisper-cli does not
// emit a usable confidence score, so a fixed nominal value is used.
const whisperConfidence = 0.95

const defaultModelSize = "small"

// WhisperEngine shells out to a locally installed whisper-cli binary.
type WhisperEngine struct {
	executable string
	modelDir   string
	logger     *zap.Logger
}

func loadWhisperEngine(logger *zap.Logger) (Engine, error) {
	return NewWhisperEngine(logger)
}

// NewWhisperEngine locates whisper-cli and the model directory. The binary
// can be pinned with MOCKVIEW_WHISPER_PATH; models live in
// MOCKVIEW_MODEL_DIR or ~/.mockview/models. An error means the engine is
// unavailable on this host, not that something is broken.
func NewWhisperEngine(logger *zap.Logger) (*WhisperEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !ffmpegAvailable() {
		return nil, errors.New("ffmpeg not found in PATH")
	}

	executable := strings.TrimSpace(os.Getenv("MOCKVIEW_WHISPER_PATH"))
	if executable != "" {
		if err := ensureExecutable(executable); err != nil {
			return nil, fmt.Errorf("MOCKVIEW_WHISPER_PATH is not executable: %w", err)
		}
	} else {
		found, err := exec.LookPath("whisper-cli")
		if err != nil {
			return nil, errors.New("whisper-cli not found in PATH")
		}
		executable = found
	}

	modelDir, err := resolveModelDir()
	if err != nil {
		return nil, err
	}
	if _, err := listModelFiles(modelDir); err != nil {
		return nil, err
	}

	return &WhisperEngine{executable: executable, modelDir: modelDir, logger: logger}, nil
}

func (e *WhisperEngine) Name() string { return "Whisper Local" }

func (e *WhisperEngine) Capabilities() Capabilities {
	return Capabilities{Language: true, Translate: true, ModelSize: true}
}

func (e *WhisperEngine) Transcribe(ctx context.Context, media []byte, opts Options) (Transcription, error) {
	audioPath, cleanup, err := extractAudio(ctx, media, formatWAV)
	if err != nil {
		return Transcription{}, err
	}
	defer cleanup()

	modelPath, err := e.resolveModel(opts.ModelSize)
	if err != nil {
		return Transcription{}, err
	}

	outBase := filepath.Join(os.TempDir(), fmt.Sprintf("mockview-%d", time.Now().UnixNano()))
	txtOut := outBase + ".txt"

	args := []string{"-m", modelPath, "-f", audioPath, "-nt", "-otxt", "-of", outBase}
	lang := strings.TrimSpace(opts.Language)
	if lang != "" && lang != "auto" {
		args = append(args, "-l", lang)
	}
	if opts.TranslateToEnglish {
		args = append(args, "-tr")
	}

	cmd := exec.CommandContext(ctx, e.executable, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Debug("running whisper-cli", zap.String("model", modelPath), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if errText != "" {
			return Transcription{}, fmt.Errorf("whisper transcribe failed: %w (%s)", err, errText)
		}
		return Transcription{}, fmt.Errorf("whisper transcribe failed: %w", err)
	}

	defer os.Remove(txtOut)
	content, err := os.ReadFile(txtOut)
	if err != nil {
		return Transcription{}, fmt.Errorf("read whisper output: %w", err)
	}

	return Transcription{
		Text:       strings.TrimSpace(string(content)),
		Confidence: whisperConfidence,
	}, nil
}

// resolveModel maps a size name to ggml-<size>.bin in the model directory,
// falling back to the first installed model when the named one is missing.
func (e *WhisperEngine) resolveModel(modelSize string) (string, error) {
	size := strings.TrimSpace(modelSize)
	if size == "" {
		size = defaultModelSize
	}

	named := filepath.Join(e.modelDir, fmt.Sprintf("ggml-%s.bin", size))
	if _, err := os.Stat(named); err == nil {
		return named, nil
	}

	models, err := listModelFiles(e.modelDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(e.modelDir, models[0]), nil
}

func resolveModelDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("MOCKVIEW_MODEL_DIR")); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".mockview", "models"), nil
}

func listModelFiles(modelDir string) ([]string, error) {
	entries, err := os.ReadDir(modelDir)
	if err != nil {
		return nil, fmt.Errorf("read model directory %s: %w", modelDir, err)
	}

	models := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			models = append(models, entry.Name())
		}
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no whisper models found in %s", modelDir)
	}

	sort.Strings(models)
	return models, nil
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
