package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// audioFormat describes the intermediate audio encoding an engine wants.
type audioFormat struct {
	codec string
	ext   string
}

var (
	formatWAV  = audioFormat{codec: "pcm_s16le", ext: ".wav"}
	formatMP3  = audioFormat{codec: "libmp3lame", ext: ".mp3"}
	formatFLAC = audioFormat{codec: "flac", ext: ".flac"}
)

// extractAudio writes the uploaded clip to a temp workspace and uses ffmpeg
// to pull out a mono 16 kHz audio track in the requested format. The caller
// must invoke cleanup to remove the workspace.
func extractAudio(ctx context.Context, media []byte, format audioFormat) (audioPath string, cleanup func(), err error) {
	tempDir, err := os.MkdirTemp("", "mockview-extract-*")
	if err != nil {
		return "", nil, fmt.Errorf("create extraction workspace: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(tempDir) }

	videoPath := filepath.Join(tempDir, "clip.webm")
	if err := os.WriteFile(videoPath, media, 0o600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write clip to workspace: %w", err)
	}

	audioPath = filepath.Join(tempDir, "audio"+format.ext)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-nostdin", "-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", format.codec,
		audioPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cleanup()
		errText := strings.TrimSpace(stderr.String())
		if errText != "" {
			return "", nil, fmt.Errorf("extract audio: %w (%s)", err, errText)
		}
		return "", nil, fmt.Errorf("extract audio: %w", err)
	}

	return audioPath, cleanup, nil
}

func ffmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}
