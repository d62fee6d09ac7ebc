package acquire

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FFmpegNormaliser applies EBU R128 loudness normalisation via ffmpeg's
// loudnorm filter, targeting the parameters §6 specifies: I=-16 LUFS,
// TP=-1.5 dBTP, LRA=11, 44.1kHz/320kbps MP3 output. It uses the same
// os/exec subprocess pattern as the teacher's ffmpeg invocations in
// analyzer.go/renderer.go, with a hard timeout instead of running
// unbounded.
type FFmpegNormaliser struct {
	FFmpegPath string
	Timeout    time.Duration
}

func NewFFmpegNormaliser(ffmpegPath string, timeout time.Duration) *FFmpegNormaliser {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &FFmpegNormaliser{FFmpegPath: ffmpegPath, Timeout: timeout}
}

func (n *FFmpegNormaliser) Normalise(ctx context.Context, path, destDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.Timeout)
	defer cancel()

	outPath := filepath.Join(destDir, fmt.Sprintf("norm_%s.mp3", uuid.NewString()[:8]))

	cmd := exec.CommandContext(ctx, n.FFmpegPath,
		"-v", "error",
		"-y",
		"-i", path,
		"-af", "loudnorm=I=-16:TP=-1.5:LRA=11",
		"-ar", "44100",
		"-b:a", "320k",
		outPath,
	)
	hideWindow(cmd)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg loudnorm: %w: %s", err, stderr.String())
	}
	if info, statErr := os.Stat(outPath); statErr != nil || info.Size() == 0 {
		os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg loudnorm: produced empty output")
	}
	return outPath, nil
}
