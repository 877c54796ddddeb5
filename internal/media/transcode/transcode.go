package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Transcoder runs ffmpeg subprocesses to prepare audio for transcription.
type Transcoder struct {
	// Binary is the ffmpeg executable name or path. Empty means "ffmpeg".
	Binary string
	// WorkDir receives temporary outputs. Empty means the OS temp directory.
	WorkDir string
}

func (t *Transcoder) binary() string {
	if b := strings.TrimSpace(t.Binary); b != "" {
		return b
	}
	return "ffmpeg"
}

func (t *Transcoder) workDir() string {
	if d := strings.TrimSpace(t.WorkDir); d != "" {
		return d
	}
	return os.TempDir()
}

// ConvertToCanonical decodes source and resamples it to the canonical
// transcription format: 16 kHz mono signed 16-bit PCM WAV. Returns the path
// of the generated file. ffmpeg exiting zero without a readable output is a
// hard failure, never swallowed.
func (t *Transcoder) ConvertToCanonical(ctx context.Context, source string) (string, error) {
	dest := filepath.Join(t.workDir(), uuid.NewString()+".wav")
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := exec.CommandContext(ctx, t.binary(), args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("ffmpeg convert: %w: %s", err, strings.TrimSpace(string(output)))
	}

	info, err := os.Stat(dest)
	if err != nil {
		return "", fmt.Errorf("ffmpeg convert: output missing after successful run: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(dest)
		return "", fmt.Errorf("ffmpeg convert: output empty after successful run")
	}
	return dest, nil
}

// ExtractPrefix copies the first durationSec seconds of the best audio stream
// into a new container without re-encoding. Used to generate small samples
// for auto-naming without paying full-file transcode cost.
func (t *Transcoder) ExtractPrefix(ctx context.Context, source string, durationSec int) (string, error) {
	if durationSec <= 0 {
		return "", fmt.Errorf("extract prefix: invalid duration %d", durationSec)
	}
	dest := filepath.Join(t.workDir(), uuid.NewString()+filepath.Ext(source))
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-t", strconv.Itoa(durationSec),
		"-i", source,
		"-map", "0:a:0",
		"-c", "copy",
		dest,
	}
	cmd := exec.CommandContext(ctx, t.binary(), args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("ffmpeg extract prefix: %w: %s", err, strings.TrimSpace(string(output)))
	}

	if info, err := os.Stat(dest); err != nil || info.Size() == 0 {
		_ = os.Remove(dest)
		return "", fmt.Errorf("ffmpeg extract prefix: output missing after successful run")
	}
	return dest, nil
}

// IsCanonical reports whether path already carries the canonical WAV
// extension, in which case conversion can be skipped.
func IsCanonical(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}
