// Package encoder wraps the external ffmpeg binary with the fixed
// normalization profile every effect goes through before publishing:
// audio streams only, resampled to 44.1 kHz, loudness normalized.
package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// EncodeError reports an encoder subprocess failure, either at spawn
// or a non-zero exit.
type EncodeError struct {
	Err    error
	Stderr string
}

func (e *EncodeError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("ffmpeg failed: %v: %s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("ffmpeg failed: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

var _ error = (*EncodeError)(nil)

type FFmpeg struct {
	bin      string
	probeBin string
}

func NewFFmpeg(bin, probeBin string) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	if probeBin == "" {
		probeBin = "ffprobe"
	}
	return &FFmpeg{bin: bin, probeBin: probeBin}
}

// NormalizeArgs is the fixed encode profile. Video streams are
// stripped, only audio is mapped, output is 44.1 kHz with a loudnorm
// filter applied. The output container comes from the path extension.
func NormalizeArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-vn",
		"-analyzeduration", "0",
		"-loglevel", "error",
		"-ar", "44100",
		"-map", "a",
		"-filter:a", "loudnorm",
		outputPath,
	}
}

// Normalize transcodes inputPath to the canonical profile at
// outputPath. A cancelled context kills the subprocess.
func (f *FFmpeg) Normalize(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, f.bin, NormalizeArgs(inputPath, outputPath)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &EncodeError{Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}
	return nil
}
