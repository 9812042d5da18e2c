package encoder

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// SampleRate probes the sample rate of the first audio stream in hertz.
func (f *FFmpeg) SampleRate(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, f.probeBin,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	rate, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", strings.TrimSpace(string(out)), err)
	}
	return rate, nil
}
