package opus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vgreer/soundbot/internal/voice"
)

// Streamer plays canonical effect files over a voice connection. It is
// the voice manager's Player.
type Streamer struct {
	FFmpegBin string
}

func (s *Streamer) Play(ctx context.Context, conn voice.Conn, path string) error {
	frames, err := Encode(ctx, s.FFmpegBin, path)
	if err != nil {
		return fmt.Errorf("unable to start opus encode: %w", err)
	}
	defer frames.Close()

	if err := conn.Speaking(true); err != nil {
		return fmt.Errorf("error setting speaking state to 'true': %w", err)
	}
	defer func() {
		if err := conn.Speaking(false); err != nil {
			slog.Error("failed to stop speaking", "error", err)
		}
	}()

	return StreamFrames(NewFrameReader(frames), conn.OpusSend())
}

var _ voice.Player = (*Streamer)(nil)
