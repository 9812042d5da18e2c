package opus

import (
	"errors"
	"io"
	"time"
)

var ErrSendTimeout = errors.New("voice connection send timeout")

// StreamFrames reads Opus frames from source and pushes them to send.
// It blocks until all frames are sent or an error occurs. Returns nil
// on clean EOF.
func StreamFrames(source *FrameReader, send chan<- []byte) error {
	for {
		frame, err := source.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		timer := time.NewTimer(time.Minute)
		select {
		case send <- frame:
			timer.Stop()
		case <-timer.C:
			return ErrSendTimeout
		}
	}
}
