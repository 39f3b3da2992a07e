package engine

import (
	"errors"
	"io"

	"github.com/d1nch8g/pushtalk/assistant"
)

// streamAudio forwards captured frames while the turn is streaming. It is
// the only goroutine that sends on the session stream after the start
// config.
func (c *Controller) streamAudio(sess *Session) {
	defer close(sess.streamerDone)
	defer func() {
		if err := sess.stream.CloseSend(); err != nil {
			c.logger.Debug("close send failed", "session", sess.ID, "error", err)
		}
	}()
	defer func() {
		if err := c.capture.StopCapture(); err != nil {
			c.logger.Warn("failed to stop capture", "session", sess.ID, "error", err)
		}
	}()

	frames := 0
	for sess.captureCtx.Err() == nil && c.State() == Streaming {
		frame, err := c.capture.CaptureFrame(sess.captureCtx)
		if err != nil {
			if sess.captureCtx.Err() == nil {
				c.logger.Warn("capture failed, ending request", "session", sess.ID, "error", err)
				c.post(drainRequest{sessionID: sess.ID, reason: "capture failed"})
			}
			break
		}
		if sess.captureCtx.Err() != nil || c.State() != Streaming {
			break
		}

		if err := sess.stream.Send(assistant.AudioIn{Data: frame}); err != nil {
			// io.EOF means the server closed the exchange; Recv reports why.
			if !errors.Is(err, io.EOF) {
				c.post(streamFinished{sessionID: sess.ID, err: &TransportError{Op: "send", Err: err}})
			}
			break
		}
		frames++
	}
	c.logger.Debug("audio stream ended", "session", sess.ID, "frames", frames)
}
