package engine

import (
	"errors"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/d1nch8g/pushtalk/actions"
	"github.com/d1nch8g/pushtalk/assistant"
)

// interpret applies inbound messages in arrival order until the server
// completes the exchange.
func (c *Controller) interpret(sess *Session) {
	for {
		parts, err := sess.stream.Recv()
		if errors.Is(err, io.EOF) {
			c.post(streamFinished{sessionID: sess.ID})
			return
		}
		if err != nil {
			c.post(streamFinished{sessionID: sess.ID, err: &TransportError{Op: "recv", Err: err}})
			return
		}

		for _, part := range parts {
			c.apply(sess, part)
		}
	}
}

func (c *Controller) apply(sess *Session, part assistant.Inbound) {
	switch p := part.(type) {
	case assistant.EndOfUtterance:
		c.post(drainRequest{sessionID: sess.ID, reason: "end of utterance"})

	case assistant.Transcript:
		sess.request = p.Text
		if c.history != nil {
			c.history.AddRequest(p.Text)
		} else {
			c.logger.Info("request transcript", "session", sess.ID, "text", p.Text)
		}

	case assistant.DialogUpdate:
		c.conversation.SetContinuationToken(p.ContinuationToken)
		if c.conversation.SetVolume(p.VolumePercentage) {
			c.playback.SetOutputLevel(c.conversation.Volume())
		}
		if p.DisplayText != "" {
			sess.response = p.DisplayText
			if c.history != nil {
				c.history.AddResponse(p.DisplayText)
			}
		}
		if p.FollowOn {
			c.logger.Debug("assistant expects a follow-on request", "session", sess.ID)
		}

	case assistant.AudioOut:
		sess.buffer.Append(p.Data)
		if c.indicator != nil {
			c.indicator.ToggleIndicator()
		}

	case assistant.DeviceAction:
		c.handleDeviceAction(sess, p.RequestJSON)
	}
}

func (c *Controller) handleDeviceAction(sess *Session, payload []byte) {
	commands, errs := actions.ParsePayload(payload)
	for _, err := range errs {
		sess.span.AddEvent("malformed device action", trace.WithAttributes(attribute.String("error", err.Error())))
		c.logger.Warn("skipping device action entry", "session", sess.ID, "error", err)
	}

	if c.dispatcher == nil {
		return
	}
	for _, cmd := range commands {
		c.dispatcher.Dispatch(cmd)
	}
}
