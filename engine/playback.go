package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PlaybackSequencer plays a completed reply strictly in buffer order.
type PlaybackSequencer struct {
	out Playback
}

func NewPlaybackSequencer(out Playback) *PlaybackSequencer {
	return &PlaybackSequencer{out: out}
}

// Play brackets the chunks with BeginPlayback and EndPlayback. Remaining
// chunks are skipped once ctx is done.
func (p *PlaybackSequencer) Play(ctx context.Context, chunks [][]byte) (err error) {
	if len(chunks) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "play reply")
	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := p.out.BeginPlayback(); err != nil {
		return fmt.Errorf("failed to begin playback: %w", err)
	}

	for i, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}
		if err := p.out.EnqueuePlayback(chunk); err != nil {
			_ = p.out.EndPlayback()
			return fmt.Errorf("failed to play chunk %d: %w", i, err)
		}
	}

	if err := p.out.EndPlayback(); err != nil {
		return fmt.Errorf("failed to end playback: %w", err)
	}
	return nil
}
