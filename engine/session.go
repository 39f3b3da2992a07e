package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/d1nch8g/pushtalk/assistant"
)

// ResponseBuffer holds reply audio chunks in arrival order until the
// turn completes.
type ResponseBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

func (b *ResponseBuffer) Append(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, append([]byte(nil), chunk...))
	b.size += len(chunk)
}

// Chunks returns the buffered chunks in order.
func (b *ResponseBuffer) Chunks() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([][]byte(nil), b.chunks...)
}

func (b *ResponseBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.chunks)
}

func (b *ResponseBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.size
}

func (b *ResponseBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = nil
	b.size = 0
}

// Session is one trigger-initiated exchange.
type Session struct {
	ID        string
	StartedAt time.Time

	stream assistant.Stream
	buffer *ResponseBuffer

	ctx         context.Context
	cancel      context.CancelFunc
	captureCtx  context.Context
	stopCapture context.CancelFunc
	span        trace.Span

	streamerDone chan struct{}
	// set on the Run goroutine once the exchange has been reported finished
	finished bool

	// written by the interpreter before it reports completion
	request  string
	response string
}

func newSession(parent context.Context) *Session {
	id := uuid.NewString()
	spanCtx, span := tracer.Start(parent, "assistant turn",
		trace.WithAttributes(attribute.String("session.id", id)))

	ctx, cancel := context.WithCancel(spanCtx)
	captureCtx, stopCapture := context.WithCancel(ctx)

	return &Session{
		ID:           id,
		StartedAt:    time.Now(),
		buffer:       &ResponseBuffer{},
		ctx:          ctx,
		cancel:       cancel,
		captureCtx:   captureCtx,
		stopCapture:  stopCapture,
		span:         span,
		streamerDone: make(chan struct{}),
	}
}
