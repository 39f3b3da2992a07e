package vision

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultMinConfidence = 0.6
	DefaultMaxAttempts   = 3

	unknownTitle = "???"
)

// Label is one classification result for a captured picture.
type Label struct {
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
}

type Camera interface {
	CaptureAndClassify(ctx context.Context) ([]Label, error)
}

type Announcer interface {
	Speak(text string)
}

// Coordinator runs capture cycles requested by device actions and
// announces what it recognised.
type Coordinator struct {
	camera        Camera
	announcer     Announcer
	minConfidence float64
	maxAttempts   int
	logger        *slog.Logger

	requests chan struct{}
}

type CoordinatorOption func(*Coordinator)

func WithMinConfidence(threshold float64) CoordinatorOption {
	return func(c *Coordinator) {
		if threshold > 0 {
			c.minConfidence = threshold
		}
	}
}

func WithMaxAttempts(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func NewCoordinator(camera Camera, announcer Announcer, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		camera:        camera,
		announcer:     announcer,
		minConfidence: DefaultMinConfidence,
		maxAttempts:   DefaultMaxAttempts,
		logger:        logger,
		requests:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestCapture asks for a capture cycle. Requests made while one is
// already waiting are merged.
func (c *Coordinator) RequestCapture() {
	select {
	case c.requests <- struct{}{}:
	default:
	}
}

func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.requests:
			c.cycle(ctx)
		}
	}
}

func (c *Coordinator) cycle(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "capture cycle")
	defer span.End()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}

		labels, err := c.camera.CaptureAndClassify(ctx)
		if err != nil {
			span.RecordError(err)
			c.logger.Warn("capture failed", "attempt", attempt, "error", err)
			continue
		}
		if c.OnClassified(labels) {
			span.SetAttributes(attribute.Int("attempts", attempt))
			return
		}
		c.logger.Debug("nothing recognised, retaking picture", "attempt", attempt)
	}

	span.SetStatus(codes.Error, "nothing recognised")
	c.logger.Info("giving up on capture", "attempts", c.maxAttempts)
}

// OnClassified announces every accepted label and reports whether any
// label was accepted.
func (c *Coordinator) OnClassified(labels []Label) bool {
	accepted := Filter(labels, c.minConfidence)
	for _, label := range accepted {
		c.announcer.Speak(label.Title)
	}
	return len(accepted) > 0
}

// Filter keeps labels at or above threshold with a known title.
func Filter(labels []Label, threshold float64) []Label {
	var out []Label
	for _, label := range labels {
		if label.Confidence < threshold || label.Title == "" || label.Title == unknownTitle {
			continue
		}
		out = append(out, label)
	}
	return out
}
