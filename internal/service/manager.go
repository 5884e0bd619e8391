package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"agrovision/internal/dto"
	"agrovision/internal/logger"
	"agrovision/internal/service/dispatch"
	"agrovision/internal/service/ratelimit"
	"agrovision/internal/service/tracker"
)

var (
	// ErrNoFrame is returned by a FrameSource when a read failed transiently.
	ErrNoFrame = errors.New("no frame available")
	// ErrStopRequested is returned by a renderer when the user asked to quit.
	ErrStopRequested = errors.New("stop requested")
)

// Frame is one captured image.
type Frame interface {
	// Snapshot returns an independent copy that outlives the next Read.
	Snapshot() (dispatch.Snapshot, error)
}

// FrameSource yields frames. Read returns ErrNoFrame on a transient failure
// and io.EOF when the stream has ended. The returned frame is only valid
// until the next Read.
type FrameSource interface {
	Read() (Frame, error)
	Close() error
}

// MarkerDetector finds markers in a frame.
type MarkerDetector interface {
	Detect(frame Frame) ([]dto.MarkerDetection, error)
}

// OverlayRenderer displays a frame and its detections. It never affects
// tracking state.
type OverlayRenderer interface {
	Render(frame Frame, detections []dto.MarkerDetection) error
}

// Dispatcher receives confirmations. Snapshots are only taken for a
// persistent dispatcher.
type Dispatcher interface {
	Dispatch(confirmations []dispatch.Confirmation)
	Persistent() bool
}

// Manager runs the control loop: capture, rate-limit gate, detect, track,
// dispatch and render, one frame at a time.
type Manager struct {
	source     FrameSource
	detector   MarkerDetector
	renderer   OverlayRenderer // optional
	dispatcher Dispatcher
	limiter    *ratelimit.Limiter
	tracker    *tracker.Tracker
	logger     *logger.Logger
	now        func() time.Time
	idle       time.Duration

	frames    uint64
	processed uint64
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock injects the time source used for rate limiting and tracking.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRenderer sets the overlay renderer.
func WithRenderer(r OverlayRenderer) Option {
	return func(m *Manager) { m.renderer = r }
}

// WithIdleDelay sets how long the loop waits after a failed read.
func WithIdleDelay(d time.Duration) Option {
	return func(m *Manager) { m.idle = d }
}

// NewManager wires the control loop. The tracker's first epoch starts at the
// manager's clock reading.
func NewManager(source FrameSource, detector MarkerDetector, dispatcher Dispatcher,
	limiter *ratelimit.Limiter, trackerOpts tracker.Options, logger *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		source:     source,
		detector:   detector,
		dispatcher: dispatcher,
		limiter:    limiter,
		logger:     logger,
		now:        time.Now,
		idle:       10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.tracker = tracker.New(trackerOpts, m.now())

	m.logger.Info("🎬 Manager started - min frame interval %v, threshold %d, reset every %v",
		limiter.Interval(), m.tracker.Threshold(), trackerOpts.ResetInterval)
	return m
}

// Tracker exposes the confirmation state, mainly for tests and stats.
func (m *Manager) Tracker() *tracker.Tracker {
	return m.tracker
}

// Run loops until ctx is canceled, the source ends or the renderer asks to
// stop. Cancellation is checked at the top of every iteration. Per-frame
// failures are logged and never end the loop. The source is closed on return.
func (m *Manager) Run(ctx context.Context) error {
	defer func() {
		if err := m.source.Close(); err != nil {
			m.logger.Warning("Failed to close frame source: %v", err)
		}
		m.logger.Info("🛑 Manager stopped after %d frames (%d processed)", m.frames, m.processed)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		frame, err := m.source.Read()
		switch {
		case errors.Is(err, io.EOF):
			m.logger.Info("Frame source ended")
			return nil
		case err != nil:
			m.logger.Debug("Frame read failed: %v", err)
			m.sleep(ctx, m.idle)
			continue
		}
		m.frames++

		if err := m.HandleFrame(frame); err != nil {
			if errors.Is(err, ErrStopRequested) {
				m.logger.Info("Stop requested from preview")
				return nil
			}
			m.logger.Error("Frame %d: %v", m.frames, err)
		}
	}
}

// HandleFrame runs one iteration on an already captured frame. Frames
// rejected by the rate limiter are dropped without detection or display.
func (m *Manager) HandleFrame(frame Frame) error {
	now := m.now()
	if !m.limiter.Allow(now) {
		return nil
	}
	m.processed++

	detections, err := m.detector.Detect(frame)
	if err != nil {
		m.logger.Warning("Marker detection failed: %v", err)
		detections = nil
	}

	events := m.tracker.Observe(dto.MarkerIDs(detections), now)
	if len(events) > 0 {
		m.dispatcher.Dispatch(m.confirmations(frame, events))
	}

	if m.renderer == nil {
		return nil
	}
	if err := m.renderer.Render(frame, detections); err != nil {
		if errors.Is(err, ErrStopRequested) {
			return err
		}
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// confirmations attaches a private snapshot of the frame to every event when
// the dispatcher stores sightings. A failed snapshot still dispatches the
// notification.
func (m *Manager) confirmations(frame Frame, events []tracker.Event) []dispatch.Confirmation {
	persistent := m.dispatcher.Persistent()
	out := make([]dispatch.Confirmation, 0, len(events))
	for _, ev := range events {
		c := dispatch.Confirmation{MarkerID: ev.ID, At: ev.At}
		if !persistent {
			out = append(out, c)
			continue
		}
		snap, err := frame.Snapshot()
		if err != nil {
			m.logger.Error("Failed to snapshot frame for marker %d: %v", ev.ID, err)
		} else {
			c.Snapshot = snap
		}
		out = append(out, c)
	}
	return out
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
