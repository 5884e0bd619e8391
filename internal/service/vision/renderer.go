package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"agrovision/internal/dto"
	"agrovision/internal/logger"
	"agrovision/internal/service"
)

// WindowTitle names the local preview window.
const WindowTitle = "Agrovision"

// FramePublisher forwards annotated frames to remote viewers.
type FramePublisher interface {
	ClientCount() int
	PublishFrame(jpeg []byte)
}

// Renderer draws detections onto the frame and shows it in a local window
// and/or on a FramePublisher. Pressing q in the window stops the pipeline.
type Renderer struct {
	window    *gocv.Window
	publisher FramePublisher
	logger    *logger.Logger
}

// NewRenderer opens the preview window unless headless is set. publisher
// may be nil.
func NewRenderer(headless bool, publisher FramePublisher, logger *logger.Logger) *Renderer {
	r := &Renderer{publisher: publisher, logger: logger}
	if !headless {
		r.window = gocv.NewWindow(WindowTitle)
		logger.Info("🖥️  Preview window opened, press q to quit")
	}
	return r
}

// Active reports whether rendering has anywhere to go.
func (r *Renderer) Active() bool {
	return r.window != nil || r.publisher != nil
}

// Render annotates frame in place. Snapshots are taken before rendering so
// stored images stay clean.
func (r *Renderer) Render(frame service.Frame, detections []dto.MarkerDetection) error {
	f, ok := frame.(*Frame)
	if !ok {
		return fmt.Errorf("unsupported frame type %T", frame)
	}

	viewers := r.publisher != nil && r.publisher.ClientCount() > 0
	if r.window == nil && !viewers {
		return nil
	}

	DrawMarkers(&f.mat, detections)

	if viewers {
		data, err := f.Encode()
		if err != nil {
			r.logger.Warning("Preview frame dropped: %v", err)
		} else {
			r.publisher.PublishFrame(data)
		}
	}

	if r.window != nil {
		r.window.IMShow(f.mat)
		if key := r.window.WaitKey(1); key == 'q' || key == 'Q' {
			return service.ErrStopRequested
		}
	}
	return nil
}

// Close destroys the preview window.
func (r *Renderer) Close() error {
	if r.window == nil {
		return nil
	}
	err := r.window.Close()
	r.window = nil
	return err
}
