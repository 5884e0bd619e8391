package vision

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"agrovision/internal/logger"
	"agrovision/internal/service"
)

// CaptureOptions describes how the capture device is opened.
type CaptureOptions struct {
	Device      string // camera index ("0"), device path, video file or stream URL
	Width       int
	Height      int
	JPEGQuality int
}

// Capture reads frames from a camera, file or stream into a reused buffer.
type Capture struct {
	capture *gocv.VideoCapture
	buffer  gocv.Mat
	frame   *Frame
	isFile  bool
	logger  *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// OpenCapture opens the device and requests the configured resolution with
// MJPG encoding. A numeric device opens a camera index.
func OpenCapture(opts CaptureOptions, logger *logger.Logger) (*Capture, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if index, convErr := strconv.Atoi(opts.Device); convErr == nil {
		capture, err = gocv.VideoCaptureDevice(index)
	} else {
		capture, err = gocv.VideoCaptureFile(opts.Device)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", opts.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("cannot open %s", opts.Device)
	}

	if opts.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	}
	if opts.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}
	capture.Set(gocv.VideoCaptureFOURCC, capture.ToCodec("MJPG"))

	c := &Capture{
		capture: capture,
		buffer:  gocv.NewMat(),
		isFile:  isRegularFile(opts.Device),
		logger:  logger,
	}
	c.frame = NewFrame(c.buffer, opts.JPEGQuality)

	logger.Info("📷 Capture opened: %s (requested %dx%d, got %.0fx%.0f)", opts.Device, opts.Width, opts.Height,
		capture.Get(gocv.VideoCaptureFrameWidth), capture.Get(gocv.VideoCaptureFrameHeight))
	return c, nil
}

// Read grabs the next frame. A failed read of a video file is the end of
// the stream; on a live device it is transient.
func (c *Capture) Read() (service.Frame, error) {
	if ok := c.capture.Read(&c.buffer); !ok || c.buffer.Empty() {
		if c.isFile {
			return nil, io.EOF
		}
		return nil, service.ErrNoFrame
	}
	return c.frame, nil
}

// Close releases the device and the frame buffer. It is safe to call more
// than once.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.capture.Close()
		c.buffer.Close()
		c.logger.Info("📷 Capture released")
	})
	return c.closeErr
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
