// Package vision holds the OpenCV side of the pipeline: camera capture,
// ArUco marker detection, overlay drawing and JPEG encoding.
package vision

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"agrovision/internal/service/dispatch"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

// Frame wraps the capture buffer. It is only valid until the next Read on
// the capture that produced it.
type Frame struct {
	mat     gocv.Mat
	quality int
}

// NewFrame wraps an existing Mat. The caller keeps ownership of mat.
func NewFrame(mat gocv.Mat, quality int) *Frame {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Frame{mat: mat, quality: quality}
}

// Mat exposes the underlying image.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

// Snapshot clones the frame so it survives the next capture.
func (f *Frame) Snapshot() (dispatch.Snapshot, error) {
	if f.mat.Empty() {
		return nil, errors.New("empty frame")
	}
	return &matSnapshot{mat: f.mat.Clone(), quality: f.quality}, nil
}

// Encode returns the frame as JPEG.
func (f *Frame) Encode() ([]byte, error) {
	return EncodeJPEG(f.mat, f.quality)
}

type matSnapshot struct {
	mat     gocv.Mat
	quality int
	closed  bool
}

func (s *matSnapshot) Encode() ([]byte, error) {
	if s.closed {
		return nil, errors.New("snapshot already released")
	}
	return EncodeJPEG(s.mat, s.quality)
}

func (s *matSnapshot) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.mat.Close()
}

// EncodeJPEG compresses mat at the given quality. The returned slice is
// owned by the caller.
func EncodeJPEG(mat gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	defer buf.Close()

	native := buf.GetBytes()
	out := make([]byte, len(native))
	copy(out, native)
	return out, nil
}
