package vision

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"agrovision/internal/dto"
	"agrovision/internal/logger"
)

func TestLookupDictionary(t *testing.T) {
	tests := []struct {
		name    string
		want    gocv.ArucoDictionaryCode
		wantErr bool
	}{
		{"4x4_250", gocv.ArucoDict4x4_250, false},
		{"DICT_4X4_250", gocv.ArucoDict4x4_250, false},
		{" 6x6_1000 ", gocv.ArucoDict6x6_1000, false},
		{"aruco_original", gocv.ArucoDictArucoOriginal, false},
		{"3x3_10", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LookupDictionary(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownDictionary) {
					t.Errorf("Expected ErrUnknownDictionary, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDictionaryNamesSorted(t *testing.T) {
	names := DictionaryNames()
	if len(names) != len(dictionaries) {
		t.Fatalf("Expected %d names, got %d", len(dictionaries), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("Names not sorted: %q before %q", names[i-1], names[i])
		}
	}
	for _, name := range names {
		if _, ok := dictionaries[name]; !ok {
			t.Errorf("Dictionary %q has no OpenCV code", name)
		}
	}
}

func TestSnapshotOutlivesSource(t *testing.T) {
	mat := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	frame := NewFrame(mat, 80)

	snap, err := frame.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	mat.Close()

	data, err := snap.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("Expected JPEG start-of-image marker")
	}

	if err := snap.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := snap.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}
	if _, err := snap.Encode(); err == nil {
		t.Error("Expected encode after close to fail")
	}
}

func TestSnapshotOfEmptyFrame(t *testing.T) {
	mat := gocv.NewMat()
	defer mat.Close()

	if _, err := NewFrame(mat, 90).Snapshot(); err == nil {
		t.Error("Expected error for empty frame")
	}
}

func TestDetectorFindsNothingOnBlankFrame(t *testing.T) {
	det, err := NewDetector(DefaultDictionary)
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	defer det.Close()

	mat := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer mat.Close()

	found, err := det.Detect(NewFrame(mat, 90))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Expected no markers, got %v", found)
	}
}

func TestNewDetectorRejectsUnknownDictionary(t *testing.T) {
	if _, err := NewDetector("9x9_1"); !errors.Is(err, ErrUnknownDictionary) {
		t.Errorf("Expected ErrUnknownDictionary, got %v", err)
	}
}

type countingPublisher struct {
	clients int
	frames  [][]byte
}

func (p *countingPublisher) ClientCount() int      { return p.clients }
func (p *countingPublisher) PublishFrame(b []byte) { p.frames = append(p.frames, b) }

func TestRendererPublishesOnlyWithViewers(t *testing.T) {
	pub := &countingPublisher{}
	r := NewRenderer(true, pub, logger.NewNop())
	defer r.Close()

	mat := gocv.NewMatWithSize(60, 80, gocv.MatTypeCV8UC3)
	defer mat.Close()
	frame := NewFrame(mat, 70)
	detections := []dto.MarkerDetection{{
		ID:      3,
		Corners: [4]image.Point{{10, 10}, {40, 10}, {40, 40}, {10, 40}},
	}}

	if err := r.Render(frame, detections); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(pub.frames) != 0 {
		t.Fatalf("Expected no frames without viewers, got %d", len(pub.frames))
	}

	pub.clients = 1
	if err := r.Render(frame, detections); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(pub.frames) != 1 || !bytes.HasPrefix(pub.frames[0], []byte{0xFF, 0xD8}) {
		t.Errorf("Expected one JPEG frame published, got %d", len(pub.frames))
	}
}
