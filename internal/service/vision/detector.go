package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"agrovision/internal/dto"
	"agrovision/internal/service"
	"agrovision/internal/service/vision/arucodict"
)

// DefaultDictionary is the ArUco family printed on the ear tags.
const DefaultDictionary = "4x4_250"

// ErrUnknownDictionary is returned for dictionary names outside the
// predefined OpenCV families.
var ErrUnknownDictionary = arucodict.ErrUnknown

var dictionaries = map[string]gocv.ArucoDictionaryCode{
	"4x4_50":         gocv.ArucoDict4x4_50,
	"4x4_100":        gocv.ArucoDict4x4_100,
	"4x4_250":        gocv.ArucoDict4x4_250,
	"4x4_1000":       gocv.ArucoDict4x4_1000,
	"5x5_50":         gocv.ArucoDict5x5_50,
	"5x5_100":        gocv.ArucoDict5x5_100,
	"5x5_250":        gocv.ArucoDict5x5_250,
	"5x5_1000":       gocv.ArucoDict5x5_1000,
	"6x6_50":         gocv.ArucoDict6x6_50,
	"6x6_100":        gocv.ArucoDict6x6_100,
	"6x6_250":        gocv.ArucoDict6x6_250,
	"6x6_1000":       gocv.ArucoDict6x6_1000,
	"7x7_50":         gocv.ArucoDict7x7_50,
	"7x7_100":        gocv.ArucoDict7x7_100,
	"7x7_250":        gocv.ArucoDict7x7_250,
	"7x7_1000":       gocv.ArucoDict7x7_1000,
	"aruco_original": gocv.ArucoDictArucoOriginal,
}

// DictionaryNames lists the accepted dictionary names.
func DictionaryNames() []string {
	return arucodict.Names()
}

// LookupDictionary resolves a name such as "4x4_250" or "DICT_4X4_250".
func LookupDictionary(name string) (gocv.ArucoDictionaryCode, error) {
	key, err := arucodict.Canonical(name)
	if err != nil {
		return 0, err
	}
	code, ok := dictionaries[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDictionary, name)
	}
	return code, nil
}

// Detector finds ArUco markers with default detector parameters.
type Detector struct {
	detector gocv.ArucoDetector
	name     string
}

// NewDetector builds a detector for the named dictionary.
func NewDetector(dictionary string) (*Detector, error) {
	code, err := LookupDictionary(dictionary)
	if err != nil {
		return nil, err
	}
	dict := gocv.GetPredefinedDictionary(code)
	params := gocv.NewArucoDetectorParameters()

	return &Detector{
		detector: gocv.NewArucoDetectorWithParams(dict, params),
		name:     dictionary,
	}, nil
}

// Detect returns the markers found in frame, corners in top-left,
// top-right, bottom-right, bottom-left order.
func (d *Detector) Detect(frame service.Frame) ([]dto.MarkerDetection, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", frame)
	}
	if f.mat.Empty() {
		return nil, nil
	}

	corners, ids, _ := d.detector.DetectMarkers(f.mat)
	if len(ids) == 0 {
		return nil, nil
	}
	if len(corners) != len(ids) {
		return nil, fmt.Errorf("detector returned %d ids for %d quads", len(ids), len(corners))
	}

	detections := make([]dto.MarkerDetection, 0, len(ids))
	for i, id := range ids {
		if len(corners[i]) != 4 {
			continue
		}
		det := dto.MarkerDetection{ID: id}
		for j, p := range corners[i] {
			det.Corners[j] = image.Pt(int(p.X), int(p.Y))
		}
		detections = append(detections, det)
	}
	return detections, nil
}

// Close releases the native detector.
func (d *Detector) Close() error {
	return d.detector.Close()
}
