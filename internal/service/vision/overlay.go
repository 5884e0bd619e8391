package vision

import (
	"image"
	"image/color"
	"strconv"

	"gocv.io/x/gocv"

	"agrovision/internal/dto"
)

var (
	quadColor   = color.RGBA{0, 255, 0, 0}
	centerColor = color.RGBA{255, 0, 0, 0}
	labelColor  = color.RGBA{0, 255, 0, 0}
)

// DrawMarkers outlines every marker, marks its centre and writes its id
// above the top-left corner.
func DrawMarkers(img *gocv.Mat, detections []dto.MarkerDetection) {
	for _, det := range detections {
		c := det.Corners
		for i := range c {
			gocv.Line(img, c[i], c[(i+1)%len(c)], quadColor, 2)
		}

		gocv.Circle(img, det.Center(), 4, centerColor, -1)

		label := image.Pt(c[0].X, c[0].Y-15)
		gocv.PutText(img, strconv.Itoa(det.ID), label, gocv.FontHersheySimplex, 5, labelColor, 2)
	}
}
