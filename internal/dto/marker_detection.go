package dto

import "image"

// MarkerDetection is one marker found in a frame. Corners are ordered
// top-left, top-right, bottom-right, bottom-left.
type MarkerDetection struct {
	ID      int
	Corners [4]image.Point
}

// Center returns the midpoint of the top-left and bottom-right corners.
func (d MarkerDetection) Center() image.Point {
	return image.Pt((d.Corners[0].X+d.Corners[2].X)/2, (d.Corners[0].Y+d.Corners[2].Y)/2)
}

// MarkerIDs extracts the ids of the given detections in input order.
func MarkerIDs(detections []MarkerDetection) []int {
	if len(detections) == 0 {
		return nil
	}
	ids := make([]int, len(detections))
	for i, d := range detections {
		ids[i] = d.ID
	}
	return ids
}
