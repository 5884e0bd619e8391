// Package arucodict names the predefined ArUco dictionary families without
// depending on OpenCV, so configuration can be checked before any device or
// store is opened.
package arucodict

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknown is returned for names outside the predefined families.
var ErrUnknown = errors.New("unknown aruco dictionary")

// names is kept sorted.
var names = []string{
	"4x4_100", "4x4_1000", "4x4_250", "4x4_50",
	"5x5_100", "5x5_1000", "5x5_250", "5x5_50",
	"6x6_100", "6x6_1000", "6x6_250", "6x6_50",
	"7x7_100", "7x7_1000", "7x7_250", "7x7_50",
	"aruco_original",
}

// Names lists the accepted dictionary names in sorted order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Canonical normalizes a name such as "DICT_4X4_250" to "4x4_250".
func Canonical(name string) (string, error) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "dict_")
	for _, n := range names {
		if n == key {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, name)
}
