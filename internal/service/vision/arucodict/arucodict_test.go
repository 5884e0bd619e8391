package arucodict

import (
	"errors"
	"sort"
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"4x4_250", "4x4_250", false},
		{"DICT_4X4_250", "4x4_250", false},
		{" 6x6_1000 ", "6x6_1000", false},
		{"ARUCO_ORIGINAL", "aruco_original", false},
		{"9x9_1", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := Canonical(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknown) {
				t.Errorf("Canonical(%q): expected ErrUnknown, got %v", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Canonical(%q) = %q, %v, expected %q", tt.input, got, err, tt.want)
		}
	}
}

func TestNamesSortedCopy(t *testing.T) {
	got := Names()
	if !sort.StringsAreSorted(got) {
		t.Errorf("Names not sorted: %v", got)
	}
	got[0] = "changed"
	if Names()[0] == "changed" {
		t.Error("Expected Names to return a copy")
	}
}
