// Package render turns an expanded selection into a Figure and draws it.
//
// Compose is side-effect free apart from diagnostics: it resolves every
// coordinate against the index and lays the curves out into panels. Targets
// do the drawing, either to an image file with gonum/plot or to an HTML page
// with go-echarts.
package render

import (
	"errors"
	"fmt"
)

// Layout selects how coordinates are arranged into panels.
type Layout string

const (
	// LayoutMsPoints draws one panel per selected quantity, overlaying every
	// selected parameter, measuring point and dimension combination.
	LayoutMsPoints Layout = "ms_points"
	// LayoutAvgStdPacing draws one panel per parameter combination and
	// quantity: the mean over the selected measuring points and dimensions,
	// a one standard deviation band and an optional pacing reference.
	LayoutAvgStdPacing Layout = "avg_std_pacing"
)

// ErrUnknownLayout is returned for a layout mode that is not supported.
var ErrUnknownLayout = errors.New("unknown layout")

// Layouts returns the supported layout modes.
func Layouts() []Layout {
	return []Layout{LayoutMsPoints, LayoutAvgStdPacing}
}

// ParseLayout validates a layout mode name.
func ParseLayout(s string) (Layout, error) {
	for _, l := range Layouts() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w %q (want one of %v)", ErrUnknownLayout, s, Layouts())
}
