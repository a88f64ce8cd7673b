package render

import "strings"

// XLabel is the label of the shared time axis.
const XLabel = "Time (ms)"

// LegendWidth is the column at which legend labels are wrapped.
const LegendWidth = 100

// Curve is one line in a panel. An empty Label keeps it out of the legend.
type Curve struct {
	Label  string
	Time   []float64
	Values []float64
	// Reference curves (the pacing trace) are drawn dashed.
	Reference bool
}

// Band is a shaded region between Lower and Upper.
type Band struct {
	Label string
	Time  []float64
	Lower []float64
	Upper []float64
}

// Panel is one subplot. All panels of a figure share the x axis.
type Panel struct {
	Title  string
	YLabel string
	Curves []Curve
	Bands  []Band
	Legend bool
}

// Figure is a composed, target-independent plot.
type Figure struct {
	Layout Layout
	XLabel string
	Panels []Panel
}

// Empty reports whether no panel has anything to draw.
func (f *Figure) Empty() bool {
	for _, p := range f.Panels {
		if len(p.Curves) > 0 || len(p.Bands) > 0 {
			return false
		}
	}
	return true
}

// XRange returns the smallest and largest time over all curves and bands.
func (f *Figure) XRange() (lo, hi float64, ok bool) {
	visit := func(ts []float64) {
		for _, t := range ts {
			if !ok || t < lo {
				lo = t
			}
			if !ok || t > hi {
				hi = t
			}
			ok = true
		}
	}
	for _, p := range f.Panels {
		for _, c := range p.Curves {
			visit(c.Time)
		}
		for _, b := range p.Bands {
			visit(b.Time)
		}
	}
	return lo, hi, ok
}

// legendLines splits a wrapped label into its lines.
func legendLines(label string) []string {
	return strings.Split(label, "\n")
}
