package render

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/paramspace"
)

// Options tune composition.
type Options struct {
	// PacingQuantity names the quantity drawn as the pacing reference in the
	// avg_std_pacing layout. Empty disables the reference curve.
	PacingQuantity string
}

// Compose lays out the coordinates of exp according to layout. Coordinates
// without indexed data are reported in missing and printed as diagnostics;
// everything else is still drawn.
func Compose(layout Layout, space *paramspace.Space, ix *paramspace.Index, exp *paramspace.Expansion, opts Options) (fig *Figure, missing []paramspace.Coord) {
	switch layout {
	case LayoutAvgStdPacing:
		fig, missing = composeAvgStd(space, ix, exp, opts)
	default:
		fig, missing = composeMsPoints(space, ix, exp)
	}
	fig.Layout = layout
	fig.XLabel = XLabel
	return fig, missing
}

// composeMsPoints draws one panel per checked quantity. Only the first panel
// labels its curves, and it carries the legend.
func composeMsPoints(space *paramspace.Space, ix *paramspace.Index, exp *paramspace.Expansion) (*Figure, []paramspace.Coord) {
	fig := &Figure{Panels: make([]Panel, exp.NumSlots())}
	for i, q := range exp.SlotOrder {
		fig.Panels[i] = Panel{YLabel: q, Legend: i == 0}
	}

	var missing []paramspace.Coord
	for _, c := range exp.Coords {
		time, values, err := ix.Lookup(c)
		if err != nil {
			missing = append(missing, c)
			reportMissing(c)
			continue
		}
		slot := exp.Slot(c)
		curve := Curve{Time: time, Values: values}
		if slot == 0 {
			curve.Label = CurveLabel(space, c)
		}
		fig.Panels[slot].Curves = append(fig.Panels[slot].Curves, curve)
	}
	return fig, missing
}

type statGroup struct {
	prefix   paramspace.Coord
	quantity string
	coords   []paramspace.Coord
}

// composeAvgStd draws one panel per (parameter prefix, quantity) pair, in
// expansion order, reducing the selected measuring points and dimensions to
// a mean curve with a one standard deviation band.
func composeAvgStd(space *paramspace.Space, ix *paramspace.Index, exp *paramspace.Expansion, opts Options) (*Figure, []paramspace.Coord) {
	var groups []*statGroup
	byKey := make(map[string]*statGroup)
	for _, c := range exp.Coords {
		key := c.Prefix().With(c.Quantity(), "", "").Key()
		g, ok := byKey[key]
		if !ok {
			g = &statGroup{prefix: c.Prefix(), quantity: c.Quantity()}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.coords = append(g.coords, c)
	}

	fig := &Figure{}
	var missing []paramspace.Coord
	for i, g := range groups {
		panel := Panel{
			Title:  prefixLabel(space, g.prefix),
			YLabel: g.quantity,
			Legend: i == 0,
		}

		time, ok := ix.Time(g.prefix)
		var series [][]float64
		for _, c := range g.coords {
			values, found := ix.Series(c)
			if !ok || !found {
				missing = append(missing, c)
				reportMissing(c)
				continue
			}
			series = append(series, values)
		}

		if len(series) > 0 {
			mean, std := MeanStd(series)
			lower := make([]float64, len(mean))
			upper := make([]float64, len(mean))
			floats.SubTo(lower, mean, std)
			floats.AddTo(upper, mean, std)
			panel.Bands = append(panel.Bands, Band{Label: "±1 std", Time: time, Lower: lower, Upper: upper})
			panel.Curves = append(panel.Curves, Curve{
				Label:  fmt.Sprintf("mean of %d", len(series)),
				Time:   time,
				Values: mean,
			})

			if opts.PacingQuantity != "" && len(mean) > 0 {
				first := g.coords[0]
				pc := g.prefix.With(opts.PacingQuantity, first.MeasuringPoint(), first.Dimension())
				if pacing, found := ix.Series(pc); found {
					panel.Curves = append(panel.Curves, Curve{
						Label:     "pacing (" + opts.PacingQuantity + ")",
						Time:      time,
						Values:    ScaleInto(pacing, floats.Min(lower), floats.Max(upper)),
						Reference: true,
					})
				} else {
					missing = append(missing, pc)
					reportMissing(pc)
				}
			}
		}
		fig.Panels = append(fig.Panels, panel)
	}
	return fig, missing
}

func reportMissing(c paramspace.Coord) {
	monitoring.Diagf("No data found for key %v", c)
}

// CurveLabel builds the legend label of a full coordinate: "header: value"
// pairs over the input parameters, measuring point and dimension, wrapped at
// LegendWidth columns.
func CurveLabel(space *paramspace.Space, c paramspace.Coord) string {
	headers := space.Headers()
	n := len(headers)
	parts := make([]string, 0, n-1)
	for i := 0; i < n-3; i++ {
		parts = append(parts, headers[i]+": "+c[i])
	}
	parts = append(parts,
		headers[n-2]+": "+c.MeasuringPoint(),
		headers[n-1]+": "+c.Dimension(),
	)
	return wordwrap.String(strings.Join(parts, ", "), LegendWidth)
}

func prefixLabel(space *paramspace.Space, prefix paramspace.Coord) string {
	params := space.Params()
	parts := make([]string, len(prefix))
	for i, v := range prefix {
		parts[i] = params[i] + ": " + v
	}
	return wordwrap.String(strings.Join(parts, ", "), LegendWidth)
}

// MeanStd reduces equally long series to their pointwise mean and sample
// standard deviation. The deviation is zero where fewer than two series
// contribute.
func MeanStd(series [][]float64) (mean, std []float64) {
	steps := 0
	for _, s := range series {
		if len(s) > steps {
			steps = len(s)
		}
	}
	mean = make([]float64, steps)
	std = make([]float64, steps)
	column := make([]float64, 0, len(series))
	for t := 0; t < steps; t++ {
		column = column[:0]
		for _, s := range series {
			if t < len(s) {
				column = append(column, s[t])
			}
		}
		if len(column) < 2 {
			mean[t] = column[0]
			continue
		}
		mean[t], std[t] = stat.MeanStdDev(column, nil)
	}
	return mean, std
}

// ScaleInto maps values linearly onto [lo, hi]. A constant series maps to lo.
func ScaleInto(values []float64, lo, hi float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	copy(out, values)
	vmin, vmax := floats.Min(out), floats.Max(out)
	floats.AddConst(-vmin, out)
	if vmax > vmin {
		floats.Scale((hi-lo)/(vmax-vmin), out)
	}
	floats.AddConst(lo, out)
	return out
}
