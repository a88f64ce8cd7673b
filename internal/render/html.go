package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/monitoring"
)

// HTMLTarget writes the figure as an interactive go-echarts page with one
// line chart per panel.
type HTMLTarget struct {
	FS    fsutil.FileSystem
	Path  string
	Title string
}

// Render writes the page to Path, replacing any previous one.
func (t *HTMLTarget) Render(fig *Figure) error {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, fig, t.Title); err != nil {
		return err
	}
	if err := fsutil.ReplaceFile(t.FS, t.Path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", t.Path, err)
	}
	monitoring.Logf("wrote %d chart(s) to %s", len(fig.Panels), t.Path)
	return nil
}

// WriteHTML renders fig as a go-echarts page to w.
func WriteHTML(w io.Writer, fig *Figure, title string) error {
	if len(fig.Panels) == 0 {
		return ErrEmptyFigure
	}
	if title == "" {
		title = "sweepview"
	}

	page := components.NewPage()
	page.SetPageTitle(title)
	for i, panel := range fig.Panels {
		page.AddCharts(panelChart(panel, fig.XLabel, i))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func panelChart(panel Panel, xLabel string, idx int) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: panel.YLabel, Subtitle: panel.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(panel.Legend), Bottom: "0", Type: "scroll"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: xLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: panel.YLabel, Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", XAxisIndex: []int{0}}),
	)

	for _, b := range panel.Bands {
		name := seriesName(b.Label, "band", idx)
		line.AddSeries(name+" upper", lineData(b.Time, b.Upper),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Opacity: opts.Float(0.6)}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
		line.AddSeries(name+" lower", lineData(b.Time, b.Lower),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Opacity: opts.Float(0.6)}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	}
	for i, c := range panel.Curves {
		style := opts.LineStyle{Width: 1}
		if c.Reference {
			style.Type = "dotted"
		}
		line.AddSeries(seriesName(c.Label, "curve", i), lineData(c.Time, c.Values),
			charts.WithLineStyleOpts(style),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	}
	return line
}

// seriesName flattens a wrapped legend label; unlabelled series get a
// positional name since echarts keys series by name.
func seriesName(label, kind string, i int) string {
	if label == "" {
		return fmt.Sprintf("%s %d", kind, i+1)
	}
	return strings.Join(legendLines(label), " ")
}

func lineData(xs, ys []float64) []opts.LineData {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	data := make([]opts.LineData, n)
	for i := 0; i < n; i++ {
		data[i] = opts.LineData{Value: []interface{}{xs[i], ys[i]}}
	}
	return data
}
