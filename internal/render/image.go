package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/monitoring"
)

// Target draws a composed figure somewhere.
type Target interface {
	Render(fig *Figure) error
}

var (
	ErrEmptyFigure      = errors.New("figure has no panels")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// Default image geometry: each panel is DefaultWidth × DefaultPanelHeight,
// and panels stack vertically.
const (
	DefaultWidth       = 10 * vg.Inch
	DefaultPanelHeight = 4 * vg.Inch
	DefaultDPI         = 300
)

// ImageTarget writes the figure as a PNG or SVG image, chosen by the
// extension of Path. Each Render overwrites the previous file.
type ImageTarget struct {
	FS          fsutil.FileSystem
	Path        string
	Width       vg.Length
	PanelHeight vg.Length
	DPI         int
}

// NewImageTarget returns a target writing to path with default geometry.
func NewImageTarget(fs fsutil.FileSystem, path string) *ImageTarget {
	return &ImageTarget{
		FS:          fs,
		Path:        path,
		Width:       DefaultWidth,
		PanelHeight: DefaultPanelHeight,
		DPI:         DefaultDPI,
	}
}

// Render draws all panels stacked on a shared time axis and writes the file.
func (t *ImageTarget) Render(fig *Figure) error {
	if len(fig.Panels) == 0 {
		return ErrEmptyFigure
	}
	ext := strings.ToLower(filepath.Ext(t.Path))
	if ext != ".png" && ext != ".svg" {
		return fmt.Errorf("%w %q", ErrUnsupportedImage, ext)
	}

	plots, err := buildPlots(fig)
	if err != nil {
		return err
	}

	width := t.Width
	if width <= 0 {
		width = DefaultWidth
	}
	panelHeight := t.PanelHeight
	if panelHeight <= 0 {
		panelHeight = DefaultPanelHeight
	}
	height := panelHeight * vg.Length(len(plots))

	var buf bytes.Buffer
	switch ext {
	case ".svg":
		c := vgsvg.New(width, height)
		drawStacked(plots, draw.New(c))
		if _, err := c.WriteTo(&buf); err != nil {
			return fmt.Errorf("encode svg: %w", err)
		}
	default:
		dpi := t.DPI
		if dpi <= 0 {
			dpi = DefaultDPI
		}
		c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
		drawStacked(plots, draw.New(c))
		if err := writePNG(&buf, c); err != nil {
			return err
		}
	}

	if err := fsutil.ReplaceFile(t.FS, t.Path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", t.Path, err)
	}
	monitoring.Logf("wrote %d panel(s) to %s", len(plots), t.Path)
	return nil
}

func writePNG(w io.Writer, c *vgimg.Canvas) error {
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// buildPlots turns each panel into a gonum plot. Every plot gets the same
// x range; only the bottom one carries the x label.
func buildPlots(fig *Figure) ([]*plot.Plot, error) {
	plots := make([]*plot.Plot, len(fig.Panels))
	for i, panel := range fig.Panels {
		p, err := panelPlot(panel)
		if err != nil {
			return nil, fmt.Errorf("panel %d: %w", i, err)
		}
		plots[i] = p
	}

	if lo, hi, ok := fig.XRange(); ok {
		for _, p := range plots {
			p.X.Min, p.X.Max = lo, hi
		}
	}
	plots[len(plots)-1].X.Label.Text = fig.XLabel
	return plots, nil
}

func panelPlot(panel Panel) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = panel.Title
	p.Y.Label.Text = panel.YLabel
	p.Add(plotter.NewGrid())

	colors := generateColors(len(panel.Curves))
	for _, b := range panel.Bands {
		poly, err := bandPolygon(b)
		if err != nil {
			return nil, err
		}
		p.Add(poly)
		if panel.Legend && b.Label != "" {
			p.Legend.Add(b.Label, poly)
		}
	}
	for i, c := range panel.Curves {
		line, err := plotter.NewLine(xys(c.Time, c.Values))
		if err != nil {
			return nil, err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		if c.Reference {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(line)
		if panel.Legend && c.Label != "" {
			p.Legend.Add(c.Label, line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func bandPolygon(b Band) (*plotter.Polygon, error) {
	n := len(b.Time)
	if len(b.Lower) < n {
		n = len(b.Lower)
	}
	if len(b.Upper) < n {
		n = len(b.Upper)
	}
	ring := make(plotter.XYs, 0, 2*n)
	for i := 0; i < n; i++ {
		ring = append(ring, plotter.XY{X: b.Time[i], Y: b.Upper[i]})
	}
	for i := n - 1; i >= 0; i-- {
		ring = append(ring, plotter.XY{X: b.Time[i], Y: b.Lower[i]})
	}
	poly, err := plotter.NewPolygon(ring)
	if err != nil {
		return nil, err
	}
	poly.Color = color.RGBA{R: 120, G: 120, B: 200, A: 80}
	poly.LineStyle.Width = 0
	return poly, nil
}

func drawStacked(plots []*plot.Plot, dc draw.Canvas) {
	rows := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		rows[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(2),
		PadBottom: vg.Points(2),
		PadLeft:   vg.Points(2),
		PadRight:  vg.Points(2),
	}
	canvases := plot.Align(rows, tiles, dc)
	for i, p := range plots {
		p.Draw(canvases[i][0])
	}
}

func xys(xs, ys []float64) plotter.XYs {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts
}

// generateColors creates a palette of n evenly spaced hues.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.45)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
